package handler

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"onboard/internal/kyc/models"
	dErrors "onboard/pkg/domain-errors"
	pkgstrings "onboard/pkg/platform/strings"
)

const (
	maxFieldNameLength  = 64
	maxFieldValueLength = 256
)

// VerifyDocumentRequest is the body of POST /kyc/documents/{documentType}/verify.
// Field names are the canonical names for the document type; the service
// normalizes and validates their values.
type VerifyDocumentRequest struct {
	Fields map[string]string `json:"fields" validate:"required,min=1,max=8"`
}

// Validate implements httputil.Validatable.
func (r *VerifyDocumentRequest) Validate() error {
	for k, v := range r.Fields {
		if len(k) > maxFieldNameLength {
			return dErrors.NewField(dErrors.CodeValidation, "fields", "field name is too long")
		}
		if len(v) > maxFieldValueLength {
			return dErrors.NewField(dErrors.CodeValidation, k, k+" is too long")
		}
	}
	return nil
}

// AcceptAgreementRequest is the body of POST /kyc/agreement. An empty version
// accepts the current agreement.
type AcceptAgreementRequest struct {
	Version string `json:"version" validate:"max=32"`
}

func (r *AcceptAgreementRequest) Validate() error {
	r.Version = strings.TrimSpace(r.Version)
	return nil
}

// SubmitCaseRequest is the body of POST /kyc/submit. Declared details, when
// sent, must match what was verified.
type SubmitCaseRequest struct {
	Declared map[string]map[string]string `json:"declared" validate:"max=4"`

	declared map[models.DocumentType]map[string]string
}

func (r *SubmitCaseRequest) Validate() error {
	if len(r.Declared) == 0 {
		return nil
	}
	r.declared = make(map[models.DocumentType]map[string]string, len(r.Declared))
	for k, fields := range r.Declared {
		docType, err := models.ParseDocumentType(k)
		if err != nil {
			return err
		}
		r.declared[docType] = fields
	}
	return nil
}

// ReviewCaseRequest is the body of the approve and reject endpoints. Reject
// requires a reason; the service enforces it.
type ReviewCaseRequest struct {
	Notes  string `json:"notes" validate:"max=2000"`
	Reason string `json:"reason" validate:"max=500"`
}

// InvalidateDocumentRequest is the body of the invalidate endpoint.
type InvalidateDocumentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ParseCaseFilter reads the review queue filter from the query string:
// state (repeatable or comma separated), created_from, created_to (RFC 3339
// or YYYY-MM-DD), search, limit and offset.
func ParseCaseFilter(q url.Values) (models.CaseFilter, error) {
	var filter models.CaseFilter

	for _, s := range pkgstrings.SplitList(q["state"], strings.ToUpper) {
		filter.States = append(filter.States, models.CaseState(s))
	}

	var err error
	if filter.CreatedFrom, err = parseTimeParam(q, "created_from"); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = parseTimeParam(q, "created_to"); err != nil {
		return filter, err
	}
	filter.Search = strings.TrimSpace(q.Get("search"))
	if len(filter.Search) > 100 {
		return filter, dErrors.NewField(dErrors.CodeValidation, "search", "search must be at most 100 characters")
	}
	if filter.Limit, err = parseIntParam(q, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseIntParam(q, "offset"); err != nil {
		return filter, err
	}
	return filter.WithDefaults(), nil
}

func parseTimeParam(q url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, dErrors.NewField(dErrors.CodeValidation, name, name+" must be RFC 3339 or YYYY-MM-DD")
}

func parseIntParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.NewField(dErrors.CodeValidation, name, name+" must be a non-negative integer")
	}
	return n, nil
}
