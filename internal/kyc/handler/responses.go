package handler

import (
	"strings"
	"time"

	"onboard/internal/kyc/models"
	"onboard/internal/kyc/service"
	dErrors "onboard/pkg/domain-errors"
)

// maskedFields never leave the service in full.
var maskedFields = map[string]bool{
	models.FieldAadhaarNumber: true,
	models.FieldAccountNumber: true,
}

type HistoryResponse struct {
	State     models.VerificationState `json:"state"`
	Provider  string                   `json:"provider,omitempty"`
	Reason    string                   `json:"reason,omitempty"`
	ActorID   string                   `json:"actor_id,omitempty"`
	AttemptID string                   `json:"attempt_id"`
	CreatedAt time.Time                `json:"created_at"`
}

type DocumentResponse struct {
	Type          models.DocumentType      `json:"type"`
	State         models.VerificationState `json:"state"`
	Verified      bool                     `json:"verified"`
	Fields        map[string]string        `json:"fields,omitempty"`
	Provider      string                   `json:"provider,omitempty"`
	VerifiedAt    *time.Time               `json:"verified_at,omitempty"`
	ExpiresAt     *time.Time               `json:"expires_at,omitempty"`
	LastCheckedAt *time.Time               `json:"last_checked_at,omitempty"`
	FailureReason string                   `json:"failure_reason,omitempty"`
	History       []HistoryResponse        `json:"history"`
}

type CaseResponse struct {
	ID                  string                                   `json:"id"`
	UserID              string                                   `json:"user_id"`
	CompanyID           string                                   `json:"company_id,omitempty"`
	State               models.CaseState                         `json:"state"`
	Completion          models.CompletionStatus                  `json:"completion"`
	Missing             []string                                 `json:"missing,omitempty"`
	Documents           map[models.DocumentType]DocumentResponse `json:"documents"`
	ApplicantName       string                                   `json:"applicant_name,omitempty"`
	CompanyName         string                                   `json:"company_name,omitempty"`
	RejectionReason     string                                   `json:"rejection_reason,omitempty"`
	VerificationNotes   string                                   `json:"verification_notes,omitempty"`
	AgreementVersion    string                                   `json:"agreement_version,omitempty"`
	AgreementAcceptedAt *time.Time                               `json:"agreement_accepted_at,omitempty"`
	SubmittedAt         *time.Time                               `json:"submitted_at,omitempty"`
	ReviewedBy          string                                   `json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time                               `json:"reviewed_at,omitempty"`
	Version             int64                                    `json:"version"`
	CreatedAt           time.Time                                `json:"created_at"`
	UpdatedAt           time.Time                                `json:"updated_at"`
}

// VerifyResponse answers a verification. Error is set to
// verification_rejected when the provider gave a determinate failure.
type VerifyResponse struct {
	Error            string           `json:"error,omitempty"`
	ErrorDescription string           `json:"error_description,omitempty"`
	AttemptID        string           `json:"attempt_id"`
	Changed          bool             `json:"changed"`
	Document         DocumentResponse `json:"document"`
	Case             CaseResponse     `json:"case"`
}

type CaseSummary struct {
	ID            string                  `json:"id"`
	UserID        string                  `json:"user_id"`
	State         models.CaseState        `json:"state"`
	ApplicantName string                  `json:"applicant_name,omitempty"`
	CompanyName   string                  `json:"company_name,omitempty"`
	Completion    models.CompletionStatus `json:"completion"`
	SubmittedAt   *time.Time              `json:"submitted_at,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

type PageResponse struct {
	Cases  []CaseSummary `json:"cases"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type CountsResponse struct {
	Counts map[models.CaseState]int `json:"counts"`
}

func FromVerifyResult(res *service.VerifyResult) VerifyResponse {
	out := VerifyResponse{
		AttemptID: res.AttemptID.String(),
		Changed:   res.Changed,
		Document:  FromDocument(res.Document),
		Case:      FromCase(res.Case),
	}
	if !res.Verified() {
		out.Error = string(dErrors.CodeVerificationRejected)
		out.ErrorDescription = res.Document.Status.FailureReason
	}
	return out
}

func FromCase(c *models.Case) CaseResponse {
	out := CaseResponse{
		ID:                  c.ID.String(),
		UserID:              c.UserID.String(),
		State:               c.State,
		Completion:          c.Completion,
		Missing:             c.Completion.Missing(),
		Documents:           make(map[models.DocumentType]DocumentResponse, len(c.Documents)),
		ApplicantName:       c.ApplicantName,
		CompanyName:         c.CompanyName,
		RejectionReason:     c.RejectionReason,
		VerificationNotes:   c.VerificationNotes,
		AgreementVersion:    c.AgreementVersion,
		AgreementAcceptedAt: c.AgreementAcceptedAt,
		SubmittedAt:         c.SubmittedAt,
		ReviewedBy:          c.ReviewedBy,
		ReviewedAt:          c.ReviewedAt,
		Version:             c.Version,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
	if !c.CompanyID.IsNil() {
		out.CompanyID = c.CompanyID.String()
	}
	for t, doc := range c.Documents {
		out.Documents[t] = FromDocument(doc)
	}
	return out
}

func FromDocument(doc *models.DocumentRecord) DocumentResponse {
	if doc == nil {
		return DocumentResponse{State: models.StateNotStarted, History: []HistoryResponse{}}
	}
	out := DocumentResponse{
		Type:          doc.Type,
		State:         doc.Status.State,
		Verified:      doc.Verified,
		Provider:      doc.Status.Provider,
		VerifiedAt:    doc.Status.VerifiedAt,
		ExpiresAt:     doc.Status.ExpiresAt,
		FailureReason: doc.Status.FailureReason,
		History:       make([]HistoryResponse, 0, len(doc.History)),
	}
	if !doc.Status.LastCheckedAt.IsZero() {
		checked := doc.Status.LastCheckedAt
		out.LastCheckedAt = &checked
	}
	if len(doc.Fields) > 0 {
		out.Fields = make(map[string]string, len(doc.Fields))
		for k, v := range doc.Fields {
			if maskedFields[k] {
				v = mask(v)
			}
			out.Fields[k] = v
		}
	}
	for _, h := range doc.History {
		out.History = append(out.History, HistoryResponse{
			State:     h.State,
			Provider:  h.Provider,
			Reason:    h.Reason,
			ActorID:   h.ActorID,
			AttemptID: h.AttemptID.String(),
			CreatedAt: h.CreatedAt,
		})
	}
	return out
}

func FromPage(page *models.CasePage, filter models.CaseFilter) PageResponse {
	out := PageResponse{
		Cases:  make([]CaseSummary, 0, len(page.Cases)),
		Total:  page.Total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for _, c := range page.Cases {
		out.Cases = append(out.Cases, CaseSummary{
			ID:            c.ID.String(),
			UserID:        c.UserID.String(),
			State:         c.State,
			ApplicantName: c.ApplicantName,
			CompanyName:   c.CompanyName,
			Completion:    c.Completion,
			SubmittedAt:   c.SubmittedAt,
			CreatedAt:     c.CreatedAt,
			UpdatedAt:     c.UpdatedAt,
		})
	}
	return out
}

// mask keeps the last four characters.
func mask(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}
