package models

import (
	"sort"
	"strings"
	"time"

	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
)

// Payload keys that carry display names.
const (
	payloadName      = "name"
	payloadLegalName = "legal_name"
)

// Case is the KYC aggregate root: one per user, the unit of persistence and
// optimistic concurrency.
//
// Invariants:
//   - Entering SUBMITTED requires Completion.AllComplete() at that moment
//   - Entering VERIFIED requires every present document effectively VERIFIED
//   - State changes only along the transition table
//   - Never deleted
type Case struct {
	ID                  id.CaseID                        `json:"id"`
	UserID              id.UserID                        `json:"user_id"`
	CompanyID           id.CompanyID                     `json:"company_id"`
	State               CaseState                        `json:"state"`
	Documents           map[DocumentType]*DocumentRecord `json:"documents"`
	Completion          CompletionStatus                 `json:"completion"`
	RejectionReason     string                           `json:"rejection_reason,omitempty"`
	SubmittedAt         *time.Time                       `json:"submitted_at,omitempty"`
	VerificationNotes   string                           `json:"verification_notes,omitempty"`
	ApplicantName       string                           `json:"applicant_name,omitempty"`
	CompanyName         string                           `json:"company_name,omitempty"`
	GSTINRequired       bool                             `json:"gstin_required"`
	AgreementAcceptedAt *time.Time                       `json:"agreement_accepted_at,omitempty"`
	AgreementVersion    string                           `json:"agreement_version,omitempty"`
	ReviewedBy          string                           `json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time                       `json:"reviewed_at,omitempty"`
	Version             int64                            `json:"version"`
	CreatedAt           time.Time                        `json:"created_at"`
	UpdatedAt           time.Time                        `json:"updated_at"`
}

// NewCase creates an empty DRAFT case. Version is assigned by the store.
func NewCase(userID id.UserID, companyID id.CompanyID, gstinRequired bool, now time.Time) *Case {
	c := &Case{
		ID:            id.NewCaseID(),
		UserID:        userID,
		CompanyID:     companyID,
		State:         CaseDraft,
		Documents:     make(map[DocumentType]*DocumentRecord),
		GSTINRequired: gstinRequired,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	RefreshCompletionStatus(c, gstinRequired, now)
	return c
}

// Document returns the record for t, or nil when the user never submitted it.
func (c *Case) Document(t DocumentType) *DocumentRecord {
	return c.Documents[t]
}

func (c *Case) ensureDocument(t DocumentType) *DocumentRecord {
	if c.Documents == nil {
		c.Documents = make(map[DocumentType]*DocumentRecord)
	}
	doc, ok := c.Documents[t]
	if !ok {
		doc = NewDocumentRecord(t)
		c.Documents[t] = doc
	}
	return doc
}

// EffectiveState is the case state accounting for lazy document expiry:
// a VERIFIED case with an expired proof reads as EXPIRED, a SUBMITTED one as
// ACTION_REQUIRED. Nothing is mutated.
func (c *Case) EffectiveState(now time.Time) CaseState {
	if !c.hasExpiredDocument(now) {
		return c.State
	}
	switch c.State {
	case CaseVerified:
		return CaseExpired
	case CaseSubmitted:
		return CaseActionRequired
	}
	return c.State
}

func (c *Case) hasExpiredDocument(now time.Time) bool {
	for _, doc := range c.Documents {
		if doc.Status.State == StateVerified && ResolveVerificationState(doc, now) == StateExpired {
			return true
		}
	}
	return false
}

// View returns a copy with effective document and case states applied, for
// reads that must not persist anything.
func (c *Case) View(now time.Time) *Case {
	v := c.Clone()
	v.State = c.EffectiveState(now)
	for _, doc := range v.Documents {
		if eff := ResolveVerificationState(doc, now); eff != doc.Status.State {
			doc.Status.State = eff
			doc.Verified = eff == StateVerified
		}
	}
	v.Completion = ComputeCompletion(c, c.GSTINRequired, now)
	return v
}

// NextExpiry returns the earliest expiry among VERIFIED documents.
func (c *Case) NextExpiry() *time.Time {
	var next *time.Time
	for _, doc := range c.Documents {
		if doc.Status.State != StateVerified || doc.Status.ExpiresAt == nil {
			continue
		}
		if next == nil || doc.Status.ExpiresAt.Before(*next) {
			next = doc.Status.ExpiresAt
		}
	}
	return copyTime(next)
}

// Transition records a case state change.
type Transition struct {
	From CaseState
	To   CaseState
}

// Changed reports whether the state moved.
func (t Transition) Changed() bool { return t.From != t.To }

func (c *Case) transition(target CaseState, now time.Time) (Transition, error) {
	if err := ValidateTransition(c.State, target); err != nil {
		return Transition{From: c.State, To: c.State}, err
	}
	t := Transition{From: c.State, To: target}
	c.State = target
	c.UpdatedAt = now
	return t, nil
}

// degrade moves a progressed case to ACTION_REQUIRED.
func (c *Case) degrade(now time.Time) Transition {
	if !c.State.IsProgressed() {
		return Transition{From: c.State, To: c.State}
	}
	t, _ := c.transition(CaseActionRequired, now)
	return t
}

// MaterializeExpiry persists lazily computed document expiry, appending an
// audited history entry per document, and cascades the case state
// (VERIFIED to EXPIRED, SUBMITTED to ACTION_REQUIRED).
func (c *Case) MaterializeExpiry(now time.Time) ([]DocumentType, Transition) {
	var expired []DocumentType
	for _, t := range DocumentTypes {
		if doc := c.Documents[t]; doc != nil && doc.MaterializeExpiry(now) {
			expired = append(expired, t)
		}
	}
	if len(expired) == 0 {
		return nil, Transition{From: c.State, To: c.State}
	}
	RefreshCompletionStatus(c, c.GSTINRequired, now)
	c.UpdatedAt = now

	switch c.State {
	case CaseVerified:
		t, _ := c.transition(CaseExpired, now)
		return expired, t
	case CaseSubmitted:
		t, _ := c.transition(CaseActionRequired, now)
		return expired, t
	}
	return expired, Transition{From: c.State, To: c.State}
}

// DocumentChange describes the effect of a document mutation on the case.
type DocumentChange struct {
	// StateChanged is false for a same-input re-verification of a valid proof.
	StateChanged bool
	// Regressed is true when a previously effective proof stopped counting,
	// either by failing or by being replaced with different data.
	Regressed  bool
	Transition Transition
}

// ApplyVerification applies a determinate provider outcome to docType,
// refreshes completion and degrades a progressed case when a relied-upon
// proof regressed.
func (c *Case) ApplyVerification(docType DocumentType, v Verification) DocumentChange {
	now := v.CheckedAt
	doc := c.ensureDocument(docType)
	wasVerified := doc.IsVerified(now)
	prevHash := doc.Status.InputHash

	changed := doc.ApplyVerification(v)
	if changed && v.Valid {
		c.captureNames(docType, v.Payload)
	}
	c.UpdatedAt = now
	RefreshCompletionStatus(c, c.GSTINRequired, now)

	change := DocumentChange{StateChanged: changed, Transition: Transition{From: c.State, To: c.State}}
	change.Regressed = wasVerified && (!doc.IsVerified(now) || doc.Status.InputHash != prevHash)
	if change.Regressed {
		change.Transition = c.degrade(now)
	}
	return change
}

func (c *Case) captureNames(docType DocumentType, payload map[string]any) {
	switch docType {
	case DocumentPAN:
		if name, ok := payload[payloadName].(string); ok && name != "" {
			c.ApplicantName = name
		}
	case DocumentGSTIN:
		if name, ok := payload[payloadLegalName].(string); ok && name != "" {
			c.CompanyName = name
		}
	}
}

// Invalidate revokes docType for re-verification. The case is forced into
// ACTION_REQUIRED when it had progressed.
func (c *Case) Invalidate(docType DocumentType, reason, actorID string, now time.Time) (DocumentChange, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return DocumentChange{}, dErrors.NewField(dErrors.CodeValidation, "reason", "reason is required")
	}
	doc := c.Documents[docType]
	if doc == nil {
		return DocumentChange{}, dErrors.NewField(dErrors.CodeNotFound, "document_type", "document has not been submitted")
	}
	wasVerified := doc.IsVerified(now)
	doc.Revoke(now, reason, actorID)
	c.UpdatedAt = now
	RefreshCompletionStatus(c, c.GSTINRequired, now)

	return DocumentChange{
		StateChanged: true,
		Regressed:    wasVerified,
		Transition:   c.degrade(now),
	}, nil
}

// AcceptAgreement records the seller agreement. Re-acceptance updates the version.
func (c *Case) AcceptAgreement(version string, now time.Time) {
	at := now
	c.AgreementAcceptedAt = &at
	c.AgreementVersion = version
	c.Completion.AgreementComplete = true
	c.UpdatedAt = now
}

// CanSubmit checks the submission gate: the transition is allowed, all four
// completion flags hold at now, and every declared value hash-matches its
// verified record. Documents absent from declared keep their stored values.
func (c *Case) CanSubmit(declared map[DocumentType]map[string]string, now time.Time) error {
	if err := ValidateTransition(c.State, CaseSubmitted); err != nil {
		return err
	}
	completion := ComputeCompletion(c, c.GSTINRequired, now)
	if !completion.AllComplete() {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"kyc case is incomplete: "+strings.Join(completion.Missing(), ", "))
	}

	types := make([]DocumentType, 0, len(declared))
	for t := range declared {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		if err := c.ensureVerifiedMatch(t, declared[t], now); err != nil {
			return err
		}
	}
	return nil
}

// ensureVerifiedMatch rejects declared values that differ from what was
// proven, so a number cannot be swapped after verification.
func (c *Case) ensureVerifiedMatch(t DocumentType, declared map[string]string, now time.Time) error {
	doc := c.Documents[t]
	if !doc.IsVerified(now) {
		return dErrors.NewField(dErrors.CodeConflict, string(t), string(t)+" must be verified before submission")
	}
	normalized, err := NormalizeFields(t, declared)
	if err != nil {
		return err
	}
	if CreateInputHash(t, normalized) != doc.Status.InputHash {
		return dErrors.NewField(dErrors.CodeConflict, string(t), string(t)+" does not match the verified record, verify it again")
	}
	return nil
}

// ApplySubmit moves the case to SUBMITTED. Must only be called after
// CanSubmit returns nil.
func (c *Case) ApplySubmit(now time.Time) Transition {
	RefreshCompletionStatus(c, c.GSTINRequired, now)
	t, _ := c.transition(CaseSubmitted, now)
	at := now
	c.SubmittedAt = &at
	c.RejectionReason = ""
	return t
}

// Submit validates and applies submission in one call.
func (c *Case) Submit(declared map[DocumentType]map[string]string, now time.Time) (Transition, error) {
	if err := c.CanSubmit(declared, now); err != nil {
		return Transition{From: c.State, To: c.State}, err
	}
	return c.ApplySubmit(now), nil
}

// CanApprove requires a SUBMITTED case whose present documents are all
// effectively VERIFIED.
func (c *Case) CanApprove(now time.Time) error {
	if err := ValidateTransition(c.State, CaseVerified); err != nil {
		return err
	}
	if len(c.Documents) == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "kyc case has no documents")
	}
	for _, t := range DocumentTypes {
		if doc := c.Documents[t]; doc != nil && !doc.IsVerified(now) {
			return dErrors.NewField(dErrors.CodeInvariantViolation, string(t), string(t)+" is not verified")
		}
	}
	return nil
}

// ApplyApproval moves the case to VERIFIED. Must only be called after
// CanApprove returns nil.
func (c *Case) ApplyApproval(reviewer, notes string, now time.Time) Transition {
	t, _ := c.transition(CaseVerified, now)
	c.stampReview(reviewer, now)
	c.VerificationNotes = notes
	return t
}

func (c *Case) Approve(reviewer, notes string, now time.Time) (Transition, error) {
	if err := c.CanApprove(now); err != nil {
		return Transition{From: c.State, To: c.State}, err
	}
	return c.ApplyApproval(reviewer, notes, now), nil
}

// CanReject requires a reason and an allowed edge.
func (c *Case) CanReject(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.NewField(dErrors.CodeValidation, "reason", "rejection reason is required")
	}
	return ValidateTransition(c.State, CaseRejected)
}

// ApplyRejection moves the case to REJECTED. Must only be called after
// CanReject returns nil.
func (c *Case) ApplyRejection(reviewer, reason string, now time.Time) Transition {
	t, _ := c.transition(CaseRejected, now)
	c.RejectionReason = strings.TrimSpace(reason)
	c.stampReview(reviewer, now)
	return t
}

func (c *Case) Reject(reviewer, reason string, now time.Time) (Transition, error) {
	if err := c.CanReject(reason); err != nil {
		return Transition{From: c.State, To: c.State}, err
	}
	return c.ApplyRejection(reviewer, reason, now), nil
}

func (c *Case) stampReview(reviewer string, now time.Time) {
	at := now
	c.ReviewedBy = reviewer
	c.ReviewedAt = &at
}

// Clone deep-copies the case.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	out := *c
	out.Documents = make(map[DocumentType]*DocumentRecord, len(c.Documents))
	for t, doc := range c.Documents {
		out.Documents[t] = doc.Clone()
	}
	out.SubmittedAt = copyTime(c.SubmittedAt)
	out.AgreementAcceptedAt = copyTime(c.AgreementAcceptedAt)
	out.ReviewedAt = copyTime(c.ReviewedAt)
	return &out
}
