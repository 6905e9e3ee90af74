package models

import (
	dErrors "onboard/pkg/domain-errors"
)

// CaseState is the case-level KYC state.
type CaseState string

const (
	CaseDraft          CaseState = "DRAFT"
	CaseActionRequired CaseState = "ACTION_REQUIRED"
	CaseSubmitted      CaseState = "SUBMITTED"
	CaseVerified       CaseState = "VERIFIED"
	CaseRejected       CaseState = "REJECTED"
	CaseExpired        CaseState = "EXPIRED"
)

// CaseStates lists every case state.
var CaseStates = []CaseState{CaseDraft, CaseActionRequired, CaseSubmitted, CaseVerified, CaseRejected, CaseExpired}

var allowedTransitions = map[CaseState]map[CaseState]bool{
	CaseDraft:          {CaseSubmitted: true, CaseActionRequired: true},
	CaseActionRequired: {CaseSubmitted: true},
	CaseSubmitted:      {CaseVerified: true, CaseRejected: true, CaseActionRequired: true},
	CaseVerified:       {CaseRejected: true, CaseExpired: true, CaseActionRequired: true},
	CaseRejected:       {CaseSubmitted: true, CaseActionRequired: true},
	CaseExpired:        {CaseSubmitted: true, CaseActionRequired: true},
}

func (s CaseState) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsProgressed reports whether the case relies on its current proofs, so a
// regressing document must send it back to ACTION_REQUIRED.
func (s CaseState) IsProgressed() bool {
	return s == CaseSubmitted || s == CaseVerified || s == CaseExpired
}

// CanTransitionTo reports whether target is an allowed edge from s.
func (s CaseState) CanTransitionTo(target CaseState) bool {
	return allowedTransitions[s][target]
}

// ParseCaseState validates a case state at a trust boundary.
func ParseCaseState(s string) (CaseState, error) {
	st := CaseState(s)
	if !st.IsValid() {
		return "", dErrors.NewField(dErrors.CodeValidation, "state", "unknown case state")
	}
	return st, nil
}

// ValidateTransition fails with CodeInvalidTransition for edges outside the
// transition table. Callers validate before mutating.
func ValidateTransition(current, target CaseState) error {
	if !current.CanTransitionTo(target) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"cannot move kyc case from "+string(current)+" to "+string(target))
	}
	return nil
}
