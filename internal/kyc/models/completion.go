package models

import "time"

// CompletionStatus summarizes whether each onboarding section is satisfied.
type CompletionStatus struct {
	PersonalComplete    bool `json:"personal_complete"`
	CompanyInfoComplete bool `json:"company_info_complete"`
	BankDetailsComplete bool `json:"bank_details_complete"`
	AgreementComplete   bool `json:"agreement_complete"`
}

// AllComplete reports whether the case may be submitted.
func (c CompletionStatus) AllComplete() bool {
	return c.PersonalComplete && c.CompanyInfoComplete && c.BankDetailsComplete && c.AgreementComplete
}

// Missing names the incomplete sections.
func (c CompletionStatus) Missing() []string {
	var missing []string
	if !c.PersonalComplete {
		missing = append(missing, "personal")
	}
	if !c.CompanyInfoComplete {
		missing = append(missing, "company")
	}
	if !c.BankDetailsComplete {
		missing = append(missing, "bank")
	}
	if !c.AgreementComplete {
		missing = append(missing, "agreement")
	}
	return missing
}

// ComputeCompletion derives the document-backed flags from effective states
// at now. AgreementComplete is carried over untouched.
func ComputeCompletion(c *Case, gstinRequired bool, now time.Time) CompletionStatus {
	verified := func(t DocumentType) bool {
		return c.Documents[t].IsVerified(now)
	}
	_, aadhaarPresent := c.Documents[DocumentAadhaar]

	return CompletionStatus{
		PersonalComplete:    verified(DocumentPAN) && (!aadhaarPresent || verified(DocumentAadhaar)),
		CompanyInfoComplete: !gstinRequired || verified(DocumentGSTIN),
		BankDetailsComplete: verified(DocumentBankAccount),
		AgreementComplete:   c.Completion.AgreementComplete,
	}
}

// RefreshCompletionStatus recomputes and stores the case's completion flags.
// It must run after every document mutation and before any case transition.
func RefreshCompletionStatus(c *Case, gstinRequired bool, now time.Time) CompletionStatus {
	c.Completion = ComputeCompletion(c, gstinRequired, now)
	return c.Completion
}
