package models

import (
	"time"

	id "onboard/pkg/domain"

	"github.com/google/uuid"
)

var baseTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func validFields(t DocumentType) map[string]string {
	switch t {
	case DocumentPAN:
		return map[string]string{FieldPAN: "ABCDE1234F", FieldName: "Asha Rao"}
	case DocumentAadhaar:
		return map[string]string{FieldAadhaarNumber: "234567890123"}
	case DocumentGSTIN:
		return map[string]string{FieldGSTIN: "27ABCDE1234F1Z5"}
	default:
		return map[string]string{FieldAccountNumber: "123456789012", FieldIFSC: "HDFC0ABCDEF"}
	}
}

func success(t DocumentType, fields map[string]string, at time.Time, policy ExpiryPolicy) Verification {
	return Verification{
		Valid:     true,
		Provider:  "mock",
		AttemptID: id.NewAttemptID(),
		InputHash: CreateInputHash(t, fields),
		Fields:    fields,
		CheckedAt: at,
		ExpiresAt: policy.BuildExpiryDate(t, at),
	}
}

func failure(t DocumentType, fields map[string]string, class FailureClass, reason string, at time.Time) Verification {
	return Verification{
		Valid:        false,
		FailureClass: class,
		Reason:       reason,
		Provider:     "mock",
		AttemptID:    id.NewAttemptID(),
		InputHash:    CreateInputHash(t, fields),
		Fields:       fields,
		CheckedAt:    at,
	}
}

// completeCase returns a case with every section satisfied at baseTime.
func completeCase(gstinRequired bool) *Case {
	c := NewCase(id.UserID(uuid.New()), id.CompanyID(uuid.New()), gstinRequired, baseTime)
	policy := DefaultExpiryPolicy()
	for _, t := range []DocumentType{DocumentPAN, DocumentGSTIN, DocumentBankAccount} {
		c.ApplyVerification(t, success(t, validFields(t), baseTime, policy))
	}
	c.AcceptAgreement("2024-01", baseTime)
	return c
}
