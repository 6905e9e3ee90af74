package models

import (
	"testing"

	dErrors "onboard/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFields_Valid(t *testing.T) {
	tests := []struct {
		name string
		doc  DocumentType
		raw  map[string]string
		want map[string]string
	}{
		{"pan lowercase with spaces", DocumentPAN,
			map[string]string{FieldPAN: " abcde 1234f ", FieldName: "  Asha   Rao "},
			map[string]string{FieldPAN: "ABCDE1234F", FieldName: "Asha Rao"}},
		{"aadhaar with separators", DocumentAadhaar,
			map[string]string{FieldAadhaarNumber: "2345-6789 0123"},
			map[string]string{FieldAadhaarNumber: "234567890123"}},
		{"gstin", DocumentGSTIN,
			map[string]string{FieldGSTIN: "27abcde1234f1z5"},
			map[string]string{FieldGSTIN: "27ABCDE1234F1Z5"}},
		{"bank", DocumentBankAccount,
			map[string]string{FieldAccountNumber: "1234 5678 9012", FieldIFSC: "hdfc0abcdef"},
			map[string]string{FieldAccountNumber: "123456789012", FieldIFSC: "HDFC0ABCDEF"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeFields(tt.doc, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeFields_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		doc   DocumentType
		raw   map[string]string
		field string
	}{
		{"pan wrong shape", DocumentPAN, map[string]string{FieldPAN: "ABCD12345F"}, FieldPAN},
		{"pan missing", DocumentPAN, map[string]string{}, FieldPAN},
		{"aadhaar leading 1", DocumentAadhaar, map[string]string{FieldAadhaarNumber: "123456789012"}, FieldAadhaarNumber},
		{"aadhaar 11 digits", DocumentAadhaar, map[string]string{FieldAadhaarNumber: "23456789012"}, FieldAadhaarNumber},
		{"aadhaar letters", DocumentAadhaar, map[string]string{FieldAadhaarNumber: "23456789012A"}, FieldAadhaarNumber},
		{"gstin bad checksum slot", DocumentGSTIN, map[string]string{FieldGSTIN: "27ABCDE1234F1X5"}, FieldGSTIN},
		{"ifsc fifth char", DocumentBankAccount, map[string]string{FieldAccountNumber: "123456789012", FieldIFSC: "HDFC1ABCDEF"}, FieldIFSC},
		{"account too short", DocumentBankAccount, map[string]string{FieldAccountNumber: "12345678", FieldIFSC: "HDFC0ABCDEF"}, FieldAccountNumber},
		{"account too long", DocumentBankAccount, map[string]string{FieldAccountNumber: "1234567890123456789", FieldIFSC: "HDFC0ABCDEF"}, FieldAccountNumber},
		{"unknown field", DocumentPAN, map[string]string{FieldPAN: "ABCDE1234F", "dob": "1990-01-01"}, "dob"},
		{"unknown type", DocumentType("passport"), map[string]string{}, "document_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeFields(tt.doc, tt.raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tt.field, dErrors.FieldOf(err))
		})
	}
}

func TestNormalizeIFSC(t *testing.T) {
	got, err := NormalizeIFSC(" hdfc0abcdef")
	require.NoError(t, err)
	assert.Equal(t, "HDFC0ABCDEF", got)

	_, err = NormalizeIFSC("HDFC")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
