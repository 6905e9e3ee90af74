package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// provenFields are the inputs the provider actually vouches for. Names and
// other descriptive fields are excluded so cosmetic edits do not invalidate a
// proof.
var provenFields = map[DocumentType][]string{
	DocumentPAN:         {FieldPAN},
	DocumentAadhaar:     {FieldAadhaarNumber},
	DocumentGSTIN:       {FieldGSTIN},
	DocumentBankAccount: {FieldAccountNumber, FieldIFSC},
}

// ProvenFields returns the proven field names for docType.
func ProvenFields(docType DocumentType) []string {
	return append([]string(nil), provenFields[docType]...)
}

// CreateInputHash fingerprints the proven fields of docType as SHA-256 over
// sorted key=value pairs. Callers normalize fields first.
func CreateInputHash(docType DocumentType, fields map[string]string) string {
	keys := ProvenFields(docType)
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}
	sum := sha256.Sum256([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(sum[:])
}
