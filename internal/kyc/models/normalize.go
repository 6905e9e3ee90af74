package models

import (
	"regexp"
	"strings"

	dErrors "onboard/pkg/domain-errors"
)

// Canonical field names.
const (
	FieldPAN               = "pan"
	FieldAadhaarNumber     = "aadhaar_number"
	FieldGSTIN             = "gstin"
	FieldAccountNumber     = "account_number"
	FieldIFSC              = "ifsc"
	FieldName              = "name"
	FieldAccountHolderName = "account_holder_name"
)

var (
	panPattern           = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	aadhaarPattern       = regexp.MustCompile(`^[2-9][0-9]{11}$`)
	gstinPattern         = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	ifscPattern          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	accountNumberPattern = regexp.MustCompile(`^[0-9]{9,18}$`)
)

type fieldRule struct {
	required  bool
	normalize func(string) string
	pattern   *regexp.Regexp
	message   string
}

var documentRules = map[DocumentType]map[string]fieldRule{
	DocumentPAN: {
		FieldPAN:  {required: true, normalize: upperCompact, pattern: panPattern, message: "pan must look like ABCDE1234F"},
		FieldName: {normalize: collapseSpaces},
	},
	DocumentAadhaar: {
		FieldAadhaarNumber: {required: true, normalize: digitsOnly, pattern: aadhaarPattern, message: "aadhaar_number must be 12 digits and not start with 0 or 1"},
		FieldName:          {normalize: collapseSpaces},
	},
	DocumentGSTIN: {
		FieldGSTIN: {required: true, normalize: upperCompact, pattern: gstinPattern, message: "gstin is not a valid GSTIN"},
	},
	DocumentBankAccount: {
		FieldAccountNumber:     {required: true, normalize: digitsOnly, pattern: accountNumberPattern, message: "account_number must be 9 to 18 digits"},
		FieldIFSC:              {required: true, normalize: upperCompact, pattern: ifscPattern, message: "ifsc must look like HDFC0ABCDEF"},
		FieldAccountHolderName: {normalize: collapseSpaces},
	},
}

// NormalizeFields canonicalizes raw input for docType and validates it.
// Unknown fields are rejected so nothing unvetted is stored or hashed.
func NormalizeFields(docType DocumentType, raw map[string]string) (map[string]string, error) {
	rules, ok := documentRules[docType]
	if !ok {
		return nil, dErrors.NewField(dErrors.CodeValidation, "document_type", "unsupported document type")
	}
	for k := range raw {
		if _, known := rules[k]; !known {
			return nil, dErrors.NewField(dErrors.CodeValidation, k, "unexpected field for "+string(docType))
		}
	}

	out := make(map[string]string, len(rules))
	for name, rule := range rules {
		v := rule.normalize(raw[name])
		if v == "" {
			if rule.required {
				return nil, dErrors.NewField(dErrors.CodeValidation, name, name+" is required")
			}
			continue
		}
		if rule.pattern != nil && !rule.pattern.MatchString(v) {
			return nil, dErrors.NewField(dErrors.CodeValidation, name, rule.message)
		}
		out[name] = v
	}
	return out, nil
}

// NormalizeIFSC canonicalizes and validates a bare IFSC code.
func NormalizeIFSC(raw string) (string, error) {
	v := upperCompact(raw)
	if !ifscPattern.MatchString(v) {
		return "", dErrors.NewField(dErrors.CodeValidation, FieldIFSC, "ifsc must look like HDFC0ABCDEF")
	}
	return v, nil
}

func upperCompact(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-':
			return -1
		default:
			// Keep it so the pattern check rejects the value.
			return r
		}
	}, strings.TrimSpace(s))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
