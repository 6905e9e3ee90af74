package providers

import (
	"context"
	"strings"
	"time"

	"onboard/internal/kyc/models"
	"onboard/pkg/requestcontext"
)

// MockProviderID identifies the built-in deterministic registry.
const MockProviderID = "mock-registry"

var mockBanks = map[string]string{
	"HDFC": "HDFC Bank",
	"ICIC": "ICICI Bank",
	"SBIN": "State Bank of India",
	"UTIB": "Axis Bank",
	"KKBK": "Kotak Mahindra Bank",
}

// MockProvider is a deterministic registry for local runs and tests. Outcomes
// are keyed on the input so the same fields always give the same answer:
//
//	PAN starting XX             hard failure (not registered)
//	name containing MISMATCH    soft failure (name mismatch)
//	Aadhaar ending 0000         soft failure
//	GSTIN starting 99           hard failure (cancelled)
//	account starting 000        soft failure (account does not exist)
//	account ending 9999         provider timeout
type MockProvider struct {
	Latency time.Duration
}

func NewMockProvider(latency time.Duration) *MockProvider {
	return &MockProvider{Latency: latency}
}

func (m *MockProvider) ID() string { return MockProviderID }

func (m *MockProvider) Verify(ctx context.Context, docType models.DocumentType, fields map[string]string) (*Result, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	res := &Result{IsValid: true, CheckedAt: requestcontext.Now(ctx), ProviderID: MockProviderID}
	name := strings.ToUpper(fields[models.FieldName])

	switch docType {
	case models.DocumentPAN:
		pan := fields[models.FieldPAN]
		switch {
		case strings.HasPrefix(pan, "XX"):
			reject(res, models.FailureHard, "pan is not registered")
		case strings.Contains(name, "MISMATCH"):
			reject(res, models.FailureSoft, "name does not match pan records")
		default:
			if name == "" {
				name = "TEST APPLICANT"
			}
			res.Payload = map[string]any{"name": name, "pan_status": "VALID"}
		}
	case models.DocumentAadhaar:
		if strings.HasSuffix(fields[models.FieldAadhaarNumber], "0000") {
			reject(res, models.FailureSoft, "aadhaar could not be verified")
		} else {
			res.Payload = map[string]any{"age_band": "20-30"}
		}
	case models.DocumentGSTIN:
		gstin := fields[models.FieldGSTIN]
		if strings.HasPrefix(gstin, "99") || len(gstin) < 7 {
			reject(res, models.FailureHard, "gstin is cancelled")
		} else {
			res.Payload = map[string]any{"legal_name": "TRADERS " + gstin[2:7], "gstin_status": "Active"}
		}
	case models.DocumentBankAccount:
		account := fields[models.FieldAccountNumber]
		switch {
		case strings.HasSuffix(account, "9999"):
			return nil, NewProviderError(ErrorTimeout, MockProviderID, "simulated timeout", nil)
		case strings.HasPrefix(account, "000"):
			reject(res, models.FailureSoft, "bank account does not exist")
			res.Payload = map[string]any{"accountExists": false}
		default:
			res.Payload = map[string]any{"accountExists": true, "bankName": bankName(fields[models.FieldIFSC])}
		}
	default:
		return nil, NewProviderError(ErrorInternal, MockProviderID, "unsupported document type", nil)
	}
	return res, nil
}

func (m *MockProvider) LookupIFSC(ctx context.Context, ifsc string) (*IFSCDetails, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	bank := bankName(ifsc)
	if bank == "" {
		return nil, NewProviderError(ErrorNotFound, MockProviderID, "ifsc not found", nil)
	}
	details := &IFSCDetails{IFSC: ifsc, Bank: bank, Branch: "MAIN BRANCH"}
	if len(ifsc) > 5 {
		details.Branch += " " + ifsc[5:]
	}
	return details, nil
}

func (m *MockProvider) Health(context.Context) error { return nil }

func (m *MockProvider) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Latency):
		return nil
	case <-ctx.Done():
		return classifyTransport(MockProviderID, ctx.Err())
	}
}

func reject(res *Result, class models.FailureClass, reason string) {
	res.IsValid = false
	res.FailureClass = class
	res.Reason = reason
}

func bankName(ifsc string) string {
	if len(ifsc) < 4 {
		return ""
	}
	return mockBanks[ifsc[:4]]
}
