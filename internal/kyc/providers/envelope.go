package providers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"onboard/internal/kyc/models"
)

// Envelope statuses.
const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// Error codes a provider may attach to a failed envelope. invalid_input
// marks a hard failure; anything else is a soft business rejection.
const codeInvalidInput = "invalid_input"

// envelope is the outer shape every registry call returns:
// {status, data?, message?, code?}.
type envelope struct {
	Status  string         `json:"status"`
	Data    map[string]any `json:"data"`
	Message string         `json:"message"`
	Code    string         `json:"code"`
}

type panData struct {
	Valid     *bool  `mapstructure:"valid"`
	PANStatus string `mapstructure:"pan_status"`
	Name      string `mapstructure:"name"`
	NameMatch *bool  `mapstructure:"name_match"`
}

type aadhaarData struct {
	Valid     *bool  `mapstructure:"valid"`
	Exists    *bool  `mapstructure:"exists"`
	NameMatch *bool  `mapstructure:"name_match"`
	AgeBand   string `mapstructure:"age_band"`
	State     string `mapstructure:"state"`
}

type gstinData struct {
	Valid        *bool  `mapstructure:"valid"`
	GSTINStatus  string `mapstructure:"gstin_status"`
	LegalName    string `mapstructure:"legal_name"`
	TradeName    string `mapstructure:"trade_name"`
	Registration string `mapstructure:"registration_date"`
}

type bankData struct {
	AccountExists *bool  `mapstructure:"accountExists"`
	NameMatch     *bool  `mapstructure:"nameMatch"`
	NameAtBank    string `mapstructure:"nameAtBank"`
	BankName      string `mapstructure:"bankName"`
	Branch        string `mapstructure:"branch"`
}

// parser normalizes the data block of a success envelope for one document type.
type parser func(data map[string]any) (valid bool, class models.FailureClass, reason string, err error)

var parsers = map[models.DocumentType]parser{
	models.DocumentPAN:         parsePAN,
	models.DocumentAadhaar:     parseAadhaar,
	models.DocumentGSTIN:       parseGSTIN,
	models.DocumentBankAccount: parseBankAccount,
}

// parseVerifyResponse decodes a registry body into a Result. Ambiguous
// envelopes fail closed as ErrorBadData rather than passing as valid.
func parseVerifyResponse(providerID string, docType models.DocumentType, body []byte, checkedAt time.Time) (*Result, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, NewProviderError(ErrorBadData, providerID, "malformed response body", err)
	}

	result := &Result{CheckedAt: checkedAt, ProviderID: providerID, Payload: env.Data}
	switch strings.ToLower(env.Status) {
	case statusSuccess:
		p, ok := parsers[docType]
		if !ok {
			return nil, NewProviderError(ErrorInternal, providerID, "no parser for "+string(docType), nil)
		}
		valid, class, reason, err := p(env.Data)
		if err != nil {
			return nil, NewProviderError(ErrorBadData, providerID, "unexpected data shape", err)
		}
		result.IsValid, result.FailureClass, result.Reason = valid, class, reason
		return result, nil
	case statusFailed:
		result.FailureClass = models.FailureSoft
		if strings.EqualFold(env.Code, codeInvalidInput) {
			result.FailureClass = models.FailureHard
		}
		result.Reason = env.Message
		if result.Reason == "" {
			result.Reason = "rejected by registry"
		}
		return result, nil
	default:
		return nil, NewProviderError(ErrorBadData, providerID, fmt.Sprintf("ambiguous response status %q", env.Status), nil)
	}
}

func decodeData(data map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(data)
}

// isTrue treats an absent marker as provisionally valid; callers only get
// here for a status:success envelope.
func isTrue(b *bool) bool {
	return b == nil || *b
}

func parsePAN(data map[string]any) (bool, models.FailureClass, string, error) {
	var d panData
	if err := decodeData(data, &d); err != nil {
		return false, "", "", err
	}
	switch strings.ToUpper(d.PANStatus) {
	case "", "VALID", "ACTIVE":
	case "INVALID", "NOT_FOUND", "DELETED":
		return false, models.FailureHard, "pan is not registered", nil
	default:
		return false, models.FailureSoft, "pan status " + strings.ToLower(d.PANStatus), nil
	}
	if !isTrue(d.Valid) {
		return false, models.FailureHard, "pan is not valid", nil
	}
	if !isTrue(d.NameMatch) {
		return false, models.FailureSoft, "name does not match pan records", nil
	}
	return true, "", "", nil
}

func parseAadhaar(data map[string]any) (bool, models.FailureClass, string, error) {
	var d aadhaarData
	if err := decodeData(data, &d); err != nil {
		return false, "", "", err
	}
	if !isTrue(d.Exists) {
		return false, models.FailureHard, "aadhaar number does not exist", nil
	}
	if !isTrue(d.Valid) {
		return false, models.FailureSoft, "aadhaar could not be verified", nil
	}
	if !isTrue(d.NameMatch) {
		return false, models.FailureSoft, "name does not match aadhaar records", nil
	}
	return true, "", "", nil
}

func parseGSTIN(data map[string]any) (bool, models.FailureClass, string, error) {
	var d gstinData
	if err := decodeData(data, &d); err != nil {
		return false, "", "", err
	}
	if !isTrue(d.Valid) {
		return false, models.FailureHard, "gstin is not valid", nil
	}
	switch strings.ToUpper(d.GSTINStatus) {
	case "", "ACTIVE":
		return true, "", "", nil
	case "CANCELLED":
		return false, models.FailureHard, "gstin is cancelled", nil
	default:
		return false, models.FailureSoft, "gstin is " + strings.ToLower(d.GSTINStatus), nil
	}
}

func parseBankAccount(data map[string]any) (bool, models.FailureClass, string, error) {
	var d bankData
	if err := decodeData(data, &d); err != nil {
		return false, "", "", err
	}
	if !isTrue(d.AccountExists) {
		return false, models.FailureSoft, "bank account does not exist", nil
	}
	if !isTrue(d.NameMatch) {
		return false, models.FailureSoft, "account holder name does not match", nil
	}
	return true, "", "", nil
}

func parseIFSCResponse(providerID string, body []byte) (*IFSCDetails, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, NewProviderError(ErrorBadData, providerID, "malformed response body", err)
	}
	switch strings.ToLower(env.Status) {
	case statusSuccess:
	case statusFailed:
		return nil, NewProviderError(ErrorNotFound, providerID, "ifsc not found", nil)
	default:
		return nil, NewProviderError(ErrorBadData, providerID, fmt.Sprintf("ambiguous response status %q", env.Status), nil)
	}
	var details IFSCDetails
	if err := decodeData(env.Data, &details); err != nil {
		return nil, NewProviderError(ErrorBadData, providerID, "unexpected data shape", err)
	}
	if details.IFSC == "" || details.Bank == "" {
		return nil, NewProviderError(ErrorBadData, providerID, "ifsc response missing bank", nil)
	}
	return &details, nil
}
