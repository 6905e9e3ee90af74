// Package providers adapts external KYC registries (PAN, Aadhaar, GSTIN,
// bank account, IFSC) to one typed result contract.
package providers

import (
	"context"
	"time"

	"onboard/internal/kyc/models"
)

// Result is a determinate verification outcome. A failed call with no
// determinate answer is returned as a *ProviderError instead.
type Result struct {
	IsValid      bool
	FailureClass models.FailureClass
	Reason       string
	Payload      map[string]any
	CheckedAt    time.Time
	ProviderID   string
}

// IFSCDetails describes a bank branch.
type IFSCDetails struct {
	IFSC    string `json:"ifsc" mapstructure:"ifsc"`
	Bank    string `json:"bank" mapstructure:"bank"`
	Branch  string `json:"branch" mapstructure:"branch"`
	Address string `json:"address,omitempty" mapstructure:"address"`
	City    string `json:"city,omitempty" mapstructure:"city"`
	State   string `json:"state,omitempty" mapstructure:"state"`
}

// Provider is the interface every verification registry adapter implements.
type Provider interface {
	// ID returns a unique identifier for this provider instance
	ID() string

	// Verify checks normalized fields of docType against the registry.
	Verify(ctx context.Context, docType models.DocumentType, fields map[string]string) (*Result, error)

	// LookupIFSC resolves a branch code.
	LookupIFSC(ctx context.Context, ifsc string) (*IFSCDetails, error)

	// Health checks if the provider is available
	Health(ctx context.Context) error
}
