package service

import (
	"context"

	"onboard/internal/kyc/models"
)

// passthroughTx runs fn directly. Compare-and-swap on the case still
// serializes writers; only the user status mirror is not rolled back.
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type discardRecorder struct{}

func (discardRecorder) Record(context.Context, models.VerificationAttempt) {}
