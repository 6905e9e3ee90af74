package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors:
//   - ErrNotFound: no such record
//   - ErrConflict: a compare-and-swap lost against a concurrent writer
//   - ErrAlreadyUsed: a unique key (one case per user) is taken
//   - ErrInvalidState: record in the wrong state for the operation
//   - ErrUnavailable: dependency temporarily unavailable
//
// Input validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
