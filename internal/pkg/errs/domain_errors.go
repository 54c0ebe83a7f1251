package errs

import "errors"

// Domain-specific sentinel errors for the usecase layers
var (
	// Session errors
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionClosed     = errors.New("session closed")
	ErrCapacityExceeded  = errors.New("session capacity exceeded")
	ErrContention        = errors.New("session contention, retry later")
	ErrInvalidTierConfig = errors.New("invalid tier configuration")

	// Validation errors
	ErrDomainValidation = errors.New("domain validation error")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)
