package shared

import "errors"

var (
	// ErrNotFound indicates the referenced resource does not exist for the clinic.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the input failed a business-rule check.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a concurrent update lost a race and may be retried.
	ErrConflict = errors.New("concurrent update conflict")
)
