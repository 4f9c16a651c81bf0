package match

import "errors"

var (
	// ErrNotFound is returned when a referenced match, slot, application or user is absent.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor lacks rights for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState is returned when an entity's status forbids the operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict is returned when a race was lost or a uniqueness rule was violated.
	ErrConflict = errors.New("conflict")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation error")
)
