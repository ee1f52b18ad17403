package simplepost

import (
	"errors"
	"fmt"
)

// The service classifies every failure into one of four categories. The
// first three are business errors: they pass through to the dispatch layer
// unchanged and are never retried. Everything else is wrapped into
// *UnexpectedError at the service boundary so internal details never reach
// the wire.

// InvalidInputError indicates malformed identifiers or missing required
// fields. The caller must correct the input.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// ResourceNotFoundError indicates the target resource does not exist.
type ResourceNotFoundError struct {
	Resource string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// UnauthorizedError indicates an ownership mismatch. A resource that exists
// but belongs to someone else reports as unauthorized, not as missing, to
// keep audit trails accurate.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string { return e.Reason }

// UnexpectedError wraps an infrastructure or unforeseen fault.
type UnexpectedError struct {
	Op  string
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error during %s: %v", e.Op, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// IsBusinessError reports whether err belongs to the caller-error taxonomy
// (invalid input, not found, unauthorized).
func IsBusinessError(err error) bool {
	var invalid *InvalidInputError
	var notFound *ResourceNotFoundError
	var unauthorized *UnauthorizedError
	return errors.As(err, &invalid) || errors.As(err, &notFound) || errors.As(err, &unauthorized)
}
