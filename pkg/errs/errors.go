// Package errs contains the error kinds shared by every layer of the
// database. Detailed errors returned by adapters wrap one of these sentinels,
// so callers can classify any failure with [errors.Is].
package errs

import "errors"

var (
	// ErrValidation marks malformed documents, filters, update expressions
	// or index definitions.
	ErrValidation = errors.New("validation error")
	// ErrUniqueViolated marks an index constraint violation.
	ErrUniqueViolated = errors.New("unique constraint violated")
	// ErrNotFound marks an absent target. Update and remove report it as
	// zero affected documents instead of returning it.
	ErrNotFound = errors.New("not found")
	// ErrCorruption marks a datafile that could not be replayed.
	ErrCorruption = errors.New("data corruption")
	// ErrIO marks a failure of the underlying storage.
	ErrIO = errors.New("io failure")
)

// ErrTargetNil is returned when the passed target, which should be a pointer,
// is passed as a nil value.
type ErrTargetNil struct{}

func (e ErrTargetNil) Error() string { return "target interface is nil" }

// Unwrap implements the interface used by [errors.Is].
func (e ErrTargetNil) Unwrap() error { return ErrValidation }
