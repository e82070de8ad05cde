package domain

import (
	"fmt"
	"math"

	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

// Error kinds. Every error returned by the database wraps one of them.
var (
	ErrValidation     = errs.ErrValidation
	ErrUniqueViolated = errs.ErrUniqueViolated
	ErrNotFound       = errs.ErrNotFound
	ErrCorruption     = errs.ErrCorruption
	ErrIO             = errs.ErrIO
)

// ErrTargetNil is returned when a nil decoding target is passed.
type ErrTargetNil = errs.ErrTargetNil

// ErrNonPointer is returned when a decoding target is not a pointer.
type ErrNonPointer struct{}

func (e ErrNonPointer) Error() string { return "target must be a pointer" }

// Unwrap implements the interface used by [errors.Is].
func (e ErrNonPointer) Unwrap() error { return ErrValidation }

// ErrDecode wraps a failure to copy a document into a user target.
type ErrDecode struct {
	Target string
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode document into %s", e.Target)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrDecode) Unwrap() error { return ErrValidation }

// ErrUniqueViolation is returned when an index rejects a duplicate key.
type ErrUniqueViolation struct {
	FieldName string
	Key       any
}

func (e ErrUniqueViolation) Error() string {
	return fmt.Sprintf("can't insert key %v, it violates the unique constraint on field %q", e.Key, e.FieldName)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrUniqueViolation) Unwrap() error { return ErrUniqueViolated }

// ErrCorruptFiles is returned when too many datafile lines cannot be read.
type ErrCorruptFiles struct {
	CorruptionRate        float64
	CorruptItems          int
	DataLength            int
	CorruptAlertThreshold float64
}

func (e ErrCorruptFiles) Error() string {
	return fmt.Sprintf("%v%% of the data file is corrupt (%d of %d lines), more than given corruptAlertThreshold (%v%%). Cautiously refusing to start the database to prevent dataloss",
		math.Floor(100*e.CorruptionRate), e.CorruptItems, e.DataLength, math.Floor(100*e.CorruptAlertThreshold))
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrCorruptFiles) Unwrap() error { return ErrCorruption }

// ErrFlushToStorage is returned when a file could not be flushed to disk.
type ErrFlushToStorage struct {
	ErrorOnFsync error
	ErrorOnClose error
}

func (e ErrFlushToStorage) Error() string {
	err := e.ErrorOnFsync
	if err == nil {
		err = e.ErrorOnClose
	}
	return fmt.Sprintf("storage flush error: %v", err)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrFlushToStorage) Unwrap() []error {
	return []error{ErrIO, e.ErrorOnFsync, e.ErrorOnClose}
}

// ErrIndexField is returned for invalid index definitions.
type ErrIndexField struct {
	FieldName string
	Reason    string
}

func (e ErrIndexField) Error() string {
	return fmt.Sprintf("index %q: %s", e.FieldName, e.Reason)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrIndexField) Unwrap() error { return ErrValidation }

// ErrDatafileName is returned for datafile names that cannot be used.
type ErrDatafileName struct {
	Name   string
	Reason string
}

func (e ErrDatafileName) Error() string {
	return fmt.Sprintf("invalid datafile name %q: %s", e.Name, e.Reason)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrDatafileName) Unwrap() error { return ErrValidation }

// ErrTransform is returned when a line transform pair is unusable.
type ErrTransform struct {
	Reason string
}

func (e ErrTransform) Error() string {
	return "invalid transform: " + e.Reason
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrTransform) Unwrap() error { return ErrValidation }
