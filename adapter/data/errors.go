package data

import (
	"fmt"

	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

// ErrUnsupportedType is returned when a Go value has no variant
// representation.
type ErrUnsupportedType struct {
	Type string
}

func (e ErrUnsupportedType) Error() string {
	return fmt.Sprintf("unsupported type %s", e.Type)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrUnsupportedType) Unwrap() error { return errs.ErrValidation }

// ErrFieldName is returned when a document holds a key that cannot be stored.
type ErrFieldName struct {
	Key    string
	Reason string
}

func (e ErrFieldName) Error() string {
	return fmt.Sprintf("invalid field name %q: %s", e.Key, e.Reason)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrFieldName) Unwrap() error { return errs.ErrValidation }

// ErrPathConflict is returned when a path write would need to create a field
// inside a value that cannot hold it.
type ErrPathConflict struct {
	Field string
	Kind  Kind
}

func (e ErrPathConflict) Error() string {
	return fmt.Sprintf("cannot create field %q in element of type %s", e.Field, e.Kind)
}

// Unwrap implements the interface used by [errors.Is].
func (e ErrPathConflict) Unwrap() error { return errs.ErrValidation }
