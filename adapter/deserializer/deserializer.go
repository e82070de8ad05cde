// Package deserializer contains the default [domain.Deserializer]
// implementations.
package deserializer

import (
	"context"
	"fmt"

	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

// dateKey marks objects that hold a date as unix milliseconds.
const dateKey = "$$date"

// NewDeserializer returns a [domain.Deserializer] reading the JSON lines
// written by the serializer package.
func NewDeserializer() domain.Deserializer {
	return &Deserializer{}
}

// Deserializer implements [domain.Deserializer].
type Deserializer struct{}

// Deserialize implements [domain.Deserializer].
func (d *Deserializer) Deserialize(ctx context.Context, line []byte) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := parser{data: line, n: len(line)}
	v, err := p.parse()
	if err != nil {
		return nil, err
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: expected an object, got %s", errs.ErrCorruption, v.Kind())
	}
	return obj, nil
}
