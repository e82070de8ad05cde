// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"fmt"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"
	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
)

// Decoder implements [domain.Decoder] with mapstructure. Struct fields are
// matched through the `nedb` tag, falling back to the field name.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements [domain.Decoder]. source may be a [data.Value], a
// [data.Object] or a slice of objects, which are converted to plain Go values
// first. Targets of type *data.Object receive a deep copy.
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil{}
	}
	if reflect.ValueNoEscapeOf(target).Kind() != reflect.Ptr {
		return domain.ErrNonPointer{}
	}

	switch t := target.(type) {
	case *data.Object:
		if obj, ok := source.(data.Object); ok {
			*t = obj.Clone()
			return nil
		}
	case *[]data.Object:
		if objs, ok := source.([]data.Object); ok {
			res := make([]data.Object, len(objs))
			for n, obj := range objs {
				res[n] = obj.Clone()
			}
			*t = res
			return nil
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: data.TagName,
		Result:  target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(native(source)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDecode{Target: fmt.Sprintf("%T", target)}, err)
	}
	return nil
}

func native(source any) any {
	switch t := source.(type) {
	case data.Value:
		return t.Native()
	case data.Object:
		return t.Native()
	case []data.Object:
		res := make([]any, len(t))
		for n, obj := range t {
			res[n] = obj.Native()
		}
		return res
	default:
		return source
	}
}
