// Package serializer contains the default [domain.Serializer]
// implementations.
package serializer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

// DateKey is the field of the object dates are written as.
const DateKey = "$$date"

// NewSerializer returns a [domain.Serializer] writing one JSON object per
// record. Dates are written as {"$$date": <unix milliseconds>}.
func NewSerializer() domain.Serializer {
	return &Serializer{}
}

// Serializer implements [domain.Serializer].
type Serializer struct{}

// Serialize implements [domain.Serializer].
func (s *Serializer) Serialize(ctx context.Context, record domain.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckRecord(record); err != nil {
		return nil, err
	}
	b, err := json.Marshal(encodeJSON(record.Value()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}
	return b, nil
}

// CheckRecord verifies a record can be written to the datafile. Documents
// must pass [data.CheckObject]; the datafile markers are accepted at the top
// level only.
func CheckRecord(record domain.Document) error {
	for k, v := range record {
		switch k {
		case domain.DeletedKey:
			if b, ok := v.AsBool(); !ok || !b {
				return data.ErrFieldName{Key: k, Reason: "deletion marker must be true"}
			}
		case domain.IndexCreatedKey, domain.IndexRemovedKey, domain.SnapshotKey:
		default:
			if err := data.CheckObject(data.Object{k: v}); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeJSON(v data.Value) any {
	switch v.Kind() {
	case data.KindDate:
		t, _ := v.AsDate()
		return map[string]int64{DateKey: t.UnixMilli()}
	case data.KindArray:
		elems, _ := v.AsArray()
		res := make([]any, len(elems))
		for n, el := range elems {
			res[n] = encodeJSON(el)
		}
		return res
	case data.KindObject:
		obj, _ := v.AsObject()
		res := make(map[string]any, len(obj))
		for k, el := range obj {
			if el.Defined() {
				res[k] = encodeJSON(el)
			}
		}
		return res
	default:
		return v.Native()
	}
}
