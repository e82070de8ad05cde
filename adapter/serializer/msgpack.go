package serializer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
	"github.com/vmihailenco/msgpack/v5"
)

// NewMsgpack returns a [domain.Serializer] writing records as base64 encoded
// MessagePack, which keeps every record on a single line.
func NewMsgpack() domain.Serializer {
	return &Msgpack{}
}

// Msgpack implements [domain.Serializer].
type Msgpack struct{}

// Serialize implements [domain.Serializer].
func (m *Msgpack) Serialize(ctx context.Context, record domain.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckRecord(record); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(record.Native())
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}

	out := make([]byte, base64.StdEncoding.EncodedLen(buf.Len()))
	base64.StdEncoding.Encode(out, buf.Bytes())
	return out, nil
}
