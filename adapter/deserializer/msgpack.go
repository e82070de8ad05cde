package deserializer

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
	"github.com/vmihailenco/msgpack/v5"
)

// NewMsgpack returns a [domain.Deserializer] reading base64 encoded
// MessagePack lines.
func NewMsgpack() domain.Deserializer {
	return &Msgpack{}
}

// Msgpack implements [domain.Deserializer].
type Msgpack struct{}

// Deserialize implements [domain.Deserializer].
func (m *Msgpack) Deserialize(ctx context.Context, line []byte) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(line)))
	n, err := base64.StdEncoding.Decode(raw, line)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCorruption, err)
	}

	var native map[string]any
	if err := msgpack.Unmarshal(raw[:n], &native); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCorruption, err)
	}
	if native == nil {
		return nil, fmt.Errorf("%w: expected an object", errs.ErrCorruption)
	}
	doc, err := data.FromObject(native)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCorruption, err)
	}
	return doc, nil
}
