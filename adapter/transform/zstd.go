// Package transform contains [domain.Transform] implementations applied to
// datafile lines.
package transform

import (
	"encoding/base64"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

// Zstd compresses each line with zstd and encodes the result in base64, so
// compressed lines never contain a line break.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstd returns a [domain.Transform] compressing lines at the given level.
func NewZstd(level zstd.EncoderLevel) (domain.Transform, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

// AfterSerialization implements [domain.Transform].
func (z *Zstd) AfterSerialization(line []byte) ([]byte, error) {
	compressed := z.enc.EncodeAll(line, nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(compressed)))
	base64.StdEncoding.Encode(out, compressed)
	return out, nil
}

// BeforeDeserialization implements [domain.Transform].
func (z *Zstd) BeforeDeserialization(line []byte) ([]byte, error) {
	compressed := make([]byte, base64.StdEncoding.DecodedLen(len(line)))
	n, err := base64.StdEncoding.Decode(compressed, line)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCorruption, err)
	}
	out, err := z.dec.DecodeAll(compressed[:n], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCorruption, err)
	}
	return out, nil
}
