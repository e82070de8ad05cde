// Package hasher contains an xxhash based implementation of [domain.Hasher].
// Values are hashed through a canonical encoding: object keys are visited in
// order and numbers are normalized, so values that [data.Equal] considers
// equal always produce the same hash.
package hasher

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
)

// Hasher implements [domain.Hasher].
type Hasher struct{}

// NewHasher returns a new implementation of [domain.Hasher].
func NewHasher() domain.Hasher {
	return &Hasher{}
}

// Hash implements [domain.Hasher].
func (h *Hasher) Hash(value data.Value) uint64 {
	d := xxhash.New()
	h.write(d, value)
	return d.Sum64()
}

func (h *Hasher) write(d *xxhash.Digest, v data.Value) {
	var buf [9]byte
	buf[0] = byte(v.Kind())
	switch v.Kind() {
	case data.KindNumber:
		n, _ := v.AsNumber()
		if n == 0 {
			n = 0 // -0
		}
		if math.IsNaN(n) {
			n = math.NaN()
		}
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(n))
		_, _ = d.Write(buf[:])
	case data.KindString:
		s, _ := v.AsString()
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(s)))
		_, _ = d.Write(buf[:])
		_, _ = d.WriteString(s)
	case data.KindBool:
		if b, _ := v.AsBool(); b {
			buf[1] = 1
		}
		_, _ = d.Write(buf[:2])
	case data.KindDate:
		t, _ := v.AsDate()
		binary.LittleEndian.PutUint64(buf[1:], uint64(t.UnixMilli()))
		_, _ = d.Write(buf[:])
	case data.KindArray:
		arr, _ := v.AsArray()
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(arr)))
		_, _ = d.Write(buf[:])
		for _, el := range arr {
			h.write(d, el)
		}
	case data.KindObject:
		obj, _ := v.AsObject()
		keys := obj.Keys()
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(keys)))
		_, _ = d.Write(buf[:])
		for _, k := range keys {
			h.write(d, data.String(k))
			h.write(d, obj[k])
		}
	case data.KindRegex:
		re, _ := v.AsRegex()
		_, _ = d.Write(buf[:1])
		_, _ = d.WriteString(re.String())
	default:
		_, _ = d.Write(buf[:1])
	}
}
