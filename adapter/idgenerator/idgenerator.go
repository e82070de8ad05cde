// Package idgenerator contains [domain.IDGenerator] implementations.
package idgenerator

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

// IDGenerator implements [domain.IDGenerator] with base64 encoded random
// bytes stripped of '+' and '/'.
type IDGenerator struct {
	reader io.Reader
}

// NewIDGenerator returns the default [domain.IDGenerator].
func NewIDGenerator(opts ...Option) domain.IDGenerator {
	o := Options{Reader: rand.Reader}
	for _, opt := range opts {
		opt(&o)
	}
	return &IDGenerator{reader: o.Reader}
}

// GenerateID implements [domain.IDGenerator].
func (i *IDGenerator) GenerateID(l int) (string, error) {
	var sb strings.Builder
	sb.Grow(l)
	for sb.Len() < l {
		buf := make([]byte, max(8, l))
		if _, err := io.ReadFull(i.reader, buf); err != nil {
			return "", fmt.Errorf("%w: %w", errs.ErrIO, err)
		}
		for _, c := range []byte(base64.StdEncoding.EncodeToString(buf)) {
			if c == '+' || c == '/' || c == '=' {
				continue
			}
			sb.WriteByte(c)
			if sb.Len() == l {
				break
			}
		}
	}
	return sb.String(), nil
}

// UUID implements [domain.IDGenerator] with random (version 4) UUIDs
// written without dashes.
type UUID struct {
	reader io.Reader
}

// NewUUID returns a [domain.IDGenerator] producing UUID based identifiers.
func NewUUID(opts ...Option) domain.IDGenerator {
	o := Options{Reader: rand.Reader}
	for _, opt := range opts {
		opt(&o)
	}
	return &UUID{reader: o.Reader}
}

// GenerateID implements [domain.IDGenerator]. Identifiers longer than one
// UUID concatenate several of them.
func (u *UUID) GenerateID(l int) (string, error) {
	var sb strings.Builder
	for sb.Len() < l {
		id, err := uuid.NewRandomFromReader(u.reader)
		if err != nil {
			return "", fmt.Errorf("%w: %w", errs.ErrIO, err)
		}
		sb.WriteString(strings.ReplaceAll(id.String(), "-", ""))
	}
	return sb.String()[:l], nil
}
