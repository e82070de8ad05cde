// Package projector contains the default [domain.Projector] implementation.
package projector

import (
	"fmt"
	"slices"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
)

var (
	// ErrMixOmitType is returned when user provides a projection object
	// with mixed "omit" and "show" operators.
	ErrMixOmitType = fmt.Errorf("%w: can't both keep and omit fields except for %s", errs.ErrValidation, data.IDField)
)

// Projector implements [domain.Projector].
type Projector struct{}

// NewProjector returns a new implementation of [domain.Projector].
func NewProjector() domain.Projector {
	return &Projector{}
}

// Project implements [domain.Projector]. Projected documents are copies, so
// callers may change them freely.
func (p *Projector) Project(docs []domain.Document, proj map[string]int) ([]domain.Document, error) {
	if len(proj) == 0 {
		return docs, nil
	}

	id, idMentioned := proj[data.IDField]
	keepID := !idMentioned || id != 0

	var (
		fields  []string
		include bool
	)
	for field, value := range proj {
		if field == data.IDField {
			continue
		}
		if len(fields) > 0 && (value != 0) != include {
			return nil, ErrMixOmitType
		}
		include = value != 0
		fields = append(fields, field)
	}
	slices.Sort(fields)

	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		var projected domain.Document
		if include {
			projected = p.keep(doc, fields)
		} else {
			projected = p.omit(doc, fields)
		}
		if keepID {
			projected[data.IDField] = doc[data.IDField]
		} else {
			delete(projected, data.IDField)
		}
		res[n] = projected
	}

	return res, nil
}

func (p *Projector) keep(doc domain.Document, fields []string) domain.Document {
	res := make(domain.Document, len(fields)+1)
	for _, field := range fields {
		value := doc.Get(field)
		if !value.Defined() {
			continue
		}
		// of overlapping paths, the shortest wins
		_ = res.Set(field, value.Clone())
	}
	return res
}

func (p *Projector) omit(doc domain.Document, fields []string) domain.Document {
	res := doc.Clone()
	for _, field := range fields {
		res.Unset(field)
	}
	return res
}
