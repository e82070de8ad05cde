package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
	"github.com/stretchr/testify/suite"
)

type DomainTestSuite struct {
	suite.Suite
}

func (s *DomainTestSuite) TestOptions() {
	var fos domain.FindOptions
	fo := []domain.FindOption{
		domain.WithProjection(map[string]int{"a": 1}),
		domain.WithSkip(-2),
		domain.WithLimit(-3),
		domain.WithSort(domain.Sort{{Key: "a", Order: -4}}),
	}
	for _, opt := range fo {
		opt(&fos)
	}
	s.Equal(domain.FindOptions{
		Projection: map[string]int{"a": 1},
		Skip:       -2,
		Limit:      -3,
		Sort:       domain.Sort{{Key: "a", Order: -4}},
	}, fos)

	var uos domain.UpdateOptions
	uo := []domain.UpdateOption{
		domain.WithUpdateMulti(true),
		domain.WithUpsert(true),
		domain.WithReturnUpdatedDocs(true),
	}
	for _, opt := range uo {
		opt(&uos)
	}
	s.Equal(domain.UpdateOptions{Multi: true, Upsert: true, ReturnUpdatedDocs: true}, uos)

	var ros domain.RemoveOptions
	domain.WithRemoveMulti(true)(&ros)
	s.Equal(domain.RemoveOptions{Multi: true}, ros)

	var eios domain.EnsureIndexOptions
	eio := []domain.EnsureIndexOption{
		domain.WithFieldName("a.b"),
		domain.WithUnique(true),
		domain.WithSparse(true),
		domain.WithExpireAfter(12 * time.Second),
	}
	for _, opt := range eio {
		opt(&eios)
	}
	s.Equal(domain.IndexDTO{
		FieldName:   "a.b",
		Unique:      true,
		Sparse:      true,
		ExpireAfter: 12 * time.Second,
	}, eios.DTO())
}

func (s *DomainTestSuite) TestRecords() {
	dto := domain.IndexDTO{FieldName: "at", Unique: true, ExpireAfter: 90 * time.Second}
	s.Equal(map[string]any{
		domain.IndexCreatedKey: map[string]any{
			"fieldName":          "at",
			"unique":             true,
			"sparse":             false,
			"expireAfterSeconds": 90.0,
		},
	}, dto.CreatedRecord().Native())

	s.Equal(map[string]any{
		domain.IndexCreatedKey: map[string]any{"fieldName": "a", "unique": false, "sparse": true},
	}, domain.IndexDTO{FieldName: "a", Sparse: true}.CreatedRecord().Native())

	s.Equal(map[string]any{domain.IndexRemovedKey: "a"}, domain.IndexRemovedRecord("a").Native())
	s.Equal(map[string]any{"_id": "x", domain.DeletedKey: true}, domain.DeletedRecord("x").Native())

	at := time.UnixMilli(1500)
	snapshot := domain.SnapshotRecord(at, 3)
	marker, ok := snapshot[domain.SnapshotKey].AsObject()
	s.Require().True(ok)
	when, _ := marker["at"].AsDate()
	s.True(when.Equal(at))
	count, _ := marker["count"].AsInt()
	s.Equal(3, count)

	// records are valid datafile lines but not valid documents
	s.ErrorIs(data.CheckObject(domain.DeletedRecord("x")), errs.ErrValidation)
}

func (s *DomainTestSuite) TestErrors() {
	cases := []struct {
		err  error
		kind error
		msg  string
	}{
		{domain.ErrNonPointer{}, errs.ErrValidation, "target must be a pointer"},
		{domain.ErrDecode{Target: "*int"}, errs.ErrValidation, "cannot decode document into *int"},
		{domain.ErrUniqueViolation{FieldName: "a", Key: 1.0}, errs.ErrUniqueViolated, `can't insert key 1, it violates the unique constraint on field "a"`},
		{domain.ErrIndexField{FieldName: "b", Reason: "nope"}, errs.ErrValidation, `index "b": nope`},
		{domain.ErrDatafileName{Name: "c~", Reason: "reserved"}, errs.ErrValidation, `invalid datafile name "c~": reserved`},
		{domain.ErrTransform{Reason: "broken"}, errs.ErrValidation, "invalid transform: broken"},
		{domain.ErrTargetNil{}, errs.ErrValidation, "target interface is nil"},
		{
			domain.ErrCorruptFiles{CorruptionRate: 0.5, CorruptItems: 5, DataLength: 10, CorruptAlertThreshold: 0.1},
			errs.ErrCorruption,
			"50% of the data file is corrupt (5 of 10 lines), more than given corruptAlertThreshold (10%). Cautiously refusing to start the database to prevent dataloss",
		},
	}
	for _, c := range cases {
		s.Run(c.msg, func() {
			s.ErrorIs(c.err, c.kind)
			s.EqualError(c.err, c.msg)
		})
	}

	fsync := errors.New("fsync")
	flush := domain.ErrFlushToStorage{ErrorOnFsync: fsync}
	s.ErrorIs(flush, errs.ErrIO)
	s.ErrorIs(flush, fsync)
	s.EqualError(flush, "storage flush error: fsync")
	s.EqualError(domain.ErrFlushToStorage{ErrorOnClose: errors.New("close")}, "storage flush error: close")
}

func TestDomainTestSuite(t *testing.T) {
	suite.Run(t, new(DomainTestSuite))
}
