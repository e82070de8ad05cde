package index

import (
	"testing"
	"time"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
	"github.com/stretchr/testify/suite"
)

type M = map[string]any

type A = []any

func doc(s *suite.Suite, v any) domain.Document {
	o, err := data.FromObject(v)
	s.Require().NoError(err)
	return o
}

type IndexTestSuite struct {
	suite.Suite
}

func (s *IndexTestSuite) newIndex(dto domain.IndexDTO) *Index {
	idx, err := NewIndex(dto)
	s.Require().NoError(err)
	return idx.(*Index)
}

func (s *IndexTestSuite) matching(idx *Index, values ...any) []string {
	vals := make([]data.Value, len(values))
	for n, v := range values {
		val, err := data.FromAny(v)
		s.Require().NoError(err)
		vals[n] = val
	}
	ids, err := idx.GetMatching(vals...)
	s.Require().NoError(err)
	return ids
}

func (s *IndexTestSuite) TestEmptyFieldName() {
	_, err := NewIndex(domain.IndexDTO{})
	s.ErrorIs(err, errs.ErrValidation)
}

func (s *IndexTestSuite) TestInsertAndMatch() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "tf"})
	_, err := idx.Insert(
		doc(&s.Suite, M{"_id": "1", "tf": "hello"}),
		doc(&s.Suite, M{"_id": "2", "tf": "world"}),
		doc(&s.Suite, M{"_id": "3", "tf": "hello"}),
	)
	s.Require().NoError(err)
	s.Equal(2, idx.GetNumberOfKeys())
	s.Equal([]string{"1", "3"}, s.matching(idx, "hello"))
	s.Equal([]string{"2"}, s.matching(idx, "world"))
	s.Empty(s.matching(idx, "nope"))
}

func (s *IndexTestSuite) TestMatchingFollowsKeyOrder() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "n"})
	_, err := idx.Insert(
		doc(&s.Suite, M{"_id": "a", "n": 3}),
		doc(&s.Suite, M{"_id": "b", "n": 1}),
		doc(&s.Suite, M{"_id": "c", "n": 2}),
	)
	s.Require().NoError(err)
	s.Equal([]string{"b", "c", "a"}, s.matching(idx, 3, 2, 1, 3))
	s.Equal([]string{"b", "c", "a"}, idx.GetAll())
}

func (s *IndexTestSuite) TestNestedField() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "a.b"})
	_, err := idx.Insert(
		doc(&s.Suite, M{"_id": "1", "a": M{"b": 5}}),
		doc(&s.Suite, M{"_id": "2", "a": A{M{"b": 5}, M{"b": 6}}}),
	)
	s.Require().NoError(err)
	s.Equal([]string{"1", "2"}, s.matching(idx, 5))
	s.Equal([]string{"2"}, s.matching(idx, 6))
}

func (s *IndexTestSuite) TestArrayFields() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "tags"})
	_, err := idx.Insert(
		doc(&s.Suite, M{"_id": "1", "tags": A{"a", "b", "a"}}),
		doc(&s.Suite, M{"_id": "2", "tags": A{"b"}}),
		doc(&s.Suite, M{"_id": "3", "tags": A{}}),
	)
	s.Require().NoError(err)
	s.Equal(2, idx.GetNumberOfKeys())
	s.Equal([]string{"1"}, s.matching(idx, "a"))
	s.Equal([]string{"1", "2"}, s.matching(idx, "b"))
	s.Equal([]string{"1", "2"}, s.matching(idx, "a", "b"))
	s.Equal([]string{"1", "2"}, idx.GetAll())
}

func (s *IndexTestSuite) TestUniqueArrayDoesNotViolateItself() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "tags", Unique: true})
	_, err := idx.Insert(doc(&s.Suite, M{"_id": "1", "tags": A{"a", "a"}}))
	s.NoError(err)
	_, err = idx.Insert(doc(&s.Suite, M{"_id": "2", "tags": A{"b", "a"}}))
	s.ErrorIs(err, errs.ErrUniqueViolated)
	s.Equal(1, idx.GetNumberOfKeys())
}

func (s *IndexTestSuite) TestUniqueViolationRollsBackBatch() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "u", Unique: true})
	_, err := idx.Insert(doc(&s.Suite, M{"_id": "0", "u": 0}))
	s.Require().NoError(err)

	_, err = idx.Insert(
		doc(&s.Suite, M{"_id": "1", "u": 1}),
		doc(&s.Suite, M{"_id": "2", "u": 2}),
		doc(&s.Suite, M{"_id": "3", "u": 1}),
	)
	var violation domain.ErrUniqueViolation
	s.ErrorAs(err, &violation)
	s.Equal("u", violation.FieldName)
	s.Equal(1.0, violation.Key)
	s.Equal([]string{"0"}, idx.GetAll())
	s.Len(idx.keys, 1)
}

func (s *IndexTestSuite) TestMissingField() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "u", Unique: true})
	_, err := idx.Insert(doc(&s.Suite, M{"_id": "1"}))
	s.NoError(err)
	_, err = idx.Insert(doc(&s.Suite, M{"_id": "2"}))
	s.ErrorIs(err, errs.ErrUniqueViolated)

	sparse := s.newIndex(domain.IndexDTO{FieldName: "u", Unique: true, Sparse: true})
	_, err = sparse.Insert(doc(&s.Suite, M{"_id": "1"}), doc(&s.Suite, M{"_id": "2"}))
	s.NoError(err)
	s.Zero(sparse.GetNumberOfKeys())
	s.Empty(sparse.GetAll())
}

func (s *IndexTestSuite) TestNullIsIndexed() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "u", Sparse: true})
	_, err := idx.Insert(doc(&s.Suite, M{"_id": "1", "u": nil}))
	s.NoError(err)
	s.Equal([]string{"1"}, s.matching(idx, nil))
}

func (s *IndexTestSuite) TestInsertUndo() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "n"})
	_, err := idx.Insert(doc(&s.Suite, M{"_id": "1", "n": 1}))
	s.Require().NoError(err)
	undo, err := idx.Insert(doc(&s.Suite, M{"_id": "2", "n": 2}), doc(&s.Suite, M{"_id": "3", "n": A{3, 4}}))
	s.Require().NoError(err)
	s.Equal(4, idx.GetNumberOfKeys())

	undo()
	s.Equal(1, idx.GetNumberOfKeys())
	s.Equal([]string{"1"}, idx.GetAll())
	s.Len(idx.keys, 1)
}

func (s *IndexTestSuite) TestRemoveAndUndo() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "n"})
	d1 := doc(&s.Suite, M{"_id": "1", "n": A{1, 2}})
	d2 := doc(&s.Suite, M{"_id": "2", "n": 2})
	_, err := idx.Insert(d1, d2)
	s.Require().NoError(err)

	undo := idx.Remove(d1)
	s.Equal([]string{"2"}, idx.GetAll())
	s.Empty(s.matching(idx, 1))

	undo()
	s.ElementsMatch([]string{"1", "2"}, s.matching(idx, 2))
	s.Equal([]string{"1"}, s.matching(idx, 1))

	// removing an unknown document is a no-op
	idx.Remove(doc(&s.Suite, M{"_id": "9", "n": 1}))()
	s.Equal([]string{"1", "2"}, idx.GetAll())
}

func (s *IndexTestSuite) TestRemoveUsesCachedKeys() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "n"})
	_, err := idx.Insert(doc(&s.Suite, M{"_id": "1", "n": 1}))
	s.Require().NoError(err)

	// the document changed since it was indexed
	idx.Remove(doc(&s.Suite, M{"_id": "1", "n": 7}))
	s.Zero(idx.GetNumberOfKeys())
}

func (s *IndexTestSuite) TestBetweenBounds() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "n"})
	for n, v := range []int{5, 1, 9, 3, 7} {
		_, err := idx.Insert(doc(&s.Suite, M{"_id": string(rune('a' + n)), "n": v}))
		s.Require().NoError(err)
	}
	between := func(bounds M) []string {
		ids, err := idx.GetBetweenBounds(doc(&s.Suite, bounds))
		s.Require().NoError(err)
		return ids
	}
	s.Equal([]string{"d", "a", "e"}, between(M{"$gte": 3, "$lt": 9}))
	s.Equal([]string{"a", "e"}, between(M{"$gt": 3, "$lte": 7}))
	s.Equal([]string{"e", "c"}, between(M{"$gt": 5}))
	s.Equal([]string{"b"}, between(M{"$lt": 3}))
}

func (s *IndexTestSuite) TestDates() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "d", ExpireAfter: time.Hour})
	s.Equal(time.Hour, idx.ExpireAfter())
	_, err := idx.Insert(
		doc(&s.Suite, M{"_id": "1", "d": time.UnixMilli(2000)}),
		doc(&s.Suite, M{"_id": "2", "d": time.UnixMilli(1000)}),
	)
	s.Require().NoError(err)
	s.Equal([]string{"2", "1"}, idx.GetAll())
	s.Equal([]string{"1"}, s.matching(idx, time.UnixMilli(2000)))
}

func (s *IndexTestSuite) TestReset() {
	idx := s.newIndex(domain.IndexDTO{FieldName: "n", Unique: true})
	_, err := idx.Insert(doc(&s.Suite, M{"_id": "1", "n": 1}))
	s.Require().NoError(err)
	idx.Reset()
	s.Zero(idx.GetNumberOfKeys())
	_, err = idx.Insert(doc(&s.Suite, M{"_id": "2", "n": 1}))
	s.NoError(err)
}

func (s *IndexTestSuite) TestDTO() {
	dto := domain.IndexDTO{FieldName: "n", Unique: true, Sparse: true, ExpireAfter: time.Second}
	idx := s.newIndex(dto)
	s.Equal(dto, idx.DTO())
	s.Equal("n", idx.FieldName())
	s.True(idx.Unique())
	s.True(idx.Sparse())
}

func TestIndexTestSuite(t *testing.T) {
	suite.Run(t, new(IndexTestSuite))
}
