package cursor

import (
	"context"
	"errors"
	"testing"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var ctx = context.Background()

type finderMock struct{ mock.Mock }

func (f *finderMock) FindDocuments(ctx context.Context, opts domain.QueryOptions) ([]domain.Document, error) {
	call := f.Called(ctx, opts)
	return call.Get(0).([]domain.Document), call.Error(1)
}

func (f *finderMock) CountDocuments(ctx context.Context, query domain.Document) (int64, error) {
	call := f.Called(ctx, query)
	return call.Get(0).(int64), call.Error(1)
}

type CursorTestSuite struct {
	suite.Suite
	finder *finderMock
}

func (s *CursorTestSuite) SetupTest() {
	s.finder = new(finderMock)
}

func (s *CursorTestSuite) TestLazy() {
	c := NewCursor(s.finder, map[string]any{"a": 1})
	c.Skip(1).Limit(2).Sort(domain.SortName{Key: "a", Order: 1}).Projection(map[string]int{"a": 1})
	s.finder.AssertNotCalled(s.T(), "FindDocuments", mock.Anything, mock.Anything)
}

func (s *CursorTestSuite) TestExec() {
	expected := domain.QueryOptions{
		Query:      domain.Document{"age": data.Object{"$gte": data.Int(18)}.Value()},
		Skip:       1,
		Limit:      2,
		Sort:       domain.Sort{{Key: "age", Order: 1}},
		Projection: map[string]int{"_id": 0},
	}
	result := []domain.Document{{"age": data.Int(20)}, {"age": data.Int(25)}}
	s.finder.On("FindDocuments", ctx, expected).Return(result, nil).Twice()

	c := NewCursor(s.finder, map[string]any{"age": map[string]any{"$gte": 18}}).
		Sort(domain.SortName{Key: "age", Order: 1}).
		Skip(1).
		Limit(2).
		Projection(map[string]int{"_id": 0})

	docs, err := c.Exec(ctx)
	s.NoError(err)
	s.Equal(result, docs)

	// a cursor can run again
	_, err = c.Exec(ctx)
	s.NoError(err)
	s.finder.AssertExpectations(s.T())
}

func (s *CursorTestSuite) TestFindOptionsSeedCursor() {
	find := domain.FindOptions{Skip: 3, Limit: 4, Projection: map[string]int{"a": 1}}
	s.finder.On("FindDocuments", ctx, domain.QueryOptions{
		Query:      domain.Document{},
		Skip:       3,
		Limit:      4,
		Projection: map[string]int{"a": 1},
	}).Return([]domain.Document{}, nil).Once()

	_, err := NewCursor(s.finder, nil, WithFindOptions(find)).Exec(ctx)
	s.NoError(err)
	s.finder.AssertExpectations(s.T())
}

func (s *CursorTestSuite) TestInvalidConfiguration() {
	_, err := NewCursor(s.finder, nil).Skip(-1).Exec(ctx)
	s.ErrorIs(err, errs.ErrValidation)

	_, err = NewCursor(s.finder, nil).Limit(-1).Exec(ctx)
	s.ErrorIs(err, errs.ErrValidation)

	_, err = NewCursor(s.finder, 5).Exec(ctx)
	s.ErrorIs(err, errs.ErrValidation)

	_, err = NewCursor(s.finder, []any{1}).Count(ctx)
	s.ErrorIs(err, errs.ErrValidation)
	s.finder.AssertExpectations(s.T())
}

func (s *CursorTestSuite) TestScan() {
	s.finder.On("FindDocuments", ctx, mock.Anything).Return([]domain.Document{
		{"_id": data.String("1"), "name": data.String("a")},
		{"_id": data.String("2"), "name": data.String("b")},
	}, nil)

	type row struct {
		ID   string `nedb:"_id"`
		Name string `nedb:"name"`
	}
	var rows []row
	s.NoError(NewCursor(s.finder, nil).Scan(ctx, &rows))
	s.Equal([]row{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}, rows)

	s.ErrorIs(NewCursor(s.finder, nil).Scan(ctx, rows), errs.ErrValidation)
}

func (s *CursorTestSuite) TestErrorsPropagate() {
	fail := errors.New("fail")
	s.finder.On("FindDocuments", ctx, mock.Anything).Return([]domain.Document(nil), fail)
	s.finder.On("CountDocuments", ctx, mock.Anything).Return(int64(0), fail)

	_, err := NewCursor(s.finder, nil).Exec(ctx)
	s.ErrorIs(err, fail)
	var rows []map[string]any
	s.ErrorIs(NewCursor(s.finder, nil).Scan(ctx, &rows), fail)
	_, err = NewCursor(s.finder, nil).Count(ctx)
	s.ErrorIs(err, fail)
}

func (s *CursorTestSuite) TestCount() {
	s.finder.On("CountDocuments", ctx, domain.Document{"a": data.Int(1)}).Return(int64(3), nil)
	n, err := NewCursor(s.finder, map[string]any{"a": 1}).Skip(10).Limit(1).Count(ctx)
	s.NoError(err)
	s.Equal(int64(3), n)
}

func TestCursorTestSuite(t *testing.T) {
	suite.Run(t, new(CursorTestSuite))
}
