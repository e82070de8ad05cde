package uncomparable

import (
	"slices"
	"testing"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/adapter/hasher"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type hasherMock struct{ mock.Mock }

// Hash implements domain.Hasher.
func (h *hasherMock) Hash(v data.Value) uint64 {
	return uint64(h.Called(v).Int(0))
}

type MapTestSuite struct {
	suite.Suite
	m *Map[int]
}

func (s *MapTestSuite) SetupTest() {
	s.m = New[int](hasher.NewHasher())
}

func (s *MapTestSuite) TestSetAndGet() {
	s.True(s.m.Set(data.Number(1), 10))
	s.True(s.m.Set(data.String("1"), 20))
	s.False(s.m.Set(data.Number(1), 30))

	v, ok := s.m.Get(data.Number(1))
	s.True(ok)
	s.Equal(30, v)

	v, ok = s.m.Get(data.String("1"))
	s.True(ok)
	s.Equal(20, v)

	_, ok = s.m.Get(data.Bool(true))
	s.False(ok)
}

func (s *MapTestSuite) TestDeepKeys() {
	a := data.Array(data.Number(1), data.Object{"x": data.Null()}.Value())
	b := data.Array(data.Number(1), data.Object{"x": data.Null()}.Value())
	s.m.Set(a, 1)
	v, ok := s.m.Get(b)
	s.True(ok)
	s.Equal(1, v)
	s.False(s.m.Set(b, 2))
}

func (s *MapTestSuite) TestCollisions() {
	h := new(hasherMock)
	h.On("Hash", mock.Anything).Return(7)
	m := New[string](h)
	s.True(m.Set(data.Number(1), "one"))
	s.True(m.Set(data.Number(2), "two"))
	v, ok := m.Get(data.Number(2))
	s.True(ok)
	s.Equal("two", v)
	v, ok = m.Get(data.Number(1))
	s.True(ok)
	s.Equal("one", v)
	_, ok = m.Get(data.Number(3))
	s.False(ok)
}

func (s *MapTestSuite) TestKeysKeepInsertionOrder() {
	s.m.Set(data.String("b"), 0)
	s.m.Set(data.String("a"), 0)
	s.m.Set(data.Undefined(), 0)
	s.m.Set(data.String("b"), 1)
	s.Equal([]data.Value{data.String("b"), data.String("a"), data.Undefined()}, slices.Collect(s.m.Keys()))
}

func TestMapTestSuite(t *testing.T) {
	suite.Run(t, new(MapTestSuite))
}
