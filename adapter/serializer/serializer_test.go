package serializer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
	"github.com/stretchr/testify/suite"
	"github.com/vmihailenco/msgpack/v5"
)

var ctx = context.Background()

type M = map[string]any

type SerializerTestSuite struct {
	suite.Suite
	s domain.Serializer
}

func (s *SerializerTestSuite) SetupTest() {
	s.s = NewSerializer()
}

func (s *SerializerTestSuite) doc(v any) domain.Document {
	d, err := data.FromObject(v)
	s.Require().NoError(err)
	return d
}

func (s *SerializerTestSuite) serialize(v any) map[string]any {
	b, err := s.s.Serialize(ctx, s.doc(v))
	s.Require().NoError(err)
	var r map[string]any
	s.Require().NoError(json.Unmarshal(b, &r))
	return r
}

// Can serialize every primitive.
func (s *SerializerTestSuite) TestPrimitives() {
	r := s.serialize(M{"str": "Some string", "t": true, "f": false, "int": 5, "float": 6.2, "nil": nil})
	s.Equal("Some string", r["str"])
	s.Equal(true, r["t"])
	s.Equal(false, r["f"])
	s.Equal(5.0, r["int"])
	s.Equal(6.2, r["float"])
	s.Contains(r, "nil")
	s.Nil(r["nil"])
}

// Dates are written as milliseconds under $$date, also when nested.
func (s *SerializerTestSuite) TestDate() {
	d := time.UnixMilli(1700000000123)
	r := s.serialize(M{"d": d, "nested": M{"d": d}, "list": []any{d}})
	s.Equal(M{"$$date": 1700000000123.0}, r["d"])
	s.Equal(M{"d": M{"$$date": 1700000000123.0}}, r["nested"])
	s.Equal([]any{M{"$$date": 1700000000123.0}}, r["list"])
}

// Line breaks inside strings never break the record over several lines.
func (s *SerializerTestSuite) TestStringWithLineBreak() {
	b, err := s.s.Serialize(ctx, s.doc(M{"s": "line 1\nline 2\r\nline 3"}))
	s.NoError(err)
	s.NotContains(string(b), "\n")
	s.NotContains(string(b), "\r")
}

func (s *SerializerTestSuite) TestInvalidFieldNames() {
	for _, record := range []domain.Document{
		{"$field": data.Int(1)},
		{"a.b": data.Int(1)},
		{"nested": data.Object{"$x": data.Int(1)}.Value()},
		{"list": data.Array(data.Object{"a.b": data.Int(1)}.Value())},
		{domain.DeletedKey: data.Bool(false), "_id": data.String("1")},
	} {
		_, err := s.s.Serialize(ctx, record)
		s.ErrorIs(err, errs.ErrValidation, record)
	}
}

func (s *SerializerTestSuite) TestMarkers() {
	for _, record := range []domain.Document{
		domain.DeletedRecord("id1"),
		domain.IndexDTO{FieldName: "a", Unique: true, ExpireAfter: time.Minute}.CreatedRecord(),
		domain.IndexRemovedRecord("a"),
		domain.SnapshotRecord(time.UnixMilli(10), 2),
	} {
		_, err := s.s.Serialize(ctx, record)
		s.NoError(err)
	}
	r := s.serialize(domain.DeletedRecord("id1"))
	s.Equal(M{"_id": "id1", "$$deleted": true}, r)
}

func (s *SerializerTestSuite) TestNonFinite() {
	_, err := s.s.Serialize(ctx, domain.Document{"n": data.Number(math.Inf(1))})
	s.ErrorIs(err, errs.ErrValidation)
}

func (s *SerializerTestSuite) TestContext() {
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := s.s.Serialize(cancelled, s.doc(M{"a": 1}))
	s.ErrorIs(err, context.Canceled)

	_, err = NewMsgpack().Serialize(cancelled, s.doc(M{"a": 1}))
	s.ErrorIs(err, context.Canceled)
}

func (s *SerializerTestSuite) TestMsgpack() {
	d := time.UnixMilli(1700000000123)
	b, err := NewMsgpack().Serialize(ctx, s.doc(M{"a": 1, "d": d, "s": "x\ny"}))
	s.Require().NoError(err)
	s.NotContains(string(b), "\n")

	raw, err := base64.StdEncoding.DecodeString(string(b))
	s.Require().NoError(err)
	var r map[string]any
	s.Require().NoError(msgpack.Unmarshal(raw, &r))
	s.Equal(1.0, r["a"])
	s.Equal("x\ny", r["s"])
	s.True(d.Equal(r["d"].(time.Time)))

	_, err = NewMsgpack().Serialize(ctx, domain.Document{"$bad": data.Int(1)})
	s.ErrorIs(err, errs.ErrValidation)
}

func TestSerializerTestSuite(t *testing.T) {
	suite.Run(t, new(SerializerTestSuite))
}
