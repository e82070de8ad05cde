package deserializer

import (
	"context"
	"testing"
	"time"

	"github.com/ramiroaisen/nedb-types/adapter/data"
	"github.com/ramiroaisen/nedb-types/adapter/serializer"
	"github.com/ramiroaisen/nedb-types/domain"
	"github.com/ramiroaisen/nedb-types/pkg/errs"
	"github.com/stretchr/testify/suite"
)

var ctx = context.Background()

type M = map[string]any

type A = []any

type DeserializerTestSuite struct {
	suite.Suite
	d domain.Deserializer
}

func (s *DeserializerTestSuite) SetupTest() {
	s.d = NewDeserializer()
}

func (s *DeserializerTestSuite) doc(v any) domain.Document {
	d, err := data.FromObject(v)
	s.Require().NoError(err)
	return d
}

func (s *DeserializerTestSuite) deserialize(line string) domain.Document {
	d, err := s.d.Deserialize(ctx, []byte(line))
	s.Require().NoError(err)
	return d
}

// Can deserialize every primitive.
func (s *DeserializerTestSuite) TestPrimitives() {
	d := s.deserialize(`{"s":"Some string","t":true,"f":false,"i":5,"n":-6.2e1,"z":null}`)
	s.Equal(s.doc(M{"s": "Some string", "t": true, "f": false, "i": 5, "n": -62.0, "z": nil}), d)
}

func (s *DeserializerTestSuite) TestDate() {
	d := s.deserialize(`{"d":{"$$date":1700000000123},"o":{"$$date":"x"},"p":{"$$date":1,"x":2}}`)
	t, ok := d["d"].AsDate()
	s.True(ok)
	s.Equal(int64(1700000000123), t.UnixMilli())
	// only a lone numeric $$date is a date
	s.Equal(data.KindObject, d["o"].Kind())
	s.Equal(data.KindObject, d["p"].Kind())
}

func (s *DeserializerTestSuite) TestNested() {
	d := s.deserialize(`{ "a" : { "b" : [ 1, { "c" : [] }, [ "x" ] ] }, "e": {} }`)
	s.Equal(s.doc(M{"a": M{"b": A{1, M{"c": A{}}, A{"x"}}}, "e": M{}}), d)
}

func (s *DeserializerTestSuite) TestEscapes() {
	d := s.deserialize(`{"s":"line 1\nline 2\t\"q\" é 😀 \/"}`)
	s.Equal(data.String("line 1\nline 2\t\"q\" é 😀 /"), d["s"])
}

func (s *DeserializerTestSuite) TestCorruptLines() {
	for _, line := range []string{
		``,
		`{`,
		`{"a":1`,
		`{"a" 1}`,
		`{"a":1 "b":2}`,
		`{"a":tru}`,
		`{"a":1}x`,
		`{"a":"\q"}`,
		`{"a":-}`,
		`{"a":"unterminated}`,
		`[1,2]`,
		`"str"`,
		`{a:1}`,
	} {
		_, err := s.d.Deserialize(ctx, []byte(line))
		s.ErrorIs(err, errs.ErrCorruption, line)
	}
}

func (s *DeserializerTestSuite) TestContext() {
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := s.d.Deserialize(cancelled, []byte(`{}`))
	s.ErrorIs(err, context.Canceled)
	_, err = NewMsgpack().Deserialize(cancelled, []byte(``))
	s.ErrorIs(err, context.Canceled)
}

// Lines written by each serializer are read back by its deserializer.
func (s *DeserializerTestSuite) TestSerializerPairs() {
	original := s.doc(M{
		"_id":  "id1",
		"s":    "multi\nline",
		"n":    1.5,
		"b":    true,
		"z":    nil,
		"d":    time.UnixMilli(1700000000123),
		"list": A{1, "two", M{"three": 3}},
	})
	pairs := map[string]struct {
		ser domain.Serializer
		des domain.Deserializer
	}{
		"json":    {serializer.NewSerializer(), NewDeserializer()},
		"msgpack": {serializer.NewMsgpack(), NewMsgpack()},
	}
	for name, pair := range pairs {
		line, err := pair.ser.Serialize(ctx, original)
		s.Require().NoError(err, name)
		got, err := pair.des.Deserialize(ctx, line)
		s.Require().NoError(err, name)
		s.True(data.Equal(original.Value(), got.Value()), name)
	}
}

func (s *DeserializerTestSuite) TestMsgpackCorrupt() {
	_, err := NewMsgpack().Deserialize(ctx, []byte("not base64!"))
	s.ErrorIs(err, errs.ErrCorruption)
	_, err = NewMsgpack().Deserialize(ctx, []byte("AQID"))
	s.ErrorIs(err, errs.ErrCorruption)
}

func TestDeserializerTestSuite(t *testing.T) {
	suite.Run(t, new(DeserializerTestSuite))
}
