package typedlist

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/ringercore-go/pkg/fileio"
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

var (
	testRegistry = streamable.NewRegistry()

	stringType   = reflect.TypeOf("")
	floatType    = reflect.TypeOf(0.0)
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

type station struct {
	streamable.Base
	Code string
}

var stationClass = testRegistry.MustRegister(streamable.ClassSpec{
	Name:   "Station",
	Module: "ringer.typedlist",
	New:    func() streamable.Object { return &station{} },
})

func (*station) Class() *streamable.Class { return stationClass }

func (s *station) String() string { return s.Code }

var (
	stationListClass = MustRegister(testRegistry, Spec{
		Name:     "StationList",
		Module:   "ringer.typedlist",
		Version:  streamable.Version(2),
		Accepted: []reflect.Type{reflect.TypeOf(&station{})},
	})
	labelListClass = MustRegister(testRegistry, Spec{
		Name:     "LabelList",
		Module:   "ringer.typedlist",
		Accepted: []reflect.Type{stringType, floatType},
	})
	countListClass = MustRegister(testRegistry, Spec{
		Name:     "CountList",
		Module:   "ringer.typedlist",
		Accepted: []reflect.Type{reflect.TypeOf(0)},
	})
	byteListClass = MustRegister(testRegistry, Spec{
		Name:     "ByteList",
		Module:   "ringer.typedlist",
		Accepted: []reflect.Type{reflect.TypeOf(uint8(0))},
	})
)

type ListSuite struct {
	suite.Suite
}

func (s *ListSuite) TestNewRequiresTypes() {
	_, err := New("empty")
	s.ErrorIs(err, merr.ErrParameterMissing)
	_, err = Register(testRegistry, Spec{Name: "NoTypes", Module: "ringer.typedlist"})
	s.ErrorIs(err, merr.ErrParameterMissing)
}

func (s *ListSuite) TestAppendChecksTypes() {
	l, err := New("labels", stringType)
	s.Require().NoError(err)

	s.NoError(l.Append("a", "b"))
	err = l.Append("c", 1)
	s.ErrorIs(err, merr.ErrNotAllowedType)
	s.Contains(err.Error(), "labels")
	s.Contains(err.Error(), "type=int")
	s.Equal(2, l.Len())

	s.ErrorIs(l.Append(nil), merr.ErrNotAllowedType)
}

func (s *ListSuite) TestInterfaceAccepted() {
	l, err := New("named", stringerType)
	s.Require().NoError(err)
	s.NoError(l.Append(&station{Code: "X1"}))
	s.False(l.Accepts("plain"))
}

func (s *ListSuite) TestIndexing() {
	l, err := New("labels", stringType)
	s.Require().NoError(err)
	s.Require().NoError(l.Extend([]any{"a", "b"}))

	s.NoError(l.Set(1, "z"))
	v, err := l.Get(1)
	s.NoError(err)
	s.Equal("z", v)

	s.ErrorIs(l.Set(2, "y"), merr.ErrIndexOutOfRange)
	s.ErrorIs(l.Set(0, 3.0), merr.ErrNotAllowedType)
	_, err = l.Get(-1)
	s.ErrorIs(err, merr.ErrIndexOutOfRange)

	var seen []any
	l.Each(func(_ int, v any) bool {
		seen = append(seen, v)
		return false
	})
	s.Equal([]any{"a"}, seen)

	items := l.Items()
	items[0] = "mutated"
	first, _ := l.Get(0)
	s.Equal("a", first)
}

func (s *ListSuite) TestConcat() {
	a, err := Make(labelListClass, "a", 1.0)
	s.Require().NoError(err)
	b, err := Make(labelListClass, "b")
	s.Require().NoError(err)

	c, err := a.Concat(b)
	s.Require().NoError(err)
	s.Equal([]any{"a", 1.0, "b"}, c.Items())
	s.Equal(2, a.Len())
	s.Same(labelListClass, c.Class())

	strict, err := New("strict", stringType)
	s.Require().NoError(err)
	_, err = strict.Concat(a)
	s.ErrorIs(err, merr.ErrNotAllowedType)
}

func (s *ListSuite) TestAcceptedTypesSorted() {
	l, err := Make(labelListClass)
	s.Require().NoError(err)
	s.Equal([]reflect.Type{floatType, stringType}, l.AcceptedTypes())
	s.Equal("LabelList", l.Name())
}

func (s *ListSuite) TestRoundTrip() {
	l, err := Make(stationListClass, &station{Code: "A"}, &station{Code: "B"})
	s.Require().NoError(err)

	raw, err := streamable.Serialize(l)
	s.Require().NoError(err)
	s.Equal("StationList", raw[streamable.KeyClass])
	items, ok := raw[ItemsKey].([]any)
	s.Require().True(ok)
	s.Require().Len(items, 2)
	s.True(streamable.IsRawDictFormat(items[0]))

	obj, err := stationListClass.FromRawDict(raw)
	s.Require().NoError(err)
	got := obj.(*List)
	s.Require().Equal(2, got.Len())
	second, _ := got.Get(1)
	s.Equal("B", second.(*station).Code)
	own, _ := got.ReadVersion()
	s.Equal(2, own)
}

func (s *ListSuite) TestRoundTripWithoutRehydration() {
	l, err := Make(stationListClass, &station{Code: "A"})
	s.Require().NoError(err)
	raw, err := streamable.Serialize(l)
	s.Require().NoError(err)

	_, err = stationListClass.FromRawDict(raw, streamable.WithConverterOptions(streamable.WithIgnoreRawChildren(true)))
	s.ErrorIs(err, merr.ErrNotAllowedType)
}

func (s *ListSuite) TestBadItems() {
	raw := streamable.RawDict{
		streamable.KeyClass:            "LabelList",
		streamable.KeyModule:           "ringer.typedlist",
		streamable.KeyVersionedClasses: streamable.VersionMap{"ringer.typedlist.LabelList": 1},
		ItemsKey:                       "not a list",
	}
	_, err := labelListClass.FromRawDict(raw)
	s.ErrorIs(err, merr.ErrRawDictInvalid)
}

func (s *ListSuite) TestNumbersThroughFile() {
	dir := s.T().TempDir()
	for _, format := range []fileio.Format{fileio.FormatJSON, fileio.FormatProto} {
		s.Run(format.String(), func() {
			counts, err := Make(countListClass, 1, -2, 1<<40)
			s.Require().NoError(err)
			name, err := fileio.Save(context.Background(), counts, filepath.Join(dir, "counts_"+format.String()), fileio.WithFormat(format))
			s.Require().NoError(err)
			rec, err := fileio.Load(context.Background(), name, fileio.WithHighLevelObject(testRegistry))
			s.Require().NoError(err)
			s.Equal([]any{1, -2, 1 << 40}, rec.Object.(*List).Items())

			labels, err := Make(labelListClass, "a", 2.0, 0.5)
			s.Require().NoError(err)
			name, err = fileio.Save(context.Background(), labels, filepath.Join(dir, "labels_"+format.String()), fileio.WithFormat(format))
			s.Require().NoError(err)
			rec, err = fileio.Load(context.Background(), name, fileio.WithHighLevelObject(testRegistry))
			s.Require().NoError(err)
			s.Equal([]any{"a", 2.0, 0.5}, rec.Object.(*List).Items())
		})
	}
}

func (s *ListSuite) TestLossyNumbersRejected() {
	raw := func(class string, items ...any) streamable.RawDict {
		return streamable.RawDict{
			streamable.KeyClass:            class,
			streamable.KeyModule:           "ringer.typedlist",
			streamable.KeyVersionedClasses: streamable.VersionMap{"ringer.typedlist." + class: 1},
			ItemsKey:                       items,
		}
	}
	obj, err := byteListClass.FromRawDict(raw("ByteList", int64(7), float64(255)))
	s.Require().NoError(err)
	s.Equal([]any{uint8(7), uint8(255)}, obj.(*List).Items())

	for _, bad := range []any{int64(256), int64(-1), 1.5} {
		_, err = byteListClass.FromRawDict(raw("ByteList", bad))
		s.ErrorIs(err, merr.ErrNotAllowedType, "%v", bad)
	}
	_, err = countListClass.FromRawDict(raw("CountList", 2.5))
	s.ErrorIs(err, merr.ErrNotAllowedType)
}

func TestList(t *testing.T) {
	suite.Run(t, new(ListSuite))
}

func TestUnregisteredListNotStreamable(t *testing.T) {
	l, err := New("loose", stringType)
	require.NoError(t, err)
	_, err = streamable.Serialize(l)
	assert.ErrorIs(t, err, merr.ErrClassNotStreamable)
}
