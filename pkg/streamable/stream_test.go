package streamable

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/log"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

type StreamSuite struct {
	suite.Suite
}

func (s *StreamSuite) TestRoundTripNoInheritance() {
	p := &point{X: 1.5, Y: -2, Label: "origin", Tags: []string{"a", "b"}}
	raw, err := Serialize(p)
	s.Require().NoError(err)

	s.Equal("Point", raw[KeyClass])
	s.Equal(testModule, raw[KeyModule])
	s.Equal(VersionMap{"ringer.test.Point": 1}, raw[KeyVersionedClasses])
	s.True(IsRawDictFormat(raw))

	obj, err := pointClass.FromRawDict(raw)
	s.Require().NoError(err)
	got := obj.(*point)
	s.Equal(p.X, got.X)
	s.Equal(p.Y, got.Y)
	s.Equal(p.Label, got.Label)
	s.Equal(p.Tags, got.Tags)

	versions := got.ReadVersions()
	s.Equal(VersionMap{"ringer.test.Point": 1}, versions)
	own, ok := got.ReadVersion()
	s.True(ok)
	s.Equal(1, own)
}

func (s *StreamSuite) TestRoundTripOneLevel() {
	c := &circle{shape: shape{Name: "c1", Cache: "scratch"}, Radius: 3}
	raw, err := Serialize(c)
	s.Require().NoError(err)

	s.NotContains(raw, "Cache")
	s.Equal("c1", raw["Name"])
	s.Equal(VersionMap{"ringer.test.Shape": 2, "ringer.test.Circle": 3}, raw[KeyVersionedClasses])

	obj, err := circleClass.FromRawDict(raw)
	s.Require().NoError(err)
	got := obj.(*circle)
	s.Equal("c1", got.Name)
	s.Equal(3.0, got.Radius)
	s.Empty(got.Cache)
	s.Equal(circleClass.Versions(), got.ReadVersions())
}

func (s *StreamSuite) TestRoundTripTwoLevels() {
	r := &ring{circle: circle{shape: shape{Name: "r1"}, Radius: 4}, Inner: 1}
	raw, err := Serialize(r)
	s.Require().NoError(err)
	s.Equal(VersionMap{
		"ringer.test.Shape":  2,
		"ringer.test.Circle": 3,
		"ringer.test.Ring":   5,
	}, raw[KeyVersionedClasses])

	obj, err := Load(testRegistry, raw)
	s.Require().NoError(err)
	got := obj.(*ring)
	s.Equal("r1", got.Name)
	s.Equal(4.0, got.Radius)
	s.Equal(1.0, got.Inner)
	own, _ := got.ReadVersion()
	s.Equal(5, own)
}

func (s *StreamSuite) TestToPublicAndProtected() {
	a := &account{Owner: "ops", Secret: "s3cr3t"}
	raw, err := Serialize(a)
	s.Require().NoError(err)
	s.NotContains(raw, "Secret")
	s.Equal("s3cr3t", raw["secret_token"])

	obj, err := accountClass.FromRawDict(raw)
	s.Require().NoError(err)
	s.Equal("s3cr3t", obj.(*account).Secret)
}

func (s *StreamSuite) TestToPublicMissingAttribute() {
	r := NewRegistry()
	c := registerNode(s.T(), r, ClassSpec{
		Name:     "Missing",
		Module:   "stream",
		Streamer: NewStreamer(WithToPublic("Hidden", "hidden")),
	})
	_, err := Serialize(&node{cls: c, Value: 1})
	s.ErrorIs(err, merr.ErrAttributeNotFound)
}

func (s *StreamSuite) TestNestedObjects() {
	env := &envelope{
		Payload: &point{X: 1, Label: "payload"},
		Points:  []*point{{X: 2}, {X: 3}},
		Index:   map[string]*point{"home": {Label: "home"}},
	}
	raw, err := Serialize(env)
	s.Require().NoError(err)
	s.True(IsRawDictFormat(raw["Payload"]))
	s.Len(raw["Points"], 2)

	obj, err := envelopeClass.FromRawDict(raw)
	s.Require().NoError(err)
	got := obj.(*envelope)
	s.Require().IsType(&point{}, got.Payload)
	s.Equal("payload", got.Payload.(*point).Label)
	s.Require().Len(got.Points, 2)
	s.Equal(3.0, got.Points[1].X)
	s.Equal("home", got.Index["home"].Label)
}

func (s *StreamSuite) TestIgnoreRawChildren() {
	raw, err := Serialize(&envelope{Payload: &point{X: 7}})
	s.Require().NoError(err)

	obj, err := envelopeClass.FromRawDict(raw, WithConverterOptions(WithIgnoreRawChildren(true)))
	s.Require().NoError(err)
	payload, ok := obj.(*envelope).Payload.(RawDict)
	s.Require().True(ok)
	s.Equal("Point", payload.ClassName())

	// 派生的 Converter 不影响类自身的配置。
	s.False(envelopeClass.Converter().IgnoreRawChildren())
}

func (s *StreamSuite) TestUnresolvableNestedClass() {
	ghost := map[string]any{
		KeyClass:            "Ghost",
		KeyModule:           "nowhere",
		KeyVersionedClasses: map[string]any{"nowhere.Ghost": 1},
		"Boo":               true,
	}
	raw := RawDict{
		KeyClass:            "Envelope",
		KeyModule:           testModule,
		KeyVersionedClasses: map[string]any{"ringer.test.Envelope": 1},
		"Payload":           ghost,
	}
	logs := log.ObserveForTest(s.T(), zap.DebugLevel)
	obj, err := envelopeClass.FromRawDict(raw)
	s.Require().NoError(err)
	s.Equal(ghost, obj.(*envelope).Payload)

	entries := logs.FilterMessage("couldn't convert raw dict to an instance").All()
	s.Require().Len(entries, 1)
	s.Equal(zap.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	s.Equal("nowhere", fields["module"])
	s.Equal("Ghost", fields["rawClass"])
	s.Equal("converter", fields["component"])
}

func (s *StreamSuite) TestReadVersionsSurviveCopy() {
	obj, err := pointClass.FromRawDict(RawDict{
		KeyClass:            "Point",
		KeyModule:           testModule,
		KeyVersionedClasses: VersionMap{"ringer.test.Point": 1},
		"X":                 1.0,
	})
	s.Require().NoError(err)
	copied := *obj.(*point)
	own, ok := copied.ReadVersion()
	s.True(ok)
	s.Equal(1, own)
	s.Equal(VersionMap{"ringer.test.Point": 1}, copied.ReadVersions())
}

func (s *StreamSuite) TestLegacyVersion() {
	raw := RawDict{
		KeyClass:         "Ring",
		KeyModule:        testModule,
		KeyLegacyVersion: 3,
		"Name":           "legacy",
		"Radius":         2,
	}
	s.True(IsRawDictFormat(raw))
	s.True(IsLegacyFormat(raw))

	obj, err := ringClass.FromRawDict(raw)
	s.Require().NoError(err)
	got := obj.(*ring)
	s.Equal(VersionMap{
		"ringer.test.Shape":  3,
		"ringer.test.Circle": 3,
		"ringer.test.Ring":   3,
	}, got.ReadVersions())
	s.Equal(2.0, got.Radius)
}

func (s *StreamSuite) TestMissingVersionDefaultsToZero() {
	raw := RawDict{KeyClass: "Circle", KeyModule: testModule, "Radius": 1.0}
	s.False(IsRawDictFormat(raw))

	obj, err := circleClass.FromRawDict(raw)
	s.Require().NoError(err)
	s.Equal(VersionMap{"ringer.test.Shape": 0, "ringer.test.Circle": 0}, obj.(*circle).ReadVersions())
}

func (s *StreamSuite) TestDecodedNumbers() {
	raw := RawDict{
		KeyClass:  "Circle",
		KeyModule: testModule,
		KeyVersionedClasses: map[string]any{
			"ringer.test.Shape":  float64(2),
			"ringer.test.Circle": json.Number("3"),
		},
		"Radius": json.Number("1.25"),
	}
	obj, err := circleClass.FromRawDict(raw)
	s.Require().NoError(err)
	s.Equal(circleClass.Versions(), obj.(*circle).ReadVersions())
	s.Equal(1.25, obj.(*circle).Radius)
}

func (s *StreamSuite) TestMissingVersionedClass() {
	raw := RawDict{
		KeyClass:            "Circle",
		KeyModule:           testModule,
		KeyVersionedClasses: VersionMap{"ringer.test.Circle": 3},
	}
	_, err := circleClass.FromRawDict(raw)
	s.ErrorIs(err, merr.ErrVersionNotFound)
}

func (s *StreamSuite) TestExtraVersionedClassIgnored() {
	raw := RawDict{
		KeyClass:            "Circle",
		KeyModule:           testModule,
		KeyVersionedClasses: VersionMap{"ringer.test.Circle": 3, "ringer.test.Shape": 2, "gone.Mixin": 9},
	}
	obj, err := circleClass.FromRawDict(raw)
	s.Require().NoError(err)
	s.NotContains(obj.(*circle).ReadVersions(), "gone.Mixin")
}

func (s *StreamSuite) TestOldClasses() {
	raw := RawDict{
		KeyClass:            "Circle",
		KeyModule:           testModule,
		KeyVersionedClasses: VersionMap{"ringer.test.OldShape": 1, "ringer.test.Circle": 3},
	}
	obj, err := circleClass.FromRawDict(raw, WithConverterOptions(WithOldClass("OldShape", "Shape")))
	s.Require().NoError(err)
	s.Equal(VersionMap{"ringer.test.Shape": 1, "ringer.test.Circle": 3}, obj.(*circle).ReadVersions())

	raw[KeyVersionedClasses] = VersionMap{"legacy.shapes.Shape": 1, "ringer.test.Circle": 3}
	obj, err = circleClass.FromRawDict(raw, WithConverterOptions(WithOldClass("legacy.shapes.Shape", "ringer.test.Shape")))
	s.Require().NoError(err)
	s.Equal(1, obj.(*circle).ReadVersions()["ringer.test.Shape"])
}

func (s *StreamSuite) TestMigrationHook() {
	r := NewRegistry()
	c := registerNode(s.T(), r, ClassSpec{
		Name:    "Counter",
		Module:  "stream",
		Version: Version(2),
		Converter: NewConverter(
			WithIgnore("count"),
			WithTreatObj(func(_ *Converter, obj Object, raw RawDict) (Object, error) {
				n := obj.(*node)
				if v, _ := n.ReadVersion(); v < 2 {
					count, err := toVersion(raw["count"])
					if err != nil {
						return nil, err
					}
					n.Value = count
				}
				return n, nil
			}),
		),
	})

	old := RawDict{KeyClass: "Counter", KeyModule: "stream", KeyVersionedClasses: VersionMap{"stream.Counter": 1}, "count": 12}
	obj, err := c.FromRawDict(old)
	s.Require().NoError(err)
	s.Equal(12, obj.(*node).Value)

	current, err := Serialize(&node{cls: c, Value: 5})
	s.Require().NoError(err)
	obj, err = c.FromRawDict(current)
	s.Require().NoError(err)
	s.Equal(5, obj.(*node).Value)
}

func (s *StreamSuite) TestWorkOnCopy() {
	r := NewRegistry()
	c := registerNode(s.T(), r, ClassSpec{
		Name:   "Mutating",
		Module: "stream",
		Converter: NewConverter(WithConvertPreCall(func(obj Object, raw RawDict) (Object, RawDict, error) {
			delete(raw, "Value")
			return obj, raw, nil
		})),
	})
	raw, err := Serialize(&node{cls: c, Value: 3})
	s.Require().NoError(err)

	_, err = c.FromRawDict(raw, WithWorkOnCopy())
	s.Require().NoError(err)
	s.Contains(raw, "Value")

	_, err = c.FromRawDict(raw)
	s.Require().NoError(err)
	s.NotContains(raw, "Value")
}

func (s *StreamSuite) TestHooks() {
	r := NewRegistry()
	var calls []string
	c := registerNode(s.T(), r, ClassSpec{
		Name:   "Hooked",
		Module: "stream",
		Streamer: NewStreamer(
			WithStreamPreCall(func(obj Object) error {
				calls = append(calls, "pre")
				obj.(*node).Value++
				return nil
			}),
			WithTreatDict(func(_ *Streamer, obj Object, raw RawDict) (RawDict, error) {
				calls = append(calls, "treat")
				raw["extra"] = "added"
				return raw, nil
			}),
		),
	})
	raw, err := Serialize(&node{cls: c, Value: 1})
	s.Require().NoError(err)
	s.Equal([]string{"pre", "treat"}, calls)
	s.Equal(2, raw["Value"])
	s.Equal("added", raw["extra"])

	failing := registerNode(s.T(), r, ClassSpec{
		Name:     "Failing",
		Module:   "stream",
		Streamer: NewStreamer(WithStreamPreCall(func(Object) error { return errors.New("not ready") })),
	})
	_, err = Serialize(&node{cls: failing})
	s.EqualError(err, "not ready")
}

func (s *StreamSuite) TestUnknownAttributeSkipped() {
	raw, err := Serialize(&point{X: 1})
	s.Require().NoError(err)
	raw["Removed"] = "stale"

	obj, err := pointClass.FromRawDict(raw)
	s.Require().NoError(err)
	s.Equal(1.0, obj.(*point).X)
}

func (s *StreamSuite) TestInvalidAttribute() {
	raw, err := Serialize(&point{X: 1})
	s.Require().NoError(err)
	raw["X"] = "not a number"

	_, err = pointClass.FromRawDict(raw)
	s.ErrorIs(err, merr.ErrAttributeInvalid)
}

func (s *StreamSuite) TestNotStreamable() {
	_, err := Serialize(&node{})
	s.ErrorIs(err, merr.ErrClassNotStreamable)
	_, err = Serialize(nil)
	s.ErrorIs(err, merr.ErrParameterMissing)

	_, err = Load(testRegistry, RawDict{"X": 1})
	s.ErrorIs(err, merr.ErrRawDictInvalid)
}

type customPoint struct {
	point
}

var customPointClass = testRegistry.MustRegister(ClassSpec{
	Name:   "CustomPoint",
	Module: testModule,
	New:    func() Object { return &customPoint{} },
})

func (*customPoint) Class() *Class { return customPointClass }

func (c *customPoint) ToRawDict() (RawDict, error) {
	return RawDict{
		KeyClass:            "CustomPoint",
		KeyModule:           testModule,
		KeyVersionedClasses: customPointClass.Versions(),
		"xy":                []float64{c.X, c.Y},
	}, nil
}

func (c *customPoint) FromRawDict(raw RawDict) error {
	xy, ok := raw["xy"].([]float64)
	if !ok || len(xy) != 2 {
		return merr.WrapErrRawDictInvalid("xy must hold two numbers")
	}
	c.X, c.Y = xy[0], xy[1]
	return nil
}

func (s *StreamSuite) TestMarshalerOverride() {
	raw, err := Serialize(&envelope{Payload: &customPoint{point: point{X: 1, Y: 2}}})
	s.Require().NoError(err)
	payload := raw["Payload"].(RawDict)
	s.Equal([]float64{1, 2}, payload["xy"])

	obj, err := envelopeClass.FromRawDict(raw)
	s.Require().NoError(err)
	got := obj.(*envelope).Payload.(*customPoint)
	s.Equal(2.0, got.Y)
}

func TestStream(t *testing.T) {
	suite.Run(t, new(StreamSuite))
}

func TestConverterIgnoreIsAnchored(t *testing.T) {
	c := NewConverter(WithIgnore("_.*", "cache"))
	require.NoError(t, c.err)
	assert.True(t, c.Ignored("_tmp"))
	assert.True(t, c.Ignored("cache"))
	assert.False(t, c.Ignored("a_b"))
	assert.False(t, c.Ignored("caches"))

	extended := c.Extend(WithIgnore("extra"))
	assert.True(t, extended.Ignored("extra"))
	assert.False(t, c.Ignored("extra"))
}

func TestUnboundConverter(t *testing.T) {
	_, err := NewConverter().Convert(&point{}, RawDict{})
	assert.ErrorIs(t, err, merr.ErrOperationNotSupported)
}
