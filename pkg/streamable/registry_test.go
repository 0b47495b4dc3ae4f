package streamable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

type RegistrySuite struct {
	suite.Suite
	registry *Registry
}

func (s *RegistrySuite) SetupTest() {
	s.registry = NewRegistry()
}

func (s *RegistrySuite) TestDefaultVersion() {
	c := registerNode(s.T(), s.registry, ClassSpec{Name: "Plain", Module: "reg"})
	s.Equal(DefaultVersion, c.Version())
	s.Equal(VersionMap{"reg.Plain": 1}, c.Versions())
	s.True(c.Streamable())
	s.Same(s.registry, c.Registry())
}

func (s *RegistrySuite) TestZeroVersionAllowed() {
	c := registerNode(s.T(), s.registry, ClassSpec{Name: "Zero", Module: "reg", Version: Version(0)})
	s.Equal(0, c.Version())
}

func (s *RegistrySuite) TestInvalidVersion() {
	_, err := s.registry.Register(ClassSpec{Name: "Bad", Module: "reg", Version: Version(-1), New: func() Object { return &node{} }})
	s.ErrorIs(err, merr.ErrInvalidVersion)
	_, ok := s.registry.Lookup("reg.Bad")
	s.False(ok)
}

func (s *RegistrySuite) TestMissingFields() {
	_, err := s.registry.Register(ClassSpec{Module: "reg", New: func() Object { return &node{} }})
	s.ErrorIs(err, merr.ErrParameterMissing)
	_, err = s.registry.Register(ClassSpec{Name: "NoFactory", Module: "reg"})
	s.ErrorIs(err, merr.ErrParameterMissing)
}

func (s *RegistrySuite) TestDuplicate() {
	registerNode(s.T(), s.registry, ClassSpec{Name: "Dup", Module: "reg"})
	_, err := s.registry.Register(ClassSpec{Name: "Dup", Module: "reg", New: func() Object { return &node{} }})
	s.ErrorIs(err, merr.ErrClassAlreadyRegistered)

	// 不同模块下的同名类互不冲突。
	registerNode(s.T(), s.registry, ClassSpec{Name: "Dup", Module: "other"})
}

func (s *RegistrySuite) TestResolve() {
	c := registerNode(s.T(), s.registry, ClassSpec{Name: "Found", Module: "reg.sub"})
	got, err := s.registry.Resolve("reg.sub", "Found")
	s.NoError(err)
	s.Same(c, got)

	_, err = s.registry.Resolve("reg.sub", "Missing")
	s.ErrorIs(err, merr.ErrClassNotFound)
}

func (s *RegistrySuite) TestClassesSorted() {
	registerNode(s.T(), s.registry, ClassSpec{Name: "B", Module: "reg"})
	registerNode(s.T(), s.registry, ClassSpec{Name: "A", Module: "reg"})
	s.Equal([]string{"A", "B"}, names(s.registry.Classes()))
}

func (s *RegistrySuite) TestReservedAttribute() {
	type clash struct {
		node
		Kind string `rawdict:"class"`
	}
	_, err := s.registry.Register(ClassSpec{Name: "Clash", Module: "reg", New: func() Object { return &clash{} }})
	s.ErrorIs(err, merr.ErrReservedAttribute)

	_, err = s.registry.Register(ClassSpec{
		Name:     "PublicClash",
		Module:   "reg",
		Streamer: NewStreamer(WithToPublic("Value", KeyModule)),
		New:      func() Object { return &node{} },
	})
	s.ErrorIs(err, merr.ErrReservedAttribute)
}

func (s *RegistrySuite) TestBadIgnorePattern() {
	_, err := s.registry.Register(ClassSpec{
		Name:      "BadPattern",
		Module:    "reg",
		Converter: NewConverter(WithIgnore("(")),
		New:       func() Object { return &node{} },
	})
	s.ErrorIs(err, merr.ErrParameterInvalid)
}

func (s *RegistrySuite) TestStreamerInheritance() {
	s.NotSame(shapeClass.Streamer(), circleClass.Streamer())
	s.NotSame(circleClass.Streamer(), ringClass.Streamer())
	s.Equal([]string{"Cache"}, circleClass.Streamer().Transient())
	s.Equal([]string{"Cache"}, ringClass.Streamer().Transient())
	s.Same(circleClass, circleClass.Streamer().Owner())
	s.Same(shapeClass, shapeClass.Streamer().Owner())
	s.NotSame(shapeClass.Converter(), circleClass.Converter())
	s.Same(ringClass, ringClass.Converter().Owner())
}

func (s *RegistrySuite) TestDeclaredStreamerIsCopied() {
	shared := NewStreamer(WithTransient("Value"))
	a := registerNode(s.T(), s.registry, ClassSpec{Name: "SharedA", Module: "reg", Streamer: shared})
	b := registerNode(s.T(), s.registry, ClassSpec{Name: "SharedB", Module: "reg", Streamer: shared})
	s.NotSame(a.Streamer(), b.Streamer())
	s.Nil(shared.Owner())
	s.Same(a, a.Streamer().Owner())
}

func (s *RegistrySuite) TestVersionMapAccumulation() {
	s.Equal(VersionMap{"ringer.test.Shape": 2}, shapeClass.Versions())
	s.Equal(VersionMap{"ringer.test.Shape": 2, "ringer.test.Circle": 3}, circleClass.Versions())
	s.Equal(VersionMap{
		"ringer.test.Shape":  2,
		"ringer.test.Circle": 3,
		"ringer.test.Ring":   5,
	}, ringClass.Versions())
	s.Equal([]string{"Ring", "Circle", "Shape"}, names(ringClass.VersionedClasses()))
}

func (s *RegistrySuite) TestDiamondWithPlainMiddle() {
	top := registerNode(s.T(), s.registry, ClassSpec{Name: "Top", Module: "dia", Version: Version(4)})
	midA := registerNode(s.T(), s.registry, ClassSpec{Name: "MidA", Module: "dia", Bases: []*Class{top}, Version: Version(2)})
	midB := MustNewPlainClass("MidB", "dia", top)
	leaf := registerNode(s.T(), s.registry, ClassSpec{Name: "Leaf", Module: "dia", Bases: []*Class{midA, midB}})

	s.Equal([]string{"Leaf", "MidA", "MidB", "Top"}, names(leaf.MRO()))
	s.Equal(VersionMap{"dia.Leaf": 1, "dia.MidA": 2, "dia.Top": 4}, leaf.Versions())
	s.Len(leaf.VersionedClasses(), 3)
}

func (s *RegistrySuite) TestDiamondWithDefaultVersionMiddle() {
	top := registerNode(s.T(), s.registry, ClassSpec{Name: "Top", Module: "dia2", Version: Version(4)})
	midA := registerNode(s.T(), s.registry, ClassSpec{Name: "MidA", Module: "dia2", Bases: []*Class{top}, Version: Version(2)})
	midB := registerNode(s.T(), s.registry, ClassSpec{Name: "MidB", Module: "dia2", Bases: []*Class{top}})
	leaf := registerNode(s.T(), s.registry, ClassSpec{Name: "Leaf", Module: "dia2", Bases: []*Class{midA, midB}, Version: Version(7)})

	s.Equal(VersionMap{"dia2.Leaf": 7, "dia2.MidA": 2, "dia2.MidB": 1, "dia2.Top": 4}, leaf.Versions())
	s.Len(leaf.VersionedClasses(), 4)
}

func (s *RegistrySuite) TestNewOnPlainClass() {
	plain := MustNewPlainClass("Mixin", "reg")
	_, err := plain.New()
	s.ErrorIs(err, merr.ErrClassNotStreamable)
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func TestDefaultRegistry(t *testing.T) {
	var c *Class
	c = MustRegister(ClassSpec{Name: "DefaultNode", Module: "ringer.default", New: func() Object { return &node{cls: c} }})
	got, err := DefaultRegistry().Resolve("ringer.default", "DefaultNode")
	require.NoError(t, err)
	assert.Same(t, c, got)

	assert.Panics(t, func() {
		MustRegister(ClassSpec{Name: "DefaultNode", Module: "ringer.default", New: func() Object { return &node{} }})
	})
}
