package streamable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testModule = "ringer.test"

var testRegistry = NewRegistry()

type point struct {
	Base
	X, Y  float64
	Label string
	Tags  []string
}

var pointClass = testRegistry.MustRegister(ClassSpec{
	Name:   "Point",
	Module: testModule,
	New:    func() Object { return &point{} },
})

func (*point) Class() *Class { return pointClass }

type shape struct {
	Base
	Name  string
	Cache string
}

var shapeClass = testRegistry.MustRegister(ClassSpec{
	Name:     "Shape",
	Module:   testModule,
	Version:  Version(2),
	Streamer: NewStreamer(WithTransient("Cache")),
	New:      func() Object { return &shape{} },
})

func (*shape) Class() *Class { return shapeClass }

type circle struct {
	shape
	Radius float64
}

var circleClass = testRegistry.MustRegister(ClassSpec{
	Name:    "Circle",
	Module:  testModule,
	Bases:   []*Class{shapeClass},
	Version: Version(3),
	New:     func() Object { return &circle{} },
})

func (*circle) Class() *Class { return circleClass }

type ring struct {
	circle
	Inner float64
}

var ringClass = testRegistry.MustRegister(ClassSpec{
	Name:    "Ring",
	Module:  testModule,
	Bases:   []*Class{circleClass},
	Version: Version(5),
	New:     func() Object { return &ring{} },
})

func (*ring) Class() *Class { return ringClass }

type envelope struct {
	Base
	Payload any
	Points  []*point
	Index   map[string]*point
}

var envelopeClass = testRegistry.MustRegister(ClassSpec{
	Name:   "Envelope",
	Module: testModule,
	New:    func() Object { return &envelope{} },
})

func (*envelope) Class() *Class { return envelopeClass }

type account struct {
	Base
	Owner  string
	Secret string
}

var accountClass = testRegistry.MustRegister(ClassSpec{
	Name:      "Account",
	Module:    testModule,
	Streamer:  NewStreamer(WithToPublic("Secret", "secret_token")),
	Converter: NewConverter(WithToProtected("secret_token", "Secret")),
	New:       func() Object { return &account{} },
})

func (*account) Class() *Class { return accountClass }

// node 是测试中按需注册的通用类型，描述符保存在实例上。
type node struct {
	Base
	cls   *Class
	Value int
}

func (n *node) Class() *Class { return n.cls }

func registerNode(t *testing.T, r *Registry, spec ClassSpec) *Class {
	t.Helper()
	var c *Class
	spec.New = func() Object { return &node{cls: c} }
	c, err := r.Register(spec)
	require.NoError(t, err)
	return c
}
