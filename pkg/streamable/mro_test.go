package streamable

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

func names(classes []*Class) []string {
	return lo.Map(classes, func(c *Class, _ int) string { return c.Name() })
}

func TestLinearize(t *testing.T) {
	o := MustNewPlainClass("O", "mro")
	a := MustNewPlainClass("A", "mro", o)
	b := MustNewPlainClass("B", "mro", o)
	c := MustNewPlainClass("C", "mro", o)
	d := MustNewPlainClass("D", "mro", o)
	e := MustNewPlainClass("E", "mro", o)
	k1 := MustNewPlainClass("K1", "mro", a, b, c)
	k2 := MustNewPlainClass("K2", "mro", d, b, e)
	k3 := MustNewPlainClass("K3", "mro", d, a)
	z := MustNewPlainClass("Z", "mro", k1, k2, k3)

	assert.Equal(t, []string{"K1", "A", "B", "C", "O"}, names(k1.MRO()))
	assert.Equal(t, []string{"Z", "K1", "K2", "K3", "D", "A", "B", "C", "E", "O"}, names(z.MRO()))
	assert.True(t, z.IsSubclassOf(o))
	assert.False(t, a.IsSubclassOf(b))
	assert.False(t, z.Streamable())
}

func TestLinearizeInconsistent(t *testing.T) {
	x := MustNewPlainClass("X", "mro")
	y := MustNewPlainClass("Y", "mro")
	a := MustNewPlainClass("A", "mro", x, y)
	b := MustNewPlainClass("B", "mro", y, x)

	_, err := NewPlainClass("C", "mro", a, b)
	assert.ErrorIs(t, err, merr.ErrInconsistentHierarchy)

	_, err = NewPlainClass("D", "mro", x, x)
	assert.ErrorIs(t, err, merr.ErrInconsistentHierarchy)

	r := NewRegistry()
	_, err = r.Register(ClassSpec{Name: "C", Module: "mro", Bases: []*Class{a, b}, New: func() Object { return &node{} }})
	assert.ErrorIs(t, err, merr.ErrInconsistentHierarchy)
	_, ok := r.Lookup("mro.C")
	assert.False(t, ok)
}

func TestLinearizeNilBase(t *testing.T) {
	_, err := Linearize("broken", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, merr.ErrParameterMissing)
}
