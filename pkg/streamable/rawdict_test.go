package streamable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

func TestIsRawDictFormat(t *testing.T) {
	assert.True(t, IsRawDictFormat(RawDict{KeyClass: "A", KeyModule: "m", KeyVersionedClasses: VersionMap{}}))
	assert.True(t, IsRawDictFormat(map[string]any{KeyClass: "A", KeyModule: "m", KeyLegacyVersion: 1}))
	assert.False(t, IsRawDictFormat(map[string]any{KeyClass: "A", KeyModule: "m"}))
	assert.False(t, IsRawDictFormat(map[string]int{KeyClass: 1}))
	assert.False(t, IsRawDictFormat("class"))
	assert.False(t, IsRawDictFormat(nil))
	assert.False(t, IsRawDictFormat(RawDict(nil)))
}

func TestRawDictAccessors(t *testing.T) {
	raw := RawDict{
		KeyClass:            "Circle",
		KeyModule:           "shapes.flat",
		KeyVersionedClasses: map[string]any{"shapes.flat.Circle": 2.0},
		"Radius":            1.0,
	}
	assert.Equal(t, "Circle", raw.ClassName())
	assert.Equal(t, "shapes.flat", raw.Module())
	assert.Equal(t, "shapes.flat.Circle", raw.QualifiedName())
	assert.Equal(t, map[string]any{"Radius": 1.0}, raw.Attrs())

	versions, modern, err := raw.VersionedClasses()
	require.NoError(t, err)
	assert.True(t, modern)
	assert.Equal(t, VersionMap{"shapes.flat.Circle": 2}, versions)

	raw[KeyVersionedClasses] = []int{1}
	_, _, err = raw.VersionedClasses()
	assert.ErrorIs(t, err, merr.ErrRawDictInvalid)

	raw[KeyVersionedClasses] = map[string]any{"shapes.flat.Circle": "two"}
	_, _, err = raw.VersionedClasses()
	assert.ErrorIs(t, err, merr.ErrRawDictInvalid)
}

func TestRawDictClone(t *testing.T) {
	raw := RawDict{
		"nested": map[string]any{"list": []any{1, map[string]any{"k": "v"}}},
		"floats": []float64{1, 2},
		"dict":   RawDict{"a": 1},
	}
	clone := raw.Clone()
	require.Equal(t, raw, clone)

	clone["nested"].(map[string]any)["list"].([]any)[1].(map[string]any)["k"] = "changed"
	clone["floats"].([]float64)[0] = 9
	clone["dict"].(RawDict)["a"] = 2

	assert.Equal(t, "v", raw["nested"].(map[string]any)["list"].([]any)[1].(map[string]any)["k"])
	assert.Equal(t, 1.0, raw["floats"].([]float64)[0])
	assert.Equal(t, 1, raw["dict"].(RawDict)["a"])
	assert.Nil(t, RawDict(nil).Clone())
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "a.b.C", QualifiedName("a.b", "C"))
	assert.Equal(t, "C", QualifiedName("", "C"))

	module, name := SplitQualifiedName("a.b.C")
	assert.Equal(t, "a.b", module)
	assert.Equal(t, "C", name)

	module, name = SplitQualifiedName("C")
	assert.Empty(t, module)
	assert.Equal(t, "C", name)
}

func TestIsReservedKey(t *testing.T) {
	for _, key := range []string{KeyClass, KeyModule, KeyVersionedClasses, KeyLegacyVersion} {
		assert.True(t, IsReservedKey(key), key)
	}
	assert.False(t, IsReservedKey("items"))
}
