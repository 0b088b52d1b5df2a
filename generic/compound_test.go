package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/machine-storage/generic"
)

func TestCompound_DecodeNormalizes(t *testing.T) {
	original := generic.Compound{
		"count":  int64(3),
		"ratio":  0.5,
		"name":   "moon",
		"nested": generic.Compound{"deep": []any{int64(1), "two"}},
	}
	encoded, err := original.Encode()
	require.NoError(t, err)

	decoded, err := generic.DecodeCompound(encoded)
	require.NoError(t, err)

	assert.True(t, original.Equal(decoded))
	assert.Equal(t, int64(3), decoded.Int64("count"))
	assert.Equal(t, "moon", decoded.String("name"))
	assert.Equal(t, []any{int64(1), "two"}, decoded.Compound("nested").List("deep"))
}

func TestCompound_Equal(t *testing.T) {
	assert.True(t, generic.Compound(nil).Equal(generic.Compound{}))
	assert.True(t, generic.Compound{"a": 1}.Equal(generic.Compound{"a": int64(1)}))
	assert.False(t, generic.Compound{"a": 1}.Equal(generic.Compound{"a": 2}))
	assert.False(t, generic.Compound{"a": 1}.Equal(generic.Compound{"b": 1}))
}

func TestCompound_GettersDefault(t *testing.T) {
	c := generic.Compound{"s": 5, "n": "five", "c": "not a compound"}

	assert.Equal(t, "", c.String("s"))
	assert.Equal(t, int64(0), c.Int64("n"))
	assert.Equal(t, int64(7), c.Int64Or("missing", 7))
	assert.Nil(t, c.Compound("c"))
	assert.Nil(t, c.List("missing"))
	assert.False(t, c.Bool("missing"))
}

func TestCompound_DecodeErrors(t *testing.T) {
	_, err := generic.DecodeCompound([]byte("{not json"))
	assert.Error(t, err)

	c, err := generic.DecodeCompound(nil)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestVariant_Equality(t *testing.T) {
	a := generic.NewVariant("ore", generic.Compound{"purity": 1})
	b := generic.NewVariant("ore", generic.Compound{"purity": int64(1)})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(generic.Of("ore")))
	assert.True(t, generic.NewVariant("ore", generic.Compound{}).Equal(generic.Of("ore")), "empty tag is no tag")
	assert.True(t, generic.NewVariant("", generic.Compound{"x": 1}).IsBlank())
	assert.True(t, a.IsOf("ore"))
}
