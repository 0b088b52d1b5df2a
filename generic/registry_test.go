package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/machine-storage/generic"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := generic.NewRegistry[generic.GroupType]("group type")

	ordinal, err := r.Register("fuel", generic.NewGroupType("fuel", "Fuel", generic.SlotInput))
	require.NoError(t, err)
	assert.Equal(t, 0, ordinal)

	got, err := r.ByID("fuel")
	require.NoError(t, err)
	assert.Equal(t, "Fuel", got.Name)

	_, err = r.Register("fuel", generic.GroupType{})
	assert.ErrorIs(t, err, generic.ErrDuplicateID)
	assert.True(t, generic.IsClientError(err))

	_, err = r.ByID("missing")
	assert.True(t, generic.IsNotFound(err))
}

func TestRegistry_StableTable(t *testing.T) {
	// GIVEN: A table fixing ordinals for three statuses
	// WHEN: They register in a different order, plus one outside the table
	// THEN: Table ordinals hold and the extra id goes after the table

	r := generic.NewRegistryWithTable[string]("status", []string{"idle", "working", "blocked"})
	r.MustRegister("blocked", "Blocked")
	r.MustRegister("extra", "Extra")
	r.MustRegister("idle", "Idle")

	ordinal, ok := r.Ordinal("blocked")
	require.True(t, ok)
	assert.Equal(t, 2, ordinal)

	ordinal, ok = r.Ordinal("extra")
	require.True(t, ok)
	assert.Equal(t, 3, ordinal)

	_, ok = r.ByOrdinal(1)
	assert.False(t, ok, "reserved but unregistered")
	_, ok = r.Ordinal("working")
	assert.False(t, ok)

	assert.Equal(t, []string{"idle", "blocked", "extra"}, r.IDs())
	assert.Equal(t, 3, r.Len())
}
