package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/machine-storage/generic"
)

func TestMove_BetweenExposedViews(t *testing.T) {
	// GIVEN: A furnace output holding 10 ingots and a chest with room for 6
	// WHEN: A pipe moves up to 8 ingots
	// THEN: 6 move; the furnace keeps 4

	furnace := machineStorage(t)
	require.NoError(t, furnace.Slot(3).Set(v("ingot"), 10))
	chest := newStorage(t, 1, 6)

	from := furnace.Expose(generic.FlowOutput, generic.Selection{})
	to := chest.Expose(generic.FlowInput, generic.Selection{})

	commit(t, func(tx *generic.Transaction) {
		n, err := generic.Move(v("ingot"), from, to, 8, tx)
		require.NoError(t, err)
		assert.Equal(t, generic.Amount(6), n)
	})
	assert.Equal(t, generic.Amount(4), furnace.Slot(3).Amount())
	assert.Equal(t, generic.Amount(6), chest.Slot(0).Amount())
}

func TestMove_NothingAvailable(t *testing.T) {
	furnace := machineStorage(t)
	chest := newStorage(t, 1, 64)

	commit(t, func(tx *generic.Transaction) {
		n, err := generic.Move(v("ingot"), furnace.Expose(generic.FlowOutput, generic.Selection{}), chest, 8, tx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, tx.Participants())
	})
}

func TestMoveAll(t *testing.T) {
	tests := []struct {
		name       string
		max        generic.Amount
		wantSource []slotContent
		wantTarget []slotContent
	}{
		{
			name:       "budget spent on the first variant",
			max:        4,
			wantSource: []slotContent{{"ore", 6}, {"", 0}, {"dust", 10}},
			wantTarget: []slotContent{{"ore", 4}, {"", 0}},
		},
		{
			name:       "budget spans two variants",
			max:        12,
			wantSource: []slotContent{{"", 0}, {"", 0}, {"dust", 8}},
			wantTarget: []slotContent{{"ore", 10}, {"dust", 2}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			source := newStorage(t, 3, 64)
			require.NoError(t, source.Slot(0).Set(v("ore"), 10))
			require.NoError(t, source.Slot(2).Set(v("dust"), 10))
			target := newStorage(t, 2, 64)

			commit(t, func(tx *generic.Transaction) {
				moved, err := generic.MoveAll(source.Expose(generic.FlowBoth, generic.Selection{}), target, tc.max, tx)
				require.NoError(t, err)
				assert.True(t, moved)
			})
			assert.Equal(t, tc.wantSource, contents(source))
			assert.Equal(t, tc.wantTarget, contents(target))
		})
	}
}

func TestMoveAll_SameVariantInSeveralSlots(t *testing.T) {
	// GIVEN: Two source slots each holding 10 ore
	// WHEN: Everything visible is moved with a limit of 4
	// THEN: Exactly 4 ore move, all from the first slot

	source := newStorage(t, 2, 64)
	require.NoError(t, source.Slot(0).Set(v("ore"), 10))
	require.NoError(t, source.Slot(1).Set(v("ore"), 10))
	target := newStorage(t, 2, 64)

	commit(t, func(tx *generic.Transaction) {
		moved, err := generic.MoveAll(source.Expose(generic.FlowBoth, generic.Selection{}), target, 4, tx)
		require.NoError(t, err)
		assert.True(t, moved)
	})
	assert.Equal(t, []slotContent{{"ore", 6}, {"ore", 10}}, contents(source))
	assert.Equal(t, generic.Amount(4), target.Count(v("ore")))
}

func TestMoveEnergy(t *testing.T) {
	battery := newEnergy(t, 500)
	machine := newEnergy(t, 990)

	commit(t, func(tx *generic.Transaction) {
		n, err := generic.MoveEnergy(battery, machine, 200, tx)
		require.NoError(t, err)
		assert.Equal(t, generic.Amount(10), n, "limited by room in the machine")
	})
	assert.Equal(t, generic.Amount(490), battery.Amount())
	assert.True(t, machine.IsFull())
}
