package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/machine-storage/generic"
)

func newSlot(capacity generic.Amount, filter generic.Filter[string]) *generic.Slot[string] {
	return generic.NewSlot[string](newTestKind(), capacity, filter, generic.AccessFor(generic.SlotStorage))
}

// =============================================================================
// INSERT / EXTRACT
// =============================================================================

func TestSlot_Insert_AdoptsVariantAndClampsToCapacity(t *testing.T) {
	slot := newSlot(64, nil)

	commit(t, func(tx *generic.Transaction) {
		n, err := slot.Insert(v("ore"), 100, tx)
		require.NoError(t, err)
		assert.Equal(t, generic.Amount(64), n)
	})

	assert.Equal(t, "ore", slot.Resource())
	assert.Equal(t, generic.Amount(64), slot.Amount())
	assert.True(t, slot.IsFull())
}

func TestSlot_Insert_RespectsKindCapacity(t *testing.T) {
	// pearls stack to 16 even in a 64 slot
	slot := newSlot(64, nil)

	commit(t, func(tx *generic.Transaction) {
		n, err := slot.Insert(v("pearl"), 40, tx)
		require.NoError(t, err)
		assert.Equal(t, generic.Amount(16), n)
	})
	assert.Equal(t, generic.Amount(16), slot.RealCapacity())
	assert.True(t, slot.IsFull())
}

func TestSlot_Insert_DifferentVariantRejected(t *testing.T) {
	slot := newSlot(64, nil)
	commit(t, func(tx *generic.Transaction) { _, _ = slot.Insert(v("ore"), 1, tx) })

	tagged := generic.NewVariant("ore", generic.Compound{"purity": 2})
	commit(t, func(tx *generic.Transaction) {
		n, err := slot.Insert(v("dust"), 5, tx)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = slot.Insert(tagged, 5, tx)
		require.NoError(t, err)
		assert.Zero(t, n, "same resource with another tag is a different variant")
	})
	assert.Equal(t, generic.Amount(1), slot.Amount())
}

func TestSlot_Extract_EmptiedSlotBecomesBlank(t *testing.T) {
	slot := newSlot(64, nil)
	commit(t, func(tx *generic.Transaction) { _, _ = slot.Insert(v("ore"), 10, tx) })

	commit(t, func(tx *generic.Transaction) {
		n, err := slot.Extract(v("ore"), 25, tx)
		require.NoError(t, err)
		assert.Equal(t, generic.Amount(10), n)
	})

	assert.True(t, slot.IsEmpty())
	assert.True(t, slot.Variant().IsBlank())
}

func TestSlot_Extract_BlankMatchesAnything(t *testing.T) {
	slot := newSlot(64, nil)
	commit(t, func(tx *generic.Transaction) { _, _ = slot.Insert(v("ore"), 10, tx) })

	commit(t, func(tx *generic.Transaction) {
		n, err := slot.Extract(v("dust"), 5, tx)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = slot.Extract(generic.Blank[string](), 4, tx)
		require.NoError(t, err)
		assert.Equal(t, generic.Amount(4), n)
	})
	assert.Equal(t, generic.Amount(6), slot.Amount())
}

func TestSlot_InvalidArguments(t *testing.T) {
	slot := newSlot(64, nil)
	tx := generic.OpenTransaction()
	defer tx.Close()

	_, err := slot.Insert(v("ore"), -1, tx)
	assert.ErrorIs(t, err, generic.ErrInvalidArgument)

	_, err = slot.Insert(generic.Blank[string](), 1, tx)
	assert.ErrorIs(t, err, generic.ErrInvalidArgument)

	_, err = slot.Extract(v("ore"), -3, tx)
	assert.ErrorIs(t, err, generic.ErrInvalidArgument)

	_, err = slot.SimulateInsert(v("ore"), -1, nil)
	var argErr *generic.ArgumentError
	assert.ErrorAs(t, err, &argErr)

	assert.Zero(t, tx.Participants(), "invalid calls never touch the slot")
}

// =============================================================================
// FILTER
// =============================================================================

func TestSlot_Filter(t *testing.T) {
	noX := generic.Not(generic.AcceptResources("x"))

	tests := []struct {
		name    string
		content string
		insert  string
		want    generic.Amount
	}{
		{"blank slot accepts allowed variant", "", "y", 10},
		{"blank slot rejects filtered variant", "", "x", 0},
		{"same variant tops up", "y", "y", 10},
		{"filtered variant into occupied slot", "y", "x", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			slot := newSlot(64, noX)
			if tc.content != "" {
				require.NoError(t, slot.Set(v(tc.content), 1))
			}
			before := slot.Variant()

			commit(t, func(tx *generic.Transaction) {
				n, err := slot.Insert(v(tc.insert), 10, tx)
				require.NoError(t, err)
				assert.Equal(t, tc.want, n)
			})
			if tc.want == 0 {
				assert.True(t, slot.Variant().Equal(before), "state unchanged")
			}
		})
	}
}

// =============================================================================
// SIMULATION
// =============================================================================

func TestSlot_Simulate_IsPure(t *testing.T) {
	slot := newSlot(64, nil)
	commit(t, func(tx *generic.Transaction) { _, _ = slot.Insert(v("ore"), 10, tx) })
	mods := slot.Modifications()

	for range 3 {
		n, err := slot.SimulateInsert(v("ore"), 100, nil)
		require.NoError(t, err)
		assert.Equal(t, generic.Amount(54), n)

		n, err = slot.SimulateExtract(v("ore"), 100, nil)
		require.NoError(t, err)
		assert.Equal(t, generic.Amount(10), n)
	}

	assert.Equal(t, "ore", slot.Resource())
	assert.Equal(t, generic.Amount(10), slot.Amount())
	assert.Equal(t, mods, slot.Modifications())
}

func TestSlot_Simulate_InsideOpenTransaction(t *testing.T) {
	slot := newSlot(64, nil)

	tx := generic.OpenTransaction()
	defer tx.Close()
	_, _ = slot.Insert(v("ore"), 60, tx)

	n, err := slot.SimulateInsert(v("ore"), 10, tx)
	require.NoError(t, err)
	assert.Equal(t, generic.Amount(4), n, "simulation sees the uncommitted state")
	assert.Equal(t, generic.Amount(60), slot.Amount())
	assert.True(t, tx.IsOpen())
}

// =============================================================================
// ADMINISTRATIVE AND PERSISTENCE
// =============================================================================

func TestSlot_Set(t *testing.T) {
	slot := newSlot(64, nil)

	require.NoError(t, slot.Set(v("ore"), 500))
	assert.Equal(t, generic.Amount(64), slot.Amount())
	assert.Equal(t, uint64(0), slot.Modifications(), "administrative writes are not modifications")

	require.NoError(t, slot.Set(v("ore"), 0))
	assert.True(t, slot.Variant().IsBlank())

	assert.ErrorIs(t, slot.Set(v("ore"), -1), generic.ErrInvalidArgument)
}

func TestSlot_SaveLoad(t *testing.T) {
	tag := generic.Compound{"purity": int64(3), "origin": "moon"}
	slot := newSlot(64, nil)
	require.NoError(t, slot.Set(generic.NewVariant("ore", tag), 12))

	saved := slot.Save()
	assert.Equal(t, "ore", saved.String("Resource"))
	assert.Equal(t, int64(12), saved.Int64("Amount"))

	loaded := newSlot(64, nil)
	loaded.Load(saved)
	assert.True(t, loaded.Variant().Equal(slot.Variant()))
	assert.Equal(t, generic.Amount(12), loaded.Amount())

	assert.Empty(t, newSlot(64, nil).Save(), "empty slot saves as empty compound")
}

func TestSlot_Load_MalformedDefaultsToEmpty(t *testing.T) {
	tests := []struct {
		name string
		data generic.Compound
	}{
		{"empty", generic.Compound{}},
		{"unknown resource", generic.Compound{"Resource": "unknown", "Amount": int64(5)}},
		{"negative amount", generic.Compound{"Resource": "ore", "Amount": int64(-5)}},
		{"amount wrong type", generic.Compound{"Resource": "ore", "Amount": "lots"}},
		{"resource wrong type", generic.Compound{"Resource": 7, "Amount": int64(5)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			slot := newSlot(64, nil)
			require.NoError(t, slot.Set(v("dust"), 3))
			slot.Load(tc.data)
			assert.True(t, slot.IsEmpty())
			assert.True(t, slot.Variant().IsBlank())
		})
	}
}

func TestSlot_Load_ClampsToCapacity(t *testing.T) {
	slot := newSlot(64, nil)
	slot.Load(generic.Compound{"Resource": "pearl", "Amount": int64(40)})
	assert.Equal(t, generic.Amount(16), slot.Amount())
}
