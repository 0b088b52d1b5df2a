package machine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/machine-storage/fluid"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/item"
	"github.com/warp/machine-storage/machine"
)

func tick(t *testing.T, m *machine.Machine, n int) {
	t.Helper()
	for range n {
		tx := generic.OpenTransaction()
		err := m.Type().Behaviour.Tick(context.Background(), m, tx)
		if err != nil {
			tx.Close()
			require.NoError(t, err)
		}
		tx.Commit()
	}
}

func fill(t *testing.T, m *machine.Machine, group string, typ *item.Type, amount generic.Amount) {
	t.Helper()
	commit(t, func(tx *generic.Transaction) {
		g, ok := m.Items().Group(group)
		require.True(t, ok, group)
		inserted, err := g.Insert(item.Of(typ), amount, tx)
		require.NoError(t, err)
		require.Equal(t, amount, inserted)
	})
}

// =============================================================================
// GENERATOR
// =============================================================================

func TestGenerator_BurnsFuel(t *testing.T) {
	// GIVEN: A generator with two coal, each burning for three ticks
	// WHEN: It ticks seven times
	// THEN: Both coal burn one after the other and it then idles

	f := newFixture(t)
	gen := f.newMachine(t, f.generator)
	coal := f.item(t, "coal")
	fill(t, gen, "fuel", coal, 2)
	fuel, _ := gen.Items().Group("fuel")

	tick(t, gen, 1)
	assert.Equal(t, generic.Amount(50), gen.Energy().Amount())
	assert.Equal(t, int64(2), gen.Progress())
	assert.Equal(t, generic.Amount(1), fuel.Count(item.Of(coal)))
	assert.Same(t, machine.StatusActive, gen.Status())

	tick(t, gen, 3)
	assert.Equal(t, generic.Amount(200), gen.Energy().Amount())
	assert.Equal(t, int64(2), gen.Progress())
	assert.True(t, fuel.IsEmpty())

	tick(t, gen, 3)
	assert.Equal(t, generic.Amount(300), gen.Energy().Amount())
	assert.Same(t, machine.StatusIdle, gen.Status())
}

func TestGenerator_LavaLeavesBucket(t *testing.T) {
	f := newFixture(t)
	gen := f.newMachine(t, f.generator)
	bucket := f.item(t, "bucket")
	fill(t, gen, "fuel", f.item(t, "lava_bucket"), 1)

	tick(t, gen, 5)
	fuel, _ := gen.Items().Group("fuel")
	assert.Equal(t, generic.Amount(1), fuel.Count(item.Of(bucket)))
	assert.Equal(t, generic.Amount(250), gen.Energy().Amount())
	assert.Zero(t, gen.Progress())

	tick(t, gen, 1)
	assert.Same(t, machine.StatusIdle, gen.Status())
	assert.Equal(t, generic.Amount(1), fuel.Count(item.Of(bucket)), "buckets are not fuel")
}

func TestGenerator_Gates(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, m *machine.Machine)
		want  *machine.Status
	}{
		{
			name: "capacitor full",
			setup: func(t *testing.T, m *machine.Machine) {
				require.NoError(t, m.Energy().SetAmount(1000))
			},
			want: machine.StatusCapacitorFull,
		},
		{
			name: "redstone disabled",
			setup: func(t *testing.T, m *machine.Machine) {
				m.SetRedstone(machine.RedstoneHigh)
			},
			want: machine.StatusDisabled,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			gen := f.newMachine(t, f.generator)
			coal := f.item(t, "coal")
			fill(t, gen, "fuel", coal, 1)
			tc.setup(t, gen)

			tick(t, gen, 1)
			assert.Same(t, tc.want, gen.Status())
			fuel, _ := gen.Items().Group("fuel")
			assert.Equal(t, generic.Amount(1), fuel.Count(item.Of(coal)), "no fuel burnt")
		})
	}
}

// =============================================================================
// PROCESSOR
// =============================================================================

func TestProcessor_SmeltsOre(t *testing.T) {
	// GIVEN: A powered furnace with two ore and a two tick recipe
	// WHEN: It ticks
	// THEN: Each ingot takes two ticks and ten energy per tick

	f := newFixture(t)
	furnace := f.newMachine(t, f.furnace)
	ore, ingot := f.item(t, "iron_ore"), f.item(t, "iron_ingot")
	fill(t, furnace, "input", ore, 2)
	require.NoError(t, furnace.Energy().SetAmount(100))
	input, _ := furnace.Items().Group("input")
	output, _ := furnace.Items().Group("output")

	tick(t, furnace, 1)
	assert.Equal(t, int64(1), furnace.Progress())
	assert.Equal(t, generic.Amount(2), input.Count(item.Of(ore)))
	assert.Equal(t, generic.Amount(90), furnace.Energy().Amount())

	tick(t, furnace, 1)
	assert.Zero(t, furnace.Progress())
	assert.Equal(t, generic.Amount(1), input.Count(item.Of(ore)))
	assert.Equal(t, generic.Amount(1), output.Count(item.Of(ingot)))

	tick(t, furnace, 2)
	assert.True(t, input.IsEmpty())
	assert.Equal(t, generic.Amount(2), output.Count(item.Of(ingot)))
	assert.Equal(t, generic.Amount(60), furnace.Energy().Amount())
	assert.Same(t, machine.StatusActive, furnace.Status())

	tick(t, furnace, 1)
	assert.Same(t, machine.StatusIdle, furnace.Status())
}

func TestProcessor_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, f *fixture, m *machine.Machine)
		want   *machine.Status
		energy generic.Amount
	}{
		{
			name: "not enough energy",
			setup: func(t *testing.T, f *fixture, m *machine.Machine) {
				fill(t, m, "input", f.item(t, "iron_ore"), 1)
				require.NoError(t, m.Energy().SetAmount(5))
			},
			want:   machine.StatusNotEnoughEnergy,
			energy: 5,
		},
		{
			name: "invalid recipe",
			setup: func(t *testing.T, f *fixture, m *machine.Machine) {
				fill(t, m, "input", f.item(t, "stone"), 1)
				require.NoError(t, m.Energy().SetAmount(100))
			},
			want:   machine.StatusInvalidRecipe,
			energy: 100,
		},
		{
			name: "output blocked",
			setup: func(t *testing.T, f *fixture, m *machine.Machine) {
				fill(t, m, "input", f.item(t, "iron_ore"), 1)
				fill(t, m, "output", f.item(t, "stone"), 64)
				require.NoError(t, m.Energy().SetAmount(100))
			},
			want:   machine.StatusOutputBlocked,
			energy: 100,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			furnace := f.newMachine(t, f.furnace)
			tc.setup(t, f, furnace)

			tick(t, furnace, 1)
			assert.Same(t, tc.want, furnace.Status())
			assert.Equal(t, tc.energy, furnace.Energy().Amount())
			assert.Zero(t, furnace.Progress())
		})
	}
}

func TestProcessor_MeltsIntoTank(t *testing.T) {
	f := newFixture(t)
	melter := f.newMachine(t, f.melter)
	lava := f.fluid(t, "lava")
	fill(t, melter, "input", f.item(t, "stone"), 8)
	require.NoError(t, melter.Energy().SetAmount(1000))

	tick(t, melter, 4)
	tank := melter.Fluids().Slot(0)
	assert.Equal(t, fluid.Of(lava), tank.Variant())
	assert.Equal(t, fluid.Bucket, tank.Amount())

	tick(t, melter, 1)
	assert.Same(t, machine.StatusOutputBlocked, melter.Status())
	input, _ := melter.Items().Group("input")
	assert.Equal(t, generic.Amount(4), input.Count(item.Of(f.item(t, "stone"))))
}

func TestProcessor_AbortedTickChangesNothing(t *testing.T) {
	f := newFixture(t)
	furnace := f.newMachine(t, f.furnace)
	fill(t, furnace, "input", f.item(t, "iron_ore"), 1)
	require.NoError(t, furnace.Energy().SetAmount(100))
	tick(t, furnace, 1)

	tx := generic.OpenTransaction()
	require.NoError(t, furnace.Type().Behaviour.Tick(context.Background(), furnace, tx))
	tx.Abort()

	assert.Equal(t, int64(1), furnace.Progress())
	assert.Equal(t, generic.Amount(90), furnace.Energy().Amount())
	input, _ := furnace.Items().Group("input")
	assert.Equal(t, generic.Amount(1), input.Count(item.Of(f.item(t, "iron_ore"))))
	assert.Nil(t, furnace.Items().Slot(1).Resource(), "no ingot produced")
}
