package machine_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/warp/machine-storage/fluid"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/item"
	"github.com/warp/machine-storage/machine"
)

var (
	fuelGroup    = generic.NewGroupType("fuel", "Fuel", generic.SlotInput)
	inputGroup   = generic.NewGroupType("input", "Input", generic.SlotInput)
	outputGroup  = generic.NewGroupType("output", "Output", generic.SlotOutput)
	batteryGroup = generic.NewGroupType("battery", "Battery", generic.SlotTransfer)
	storageGroup = generic.NewGroupType("storage", "Storage", generic.SlotStorage)
	tankGroup    = generic.NewGroupType("tank", "Tank", generic.SlotOutput)
)

type fixture struct {
	items  *item.Registry
	fluids *fluid.Registry
	types  *machine.Types

	generator *machine.Type
	furnace   *machine.Type
	melter    *machine.Type
	chest     *machine.Type
}

func (f *fixture) item(t *testing.T, id string) *item.Type {
	t.Helper()
	typ, err := f.items.Get(id)
	require.NoError(t, err)
	return typ
}

func (f *fixture) fluid(t *testing.T, id string) *fluid.Type {
	t.Helper()
	typ, err := f.fluids.Get(id)
	require.NoError(t, err)
	return typ
}

func domain(t *testing.T, statuses []*machine.Status) *machine.StatusDomain {
	t.Helper()
	d, err := machine.NewStatusDomain(statuses...)
	require.NoError(t, err)
	return d
}

// newFixture builds a generator, a furnace, a melter and a chest.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{items: item.NewRegistry(), fluids: fluid.NewRegistry()}
	require.NoError(t, item.Defaults(f.items))
	require.NoError(t, fluid.Defaults(f.fluids))
	f.types = machine.NewTypes(f.items, f.fluids)

	coal, lava := f.item(t, "coal"), f.item(t, "lava_bucket")
	ore, ingot := f.item(t, "iron_ore"), f.item(t, "iron_ingot")
	stone := f.item(t, "stone")

	generator := &machine.Generator{
		FuelGroup:     "fuel",
		EnergyPerTick: 50,
		Fuels:         map[*item.Type]int64{coal: 3, lava: 5},
	}
	f.generator = &machine.Type{
		ID:   "generator",
		Name: "Generator",
		Items: item.NewStorageBuilder(f.items).
			AddSlot(batteryGroup, nil, true, 1, generic.Display{X: 8, Y: 62}).
			AddSlot(fuelGroup, item.Accept(coal, lava, f.item(t, "bucket")), true, 64, generic.Display{X: 80, Y: 49}),
		Fluids:    fluid.NewStorageBuilder(f.fluids),
		Energy:    generic.EnergySpec{Capacity: 1000, MaxInsert: 100, MaxExtract: 100, ExternalExtract: true},
		Statuses:  domain(t, generator.Statuses()),
		Behaviour: generator,
	}

	furnace := &machine.Processor{
		InputGroup:    "input",
		OutputGroup:   "output",
		EnergyPerTick: 10,
		Recipes:       map[*item.Type]machine.Recipe{ore: {OutputItem: ingot, Amount: 1, Ticks: 2}},
	}
	f.furnace = &machine.Type{
		ID:   "furnace",
		Name: "Electric Furnace",
		Items: item.NewStorageBuilder(f.items).
			AddSlot(inputGroup, nil, true, 64, generic.Display{}).
			AddSlot(outputGroup, nil, false, 64, generic.Display{}),
		Fluids:    fluid.NewStorageBuilder(f.fluids),
		Energy:    generic.EnergySpec{Capacity: 1000, MaxInsert: 100, MaxExtract: 100, ExternalInsert: true},
		Statuses:  domain(t, furnace.Statuses()),
		Behaviour: furnace,
	}

	melter := &machine.Processor{
		InputGroup:    "input",
		OutputGroup:   "tank",
		EnergyPerTick: 10,
		Recipes:       map[*item.Type]machine.Recipe{stone: {OutputFluid: f.fluid(t, "lava"), Amount: fluid.Bucket / 4, Ticks: 1}},
	}
	f.melter = &machine.Type{
		ID:   "melter",
		Name: "Melter",
		Items: item.NewStorageBuilder(f.items).
			AddSlot(inputGroup, item.Accept(stone), true, 64, generic.Display{}),
		Fluids: fluid.NewStorageBuilder(f.fluids).
			AddSlot(tankGroup, nil, false, fluid.Bucket, generic.Display{}),
		Energy:    generic.EnergySpec{Capacity: 1000, MaxInsert: 100, MaxExtract: 100, ExternalInsert: true},
		Statuses:  domain(t, melter.Statuses()),
		Behaviour: melter,
	}

	chestIO := machine.IOConfig{}
	for _, face := range machine.Faces {
		chestIO.Set(face, machine.NewIOFace(machine.ResourceItem, generic.FlowBoth))
	}
	builder := item.NewStorageBuilder(f.items)
	for range 4 {
		builder.AddSlot(storageGroup, nil, true, 64, generic.Display{})
	}
	f.chest = &machine.Type{
		ID:        "chest",
		Name:      "Chest",
		Items:     builder,
		Fluids:    fluid.NewStorageBuilder(f.fluids),
		Statuses:  domain(t, nil),
		DefaultIO: chestIO,
	}

	for _, typ := range []*machine.Type{f.generator, f.furnace, f.melter, f.chest} {
		require.NoError(t, f.types.Add(typ))
	}
	return f
}

func (f *fixture) newMachine(t *testing.T, typ *machine.Type) *machine.Machine {
	t.Helper()
	m, err := machine.New(typ, uuid.Nil)
	require.NoError(t, err)
	return m
}

func commit(t *testing.T, fn func(tx *generic.Transaction)) {
	t.Helper()
	tx := generic.OpenTransaction()
	defer tx.Close()
	fn(tx)
	tx.Commit()
}
