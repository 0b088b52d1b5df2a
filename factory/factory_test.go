package factory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/machine-storage/factory"
	"github.com/warp/machine-storage/fluid"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/item"
	"github.com/warp/machine-storage/machine"
)

func registries(t *testing.T) (*item.Registry, *fluid.Registry) {
	t.Helper()
	items, fluids := item.NewRegistry(), fluid.NewRegistry()
	require.NoError(t, item.Defaults(items))
	require.NoError(t, fluid.Defaults(fluids))
	return items, fluids
}

func installDefaults(t *testing.T) (*machine.Types, *item.Registry) {
	t.Helper()
	items, fluids := registries(t)
	defs, err := factory.Defaults()
	require.NoError(t, err)
	types := machine.NewTypes(items, fluids)
	_, err = factory.NewResolver(items, fluids).Install(types, defs)
	require.NoError(t, err)
	return types, items
}

func mustItem(t *testing.T, items *item.Registry, id string) *item.Type {
	t.Helper()
	typ, err := items.Get(id)
	require.NoError(t, err)
	return typ
}

// =============================================================================
// DEFAULT DEFINITIONS
// =============================================================================

func TestDefaults_Resolve(t *testing.T) {
	types, items := installDefaults(t)

	ids := make([]string, 0)
	for _, typ := range types.All() {
		ids = append(ids, typ.ID)
	}
	assert.Equal(t, []string{"battery_box", "chest", "electric_furnace", "generator", "melter", "tank"}, ids)

	t.Run("generator", func(t *testing.T) {
		gen, err := types.Get("generator")
		require.NoError(t, err)
		specs := gen.Items.Specs()
		require.Len(t, specs, 2)
		assert.Equal(t, "battery", specs[0].Group.ID)
		assert.False(t, specs[0].Access.ExternalInsert, "battery slots are transfer slots")
		assert.True(t, specs[1].Filter(item.Of(mustItem(t, items, "coal"))))
		assert.False(t, specs[1].Filter(item.Of(mustItem(t, items, "stone"))))
		assert.True(t, gen.Statuses.Contains(machine.StatusCapacitorFull))
		assert.Equal(t, machine.NewIOFace(machine.ResourceEnergy, generic.FlowOutput), gen.DefaultIO.Get(machine.FaceBack))
	})

	t.Run("electric furnace", func(t *testing.T) {
		furnace, err := types.Get("electric_furnace")
		require.NoError(t, err)
		bottom := furnace.DefaultIO.Get(machine.FaceBottom)
		assert.Equal(t, machine.ResourceItem, bottom.Type)
		assert.Equal(t, generic.SelectGroup(1), bottom.Selection)
		assert.Equal(t, 6, furnace.Statuses.Len())
	})

	t.Run("melter", func(t *testing.T) {
		melter, err := types.Get("melter")
		require.NoError(t, err)
		specs := melter.Fluids.Specs()
		require.Len(t, specs, 1)
		assert.Equal(t, 4*fluid.Bucket, specs[0].Capacity)
	})

	t.Run("chest", func(t *testing.T) {
		chest, err := types.Get("chest")
		require.NoError(t, err)
		assert.Equal(t, 27, chest.Items.Size())
		assert.Zero(t, chest.Statuses.Len())
		for _, face := range machine.Faces {
			assert.Equal(t, generic.FlowBoth, chest.DefaultIO.Get(face).Flow)
		}
	})
}

func TestDefaults_FurnaceSmelts(t *testing.T) {
	// GIVEN: A default electric furnace with ore and energy
	// WHEN: It ticks for the recipe's duration
	// THEN: One ingot comes out

	types, items := installDefaults(t)
	typ, err := types.Get("electric_furnace")
	require.NoError(t, err)
	m, err := machine.New(typ, uuid.Nil)
	require.NoError(t, err)
	ore, ingot := mustItem(t, items, "iron_ore"), mustItem(t, items, "iron_ingot")

	tx := generic.OpenTransaction()
	_, err = m.Items().Insert(item.Of(ore), 3, tx)
	require.NoError(t, err)
	tx.Commit()
	require.NoError(t, m.Energy().SetAmount(1000))

	for range 10 {
		tx := generic.OpenTransaction()
		require.NoError(t, typ.Behaviour.Tick(context.Background(), m, tx))
		tx.Commit()
	}
	assert.Equal(t, generic.Amount(1), m.Items().Count(item.Of(ingot)))
	assert.Equal(t, generic.Amount(2), m.Items().Count(item.Of(ore)))
	assert.Equal(t, generic.Amount(980), m.Energy().Amount())
}

// =============================================================================
// PARSING
// =============================================================================

const tankJSON = `{
  "groups": [{"id": "coolant", "name": "Coolant", "input_type": "storage"}],
  "machines": [{
    "id": "cooler",
    "name": "Cooler",
    "fluids": [{"group": "coolant", "buckets": "2.5", "filter": {"fluids": ["water"]}}],
    "io": {"front": {"resource": "fluid", "flow": "both", "group": "coolant"}}
  }]
}`

const tankYAML = `
groups:
  - {id: coolant, name: Coolant, input_type: storage}
machines:
  - id: cooler
    name: Cooler
    fluids:
      - {group: coolant, buckets: "2.5", filter: {fluids: [water]}}
    io:
      front: {resource: fluid, flow: both, group: coolant}
`

func TestParse_JSONAndYAMLAgree(t *testing.T) {
	fromJSON, err := factory.ParseJSON([]byte(tankJSON))
	require.NoError(t, err)
	fromYAML, err := factory.ParseYAML([]byte(tankYAML))
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromYAML)

	items, fluids := registries(t)
	resolved, err := factory.NewResolver(items, fluids).Resolve(fromYAML)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	cooler := resolved[0]
	assert.Equal(t, fluid.Bucket*5/2, cooler.Fluids.Specs()[0].Capacity)
	assert.Equal(t, generic.SelectGroup(0), cooler.DefaultIO.Get(machine.FaceFront).Selection)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := factory.ParseYAML([]byte("machines:\n  - id: x\n    colour: red\n"))
	assert.Error(t, err)

	_, err = factory.ParseJSON([]byte(`{"machines": [{"id": "x", "colour": "red"}]}`))
	assert.Error(t, err)
}

func TestLoad_ChoosesFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "machines.json")
	yamlPath := filepath.Join(dir, "machines.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(tankJSON), 0o600))
	require.NoError(t, os.WriteFile(yamlPath, []byte(tankYAML), 0o600))

	fromJSON, err := factory.Load(jsonPath)
	require.NoError(t, err)
	fromYAML, err := factory.Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromYAML)

	_, err = factory.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestResolver_Errors(t *testing.T) {
	slot := func(s factory.SlotDef) []factory.SlotDef { return []factory.SlotDef{s} }
	one := 0

	tests := []struct {
		name   string
		def    factory.MachineDef
		field  string
		client bool
	}{
		{
			name:  "unknown group",
			def:   factory.MachineDef{ID: "m", Items: slot(factory.SlotDef{Group: "hopper"})},
			field: "items[0].group",
		},
		{
			name:  "unknown filter item",
			def:   factory.MachineDef{ID: "m", Items: slot(factory.SlotDef{Group: "input", Filter: &factory.FilterDef{Items: []string{"diamond"}}})},
			field: "items[0].filter.items[0]",
		},
		{
			name:   "fluid filter on item slot",
			def:    factory.MachineDef{ID: "m", Items: slot(factory.SlotDef{Group: "input", Filter: &factory.FilterDef{Fluids: []string{"water"}}})},
			field:  "items[0].filter",
			client: true,
		},
		{
			name:   "fluid slot without capacity",
			def:    factory.MachineDef{ID: "m", Fluids: slot(factory.SlotDef{Group: "tank"})},
			field:  "fluids[0].capacity",
			client: true,
		},
		{
			name:   "bad bucket count",
			def:    factory.MachineDef{ID: "m", Fluids: slot(factory.SlotDef{Group: "tank", Buckets: "lots"})},
			field:  "fluids[0].buckets",
			client: true,
		},
		{
			name:   "negative energy",
			def:    factory.MachineDef{ID: "m", Energy: factory.EnergyDef{Capacity: -1}},
			field:  "energy capacity",
			client: true,
		},
		{
			name:   "unknown status",
			def:    factory.MachineDef{ID: "m", Statuses: []string{"sleeping"}},
			field:  "statuses[0]",
			client: true,
		},
		{
			name:   "bad face",
			def:    factory.MachineDef{ID: "m", IO: map[string]factory.IODef{"north": {Resource: "item"}}},
			field:  "io.north",
			client: true,
		},
		{
			name: "group and slot",
			def: factory.MachineDef{
				ID:    "m",
				Items: slot(factory.SlotDef{Group: "input"}),
				IO:    map[string]factory.IODef{"top": {Resource: "item", Group: "input", Slot: &one}},
			},
			field:  "io.top",
			client: true,
		},
		{
			name: "missing io group",
			def: factory.MachineDef{
				ID:    "m",
				Items: slot(factory.SlotDef{Group: "input"}),
				IO:    map[string]factory.IODef{"top": {Resource: "item", Group: "output"}},
			},
			field:  "io.top.group",
			client: true,
		},
		{
			name: "two behaviours",
			def: factory.MachineDef{ID: "m", Behaviour: &factory.BehaviourDef{
				Generator: &factory.GeneratorDef{EnergyPerTick: 1},
				Processor: &factory.ProcessorDef{},
			}},
			field:  "behaviour",
			client: true,
		},
		{
			name: "recipe without ticks",
			def: factory.MachineDef{ID: "m", Behaviour: &factory.BehaviourDef{
				Processor: &factory.ProcessorDef{Recipes: []factory.RecipeDef{{Input: "stone", OutputItem: "coal"}}},
			}},
			field:  "recipes[0].ticks",
			client: true,
		},
		{
			name: "unknown fuel",
			def: factory.MachineDef{ID: "m", Behaviour: &factory.BehaviourDef{
				Generator: &factory.GeneratorDef{EnergyPerTick: 1, Fuels: map[string]int64{"wood": 10}},
			}},
			field: "fuels",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			items, fluids := registries(t)
			_, err := factory.NewResolver(items, fluids).Machine(tc.def)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
			if tc.client {
				assert.True(t, generic.IsClientError(err), err.Error())
			} else {
				assert.True(t, generic.IsNotFound(err), err.Error())
			}
		})
	}
}

func TestResolver_ReportsEveryInvalidMachine(t *testing.T) {
	items, fluids := registries(t)
	defs := factory.Definitions{Machines: []factory.MachineDef{
		{ID: "good"},
		{ID: "bad-one", Statuses: []string{"nope"}},
		{ID: "bad-two", Items: []factory.SlotDef{{Group: "nope"}}},
	}}

	_, err := factory.NewResolver(items, fluids).Resolve(defs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `machines[1] "bad-one"`)
	assert.Contains(t, err.Error(), `machines[2] "bad-two"`)
}

func TestResolver_RegisterGroup(t *testing.T) {
	items, fluids := registries(t)
	r := factory.NewResolver(items, fluids)

	g, err := r.RegisterGroup(factory.GroupDef{ID: "upgrade", InputType: "transfer"})
	require.NoError(t, err)
	assert.Equal(t, "upgrade", g.Name)
	assert.False(t, g.Automatable())

	_, err = r.RegisterGroup(factory.GroupDef{ID: "input", InputType: "input"})
	assert.ErrorIs(t, err, generic.ErrDuplicateID)

	_, err = r.RegisterGroup(factory.GroupDef{ID: "odd", InputType: "sideways"})
	assert.ErrorIs(t, err, generic.ErrInvalidArgument)

	got, err := r.Group("upgrade")
	require.NoError(t, err)
	assert.Equal(t, g, got)
}
