package factory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/warp/machine-storage/fluid"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/item"
	"github.com/warp/machine-storage/machine"
)

// DefaultGroups are the group types every resolver starts with.
func DefaultGroups() []generic.GroupType {
	return []generic.GroupType{
		generic.NewGroupType("input", "Input", generic.SlotInput),
		generic.NewGroupType("output", "Output", generic.SlotOutput),
		generic.NewGroupType("fuel", "Fuel", generic.SlotInput),
		generic.NewGroupType("storage", "Storage", generic.SlotStorage),
		generic.NewGroupType("battery", "Battery", generic.SlotTransfer),
		generic.NewGroupType("tank", "Tank", generic.SlotStorage),
	}
}

// Resolver resolves definition ids against registries.
type Resolver struct {
	items  *item.Registry
	fluids *fluid.Registry
	groups *generic.Registry[generic.GroupType]
}

// NewResolver creates a resolver with DefaultGroups registered.
func NewResolver(items *item.Registry, fluids *fluid.Registry) *Resolver {
	r := &Resolver{
		items:  items,
		fluids: fluids,
		groups: generic.NewRegistry[generic.GroupType]("group"),
	}
	for _, g := range DefaultGroups() {
		r.groups.MustRegister(g.ID, g)
	}
	return r
}

// Group returns a registered group type.
func (r *Resolver) Group(id string) (generic.GroupType, error) {
	return r.groups.ByID(id)
}

// RegisterGroup adds a group type from its definition.
func (r *Resolver) RegisterGroup(def GroupDef) (generic.GroupType, error) {
	if def.ID == "" {
		return generic.GroupType{}, &generic.ArgumentError{Field: "group.id", Reason: "must not be empty"}
	}
	inputType, err := generic.ParseInputType(def.InputType)
	if err != nil {
		return generic.GroupType{}, fmt.Errorf("group %q: %w", def.ID, err)
	}
	name := def.Name
	if name == "" {
		name = def.ID
	}
	g := generic.NewGroupType(def.ID, name, inputType)
	if _, err := r.groups.Register(g.ID, g); err != nil {
		return generic.GroupType{}, err
	}
	return g, nil
}

// Resolve builds machine types from defs, registering its groups first.
// Every invalid machine is reported; nothing is returned unless all are
// valid.
func (r *Resolver) Resolve(defs Definitions) ([]*machine.Type, error) {
	for _, g := range defs.Groups {
		if _, err := r.RegisterGroup(g); err != nil {
			return nil, err
		}
	}
	var (
		out  []*machine.Type
		errs []error
	)
	for i, def := range defs.Machines {
		typ, err := r.Machine(def)
		if err != nil {
			errs = append(errs, fmt.Errorf("machines[%d] %q: %w", i, def.ID, err))
			continue
		}
		out = append(out, typ)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Install resolves defs and adds the result to types.
func (r *Resolver) Install(types *machine.Types, defs Definitions) ([]*machine.Type, error) {
	resolved, err := r.Resolve(defs)
	if err != nil {
		return nil, err
	}
	for _, typ := range resolved {
		if err := types.Add(typ); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// =============================================================================
// MACHINES
// =============================================================================

// Machine builds one machine type.
func (r *Resolver) Machine(def MachineDef) (*machine.Type, error) {
	if def.ID == "" {
		return nil, &generic.ArgumentError{Field: "id", Reason: "must not be empty"}
	}
	typ := &machine.Type{
		ID:   def.ID,
		Name: def.Name,
		Energy: generic.EnergySpec{
			Capacity:        generic.Amount(def.Energy.Capacity),
			MaxInsert:       generic.Amount(def.Energy.MaxInsert),
			MaxExtract:      generic.Amount(def.Energy.MaxExtract),
			ExternalInsert:  def.Energy.ExternalInsert,
			ExternalExtract: def.Energy.ExternalExtract,
		},
	}
	if typ.Name == "" {
		typ.Name = def.ID
	}

	var err error
	if typ.Items, err = r.itemSlots(def.Items); err != nil {
		return nil, err
	}
	if typ.Fluids, err = r.fluidSlots(def.Fluids); err != nil {
		return nil, err
	}
	if def.Behaviour != nil {
		if typ.Behaviour, err = r.behaviour(*def.Behaviour); err != nil {
			return nil, err
		}
	}
	if typ.Statuses, err = statuses(def.Statuses, typ.Behaviour); err != nil {
		return nil, err
	}
	if typ.DefaultIO, err = r.io(def.IO, typ); err != nil {
		return nil, err
	}
	if err := typ.Validate(); err != nil {
		return nil, err
	}
	return typ, nil
}

func (r *Resolver) slotGroup(field string, s SlotDef) (generic.GroupType, int, error) {
	g, err := r.groups.ByID(s.Group)
	if err != nil {
		return generic.GroupType{}, 0, fmt.Errorf("%s.group: %w", field, err)
	}
	count := s.Count
	if count == 0 {
		count = 1
	}
	if count < 0 {
		return generic.GroupType{}, 0, &generic.ArgumentError{Field: field + ".count", Reason: fmt.Sprintf("must not be negative, got %d", s.Count)}
	}
	return g, count, nil
}

func playerInsert(s SlotDef, g generic.GroupType) bool {
	if s.PlayerInsert != nil {
		return *s.PlayerInsert
	}
	return g.InputType.PlayerInsertion()
}

func (r *Resolver) itemSlots(defs []SlotDef) (*item.StorageBuilder, error) {
	b := item.NewStorageBuilder(r.items)
	for i, s := range defs {
		field := fmt.Sprintf("items[%d]", i)
		g, count, err := r.slotGroup(field, s)
		if err != nil {
			return nil, err
		}
		if s.Buckets != "" {
			return nil, &generic.ArgumentError{Field: field + ".buckets", Reason: "only fluid slots hold buckets"}
		}
		filter, err := r.itemFilter(field, s.Filter)
		if err != nil {
			return nil, err
		}
		capacity := generic.Amount(s.Capacity)
		if capacity == 0 {
			capacity = item.DefaultMaxStackSize
		}
		for range count {
			b.AddSlot(g, filter, playerInsert(s, g), capacity, generic.Display{X: s.X, Y: s.Y})
		}
	}
	if _, err := b.Build(); err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	return b, nil
}

func (r *Resolver) fluidSlots(defs []SlotDef) (*fluid.StorageBuilder, error) {
	b := fluid.NewStorageBuilder(r.fluids)
	for i, s := range defs {
		field := fmt.Sprintf("fluids[%d]", i)
		g, count, err := r.slotGroup(field, s)
		if err != nil {
			return nil, err
		}
		filter, err := r.fluidFilter(field, s.Filter)
		if err != nil {
			return nil, err
		}
		capacity := generic.Amount(s.Capacity)
		if capacity == 0 && s.Buckets != "" {
			if capacity, err = fluid.ParseBuckets(s.Buckets); err != nil {
				return nil, fmt.Errorf("%s.buckets: %w", field, err)
			}
		}
		if capacity == 0 {
			return nil, &generic.ArgumentError{Field: field + ".capacity", Reason: "fluid slots need a capacity or buckets"}
		}
		for range count {
			b.AddSlot(g, filter, playerInsert(s, g), capacity, generic.Display{X: s.X, Y: s.Y})
		}
	}
	if _, err := b.Build(); err != nil {
		return nil, fmt.Errorf("fluids: %w", err)
	}
	return b, nil
}

func (r *Resolver) itemFilter(field string, f *FilterDef) (item.Filter, error) {
	switch {
	case f == nil:
		return nil, nil
	case len(f.Fluids) > 0:
		return nil, &generic.ArgumentError{Field: field + ".filter", Reason: "item slots cannot filter fluids"}
	case f.None:
		return generic.RejectAll[*item.Type](), nil
	case len(f.Items) == 0:
		return nil, nil
	}
	types := make([]*item.Type, len(f.Items))
	for i, id := range f.Items {
		t, err := r.items.Get(id)
		if err != nil {
			return nil, fmt.Errorf("%s.filter.items[%d]: %w", field, i, err)
		}
		types[i] = t
	}
	return item.Accept(types...), nil
}

func (r *Resolver) fluidFilter(field string, f *FilterDef) (fluid.Filter, error) {
	switch {
	case f == nil:
		return nil, nil
	case len(f.Items) > 0:
		return nil, &generic.ArgumentError{Field: field + ".filter", Reason: "fluid slots cannot filter items"}
	case f.None:
		return generic.RejectAll[*fluid.Type](), nil
	case len(f.Fluids) == 0:
		return nil, nil
	}
	types := make([]*fluid.Type, len(f.Fluids))
	for i, id := range f.Fluids {
		t, err := r.fluids.Get(id)
		if err != nil {
			return nil, fmt.Errorf("%s.filter.fluids[%d]: %w", field, i, err)
		}
		types[i] = t
	}
	return fluid.Accept(types...), nil
}

// =============================================================================
// STATUSES, FACES AND BEHAVIOUR
// =============================================================================

// statuses resolves explicit status ids, falling back to what the behaviour
// reports.
func statuses(ids []string, b machine.Behaviour) (*machine.StatusDomain, error) {
	if len(ids) == 0 {
		if reporter, ok := b.(machine.StatusReporter); ok {
			return machine.NewStatusDomain(reporter.Statuses()...)
		}
		return machine.NewStatusDomain()
	}
	common := machine.CommonStatuses()
	list := make([]*machine.Status, len(ids))
	for i, id := range ids {
		s, ok := common[id]
		if !ok {
			known := make([]string, 0, len(common))
			for k := range common {
				known = append(known, k)
			}
			sort.Strings(known)
			return nil, &generic.ArgumentError{
				Field:  fmt.Sprintf("statuses[%d]", i),
				Reason: fmt.Sprintf("unknown status %q, expected one of %v", id, known),
			}
		}
		list[i] = s
	}
	return machine.NewStatusDomain(list...)
}

func (r *Resolver) io(defs map[string]IODef, typ *machine.Type) (machine.IOConfig, error) {
	var config machine.IOConfig
	if len(defs) == 0 {
		return config, nil
	}
	items, err := typ.Items.Build()
	if err != nil {
		return config, err
	}
	fluids, err := typ.Fluids.Build()
	if err != nil {
		return config, err
	}

	for name, def := range defs {
		field := "io." + name
		face, err := machine.ParseFace(name)
		if err != nil {
			return config, fmt.Errorf("%s: %w", field, err)
		}
		resource, err := machine.ParseResourceType(def.Resource)
		if err != nil {
			return config, fmt.Errorf("%s.resource: %w", field, err)
		}
		flow := generic.FlowBoth
		if def.Flow != "" {
			if flow, err = generic.ParseFlow(def.Flow); err != nil {
				return config, fmt.Errorf("%s.flow: %w", field, err)
			}
		}

		io := machine.NewIOFace(resource, flow)
		switch {
		case def.Group != "" && def.Slot != nil:
			return config, &generic.ArgumentError{Field: field, Reason: "group and slot are mutually exclusive"}
		case def.Group != "":
			index, ok := groupIndex(resource, def.Group, items, fluids)
			if !ok {
				return config, &generic.ArgumentError{Field: field + ".group", Reason: fmt.Sprintf("machine has no %s group %q", resource, def.Group)}
			}
			io = io.WithSelection(generic.SelectGroup(index))
		case def.Slot != nil:
			io = io.WithSelection(generic.SelectSlot(*def.Slot))
		}
		config.Set(face, io)
	}
	return config, nil
}

func groupIndex(resource machine.ResourceType, id string, items *item.Storage, fluids *fluid.Storage) (int, bool) {
	if resource.WillAccept(machine.ResourceItem) {
		if g, ok := items.Group(id); ok {
			return g.Index(), true
		}
	}
	if resource.WillAccept(machine.ResourceFluid) {
		if g, ok := fluids.Group(id); ok {
			return g.Index(), true
		}
	}
	return 0, false
}

func (r *Resolver) behaviour(def BehaviourDef) (machine.Behaviour, error) {
	switch {
	case def.Generator != nil && def.Processor != nil:
		return nil, &generic.ArgumentError{Field: "behaviour", Reason: "choose one of generator or processor"}
	case def.Generator != nil:
		return r.generator(*def.Generator)
	case def.Processor != nil:
		return r.processor(*def.Processor)
	}
	return nil, nil
}

func (r *Resolver) generator(def GeneratorDef) (*machine.Generator, error) {
	if def.EnergyPerTick <= 0 {
		return nil, &generic.ArgumentError{Field: "behaviour.generator.energy_per_tick", Reason: "must be positive"}
	}
	g := &machine.Generator{
		FuelGroup:     def.FuelGroup,
		EnergyPerTick: generic.Amount(def.EnergyPerTick),
		Fuels:         make(map[*item.Type]int64, len(def.Fuels)),
	}
	for id, ticks := range def.Fuels {
		t, err := r.items.Get(id)
		if err != nil {
			return nil, fmt.Errorf("behaviour.generator.fuels: %w", err)
		}
		if ticks <= 0 {
			return nil, &generic.ArgumentError{Field: "behaviour.generator.fuels." + id, Reason: "burn ticks must be positive"}
		}
		g.Fuels[t] = ticks
	}
	return g, nil
}

func (r *Resolver) processor(def ProcessorDef) (*machine.Processor, error) {
	p := &machine.Processor{
		InputGroup:    def.InputGroup,
		OutputGroup:   def.OutputGroup,
		EnergyPerTick: generic.Amount(def.EnergyPerTick),
		Recipes:       make(map[*item.Type]machine.Recipe, len(def.Recipes)),
	}
	for i, rd := range def.Recipes {
		field := fmt.Sprintf("behaviour.processor.recipes[%d]", i)
		input, err := r.items.Get(rd.Input)
		if err != nil {
			return nil, fmt.Errorf("%s.input: %w", field, err)
		}
		if _, dup := p.Recipes[input]; dup {
			return nil, &generic.ArgumentError{Field: field + ".input", Reason: fmt.Sprintf("%q already has a recipe", rd.Input)}
		}
		recipe := machine.Recipe{Amount: generic.Amount(rd.Amount), Ticks: rd.Ticks}
		switch {
		case rd.OutputItem != "" && rd.OutputFluid != "":
			return nil, &generic.ArgumentError{Field: field, Reason: "choose one of output_item or output_fluid"}
		case rd.OutputItem != "":
			if recipe.OutputItem, err = r.items.Get(rd.OutputItem); err != nil {
				return nil, fmt.Errorf("%s.output_item: %w", field, err)
			}
		case rd.OutputFluid != "":
			if recipe.OutputFluid, err = r.fluids.Get(rd.OutputFluid); err != nil {
				return nil, fmt.Errorf("%s.output_fluid: %w", field, err)
			}
			if recipe.Amount == 0 && rd.Buckets != "" {
				if recipe.Amount, err = fluid.ParseBuckets(rd.Buckets); err != nil {
					return nil, fmt.Errorf("%s.buckets: %w", field, err)
				}
			}
		default:
			return nil, &generic.ArgumentError{Field: field, Reason: "missing output"}
		}
		if recipe.Amount <= 0 {
			recipe.Amount = 1
		}
		if recipe.Ticks <= 0 {
			return nil, &generic.ArgumentError{Field: field + ".ticks", Reason: "must be positive"}
		}
		p.Recipes[input] = recipe
	}
	return p, nil
}
