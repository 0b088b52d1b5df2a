package machine

import (
	"context"
	"fmt"

	"github.com/warp/machine-storage/fluid"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/item"
)

// StatusReporter is implemented by behaviours that know which statuses
// they set. Definitions without an explicit status list use these.
type StatusReporter interface {
	Statuses() []*Status
}

// report sets s on commit when the type's domain has it.
func report(m *Machine, s *Status, tx *generic.Transaction) {
	if m.typ.Statuses.Contains(s) {
		m.SetStatusOnCommit(s, tx)
	}
}

// =============================================================================
// GENERATOR
// =============================================================================

// Generator burns one fuel item from a fuel group and then produces energy
// for that fuel's burn time. Its progress is the remaining burn time. Items
// missing from Fuels, such as the bucket a lava bucket leaves, are skipped.
type Generator struct {
	FuelGroup     string
	EnergyPerTick generic.Amount
	Fuels         map[*item.Type]int64
}

func (g *Generator) Statuses() []*Status {
	return []*Status{StatusActive, StatusIdle, StatusCapacitorFull, StatusDisabled}
}

func (g *Generator) Tick(_ context.Context, m *Machine, tx *generic.Transaction) error {
	if !m.CanRun() {
		report(m, StatusDisabled, tx)
		return nil
	}
	if m.energy.IsFull() {
		report(m, StatusCapacitorFull, tx)
		return nil
	}

	burn := m.progress
	if burn <= 0 {
		fuel, ok := m.items.Group(g.FuelGroup)
		if !ok {
			return fmt.Errorf("generator %s has no %q group", m.typ.ID, g.FuelGroup)
		}
		for _, slot := range fuel.Slots() {
			ticks, ok := g.Fuels[slot.Resource()]
			if slot.IsEmpty() || !ok || ticks <= 0 {
				continue
			}
			if _, err := item.ConsumeOne(slot, tx); err != nil {
				return err
			}
			burn = ticks
			break
		}
	}
	if burn <= 0 {
		report(m, StatusIdle, tx)
		return nil
	}

	if _, err := m.energy.Insert(g.EnergyPerTick, tx); err != nil {
		return err
	}
	m.SetProgress(burn-1, tx)
	report(m, StatusActive, tx)
	return nil
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Recipe turns one input item into an item or fluid output.
type Recipe struct {
	OutputItem  *item.Type
	OutputFluid *fluid.Type
	Amount      generic.Amount
	Ticks       int64
}

// Processor works recipes: it draws energy every tick and, once a recipe's
// ticks have elapsed, consumes one input item and produces the output.
// Its progress is the number of ticks spent on the current item.
type Processor struct {
	InputGroup    string
	OutputGroup   string
	EnergyPerTick generic.Amount
	Recipes       map[*item.Type]Recipe
}

func (p *Processor) Statuses() []*Status {
	return []*Status{StatusActive, StatusIdle, StatusNotEnoughEnergy, StatusInvalidRecipe, StatusOutputBlocked, StatusDisabled}
}

func (p *Processor) Tick(_ context.Context, m *Machine, tx *generic.Transaction) error {
	if !m.CanRun() {
		report(m, StatusDisabled, tx)
		return nil
	}
	input, ok := m.items.Group(p.InputGroup)
	if !ok {
		return fmt.Errorf("processor %s has no %q input group", m.typ.ID, p.InputGroup)
	}

	slot, recipe, found := p.findRecipe(input)
	if !found {
		if input.IsEmpty() {
			report(m, StatusIdle, tx)
		} else {
			report(m, StatusInvalidRecipe, tx)
		}
		m.SetProgress(0, tx)
		return nil
	}

	fits, err := p.outputFits(m, recipe, tx)
	if err != nil {
		return err
	}
	if !fits {
		report(m, StatusOutputBlocked, tx)
		return nil
	}

	powered, err := m.energy.ExtractExact(p.EnergyPerTick, tx)
	if err != nil {
		return err
	}
	if !powered {
		report(m, StatusNotEnoughEnergy, tx)
		return nil
	}

	progress := m.progress + 1
	if progress >= recipe.Ticks {
		if _, err := item.Consume(slot, slot.Variant(), 1, tx); err != nil {
			return err
		}
		if err := p.produce(m, recipe, tx); err != nil {
			return err
		}
		progress = 0
	}
	m.SetProgress(progress, tx)
	report(m, StatusActive, tx)
	return nil
}

func (p *Processor) findRecipe(input *generic.Group[*item.Type]) (*item.Slot, Recipe, bool) {
	for _, slot := range input.Slots() {
		if slot.IsEmpty() {
			continue
		}
		if r, ok := p.Recipes[slot.Resource()]; ok {
			return slot, r, true
		}
	}
	return nil, Recipe{}, false
}

func (p *Processor) outputFits(m *Machine, r Recipe, tx *generic.Transaction) (bool, error) {
	var accepted generic.Amount
	var err error
	switch {
	case r.OutputItem != nil:
		out, ok := m.items.Group(p.OutputGroup)
		if !ok {
			return false, fmt.Errorf("processor %s has no %q item output group", m.typ.ID, p.OutputGroup)
		}
		accepted, err = out.SimulateInsert(item.Of(r.OutputItem), r.Amount, tx)
	case r.OutputFluid != nil:
		out, ok := m.fluids.Group(p.OutputGroup)
		if !ok {
			return false, fmt.Errorf("processor %s has no %q fluid output group", m.typ.ID, p.OutputGroup)
		}
		accepted, err = out.SimulateInsert(fluid.Of(r.OutputFluid), r.Amount, tx)
	default:
		return true, nil
	}
	return accepted == r.Amount, err
}

func (p *Processor) produce(m *Machine, r Recipe, tx *generic.Transaction) error {
	var err error
	switch {
	case r.OutputItem != nil:
		out, _ := m.items.Group(p.OutputGroup)
		_, err = out.Insert(item.Of(r.OutputItem), r.Amount, tx)
	case r.OutputFluid != nil:
		out, _ := m.fluids.Group(p.OutputGroup)
		_, err = out.Insert(fluid.Of(r.OutputFluid), r.Amount, tx)
	}
	return err
}
