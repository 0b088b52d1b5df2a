package machine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/machine-storage/fluid"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/item"
)

// Machine is a live machine instance. It is not safe for concurrent use;
// World serializes access.
type Machine struct {
	id  uuid.UUID
	typ *Type

	items  *item.Storage
	fluids *fluid.Storage
	energy *generic.EnergyStorage
	config Configuration

	powered  bool
	progress int64
	dirty    bool
}

// New creates an empty machine of typ. A nil id gets a fresh one.
func New(typ *Type, id uuid.UUID) (*Machine, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	items, err := typ.Items.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build item storage for %s: %w", typ.ID, err)
	}
	fluids, err := typ.Fluids.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build fluid storage for %s: %w", typ.ID, err)
	}
	energy, err := generic.NewEnergyStorage(typ.Energy)
	if err != nil {
		return nil, fmt.Errorf("failed to build energy storage for %s: %w", typ.ID, err)
	}

	m := &Machine{
		id:     id,
		typ:    typ,
		items:  items,
		fluids: fluids,
		energy: energy,
		dirty:  true,
	}
	m.config.IO = typ.DefaultIO
	markDirty := func() { m.dirty = true }
	items.AddListener(markDirty)
	fluids.AddListener(markDirty)
	energy.AddListener(markDirty)
	return m, nil
}

func (m *Machine) ID() uuid.UUID                  { return m.id }
func (m *Machine) Type() *Type                    { return m.typ }
func (m *Machine) Items() *item.Storage           { return m.items }
func (m *Machine) Fluids() *fluid.Storage         { return m.fluids }
func (m *Machine) Energy() *generic.EnergyStorage { return m.energy }
func (m *Machine) Config() *Configuration         { return &m.config }
func (m *Machine) Status() *Status                { return m.config.Status }
func (m *Machine) Powered() bool                  { return m.powered }
func (m *Machine) Progress() int64                { return m.progress }

// Dirty reports whether the machine changed since the last MarkClean.
func (m *Machine) Dirty() bool { return m.dirty }
func (m *Machine) MarkClean()  { m.dirty = false }

// =============================================================================
// CONFIGURATION
// =============================================================================

// SetStatus changes the status. Statuses outside the type's domain are
// rejected.
func (m *Machine) SetStatus(s *Status) error {
	if !m.typ.Statuses.Contains(s) {
		return &generic.ArgumentError{Field: "status", Reason: fmt.Sprintf("%s is not a status of %s", s, m.typ.ID)}
	}
	if m.config.Status != s {
		m.config.Status = s
		m.dirty = true
	}
	return nil
}

// SetStatusOnCommit sets the status once tx's root commits.
func (m *Machine) SetStatusOnCommit(s *Status, tx *generic.Transaction) {
	tx.OnClose(func(committed bool) {
		if committed {
			_ = m.SetStatus(s)
		}
	})
}

// SetProgress records behaviour progress once tx's root commits, so an
// aborted tick leaves it untouched.
func (m *Machine) SetProgress(progress int64, tx *generic.Transaction) {
	tx.OnClose(func(committed bool) {
		if committed && m.progress != progress {
			m.progress = progress
			m.dirty = true
		}
	})
}

func (m *Machine) SetFace(face Face, io IOFace) {
	m.config.IO.Set(face, io)
	m.dirty = true
}

func (m *Machine) SetRedstone(r RedstoneActivation) {
	m.config.Redstone = r
	m.dirty = true
}

func (m *Machine) SetPowered(powered bool) {
	m.powered = powered
	m.dirty = true
}

func (m *Machine) SetAccessLevel(level AccessLevel) {
	m.config.Security.SetAccessLevel(level)
	m.dirty = true
}

// Claim sets the owner if the machine has none.
func (m *Machine) Claim(player uuid.UUID, username string) bool {
	if m.config.Security.SetOwner(player, username) {
		m.dirty = true
		return true
	}
	return false
}

// CanRun reports whether redstone allows the machine to work.
func (m *Machine) CanRun() bool {
	return m.config.Redstone.IsActive(m.powered)
}

// =============================================================================
// EXPOSED STORAGE
// =============================================================================

// ExposedItems returns the item view a face offers, or false when the face
// does not expose items.
func (m *Machine) ExposedItems(face Face) (*generic.ExposedStorage[*item.Type], bool) {
	io := m.config.IO.Get(face)
	if !io.Type.WillAccept(ResourceItem) || m.items.Size() == 0 {
		return nil, false
	}
	return m.items.Expose(io.Flow, io.Selection), true
}

// ExposedFluids returns the fluid view a face offers.
func (m *Machine) ExposedFluids(face Face) (*generic.ExposedStorage[*fluid.Type], bool) {
	io := m.config.IO.Get(face)
	if !io.Type.WillAccept(ResourceFluid) || m.fluids.Size() == 0 {
		return nil, false
	}
	return m.fluids.Expose(io.Flow, io.Selection), true
}

// ExposedEnergy returns the energy view a face offers. Faces with a
// selection never expose energy.
func (m *Machine) ExposedEnergy(face Face) (*generic.ExposedEnergy, bool) {
	io := m.config.IO.Get(face)
	if !io.Type.WillAccept(ResourceEnergy) || io.Selection.IsSet() {
		return nil, false
	}
	return m.energy.Expose(io.Flow)
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// Serialize encodes the machine's full state.
func (m *Machine) Serialize() generic.Compound {
	return generic.Compound{
		"Type":     m.typ.ID,
		"Items":    m.items.Save(),
		"Fluids":   m.fluids.Save(),
		"Energy":   m.energy.Save(),
		"Config":   m.config.Save(m.typ.Statuses),
		"Powered":  m.powered,
		"Progress": m.progress,
	}
}

// Deserialize rebuilds a machine from Serialize output. Contents that no
// longer fit the type's layout are dropped rather than failing the load.
func Deserialize(types *Types, id uuid.UUID, c generic.Compound) (*Machine, error) {
	typeID := c.String("Type")
	if typeID == "" {
		return nil, fmt.Errorf("%w: missing type", ErrCorruptRecord)
	}
	typ, err := types.Get(typeID)
	if err != nil {
		return nil, err
	}
	m, err := New(typ, id)
	if err != nil {
		return nil, err
	}
	m.items.Load(c.Compound("Items"))
	m.fluids.Load(c.Compound("Fluids"))
	m.energy.Load(c.Compound("Energy"))
	if config := c.Compound("Config"); config != nil {
		m.config.Load(config, typ.Statuses)
	}
	m.powered = c.Bool("Powered")
	m.progress = c.Int64("Progress")
	m.dirty = false
	return m, nil
}
