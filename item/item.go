/*
Package item instantiates the generic storage engine for items.

PURPOSE:
  Items are discrete resources that stack. Every item type declares how many
  fit in one stack and, optionally, what is left behind when one is used up
  (a lava bucket leaves an empty bucket).

KEY CONCEPTS:
  Type:      An item type. Pointer identity is resource identity; a nil
             *Type is the blank resource.
  Registry:  The explicit set of known item types. It implements
             generic.Kind[*Type], so storages built from it clamp slot
             capacity to the max stack size.
  Remainder: The item type put back into a slot after its contents are
             consumed.

USAGE:
  items := item.NewRegistry()
  coal := items.MustRegister(item.Type{ID: "coal", MaxStackSize: 64})
  storage := item.NewStorageBuilder(items).
      AddSlot(fuelGroup, item.Accept(coal), true, 64, generic.Display{}).
      MustBuild()

SEE ALSO:
  - generic/variant.go: Kind and Variant
  - fluid/: The fluid instantiation
*/
package item

import (
	"fmt"

	"github.com/warp/machine-storage/generic"
)

// DefaultMaxStackSize is used when a type does not declare one.
const DefaultMaxStackSize generic.Amount = 64

// Type is an item type.
type Type struct {
	ID           string
	Name         string
	MaxStackSize generic.Amount
	// Remainder is the id of the item left behind when this one is consumed.
	Remainder string

	remainder *Type
}

// RemainderType returns the resolved remainder, or nil.
func (t *Type) RemainderType() *Type {
	if t == nil {
		return nil
	}
	return t.remainder
}

func (t *Type) String() string {
	if t == nil {
		return "air"
	}
	return t.ID
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds the known item types.
type Registry struct {
	types *generic.Registry[*Type]
}

// NewRegistry creates an empty item registry.
func NewRegistry() *Registry {
	return &Registry{types: generic.NewRegistry[*Type]("item")}
}

// Register adds an item type. A remainder must already be registered.
func (r *Registry) Register(t Type) (*Type, error) {
	if t.ID == "" {
		return nil, &generic.ArgumentError{Field: "id", Reason: "must not be empty"}
	}
	if t.MaxStackSize == 0 {
		t.MaxStackSize = DefaultMaxStackSize
	}
	if t.MaxStackSize < 0 {
		return nil, &generic.ArgumentError{Field: "max_stack_size", Reason: "must be positive"}
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	if t.Remainder != "" {
		rem, err := r.types.ByID(t.Remainder)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve remainder of %s: %w", t.ID, err)
		}
		t.remainder = rem
	}

	registered := &t
	if _, err := r.types.Register(t.ID, registered); err != nil {
		return nil, err
	}
	return registered, nil
}

// MustRegister is Register for static setup.
func (r *Registry) MustRegister(t Type) *Type {
	registered, err := r.Register(t)
	if err != nil {
		panic(err)
	}
	return registered
}

// Get returns the item type with id.
func (r *Registry) Get(id string) (*Type, error) {
	return r.types.ByID(id)
}

// IDs returns registered ids in ordinal order.
func (r *Registry) IDs() []string { return r.types.IDs() }

// =============================================================================
// KIND
// =============================================================================

var _ generic.Kind[*Type] = (*Registry)(nil)

func (r *Registry) Name() string { return "item" }

func (r *Registry) ID(t *Type) string { return t.ID }

func (r *Registry) Lookup(id string) (*Type, bool) {
	if id == "" {
		return nil, false
	}
	t, err := r.types.ByID(id)
	return t, err == nil
}

// SlotCapacity clamps capacity to the max stack size.
func (r *Registry) SlotCapacity(t *Type, capacity generic.Amount) generic.Amount {
	return min(capacity, t.MaxStackSize)
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Defaults registers a small set of common item types. It is what the
// server starts with when no definitions file adds more.
func Defaults(r *Registry) error {
	defaults := []Type{
		{ID: "stone"},
		{ID: "coal"},
		{ID: "iron_ore"},
		{ID: "iron_ingot"},
		{ID: "redstone"},
		{ID: "bucket", MaxStackSize: 16},
		{ID: "water_bucket", MaxStackSize: 1, Remainder: "bucket"},
		{ID: "lava_bucket", MaxStackSize: 1, Remainder: "bucket"},
		{ID: "battery", MaxStackSize: 1},
		{ID: "ender_pearl", MaxStackSize: 16},
	}
	for _, t := range defaults {
		if _, err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
