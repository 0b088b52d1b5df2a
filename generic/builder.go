package generic

import (
	"errors"
	"fmt"
)

// SlotSpec describes one slot of a storage shape.
type SlotSpec[R comparable] struct {
	Group    GroupType
	Filter   Filter[R]
	Capacity Amount
	Access   Access
	Display  Display
}

// StorageBuilder collects slot specs and builds storages of that shape. A
// builder is a template: every Build call returns a new, independent storage.
type StorageBuilder[R comparable] struct {
	kind  Kind[R]
	specs []SlotSpec[R]
	errs  []error
}

// NewStorageBuilder starts an empty shape for kind.
func NewStorageBuilder[R comparable](kind Kind[R]) *StorageBuilder[R] {
	return &StorageBuilder[R]{kind: kind}
}

// AddSlot appends a slot to group. External permissions follow the group's
// input type; player insertion is set explicitly.
func (b *StorageBuilder[R]) AddSlot(group GroupType, filter Filter[R], allowPlayerInsert bool, capacity Amount, display Display) *StorageBuilder[R] {
	access := AccessFor(group.InputType)
	access.PlayerInsert = allowPlayerInsert
	return b.AddSlotSpec(SlotSpec[R]{
		Group:    group,
		Filter:   filter,
		Capacity: capacity,
		Access:   access,
		Display:  display,
	})
}

// AddSlotSpec appends a fully specified slot.
func (b *StorageBuilder[R]) AddSlotSpec(spec SlotSpec[R]) *StorageBuilder[R] {
	index := len(b.specs)
	if spec.Capacity <= 0 {
		b.errs = append(b.errs, &ArgumentError{
			Field:  fmt.Sprintf("slot %d capacity", index),
			Reason: fmt.Sprintf("must be positive, got %d", spec.Capacity),
		})
	}
	if spec.Group.ID == "" {
		b.errs = append(b.errs, &ArgumentError{Field: fmt.Sprintf("slot %d group", index), Reason: "missing group id"})
	}
	for _, existing := range b.specs {
		if existing.Group.ID == spec.Group.ID && existing.Group != spec.Group {
			b.errs = append(b.errs, &ArgumentError{
				Field:  fmt.Sprintf("slot %d group", index),
				Reason: fmt.Sprintf("group %q redefined with different settings", spec.Group.ID),
			})
			break
		}
	}
	if spec.Filter == nil {
		spec.Filter = AcceptAll[R]()
	}
	b.specs = append(b.specs, spec)
	return b
}

// Size returns the number of slots added so far.
func (b *StorageBuilder[R]) Size() int { return len(b.specs) }

// Specs returns a copy of the slot specs.
func (b *StorageBuilder[R]) Specs() []SlotSpec[R] {
	out := make([]SlotSpec[R], len(b.specs))
	copy(out, b.specs)
	return out
}

// Build creates a storage. With no slots it returns the shared empty
// storage for the kind.
func (b *StorageBuilder[R]) Build() (*Storage[R], error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if len(b.specs) == 0 {
		return Empty(b.kind), nil
	}

	s := &Storage[R]{
		kind:      b.kind,
		slots:     make([]*Slot[R], len(b.specs)),
		slotGroup: make([]int, len(b.specs)),
	}
	groupIndex := make(map[string]int)
	for i, spec := range b.specs {
		gi, ok := groupIndex[spec.Group.ID]
		if !ok {
			gi = len(s.groups)
			groupIndex[spec.Group.ID] = gi
			s.groups = append(s.groups, &Group[R]{typ: spec.Group, index: gi, storage: s})
		}

		slot := &Slot[R]{
			kind:     b.kind,
			owner:    s,
			index:    i,
			access:   spec.Access,
			filter:   spec.Filter,
			capacity: spec.Capacity,
			display:  spec.Display,
		}
		s.slots[i] = slot
		s.slotGroup[i] = gi
		s.groups[gi].slots = append(s.groups[gi].slots, slot)
	}
	return s, nil
}

// MustBuild is Build for static shapes. It panics on error.
func (b *StorageBuilder[R]) MustBuild() *Storage[R] {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
