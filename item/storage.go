package item

import (
	"github.com/warp/machine-storage/generic"
)

type (
	Variant        = generic.Variant[*Type]
	Filter         = generic.Filter[*Type]
	Slot           = generic.Slot[*Type]
	Storage        = generic.Storage[*Type]
	StorageBuilder = generic.StorageBuilder[*Type]
)

// Of returns the untagged variant of t.
func Of(t *Type) Variant { return generic.Of(t) }

// NewStorageBuilder starts an item storage layout.
func NewStorageBuilder(r *Registry) *StorageBuilder {
	return generic.NewStorageBuilder[*Type](r)
}

// Accept builds a filter for the listed types.
func Accept(types ...*Type) Filter {
	return generic.AcceptResources(types...)
}

// Consume uses up to amount of v from slot. When that empties the slot and
// the item has a remainder, the remainder is put back in its place, one per
// consumed item, as far as the slot filter and stack size allow.
func Consume(slot *Slot, v Variant, amount generic.Amount, tx *generic.Transaction) (generic.Amount, error) {
	if v.IsBlank() {
		v = slot.Variant()
	}
	consumed, err := slot.Extract(v, amount, tx)
	if err != nil || consumed == 0 {
		return consumed, err
	}

	rem := v.Resource().RemainderType()
	if rem != nil && slot.IsEmpty() {
		if _, err := slot.Insert(Of(rem), consumed, tx); err != nil {
			return consumed, err
		}
	}
	return consumed, nil
}

// ConsumeOne uses a single item and returns its type, or nil when the slot
// was empty.
func ConsumeOne(slot *Slot, tx *generic.Transaction) (*Type, error) {
	v := slot.Variant()
	if v.IsBlank() {
		return nil, nil
	}
	n, err := Consume(slot, v, 1, tx)
	if err != nil || n == 0 {
		return nil, err
	}
	return v.Resource(), nil
}
