/*
storage.go - Multi-slot storage and its algorithms

PURPOSE:
  Storage owns a fixed, ordered array of slots partitioned into groups and
  implements the algorithms machines and automation use to move resources
  in and out of many slots at once.

INSERT (first-fit, declaration order):
  1. Walk slots in declaration order
  2. Skip slots whose filter rejects the variant or that hold another one
  3. Put as much as fits, subtract it from what remains
  4. Stop once nothing remains

  There is no rebalancing and no best-fit: an earlier blank slot is filled
  before a later slot that already holds the variant. InsertMatching is the
  variant that tops up slots already holding the variant first.

EXTRACT:
  Mirrors insert: drain matching slots in order until satisfied.

EXACT VARIANTS:
  InsertExact and ExtractExact are all-or-nothing. They run the normal
  algorithm in a nested transaction and abort it on a shortfall.

MODIFICATION COUNT:
  The storage count is the sum of committed slot modifications. Listeners
  run once per root commit that changed at least one slot.

SEE ALSO:
  - builder.go: Building storages
  - exposed.go: Automation views over a storage
*/
package generic

import (
	"fmt"
	"sync"
)

// Storage is a fixed-shape collection of slots of one resource kind.
type Storage[R comparable] struct {
	kind      Kind[R]
	slots     []*Slot[R]
	groups    []*Group[R]
	slotGroup []int
	empty     bool

	modifications uint64
	tx            membership
	listeners     []func()
}

var emptyStorages sync.Map

// Empty returns the shared storage with no slots for kind. kind must be
// comparable, which holds for the pointer kinds in this module.
func Empty[R comparable](kind Kind[R]) *Storage[R] {
	if s, ok := emptyStorages.Load(kind); ok {
		return s.(*Storage[R])
	}
	s, _ := emptyStorages.LoadOrStore(kind, &Storage[R]{kind: kind, empty: true})
	return s.(*Storage[R])
}

// =============================================================================
// SHAPE
// =============================================================================

func (s *Storage[R]) Kind() Kind[R] { return s.kind }
func (s *Storage[R]) Size() int     { return len(s.slots) }

// Slot returns the slot at index.
func (s *Storage[R]) Slot(index int) *Slot[R] { return s.slots[index] }

// Slots returns all slots in declaration order.
func (s *Storage[R]) Slots() []*Slot[R] {
	out := make([]*Slot[R], len(s.slots))
	copy(out, s.slots)
	return out
}

// Groups returns the groups in order of first appearance.
func (s *Storage[R]) Groups() []*Group[R] {
	out := make([]*Group[R], len(s.groups))
	copy(out, s.groups)
	return out
}

// GroupAt returns the group with the given index.
func (s *Storage[R]) GroupAt(index int) (*Group[R], bool) {
	if index < 0 || index >= len(s.groups) {
		return nil, false
	}
	return s.groups[index], true
}

// Group returns the group of the given type id.
func (s *Storage[R]) Group(typeID string) (*Group[R], bool) {
	for _, g := range s.groups {
		if g.typ.ID == typeID {
			return g, true
		}
	}
	return nil, false
}

// GroupOf returns the group owning the slot at index.
func (s *Storage[R]) GroupOf(index int) *Group[R] {
	return s.groups[s.slotGroup[index]]
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Storage[R]) IsEmpty() bool { return allEmpty(s.slots) }
func (s *Storage[R]) IsFull() bool  { return allFull(s.slots) }

// Count returns the total amount of v across all slots.
func (s *Storage[R]) Count(v Variant[R]) Amount { return count(s.slots, v) }

// CountResource returns the total amount of resource regardless of tag.
func (s *Storage[R]) CountResource(resource R) Amount {
	var total Amount
	for _, slot := range s.slots {
		if slot.variant.IsOf(resource) {
			total += slot.amount
		}
	}
	return total
}

// ContainsAny reports whether any slot holds resource.
func (s *Storage[R]) ContainsAny(resource R) bool {
	for _, slot := range s.slots {
		if !slot.IsEmpty() && slot.variant.IsOf(resource) {
			return true
		}
	}
	return false
}

// CanInsert reports whether all of amount would fit. tx may be nil.
func (s *Storage[R]) CanInsert(v Variant[R], amount Amount, tx *Transaction) bool {
	n, err := s.SimulateInsert(v, amount, tx)
	return err == nil && n == amount
}

// CanExtract reports whether all of amount could be taken. tx may be nil.
func (s *Storage[R]) CanExtract(v Variant[R], amount Amount, tx *Transaction) bool {
	n, err := s.SimulateExtract(v, amount, tx)
	return err == nil && n == amount
}

// Modifications returns the number of committed slot mutations. It panics
// while the storage is enlisted in an open transaction.
func (s *Storage[R]) Modifications() uint64 {
	if s.tx.active() {
		panic(&TransactionError{Op: "read storage modifications", Err: ErrTransactionInProgress})
	}
	return s.modifications
}

// AddListener registers fn to run after each root commit that changed the
// storage.
func (s *Storage[R]) AddListener(fn func()) {
	if s.empty {
		return
	}
	s.listeners = append(s.listeners, fn)
}

// =============================================================================
// MUTATION
// =============================================================================

// Insert distributes up to amount of v first-fit across all slots.
func (s *Storage[R]) Insert(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	requireTransaction(tx, "storage insert")
	return insertInto(s.slots, v, amount, tx), nil
}

// InsertMatching tops up slots already holding v before using others.
func (s *Storage[R]) InsertMatching(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	requireTransaction(tx, "storage insert matching")
	return insertMatchingInto(s.slots, v, amount, tx), nil
}

// InsertExact inserts all of amount or nothing.
func (s *Storage[R]) InsertExact(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	requireTransaction(tx, "storage insert exact")
	return exactly(tx, amount, func(t *Transaction) Amount { return insertInto(s.slots, v, amount, t) }), nil
}

// Extract drains up to amount of v from slots in order.
func (s *Storage[R]) Extract(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	requireTransaction(tx, "storage extract")
	return extractFrom(s.slots, v, amount, tx), nil
}

// ExtractExact extracts all of amount or nothing.
func (s *Storage[R]) ExtractExact(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	requireTransaction(tx, "storage extract exact")
	return exactly(tx, amount, func(t *Transaction) Amount { return extractFrom(s.slots, v, amount, t) }), nil
}

// SimulateInsert reports what Insert would return. tx may be nil.
func (s *Storage[R]) SimulateInsert(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	return simulate(tx, func(t *Transaction) Amount { return insertInto(s.slots, v, amount, t) }), nil
}

// SimulateExtract reports what Extract would return. tx may be nil.
func (s *Storage[R]) SimulateExtract(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	return simulate(tx, func(t *Transaction) Amount { return extractFrom(s.slots, v, amount, t) }), nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Save encodes the storage as {Slots: [slot...]}.
func (s *Storage[R]) Save() Compound {
	list := make([]any, len(s.slots))
	for i, slot := range s.slots {
		list[i] = slot.Save()
	}
	return Compound{"Slots": list}
}

// Load restores slots from Save output. Missing trailing entries clear their
// slots and extra entries are ignored.
func (s *Storage[R]) Load(c Compound) {
	entries := c.CompoundList("Slots")
	for i, slot := range s.slots {
		if i < len(entries) {
			slot.Load(entries[i])
		} else {
			slot.Load(Compound{})
		}
	}
}

func (s *Storage[R]) String() string {
	return fmt.Sprintf("%s storage(%d slots, %d groups)", s.kind.Name(), len(s.slots), len(s.groups))
}

// =============================================================================
// TRANSACTION PARTICIPATION
// =============================================================================

func (s *Storage[R]) member() *membership { return &s.tx }
func (s *Storage[R]) restore(any)         {}
func (s *Storage[R]) finalize()           {}

func (s *Storage[R]) notify() {
	for _, fn := range s.listeners {
		fn()
	}
}

// =============================================================================
// ALGORITHMS - Shared by storages, groups and exposed views
// =============================================================================

func insertInto[R comparable](slots []*Slot[R], v Variant[R], amount Amount, tx *Transaction) Amount {
	remaining := amount
	for _, slot := range slots {
		if remaining == 0 {
			break
		}
		remaining -= slot.insert(v, remaining, tx)
	}
	return amount - remaining
}

func insertMatchingInto[R comparable](slots []*Slot[R], v Variant[R], amount Amount, tx *Transaction) Amount {
	remaining := amount
	for _, slot := range slots {
		if remaining == 0 {
			break
		}
		if slot.Contains(v) {
			remaining -= slot.insert(v, remaining, tx)
		}
	}
	if remaining > 0 {
		remaining -= insertInto(slots, v, remaining, tx)
	}
	return amount - remaining
}

func extractFrom[R comparable](slots []*Slot[R], v Variant[R], amount Amount, tx *Transaction) Amount {
	remaining := amount
	for _, slot := range slots {
		if remaining == 0 {
			break
		}
		remaining -= slot.extract(v, remaining, tx)
	}
	return amount - remaining
}

// exactly runs op in a nested transaction and keeps the result only when op
// moved the full amount.
func exactly(tx *Transaction, amount Amount, op func(t *Transaction) Amount) Amount {
	nested := tx.Open()
	defer nested.Close()
	if op(nested) != amount {
		return 0
	}
	nested.Commit()
	return amount
}

func count[R comparable](slots []*Slot[R], v Variant[R]) Amount {
	var total Amount
	for _, slot := range slots {
		if slot.Contains(v) {
			total += slot.amount
		}
	}
	return total
}

func allEmpty[R comparable](slots []*Slot[R]) bool {
	for _, slot := range slots {
		if !slot.IsEmpty() {
			return false
		}
	}
	return true
}

func allFull[R comparable](slots []*Slot[R]) bool {
	for _, slot := range slots {
		if !slot.IsFull() {
			return false
		}
	}
	return true
}
