/*
slot.go - A single bounded (variant, amount) cell

PURPOSE:
  Slot is the smallest unit of storage. It holds one variant and up to
  its capacity of it, accepts only variants its filter allows, and records
  every mutation in the transaction it is given.

INVARIANTS:
  - 0 <= amount <= capacity
  - amount == 0 <=> variant is blank (an emptied slot forgets its variant)
  - modifications only grows, by exactly 1 per root commit that changed
    the slot

PERMISSIONS:
  Three independent axes decide who may move resources:
    player:   Access.PlayerInsert (players may always extract)
    external: Access.ExternalInsert / ExternalExtract, enforced by exposed
              views (exposed.go)
    internal: machine logic calls Insert/Extract directly and is never
              restricted
*/
package generic

// Access holds the per-slot permission flags.
type Access struct {
	PlayerInsert    bool `json:"player_insert"`
	ExternalInsert  bool `json:"external_insert"`
	ExternalExtract bool `json:"external_extract"`
}

// AccessFor returns the default permissions of an input type.
func AccessFor(t InputType) Access {
	return Access{
		PlayerInsert:    t.PlayerInsertion(),
		ExternalInsert:  t.ExternalInsertion(),
		ExternalExtract: t.ExternalExtraction(),
	}
}

// Display positions a slot in a machine screen.
type Display struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type slotState[R comparable] struct {
	variant Variant[R]
	amount  Amount
}

// Slot holds a single variant.
type Slot[R comparable] struct {
	kind     Kind[R]
	owner    *Storage[R]
	index    int
	access   Access
	filter   Filter[R]
	capacity Amount
	display  Display

	variant       Variant[R]
	amount        Amount
	modifications uint64
	tx            membership
}

// NewSlot creates a standalone slot. Slots inside a storage are created by
// the storage builder.
func NewSlot[R comparable](kind Kind[R], capacity Amount, filter Filter[R], access Access) *Slot[R] {
	if filter == nil {
		filter = AcceptAll[R]()
	}
	return &Slot[R]{kind: kind, capacity: capacity, filter: filter, access: access}
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Slot[R]) Variant() Variant[R] { return s.variant }
func (s *Slot[R]) Resource() R         { return s.variant.resource }
func (s *Slot[R]) Amount() Amount      { return s.amount }
func (s *Slot[R]) Capacity() Amount    { return s.capacity }
func (s *Slot[R]) Index() int          { return s.index }
func (s *Slot[R]) Access() Access      { return s.access }
func (s *Slot[R]) Display() Display    { return s.display }
func (s *Slot[R]) Filter() Filter[R]   { return s.filter }
func (s *Slot[R]) IsEmpty() bool       { return s.amount == 0 }

// CapacityFor returns how much of v the slot can hold in total.
func (s *Slot[R]) CapacityFor(v Variant[R]) Amount {
	if v.IsBlank() {
		return s.capacity
	}
	return s.kind.SlotCapacity(v.resource, s.capacity)
}

// RealCapacity is the capacity for the variant currently held.
func (s *Slot[R]) RealCapacity() Amount {
	return s.CapacityFor(s.variant)
}

func (s *Slot[R]) IsFull() bool {
	return !s.IsEmpty() && s.amount >= s.RealCapacity()
}

// Contains reports whether the slot holds v.
func (s *Slot[R]) Contains(v Variant[R]) bool {
	return !s.IsEmpty() && s.variant.Equal(v)
}

// Accepts reports whether the filter allows v.
func (s *Slot[R]) Accepts(v Variant[R]) bool {
	return !v.IsBlank() && s.filter(v)
}

// CanAccept reports whether v passes both the filter and the identity check.
func (s *Slot[R]) CanAccept(v Variant[R]) bool {
	return s.Accepts(v) && (s.variant.IsBlank() || s.variant.Equal(v))
}

// CanInsert reports whether all of amount would fit.
func (s *Slot[R]) CanInsert(v Variant[R], amount Amount) bool {
	return s.CanAccept(v) && s.CapacityFor(v)-s.amount >= amount
}

// Modifications returns how many committed root transactions changed the
// slot. It panics while the slot or its storage is enlisted in an open
// transaction.
func (s *Slot[R]) Modifications() uint64 {
	s.checkIdle("read slot modifications")
	return s.modifications
}

// =============================================================================
// MUTATION
// =============================================================================

// Insert adds up to amount of v and returns how much was added.
func (s *Slot[R]) Insert(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	requireTransaction(tx, "insert")
	return s.insert(v, amount, tx), nil
}

func (s *Slot[R]) insert(v Variant[R], amount Amount, tx *Transaction) Amount {
	if !s.CanAccept(v) {
		return 0
	}
	inserted := minAmount(amount, s.CapacityFor(v)-s.amount)
	if inserted <= 0 {
		return 0
	}

	s.enlist(tx)
	if s.variant.IsBlank() {
		s.variant = v
	}
	s.amount += inserted
	return inserted
}

// Extract removes up to amount of v and returns how much was removed.
// A blank v matches whatever the slot holds.
func (s *Slot[R]) Extract(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	requireTransaction(tx, "extract")
	return s.extract(v, amount, tx), nil
}

func (s *Slot[R]) extract(v Variant[R], amount Amount, tx *Transaction) Amount {
	if s.variant.IsBlank() || (!v.IsBlank() && !s.variant.Equal(v)) {
		return 0
	}
	extracted := minAmount(amount, s.amount)
	if extracted <= 0 {
		return 0
	}

	s.enlist(tx)
	s.amount -= extracted
	if s.amount == 0 {
		s.variant = Variant[R]{}
	}
	return extracted
}

// SimulateInsert reports what Insert would return without changing anything.
// tx may be nil.
func (s *Slot[R]) SimulateInsert(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	return simulate(tx, func(t *Transaction) Amount { return s.insert(v, amount, t) }), nil
}

// SimulateExtract reports what Extract would return without changing
// anything. tx may be nil.
func (s *Slot[R]) SimulateExtract(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	return simulate(tx, func(t *Transaction) Amount { return s.extract(v, amount, t) }), nil
}

// Set replaces the contents outside of any transaction. It is meant for
// loading and client reconciliation, not gameplay, and does not count as a
// modification.
func (s *Slot[R]) Set(v Variant[R], amount Amount) error {
	if amount < 0 {
		return negativeAmount(amount)
	}
	s.checkIdle("set slot")
	if v.IsBlank() || amount == 0 {
		s.variant, s.amount = Variant[R]{}, 0
		return nil
	}
	s.variant = v
	s.amount = minAmount(amount, s.CapacityFor(v))
	return nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Save encodes the slot as {Resource, Tag?, Amount}; an empty slot is an
// empty compound.
func (s *Slot[R]) Save() Compound {
	if s.IsEmpty() {
		return Compound{}
	}
	c := Compound{
		"Resource": s.kind.ID(s.variant.resource),
		"Amount":   int64(s.amount),
	}
	if s.variant.HasTag() {
		c["Tag"] = s.variant.Tag()
	}
	return c
}

// Load restores the slot from Save output. Unknown resources and
// non-positive amounts load as an empty slot.
func (s *Slot[R]) Load(c Compound) {
	s.checkIdle("load slot")
	resource, ok := s.kind.Lookup(c.String("Resource"))
	amount := Amount(c.Int64("Amount"))
	if !ok || amount <= 0 {
		s.variant, s.amount = Variant[R]{}, 0
		return
	}
	s.variant = NewVariant(resource, c.Compound("Tag"))
	if s.variant.IsBlank() {
		s.amount = 0
		return
	}
	s.amount = minAmount(amount, s.CapacityFor(s.variant))
}

// =============================================================================
// TRANSACTION PARTICIPATION
// =============================================================================

func (s *Slot[R]) enlist(tx *Transaction) {
	if s.owner != nil {
		tx.enlist(s.owner, noSnapshot)
	}
	tx.enlist(s, func() any { return slotState[R]{variant: s.variant, amount: s.amount} })
}

func (s *Slot[R]) member() *membership { return &s.tx }

func (s *Slot[R]) restore(snapshot any) {
	state := snapshot.(slotState[R])
	s.variant, s.amount = state.variant, state.amount
}

func (s *Slot[R]) finalize() {
	s.modifications++
	if s.owner != nil {
		s.owner.modifications++
	}
}

func (s *Slot[R]) checkIdle(op string) {
	if s.tx.active() || (s.owner != nil && s.owner.tx.active()) {
		panic(&TransactionError{Op: op, Err: ErrTransactionInProgress})
	}
}

func validateInsert[R comparable](v Variant[R], amount Amount) error {
	if amount < 0 {
		return negativeAmount(amount)
	}
	if v.IsBlank() {
		return blankVariant()
	}
	return nil
}

func noSnapshot() any { return nil }
