package generic

// =============================================================================
// GROUP TYPE
// =============================================================================

// GroupType tags a set of slots that share a role, such as "fuel" or
// "output". Group types are registered in a Registry[GroupType].
type GroupType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Colour    uint32    `json:"colour"`
	InputType InputType `json:"input_type"`
}

// NewGroupType creates a group type whose colour follows its input type.
func NewGroupType(id, name string, inputType InputType) GroupType {
	return GroupType{ID: id, Name: name, Colour: inputType.Colour(), InputType: inputType}
}

// Automatable reports whether automation may touch slots of this type.
func (g GroupType) Automatable() bool {
	_, ok := g.InputType.ExternalFlow()
	return ok
}

// =============================================================================
// GROUP
// =============================================================================

// Group is an ordered view over the slots of one group type within a
// storage. Groups never overlap.
type Group[R comparable] struct {
	typ     GroupType
	index   int
	storage *Storage[R]
	slots   []*Slot[R]
}

func (g *Group[R]) Type() GroupType           { return g.typ }
func (g *Group[R]) Index() int                { return g.index }
func (g *Group[R]) Storage() *Storage[R]      { return g.storage }
func (g *Group[R]) Size() int                 { return len(g.slots) }
func (g *Group[R]) Slot(i int) *Slot[R]       { return g.slots[i] }
func (g *Group[R]) IsEmpty() bool             { return allEmpty(g.slots) }
func (g *Group[R]) IsFull() bool              { return allFull(g.slots) }
func (g *Group[R]) Count(v Variant[R]) Amount { return count(g.slots, v) }

// Slots returns the slots of the group in storage order.
func (g *Group[R]) Slots() []*Slot[R] {
	out := make([]*Slot[R], len(g.slots))
	copy(out, g.slots)
	return out
}

// Insert fills the group's slots first-fit in order.
func (g *Group[R]) Insert(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	requireTransaction(tx, "group insert")
	return insertInto(g.slots, v, amount, tx), nil
}

// Extract drains the group's slots in order.
func (g *Group[R]) Extract(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	requireTransaction(tx, "group extract")
	return extractFrom(g.slots, v, amount, tx), nil
}

// SimulateInsert reports what Insert would return. tx may be nil.
func (g *Group[R]) SimulateInsert(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	return simulate(tx, func(t *Transaction) Amount { return insertInto(g.slots, v, amount, t) }), nil
}

// SimulateExtract reports what Extract would return. tx may be nil.
func (g *Group[R]) SimulateExtract(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	return simulate(tx, func(t *Transaction) Amount { return extractFrom(g.slots, v, amount, t) }), nil
}
