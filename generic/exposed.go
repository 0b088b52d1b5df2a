/*
exposed.go - Flow and selection restricted views for automation

PURPOSE:
  Pipes, conveyors and neighbouring machines never see a Storage directly.
  They get an ExposedStorage built for one face: a flow direction plus an
  optional selection (one slot or one group). The view is the
  automation-safety boundary:

    - only selected slots are visible, iterable or addressable
    - a slot accepts external insertion only if the flow allows input AND
      the slot's ExternalInsert flag is set (same for extraction)
    - the multi-slot algorithms run over the visible slots only

  A selection whose index does not exist in the storage is treated as no
  selection, since saved face configs may outlive a storage layout.
*/
package generic

import "fmt"

// =============================================================================
// SELECTION
// =============================================================================

type selectionKind uint8

const (
	selectSlot selectionKind = iota + 1
	selectGroup
)

// Selection restricts a view to a single slot or a single group.
// The zero Selection selects nothing in particular (the whole storage).
type Selection struct {
	kind  selectionKind
	index int
}

// SelectSlot selects the slot at index.
func SelectSlot(index int) Selection { return Selection{kind: selectSlot, index: index} }

// SelectGroup selects the group at index.
func SelectGroup(index int) Selection { return Selection{kind: selectGroup, index: index} }

func (s Selection) IsSet() bool   { return s.kind != 0 }
func (s Selection) IsSlot() bool  { return s.kind == selectSlot }
func (s Selection) IsGroup() bool { return s.kind == selectGroup }
func (s Selection) Index() int    { return s.index }

func (s Selection) String() string {
	switch s.kind {
	case selectSlot:
		return fmt.Sprintf("slot %d", s.index)
	case selectGroup:
		return fmt.Sprintf("group %d", s.index)
	}
	return "all"
}

// Save encodes the selection as {Slot: i} or {Group: i}; no selection is an
// empty compound.
func (s Selection) Save() Compound {
	switch s.kind {
	case selectSlot:
		return Compound{"Slot": int64(s.index)}
	case selectGroup:
		return Compound{"Group": int64(s.index)}
	}
	return Compound{}
}

// LoadSelection decodes Save output. Anything unrecognised is no selection.
func LoadSelection(c Compound) Selection {
	switch {
	case c.Has("Slot"):
		if i := c.Int64Or("Slot", -1); i >= 0 {
			return SelectSlot(int(i))
		}
	case c.Has("Group"):
		if i := c.Int64Or("Group", -1); i >= 0 {
			return SelectGroup(int(i))
		}
	}
	return Selection{}
}

// Resolve returns the indices of the slots sel covers in s. An unset or
// dangling selection covers every slot.
func (s *Storage[R]) Resolve(sel Selection) []int {
	switch {
	case sel.IsSlot() && sel.index >= 0 && sel.index < len(s.slots):
		return []int{sel.index}
	case sel.IsGroup() && sel.index >= 0 && sel.index < len(s.groups):
		g := s.groups[sel.index]
		out := make([]int, len(g.slots))
		for i, slot := range g.slots {
			out[i] = slot.index
		}
		return out
	}
	out := make([]int, len(s.slots))
	for i := range s.slots {
		out[i] = i
	}
	return out
}

// =============================================================================
// EXPOSED STORAGE
// =============================================================================

// ExposedStorage is an automation view over part of a storage.
type ExposedStorage[R comparable] struct {
	storage    *Storage[R]
	flow       Flow
	selection  Selection
	slots      []*ExposedSlot[R]
	inserters  []*Slot[R]
	extractors []*Slot[R]
}

// Expose builds the automation view for flow over the selected slots.
func (s *Storage[R]) Expose(flow Flow, sel Selection) *ExposedStorage[R] {
	view := &ExposedStorage[R]{storage: s, flow: flow, selection: sel}
	for _, i := range s.Resolve(sel) {
		slot := s.slots[i]
		es := &ExposedSlot[R]{
			slot:    slot,
			insert:  flow.Insertion() && slot.access.ExternalInsert,
			extract: flow.Extraction() && slot.access.ExternalExtract,
		}
		if !es.insert && !es.extract {
			continue
		}
		view.slots = append(view.slots, es)
		if es.insert {
			view.inserters = append(view.inserters, slot)
		}
		if es.extract {
			view.extractors = append(view.extractors, slot)
		}
	}
	return view
}

func (x *ExposedStorage[R]) Flow() Flow           { return x.flow }
func (x *ExposedStorage[R]) Selection() Selection { return x.selection }
func (x *ExposedStorage[R]) Size() int            { return len(x.slots) }

// SupportsInsertion reports whether any visible slot accepts automation
// input under this flow.
func (x *ExposedStorage[R]) SupportsInsertion() bool { return len(x.inserters) > 0 }

// SupportsExtraction reports whether any visible slot allows automation
// output under this flow.
func (x *ExposedStorage[R]) SupportsExtraction() bool { return len(x.extractors) > 0 }

// Slot returns the i-th visible slot.
func (x *ExposedStorage[R]) Slot(i int) *ExposedSlot[R] { return x.slots[i] }

// Slots returns the visible slots in storage order.
func (x *ExposedStorage[R]) Slots() []*ExposedSlot[R] {
	out := make([]*ExposedSlot[R], len(x.slots))
	copy(out, x.slots)
	return out
}

// Version is the underlying storage's modification count. Callers cache
// scans of the view against it.
func (x *ExposedStorage[R]) Version() uint64 { return x.storage.Modifications() }

// Count returns how much of v the visible slots hold.
func (x *ExposedStorage[R]) Count(v Variant[R]) Amount {
	var total Amount
	for _, es := range x.slots {
		if es.slot.Contains(v) {
			total += es.slot.amount
		}
	}
	return total
}

func (x *ExposedStorage[R]) Insert(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	requireTransaction(tx, "exposed insert")
	return insertInto(x.inserters, v, amount, tx), nil
}

func (x *ExposedStorage[R]) Extract(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	requireTransaction(tx, "exposed extract")
	return extractFrom(x.extractors, v, amount, tx), nil
}

func (x *ExposedStorage[R]) SimulateInsert(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	return simulate(tx, func(t *Transaction) Amount { return insertInto(x.inserters, v, amount, t) }), nil
}

func (x *ExposedStorage[R]) SimulateExtract(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	return simulate(tx, func(t *Transaction) Amount { return extractFrom(x.extractors, v, amount, t) }), nil
}

// =============================================================================
// EXPOSED SLOT
// =============================================================================

// ExposedSlot is one visible slot of an ExposedStorage.
type ExposedSlot[R comparable] struct {
	slot    *Slot[R]
	insert  bool
	extract bool
}

func (x *ExposedSlot[R]) Index() int               { return x.slot.index }
func (x *ExposedSlot[R]) Variant() Variant[R]      { return x.slot.variant }
func (x *ExposedSlot[R]) Amount() Amount           { return x.slot.amount }
func (x *ExposedSlot[R]) Capacity() Amount         { return x.slot.RealCapacity() }
func (x *ExposedSlot[R]) IsEmpty() bool            { return x.slot.IsEmpty() }
func (x *ExposedSlot[R]) SupportsInsertion() bool  { return x.insert }
func (x *ExposedSlot[R]) SupportsExtraction() bool { return x.extract }

func (x *ExposedSlot[R]) Insert(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	requireTransaction(tx, "exposed slot insert")
	if !x.insert {
		return 0, nil
	}
	return x.slot.insert(v, amount, tx), nil
}

// Extract takes up to amount of v; a blank v matches the slot's content.
func (x *ExposedSlot[R]) Extract(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	requireTransaction(tx, "exposed slot extract")
	if !x.extract {
		return 0, nil
	}
	return x.slot.extract(v, amount, tx), nil
}

func (x *ExposedSlot[R]) SimulateInsert(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if err := validateInsert(v, amount); err != nil {
		return 0, err
	}
	if !x.insert {
		return 0, nil
	}
	return x.slot.SimulateInsert(v, amount, tx)
}

func (x *ExposedSlot[R]) SimulateExtract(v Variant[R], amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	if !x.extract {
		return 0, nil
	}
	return x.slot.SimulateExtract(v, amount, tx)
}
