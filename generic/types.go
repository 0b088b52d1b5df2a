/*
Package generic provides the core resource storage engine.

PURPOSE:
  This package contains kind-agnostic types and algorithms for holding and
  exchanging resources inside machines. Whether a machine stores items,
  fluids or energy, the same engine handles slot bookkeeping, multi-slot
  insertion and extraction, speculative transactions with rollback, and the
  directional views exposed to automation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A non-negative quantity (items, droplets, joules)
  - Flow: The direction automation may move resources through a view
  - InputType: Per-slot permissions for players and external automation

DESIGN PRINCIPLES:
  1. One engine: items and fluids are instantiations of Storage[R], not
     parallel hierarchies
  2. Explicit transactions: every mutating call takes a *Transaction and
     records its own undo entry in it
  3. Rejection is not failure: capacity and filter rejections return 0,
     only invalid arguments return errors
  4. Single-threaded: storages are mutated from one tick goroutine

USAGE:
  tx := generic.OpenTransaction()
  defer tx.Close()

  inserted, err := storage.Insert(variant, 64, tx)
  if err != nil {
      return err
  }
  tx.Commit()

SEE ALSO:
  - transaction.go: Nested transactions and the undo journal
  - slot.go: Single-slot insert/extract
  - storage.go: Multi-slot algorithms
  - exposed.go: Flow and selection restricted views
*/
package generic

import (
	"fmt"
	"strings"
)

// =============================================================================
// AMOUNT
// =============================================================================

// Amount is a quantity of a resource. Items count units, fluids count
// droplets and energy counts joules.
type Amount int64

func minAmount(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// =============================================================================
// FLOW - Direction of automated transfer
// =============================================================================

// Flow is the direction resources may travel through an exposed view.
// Ordinals are persisted and must not be reordered.
type Flow uint8

const (
	FlowInput Flow = iota
	FlowOutput
	FlowBoth
)

var flowNames = [...]string{"input", "output", "both"}

// Insertion reports whether the flow allows resources to enter.
func (f Flow) Insertion() bool { return f == FlowInput || f == FlowBoth }

// Extraction reports whether the flow allows resources to leave.
func (f Flow) Extraction() bool { return f == FlowOutput || f == FlowBoth }

// CanFlowIn reports whether f is compatible with other.
func (f Flow) CanFlowIn(other Flow) bool {
	return f == other || f == FlowBoth || other == FlowBoth
}

func (f Flow) String() string {
	if int(f) < len(flowNames) {
		return flowNames[f]
	}
	return fmt.Sprintf("flow(%d)", uint8(f))
}

// ParseFlow parses the lower-case flow name.
func ParseFlow(s string) (Flow, error) {
	for i, name := range flowNames {
		if strings.EqualFold(s, name) {
			return Flow(i), nil
		}
	}
	return 0, &ArgumentError{Field: "flow", Reason: fmt.Sprintf("unknown flow %q", s)}
}

// FlowFromOrdinal returns the flow with the given ordinal.
func FlowFromOrdinal(ordinal int) (Flow, bool) {
	if ordinal < 0 || ordinal >= len(flowNames) {
		return 0, false
	}
	return Flow(ordinal), true
}

// =============================================================================
// INPUT TYPE - Slot permissions
// =============================================================================

// InputType describes who may move resources into and out of a slot.
// Players may always extract; internal machine logic bypasses these flags.
type InputType uint8

const (
	// SlotInput accepts external and player insertion.
	SlotInput InputType = iota
	// SlotOutput only allows external extraction.
	SlotOutput
	// SlotStorage allows external insertion and extraction.
	SlotStorage
	// SlotTransfer is closed to automation, e.g. battery slots.
	SlotTransfer
)

type inputTypeInfo struct {
	name            string
	colour          uint32
	externalInsert  bool
	externalExtract bool
	playerInsert    bool
}

var inputTypes = [...]inputTypeInfo{
	SlotInput:    {"input", 0x009001, true, false, true},
	SlotOutput:   {"output", 0xa7071e, false, true, false},
	SlotStorage:  {"storage", 0x008d90, true, true, true},
	SlotTransfer: {"transfer", 0x908400, false, false, true},
}

func (t InputType) info() inputTypeInfo {
	if int(t) < len(inputTypes) {
		return inputTypes[t]
	}
	return inputTypeInfo{name: "unknown"}
}

func (t InputType) ExternalInsertion() bool  { return t.info().externalInsert }
func (t InputType) ExternalExtraction() bool { return t.info().externalExtract }
func (t InputType) PlayerInsertion() bool    { return t.info().playerInsert }
func (t InputType) PlayerExtraction() bool   { return true }
func (t InputType) Colour() uint32           { return t.info().colour }
func (t InputType) String() string           { return t.info().name }

// ExternalFlow returns the flow automation may use on slots of this type.
// ok is false when automation has no access at all.
func (t InputType) ExternalFlow() (flow Flow, ok bool) {
	info := t.info()
	switch {
	case info.externalInsert && info.externalExtract:
		return FlowBoth, true
	case info.externalInsert:
		return FlowInput, true
	case info.externalExtract:
		return FlowOutput, true
	}
	return 0, false
}

// ParseInputType parses the lower-case input type name.
func ParseInputType(s string) (InputType, error) {
	for i, info := range inputTypes {
		if strings.EqualFold(s, info.name) {
			return InputType(i), nil
		}
	}
	return 0, &ArgumentError{Field: "input_type", Reason: fmt.Sprintf("unknown input type %q", s)}
}
