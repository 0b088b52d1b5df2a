package generic_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/machine-storage/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// testKind is a resource kind keyed by plain strings. Resources listed in
// maxStack are clamped like items with a small stack size.
type testKind struct {
	maxStack map[string]generic.Amount
}

func newTestKind() *testKind {
	return &testKind{maxStack: map[string]generic.Amount{"pearl": 16}}
}

func (k *testKind) Name() string       { return "test" }
func (k *testKind) ID(r string) string { return r }
func (k *testKind) Lookup(id string) (string, bool) {
	return id, id != "" && id != "unknown"
}

func (k *testKind) SlotCapacity(r string, capacity generic.Amount) generic.Amount {
	if m, ok := k.maxStack[r]; ok && m < capacity {
		return m
	}
	return capacity
}

var (
	inputGroup   = generic.NewGroupType("input", "Input", generic.SlotInput)
	outputGroup  = generic.NewGroupType("output", "Output", generic.SlotOutput)
	storageGroup = generic.NewGroupType("storage", "Storage", generic.SlotStorage)
	batteryGroup = generic.NewGroupType("battery", "Battery", generic.SlotTransfer)
)

func v(id string) generic.Variant[string] { return generic.Of(id) }

// newStorage builds a storage of n storage-group slots with the given
// capacity.
func newStorage(t *testing.T, n int, capacity generic.Amount) *generic.Storage[string] {
	t.Helper()
	b := generic.NewStorageBuilder[string](newTestKind())
	for range n {
		b.AddSlot(storageGroup, nil, true, capacity, generic.Display{})
	}
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

// commit runs fn in a root transaction and commits it.
func commit(t *testing.T, fn func(tx *generic.Transaction)) {
	t.Helper()
	tx := generic.OpenTransaction()
	defer tx.Close()
	fn(tx)
	tx.Commit()
}

func insert(t *testing.T, s *generic.Storage[string], id string, n generic.Amount) generic.Amount {
	t.Helper()
	var inserted generic.Amount
	commit(t, func(tx *generic.Transaction) {
		var err error
		inserted, err = s.Insert(v(id), n, tx)
		require.NoError(t, err)
	})
	return inserted
}

type slotContent struct {
	id     string
	amount generic.Amount
}

func contents(s *generic.Storage[string]) []slotContent {
	out := make([]slotContent, s.Size())
	for i, slot := range s.Slots() {
		out[i] = slotContent{id: slot.Resource(), amount: slot.Amount()}
	}
	return out
}
