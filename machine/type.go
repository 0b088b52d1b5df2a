package machine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/machine-storage/fluid"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/item"
)

// Behaviour is what a machine does on each tick. It runs inside the
// machine's tick transaction; returning an error rolls the tick back.
type Behaviour interface {
	Tick(ctx context.Context, m *Machine, tx *generic.Transaction) error
}

// BehaviourFunc adapts a function to Behaviour.
type BehaviourFunc func(ctx context.Context, m *Machine, tx *generic.Transaction) error

func (f BehaviourFunc) Tick(ctx context.Context, m *Machine, tx *generic.Transaction) error {
	return f(ctx, m, tx)
}

// Type is a machine definition. Instances built from the same type share
// its layout but nothing else.
type Type struct {
	ID   string
	Name string

	Items  *item.StorageBuilder
	Fluids *fluid.StorageBuilder
	Energy generic.EnergySpec

	Statuses  *StatusDomain
	Behaviour Behaviour

	// DefaultIO is the face configuration new machines start with.
	DefaultIO IOConfig
}

// Validate checks that the type can produce machines.
func (t *Type) Validate() error {
	if t.ID == "" {
		return &generic.ArgumentError{Field: "id", Reason: "must not be empty"}
	}
	if t.Items == nil || t.Fluids == nil {
		return &generic.ArgumentError{Field: t.ID + ".storage", Reason: "item and fluid builders are required"}
	}
	if t.Statuses == nil {
		return &generic.ArgumentError{Field: t.ID + ".statuses", Reason: "status domain is required"}
	}
	if err := t.Energy.Validate(); err != nil {
		return fmt.Errorf("invalid energy for %s: %w", t.ID, err)
	}
	return nil
}

// =============================================================================
// TYPE SET
// =============================================================================

// Types is the set of machine types a world knows about.
type Types struct {
	mu     sync.RWMutex
	byID   map[string]*Type
	items  *item.Registry
	fluids *fluid.Registry
}

// NewTypes creates an empty set bound to the given resource registries.
func NewTypes(items *item.Registry, fluids *fluid.Registry) *Types {
	return &Types{byID: make(map[string]*Type), items: items, fluids: fluids}
}

func (ts *Types) Items() *item.Registry   { return ts.items }
func (ts *Types) Fluids() *fluid.Registry { return ts.fluids }

// Add validates and registers t.
func (ts *Types) Add(t *Type) error {
	if err := t.Validate(); err != nil {
		return err
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, dup := ts.byID[t.ID]; dup {
		return &generic.LookupError{Registry: "machine type", ID: t.ID, Err: generic.ErrDuplicateID}
	}
	ts.byID[t.ID] = t
	return nil
}

// Get returns the type with id, or ErrUnknownType.
func (ts *Types) Get(id string) (*Type, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, id)
	}
	return t, nil
}

// All returns the types sorted by id.
func (ts *Types) All() []*Type {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]*Type, 0, len(ts.byID))
	for _, t := range ts.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
