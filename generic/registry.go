/*
registry.go - Explicit identifier registries

PURPOSE:
  Item types, fluid types, slot group types and machine statuses are open
  sets identified by string ids. Each set lives in a Registry object that is
  constructed once and passed to whoever needs it; there is no package-level
  state.

STABLE ORDINALS:
  Every entry has an ordinal used by compact encodings (status bytes, sync
  packets). Ordinals come from the stable-id table handed to
  NewRegistryWithTable, or from registration order when no table is given.
  Entries outside a table are appended after it, so adding ids to the end of
  the table never renumbers existing ones.

USAGE:
  groups := generic.NewRegistry[generic.GroupType]("group type")
  groups.Register("fuel", fuelGroup)
  g, err := groups.ByID("fuel")

SEE ALSO:
  - group.go: GroupType
  - item/registry.go, fluid/fluid.go: Resource registries
*/
package generic

import (
	"fmt"
	"sync"
)

// =============================================================================
// REGISTRY
// =============================================================================

type registryEntry[T any] struct {
	id    string
	value T
	set   bool
}

// Registry maps stable string ids and ordinals to values.
type Registry[T any] struct {
	name    string
	mu      sync.RWMutex
	entries []registryEntry[T]
	byID    map[string]int
}

// NewRegistry creates an empty registry. name is used in error messages.
func NewRegistry[T any](name string) *Registry[T] {
	return &Registry[T]{name: name, byID: make(map[string]int)}
}

// NewRegistryWithTable creates a registry whose ordinals are fixed by table.
// Ids in the table are reserved until registered.
func NewRegistryWithTable[T any](name string, table []string) *Registry[T] {
	r := NewRegistry[T](name)
	for _, id := range table {
		if _, dup := r.byID[id]; dup {
			continue
		}
		r.byID[id] = len(r.entries)
		r.entries = append(r.entries, registryEntry[T]{id: id})
	}
	return r
}

// Register adds value under id and returns its ordinal.
func (r *Registry[T]) Register(id string, value T) (int, error) {
	if id == "" {
		return 0, &ArgumentError{Field: r.name + " id", Reason: "must not be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ordinal, ok := r.byID[id]; ok {
		if r.entries[ordinal].set {
			return 0, &LookupError{Registry: r.name, ID: id, Err: ErrDuplicateID}
		}
		r.entries[ordinal].value = value
		r.entries[ordinal].set = true
		return ordinal, nil
	}

	ordinal := len(r.entries)
	r.entries = append(r.entries, registryEntry[T]{id: id, value: value, set: true})
	r.byID[id] = ordinal
	return ordinal, nil
}

// MustRegister is Register for static setup code. It panics on error.
func (r *Registry[T]) MustRegister(id string, value T) int {
	ordinal, err := r.Register(id, value)
	if err != nil {
		panic(err)
	}
	return ordinal
}

// ByID returns the value registered under id.
func (r *Registry[T]) ByID(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ordinal, ok := r.byID[id]; ok && r.entries[ordinal].set {
		return r.entries[ordinal].value, nil
	}
	var zero T
	return zero, &LookupError{Registry: r.name, ID: id, Err: ErrUnknownResource}
}

// ByOrdinal returns the value with the given ordinal.
func (r *Registry[T]) ByOrdinal(ordinal int) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if ordinal < 0 || ordinal >= len(r.entries) || !r.entries[ordinal].set {
		return zero, false
	}
	return r.entries[ordinal].value, true
}

// Ordinal returns the ordinal of id.
func (r *Registry[T]) Ordinal(id string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ordinal, ok := r.byID[id]
	if !ok || !r.entries[ordinal].set {
		return 0, false
	}
	return ordinal, true
}

// IDs returns the registered ids in ordinal order.
func (r *Registry[T]) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		if e.set {
			ids = append(ids, e.id)
		}
	}
	return ids
}

// Len returns the number of registered values.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if e.set {
			n++
		}
	}
	return n
}

func (r *Registry[T]) String() string {
	return fmt.Sprintf("registry(%s, %d entries)", r.name, r.Len())
}
