// Package memory provides an in-memory machine.Store for tests and
// development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/machine-storage/machine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu      sync.RWMutex
	records map[uuid.UUID]machine.Record
}

var _ machine.Store = (*Store)(nil)

func New() *Store {
	return &Store{records: make(map[uuid.UUID]machine.Record)}
}

func (s *Store) Save(_ context.Context, rec machine.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(rec)
	return nil
}

// saveLocked stores a deep copy so callers cannot mutate stored state.
func (s *Store) saveLocked(rec machine.Record) {
	rec.Data = rec.Data.Copy()
	s.records[rec.ID] = rec
}

func (s *Store) Load(_ context.Context, id uuid.UUID) (machine.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(id)
}

func (s *Store) loadLocked(id uuid.UUID) (machine.Record, error) {
	rec, ok := s.records[id]
	if !ok {
		return machine.Record{}, fmt.Errorf("%w: %s", machine.ErrMachineNotFound, id)
	}
	rec.Data = rec.Data.Copy()
	return rec, nil
}

// List returns records ordered by id.
func (s *Store) List(_ context.Context) ([]machine.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(), nil
}

func (s *Store) listLocked() []machine.Record {
	out := make([]machine.Record, 0, len(s.records))
	for _, rec := range s.records {
		rec.Data = rec.Data.Copy()
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *Store) deleteLocked(id uuid.UUID) error {
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", machine.ErrMachineNotFound, id)
	}
	delete(s.records, id)
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (s *Store) WithTx(_ context.Context, fn func(machine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[uuid.UUID]machine.Record, len(s.records))
	for id, rec := range s.records {
		snapshot[id] = rec
	}

	if err := fn(&txView{parent: s}); err != nil {
		s.records = snapshot
		return err
	}
	return nil
}

// txView writes straight through; the parent lock is already held.
type txView struct {
	parent *Store
}

func (v *txView) Save(_ context.Context, rec machine.Record) error {
	v.parent.saveLocked(rec)
	return nil
}

func (v *txView) Load(_ context.Context, id uuid.UUID) (machine.Record, error) {
	return v.parent.loadLocked(id)
}

func (v *txView) List(_ context.Context) ([]machine.Record, error) {
	return v.parent.listLocked(), nil
}

func (v *txView) Delete(_ context.Context, id uuid.UUID) error {
	return v.parent.deleteLocked(id)
}

// WithTx on a view runs fn in the enclosing transaction.
func (v *txView) WithTx(_ context.Context, fn func(machine.Store) error) error {
	return fn(v)
}
