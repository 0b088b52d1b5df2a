package machine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/machine-storage/generic"
	"go.uber.org/zap"
)

// =============================================================================
// LINKS
// =============================================================================

// Link is an automation connection: every tick, up to Max of Resource moves
// from one machine's face into another machine's face.
type Link struct {
	ID       uuid.UUID
	From     uuid.UUID
	FromFace Face
	To       uuid.UUID
	ToFace   Face
	Resource ResourceType
	Max      generic.Amount
}

func (l Link) validate() error {
	switch {
	case l.From == l.To:
		return &generic.ArgumentError{Field: "link", Reason: "a machine cannot link to itself"}
	case l.Resource == ResourceNone:
		return &generic.ArgumentError{Field: "link resource", Reason: "must not be none"}
	case l.Max <= 0:
		return &generic.ArgumentError{Field: "link max", Reason: fmt.Sprintf("must be positive, got %d", l.Max)}
	}
	return nil
}

func (l Link) save() generic.Compound {
	return generic.Compound{
		"ID":       l.ID.String(),
		"To":       l.To.String(),
		"FromFace": int64(l.FromFace),
		"ToFace":   int64(l.ToFace),
		"Resource": int64(l.Resource),
		"Max":      int64(l.Max),
	}
}

func loadLink(from uuid.UUID, c generic.Compound) (Link, bool) {
	id, err := uuid.Parse(c.String("ID"))
	if err != nil {
		return Link{}, false
	}
	to, err := uuid.Parse(c.String("To"))
	if err != nil {
		return Link{}, false
	}
	resource, ok := ResourceTypeFromOrdinal(int(c.Int64("Resource")))
	if !ok {
		return Link{}, false
	}
	fromFace, toFace := c.Int64("FromFace"), c.Int64("ToFace")
	if fromFace < 0 || fromFace > 5 || toFace < 0 || toFace > 5 {
		return Link{}, false
	}
	l := Link{
		ID:       id,
		From:     from,
		FromFace: Face(fromFace),
		To:       to,
		ToFace:   Face(toFace),
		Resource: resource,
		Max:      generic.Amount(c.Int64("Max")),
	}
	return l, l.validate() == nil
}

// =============================================================================
// WORLD
// =============================================================================

// WorldOption configures a World.
type WorldOption func(*World)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) WorldOption {
	return func(w *World) { w.logger = logger }
}

// WithAutosaveEvery saves dirty machines every n ticks. Zero disables
// autosave from Tick.
func WithAutosaveEvery(n int) WorldOption {
	return func(w *World) { w.autosaveEvery = n }
}

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) WorldOption {
	return func(w *World) { w.now = now }
}

// World owns live machines and their links. All methods are safe for
// concurrent use; machines are only touched while the world lock is held.
type World struct {
	mu       sync.Mutex
	types    *Types
	store    Store
	logger   *zap.Logger
	now      func() time.Time
	machines map[uuid.UUID]*Machine
	order    []uuid.UUID
	links    map[uuid.UUID][]Link
	removed  map[uuid.UUID]struct{}

	ticks         uint64
	autosaveEvery int
}

func NewWorld(types *Types, store Store, opts ...WorldOption) *World {
	w := &World{
		types:    types,
		store:    store,
		logger:   zap.NewNop(),
		now:      time.Now,
		machines: make(map[uuid.UUID]*Machine),
		links:    make(map[uuid.UUID][]Link),
		removed:  make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) Types() *Types { return w.types }

// Ticks returns how many ticks have run.
func (w *World) Ticks() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ticks
}

// Create instantiates a machine of typeID.
func (w *World) Create(typeID string) (*Machine, error) {
	typ, err := w.types.Get(typeID)
	if err != nil {
		return nil, err
	}
	m, err := New(typ, uuid.Nil)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.addLocked(m)
	w.logger.Info("machine created", zap.String("machine_id", m.id.String()), zap.String("type", typeID))
	return m, nil
}

func (w *World) addLocked(m *Machine) {
	if _, exists := w.machines[m.id]; !exists {
		w.order = append(w.order, m.id)
	}
	w.machines[m.id] = m
	delete(w.removed, m.id)
}

// Do runs fn with exclusive access to the machine.
func (w *World) Do(id uuid.UUID, fn func(m *Machine) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.machines[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMachineNotFound, id)
	}
	return fn(m)
}

// IDs returns machine ids in creation order.
func (w *World) IDs() []uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]uuid.UUID, len(w.order))
	copy(out, w.order)
	return out
}

// Remove drops a machine and every link touching it. The stored record is
// deleted on the next save.
func (w *World) Remove(id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.machines[id]; !ok {
		return fmt.Errorf("%w: %s", ErrMachineNotFound, id)
	}
	delete(w.machines, id)
	delete(w.links, id)
	for i, other := range w.order {
		if other == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	for from, links := range w.links {
		kept := links[:0]
		for _, l := range links {
			if l.To != id {
				kept = append(kept, l)
			}
		}
		if len(kept) != len(links) {
			w.links[from] = kept
			w.markDirtyLocked(from)
		}
	}
	w.removed[id] = struct{}{}
	w.logger.Info("machine removed", zap.String("machine_id", id.String()))
	return nil
}

func (w *World) markDirtyLocked(id uuid.UUID) {
	if m, ok := w.machines[id]; ok {
		m.dirty = true
	}
}

// AddLink connects two machines. Links are persisted with their source
// machine.
func (w *World) AddLink(l Link) (Link, error) {
	if err := l.validate(); err != nil {
		return Link{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range []uuid.UUID{l.From, l.To} {
		if _, ok := w.machines[id]; !ok {
			return Link{}, fmt.Errorf("%w: %s", ErrMachineNotFound, id)
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	w.links[l.From] = append(w.links[l.From], l)
	w.markDirtyLocked(l.From)
	return l, nil
}

// RemoveLink deletes a link by id.
func (w *World) RemoveLink(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for from, links := range w.links {
		for i, l := range links {
			if l.ID == id {
				w.links[from] = append(links[:i], links[i+1:]...)
				w.markDirtyLocked(from)
				return true
			}
		}
	}
	return false
}

// Links returns every link, grouped by source in creation order.
func (w *World) Links() []Link {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Link
	for _, id := range w.order {
		out = append(out, w.links[id]...)
	}
	return out
}

// =============================================================================
// TICK
// =============================================================================

// Tick advances every machine once. Each machine runs its behaviour and
// then its outgoing links in one root transaction; a failure rolls back
// that machine's tick only.
func (w *World) Tick(ctx context.Context) error {
	tick, err := w.tickAll(ctx)
	if err != nil {
		return err
	}
	if w.autosaveEvery > 0 && tick%uint64(w.autosaveEvery) == 0 {
		if _, err := w.Autosave(ctx); err != nil {
			return err
		}
	}
	return nil
}

// tickAll runs every machine under the world lock and returns the tick
// number.
func (w *World) tickAll(ctx context.Context) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ticks++
	tick := w.ticks
	var failed int
	for _, id := range w.order {
		if err := ctx.Err(); err != nil {
			return tick, err
		}
		if err := w.tickMachine(ctx, w.machines[id]); err != nil {
			failed++
			w.logger.Warn("machine tick rolled back",
				zap.String("machine_id", id.String()),
				zap.Uint64("tick", tick),
				zap.Error(err))
		}
	}
	if failed > 0 {
		w.logger.Debug("tick finished with failures", zap.Uint64("tick", tick), zap.Int("failed", failed))
	}
	return tick, nil
}

func (w *World) tickMachine(ctx context.Context, m *Machine) error {
	tx := generic.OpenTransaction()
	defer tx.Close()

	if m.typ.Behaviour != nil {
		if err := m.typ.Behaviour.Tick(ctx, m, tx); err != nil {
			return err
		}
	}
	for _, l := range w.links[m.id] {
		if err := w.runLink(l, tx); err != nil {
			return fmt.Errorf("link %s: %w", l.ID, err)
		}
	}
	tx.Commit()
	return nil
}

func (w *World) runLink(l Link, tx *generic.Transaction) error {
	from, to := w.machines[l.From], w.machines[l.To]
	if from == nil || to == nil {
		return nil
	}

	if l.Resource.WillAccept(ResourceItem) {
		src, ok1 := from.ExposedItems(l.FromFace)
		dst, ok2 := to.ExposedItems(l.ToFace)
		if ok1 && ok2 {
			if _, err := generic.MoveAll(src, dst, l.Max, tx); err != nil {
				return err
			}
		}
	}
	if l.Resource.WillAccept(ResourceFluid) {
		src, ok1 := from.ExposedFluids(l.FromFace)
		dst, ok2 := to.ExposedFluids(l.ToFace)
		if ok1 && ok2 {
			if _, err := generic.MoveAll(src, dst, l.Max, tx); err != nil {
				return err
			}
		}
	}
	if l.Resource.WillAccept(ResourceEnergy) {
		src, ok1 := from.ExposedEnergy(l.FromFace)
		dst, ok2 := to.ExposedEnergy(l.ToFace)
		if ok1 && ok2 {
			if _, err := generic.MoveEnergy(src, dst, l.Max, tx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Run ticks every interval until ctx is cancelled, then saves once more.
func (w *World) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("world running", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			if err := w.finalSave(); err != nil {
				return err
			}
			w.logger.Info("world stopped", zap.Uint64("ticks", w.Ticks()))
			return nil
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("tick failed", zap.Error(err))
			}
		}
	}
}

// finalSave runs after ctx is cancelled, so it gets a context of its own.
func (w *World) finalSave() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := w.Autosave(ctx); err != nil {
		return fmt.Errorf("failed final save: %w", err)
	}
	return nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Record snapshots one machine, links included.
func (w *World) Record(id uuid.UUID) (Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.machines[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrMachineNotFound, id)
	}
	return w.recordLocked(m), nil
}

func (w *World) recordLocked(m *Machine) Record {
	rec := NewRecord(m, w.now())
	if links := w.links[m.id]; len(links) > 0 {
		saved := make([]any, len(links))
		for i, l := range links {
			saved[i] = l.save()
		}
		rec.Data["Links"] = saved
	}
	return rec
}

// Save persists one machine now.
func (w *World) Save(ctx context.Context, id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.machines[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMachineNotFound, id)
	}
	if err := w.store.Save(ctx, w.recordLocked(m)); err != nil {
		return fmt.Errorf("failed to save machine %s: %w", id, err)
	}
	m.MarkClean()
	return nil
}

// Autosave writes every dirty machine and deletes removed ones in a single
// store transaction. It returns how many machines were written.
func (w *World) Autosave(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var dirty []*Machine
	for _, id := range w.order {
		if m := w.machines[id]; m.Dirty() {
			dirty = append(dirty, m)
		}
	}
	if len(dirty) == 0 && len(w.removed) == 0 {
		return 0, nil
	}

	err := w.store.WithTx(ctx, func(s Store) error {
		for _, m := range dirty {
			if err := s.Save(ctx, w.recordLocked(m)); err != nil {
				return fmt.Errorf("failed to save machine %s: %w", m.id, err)
			}
		}
		for id := range w.removed {
			if err := s.Delete(ctx, id); err != nil && !errors.Is(err, ErrMachineNotFound) {
				return fmt.Errorf("failed to delete machine %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		w.logger.Error("autosave failed", zap.Error(err))
		return 0, err
	}

	for _, m := range dirty {
		m.MarkClean()
	}
	clear(w.removed)
	w.logger.Debug("autosave complete", zap.Int("saved", len(dirty)))
	return len(dirty), nil
}

// Restore loads every stored machine. Records that fail to load are logged
// and skipped so one bad record does not keep the world down.
func (w *World) Restore(ctx context.Context) (int, error) {
	records, err := w.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list machines: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	loaded := 0
	for _, rec := range records {
		m, err := rec.Restore(w.types)
		if err != nil {
			w.logger.Warn("skipping machine record",
				zap.String("machine_id", rec.ID.String()),
				zap.String("type", rec.Type),
				zap.Error(err))
			continue
		}
		w.addLocked(m)
		var links []Link
		for _, c := range rec.Data.CompoundList("Links") {
			if l, ok := loadLink(m.id, c); ok {
				links = append(links, l)
			}
		}
		w.links[m.id] = links
		loaded++
	}
	w.logger.Info("world restored", zap.Int("machines", loaded), zap.Int("records", len(records)))
	return loaded, nil
}
