/*
Package redis provides a Redis-backed machine.Store.

KEYS:
  <prefix>machine:<id>   hash {type, data (JSON compound), updated_at}
  <prefix>ids            set of every stored machine id

TRANSACTIONS:
  WithTx buffers writes in memory. Reads inside the transaction see the
  buffered writes first. On success the buffer is flushed in one MULTI/EXEC
  pipeline; on error it is dropped and Redis is never touched.

USAGE:
  client, err := redis.Connect(ctx, cfg)
  store := redis.New(client, redis.WithPrefix(cfg.KeyPrefix))

SEE ALSO:
  - machine/store.go: Store interface and Record
  - store/sqlite: SQLite implementation
*/
package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/machine"
	"go.uber.org/zap"
)

// Store implements machine.Store on a redis client.
type Store struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
	mu     sync.Mutex
}

var _ machine.Store = (*Store)(nil)

type Option func(*Store)

// WithPrefix namespaces every key. The default is "machines:".
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: "machines:", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id uuid.UUID) string { return s.prefix + "machine:" + id.String() }
func (s *Store) idsKey() string          { return s.prefix + "ids" }

// =============================================================================
// MACHINE STORE (machine.Store interface)
// =============================================================================

func (s *Store) Save(ctx context.Context, rec machine.Record) error {
	fields, err := encode(rec)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.queueSave(ctx, pipe, rec.ID, fields)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save machine %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id uuid.UUID) (machine.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return machine.Record{}, fmt.Errorf("failed to load machine %s: %w", id, err)
	}
	if len(fields) == 0 {
		return machine.Record{}, fmt.Errorf("%w: %s", machine.ErrMachineNotFound, id)
	}
	return decode(id, fields)
}

// List returns records ordered by id.
func (s *Store) List(ctx context.Context) ([]machine.Record, error) {
	members, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	sort.Strings(members)

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			s.logger.Warn("skipping malformed machine id", zap.String("id", m))
			continue
		}
		ids = append(ids, id)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}

	records := make([]machine.Record, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec, err := decode(ids[i], fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.SRem(ctx, s.idsKey(), id.String())
		pipe.Del(ctx, s.key(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete machine %s: %w", id, err)
	}
	if removed.Val() == 0 {
		return fmt.Errorf("%w: %s", machine.ErrMachineNotFound, id)
	}
	return nil
}

func (s *Store) queueSave(ctx context.Context, pipe redis.Pipeliner, id uuid.UUID, fields map[string]any) {
	pipe.Del(ctx, s.key(id))
	pipe.HSet(ctx, s.key(id), fields)
	pipe.SAdd(ctx, s.idsKey(), id.String())
}

func encode(rec machine.Record) (map[string]any, error) {
	data, err := rec.Data.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode machine %s: %w", rec.ID, err)
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	return map[string]any{
		"type":       rec.Type,
		"data":       string(data),
		"updated_at": updatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func decode(id uuid.UUID, fields map[string]string) (machine.Record, error) {
	data, err := generic.DecodeCompound([]byte(fields["data"]))
	if err != nil {
		return machine.Record{}, fmt.Errorf("%w: machine %s: %v", machine.ErrCorruptRecord, id, err)
	}
	updatedAt, _ := time.Parse(time.RFC3339Nano, fields["updated_at"])
	return machine.Record{ID: id, Type: fields["type"], Data: data, UpdatedAt: updatedAt}, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx runs fn against a buffered view and flushes it atomically when fn
// succeeds. Concurrent WithTx calls on the same Store are serialized.
func (s *Store) WithTx(ctx context.Context, fn func(store machine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txStore{parent: s, pending: make(map[uuid.UUID]*machine.Record)}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.flush(ctx)
}

// txStore buffers writes. A nil entry in pending is a delete.
type txStore struct {
	parent  *Store
	pending map[uuid.UUID]*machine.Record
	order   []uuid.UUID
}

func (ts *txStore) touch(id uuid.UUID) {
	if _, ok := ts.pending[id]; !ok {
		ts.order = append(ts.order, id)
	}
}

func (ts *txStore) Save(_ context.Context, rec machine.Record) error {
	ts.touch(rec.ID)
	rec.Data = rec.Data.Copy()
	ts.pending[rec.ID] = &rec
	return nil
}

func (ts *txStore) Load(ctx context.Context, id uuid.UUID) (machine.Record, error) {
	if rec, ok := ts.pending[id]; ok {
		if rec == nil {
			return machine.Record{}, fmt.Errorf("%w: %s", machine.ErrMachineNotFound, id)
		}
		out := *rec
		out.Data = rec.Data.Copy()
		return out, nil
	}
	return ts.parent.Load(ctx, id)
}

func (ts *txStore) List(ctx context.Context) ([]machine.Record, error) {
	stored, err := ts.parent.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]machine.Record, len(stored))
	for _, rec := range stored {
		byID[rec.ID] = rec
	}
	for id, rec := range ts.pending {
		if rec == nil {
			delete(byID, id)
			continue
		}
		byID[id] = *rec
	}

	records := make([]machine.Record, 0, len(byID))
	for _, rec := range byID {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID.String() < records[j].ID.String()
	})
	return records, nil
}

func (ts *txStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := ts.Load(ctx, id); err != nil {
		return err
	}
	ts.touch(id)
	ts.pending[id] = nil
	return nil
}

// WithTx joins the enclosing transaction.
func (ts *txStore) WithTx(_ context.Context, fn func(store machine.Store) error) error {
	return fn(ts)
}

func (ts *txStore) flush(ctx context.Context) error {
	if len(ts.order) == 0 {
		return nil
	}
	encoded := make(map[uuid.UUID]map[string]any, len(ts.pending))
	for id, rec := range ts.pending {
		if rec == nil {
			continue
		}
		fields, err := encode(*rec)
		if err != nil {
			return err
		}
		encoded[id] = fields
	}

	s := ts.parent
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ts.order {
			if fields, ok := encoded[id]; ok {
				s.queueSave(ctx, pipe, id, fields)
				continue
			}
			pipe.SRem(ctx, s.idsKey(), id.String())
			pipe.Del(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit machine transaction: %w", err)
	}
	s.logger.Debug("flushed machine transaction", zap.Int("writes", len(ts.order)))
	return nil
}

