/*
Package sqlite provides a SQLite-backed machine.Store.

PURPOSE:
  Persists machine records so a world survives restarts. Each machine is
  one row holding its serialized compound as JSON.

KEY TABLES:
  machines: id, type, data (JSON compound), updated_at

INDEXES:
  - idx_machines_type: listing and counting machines per type

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole database transaction, and every read inside it goes through the
  same sql.Tx.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging) so readers do
  not block the autosave writer. ":memory:" databases are pinned to one
  connection, since each connection would otherwise see its own empty
  database.

USAGE:
  store, err := sqlite.New("./data/machines.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  world := machine.NewWorld(types, store)

SEE ALSO:
  - machine/store.go: Store interface and Record
  - store/memory: In-memory implementation for tests
  - store/redis: Redis implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/machine-storage/generic"
	"github.com/warp/machine-storage/machine"
	"go.uber.org/zap"
)

// Store implements machine.Store using SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
}

var _ machine.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	if dbPath == ":memory:" {
		dsn = dbPath
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	store.logger.Debug("sqlite store ready", zap.String("path", dbPath))
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS machines (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_machines_type
		ON machines(type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// MACHINE STORE (machine.Store interface)
// =============================================================================

// Save inserts or replaces a record.
func (s *Store) Save(ctx context.Context, rec machine.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(ctx, s.db, rec)
}

// Load returns the record with id.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (machine.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return load(ctx, s.db, id)
}

// List returns every record ordered by id.
func (s *Store) List(ctx context.Context) ([]machine.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return list(ctx, s.db)
}

// Delete removes the record with id.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(ctx, s.db, id)
}

// CountByType returns how many stored machines each type has.
func (s *Store) CountByType(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT type, COUNT(*) FROM machines GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("failed to count machines: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("failed to scan machine count: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

func save(ctx context.Context, db querier, rec machine.Record) error {
	data, err := rec.Data.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode machine %s: %w", rec.ID, err)
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		INSERT INTO machines (id, type, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	_, err = db.ExecContext(ctx, query,
		rec.ID.String(),
		rec.Type,
		string(data),
		updatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save machine %s: %w", rec.ID, err)
	}
	return nil
}

func load(ctx context.Context, db querier, id uuid.UUID) (machine.Record, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, type, data, updated_at FROM machines WHERE id = ?",
		id.String(),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return machine.Record{}, fmt.Errorf("%w: %s", machine.ErrMachineNotFound, id)
	}
	return rec, err
}

func list(ctx context.Context, db querier) ([]machine.Record, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, type, data, updated_at FROM machines ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query machines: %w", err)
	}
	defer rows.Close()

	var records []machine.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func remove(ctx context.Context, db querier, id uuid.UUID) error {
	result, err := db.ExecContext(ctx, "DELETE FROM machines WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete machine %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete machine %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", machine.ErrMachineNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (machine.Record, error) {
	var (
		rec       machine.Record
		id        string
		data      string
		updatedAt string
	)
	if err := row.Scan(&id, &rec.Type, &data, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan machine: %w", err)
	}

	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return rec, fmt.Errorf("%w: bad id %q", machine.ErrCorruptRecord, id)
	}
	if rec.Data, err = generic.DecodeCompound([]byte(data)); err != nil {
		return rec, fmt.Errorf("%w: machine %s: %v", machine.ErrCorruptRecord, id, err)
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return rec, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store machine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Save(ctx context.Context, rec machine.Record) error {
	return save(ctx, ts.tx, rec)
}

func (ts *txStore) Load(ctx context.Context, id uuid.UUID) (machine.Record, error) {
	return load(ctx, ts.tx, id)
}

func (ts *txStore) List(ctx context.Context) ([]machine.Record, error) {
	return list(ctx, ts.tx)
}

func (ts *txStore) Delete(ctx context.Context, id uuid.UUID) error {
	return remove(ctx, ts.tx, id)
}

// WithTx joins the enclosing transaction.
func (ts *txStore) WithTx(_ context.Context, fn func(store machine.Store) error) error {
	return fn(ts)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for tests and demos).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM machines")
	return err
}
