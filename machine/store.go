package machine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/warp/machine-storage/generic"
)

// Record is the persisted form of a machine.
type Record struct {
	ID        uuid.UUID
	Type      string
	Data      generic.Compound
	UpdatedAt time.Time
}

// NewRecord snapshots m.
func NewRecord(m *Machine, now time.Time) Record {
	return Record{ID: m.id, Type: m.typ.ID, Data: m.Serialize(), UpdatedAt: now}
}

// Restore rebuilds the machine a record describes.
func (r Record) Restore(types *Types) (*Machine, error) {
	return Deserialize(types, r.ID, r.Data)
}

// Store persists machine records. Save overwrites any record with the same
// id. Load returns ErrMachineNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, id uuid.UUID) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx runs fn against a transactional view of the store. fn's
	// writes are kept when it returns nil and discarded otherwise.
	WithTx(ctx context.Context, fn func(Store) error) error
}
