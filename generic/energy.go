/*
energy.go - Single-pool energy storage

PURPOSE:
  Energy has no identity, only a quantity. EnergyStorage is one pool with
  a total capacity and separate caps on how much a single insert or extract
  call may move, modeling a throughput bottleneck distinct from capacity.

    TryInsert(x)  = min(maxInsert,  min(amount+x, capacity) - amount)
    TryExtract(x) = min(maxExtract, min(amount, x))

  Caps apply per call. A machine that calls Insert twice within one
  transaction can move twice the cap.

ADMINISTRATIVE WRITES:
  SetAmount bypasses transactions and caps. It exists for loading and
  client reconciliation only.
*/
package generic

import "fmt"

// EnergySpec configures an energy storage.
type EnergySpec struct {
	Capacity        Amount `json:"capacity" yaml:"capacity"`
	MaxInsert       Amount `json:"max_insert" yaml:"max_insert"`
	MaxExtract      Amount `json:"max_extract" yaml:"max_extract"`
	ExternalInsert  bool   `json:"external_insert" yaml:"external_insert"`
	ExternalExtract bool   `json:"external_extract" yaml:"external_extract"`
}

// Validate rejects negative capacities and rates.
func (s EnergySpec) Validate() error {
	switch {
	case s.Capacity < 0:
		return &ArgumentError{Field: "energy capacity", Reason: fmt.Sprintf("must not be negative, got %d", s.Capacity)}
	case s.MaxInsert < 0:
		return &ArgumentError{Field: "energy max_insert", Reason: fmt.Sprintf("must not be negative, got %d", s.MaxInsert)}
	case s.MaxExtract < 0:
		return &ArgumentError{Field: "energy max_extract", Reason: fmt.Sprintf("must not be negative, got %d", s.MaxExtract)}
	}
	return nil
}

// EnergyStorage is a transactional energy pool.
type EnergyStorage struct {
	spec   EnergySpec
	amount Amount

	modifications uint64
	tx            membership
	listeners     []func()
}

// NewEnergyStorage creates an empty pool.
func NewEnergyStorage(spec EnergySpec) (*EnergyStorage, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &EnergyStorage{spec: spec}, nil
}

// =============================================================================
// QUERIES
// =============================================================================

func (e *EnergyStorage) Spec() EnergySpec   { return e.spec }
func (e *EnergyStorage) Amount() Amount     { return e.amount }
func (e *EnergyStorage) Capacity() Amount   { return e.spec.Capacity }
func (e *EnergyStorage) MaxInsert() Amount  { return e.spec.MaxInsert }
func (e *EnergyStorage) MaxExtract() Amount { return e.spec.MaxExtract }
func (e *EnergyStorage) IsFull() bool       { return e.amount >= e.spec.Capacity }
func (e *EnergyStorage) IsEmpty() bool      { return e.amount == 0 }

func (e *EnergyStorage) SupportsInsertion() bool  { return e.spec.MaxInsert > 0 }
func (e *EnergyStorage) SupportsExtraction() bool { return e.spec.MaxExtract > 0 }

// TryInsert returns how much Insert(amount) would accept.
func (e *EnergyStorage) TryInsert(amount Amount) Amount {
	if amount <= 0 {
		return 0
	}
	room := minAmount(e.amount+amount, e.spec.Capacity) - e.amount
	return max(0, minAmount(e.spec.MaxInsert, room))
}

// TryExtract returns how much Extract(amount) would yield.
func (e *EnergyStorage) TryExtract(amount Amount) Amount {
	if amount <= 0 {
		return 0
	}
	return minAmount(e.spec.MaxExtract, minAmount(e.amount, amount))
}

// CanInsert reports whether all of amount fits in a single call.
func (e *EnergyStorage) CanInsert(amount Amount) bool {
	return amount <= e.spec.MaxInsert && e.spec.Capacity-e.amount >= amount
}

// CanExtract reports whether all of amount is available in a single call.
func (e *EnergyStorage) CanExtract(amount Amount) bool {
	return amount <= e.spec.MaxExtract && e.amount >= amount
}

// Modifications panics while the pool is enlisted in an open transaction.
func (e *EnergyStorage) Modifications() uint64 {
	e.checkIdle("read energy modifications")
	return e.modifications
}

// AddListener registers fn to run after each root commit that changed the
// pool.
func (e *EnergyStorage) AddListener(fn func()) {
	e.listeners = append(e.listeners, fn)
}

// =============================================================================
// MUTATION
// =============================================================================

func (e *EnergyStorage) Insert(amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	requireTransaction(tx, "energy insert")
	return e.insert(amount, tx), nil
}

func (e *EnergyStorage) insert(amount Amount, tx *Transaction) Amount {
	inserted := e.TryInsert(amount)
	if inserted > 0 {
		e.enlist(tx)
		e.amount += inserted
	}
	return inserted
}

func (e *EnergyStorage) Extract(amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	requireTransaction(tx, "energy extract")
	return e.extract(amount, tx), nil
}

func (e *EnergyStorage) extract(amount Amount, tx *Transaction) Amount {
	extracted := e.TryExtract(amount)
	if extracted > 0 {
		e.enlist(tx)
		e.amount -= extracted
	}
	return extracted
}

// InsertExact inserts all of amount or nothing.
func (e *EnergyStorage) InsertExact(amount Amount, tx *Transaction) (bool, error) {
	if amount < 0 {
		return false, negativeAmount(amount)
	}
	requireTransaction(tx, "energy insert exact")
	if !e.CanInsert(amount) {
		return false, nil
	}
	if amount > 0 {
		e.enlist(tx)
		e.amount += amount
	}
	return true, nil
}

// ExtractExact extracts all of amount or nothing.
func (e *EnergyStorage) ExtractExact(amount Amount, tx *Transaction) (bool, error) {
	if amount < 0 {
		return false, negativeAmount(amount)
	}
	requireTransaction(tx, "energy extract exact")
	if !e.CanExtract(amount) {
		return false, nil
	}
	if amount > 0 {
		e.enlist(tx)
		e.amount -= amount
	}
	return true, nil
}

// SimulateInsert reports what Insert would return. tx may be nil.
func (e *EnergyStorage) SimulateInsert(amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	return simulate(tx, func(t *Transaction) Amount { return e.insert(amount, t) }), nil
}

// SimulateExtract reports what Extract would return. tx may be nil.
func (e *EnergyStorage) SimulateExtract(amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	return simulate(tx, func(t *Transaction) Amount { return e.extract(amount, t) }), nil
}

// SetAmount overwrites the stored energy, clamped to capacity.
func (e *EnergyStorage) SetAmount(amount Amount) error {
	if amount < 0 {
		return negativeAmount(amount)
	}
	e.checkIdle("set energy")
	e.amount = minAmount(amount, e.spec.Capacity)
	return nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func (e *EnergyStorage) Save() Compound {
	return Compound{"Energy": int64(e.amount)}
}

// Load restores the amount. Malformed or negative values load as zero.
func (e *EnergyStorage) Load(c Compound) {
	e.checkIdle("load energy")
	amount := Amount(c.Int64("Energy"))
	if amount < 0 {
		amount = 0
	}
	e.amount = minAmount(amount, e.spec.Capacity)
}

// =============================================================================
// EXPOSED ENERGY
// =============================================================================

// ExposedEnergy is the automation view of a pool for one flow.
type ExposedEnergy struct {
	storage    *EnergyStorage
	maxInsert  Amount
	maxExtract Amount
}

// Expose returns the view automation gets for flow. ok is false when the
// flow permits nothing.
func (e *EnergyStorage) Expose(flow Flow) (view *ExposedEnergy, ok bool) {
	view = &ExposedEnergy{storage: e}
	if flow.Insertion() && e.spec.ExternalInsert {
		view.maxInsert = e.spec.MaxInsert
	}
	if flow.Extraction() && e.spec.ExternalExtract {
		view.maxExtract = e.spec.MaxExtract
	}
	if view.maxInsert == 0 && view.maxExtract == 0 {
		return nil, false
	}
	return view, true
}

func (x *ExposedEnergy) Amount() Amount           { return x.storage.amount }
func (x *ExposedEnergy) Capacity() Amount         { return x.storage.spec.Capacity }
func (x *ExposedEnergy) SupportsInsertion() bool  { return x.maxInsert > 0 }
func (x *ExposedEnergy) SupportsExtraction() bool { return x.maxExtract > 0 }

func (x *ExposedEnergy) Insert(amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	requireTransaction(tx, "exposed energy insert")
	return x.storage.insert(minAmount(amount, x.maxInsert), tx), nil
}

func (x *ExposedEnergy) Extract(amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	requireTransaction(tx, "exposed energy extract")
	return x.storage.extract(minAmount(amount, x.maxExtract), tx), nil
}

func (x *ExposedEnergy) SimulateInsert(amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	return simulate(tx, func(t *Transaction) Amount { return x.storage.insert(minAmount(amount, x.maxInsert), t) }), nil
}

func (x *ExposedEnergy) SimulateExtract(amount Amount, tx *Transaction) (Amount, error) {
	if amount < 0 {
		return 0, negativeAmount(amount)
	}
	return simulate(tx, func(t *Transaction) Amount { return x.storage.extract(minAmount(amount, x.maxExtract), t) }), nil
}

// =============================================================================
// TRANSACTION PARTICIPATION
// =============================================================================

func (e *EnergyStorage) enlist(tx *Transaction) {
	tx.enlist(e, func() any { return e.amount })
}

func (e *EnergyStorage) member() *membership   { return &e.tx }
func (e *EnergyStorage) restore(snapshot any) { e.amount = snapshot.(Amount) }
func (e *EnergyStorage) finalize()            { e.modifications++ }

func (e *EnergyStorage) notify() {
	for _, fn := range e.listeners {
		fn()
	}
}

func (e *EnergyStorage) checkIdle(op string) {
	if e.tx.active() {
		panic(&TransactionError{Op: op, Err: ErrTransactionInProgress})
	}
}
