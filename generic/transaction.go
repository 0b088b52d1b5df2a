/*
transaction.go - Nested transactions with an explicit undo journal

PURPOSE:
  Transactions let a tick try a multi-step transfer (pull fuel, push output,
  charge a battery) and undo all of it if any step falls short. They are a
  rollback mechanism, not a concurrency primitive.

HOW IT WORKS:
  Mutations are applied eagerly. Before a participant (slot, energy
  storage, storage) changes for the first time at a given nesting level it
  records an undo entry holding its prior state in that level's journal.

    Commit (nested): entries move to the parent unless the parent already
                     holds an older entry for the same participant.
    Commit (root):   every participant bumps its modification counter once,
                     then listeners run.
    Abort:           every entry of this level is replayed, restoring the
                     state the participant had when this level first
                     touched it. Counters never move.

SCOPED ROLLBACK:
  Close aborts an open transaction and is a no-op otherwise, so the usual
  shape is:

    tx := generic.OpenTransaction()
    defer tx.Close()
    ...
    tx.Commit()

  An early return or a panic leaves the transaction uncommitted and the
  deferred Close rolls it back.

MISUSE:
  Using a closed transaction, using an outer transaction while a child is
  open, or touching a participant that belongs to another root transaction
  panics with *TransactionError.

SEE ALSO:
  - slot.go: Records slot snapshots
  - energy.go: Records energy snapshots
*/
package generic

// =============================================================================
// PARTICIPANTS
// =============================================================================

// membership ties a participant to the root transaction it is enlisted in.
type membership struct {
	root *Transaction
}

// active reports whether the participant is enlisted in an open transaction.
func (m *membership) active() bool { return m.root != nil }

type participant interface {
	member() *membership
	// restore puts back the state captured in snapshot.
	restore(snapshot any)
	// finalize runs once when the root transaction commits.
	finalize()
}

// notifier is implemented by participants with listeners. notify runs after
// every participant of the root transaction has been finalized and released.
type notifier interface {
	notify()
}

type undoEntry struct {
	p        participant
	snapshot any
}

// =============================================================================
// TRANSACTION
// =============================================================================

type txState uint8

const (
	txOpen txState = iota
	txCommitted
	txAborted
)

// Transaction is one level of a nested transaction chain.
type Transaction struct {
	parent  *Transaction
	child   *Transaction
	depth   int
	state   txState
	journal []undoEntry
	index   map[participant]struct{}
	onClose []func(committed bool)
}

// OpenTransaction opens a root transaction.
func OpenTransaction() *Transaction {
	return &Transaction{index: make(map[participant]struct{})}
}

// OpenNested opens a child of parent, or a root transaction when parent is
// nil.
func OpenNested(parent *Transaction) *Transaction {
	if parent == nil {
		return OpenTransaction()
	}
	return parent.Open()
}

// Open opens a child transaction. tx must be the innermost open transaction.
func (tx *Transaction) Open() *Transaction {
	tx.checkUsable("open nested")
	child := &Transaction{
		parent: tx,
		depth:  tx.depth + 1,
		index:  make(map[participant]struct{}),
	}
	tx.child = child
	return child
}

// Depth is 0 for a root transaction.
func (tx *Transaction) Depth() int { return tx.depth }

func (tx *Transaction) IsOpen() bool { return tx.state == txOpen }

func (tx *Transaction) Parent() *Transaction { return tx.parent }

// Root returns the outermost transaction of the chain.
func (tx *Transaction) Root() *Transaction {
	for tx.parent != nil {
		tx = tx.parent
	}
	return tx
}

// Participants returns how many participants this level will restore on
// abort.
func (tx *Transaction) Participants() int { return len(tx.journal) }

// OnClose registers fn to run when the root transaction closes. Callbacks
// registered in a nested transaction that aborts are dropped.
func (tx *Transaction) OnClose(fn func(committed bool)) {
	tx.checkUsable("register close callback")
	tx.onClose = append(tx.onClose, fn)
}

// Commit makes the changes of this level part of the parent, or final when
// tx is the root.
func (tx *Transaction) Commit() {
	tx.checkUsable("commit")
	tx.state = txCommitted

	if tx.parent != nil {
		tx.mergeIntoParent()
		return
	}

	for _, e := range tx.journal {
		e.p.finalize()
	}
	tx.release()
	for _, e := range tx.journal {
		if n, ok := e.p.(notifier); ok {
			n.notify()
		}
	}
	for _, fn := range tx.onClose {
		fn(true)
	}
}

// Abort rolls back every change made at this level and below.
func (tx *Transaction) Abort() {
	tx.checkUsable("abort")
	tx.state = txAborted

	for i := len(tx.journal) - 1; i >= 0; i-- {
		e := tx.journal[i]
		e.p.restore(e.snapshot)
	}

	if tx.parent != nil {
		// participants first enlisted here go back to being free
		for _, e := range tx.journal {
			if !tx.parent.tracks(e.p) {
				e.p.member().root = nil
			}
		}
		tx.parent.child = nil
		return
	}

	tx.release()
	for _, fn := range tx.onClose {
		fn(false)
	}
}

// Close aborts tx if it is still open. It is meant to be deferred.
func (tx *Transaction) Close() {
	if tx.state != txOpen {
		return
	}
	if tx.child != nil {
		tx.child.Close()
	}
	tx.Abort()
}

func (tx *Transaction) mergeIntoParent() {
	parent := tx.parent
	for _, e := range tx.journal {
		if _, ok := parent.index[e.p]; ok {
			continue
		}
		parent.index[e.p] = struct{}{}
		parent.journal = append(parent.journal, e)
	}
	parent.onClose = append(parent.onClose, tx.onClose...)
	parent.child = nil
}

func (tx *Transaction) release() {
	for _, e := range tx.journal {
		e.p.member().root = nil
	}
}

// tracks reports whether tx or one of its ancestors holds an entry for p.
func (tx *Transaction) tracks(p participant) bool {
	for t := tx; t != nil; t = t.parent {
		if _, ok := t.index[p]; ok {
			return true
		}
	}
	return false
}

// enlist records p's state before its first mutation at this level.
// capture is only called when an entry is actually recorded.
func (tx *Transaction) enlist(p participant, capture func() any) {
	if tx == nil {
		panic(&TransactionError{Op: "enlist", Err: ErrNoTransaction})
	}
	tx.checkUsable("enlist")

	root := tx.Root()
	m := p.member()
	if m.root != nil && m.root != root {
		panic(&TransactionError{Op: "enlist", Depth: tx.depth, Err: ErrForeignTransaction})
	}
	m.root = root

	if _, ok := tx.index[p]; ok {
		return
	}
	tx.index[p] = struct{}{}
	tx.journal = append(tx.journal, undoEntry{p: p, snapshot: capture()})
}

func (tx *Transaction) checkUsable(op string) {
	if tx.state != txOpen {
		panic(&TransactionError{Op: op, Depth: tx.depth, Err: ErrTransactionClosed})
	}
	if tx.child != nil {
		panic(&TransactionError{Op: op, Depth: tx.depth, Err: ErrTransactionNotInnermost})
	}
}

// requireTransaction panics when a mutating operation gets a nil or
// closed transaction.
func requireTransaction(tx *Transaction, op string) {
	if tx == nil {
		panic(&TransactionError{Op: op, Err: ErrNoTransaction})
	}
	tx.checkUsable(op)
}

// =============================================================================
// HELPERS
// =============================================================================

// WithTransaction runs fn in a child of parent (or a root transaction when
// parent is nil). The transaction commits when fn returns nil and rolls back
// otherwise, including when fn panics.
func WithTransaction(parent *Transaction, fn func(tx *Transaction) error) error {
	tx := OpenNested(parent)
	defer tx.Close()

	if err := fn(tx); err != nil {
		return err
	}
	tx.Commit()
	return nil
}

// simulate runs op in a nested transaction that is always rolled back.
func simulate[T any](parent *Transaction, op func(tx *Transaction) T) T {
	tx := OpenNested(parent)
	defer tx.Close()
	return op(tx)
}
