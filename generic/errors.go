/*
errors.go - Centralized error types for the storage engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Argument errors - Negative amounts, blank variants, bad indices.
     Returned before any mutation happens.
  2. Transaction errors - Misuse of the transaction protocol. These are
     caller bugs and are raised with panic(*TransactionError).
  3. Registry errors - Duplicate or unknown identifiers

  Capacity and filter rejections are NOT errors: insert/extract simply
  return less than requested.

USAGE:
  inserted, err := slot.Insert(v, n, tx)
  if errors.Is(err, generic.ErrInvalidArgument) {
      ...
  }

SEE ALSO:
  - transaction.go: Raises transaction errors
  - registry.go: Raises registry errors
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument is returned for negative amounts, blank variants
	// passed where a resource is required, and out-of-range indices.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransactionInProgress is raised when a modification counter is read
	// while a transaction touching it is still open.
	ErrTransactionInProgress = errors.New("transaction in progress")

	// ErrTransactionClosed is raised when a committed or aborted transaction
	// is used again.
	ErrTransactionClosed = errors.New("transaction already closed")

	// ErrTransactionNotInnermost is raised when an outer transaction is used
	// while one of its children is still open.
	ErrTransactionNotInnermost = errors.New("transaction is not the innermost open transaction")

	// ErrNoTransaction is raised when a mutating operation is called
	// without a transaction.
	ErrNoTransaction = errors.New("operation requires an open transaction")

	// ErrForeignTransaction is raised when a participant already enlisted in
	// one root transaction is touched by another.
	ErrForeignTransaction = errors.New("participant belongs to another transaction")

	// ErrUnknownResource is returned when an identifier is not registered.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrDuplicateID is returned when registering an identifier twice.
	ErrDuplicateID = errors.New("duplicate identifier")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ArgumentError describes a rejected argument.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func negativeAmount(amount Amount) error {
	return &ArgumentError{Field: "amount", Reason: fmt.Sprintf("must not be negative, got %d", amount)}
}

func blankVariant() error {
	return &ArgumentError{Field: "variant", Reason: "must not be blank"}
}

// TransactionError is the panic value for transaction protocol violations.
type TransactionError struct {
	Op    string
	Depth int
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s (depth %d): %v", e.Op, e.Depth, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// LookupError describes an identifier that could not be resolved.
type LookupError struct {
	Registry string
	ID       string
	Err      error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Registry, e.ID, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR CLASSIFICATION HELPERS
// =============================================================================

// IsClientError returns true if the error was caused by bad input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrDuplicateID)
}

// IsNotFound returns true if a referenced identifier does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownResource)
}
