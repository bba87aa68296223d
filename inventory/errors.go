/*
errors.go - Centralized error types for the inventory ledger

PURPOSE:
  All error kinds in one place. The ledger distinguishes five classes:
  not-found, validation, insufficient stock, conflict (duplicate part
  number), and system (storage) failures. The HTTP layer maps each
  class to a status code; the core never throws across layers.

PROPAGATION POLICY:
  Validation and not-found errors are detected before any mutation and
  returned with no side effects. System errors mid-transaction trigger
  a full rollback of the enclosing storage transaction. Nothing is
  retried by the core.

USAGE:
  if inventory.IsInsufficientStock(err) {
      var ise *inventory.InsufficientStockError
      errors.As(err, &ise)
      // ise.Available, ise.Requested ...
  }
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is the base for all missing-entity errors.
	ErrNotFound = errors.New("not found")

	// ErrValidation is the base for all input validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock is returned when an OUT line exceeds the
	// referenced part's available stock at validation time.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConflict is returned on uniqueness violations (part number).
	ErrConflict = errors.New("conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string // "part", "transaction", "category", "invoice"
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientStockError names the offending part, its available stock
// frozen at validation time, and the requested quantity.
type InsufficientStockError struct {
	PartID     PartID
	PartNumber string
	Available  int64
	Requested  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for part %s: %d available, %d requested",
		e.PartNumber, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ConflictError reports a duplicate part number.
type ConflictError struct {
	PartNumber string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("part number %q already exists", e.PartNumber)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool          { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool        { return errors.Is(err, ErrValidation) }
func IsInsufficientStock(err error) bool { return errors.Is(err, ErrInsufficientStock) }
func IsConflict(err error) bool          { return errors.Is(err, ErrConflict) }

// IsClientError returns true if the error is due to invalid client
// input rather than a storage fault.
func IsClientError(err error) bool {
	return IsNotFound(err) || IsValidation(err) || IsInsufficientStock(err) || IsConflict(err)
}
