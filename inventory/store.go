/*
store.go - Persistence interface for the inventory ledger

PURPOSE:
  Defines the interface between domain logic and the database. Every
  multi-step mutation in this package runs through TxStore.WithTx so
  that stock updates, transaction headers, and line items land in one
  atomic unit - or not at all.

TRANSACTIONAL CONTRACT:
  WithTx executes fn against a Store view scoped to a single database
  transaction. If fn returns an error the transaction is rolled back;
  otherwise it is committed. The Store handed to fn MUST NOT be
  retained past fn's return.

  Correctness of the concurrent stock-sufficiency check rests on the
  implementation serializing WithTx sections touching the same parts
  (row locking, mutex, or a CAS retry loop - see store/sqlite).

LOOKUP CONVENTION:
  Get* methods return (nil, nil) when the entity is absent; callers
  translate that into a NotFoundError. This keeps storage faults
  distinguishable from missing rows.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store

SEE ALSO:
  - ledger.go, parts.go: operations built on this interface
*/
package inventory

import (
	"context"
	"time"
)

// Store is the flat persistence surface. All reads and single-row
// writes live here; atomicity across several calls comes from TxStore.
type Store interface {
	// Parts
	GetPart(ctx context.Context, id PartID) (*Part, error)
	GetPartByNumber(ctx context.Context, partNumber string) (*Part, error)
	ListParts(ctx context.Context) ([]Part, error)
	InsertPart(ctx context.Context, p *Part) error
	UpdatePart(ctx context.Context, p *Part) error

	// UpdatePartStock sets the cached stock and touches updated_at.
	// It is only called from within a WithTx scope alongside the
	// ledger writes that explain the change.
	UpdatePartStock(ctx context.Context, id PartID, stock int64, at time.Time) error

	// DeletePartCascade removes the part together with every
	// transaction item and invoice item referencing it, atomically.
	DeletePartCascade(ctx context.Context, id PartID) error

	// Transactions
	InsertTransaction(ctx context.Context, tx *Transaction) error
	InsertTransactionItem(ctx context.Context, item *TransactionItem) error
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	ListTransactions(ctx context.Context, limit int) ([]Transaction, error)

	// DeleteTransaction removes the header; line items and invoices
	// referencing it go with it (cascade).
	DeleteTransaction(ctx context.Context, id TransactionID) error

	// Categories
	GetCategory(ctx context.Context, id CategoryID) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	InsertCategory(ctx context.Context, c *Category) error

	// Invoices
	InsertInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)

	// OutboundUsageByPart aggregates OUT-type transaction items per
	// part: total quantity moved and number of distinct transactions,
	// ordered by total quantity descending, limited to limit rows.
	OutboundUsageByPart(ctx context.Context, limit int) ([]FastMovingPart, error)
}

// TxStore wraps Store with transaction scoping.
type TxStore interface {
	Store

	// WithTx executes fn within a database transaction.
	// fn's error rolls back; nil commits.
	WithTx(ctx context.Context, fn func(Store) error) error
}
