/*
Package inventory is the core of the spare-parts transaction ledger.

PURPOSE:
  This package contains the domain types and operations for tracking
  spare-parts stock: parts with current stock and pricing, stock-moving
  transactions (IN / OUT / ADJUSTMENT) with line items, invoices
  generated from transactions, and the analytical read models built on
  top of the ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Part: a stocked item with price, thresholds, and current stock
  - Transaction: a stock-moving event owning one or more line items
  - TransactionItem: one part + quantity + price snapshot within a transaction
  - Invoice: a billing document with a denormalized item snapshot

DESIGN PRINCIPLES:
  1. Stock is a cached integer, mutated ONLY by transaction application,
     stock adjustment, or reversal - never edited directly
  2. Precision: decimal.Decimal for every monetary value; line totals
     and transaction totals are computed once at creation, never lazily
  3. Navigation by foreign key: items reference parts and transactions
     by integer id, never by live back-pointers

SEE ALSO:
  - ledger.go: transaction creation, reversal, and stock adjustment
  - parts.go: part lifecycle (create, edit, delete with cascade)
  - stats.go: read-only analytical queries
  - store.go: persistence interface
*/
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PartID int64
type CategoryID int64
type TransactionID int64
type InvoiceID int64

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

type TransactionType string

const (
	// TxIn adds each line's quantity to the referenced part's stock.
	TxIn TransactionType = "IN"

	// TxOut subtracts each line's quantity, after a sufficiency check
	// against stock frozen at validation time.
	TxOut TransactionType = "OUT"

	// TxAdjustment sets stock to an absolute value. On the create path a
	// line's quantity IS the target stock; the synthetic adjustment
	// written by UpdateStock instead records the signed delta on its
	// item. Both conventions are deliberate: the create path mirrors a
	// stocktake ("the shelf holds 12"), the adjustment audit trail
	// answers "how much moved". Adjustments are not reversible on
	// delete - there is no prior-value history to restore from.
	TxAdjustment TransactionType = "ADJUSTMENT"
)

// Valid reports whether t is one of the three known transaction types.
func (t TransactionType) Valid() bool {
	return t == TxIn || t == TxOut || t == TxAdjustment
}

// =============================================================================
// CATEGORY - Lookup entity, uniqueness is its only invariant
// =============================================================================

type Category struct {
	ID          CategoryID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// =============================================================================
// PART - A stocked item
// =============================================================================

// Part is the unit of the ledger. CurrentStock is a cached value that
// must always equal the signed sum of applied transactions; it is
// mutated only inside the same storage transaction that persists the
// stock-moving event.
type Part struct {
	ID            PartID
	Name          string
	PartNumber    string // globally unique
	CategoryID    CategoryID
	UnitPrice     decimal.Decimal
	CurrentStock  int64
	MinimumStock  int64
	MaximumStock  *int64 // nil = no ceiling
	Location      string
	Supplier      string
	MachineModels []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LowStock reports whether the part is at or below its minimum threshold.
func (p *Part) LowStock() bool {
	return p.CurrentStock <= p.MinimumStock
}

// StockValue returns current stock x unit price.
func (p *Part) StockValue() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(p.CurrentStock))
}

// =============================================================================
// TRANSACTION - A stock-moving event with line items
// =============================================================================

type Transaction struct {
	ID              TransactionID
	Type            TransactionType
	Recipient       string // optional: who received/supplied the parts
	Reason          string
	Notes           string
	IsPaid          bool
	AmountPaid      decimal.Decimal
	TotalAmount     decimal.Decimal // == sum of item line totals, cached at creation
	Currency        string
	TransactionDate time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Items []TransactionItem
}

// TransactionItem snapshots one line of a transaction. UnitPrice is the
// effective price at transaction time (override or the part's price
// then); LineTotal is Quantity x UnitPrice, written once at creation.
type TransactionItem struct {
	ID            int64
	TransactionID TransactionID
	PartID        PartID
	Quantity      int64
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
}

// =============================================================================
// INVOICE - Billing document derived from a transaction
// =============================================================================

type InvoiceCopyType string

const (
	InvoiceCustomerCopy InvoiceCopyType = "customer"
	InvoiceCompanyCopy  InvoiceCopyType = "company"
)

// Invoice carries its own item snapshot with part name/number
// denormalized, so invoice content survives part renames. Invoice items
// referencing a part are removed when that part is deleted.
type Invoice struct {
	ID            InvoiceID
	TransactionID TransactionID
	InvoiceNumber string
	CopyType      InvoiceCopyType
	Recipient     string
	TotalAmount   decimal.Decimal
	Currency      string
	IssuedAt      time.Time
	CreatedAt     time.Time

	Items []InvoiceItem
}

type InvoiceItem struct {
	ID         int64
	InvoiceID  InvoiceID
	PartID     PartID
	PartName   string
	PartNumber string
	Quantity   int64
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
}

// =============================================================================
// STATS READ MODELS
// =============================================================================

// FastMovingPart aggregates OUT movement for one part.
type FastMovingPart struct {
	PartID           PartID          `json:"part_id"`
	PartName         string          `json:"part_name"`
	PartNumber       string          `json:"part_number"`
	TotalQuantity    int64           `json:"total_quantity"`
	TransactionCount int64           `json:"transaction_count"`
	AveragePerMonth  decimal.Decimal `json:"average_per_month"`
}

// CategoryStats is a per-category roll-up.
type CategoryStats struct {
	CategoryID    CategoryID      `json:"category_id"`
	CategoryName  string          `json:"category_name"`
	PartCount     int64           `json:"part_count"`
	TotalStock    int64           `json:"total_stock"`
	TotalValue    decimal.Decimal `json:"total_value"`
	LowStockCount int64           `json:"low_stock_count"`
}

// InventoryStats is the top-level analytical snapshot.
type InventoryStats struct {
	TotalParts      int64           `json:"total_parts"`
	TotalCategories int64           `json:"total_categories"`
	TotalStock      int64           `json:"total_stock"`
	TotalValue      decimal.Decimal `json:"total_value"`
	LowStockParts   int64           `json:"low_stock_parts"`
	Categories      []CategoryStats `json:"categories"`
}
