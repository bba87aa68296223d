/*
ledger.go - Transaction creation, stock reversal, and adjustments

PURPOSE:
  The stock-moving operations of the system. Every operation here
  mutates part stock and the ledger together, inside one storage
  transaction, so that CurrentStock can never drift from the sum of
  applied transactions.

CRITICAL INVARIANTS:
  1. ATOMIC: a transaction either applies all its lines or none
  2. NO OVER-DRAW: an OUT line is rejected if it would drive stock
     negative, checked against stock read inside the same storage
     transaction that applies the decrement
  3. CACHED TOTALS: line_total = quantity x unit_price and
     total_amount = sum(line_total) are written at creation, never
     recomputed lazily
  4. REVERSIBLE: deleting an IN/OUT transaction restores each part's
     stock exactly; ADJUSTMENT items are skipped (no prior value kept)

RETRIES:
  CreateTransaction is NOT idempotent - retrying it creates a second
  transaction. Callers own retry policy; the core retries nothing.

SEE ALSO:
  - parts.go: part lifecycle, which bootstraps initial stock through
    the same creation path
  - store.go: the transactional persistence contract
*/
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT TYPES
// =============================================================================

// TransactionLine is one requested line of a new transaction.
// UnitPrice overrides the part's current price when set.
type TransactionLine struct {
	PartID    PartID
	Quantity  int64
	UnitPrice *decimal.Decimal
}

// TransactionInput is the full request to create a transaction.
type TransactionInput struct {
	Type       TransactionType
	Recipient  string
	Reason     string
	Notes      string
	IsPaid     bool
	AmountPaid decimal.Decimal
	Currency   string
	Date       time.Time // zero value = now
	Lines      []TransactionLine
}

// StockUpdate is one entry of a bulk stock adjustment.
type StockUpdate struct {
	PartID   PartID
	NewStock int64
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger performs the stock-moving operations against a TxStore.
type Ledger struct {
	Store TxStore
}

func NewLedger(store TxStore) *Ledger {
	return &Ledger{Store: store}
}

// =============================================================================
// TRANSACTION BUILDER
// =============================================================================

// CreateTransaction validates and applies a multi-line transaction as
// one atomic unit: every part is resolved and every OUT line checked
// for sufficiency before any stock is touched, then the header, stock
// deltas, and item snapshots are persisted together.
func (l *Ledger) CreateTransaction(ctx context.Context, in TransactionInput) (*Transaction, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var created *Transaction
	err := l.Store.WithTx(ctx, func(s Store) error {
		tx, err := createTransaction(ctx, s, in)
		if err != nil {
			return err
		}
		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func validateInput(in TransactionInput) error {
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown transaction type %q", in.Type)}
	}
	if len(in.Lines) == 0 {
		return &ValidationError{Field: "lines", Message: "at least one line is required"}
	}
	if in.AmountPaid.IsNegative() {
		return &ValidationError{Field: "amount_paid", Message: "must not be negative"}
	}
	for i, line := range in.Lines {
		switch in.Type {
		case TxAdjustment:
			// Quantity is the absolute target stock here, zero included.
			if line.Quantity < 0 {
				return &ValidationError{Field: fmt.Sprintf("lines[%d].quantity", i), Message: "target stock must not be negative"}
			}
		default:
			if line.Quantity <= 0 {
				return &ValidationError{Field: fmt.Sprintf("lines[%d].quantity", i), Message: "must be greater than zero"}
			}
		}
		if line.UnitPrice != nil && line.UnitPrice.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("lines[%d].unit_price", i), Message: "must not be negative"}
		}
	}
	return nil
}

// createTransaction does the work inside an already-open storage
// transaction. parts.go reuses it to bootstrap initial stock in the
// same atomic unit as the part insert.
func createTransaction(ctx context.Context, s Store, in TransactionInput) (*Transaction, error) {
	now := time.Now().UTC()
	date := in.Date
	if date.IsZero() {
		date = now
	}

	// Phase 1: resolve each part once and walk every line against a
	// running stock per part, so lines repeating a part id are checked
	// and applied jointly rather than each against the starting stock.
	parts := make(map[PartID]*Part, len(in.Lines))
	running := make(map[PartID]int64, len(in.Lines))
	order := make([]PartID, 0, len(in.Lines))
	for _, line := range in.Lines {
		part, seen := parts[line.PartID]
		if !seen {
			var err error
			part, err = s.GetPart(ctx, line.PartID)
			if err != nil {
				return nil, fmt.Errorf("resolve part %d: %w", line.PartID, err)
			}
			if part == nil {
				return nil, &NotFoundError{Entity: "part", ID: int64(line.PartID)}
			}
			parts[part.ID] = part
			running[part.ID] = part.CurrentStock
			order = append(order, part.ID)
		}
		switch in.Type {
		case TxIn:
			running[part.ID] += line.Quantity
		case TxOut:
			if running[part.ID] < line.Quantity {
				return nil, &InsufficientStockError{
					PartID:     part.ID,
					PartNumber: part.PartNumber,
					Available:  running[part.ID],
					Requested:  line.Quantity,
				}
			}
			running[part.ID] -= line.Quantity
		case TxAdjustment:
			running[part.ID] = line.Quantity
		}
	}

	// Phase 2: compute cached totals.
	items := make([]TransactionItem, len(in.Lines))
	total := decimal.Zero
	for i, line := range in.Lines {
		price := parts[line.PartID].UnitPrice
		if line.UnitPrice != nil {
			price = *line.UnitPrice
		}
		lineTotal := price.Mul(decimal.NewFromInt(line.Quantity))
		items[i] = TransactionItem{
			PartID:    line.PartID,
			Quantity:  line.Quantity,
			UnitPrice: price,
			LineTotal: lineTotal,
		}
		total = total.Add(lineTotal)
	}

	tx := &Transaction{
		Type:            in.Type,
		Recipient:       in.Recipient,
		Reason:          in.Reason,
		Notes:           in.Notes,
		IsPaid:          in.IsPaid,
		AmountPaid:      in.AmountPaid,
		TotalAmount:     total,
		Currency:        in.Currency,
		TransactionDate: date,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	// Phase 3: write each part's final running stock once, then persist
	// the item snapshots in line order.
	for _, id := range order {
		if err := s.UpdatePartStock(ctx, id, running[id], now); err != nil {
			return nil, fmt.Errorf("apply stock to part %d: %w", id, err)
		}
	}
	for i := range items {
		items[i].TransactionID = tx.ID
		if err := s.InsertTransactionItem(ctx, &items[i]); err != nil {
			return nil, fmt.Errorf("insert item for part %d: %w", items[i].PartID, err)
		}
	}

	tx.Items = items
	return tx, nil
}

// =============================================================================
// STOCK REVERSAL ENGINE
// =============================================================================

// DeleteTransaction undoes the transaction's stock effect and removes
// it. IN items subtract their quantity back out, OUT items add it
// back. ADJUSTMENT items are NOT reversed: adjustments set absolute
// values and no prior-stock history exists to restore from - a known
// limitation, not an oversight. Line items and derived invoices go
// with the header.
func (l *Ledger) DeleteTransaction(ctx context.Context, id TransactionID) error {
	return l.Store.WithTx(ctx, func(s Store) error {
		tx, err := s.GetTransaction(ctx, id)
		if err != nil {
			return fmt.Errorf("resolve transaction %d: %w", id, err)
		}
		if tx == nil {
			return &NotFoundError{Entity: "transaction", ID: int64(id)}
		}

		now := time.Now().UTC()
		for _, item := range tx.Items {
			if tx.Type == TxAdjustment {
				continue
			}
			part, err := s.GetPart(ctx, item.PartID)
			if err != nil {
				return fmt.Errorf("resolve part %d: %w", item.PartID, err)
			}
			if part == nil {
				// Part was deleted with its items cascaded; this item
				// should not exist anymore. Treat defensively as gone.
				continue
			}
			newStock := part.CurrentStock
			switch tx.Type {
			case TxIn:
				newStock -= item.Quantity
			case TxOut:
				newStock += item.Quantity
			}
			if err := s.UpdatePartStock(ctx, part.ID, newStock, now); err != nil {
				return fmt.Errorf("reverse stock on part %d: %w", part.ID, err)
			}
		}

		if err := s.DeleteTransaction(ctx, id); err != nil {
			return fmt.Errorf("delete transaction %d: %w", id, err)
		}
		return nil
	})
}

// =============================================================================
// STOCK ADJUSTMENT
// =============================================================================

// UpdateStock sets a part's stock to an absolute value and records a
// synthetic ADJUSTMENT transaction whose single item carries the
// signed delta (newStock - oldStock) for the audit trail. There is no
// sufficiency check: callers may adjust below zero when the physical
// count says so.
func (l *Ledger) UpdateStock(ctx context.Context, partID PartID, newStock int64) (*Transaction, error) {
	var created *Transaction
	err := l.Store.WithTx(ctx, func(s Store) error {
		tx, err := adjustStock(ctx, s, partID, newStock)
		if err != nil {
			return err
		}
		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// BulkUpdateStock applies every update or none: an unknown part or a
// negative target anywhere aborts the whole batch, reporting which
// update failed. Each applied update gets its own synthetic
// ADJUSTMENT transaction, all inside one storage transaction.
func (l *Ledger) BulkUpdateStock(ctx context.Context, updates []StockUpdate) ([]*Transaction, error) {
	if len(updates) == 0 {
		return nil, &ValidationError{Field: "updates", Message: "at least one update is required"}
	}
	for i, u := range updates {
		if u.NewStock < 0 {
			return nil, &ValidationError{
				Field:   fmt.Sprintf("updates[%d].new_stock", i),
				Message: fmt.Sprintf("must not be negative for part %d", u.PartID),
			}
		}
	}

	var created []*Transaction
	err := l.Store.WithTx(ctx, func(s Store) error {
		// Resolve every part before applying anything.
		for _, u := range updates {
			part, err := s.GetPart(ctx, u.PartID)
			if err != nil {
				return fmt.Errorf("resolve part %d: %w", u.PartID, err)
			}
			if part == nil {
				return &NotFoundError{Entity: "part", ID: int64(u.PartID)}
			}
		}
		for _, u := range updates {
			tx, err := adjustStock(ctx, s, u.PartID, u.NewStock)
			if err != nil {
				return err
			}
			created = append(created, tx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// adjustStock performs one adjustment inside an open storage
// transaction: set the stock, then write the audit transaction.
func adjustStock(ctx context.Context, s Store, partID PartID, newStock int64) (*Transaction, error) {
	part, err := s.GetPart(ctx, partID)
	if err != nil {
		return nil, fmt.Errorf("resolve part %d: %w", partID, err)
	}
	if part == nil {
		return nil, &NotFoundError{Entity: "part", ID: int64(partID)}
	}

	now := time.Now().UTC()
	delta := newStock - part.CurrentStock
	lineTotal := part.UnitPrice.Mul(decimal.NewFromInt(delta))

	if err := s.UpdatePartStock(ctx, partID, newStock, now); err != nil {
		return nil, fmt.Errorf("set stock on part %d: %w", partID, err)
	}

	tx := &Transaction{
		Type:            TxAdjustment,
		Reason:          fmt.Sprintf("stock adjustment: %d -> %d", part.CurrentStock, newStock),
		AmountPaid:      decimal.Zero,
		TotalAmount:     lineTotal,
		TransactionDate: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("insert adjustment transaction: %w", err)
	}

	item := TransactionItem{
		TransactionID: tx.ID,
		PartID:        partID,
		Quantity:      delta, // signed delta here, unlike the create path
		UnitPrice:     part.UnitPrice,
		LineTotal:     lineTotal,
	}
	if err := s.InsertTransactionItem(ctx, &item); err != nil {
		return nil, fmt.Errorf("insert adjustment item: %w", err)
	}

	tx.Items = []TransactionItem{item}
	return tx, nil
}

// =============================================================================
// INVOICE GENERATION
// =============================================================================

// GenerateInvoice snapshots a transaction's items into an invoice with
// part name/number denormalized, so the invoice keeps rendering after
// a part is renamed. The invoice number combines the transaction id
// with the issue timestamp so repeat generations stay unique.
func (l *Ledger) GenerateInvoice(ctx context.Context, txID TransactionID, copyType InvoiceCopyType) (*Invoice, error) {
	if copyType != InvoiceCustomerCopy && copyType != InvoiceCompanyCopy {
		return nil, &ValidationError{Field: "copy_type", Message: fmt.Sprintf("unknown copy type %q", copyType)}
	}

	var created *Invoice
	err := l.Store.WithTx(ctx, func(s Store) error {
		tx, err := s.GetTransaction(ctx, txID)
		if err != nil {
			return fmt.Errorf("resolve transaction %d: %w", txID, err)
		}
		if tx == nil {
			return &NotFoundError{Entity: "transaction", ID: int64(txID)}
		}

		now := time.Now().UTC()
		inv := &Invoice{
			TransactionID: txID,
			InvoiceNumber: fmt.Sprintf("INV-%d-%d", txID, now.UnixNano()),
			CopyType:      copyType,
			Recipient:     tx.Recipient,
			TotalAmount:   tx.TotalAmount,
			Currency:      tx.Currency,
			IssuedAt:      now,
			CreatedAt:     now,
		}
		for _, item := range tx.Items {
			part, err := s.GetPart(ctx, item.PartID)
			if err != nil {
				return fmt.Errorf("resolve part %d: %w", item.PartID, err)
			}
			if part == nil {
				continue
			}
			inv.Items = append(inv.Items, InvoiceItem{
				PartID:     part.ID,
				PartName:   part.Name,
				PartNumber: part.PartNumber,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				LineTotal:  item.LineTotal,
			})
		}
		if err := s.InsertInvoice(ctx, inv); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		created = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
