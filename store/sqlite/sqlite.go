/*
Package sqlite provides the SQLite-backed implementation of the
inventory storage interfaces.

PURPOSE:
  Implements inventory.Store and inventory.TxStore on database/sql.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences, plus SELECT ... FOR UPDATE replacing the mutex
  (see CONCURRENCY below).

KEY TABLES:
  parts:              the part catalog with cached current_stock
  transactions:       stock-moving event headers with cached totals
  transaction_items:  quantity/price/line-total snapshots per line
  invoices:           billing headers derived from transactions
  invoice_items:      denormalized item snapshots (survive part renames)
  categories:         lookup table

CASCADES:
  Foreign keys are declared ON DELETE CASCADE and enforced
  (_foreign_keys=on), AND DeletePartCascade deletes dependent rows
  explicitly inside the same transaction. Either mechanism alone
  satisfies the no-orphans rule; carrying both keeps the store correct
  on storage layers that don't enforce cascade.

CONCURRENCY:
  A sync.RWMutex serializes mutations, so two concurrent OUT
  transactions against the same part can never both pass the
  stock-sufficiency check on stale values. With PostgreSQL, replace
  the mutex with SELECT ... FOR UPDATE row locks on the affected
  parts. Every multi-step mutation runs inside WithTx with rollback
  on any error path.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATIONS:
  Versioned goose migrations embedded from migrations/, applied on
  New().

USAGE:
  store, err := sqlite.New("./data/parts.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := inventory.NewLedger(store)

SEE ALSO:
  - inventory/store.go: interface definitions
  - inventory/ledger.go: operations built on WithTx
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/warp/parts-ledger/inventory"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements inventory.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and applies pending
// migrations. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite allows a single writer anyway, and with
	// ":memory:" every pooled connection would be a separate database.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// TRANSACTIONAL SCOPE
// =============================================================================

// WithTx executes fn within a database transaction. The mutex is held
// for the whole scope so stock checks and decrements are serialized.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the transaction-scoped Store view handed to WithTx callbacks.
type txStore struct {
	tx *sql.Tx
}

// dbtx is the common surface of *sql.DB and *sql.Tx the query helpers run on.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// PARTS
// =============================================================================

const partColumns = `id, name, part_number, category_id, unit_price, current_stock,
	minimum_stock, maximum_stock, location, supplier, machine_models, created_at, updated_at`

func (s *Store) GetPart(ctx context.Context, id inventory.PartID) (*inventory.Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPart(ctx, s.db, id)
}

func (ts *txStore) GetPart(ctx context.Context, id inventory.PartID) (*inventory.Part, error) {
	return getPart(ctx, ts.tx, id)
}

func getPart(ctx context.Context, q dbtx, id inventory.PartID) (*inventory.Part, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+partColumns+` FROM parts WHERE id = ?`, id)
	return scanPart(row)
}

func (s *Store) GetPartByNumber(ctx context.Context, partNumber string) (*inventory.Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPartByNumber(ctx, s.db, partNumber)
}

func (ts *txStore) GetPartByNumber(ctx context.Context, partNumber string) (*inventory.Part, error) {
	return getPartByNumber(ctx, ts.tx, partNumber)
}

func getPartByNumber(ctx context.Context, q dbtx, partNumber string) (*inventory.Part, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+partColumns+` FROM parts WHERE part_number = ?`, partNumber)
	return scanPart(row)
}

func (s *Store) ListParts(ctx context.Context) ([]inventory.Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listParts(ctx, s.db)
}

func (ts *txStore) ListParts(ctx context.Context) ([]inventory.Part, error) {
	return listParts(ctx, ts.tx)
}

func listParts(ctx context.Context, q dbtx) ([]inventory.Part, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+partColumns+` FROM parts ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	defer rows.Close()

	var parts []inventory.Part
	for rows.Next() {
		p, err := scanPartRow(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, *p)
	}
	return parts, rows.Err()
}

func (s *Store) InsertPart(ctx context.Context, p *inventory.Part) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertPart(ctx, s.db, p)
}

func (ts *txStore) InsertPart(ctx context.Context, p *inventory.Part) error {
	return insertPart(ctx, ts.tx, p)
}

func insertPart(ctx context.Context, q dbtx, p *inventory.Part) error {
	models, _ := json.Marshal(p.MachineModels)
	res, err := q.ExecContext(ctx, `
		INSERT INTO parts
		(name, part_number, category_id, unit_price, current_stock, minimum_stock,
		 maximum_stock, location, supplier, machine_models, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.PartNumber, p.CategoryID, p.UnitPrice.String(), p.CurrentStock,
		p.MinimumStock, nullInt(p.MaximumStock), p.Location, p.Supplier,
		string(models), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &inventory.ConflictError{PartNumber: p.PartNumber}
		}
		return fmt.Errorf("insert part: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("part insert id: %w", err)
	}
	p.ID = inventory.PartID(id)
	return nil
}

func (s *Store) UpdatePart(ctx context.Context, p *inventory.Part) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePart(ctx, s.db, p)
}

func (ts *txStore) UpdatePart(ctx context.Context, p *inventory.Part) error {
	return updatePart(ctx, ts.tx, p)
}

func updatePart(ctx context.Context, q dbtx, p *inventory.Part) error {
	models, _ := json.Marshal(p.MachineModels)
	_, err := q.ExecContext(ctx, `
		UPDATE parts SET
			name = ?, part_number = ?, category_id = ?, unit_price = ?,
			minimum_stock = ?, maximum_stock = ?, location = ?, supplier = ?,
			machine_models = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.PartNumber, p.CategoryID, p.UnitPrice.String(),
		p.MinimumStock, nullInt(p.MaximumStock), p.Location, p.Supplier,
		string(models), formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &inventory.ConflictError{PartNumber: p.PartNumber}
		}
		return fmt.Errorf("update part: %w", err)
	}
	return nil
}

func (s *Store) UpdatePartStock(ctx context.Context, id inventory.PartID, stock int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePartStock(ctx, s.db, id, stock, at)
}

func (ts *txStore) UpdatePartStock(ctx context.Context, id inventory.PartID, stock int64, at time.Time) error {
	return updatePartStock(ctx, ts.tx, id, stock, at)
}

func updatePartStock(ctx context.Context, q dbtx, id inventory.PartID, stock int64, at time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE parts SET current_stock = ?, updated_at = ? WHERE id = ?`,
		stock, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	return nil
}

func (s *Store) DeletePartCascade(ctx context.Context, id inventory.PartID) error {
	// Standalone call gets its own transaction scope.
	return s.WithTx(ctx, func(st inventory.Store) error {
		return st.DeletePartCascade(ctx, id)
	})
}

func (ts *txStore) DeletePartCascade(ctx context.Context, id inventory.PartID) error {
	return deletePartCascade(ctx, ts.tx, id)
}

// deletePartCascade removes dependent rows explicitly before the part.
// The schema also declares ON DELETE CASCADE; the explicit deletes
// cover storage layers without cascade enforcement and run in the
// same transaction as the final delete.
func deletePartCascade(ctx context.Context, q dbtx, id inventory.PartID) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM invoice_items WHERE part_id = ?`, id); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM transaction_items WHERE part_id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction items: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM parts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete part: %w", err)
	}
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const transactionColumns = `id, tx_type, recipient, reason, notes, is_paid, amount_paid,
	total_amount, currency, transaction_date, created_at, updated_at`

func (s *Store) InsertTransaction(ctx context.Context, tx *inventory.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTransaction(ctx, s.db, tx)
}

func (ts *txStore) InsertTransaction(ctx context.Context, tx *inventory.Transaction) error {
	return insertTransaction(ctx, ts.tx, tx)
}

func insertTransaction(ctx context.Context, q dbtx, tx *inventory.Transaction) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions
		(tx_type, recipient, reason, notes, is_paid, amount_paid, total_amount,
		 currency, transaction_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.Type, tx.Recipient, tx.Reason, tx.Notes, tx.IsPaid,
		tx.AmountPaid.String(), tx.TotalAmount.String(), tx.Currency,
		formatTime(tx.TransactionDate), formatTime(tx.CreatedAt), formatTime(tx.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction insert id: %w", err)
	}
	tx.ID = inventory.TransactionID(id)
	return nil
}

func (s *Store) InsertTransactionItem(ctx context.Context, item *inventory.TransactionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTransactionItem(ctx, s.db, item)
}

func (ts *txStore) InsertTransactionItem(ctx context.Context, item *inventory.TransactionItem) error {
	return insertTransactionItem(ctx, ts.tx, item)
}

func insertTransactionItem(ctx context.Context, q dbtx, item *inventory.TransactionItem) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO transaction_items (transaction_id, part_id, quantity, unit_price, line_total)
		VALUES (?, ?, ?, ?, ?)`,
		item.TransactionID, item.PartID, item.Quantity,
		item.UnitPrice.String(), item.LineTotal.String(),
	)
	if err != nil {
		return fmt.Errorf("insert transaction item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction item insert id: %w", err)
	}
	item.ID = id
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id inventory.TransactionID) (*inventory.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransaction(ctx, s.db, id)
}

func (ts *txStore) GetTransaction(ctx context.Context, id inventory.TransactionID) (*inventory.Transaction, error) {
	return getTransaction(ctx, ts.tx, id)
}

func getTransaction(ctx context.Context, q dbtx, id inventory.TransactionID) (*inventory.Transaction, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err != nil || tx == nil {
		return tx, err
	}
	items, err := loadItems(ctx, q, tx.ID)
	if err != nil {
		return nil, err
	}
	tx.Items = items
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, limit int) ([]inventory.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransactions(ctx, s.db, limit)
}

func (ts *txStore) ListTransactions(ctx context.Context, limit int) ([]inventory.Transaction, error) {
	return listTransactions(ctx, ts.tx, limit)
}

func listTransactions(ctx context.Context, q dbtx, limit int) ([]inventory.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []inventory.Transaction
	for rows.Next() {
		tx, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range txs {
		items, err := loadItems(ctx, q, txs[i].ID)
		if err != nil {
			return nil, err
		}
		txs[i].Items = items
	}
	return txs, nil
}

func loadItems(ctx context.Context, q dbtx, txID inventory.TransactionID) ([]inventory.TransactionItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, transaction_id, part_id, quantity, unit_price, line_total
		FROM transaction_items WHERE transaction_id = ? ORDER BY id`, txID)
	if err != nil {
		return nil, fmt.Errorf("query transaction items: %w", err)
	}
	defer rows.Close()

	var items []inventory.TransactionItem
	for rows.Next() {
		var (
			item                 inventory.TransactionItem
			unitPrice, lineTotal string
		)
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.PartID,
			&item.Quantity, &unitPrice, &lineTotal); err != nil {
			return nil, fmt.Errorf("scan transaction item: %w", err)
		}
		item.UnitPrice = parseDecimal(unitPrice)
		item.LineTotal = parseDecimal(lineTotal)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) DeleteTransaction(ctx context.Context, id inventory.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTransaction(ctx, s.db, id)
}

func (ts *txStore) DeleteTransaction(ctx context.Context, id inventory.TransactionID) error {
	return deleteTransaction(ctx, ts.tx, id)
}

func deleteTransaction(ctx context.Context, q dbtx, id inventory.TransactionID) error {
	// Items, invoices, and invoice items cascade via foreign keys;
	// delete them explicitly too so the store doesn't depend on
	// cascade enforcement.
	if _, err := q.ExecContext(ctx, `
		DELETE FROM invoice_items WHERE invoice_id IN
		(SELECT id FROM invoices WHERE transaction_id = ?)`, id); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM invoices WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("delete invoices: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM transaction_items WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction items: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (s *Store) GetCategory(ctx context.Context, id inventory.CategoryID) (*inventory.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCategory(ctx, s.db, id)
}

func (ts *txStore) GetCategory(ctx context.Context, id inventory.CategoryID) (*inventory.Category, error) {
	return getCategory(ctx, ts.tx, id)
}

func getCategory(ctx context.Context, q dbtx, id inventory.CategoryID) (*inventory.Category, error) {
	var (
		c                    inventory.Category
		createdAt, updatedAt string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]inventory.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCategories(ctx, s.db)
}

func (ts *txStore) ListCategories(ctx context.Context) ([]inventory.Category, error) {
	return listCategories(ctx, ts.tx)
}

func listCategories(ctx context.Context, q dbtx) ([]inventory.Category, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []inventory.Category
	for rows.Next() {
		var (
			c                    inventory.Category
			createdAt, updatedAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		c.UpdatedAt = parseTime(updatedAt)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) InsertCategory(ctx context.Context, c *inventory.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertCategory(ctx, s.db, c)
}

func (ts *txStore) InsertCategory(ctx context.Context, c *inventory.Category) error {
	return insertCategory(ctx, ts.tx, c)
}

func insertCategory(ctx context.Context, q dbtx, c *inventory.Category) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO categories (name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		c.Name, c.Description, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("category %q: %w", c.Name, inventory.ErrConflict)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category insert id: %w", err)
	}
	c.ID = inventory.CategoryID(id)
	return nil
}

// =============================================================================
// INVOICES
// =============================================================================

func (s *Store) InsertInvoice(ctx context.Context, inv *inventory.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertInvoice(ctx, s.db, inv)
}

func (ts *txStore) InsertInvoice(ctx context.Context, inv *inventory.Invoice) error {
	return insertInvoice(ctx, ts.tx, inv)
}

func insertInvoice(ctx context.Context, q dbtx, inv *inventory.Invoice) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO invoices
		(transaction_id, invoice_number, copy_type, recipient, total_amount, currency, issued_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.TransactionID, inv.InvoiceNumber, inv.CopyType, inv.Recipient,
		inv.TotalAmount.String(), inv.Currency,
		formatTime(inv.IssuedAt), formatTime(inv.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("invoice insert id: %w", err)
	}
	inv.ID = inventory.InvoiceID(id)

	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = inv.ID
		res, err := q.ExecContext(ctx, `
			INSERT INTO invoice_items
			(invoice_id, part_id, part_name, part_number, quantity, unit_price, line_total)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.InvoiceID, item.PartID, item.PartName, item.PartNumber,
			item.Quantity, item.UnitPrice.String(), item.LineTotal.String())
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("invoice item insert id: %w", err)
		}
		item.ID = itemID
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id inventory.InvoiceID) (*inventory.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getInvoice(ctx, s.db, id)
}

func (ts *txStore) GetInvoice(ctx context.Context, id inventory.InvoiceID) (*inventory.Invoice, error) {
	return getInvoice(ctx, ts.tx, id)
}

func getInvoice(ctx context.Context, q dbtx, id inventory.InvoiceID) (*inventory.Invoice, error) {
	var (
		inv                 inventory.Invoice
		totalAmount         string
		issuedAt, createdAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, transaction_id, invoice_number, copy_type, recipient, total_amount, currency, issued_at, created_at
		FROM invoices WHERE id = ?`, id,
	).Scan(&inv.ID, &inv.TransactionID, &inv.InvoiceNumber, &inv.CopyType,
		&inv.Recipient, &totalAmount, &inv.Currency, &issuedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query invoice: %w", err)
	}
	inv.TotalAmount = parseDecimal(totalAmount)
	inv.IssuedAt = parseTime(issuedAt)
	inv.CreatedAt = parseTime(createdAt)

	rows, err := q.QueryContext(ctx, `
		SELECT id, invoice_id, part_id, part_name, part_number, quantity, unit_price, line_total
		FROM invoice_items WHERE invoice_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query invoice items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item                 inventory.InvoiceItem
			unitPrice, lineTotal string
		)
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.PartID, &item.PartName,
			&item.PartNumber, &item.Quantity, &unitPrice, &lineTotal); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		item.UnitPrice = parseDecimal(unitPrice)
		item.LineTotal = parseDecimal(lineTotal)
		inv.Items = append(inv.Items, item)
	}
	return &inv, rows.Err()
}

// =============================================================================
// STATS QUERIES
// =============================================================================

func (s *Store) OutboundUsageByPart(ctx context.Context, limit int) ([]inventory.FastMovingPart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return outboundUsageByPart(ctx, s.db, limit)
}

func (ts *txStore) OutboundUsageByPart(ctx context.Context, limit int) ([]inventory.FastMovingPart, error) {
	return outboundUsageByPart(ctx, ts.tx, limit)
}

func outboundUsageByPart(ctx context.Context, q dbtx, limit int) ([]inventory.FastMovingPart, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT ti.part_id, p.name, p.part_number,
		       SUM(ti.quantity) AS total_quantity,
		       COUNT(DISTINCT ti.transaction_id) AS tx_count
		FROM transaction_items ti
		JOIN transactions t ON t.id = ti.transaction_id
		JOIN parts p ON p.id = ti.part_id
		WHERE t.tx_type = 'OUT'
		GROUP BY ti.part_id, p.name, p.part_number
		ORDER BY total_quantity DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbound usage: %w", err)
	}
	defer rows.Close()

	var result []inventory.FastMovingPart
	for rows.Next() {
		var fm inventory.FastMovingPart
		if err := rows.Scan(&fm.PartID, &fm.PartName, &fm.PartNumber,
			&fm.TotalQuantity, &fm.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan outbound usage: %w", err)
		}
		result = append(result, fm)
	}
	return result, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPart(row *sql.Row) (*inventory.Part, error) {
	p, err := scanPartFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan part: %w", err)
	}
	return p, nil
}

func scanPartRow(rows *sql.Rows) (*inventory.Part, error) {
	p, err := scanPartFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("scan part: %w", err)
	}
	return p, nil
}

func scanPartFrom(r rowScanner) (*inventory.Part, error) {
	var (
		p                    inventory.Part
		unitPrice            string
		maxStock             sql.NullInt64
		models               string
		createdAt, updatedAt string
	)
	err := r.Scan(&p.ID, &p.Name, &p.PartNumber, &p.CategoryID, &unitPrice,
		&p.CurrentStock, &p.MinimumStock, &maxStock, &p.Location, &p.Supplier,
		&models, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.UnitPrice = parseDecimal(unitPrice)
	if maxStock.Valid {
		v := maxStock.Int64
		p.MaximumStock = &v
	}
	if models != "" {
		if err := json.Unmarshal([]byte(models), &p.MachineModels); err != nil {
			return nil, fmt.Errorf("parse machine models for part %d: %w", p.ID, err)
		}
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func scanTransaction(row *sql.Row) (*inventory.Transaction, error) {
	tx, err := scanTransactionFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return tx, nil
}

func scanTransactionRow(rows *sql.Rows) (*inventory.Transaction, error) {
	tx, err := scanTransactionFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return tx, nil
}

func scanTransactionFrom(r rowScanner) (*inventory.Transaction, error) {
	var (
		tx                      inventory.Transaction
		amountPaid, totalAmount string
		txDate                  string
		createdAt, updatedAt    string
	)
	err := r.Scan(&tx.ID, &tx.Type, &tx.Recipient, &tx.Reason, &tx.Notes,
		&tx.IsPaid, &amountPaid, &totalAmount, &tx.Currency,
		&txDate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	tx.AmountPaid = parseDecimal(amountPaid)
	tx.TotalAmount = parseDecimal(totalAmount)
	tx.TransactionDate = parseTime(txDate)
	tx.CreatedAt = parseTime(createdAt)
	tx.UpdatedAt = parseTime(updatedAt)
	return &tx, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
