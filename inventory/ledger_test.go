/*
ledger_test.go - Tests for transaction creation, reversal, and adjustments

CORE DESIGN UNDER TEST:
- A transaction applies all of its lines atomically or none
- OUT lines are checked against stock inside the same storage transaction
- Deleting a transaction restores stock exactly (ADJUSTMENT excluded)
- Direct stock updates leave a signed-delta ADJUSTMENT audit trail
*/
package inventory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/parts-ledger/inventory"
	"github.com/warp/parts-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*inventory.Ledger, *inventory.Parts, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return inventory.NewLedger(store), inventory.NewParts(store), store
}

func newTestPart(t *testing.T, parts *inventory.Parts, number string, price string, stock int64) *inventory.Part {
	t.Helper()
	ctx := context.Background()

	cat, err := parts.CreateCategory(ctx, "cat-for-"+number, "")
	require.NoError(t, err)

	p, err := parts.CreatePart(ctx, inventory.PartInput{
		Name:         "Part " + number,
		PartNumber:   number,
		CategoryID:   cat.ID,
		UnitPrice:    decimal.RequireFromString(price),
		InitialStock: stock,
	})
	require.NoError(t, err)
	require.Equal(t, stock, p.CurrentStock)
	return p
}

func currentStock(t *testing.T, store *sqlite.Store, id inventory.PartID) int64 {
	t.Helper()
	p, err := store.GetPart(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.CurrentStock
}

// =============================================================================
// TRANSACTION CREATION TESTS
// =============================================================================

func TestCreateTransaction_In_AddsStock(t *testing.T) {
	// GIVEN: A part with 10 in stock
	// WHEN: An IN transaction for 5 is created
	// THEN: Stock becomes 15 and totals are cached on the transaction

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-1", "12.50", 10)

	tx, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:   inventory.TxIn,
		Reason: "restock",
		Lines:  []inventory.TransactionLine{{PartID: p.ID, Quantity: 5}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(15), currentStock(t, store, p.ID))
	require.Len(t, tx.Items, 1)
	assert.True(t, tx.Items[0].LineTotal.Equal(decimal.RequireFromString("62.5")),
		"line total should be 5 x 12.50, got %s", tx.Items[0].LineTotal)
	assert.True(t, tx.TotalAmount.Equal(decimal.RequireFromString("62.5")))
}

func TestCreateTransaction_Out_SubtractsStock(t *testing.T) {
	// GIVEN: A part with 10 in stock
	// WHEN: An OUT transaction for 4 is created
	// THEN: Stock becomes 6

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-2", "10.00", 10)

	_, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:  inventory.TxOut,
		Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(6), currentStock(t, store, p.ID))
}

func TestCreateTransaction_Out_InsufficientStock_Rejected(t *testing.T) {
	// GIVEN: A part with 6 in stock (10 minus an earlier OUT of 4)
	// WHEN: An OUT transaction for 10 is attempted
	// THEN: It is rejected reporting 6 available, 10 requested, stock untouched

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-3", "10.00", 10)

	_, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:  inventory.TxOut,
		Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	_, err = ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:  inventory.TxOut,
		Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: 10}},
	})
	require.Error(t, err)

	var ise *inventory.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(6), ise.Available)
	assert.Equal(t, int64(10), ise.Requested)
	assert.Equal(t, p.PartNumber, ise.PartNumber)
	assert.Equal(t, int64(6), currentStock(t, store, p.ID))
}

func TestCreateTransaction_MultiLine_Atomic(t *testing.T) {
	// GIVEN: Two parts, one with plenty of stock and one with too little
	// WHEN: A single OUT transaction draws from both
	// THEN: Neither part's stock changes - the whole transaction is rejected

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	rich := newTestPart(t, parts, "FLT-4", "10.00", 100)
	poor := newTestPart(t, parts, "FLT-5", "10.00", 1)

	_, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type: inventory.TxOut,
		Lines: []inventory.TransactionLine{
			{PartID: rich.ID, Quantity: 10},
			{PartID: poor.ID, Quantity: 5},
		},
	})
	require.Error(t, err)
	assert.True(t, inventory.IsInsufficientStock(err))

	assert.Equal(t, int64(100), currentStock(t, store, rich.ID))
	assert.Equal(t, int64(1), currentStock(t, store, poor.ID))
}

func TestCreateTransaction_Adjustment_SetsAbsoluteStock(t *testing.T) {
	// GIVEN: A part with 10 in stock
	// WHEN: An ADJUSTMENT transaction with quantity 3 is created
	// THEN: Stock IS 3 afterwards - the quantity is the target, not a delta

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-6", "10.00", 10)

	_, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:   inventory.TxAdjustment,
		Reason: "stocktake",
		Lines:  []inventory.TransactionLine{{PartID: p.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), currentStock(t, store, p.ID))
}

func TestCreateTransaction_PriceOverride(t *testing.T) {
	// GIVEN: A part priced at 10.00
	// WHEN: An OUT line carries a unit price override of 8.00
	// THEN: The line snapshot and totals use the override

	ledger, parts, _ := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-7", "10.00", 10)

	override := decimal.RequireFromString("8.00")
	tx, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:  inventory.TxOut,
		Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: 2, UnitPrice: &override}},
	})
	require.NoError(t, err)

	require.Len(t, tx.Items, 1)
	assert.True(t, tx.Items[0].UnitPrice.Equal(override))
	assert.True(t, tx.TotalAmount.Equal(decimal.RequireFromString("16")))
}

func TestCreateTransaction_In_RepeatedPartLines_Accumulate(t *testing.T) {
	// GIVEN: A part with 10 in stock
	// WHEN: A single IN transaction carries two 5-qty lines for that part
	// THEN: Stock becomes 20 - both lines apply, not just the last one

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-22", "10.00", 10)

	tx, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type: inventory.TxIn,
		Lines: []inventory.TransactionLine{
			{PartID: p.ID, Quantity: 5},
			{PartID: p.ID, Quantity: 5},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(20), currentStock(t, store, p.ID))
	require.Len(t, tx.Items, 2, "both lines keep their own item snapshot")
	assert.True(t, tx.TotalAmount.Equal(decimal.NewFromInt(100)))
}

func TestCreateTransaction_Out_RepeatedPartLines_JointSufficiency(t *testing.T) {
	// GIVEN: A part with 10 in stock
	// WHEN: A single OUT transaction carries two 6-qty lines for that part
	// THEN: The transaction is rejected - the lines jointly over-draw even
	//       though each fits the starting stock on its own

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-23", "10.00", 10)

	_, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type: inventory.TxOut,
		Lines: []inventory.TransactionLine{
			{PartID: p.ID, Quantity: 6},
			{PartID: p.ID, Quantity: 6},
		},
	})
	require.Error(t, err)

	var ise *inventory.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(4), ise.Available, "second line sees what the first left")
	assert.Equal(t, int64(6), ise.Requested)
	assert.Equal(t, int64(10), currentStock(t, store, p.ID))
}

func TestCreateTransaction_Out_RepeatedPartLines_WithinStock(t *testing.T) {
	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-24", "10.00", 10)

	_, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type: inventory.TxOut,
		Lines: []inventory.TransactionLine{
			{PartID: p.ID, Quantity: 4},
			{PartID: p.ID, Quantity: 4},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), currentStock(t, store, p.ID))
}

func TestCreateTransaction_UnknownPart_Rejected(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	_, err := ledger.CreateTransaction(context.Background(), inventory.TransactionInput{
		Type:  inventory.TxIn,
		Lines: []inventory.TransactionLine{{PartID: 9999, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, inventory.IsNotFound(err))
}

func TestCreateTransaction_Validation(t *testing.T) {
	ledger, parts, _ := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-8", "10.00", 10)

	cases := []struct {
		name string
		in   inventory.TransactionInput
	}{
		{"unknown type", inventory.TransactionInput{
			Type:  "TRANSFER",
			Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: 1}},
		}},
		{"no lines", inventory.TransactionInput{Type: inventory.TxIn}},
		{"zero quantity on IN", inventory.TransactionInput{
			Type:  inventory.TxIn,
			Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: 0}},
		}},
		{"negative target on ADJUSTMENT", inventory.TransactionInput{
			Type:  inventory.TxAdjustment,
			Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: -1}},
		}},
		{"negative amount paid", inventory.TransactionInput{
			Type:       inventory.TxIn,
			AmountPaid: decimal.NewFromInt(-1),
			Lines:      []inventory.TransactionLine{{PartID: p.ID, Quantity: 1}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.CreateTransaction(ctx, tc.in)
			require.Error(t, err)
			assert.True(t, inventory.IsValidation(err), "want validation error, got %v", err)
		})
	}
}

// =============================================================================
// STOCK REVERSAL TESTS
// =============================================================================

func TestDeleteTransaction_Out_RestoresStock(t *testing.T) {
	// GIVEN: A part at 10, drawn down to 6 by an OUT of 4
	// WHEN: The OUT transaction is deleted
	// THEN: Stock returns to 10 and a full OUT of 10 now succeeds

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-9", "10.00", 10)

	out, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:  inventory.TxOut,
		Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(6), currentStock(t, store, p.ID))

	require.NoError(t, ledger.DeleteTransaction(ctx, out.ID))
	assert.Equal(t, int64(10), currentStock(t, store, p.ID))

	_, err = ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:  inventory.TxOut,
		Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: 10}},
	})
	assert.NoError(t, err)

	gone, err := store.GetTransaction(ctx, out.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "deleted transaction should be gone")
}

func TestDeleteTransaction_In_SubtractsStockBack(t *testing.T) {
	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-10", "10.00", 10)

	in, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:  inventory.TxIn,
		Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: 7}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(17), currentStock(t, store, p.ID))

	require.NoError(t, ledger.DeleteTransaction(ctx, in.ID))
	assert.Equal(t, int64(10), currentStock(t, store, p.ID))
}

func TestDeleteTransaction_RepeatedPartLines_RoundTrip(t *testing.T) {
	// GIVEN: An IN transaction whose two lines both add 5 to one part
	// WHEN: That transaction is deleted
	// THEN: Stock returns exactly to its starting value - create and
	//       reversal move the same total

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-25", "10.00", 10)

	in, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type: inventory.TxIn,
		Lines: []inventory.TransactionLine{
			{PartID: p.ID, Quantity: 5},
			{PartID: p.ID, Quantity: 5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(20), currentStock(t, store, p.ID))

	require.NoError(t, ledger.DeleteTransaction(ctx, in.ID))
	assert.Equal(t, int64(10), currentStock(t, store, p.ID))
}

func TestDeleteTransaction_Adjustment_StockUntouched(t *testing.T) {
	// GIVEN: An adjustment set stock from 10 to 3
	// WHEN: That adjustment transaction is deleted
	// THEN: Stock stays at 3 - adjustments carry no prior value to restore

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-11", "10.00", 10)

	adj, err := ledger.UpdateStock(ctx, p.ID, 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), currentStock(t, store, p.ID))

	require.NoError(t, ledger.DeleteTransaction(ctx, adj.ID))
	assert.Equal(t, int64(3), currentStock(t, store, p.ID))
}

func TestDeleteTransaction_NotFound(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	err := ledger.DeleteTransaction(context.Background(), 4242)
	require.Error(t, err)
	assert.True(t, inventory.IsNotFound(err))
}

// =============================================================================
// STOCK ADJUSTMENT TESTS
// =============================================================================

func TestUpdateStock_RecordsSignedDelta(t *testing.T) {
	// GIVEN: A part with 10 in stock
	// WHEN: Stock is set to 4
	// THEN: The synthetic ADJUSTMENT's item carries delta -6, not the target

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-12", "10.00", 10)

	tx, err := ledger.UpdateStock(ctx, p.ID, 4)
	require.NoError(t, err)

	assert.Equal(t, inventory.TxAdjustment, tx.Type)
	require.Len(t, tx.Items, 1)
	assert.Equal(t, int64(-6), tx.Items[0].Quantity)
	assert.Equal(t, int64(4), currentStock(t, store, p.ID))
}

func TestUpdateStock_AllowsNegativeTarget(t *testing.T) {
	// Physical counts can go below zero (loss, miscounts); the single
	// update path does not gate on sufficiency.

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-13", "10.00", 2)

	_, err := ledger.UpdateStock(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), currentStock(t, store, p.ID))
}

func TestBulkUpdateStock_AllOrNothing(t *testing.T) {
	// GIVEN: One known part and one unknown part id
	// WHEN: A bulk update targets both
	// THEN: The whole batch aborts and the known part keeps its stock

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-14", "10.00", 10)

	_, err := ledger.BulkUpdateStock(ctx, []inventory.StockUpdate{
		{PartID: p.ID, NewStock: 50},
		{PartID: 9999, NewStock: 5},
	})
	require.Error(t, err)
	assert.True(t, inventory.IsNotFound(err))
	assert.Equal(t, int64(10), currentStock(t, store, p.ID))
}

func TestBulkUpdateStock_NegativeTarget_Rejected(t *testing.T) {
	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-15", "10.00", 10)

	_, err := ledger.BulkUpdateStock(ctx, []inventory.StockUpdate{
		{PartID: p.ID, NewStock: -1},
	})
	require.Error(t, err)
	assert.True(t, inventory.IsValidation(err))
	assert.Equal(t, int64(10), currentStock(t, store, p.ID))
}

func TestBulkUpdateStock_AppliesAll(t *testing.T) {
	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	a := newTestPart(t, parts, "FLT-16", "10.00", 10)
	b := newTestPart(t, parts, "FLT-17", "10.00", 20)

	txs, err := ledger.BulkUpdateStock(ctx, []inventory.StockUpdate{
		{PartID: a.ID, NewStock: 5},
		{PartID: b.ID, NewStock: 25},
	})
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	assert.Equal(t, int64(5), currentStock(t, store, a.ID))
	assert.Equal(t, int64(25), currentStock(t, store, b.ID))
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestCreateTransaction_ConcurrentOuts_NeverOverdraw(t *testing.T) {
	// GIVEN: A part with 5 in stock
	// WHEN: 20 goroutines each try to take 1 OUT concurrently
	// THEN: Exactly 5 succeed and stock lands on 0, never below

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-18", "10.00", 5)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
				Type:  inventory.TxOut,
				Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: 1}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, inventory.IsInsufficientStock(err), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, int64(0), currentStock(t, store, p.ID))
}

// =============================================================================
// INVOICE TESTS
// =============================================================================

func TestGenerateInvoice_SnapshotsItems(t *testing.T) {
	// GIVEN: An OUT transaction for two parts
	// WHEN: A customer invoice is generated and a part is then renamed
	// THEN: The invoice keeps the part name as it was at issue time

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	a := newTestPart(t, parts, "FLT-19", "10.00", 10)
	b := newTestPart(t, parts, "FLT-20", "5.00", 10)

	tx, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:      inventory.TxOut,
		Recipient: "Workshop 1",
		Currency:  "USD",
		Lines: []inventory.TransactionLine{
			{PartID: a.ID, Quantity: 2},
			{PartID: b.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)

	inv, err := ledger.GenerateInvoice(ctx, tx.ID, inventory.InvoiceCustomerCopy)
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "Part FLT-19", inv.Items[0].PartName)
	assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString("35")))
	assert.Contains(t, inv.InvoiceNumber, fmt.Sprintf("INV-%d-", tx.ID))

	// Rename the part; the stored invoice must not change.
	_, err = parts.UpdatePart(ctx, a.ID, inventory.PartInput{
		Name:       "Renamed",
		PartNumber: a.PartNumber,
		CategoryID: a.CategoryID,
		UnitPrice:  a.UnitPrice,
	})
	require.NoError(t, err)

	stored, err := store.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Part FLT-19", stored.Items[0].PartName)
}

func TestGenerateInvoice_UnknownCopyType_Rejected(t *testing.T) {
	ledger, parts, _ := newTestLedger(t)
	ctx := context.Background()
	p := newTestPart(t, parts, "FLT-21", "10.00", 10)

	tx, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:  inventory.TxOut,
		Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = ledger.GenerateInvoice(ctx, tx.ID, "draft")
	require.Error(t, err)
	assert.True(t, inventory.IsValidation(err))
}
