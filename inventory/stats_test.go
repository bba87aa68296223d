/*
stats_test.go - Tests for the analytical read models
*/
package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/parts-ledger/inventory"
)

func TestGetFastMovingParts_OrderedByOutQuantity(t *testing.T) {
	// GIVEN: Three parts with different OUT volumes, plus IN noise
	// WHEN: Fast movers are requested
	// THEN: Parts come back ordered by total OUT quantity with a /12
	//       monthly average; IN transactions don't count

	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	stats := inventory.NewStats(store)

	heavy := newTestPart(t, parts, "FM-1", "10.00", 100)
	medium := newTestPart(t, parts, "FM-2", "10.00", 100)
	idle := newTestPart(t, parts, "FM-3", "10.00", 100)

	out := func(id inventory.PartID, qty int64) {
		_, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
			Type:  inventory.TxOut,
			Lines: []inventory.TransactionLine{{PartID: id, Quantity: qty}},
		})
		require.NoError(t, err)
	}
	out(heavy.ID, 20)
	out(heavy.ID, 10)
	out(medium.ID, 12)

	// IN volume on the idle part must not register as movement.
	_, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
		Type:  inventory.TxIn,
		Lines: []inventory.TransactionLine{{PartID: idle.ID, Quantity: 500}},
	})
	require.NoError(t, err)

	movers, err := stats.GetFastMovingParts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, movers, 2)

	assert.Equal(t, heavy.ID, movers[0].PartID)
	assert.Equal(t, int64(30), movers[0].TotalQuantity)
	assert.Equal(t, int64(2), movers[0].TransactionCount)
	assert.True(t, movers[0].AveragePerMonth.Equal(decimal.RequireFromString("2.5")),
		"30/12 should round to 2.5, got %s", movers[0].AveragePerMonth)

	assert.Equal(t, medium.ID, movers[1].PartID)
	assert.Equal(t, int64(12), movers[1].TotalQuantity)
	assert.True(t, movers[1].AveragePerMonth.Equal(decimal.NewFromInt(1)))
}

func TestGetFastMovingParts_LimitApplied(t *testing.T) {
	ledger, parts, store := newTestLedger(t)
	ctx := context.Background()
	stats := inventory.NewStats(store)

	for i := 0; i < 3; i++ {
		p := newTestPart(t, parts, "LIM-"+string(rune('A'+i)), "1.00", 50)
		_, err := ledger.CreateTransaction(ctx, inventory.TransactionInput{
			Type:  inventory.TxOut,
			Lines: []inventory.TransactionLine{{PartID: p.ID, Quantity: int64(10 - i)}},
		})
		require.NoError(t, err)
	}

	movers, err := stats.GetFastMovingParts(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, movers, 2)
}

func TestGetInventoryStats_TotalsAndRollups(t *testing.T) {
	// GIVEN: Two categories, three parts, one of them at its minimum
	// WHEN: The inventory snapshot is computed
	// THEN: Totals, value (stock x price), and per-category roll-ups match

	_, parts, store := newTestLedger(t)
	ctx := context.Background()
	stats := inventory.NewStats(store)

	filters, err := parts.CreateCategory(ctx, "Filters", "")
	require.NoError(t, err)
	belts, err := parts.CreateCategory(ctx, "Belts", "")
	require.NoError(t, err)

	mk := func(number, price string, cat inventory.CategoryID, stock, minStock int64) {
		_, err := parts.CreatePart(ctx, inventory.PartInput{
			Name:         "Part " + number,
			PartNumber:   number,
			CategoryID:   cat,
			UnitPrice:    decimal.RequireFromString(price),
			MinimumStock: minStock,
			InitialStock: stock,
		})
		require.NoError(t, err)
	}
	mk("ST-1", "2.00", filters.ID, 10, 2) // value 20
	mk("ST-2", "3.00", filters.ID, 4, 4)  // value 12, low stock (4 <= 4)
	mk("ST-3", "5.00", belts.ID, 6, 1)    // value 30

	snap, err := stats.GetInventoryStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), snap.TotalParts)
	assert.Equal(t, int64(2), snap.TotalCategories)
	assert.Equal(t, int64(20), snap.TotalStock)
	assert.True(t, snap.TotalValue.Equal(decimal.NewFromInt(62)), "got %s", snap.TotalValue)
	assert.Equal(t, int64(1), snap.LowStockParts)

	require.Len(t, snap.Categories, 2)
	byName := make(map[string]inventory.CategoryStats)
	for _, c := range snap.Categories {
		byName[c.CategoryName] = c
	}
	f := byName["Filters"]
	assert.Equal(t, int64(2), f.PartCount)
	assert.Equal(t, int64(14), f.TotalStock)
	assert.True(t, f.TotalValue.Equal(decimal.NewFromInt(32)))
	assert.Equal(t, int64(1), f.LowStockCount)

	b := byName["Belts"]
	assert.Equal(t, int64(1), b.PartCount)
	assert.True(t, b.TotalValue.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, int64(0), b.LowStockCount)
}

func TestGetInventoryStats_EmptyCatalog(t *testing.T) {
	_, _, store := newTestLedger(t)
	stats := inventory.NewStats(store)

	snap, err := stats.GetInventoryStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.TotalParts)
	assert.True(t, snap.TotalValue.Equal(decimal.Zero))
	assert.Empty(t, snap.Categories)
}
