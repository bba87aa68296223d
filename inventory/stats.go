/*
stats.go - Read-only analytical queries over the ledger

PURPOSE:
  Reporting views: which parts move fastest out the door, and a
  whole-inventory snapshot with per-category roll-ups. Nothing here
  mutates state.

APPROXIMATION:
  AveragePerMonth divides total OUT quantity by a fixed 12, not by the
  actual elapsed months of data. Carried over from the business's
  reporting convention; do not "fix" without changing the report
  consumers.
*/
package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

var monthsPerYear = decimal.NewFromInt(12)

// Stats serves the analytical read models.
type Stats struct {
	Store Store
}

func NewStats(store Store) *Stats {
	return &Stats{Store: store}
}

// GetFastMovingParts returns the top `limit` parts by total OUT
// quantity, with transaction counts and the fixed /12 monthly average.
func (st *Stats) GetFastMovingParts(ctx context.Context, limit int) ([]FastMovingPart, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := st.Store.OutboundUsageByPart(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].AveragePerMonth = decimal.NewFromInt(rows[i].TotalQuantity).
			DivRound(monthsPerYear, 2)
	}
	return rows, nil
}

// GetInventoryStats aggregates part/category counts, total inventory
// value (sum of stock x unit price), and per-category roll-ups with
// low-stock counts (current <= minimum).
func (st *Stats) GetInventoryStats(ctx context.Context) (*InventoryStats, error) {
	parts, err := st.Store.ListParts(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := st.Store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	stats := &InventoryStats{
		TotalParts:      int64(len(parts)),
		TotalCategories: int64(len(categories)),
		TotalValue:      decimal.Zero,
		Categories:      make([]CategoryStats, 0, len(categories)),
	}

	perCategory := make(map[CategoryID]*CategoryStats, len(categories))
	for _, c := range categories {
		perCategory[c.ID] = &CategoryStats{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			TotalValue:   decimal.Zero,
		}
	}

	for i := range parts {
		p := &parts[i]
		value := p.StockValue()
		stats.TotalStock += p.CurrentStock
		stats.TotalValue = stats.TotalValue.Add(value)
		if p.LowStock() {
			stats.LowStockParts++
		}

		cs, ok := perCategory[p.CategoryID]
		if !ok {
			continue
		}
		cs.PartCount++
		cs.TotalStock += p.CurrentStock
		cs.TotalValue = cs.TotalValue.Add(value)
		if p.LowStock() {
			cs.LowStockCount++
		}
	}

	for _, c := range categories {
		stats.Categories = append(stats.Categories, *perCategory[c.ID])
	}
	return stats, nil
}
