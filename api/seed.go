/*
seed.go - Demo data loader

Populates an empty database with a small spare-parts catalog and some
transaction history so the API has something to show. Refuses to run
on a non-empty catalog. Dev convenience only; the route is gated by
config.
*/
package api

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/parts-ledger/inventory"
)

type seedPart struct {
	name, number, location, supplier string
	price                            string
	minStock, initialStock           int64
	models                           []string
}

// SeedDemoData loads the demo catalog. 400 if the catalog already has
// parts.
func (h *Handler) SeedDemoData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	existing, err := h.Parts.ListParts(ctx)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if len(existing) > 0 {
		writeError(w, http.StatusBadRequest, "catalog is not empty; seed refused")
		return
	}

	categories := map[string]string{
		"Filters":    "Air, oil, and fuel filters",
		"Belts":      "Drive and timing belts",
		"Electrical": "Sensors, relays, and wiring",
	}
	catIDs := make(map[string]inventory.CategoryID, len(categories))
	for name, desc := range categories {
		cat, err := h.Parts.CreateCategory(ctx, name, desc)
		if err != nil {
			h.respondError(w, err)
			return
		}
		catIDs[name] = cat.ID
	}

	seeds := []struct {
		cat  string
		part seedPart
	}{
		{"Filters", seedPart{"Oil Filter", "FLT-1001", "A1-03", "Mahle", "12.50", 5, 40, []string{"D6N", "D8T"}}},
		{"Filters", seedPart{"Air Filter", "FLT-1002", "A1-04", "Mann", "29.90", 4, 25, []string{"D6N"}}},
		{"Belts", seedPart{"Drive Belt", "BLT-2001", "B2-01", "Gates", "45.00", 2, 12, []string{"D8T", "320D"}}},
		{"Electrical", seedPart{"Pressure Sensor", "ELC-3001", "C1-07", "Bosch", "88.75", 2, 8, []string{"320D"}}},
	}

	partIDs := make([]inventory.PartID, 0, len(seeds))
	for _, s := range seeds {
		price, err := decimal.NewFromString(s.part.price)
		if err != nil {
			h.respondError(w, fmt.Errorf("seed price %q: %w", s.part.price, err))
			return
		}
		p, err := h.Parts.CreatePart(ctx, inventory.PartInput{
			Name:          s.part.name,
			PartNumber:    s.part.number,
			CategoryID:    catIDs[s.cat],
			UnitPrice:     price,
			MinimumStock:  s.part.minStock,
			Location:      s.part.location,
			Supplier:      s.part.supplier,
			MachineModels: s.part.models,
			InitialStock:  s.part.initialStock,
		})
		if err != nil {
			h.respondError(w, err)
			return
		}
		partIDs = append(partIDs, p.ID)
	}

	// Some OUT history so the fast-moving report has data.
	outs := []inventory.TransactionInput{
		{
			Type:      inventory.TxOut,
			Recipient: "Workshop 1",
			Reason:    "scheduled service",
			Lines: []inventory.TransactionLine{
				{PartID: partIDs[0], Quantity: 6},
				{PartID: partIDs[1], Quantity: 2},
			},
		},
		{
			Type:      inventory.TxOut,
			Recipient: "Workshop 2",
			Reason:    "belt replacement",
			Lines: []inventory.TransactionLine{
				{PartID: partIDs[2], Quantity: 1},
			},
		},
		{
			Type:      inventory.TxOut,
			Recipient: "Workshop 1",
			Reason:    "scheduled service",
			Lines: []inventory.TransactionLine{
				{PartID: partIDs[0], Quantity: 4},
			},
		},
	}
	for _, in := range outs {
		if _, err := h.Ledger.CreateTransaction(ctx, in); err != nil {
			h.respondError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]int{
		"categories":   len(categories),
		"parts":        len(seeds),
		"transactions": len(outs),
	})
}
