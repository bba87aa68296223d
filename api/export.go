/*
export.go - XLSX inventory report

Builds a spreadsheet of the full catalog: one row per part with stock,
thresholds, pricing, and stock value, streamed as an attachment.
*/
package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportInventory writes the current catalog as an XLSX attachment.
func (h *Handler) ExportInventory(w http.ResponseWriter, r *http.Request) {
	parts, err := h.Parts.ListParts(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	categories, err := h.Parts.ListCategories(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	catNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		catNames[int64(c.ID)] = c.Name
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"ID", "Name", "Part Number", "Category", "Unit Price",
		"Current Stock", "Minimum Stock", "Maximum Stock",
		"Stock Value", "Location", "Supplier", "Machine Models", "Low Stock",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		h.Log.Error("export: write header", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	row := 2
	for i := range parts {
		p := &parts[i]
		maxStock := ""
		if p.MaximumStock != nil {
			maxStock = fmt.Sprintf("%d", *p.MaximumStock)
		}
		excelRow := []interface{}{
			int64(p.ID),
			p.Name,
			p.PartNumber,
			catNames[int64(p.CategoryID)],
			p.UnitPrice.String(),
			p.CurrentStock,
			p.MinimumStock,
			maxStock,
			p.StockValue().String(),
			p.Location,
			p.Supplier,
			strings.Join(p.MachineModels, ", "),
			p.LowStock(),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			h.Log.Error("export: cell name", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			h.Log.Error("export: write row", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		h.Log.Error("export: write workbook", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	fileName := fmt.Sprintf("inventory_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
