/*
handlers.go - HTTP API handlers for the spare-parts ledger

PURPOSE:
  Exposes the inventory ledger via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Parts:
    GET    /api/parts                    List the catalog
    POST   /api/parts                    Create part (optional initial stock)
    POST   /api/parts/bulk-stock-update  Bulk stock update (all or nothing)
    GET    /api/parts/{id}               Get part details
    PUT    /api/parts/{id}               Update non-stock fields
    DELETE /api/parts/{id}               Delete part + dependent lines
    PUT    /api/parts/{id}/stock         Set stock to an absolute value

  Transactions:
    GET    /api/transactions             Recent transactions
    POST   /api/transactions             Create multi-line transaction
    GET    /api/transactions/{id}        Get transaction with items
    DELETE /api/transactions/{id}        Delete and reverse stock effects
    POST   /api/transactions/{id}/invoices  Issue an invoice

  Categories:
    GET    /api/categories               List categories
    POST   /api/categories               Create category

  Stats:
    GET    /api/stats/fast-moving        Top parts by OUT quantity
    GET    /api/stats/inventory          Inventory totals + category roll-ups
    GET    /api/stats/export             XLSX inventory report

  Invoices:
    GET    /api/invoices/{id}            Get an issued invoice

ERROR HANDLING:
  All responses use the {success, data?, error?} envelope. Status codes:
  - 400: validation errors, insufficient stock
  - 404: entity not found
  - 409: duplicate part number
  - 500: storage faults (logged; generic message to the client)

SECURITY NOTE:
  No authentication middleware. Intended to run behind a trusted
  perimeter.

SEE ALSO:
  - dto.go: request/response data structures
  - server.go: router setup and middleware
  - seed.go, export.go: the remaining handlers
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/parts-ledger/inventory"
	"github.com/warp/parts-ledger/metrics"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    inventory.TxStore
	Ledger   *inventory.Ledger
	Parts    *inventory.Parts
	Stats    *inventory.Stats
	Validate *validator.Validate
	Log      *slog.Logger
}

// NewHandler wires the domain services around the given store.
func NewHandler(store inventory.TxStore, log *slog.Logger) *Handler {
	return &Handler{
		Store:    store,
		Ledger:   inventory.NewLedger(store),
		Parts:    inventory.NewParts(store),
		Stats:    inventory.NewStats(store),
		Validate: validator.New(),
		Log:      log,
	}
}

// =============================================================================
// PART HANDLERS
// =============================================================================

// ListParts returns the full catalog.
func (h *Handler) ListParts(w http.ResponseWriter, r *http.Request) {
	parts, err := h.Parts.ListParts(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPartDTOs(parts))
}

// CreatePart creates a part, bootstrapping an IN transaction when
// initial_stock is positive.
func (h *Handler) CreatePart(w http.ResponseWriter, r *http.Request) {
	var req PartRequest
	if !h.decode(w, r, &req) {
		return
	}
	part, err := h.Parts.CreatePart(r.Context(), req.toInput())
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPartDTO(part))
}

// GetPart returns a single part.
func (h *Handler) GetPart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	part, err := h.Parts.GetPart(r.Context(), inventory.PartID(id))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPartDTO(part))
}

// UpdatePart edits the non-stock fields of a part.
func (h *Handler) UpdatePart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req PartRequest
	if !h.decode(w, r, &req) {
		return
	}
	part, err := h.Parts.UpdatePart(r.Context(), inventory.PartID(id), req.toInput())
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPartDTO(part))
}

// DeletePart removes a part and every line item referencing it.
func (h *Handler) DeletePart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.Parts.DeletePart(r.Context(), inventory.PartID(id)); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

// UpdatePartStock sets a part's stock to an absolute value, recording
// a synthetic ADJUSTMENT transaction for the audit trail.
func (h *Handler) UpdatePartStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UpdateStockRequest
	if !h.decode(w, r, &req) {
		return
	}
	tx, err := h.Ledger.UpdateStock(r.Context(), inventory.PartID(id), req.NewStock)
	if err != nil {
		h.respondError(w, err)
		return
	}
	metrics.StockAdjustments.Inc()
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns recent transactions, newest first.
// Optional ?limit=N.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	txs, err := h.Store.ListTransactions(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// CreateTransaction validates and applies a multi-line transaction
// atomically.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.respondError(w, err)
		return
	}
	tx, err := h.Ledger.CreateTransaction(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	metrics.TransactionsCreated.WithLabelValues(string(tx.Type)).Inc()
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// GetTransaction returns a transaction with its items.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	tx, err := h.Store.GetTransaction(r.Context(), inventory.TransactionID(id))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if tx == nil {
		h.respondError(w, &inventory.NotFoundError{Entity: "transaction", ID: id})
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// DeleteTransaction removes a transaction and reverses its stock
// effects (ADJUSTMENT items excluded).
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.Ledger.DeleteTransaction(r.Context(), inventory.TransactionID(id)); err != nil {
		h.respondError(w, err)
		return
	}
	metrics.TransactionsDeleted.Inc()
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

// GenerateInvoice issues an invoice for a transaction.
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req GenerateInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.Ledger.GenerateInvoice(r.Context(),
		inventory.TransactionID(id), inventory.InvoiceCopyType(req.CopyType))
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// GetInvoice returns an issued invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.Store.GetInvoice(r.Context(), inventory.InvoiceID(id))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if inv == nil {
		h.respondError(w, &inventory.NotFoundError{Entity: "invoice", ID: id})
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// BulkUpdateStock applies every update or none.
func (h *Handler) BulkUpdateStock(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateStockRequest
	if !h.decode(w, r, &req) {
		return
	}
	updates := make([]inventory.StockUpdate, len(req.Updates))
	for i, u := range req.Updates {
		updates[i] = inventory.StockUpdate{
			PartID:   inventory.PartID(u.PartID),
			NewStock: u.NewStock,
		}
	}
	txs, err := h.Ledger.BulkUpdateStock(r.Context(), updates)
	if err != nil {
		h.respondError(w, err)
		return
	}
	metrics.StockAdjustments.Add(float64(len(txs)))
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// ListCategories returns all categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Parts.ListCategories(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	dtos := make([]CategoryDTO, len(categories))
	for i := range categories {
		dtos[i] = toCategoryDTO(&categories[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory creates a category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	cat, err := h.Parts.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(cat))
}

// =============================================================================
// STATS HANDLERS
// =============================================================================

// GetFastMovingParts returns the top parts by OUT quantity.
// Optional ?limit=N, default 10.
func (h *Handler) GetFastMovingParts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	parts, err := h.Stats.GetFastMovingParts(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if parts == nil {
		parts = []inventory.FastMovingPart{}
	}
	writeJSON(w, http.StatusOK, parts)
}

// GetInventoryStats returns the inventory snapshot with category
// roll-ups.
func (h *Handler) GetInventoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.GetInventoryStats(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: false, Error: message})
}

// respondError maps domain errors to status codes. Storage faults are
// logged with detail but reported to the client generically.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case inventory.IsInsufficientStock(err):
		metrics.InsufficientStockRejections.Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	case inventory.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case inventory.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case inventory.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.Log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode parses and validates the JSON request body, writing a 400 and
// returning false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return false
	}
	return true
}

// pathID extracts the {id} path parameter, writing a 400 on garbage.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
