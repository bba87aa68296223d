/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

ENVELOPE:
  Every response, success or failure, is wrapped in Envelope:
    {"success": true,  "data": ...}
    {"success": false, "error": "..."}

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through Handler.Validate before touching domain logic. Domain
  rules (stock sufficiency, uniqueness, cross-field checks) stay in the
  inventory package.

SEE ALSO:
  - handlers.go: uses these types
  - inventory/types.go: the domain model these mirror
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/parts-ledger/inventory"
)

// Envelope is the uniform response wrapper.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// PartRequest is the body for creating or updating a part.
type PartRequest struct {
	Name          string          `json:"name" validate:"required"`
	PartNumber    string          `json:"part_number" validate:"required"`
	CategoryID    int64           `json:"category_id" validate:"required,gt=0"`
	UnitPrice     decimal.Decimal `json:"unit_price" validate:"required"`
	MinimumStock  int64           `json:"minimum_stock" validate:"gte=0"`
	MaximumStock  *int64          `json:"maximum_stock,omitempty"`
	Location      string          `json:"location"`
	Supplier      string          `json:"supplier"`
	MachineModels []string        `json:"machine_models"`

	// InitialStock only applies on creation; ignored on update.
	InitialStock int64 `json:"initial_stock" validate:"gte=0"`
}

// TransactionLineRequest is one line of a new transaction.
type TransactionLineRequest struct {
	PartID    int64            `json:"part_id" validate:"required,gt=0"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// CreateTransactionRequest is the body for creating a transaction.
type CreateTransactionRequest struct {
	Type       string                   `json:"type" validate:"required,oneof=IN OUT ADJUSTMENT"`
	Recipient  string                   `json:"recipient"`
	Reason     string                   `json:"reason"`
	Notes      string                   `json:"notes"`
	IsPaid     bool                     `json:"is_paid"`
	AmountPaid decimal.Decimal          `json:"amount_paid"`
	Currency   string                   `json:"currency"`
	Date       string                   `json:"date,omitempty"` // RFC3339; empty = now
	Items      []TransactionLineRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateStockRequest sets one part's stock to an absolute value.
type UpdateStockRequest struct {
	NewStock int64 `json:"new_stock"`
}

// StockUpdateEntry is one entry of a bulk stock update.
type StockUpdateEntry struct {
	PartID   int64 `json:"part_id" validate:"required,gt=0"`
	NewStock int64 `json:"new_stock"`
}

// BulkUpdateStockRequest applies several stock updates atomically.
type BulkUpdateStockRequest struct {
	Updates []StockUpdateEntry `json:"updates" validate:"required,min=1,dive"`
}

// CreateCategoryRequest is the body for creating a category.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// GenerateInvoiceRequest selects which invoice copy to issue.
type GenerateInvoiceRequest struct {
	CopyType string `json:"copy_type" validate:"required,oneof=customer company"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// PartDTO represents a part in API responses.
type PartDTO struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	PartNumber    string          `json:"part_number"`
	CategoryID    int64           `json:"category_id"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	CurrentStock  int64           `json:"current_stock"`
	MinimumStock  int64           `json:"minimum_stock"`
	MaximumStock  *int64          `json:"maximum_stock,omitempty"`
	Location      string          `json:"location,omitempty"`
	Supplier      string          `json:"supplier,omitempty"`
	MachineModels []string        `json:"machine_models,omitempty"`
	LowStock      bool            `json:"low_stock"`
	CreatedAt     string          `json:"created_at,omitempty"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
}

// CategoryDTO represents a category in API responses.
type CategoryDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// TransactionDTO represents a ledger transaction.
type TransactionDTO struct {
	ID              int64                `json:"id"`
	Type            string               `json:"type"`
	Recipient       string               `json:"recipient,omitempty"`
	Reason          string               `json:"reason,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	IsPaid          bool                 `json:"is_paid"`
	AmountPaid      decimal.Decimal      `json:"amount_paid"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	Currency        string               `json:"currency,omitempty"`
	TransactionDate string               `json:"transaction_date"`
	CreatedAt       string               `json:"created_at,omitempty"`
	Items           []TransactionItemDTO `json:"items"`
}

// TransactionItemDTO represents one line of a transaction.
type TransactionItemDTO struct {
	ID        int64           `json:"id"`
	PartID    int64           `json:"part_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// InvoiceDTO represents an issued invoice.
type InvoiceDTO struct {
	ID            int64            `json:"id"`
	TransactionID int64            `json:"transaction_id"`
	InvoiceNumber string           `json:"invoice_number"`
	CopyType      string           `json:"copy_type"`
	Recipient     string           `json:"recipient,omitempty"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	Currency      string           `json:"currency,omitempty"`
	IssuedAt      string           `json:"issued_at"`
	Items         []InvoiceItemDTO `json:"items"`
}

// InvoiceItemDTO is one denormalized line of an invoice.
type InvoiceItemDTO struct {
	ID         int64           `json:"id"`
	PartID     int64           `json:"part_id"`
	PartName   string          `json:"part_name"`
	PartNumber string          `json:"part_number"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPartDTO(p *inventory.Part) PartDTO {
	return PartDTO{
		ID:            int64(p.ID),
		Name:          p.Name,
		PartNumber:    p.PartNumber,
		CategoryID:    int64(p.CategoryID),
		UnitPrice:     p.UnitPrice,
		CurrentStock:  p.CurrentStock,
		MinimumStock:  p.MinimumStock,
		MaximumStock:  p.MaximumStock,
		Location:      p.Location,
		Supplier:      p.Supplier,
		MachineModels: p.MachineModels,
		LowStock:      p.LowStock(),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

func toPartDTOs(parts []inventory.Part) []PartDTO {
	dtos := make([]PartDTO, len(parts))
	for i := range parts {
		dtos[i] = toPartDTO(&parts[i])
	}
	return dtos
}

func toCategoryDTO(c *inventory.Category) CategoryDTO {
	return CategoryDTO{
		ID:          int64(c.ID),
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTO(tx *inventory.Transaction) TransactionDTO {
	items := make([]TransactionItemDTO, len(tx.Items))
	for i, item := range tx.Items {
		items[i] = TransactionItemDTO{
			ID:        item.ID,
			PartID:    int64(item.PartID),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}
	return TransactionDTO{
		ID:              int64(tx.ID),
		Type:            string(tx.Type),
		Recipient:       tx.Recipient,
		Reason:          tx.Reason,
		Notes:           tx.Notes,
		IsPaid:          tx.IsPaid,
		AmountPaid:      tx.AmountPaid,
		TotalAmount:     tx.TotalAmount,
		Currency:        tx.Currency,
		TransactionDate: tx.TransactionDate.Format(time.RFC3339),
		CreatedAt:       tx.CreatedAt.Format(time.RFC3339),
		Items:           items,
	}
}

func toTransactionDTOs(txs []inventory.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i := range txs {
		dtos[i] = toTransactionDTO(&txs[i])
	}
	return dtos
}

func toInvoiceDTO(inv *inventory.Invoice) InvoiceDTO {
	items := make([]InvoiceItemDTO, len(inv.Items))
	for i, item := range inv.Items {
		items[i] = InvoiceItemDTO{
			ID:         item.ID,
			PartID:     int64(item.PartID),
			PartName:   item.PartName,
			PartNumber: item.PartNumber,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			LineTotal:  item.LineTotal,
		}
	}
	return InvoiceDTO{
		ID:            int64(inv.ID),
		TransactionID: int64(inv.TransactionID),
		InvoiceNumber: inv.InvoiceNumber,
		CopyType:      string(inv.CopyType),
		Recipient:     inv.Recipient,
		TotalAmount:   inv.TotalAmount,
		Currency:      inv.Currency,
		IssuedAt:      inv.IssuedAt.Format(time.RFC3339),
		Items:         items,
	}
}

func (r PartRequest) toInput() inventory.PartInput {
	return inventory.PartInput{
		Name:          r.Name,
		PartNumber:    r.PartNumber,
		CategoryID:    inventory.CategoryID(r.CategoryID),
		UnitPrice:     r.UnitPrice,
		MinimumStock:  r.MinimumStock,
		MaximumStock:  r.MaximumStock,
		Location:      r.Location,
		Supplier:      r.Supplier,
		MachineModels: r.MachineModels,
		InitialStock:  r.InitialStock,
	}
}

func (r CreateTransactionRequest) toInput() (inventory.TransactionInput, error) {
	in := inventory.TransactionInput{
		Type:       inventory.TransactionType(r.Type),
		Recipient:  r.Recipient,
		Reason:     r.Reason,
		Notes:      r.Notes,
		IsPaid:     r.IsPaid,
		AmountPaid: r.AmountPaid,
		Currency:   r.Currency,
	}
	if r.Date != "" {
		t, err := time.Parse(time.RFC3339, r.Date)
		if err != nil {
			return in, &inventory.ValidationError{Field: "date", Message: "must be RFC3339"}
		}
		in.Date = t
	}
	in.Lines = make([]inventory.TransactionLine, len(r.Items))
	for i, item := range r.Items {
		in.Lines[i] = inventory.TransactionLine{
			PartID:    inventory.PartID(item.PartID),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return in, nil
}
