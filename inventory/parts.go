/*
parts.go - Part lifecycle: create, edit, delete with dependency cascade

PURPOSE:
  Parts own the stock being tracked; everything else in the ledger
  hangs off them by foreign key. Creation optionally bootstraps an
  initial-stock IN transaction through the same code path as any other
  transaction, so the ledger always explains how stock got where it is.

DELETION:
  Deleting a part removes every transaction item and invoice item
  referencing it before (atomically with) the part row itself, so no
  orphaned line can point at a missing part. The store declares
  cascading foreign keys AND deletes dependents explicitly inside the
  same transaction, covering storage layers that don't enforce cascade.

STOCK EDITS:
  UpdatePart touches non-stock fields only. Stock moves exclusively
  through ledger.go (transactions and adjustments).
*/
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PartInput carries the editable fields of a part.
type PartInput struct {
	Name          string
	PartNumber    string
	CategoryID    CategoryID
	UnitPrice     decimal.Decimal
	MinimumStock  int64
	MaximumStock  *int64
	Location      string
	Supplier      string
	MachineModels []string

	// InitialStock > 0 on creation bootstraps an IN transaction.
	InitialStock int64
}

// Parts manages the part catalog.
type Parts struct {
	Store TxStore
}

func NewParts(store TxStore) *Parts {
	return &Parts{Store: store}
}

func validatePartInput(in PartInput) error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Message: "must not be blank"}
	}
	if in.PartNumber == "" {
		return &ValidationError{Field: "part_number", Message: "must not be blank"}
	}
	if !in.UnitPrice.IsPositive() {
		return &ValidationError{Field: "unit_price", Message: "must be greater than zero"}
	}
	if in.MinimumStock < 0 {
		return &ValidationError{Field: "minimum_stock", Message: "must not be negative"}
	}
	if in.MaximumStock != nil && *in.MaximumStock < in.MinimumStock {
		return &ValidationError{Field: "maximum_stock", Message: "must not be below minimum stock"}
	}
	if in.InitialStock < 0 {
		return &ValidationError{Field: "initial_stock", Message: "must not be negative"}
	}
	return nil
}

// CreatePart validates and inserts a part. When InitialStock is
// positive, an IN transaction for that quantity is created in the same
// atomic unit, so a storage fault can't leave a part without its
// opening ledger entry.
func (p *Parts) CreatePart(ctx context.Context, in PartInput) (*Part, error) {
	if err := validatePartInput(in); err != nil {
		return nil, err
	}

	var created *Part
	err := p.Store.WithTx(ctx, func(s Store) error {
		existing, err := s.GetPartByNumber(ctx, in.PartNumber)
		if err != nil {
			return fmt.Errorf("check part number: %w", err)
		}
		if existing != nil {
			return &ConflictError{PartNumber: in.PartNumber}
		}

		cat, err := s.GetCategory(ctx, in.CategoryID)
		if err != nil {
			return fmt.Errorf("resolve category %d: %w", in.CategoryID, err)
		}
		if cat == nil {
			return &NotFoundError{Entity: "category", ID: int64(in.CategoryID)}
		}

		now := time.Now().UTC()
		part := &Part{
			Name:          in.Name,
			PartNumber:    in.PartNumber,
			CategoryID:    in.CategoryID,
			UnitPrice:     in.UnitPrice,
			CurrentStock:  0,
			MinimumStock:  in.MinimumStock,
			MaximumStock:  in.MaximumStock,
			Location:      in.Location,
			Supplier:      in.Supplier,
			MachineModels: in.MachineModels,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.InsertPart(ctx, part); err != nil {
			return fmt.Errorf("insert part: %w", err)
		}

		if in.InitialStock > 0 {
			_, err := createTransaction(ctx, s, TransactionInput{
				Type:   TxIn,
				Reason: "initial stock",
				Lines: []TransactionLine{
					{PartID: part.ID, Quantity: in.InitialStock},
				},
			})
			if err != nil {
				return fmt.Errorf("bootstrap initial stock: %w", err)
			}
			part.CurrentStock = in.InitialStock
		}

		created = part
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdatePart edits the non-stock fields of a part. CurrentStock is
// untouched regardless of input.
func (p *Parts) UpdatePart(ctx context.Context, id PartID, in PartInput) (*Part, error) {
	if err := validatePartInput(in); err != nil {
		return nil, err
	}

	var updated *Part
	err := p.Store.WithTx(ctx, func(s Store) error {
		part, err := s.GetPart(ctx, id)
		if err != nil {
			return fmt.Errorf("resolve part %d: %w", id, err)
		}
		if part == nil {
			return &NotFoundError{Entity: "part", ID: int64(id)}
		}

		if in.PartNumber != part.PartNumber {
			other, err := s.GetPartByNumber(ctx, in.PartNumber)
			if err != nil {
				return fmt.Errorf("check part number: %w", err)
			}
			if other != nil {
				return &ConflictError{PartNumber: in.PartNumber}
			}
		}

		cat, err := s.GetCategory(ctx, in.CategoryID)
		if err != nil {
			return fmt.Errorf("resolve category %d: %w", in.CategoryID, err)
		}
		if cat == nil {
			return &NotFoundError{Entity: "category", ID: int64(in.CategoryID)}
		}

		part.Name = in.Name
		part.PartNumber = in.PartNumber
		part.CategoryID = in.CategoryID
		part.UnitPrice = in.UnitPrice
		part.MinimumStock = in.MinimumStock
		part.MaximumStock = in.MaximumStock
		part.Location = in.Location
		part.Supplier = in.Supplier
		part.MachineModels = in.MachineModels
		part.UpdatedAt = time.Now().UTC()

		if err := s.UpdatePart(ctx, part); err != nil {
			return fmt.Errorf("update part %d: %w", id, err)
		}
		updated = part
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePart removes the part and every line item referencing it,
// ledger history included. Transactions keep their headers and cached
// totals; only the lines pointing at the deleted part disappear.
func (p *Parts) DeletePart(ctx context.Context, id PartID) error {
	return p.Store.WithTx(ctx, func(s Store) error {
		part, err := s.GetPart(ctx, id)
		if err != nil {
			return fmt.Errorf("resolve part %d: %w", id, err)
		}
		if part == nil {
			return &NotFoundError{Entity: "part", ID: int64(id)}
		}
		if err := s.DeletePartCascade(ctx, id); err != nil {
			return fmt.Errorf("delete part %d: %w", id, err)
		}
		return nil
	})
}

// GetPart returns one part or NotFoundError.
func (p *Parts) GetPart(ctx context.Context, id PartID) (*Part, error) {
	part, err := p.Store.GetPart(ctx, id)
	if err != nil {
		return nil, err
	}
	if part == nil {
		return nil, &NotFoundError{Entity: "part", ID: int64(id)}
	}
	return part, nil
}

// ListParts returns the full catalog.
func (p *Parts) ListParts(ctx context.Context) ([]Part, error) {
	return p.Store.ListParts(ctx)
}

// CreateCategory inserts a category; name uniqueness is its only rule.
func (p *Parts) CreateCategory(ctx context.Context, name, description string) (*Category, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be blank"}
	}
	now := time.Now().UTC()
	cat := &Category{Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	if err := p.Store.InsertCategory(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// ListCategories returns all categories.
func (p *Parts) ListCategories(ctx context.Context) ([]Category, error) {
	return p.Store.ListCategories(ctx)
}
