package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
)

// Line is one part/quantity pair to reserve or restock.
type Line struct {
	PartID uuid.UUID
	Qty    int
}

// Reserver decrements stock atomically while an order is being placed.
type Reserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, lines []Line) error
}

// Restocker returns stock when an order is cancelled before completion.
type Restocker interface {
	Restock(ctx context.Context, tx *gorm.DB, lines []Line) error
}

type service struct{}

// NewService exposes the default stock reservation implementation.
func NewService() interface {
	Reserver
	Restocker
} {
	return service{}
}

// Reserve decrements stock_qty for every line with a guarded UPDATE. The
// WHERE clause refuses to take stock below zero, so concurrent orders for
// the last unit cannot both succeed. On the first insufficient line the
// whole call fails and names the offending part; the caller's transaction
// rollback undoes any earlier decrements.
func (service) Reserve(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	for _, line := range lines {
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
		}
		res := tx.WithContext(ctx).Exec(`
			UPDATE parts
			SET stock_qty = stock_qty - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND is_active AND stock_qty >= ?
		`, line.Qty, line.PartID, line.Qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
		}
		if res.RowsAffected == 0 {
			if err := explainReserveFailure(ctx, tx, line); err != nil {
				return err
			}
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("insufficient stock for part %s", line.PartID))
		}
	}
	return nil
}

// Restock adds quantities back after a cancellation.
func (service) Restock(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for restock")
	}
	for _, line := range lines {
		if line.Qty <= 0 {
			continue
		}
		res := tx.WithContext(ctx).Exec(`
			UPDATE parts
			SET stock_qty = stock_qty + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, line.Qty, line.PartID)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restock part")
		}
	}
	return nil
}

// explainReserveFailure distinguishes a missing/inactive part from one that
// simply ran out, so the API can answer 404 versus 400.
func explainReserveFailure(ctx context.Context, tx *gorm.DB, line Line) error {
	var part models.Part
	err := tx.WithContext(ctx).Select("id", "is_active").Where("id = ?", line.PartID).First(&part).Error
	if err == gorm.ErrRecordNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("part %s not found", line.PartID))
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect part")
	}
	if !part.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("part %s is not available", line.PartID))
	}
	return nil
}
