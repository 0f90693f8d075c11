package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/enums"
)

// Repository defines persistence operations for escrow release.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindDriver(ctx context.Context, driverID uuid.UUID) (*models.Driver, error)
	CreatePayouts(ctx context.Context, rows []models.Payout) error
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Payout, error)
	UpdatePaymentStatusIf(ctx context.Context, paymentID uuid.UUID, from, to enums.PaymentStatus, updates map[string]any) (bool, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}
