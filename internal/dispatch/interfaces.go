package dispatch

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
)

// candidateLimit bounds how many drivers are considered per assignment.
const candidateLimit = 10

// Repository defines persistence operations for driver assignment.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
	FindDeliveryByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error)
	ListAvailableDrivers(ctx context.Context, limit int) ([]models.Driver, error)
	CreateDelivery(ctx context.Context, delivery *models.Delivery) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}
