package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	"github.com/onlycars/onlycars-backend/pkg/pagination"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindParts(ctx context.Context, partIDs []uuid.UUID) ([]models.Part, error)
	ListConsumerOrders(ctx context.Context, consumerID uuid.UUID, params pagination.Params) (*OrderList, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateOrderStatusIf(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	InsertStatusHistory(ctx context.Context, row *models.OrderStatusHistory) error
	CountStatusHistory(ctx context.Context, orderID uuid.UUID) (int64, error)
	FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
	UpdatePaymentStatusIf(ctx context.Context, paymentID uuid.UUID, from, to enums.PaymentStatus, updates map[string]any) (bool, error)
	FindDeliveryByOrder(ctx context.Context, orderID uuid.UUID) (*models.Delivery, error)
	UpdateDelivery(ctx context.Context, deliveryID uuid.UUID, updates map[string]any) error
}
