package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/sadad"
)

// Repository defines persistence operations for the payment ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
}

// InvoiceGateway is the slice of the Sadad client the ledger needs.
type InvoiceGateway interface {
	CreateInvoice(ctx context.Context, params sadad.InvoiceCreateParams) (*sadad.Invoice, error)
}
