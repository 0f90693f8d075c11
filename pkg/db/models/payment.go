package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onlycars/onlycars-backend/pkg/enums"
	"github.com/onlycars/onlycars-backend/pkg/types"
)

// Payment is the single payment record backing an order. TransactionRef holds
// the gateway invoice reference, or a synthetic reference for cash orders.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uniq_payments_order_id"`
	Method           enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         enums.Currency      `gorm:"column:currency;type:text;not null;default:'QAR'"`
	TransactionRef   string              `gorm:"column:transaction_ref;type:text;not null"`
	InvoiceID        *string             `gorm:"column:invoice_id;type:text"`
	ProviderStatus   *string             `gorm:"column:provider_status;type:text"`
	ProviderResponse types.JSONMap       `gorm:"column:provider_response;type:jsonb"`
	FailureReason    *string             `gorm:"column:failure_reason;type:text"`
	EscrowedAt       *time.Time          `gorm:"column:escrowed_at"`
	ReleasedAt       *time.Time          `gorm:"column:released_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
