package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onlycars/onlycars-backend/pkg/enums"
	"github.com/onlycars/onlycars-backend/pkg/types"
)

// Order is the root aggregate for a parts purchase: one consumer, one shop,
// optionally one driver once dispatch assigns the delivery.
type Order struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConsumerID      uuid.UUID                `gorm:"column:consumer_id;type:uuid;not null"`
	ShopID          uuid.UUID                `gorm:"column:shop_id;type:uuid;not null"`
	DriverID        *uuid.UUID               `gorm:"column:driver_id;type:uuid"`
	WorkshopID      *uuid.UUID               `gorm:"column:workshop_id;type:uuid"`
	Status          enums.OrderStatus        `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus   enums.OrderPaymentStatus `gorm:"column:payment_status;type:order_payment_status;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod      `gorm:"column:payment_method;type:payment_method;not null"`
	Currency        enums.Currency           `gorm:"column:currency;type:text;not null;default:'QAR'"`
	Subtotal        decimal.Decimal          `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee     decimal.Decimal          `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	PlatformFee     decimal.Decimal          `gorm:"column:platform_fee;type:numeric(12,2);not null;default:0"`
	Total           decimal.Decimal          `gorm:"column:total;type:numeric(12,2);not null"`
	DeliveryAddress *types.Address           `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	Notes           *string                  `gorm:"column:notes"`
	Items           []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment         *Payment                 `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Delivery        *Delivery                `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory   []OrderStatusHistory     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CancelledAt     *time.Time               `gorm:"column:cancelled_at"`
	DeliveredAt     *time.Time               `gorm:"column:delivered_at"`
	CompletedAt     *time.Time               `gorm:"column:completed_at"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
