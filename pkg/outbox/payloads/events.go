package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onlycars/onlycars-backend/pkg/enums"
)

// OrderCreatedEvent signals a newly placed order with stock reserved.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	ConsumerID    uuid.UUID           `json:"consumer_id"`
	ShopID        uuid.UUID           `json:"shop_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
	Currency      enums.Currency      `json:"currency"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	ConsumerID uuid.UUID         `json:"consumer_id"`
	ShopID     uuid.UUID         `json:"shop_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	ActorRole  string            `json:"actor_role"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// OrderConfirmedEvent is emitted when a paid order moves to confirmed.
type OrderConfirmedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	ConsumerID uuid.UUID `json:"consumer_id"`
	ShopID     uuid.UUID `json:"shop_id"`
}

// PaymentSucceededEvent is emitted when gateway funds land in escrow or a
// cash order is accepted.
type PaymentSucceededEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	PaymentID      uuid.UUID           `json:"payment_id"`
	ConsumerID     uuid.UUID           `json:"consumer_id"`
	Method         enums.PaymentMethod `json:"method"`
	Amount         decimal.Decimal     `json:"amount"`
	Currency       enums.Currency      `json:"currency"`
	TransactionRef string              `json:"transaction_ref"`
}

// PaymentFailedEvent is emitted when the gateway reports a terminal failure.
type PaymentFailedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	PaymentID      uuid.UUID `json:"payment_id"`
	ConsumerID     uuid.UUID `json:"consumer_id"`
	ProviderStatus string    `json:"provider_status"`
	Reason         string    `json:"reason,omitempty"`
}

// PayoutReleasedEvent carries the escrow split after order completion.
type PayoutReleasedEvent struct {
	OrderID      uuid.UUID       `json:"order_id"`
	PaymentID    uuid.UUID       `json:"payment_id"`
	ShopID       uuid.UUID       `json:"shop_id"`
	DriverID     *uuid.UUID      `json:"driver_id,omitempty"`
	DriverUserID *uuid.UUID      `json:"driver_user_id,omitempty"`
	PlatformFee  decimal.Decimal `json:"platform_fee"`
	ShopAmount   decimal.Decimal `json:"shop_amount"`
	DriverAmount decimal.Decimal `json:"driver_amount"`
	Currency     enums.Currency  `json:"currency"`
	ReleasedAt   time.Time       `json:"released_at"`
}

// DeliveryAssignedEvent is emitted when dispatch attaches a driver.
type DeliveryAssignedEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	DeliveryID   uuid.UUID `json:"delivery_id"`
	DriverID     uuid.UUID `json:"driver_id"`
	DriverUserID uuid.UUID `json:"driver_user_id"`
	ShopID       uuid.UUID `json:"shop_id"`
	AssignedAt   time.Time `json:"assigned_at"`
}
