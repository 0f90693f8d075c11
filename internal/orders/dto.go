package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onlycars/onlycars-backend/pkg/db/models"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	"github.com/onlycars/onlycars-backend/pkg/types"
)

// ItemInput is one requested part line on a new order.
type ItemInput struct {
	PartID   uuid.UUID
	Quantity int
}

// PlaceOrderInput carries everything needed to create an order.
type PlaceOrderInput struct {
	ConsumerID      uuid.UUID
	ShopID          uuid.UUID
	WorkshopID      *uuid.UUID
	Items           []ItemInput
	PaymentMethod   enums.PaymentMethod
	DeliveryAddress *types.Address
	Notes           *string
}

// TransitionInput captures a requested lifecycle change.
type TransitionInput struct {
	OrderID   uuid.UUID
	Target    enums.OrderStatus
	ActorID   uuid.UUID
	ActorRole enums.UserRole
	Note      *string
}

// OrderList is one page of a consumer's orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// Totals is the computed money breakdown for a new order.
type Totals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}
