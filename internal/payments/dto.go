package payments

import (
	"github.com/google/uuid"

	"github.com/onlycars/onlycars-backend/pkg/enums"
)

// CreateIntentInput identifies the order to open a payment for.
type CreateIntentInput struct {
	OrderID       uuid.UUID
	CustomerName  string
	CustomerPhone string
}

// Intent is the caller-facing view of a freshly created payment.
type Intent struct {
	PaymentID      uuid.UUID           `json:"payment_id"`
	OrderID        uuid.UUID           `json:"order_id"`
	Method         enums.PaymentMethod `json:"method"`
	Status         enums.PaymentStatus `json:"status"`
	TransactionRef string              `json:"transaction_ref"`
	CheckoutURL    string              `json:"checkout_url,omitempty"`
}
