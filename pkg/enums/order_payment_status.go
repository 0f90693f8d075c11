package enums

import "fmt"

// OrderPaymentStatus is the payment state surfaced on the order itself.
// It carries provider nuance (expired, cancelled) the coarse ledger
// status does not need.
type OrderPaymentStatus string

const (
	OrderPaymentStatusPending      OrderPaymentStatus = "pending"
	OrderPaymentStatusProcessing   OrderPaymentStatus = "processing"
	OrderPaymentStatusHeldInEscrow OrderPaymentStatus = "held_in_escrow"
	OrderPaymentStatusCompleted    OrderPaymentStatus = "completed"
	OrderPaymentStatusFailed       OrderPaymentStatus = "failed"
	OrderPaymentStatusExpired      OrderPaymentStatus = "expired"
	OrderPaymentStatusCancelled    OrderPaymentStatus = "cancelled"
	OrderPaymentStatusReleased     OrderPaymentStatus = "released"
)

var validOrderPaymentStatuses = []OrderPaymentStatus{
	OrderPaymentStatusPending,
	OrderPaymentStatusProcessing,
	OrderPaymentStatusHeldInEscrow,
	OrderPaymentStatusCompleted,
	OrderPaymentStatusFailed,
	OrderPaymentStatusExpired,
	OrderPaymentStatusCancelled,
	OrderPaymentStatusReleased,
}

// String implements fmt.Stringer.
func (o OrderPaymentStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderPaymentStatus.
func (o OrderPaymentStatus) IsValid() bool {
	for _, candidate := range validOrderPaymentStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderPaymentStatus converts raw input into an OrderPaymentStatus.
func ParseOrderPaymentStatus(value string) (OrderPaymentStatus, error) {
	for _, candidate := range validOrderPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order payment status %q", value)
}
