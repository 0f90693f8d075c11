package sadad

import (
	"strings"

	"github.com/onlycars/onlycars-backend/pkg/enums"
)

// StatusMapping is the internal pair a provider status resolves to. The
// order-level status can carry provider nuance (expired, cancelled) that the
// payment ledger itself does not track.
type StatusMapping struct {
	Payment enums.PaymentStatus
	Order   enums.OrderPaymentStatus
}

// providerStatusTable maps Sadad's vocabulary to internal statuses. Built
// once, read-only afterwards.
var providerStatusTable = map[string]StatusMapping{
	"paid":      {Payment: enums.PaymentStatusHeldInEscrow, Order: enums.OrderPaymentStatusHeldInEscrow},
	"captured":  {Payment: enums.PaymentStatusHeldInEscrow, Order: enums.OrderPaymentStatusHeldInEscrow},
	"success":   {Payment: enums.PaymentStatusHeldInEscrow, Order: enums.OrderPaymentStatusHeldInEscrow},
	"failed":    {Payment: enums.PaymentStatusFailed, Order: enums.OrderPaymentStatusFailed},
	"declined":  {Payment: enums.PaymentStatusFailed, Order: enums.OrderPaymentStatusFailed},
	"expired":   {Payment: enums.PaymentStatusFailed, Order: enums.OrderPaymentStatusExpired},
	"cancelled": {Payment: enums.PaymentStatusFailed, Order: enums.OrderPaymentStatusCancelled},
	"canceled":  {Payment: enums.PaymentStatusFailed, Order: enums.OrderPaymentStatusCancelled},
}

// MapProviderStatus is total: anything unrecognized resolves to processing
// rather than being guessed at as a success or failure.
func MapProviderStatus(provider string) StatusMapping {
	if mapping, ok := providerStatusTable[strings.ToLower(strings.TrimSpace(provider))]; ok {
		return mapping
	}
	return StatusMapping{
		Payment: enums.PaymentStatusProcessing,
		Order:   enums.OrderPaymentStatusProcessing,
	}
}
