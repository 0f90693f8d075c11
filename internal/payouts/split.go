package payouts

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Split is the computed escrow breakdown for one released payment.
type Split struct {
	PlatformFee  decimal.Decimal `json:"platform_fee"`
	ShopAmount   decimal.Decimal `json:"shop_amount"`
	DriverAmount decimal.Decimal `json:"driver_amount"`
	Total        decimal.Decimal `json:"total"`
}

// ComputeSplit derives the shop/driver/platform breakdown. The platform keeps
// a commission on the parts subtotal, the shop gets the remainder, and the
// driver gets the delivery fee, or nothing when no driver was assigned. The
// workshop share is always zero; workshop labor is billed separately.
func ComputeSplit(subtotal, deliveryFee, commissionRate decimal.Decimal, hasDriver bool) Split {
	return SplitWithFee(subtotal, deliveryFee, subtotal.Mul(commissionRate).Round(2), hasDriver)
}

// SplitWithFee builds the breakdown from an already-settled platform fee,
// such as the one frozen on the order at placement.
func SplitWithFee(subtotal, deliveryFee, platformFee decimal.Decimal, hasDriver bool) Split {
	shopAmount := subtotal.Sub(platformFee)
	driverAmount := decimal.Zero
	if hasDriver {
		driverAmount = deliveryFee
	}
	return Split{
		PlatformFee:  platformFee,
		ShopAmount:   shopAmount,
		DriverAmount: driverAmount,
		Total:        platformFee.Add(shopAmount).Add(driverAmount),
	}
}

// Verify checks the split against the escrowed amount. The breakdown must
// account for every rial of the payment when a driver carries the delivery
// fee; a mismatch means the order totals were corrupted upstream.
func (s Split) Verify(paymentAmount decimal.Decimal) error {
	if !s.Total.Equal(paymentAmount) {
		return fmt.Errorf("payout split %s does not match payment amount %s", s.Total, paymentAmount)
	}
	return nil
}
