package payouts

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(value string) decimal.Decimal {
	out, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return out
}

func TestComputeSplitStandardOrder(t *testing.T) {
	t.Parallel()

	split := ComputeSplit(d("100"), d("25"), d("0.15"), true)
	if !split.PlatformFee.Equal(d("15")) {
		t.Fatalf("expected platform fee 15, got %s", split.PlatformFee)
	}
	if !split.ShopAmount.Equal(d("85")) {
		t.Fatalf("expected shop amount 85, got %s", split.ShopAmount)
	}
	if !split.DriverAmount.Equal(d("25")) {
		t.Fatalf("expected driver amount 25, got %s", split.DriverAmount)
	}
	if err := split.Verify(d("125")); err != nil {
		t.Fatalf("split must cover the full payment: %v", err)
	}
}

func TestComputeSplitRoundsCommission(t *testing.T) {
	t.Parallel()

	split := ComputeSplit(d("99.99"), d("25"), d("0.15"), true)
	if !split.PlatformFee.Equal(d("15.00")) {
		t.Fatalf("expected rounded fee 15.00, got %s", split.PlatformFee)
	}
	if !split.ShopAmount.Equal(d("84.99")) {
		t.Fatalf("expected shop amount 84.99, got %s", split.ShopAmount)
	}
	// Fee + shop always reassembles the subtotal exactly, whatever the
	// rounding direction was.
	if !split.PlatformFee.Add(split.ShopAmount).Equal(d("99.99")) {
		t.Fatal("fee and shop amount must sum to the subtotal")
	}
	if err := split.Verify(d("124.99")); err != nil {
		t.Fatalf("split must cover the full payment: %v", err)
	}
}

func TestComputeSplitWithoutDriver(t *testing.T) {
	t.Parallel()

	split := ComputeSplit(d("100"), d("25"), d("0.15"), false)
	if !split.DriverAmount.IsZero() {
		t.Fatalf("expected zero driver amount, got %s", split.DriverAmount)
	}
	if !split.Total.Equal(d("100")) {
		t.Fatalf("expected total 100 without delivery share, got %s", split.Total)
	}
}

func TestVerifyMismatch(t *testing.T) {
	t.Parallel()

	split := ComputeSplit(d("100"), d("25"), d("0.15"), true)
	if err := split.Verify(d("999")); err == nil {
		t.Fatal("expected verification failure for mismatched amount")
	}
}
