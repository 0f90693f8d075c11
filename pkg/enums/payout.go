package enums

import "fmt"

// PayoutStatus maps to the payout_status enum in Postgres.
type PayoutStatus string

const (
	PayoutStatusPending       PayoutStatus = "pending"
	PayoutStatusNotApplicable PayoutStatus = "not_applicable"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusPending,
	PayoutStatusNotApplicable,
}

// IsValid reports whether the value is a known PayoutStatus.
func (p PayoutStatus) IsValid() bool {
	for _, candidate := range validPayoutStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// RecipientType identifies who a payout share belongs to.
type RecipientType string

const (
	RecipientTypeShop     RecipientType = "shop"
	RecipientTypeDriver   RecipientType = "driver"
	RecipientTypeWorkshop RecipientType = "workshop"
)

var validRecipientTypes = []RecipientType{
	RecipientTypeShop,
	RecipientTypeDriver,
	RecipientTypeWorkshop,
}

// IsValid reports whether the value is a known RecipientType.
func (r RecipientType) IsValid() bool {
	for _, candidate := range validRecipientTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRecipientType converts raw input into a RecipientType.
func ParseRecipientType(value string) (RecipientType, error) {
	for _, candidate := range validRecipientTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recipient type %q", value)
}
