package enums

// Currency is the ISO currency code attached to payments. The platform
// settles in Qatari Riyal only.
type Currency string

const (
	CurrencyQAR Currency = "QAR"
)

// IsValid reports whether the value is a supported currency.
func (c Currency) IsValid() bool {
	return c == CurrencyQAR
}
