package types

import (
	"fmt"
	"strings"
)

// Address is the delivery destination captured on an order. Stored as jsonb.
type Address struct {
	Line1    string  `json:"line1"`
	Line2    *string `json:"line2,omitempty"`
	Area     string  `json:"area,omitempty"`
	City     string  `json:"city"`
	Zone     string  `json:"zone,omitempty"`
	Building string  `json:"building,omitempty"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Validate checks the minimum deliverable fields.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	return nil
}
