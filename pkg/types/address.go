package types

import "strings"

// DeliveryAddress is stored as jsonb on orders and echoed through payment metadata.
type DeliveryAddress struct {
	Line1    string  `json:"line1" validate:"required,max=200"`
	Line2    *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City     string  `json:"city" validate:"required,max=100"`
	Postcode string  `json:"postcode" validate:"required,max=16"`
}

// Normalize trims whitespace and upper-cases the postcode.
func (a DeliveryAddress) Normalize() DeliveryAddress {
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.Postcode = strings.ToUpper(strings.TrimSpace(a.Postcode))
	if a.Line2 != nil {
		trimmed := strings.TrimSpace(*a.Line2)
		if trimmed == "" {
			a.Line2 = nil
		} else {
			a.Line2 = &trimmed
		}
	}
	return a
}

// OneLine renders the address for payment descriptions and emails.
func (a DeliveryAddress) OneLine() string {
	parts := []string{a.Line1}
	if a.Line2 != nil {
		parts = append(parts, *a.Line2)
	}
	parts = append(parts, a.City, a.Postcode)
	return strings.Join(parts, ", ")
}
