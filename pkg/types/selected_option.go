package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SelectedOption is an option choice frozen at the moment it was added to a
// cart. Name and modifier are copies, not references into the catalog.
type SelectedOption struct {
	GroupID       uuid.UUID       `json:"group_id" validate:"required"`
	GroupName     string          `json:"group_name"`
	OptionID      uuid.UUID       `json:"option_id" validate:"required"`
	OptionName    string          `json:"option_name"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

// SelectedOptions is the jsonb column type for cart and order items.
type SelectedOptions []SelectedOption

// Names returns option names in selection order.
func (s SelectedOptions) Names() []string {
	names := make([]string, 0, len(s))
	for _, opt := range s {
		names = append(names, opt.OptionName)
	}
	return names
}

// OptionIDs returns the chosen option ids.
func (s SelectedOptions) OptionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for _, opt := range s {
		ids = append(ids, opt.OptionID)
	}
	return ids
}
