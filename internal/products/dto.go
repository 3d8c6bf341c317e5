package product

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ordering-backend/pkg/db/models"
)

// Selection is a client's pick of one option. Names and prices are never
// taken from the client; they are re-read from the catalog.
type Selection struct {
	GroupID  uuid.UUID `json:"group_id"`
	OptionID uuid.UUID `json:"option_id" validate:"required"`
}

// OptionGroupDTO is the wire shape of GET /products/{productId}/options.
type OptionGroupDTO struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	IsRequired    bool        `json:"is_required"`
	MinSelections int         `json:"min_selections"`
	MaxSelections int         `json:"max_selections"`
	Options       []OptionDTO `json:"options"`
}

type OptionDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
	IsDefault     bool            `json:"is_default"`
}

// ProductOptionsDTO pairs a product with its customization axes.
type ProductOptionsDTO struct {
	ProductID    uuid.UUID        `json:"product_id"`
	Name         string           `json:"name"`
	Price        decimal.Decimal  `json:"price"`
	OptionGroups []OptionGroupDTO `json:"option_groups"`
}

func toProductOptionsDTO(p *models.Product) ProductOptionsDTO {
	out := ProductOptionsDTO{
		ProductID:    p.ID,
		Name:         p.Name,
		Price:        p.Price,
		OptionGroups: make([]OptionGroupDTO, 0, len(p.OptionGroups)),
	}
	for _, g := range p.OptionGroups {
		group := OptionGroupDTO{
			ID:            g.ID,
			Name:          g.Name,
			IsRequired:    g.IsRequired,
			MinSelections: g.MinSelections,
			MaxSelections: g.MaxSelections,
			Options:       make([]OptionDTO, 0, len(g.Options)),
		}
		for _, o := range g.Options {
			group.Options = append(group.Options, OptionDTO{
				ID:            o.ID,
				Name:          o.Name,
				PriceModifier: o.PriceModifier,
				IsDefault:     o.IsDefault,
			})
		}
		out.OptionGroups = append(out.OptionGroups, group)
	}
	return out
}
