package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. The ordering core only reads it.
type Product struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID        *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	Name              string          `gorm:"column:name;not null"`
	Description       *string         `gorm:"column:description"`
	Price             decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	ImageURL          *string         `gorm:"column:image_url"`
	IsPopular         bool            `gorm:"column:is_popular;not null;default:false"`
	IsAvailable       bool            `gorm:"column:is_available;not null;default:true"`
	DeliveryAvailable bool            `gorm:"column:delivery_available;not null;default:true"`
	PickupAvailable   bool            `gorm:"column:pickup_available;not null;default:true"`
	OptionGroups      []OptionGroup   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// OptionGroup is a customization axis on a product, e.g. "Sauce".
type OptionGroup struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Name          string    `gorm:"column:name;not null"`
	IsRequired    bool      `gorm:"column:is_required;not null;default:false"`
	MinSelections int       `gorm:"column:min_selections;not null;default:0"`
	MaxSelections int       `gorm:"column:max_selections;not null;default:1"`
	SortOrder     int       `gorm:"column:sort_order;not null;default:0"`
	Options       []Option  `gorm:"foreignKey:OptionGroupID;constraint:OnDelete:CASCADE"`
}

func (OptionGroup) TableName() string { return "product_option_groups" }

// Validate checks min <= max, max >= 1 and required => min >= 1.
func (g OptionGroup) Validate() error {
	switch {
	case g.MaxSelections < 1:
		return fmt.Errorf("option group %s: max_selections must be >= 1", g.Name)
	case g.MinSelections < 0 || g.MinSelections > g.MaxSelections:
		return fmt.Errorf("option group %s: min_selections must be between 0 and max_selections", g.Name)
	case g.IsRequired && g.MinSelections < 1:
		return fmt.Errorf("option group %s: required groups need min_selections >= 1", g.Name)
	}
	return nil
}

// Option is one selectable value of a group.
type Option struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OptionGroupID uuid.UUID       `gorm:"column:option_group_id;type:uuid;not null;index"`
	Name          string          `gorm:"column:name;not null"`
	PriceModifier decimal.Decimal `gorm:"column:price_modifier;type:numeric(10,2);not null;default:0"`
	IsDefault     bool            `gorm:"column:is_default;not null;default:false"`
	SortOrder     int             `gorm:"column:sort_order;not null;default:0"`
}

func (Option) TableName() string { return "product_options" }
