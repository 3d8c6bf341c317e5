package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ordering-backend/pkg/types"
)

// CartItemMergeIndex backs the atomic quantity upsert for option-less items.
const CartItemMergeIndex = "idx_cart_items_merge"

// CartItem is a pending selection owned by one user.
//
// Rows with options never merge; rows without options are unique per
// (user, product, instructions) and merge by summing quantity.
type CartItem struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID              uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:idx_cart_items_merge,where:has_options = false"`
	ProductID           uuid.UUID             `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_items_merge"`
	Quantity            int                   `gorm:"column:quantity;not null"`
	SelectedOptions     types.SelectedOptions `gorm:"column:selected_options;type:jsonb;serializer:json;not null"`
	HasOptions          bool                  `gorm:"column:has_options;not null;default:false"`
	SpecialInstructions string                `gorm:"column:special_instructions;not null;default:'';uniqueIndex:idx_cart_items_merge"`
	Product             *Product              `gorm:"foreignKey:ProductID;references:ID"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
