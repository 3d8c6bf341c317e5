package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	product "github.com/angelmondragon/ordering-backend/internal/products"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/pricing"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

const maxInstructionsLength = 500

// AddItemInput is one requested cart line. Anonymous cart lines are merged
// through the same type.
type AddItemInput struct {
	ProductID           uuid.UUID           `json:"product_id" validate:"required"`
	Quantity            int                 `json:"quantity" validate:"required,min=1"`
	Selections          []product.Selection `json:"selected_options" validate:"omitempty,dive"`
	SpecialInstructions string              `json:"special_instructions" validate:"max=500"`
}

// CartItemView is a cart line joined with the current product snapshot.
type CartItemView struct {
	ID                  uuid.UUID             `json:"id"`
	ProductID           uuid.UUID             `json:"product_id"`
	ProductName         string                `json:"product_name"`
	ImageURL            *string               `json:"image_url,omitempty"`
	BasePrice           decimal.Decimal       `json:"base_price"`
	Quantity            int                   `json:"quantity"`
	SelectedOptions     types.SelectedOptions `json:"selected_options"`
	SpecialInstructions string                `json:"special_instructions,omitempty"`
	UnitPrice           decimal.Decimal       `json:"unit_price"`
	LineTotal           decimal.Decimal       `json:"line_total"`
	IsAvailable         bool                  `json:"is_available"`
	DeliveryAvailable   bool                  `json:"delivery_available"`
	PickupAvailable     bool                  `json:"pickup_available"`
}

// SkippedItem reports an anonymous line that could not be merged.
type SkippedItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Reason    string    `json:"reason"`
}

// CartView is the full cart with its subtotal.
type CartView struct {
	Items     []CartItemView  `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
	Skipped   []SkippedItem   `json:"skipped,omitempty"`
}

// PricingLine returns the line in the shape the pricing engine consumes.
func (v CartItemView) PricingLine() pricing.Line {
	return pricing.Line{BasePrice: v.BasePrice, Options: v.SelectedOptions, Quantity: v.Quantity}
}

func toCartItemView(item models.CartItem) CartItemView {
	view := CartItemView{
		ID:                  item.ID,
		ProductID:           item.ProductID,
		Quantity:            item.Quantity,
		SelectedOptions:     item.SelectedOptions,
		SpecialInstructions: item.SpecialInstructions,
	}
	if view.SelectedOptions == nil {
		view.SelectedOptions = types.SelectedOptions{}
	}
	if item.Product != nil {
		view.ProductName = item.Product.Name
		view.ImageURL = item.Product.ImageURL
		view.BasePrice = item.Product.Price
		view.IsAvailable = item.Product.IsAvailable
		view.DeliveryAvailable = item.Product.DeliveryAvailable
		view.PickupAvailable = item.Product.PickupAvailable
	}
	view.UnitPrice = pricing.UnitPrice(view.BasePrice, view.SelectedOptions)
	view.LineTotal = pricing.LineTotal(view.BasePrice, view.SelectedOptions, view.Quantity)
	return view
}

func toCartView(items []models.CartItem) *CartView {
	view := &CartView{Items: make([]CartItemView, 0, len(items)), Subtotal: decimal.Zero}
	for _, item := range items {
		line := toCartItemView(item)
		view.Items = append(view.Items, line)
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
		view.ItemCount += line.Quantity
	}
	return view
}
