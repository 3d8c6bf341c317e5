package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ordering-backend/internal/cart"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

// LineInput is one priced line to materialize. Product name and base price
// are snapshots taken from the catalog when the cart was read.
type LineInput struct {
	ProductID           uuid.UUID
	ProductName         string
	BasePrice           decimal.Decimal
	Quantity            int
	SelectedOptions     types.SelectedOptions
	SpecialInstructions string
}

// CreateOrderInput is everything needed to turn a cart into an order.
type CreateOrderInput struct {
	UserID                uuid.UUID
	Items                 []LineInput
	OrderType             enums.OrderType
	DeliveryAddress       *types.DeliveryAddress
	Phone                 *string
	Notes                 *string
	PaymentMethod         enums.PaymentMethod
	PaymentStatus         enums.PaymentStatus
	StripeSessionID       *string
	StripePaymentIntentID *string
	CustomerEmail         *string
}

// OrderResult is returned from CreateOrder.
type OrderResult struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	Total         decimal.Decimal     `json:"total"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	// Existing is set when the order was already materialized for the session.
	Existing bool `json:"-"`
}

type OrderItemDTO struct {
	ID                  uuid.UUID             `json:"id"`
	ProductID           uuid.UUID             `json:"product_id"`
	ProductName         string                `json:"product_name"`
	Quantity            int                   `json:"quantity"`
	UnitPrice           decimal.Decimal       `json:"unit_price"`
	Subtotal            decimal.Decimal       `json:"subtotal"`
	SelectedOptions     types.SelectedOptions `json:"selected_options"`
	SpecialInstructions *string               `json:"special_instructions,omitempty"`
}

type OrderDTO struct {
	ID              uuid.UUID              `json:"id"`
	OrderNumber     string                 `json:"order_number"`
	Status          enums.OrderStatus      `json:"status"`
	PaymentStatus   enums.PaymentStatus    `json:"payment_status"`
	OrderType       enums.OrderType        `json:"order_type"`
	PaymentMethod   enums.PaymentMethod    `json:"payment_method"`
	DeliveryAddress *types.DeliveryAddress `json:"delivery_address,omitempty"`
	Phone           *string                `json:"phone,omitempty"`
	Notes           *string                `json:"notes,omitempty"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	DeliveryFee     decimal.Decimal        `json:"delivery_fee"`
	Total           decimal.Decimal        `json:"total"`
	Items           []OrderItemDTO         `json:"items"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// OrderPage is one page of order history. NextCursor is empty on the last page.
type OrderPage struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToDTO maps an order row (with items preloaded) to its wire shape.
func ToDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		OrderType:       order.OrderType,
		PaymentMethod:   order.PaymentMethod,
		DeliveryAddress: order.DeliveryAddress,
		Phone:           order.Phone,
		Notes:           order.Notes,
		Subtotal:        order.Subtotal,
		DeliveryFee:     order.DeliveryFee,
		Total:           order.Total,
		Items:           make([]OrderItemDTO, 0, len(order.Items)),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:                  item.ID,
			ProductID:           item.ProductID,
			ProductName:         item.ProductName,
			Quantity:            item.Quantity,
			UnitPrice:           item.UnitPrice,
			Subtotal:            item.Subtotal,
			SelectedOptions:     item.SelectedOptions,
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	return dto
}

// EventPayload builds the outbox payload shared by every order event.
func EventPayload(order models.Order, source string, previous *enums.OrderStatus) payloads.OrderEvent {
	return payloads.OrderEvent{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		CustomerEmail:  order.CustomerEmail,
		OrderType:      order.OrderType,
		Status:         order.Status,
		PreviousStatus: previous,
		PaymentStatus:  order.PaymentStatus,
		Total:          order.Total,
		Source:         source,
	}
}

// LinesFromCart turns cart lines into order lines, rejecting any product no
// longer orderable on the requested channel.
func LinesFromCart(items []cart.CartItemView, orderType enums.OrderType) ([]LineInput, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Cart is empty")
	}
	lines := make([]LineInput, 0, len(items))
	for _, item := range items {
		if !item.IsAvailable {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is currently unavailable", item.ProductName)
		}
		if orderType == enums.OrderTypeDelivery && !item.DeliveryAvailable {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is not available for delivery", item.ProductName)
		}
		if orderType == enums.OrderTypePickup && !item.PickupAvailable {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is not available for pickup", item.ProductName)
		}
		lines = append(lines, LineInput{
			ProductID:           item.ProductID,
			ProductName:         item.ProductName,
			BasePrice:           item.BasePrice,
			Quantity:            item.Quantity,
			SelectedOptions:     item.SelectedOptions,
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	return lines, nil
}
