package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ordering-backend/pkg/enums"
)

// OrderEvent is the shared payload of every order lifecycle event. Consumers
// load line items from the order itself.
type OrderEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	OrderNumber    string              `json:"order_number"`
	UserID         uuid.UUID           `json:"user_id"`
	CustomerEmail  *string             `json:"customer_email,omitempty"`
	OrderType      enums.OrderType     `json:"order_type"`
	Status         enums.OrderStatus   `json:"status"`
	PreviousStatus *enums.OrderStatus  `json:"previous_status,omitempty"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	Total          decimal.Decimal     `json:"total"`
	// Source names the trigger, e.g. "checkout.session.expired" or "admin".
	Source string `json:"source,omitempty"`
}
