package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ordering-backend/pkg/enums"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

// CreateSessionInput is the customer's checkout form. Line items always come
// from the server-side cart.
type CreateSessionInput struct {
	UserID          uuid.UUID
	Email           string
	EmailVerified   bool
	OrderType       enums.OrderType
	DeliveryAddress *types.DeliveryAddress
	Phone           string
	Notes           string
	// IdempotencyKey is forwarded to the payment provider when set.
	IdempotencyKey string
}

// SessionResult is what the client needs to redirect to the hosted page.
type SessionResult struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"url"`
}

// ProcessResult is returned once a paid session has become an order.
type ProcessResult struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Total       decimal.Decimal `json:"total"`
}

// URLs are the absolute return URLs of the hosted payment page.
type URLs struct {
	Success string
	Cancel  string
}
