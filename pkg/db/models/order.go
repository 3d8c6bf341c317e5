package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ordering-backend/pkg/enums"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

// OrderStripeSessionIndex makes the hosted-session return path idempotent.
const OrderStripeSessionIndex = "idx_orders_stripe_session_id"

// OrderStripeSessionColumn is how sqlite names the same violation.
const OrderStripeSessionColumn = "orders.stripe_session_id"

// Order is a customer's finalized purchase. Invariant: Total = Subtotal + DeliveryFee.
type Order struct {
	ID                    uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID                uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	OrderNumber           string                 `gorm:"column:order_number;not null;uniqueIndex"`
	Status                enums.OrderStatus      `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus         enums.PaymentStatus    `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	OrderType             enums.OrderType        `gorm:"column:order_type;type:text;not null"`
	PaymentMethod         enums.PaymentMethod    `gorm:"column:payment_method;type:text;not null"`
	DeliveryAddress       *types.DeliveryAddress `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	Phone                 *string                `gorm:"column:phone"`
	Notes                 *string                `gorm:"column:notes"`
	CustomerEmail         *string                `gorm:"column:customer_email"`
	Subtotal              decimal.Decimal        `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DeliveryFee           decimal.Decimal        `gorm:"column:delivery_fee;type:numeric(10,2);not null;default:0"`
	Total                 decimal.Decimal        `gorm:"column:total;type:numeric(10,2);not null"`
	StripeSessionID       *string                `gorm:"column:stripe_session_id;uniqueIndex:idx_orders_stripe_session_id"`
	StripePaymentIntentID *string                `gorm:"column:stripe_payment_intent_id;index"`
	Items                 []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one immutable priced line. UnitPrice is the base price; Subtotal
// includes option modifiers times quantity.
type OrderItem struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID             uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID           uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	ProductName         string                `gorm:"column:product_name;not null"`
	Quantity            int                   `gorm:"column:quantity;not null"`
	UnitPrice           decimal.Decimal       `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Subtotal            decimal.Decimal       `gorm:"column:subtotal;type:numeric(10,2);not null"`
	SelectedOptions     types.SelectedOptions `gorm:"column:selected_options;type:jsonb;serializer:json;not null"`
	SpecialInstructions *string               `gorm:"column:special_instructions"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// OrphanedOrder records an order header whose compensating delete failed.
type OrphanedOrder struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Reason     string     `gorm:"column:reason;not null"`
	Attempts   int        `gorm:"column:attempts;not null;default:0"`
	LastError  *string    `gorm:"column:last_error"`
	ResolvedAt *time.Time `gorm:"column:resolved_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
