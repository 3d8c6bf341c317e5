package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	"github.com/angelmondragon/ordering-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, after *pagination.Cursor) ([]models.Order, error)
	// UpdateStatusIf moves status to next only while it is one of from.
	UpdateStatusIf(ctx context.Context, orderID uuid.UUID, from []enums.OrderStatus, next enums.OrderStatus) (int64, error)
	// ApplyPayment performs a monotonic payment transition; zero rows means
	// the order was already past it.
	ApplyPayment(ctx context.Context, orderID uuid.UUID, update PaymentUpdate) (int64, error)
	RecordOrphan(ctx context.Context, orphan *models.OrphanedOrder) error
	ListOrphans(ctx context.Context, limit, maxAttempts int) ([]models.OrphanedOrder, error)
	ResolveOrphan(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordOrphanAttempt(ctx context.Context, id uuid.UUID, cause error) error
}

// PaymentUpdate describes a conditional payment_status transition.
type PaymentUpdate struct {
	To              enums.PaymentStatus
	From            []enums.PaymentStatus
	PaymentIntentID *string
	// StatusFrom/StatusTo optionally move the order status in the same
	// statement, only when the current status equals StatusFrom.
	StatusFrom enums.OrderStatus
	StatusTo   enums.OrderStatus
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartClearer interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}

type orderMetrics interface {
	OrderCreated(paymentMethod string)
}
