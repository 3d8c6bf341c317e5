package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordering-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	// Upsert inserts the item, or for option-less items sums quantity into the
	// existing (user, product, instructions) row in a single statement.
	Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, id, userID uuid.UUID, quantity int) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
