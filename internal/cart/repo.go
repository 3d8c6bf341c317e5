package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/ordering-backend/pkg/db"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds the cart repository to the provided DB handle.
func NewRepository(db *gorm.DB) CartRepository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

var mergeConflict = clause.OnConflict{
	Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "special_instructions"}},
	TargetWhere: clause.Where{Exprs: []clause.Expression{
		clause.Expr{SQL: "has_options = false"},
	}},
}

func (r *repository) Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if item.SelectedOptions == nil {
		item.SelectedOptions = types.SelectedOptions{}
	}
	item.HasOptions = len(item.SelectedOptions) > 0
	conn := r.db.WithContext(ctx)

	if item.HasOptions {
		if err := conn.Create(item).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart item")
		}
		return r.FindByIDAndUser(ctx, item.ID, item.UserID)
	}

	onConflict := mergeConflict
	onConflict.DoUpdates = clause.Assignments(map[string]any{
		"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
		"updated_at": time.Now().UTC(),
	})
	if err := conn.Clauses(onConflict).Create(item).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart item")
	}

	// The row id may belong to an earlier insert, so read it back by key.
	var stored models.CartItem
	err := conn.Preload("Product").
		Where("user_id = ? AND product_id = ? AND special_instructions = ? AND has_options = ?",
			item.UserID, item.ProductID, item.SpecialInstructions, false).
		First(&stored).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart item")
	}
	return &stored, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return items, nil
}

func (r *repository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ? AND user_id = ?", id, userID).
		First(&item).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item "+id.String())
	}
	return &item, nil
}

func (r *repository) UpdateQuantity(ctx context.Context, id, userID uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update cart item "+id.String())
	}
	return res.RowsAffected, nil
}

func (r *repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item "+id.String())
	}
	return nil
}

func (r *repository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
