package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordering-backend/pkg/db"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/pagination"
)

const maxOrphanError = 1024

type repository struct {
	db *gorm.DB
}

// NewRepository binds the orders repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	// sqlite ignores ON DELETE CASCADE unless foreign keys are on.
	if err := conn.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return conn.Where("id = ?", orderID).Delete(&models.Order{}).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", orderID)
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	return r.findOne(ctx, "stripe_session_id = ?", sessionID)
}

func (r *repository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	return r.findOne(ctx, "stripe_payment_intent_id = ?", paymentIntentID)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC").Order("id ASC") }).
		Where(query, arg).
		First(&order).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

// ListByUser returns the user's orders newest first, starting strictly after
// the cursor when one is given.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, after *pagination.Cursor) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID)
	if after != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (r *repository) UpdateStatusIf(ctx context.Context, orderID uuid.UUID, from []enums.OrderStatus, next enums.OrderStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, from).
		Updates(map[string]any{"status": next, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update order status "+orderID.String())
	}
	return res.RowsAffected, nil
}

func (r *repository) ApplyPayment(ctx context.Context, orderID uuid.UUID, update PaymentUpdate) (int64, error) {
	if len(update.From) == 0 {
		return 0, nil
	}
	values := map[string]any{
		"payment_status": update.To,
		"updated_at":     time.Now().UTC(),
	}
	if update.PaymentIntentID != nil && *update.PaymentIntentID != "" {
		values["stripe_payment_intent_id"] = *update.PaymentIntentID
	}
	if update.StatusFrom != "" && update.StatusTo != "" {
		values["status"] = gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", update.StatusFrom, update.StatusTo)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status IN ?", orderID, update.From).
		Updates(values)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update payment status "+orderID.String())
	}
	return res.RowsAffected, nil
}

func (r *repository) RecordOrphan(ctx context.Context, orphan *models.OrphanedOrder) error {
	orphan.LastError = truncate(orphan.LastError)
	return r.db.WithContext(ctx).Create(orphan).Error
}

func (r *repository) ListOrphans(ctx context.Context, limit, maxAttempts int) ([]models.OrphanedOrder, error) {
	var rows []models.OrphanedOrder
	q := r.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("created_at ASC").
		Limit(limit)
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orphaned orders")
	}
	return rows, nil
}

func (r *repository) ResolveOrphan(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrphanedOrder{}).
		Where("id = ?", id).
		Updates(map[string]any{"resolved_at": at, "updated_at": at}).Error
}

func (r *repository) RecordOrphanAttempt(ctx context.Context, id uuid.UUID, cause error) error {
	values := map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"updated_at": time.Now().UTC(),
	}
	if cause != nil {
		msg := cause.Error()
		values["last_error"] = truncate(&msg)
	}
	return r.db.WithContext(ctx).
		Model(&models.OrphanedOrder{}).
		Where("id = ?", id).
		Updates(values).Error
}

func truncate(msg *string) *string {
	if msg == nil || len(*msg) <= maxOrphanError {
		return msg
	}
	cut := (*msg)[:maxOrphanError]
	return &cut
}
