package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordering-backend/pkg/db"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
)

// Repository reads catalog rows. The ordering core never writes them.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindWithOptions loads the product with option groups and options, both in
// sort_order.
func (r *Repository) FindWithOptions(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("OptionGroups", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sort_order ASC").Order("name ASC")
		}).
		Preload("OptionGroups.Options", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sort_order ASC").Order("name ASC")
		}).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product options "+id.String())
	}
	return &product, nil
}

// FindByIDs returns the products keyed by id; missing ids are simply absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}
