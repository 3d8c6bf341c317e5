package settings

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/ordering-backend/pkg/db"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Load reads the singleton row. A missing row yields the column defaults.
func (r *Repository) Load(ctx context.Context) (models.RestaurantSettings, error) {
	var row models.RestaurantSettings
	err := r.db.WithContext(ctx).Where("id = ?", models.SettingsRowID).First(&row).Error
	if err != nil {
		if db.IsNotFound(err) {
			return Defaults(), nil
		}
		return models.RestaurantSettings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load restaurant settings")
	}
	return row, nil
}

// Defaults mirrors the column defaults of restaurant_settings.
func Defaults() models.RestaurantSettings {
	return models.RestaurantSettings{
		ID:                        models.SettingsRowID,
		AllowOrderCancellation:    true,
		EmailNotificationsEnabled: true,
		EnableDelivery:            true,
		EnablePickup:              true,
	}
}
