package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettingsRowID is the id of the singleton settings row.
const SettingsRowID = 1

// RestaurantSettings holds the toggles the ordering core consumes.
type RestaurantSettings struct {
	ID                        int             `gorm:"column:id;primaryKey"`
	RestaurantName            string          `gorm:"column:restaurant_name;not null;default:''"`
	AllowOrderCancellation    bool            `gorm:"column:allow_order_cancellation;not null;default:true"`
	EmailNotificationsEnabled bool            `gorm:"column:email_notifications_enabled;not null;default:true"`
	EmailVerificationRequired bool            `gorm:"column:email_verification_required;not null;default:false"`
	EnableDelivery            bool            `gorm:"column:enable_delivery;not null;default:true"`
	EnablePickup              bool            `gorm:"column:enable_pickup;not null;default:true"`
	DeliveryFee               decimal.Decimal `gorm:"column:delivery_fee;type:numeric(10,2);not null;default:0"`
	NotificationEmail         *string         `gorm:"column:notification_email"`
	UpdatedAt                 time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (RestaurantSettings) TableName() string { return "restaurant_settings" }
