package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ordering-backend/api/responses"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

// publicSettings is what a client needs before checkout or cancel. The
// notification address stays server side.
type publicSettings struct {
	RestaurantName            string          `json:"restaurant_name"`
	DeliveryFee               decimal.Decimal `json:"delivery_fee"`
	EnableDelivery            bool            `json:"enable_delivery"`
	EnablePickup              bool            `json:"enable_pickup"`
	AllowOrderCancellation    bool            `json:"allow_order_cancellation"`
	EmailVerificationRequired bool            `json:"email_verification_required"`
}

func toPublicSettings(row models.RestaurantSettings) publicSettings {
	return publicSettings{
		RestaurantName:            row.RestaurantName,
		DeliveryFee:               row.DeliveryFee,
		EnableDelivery:            row.EnableDelivery,
		EnablePickup:              row.EnablePickup,
		AllowOrderCancellation:    row.AllowOrderCancellation,
		EmailVerificationRequired: row.EmailVerificationRequired,
	}
}

func SettingsFetch(settings SettingsSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if settings == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings unavailable"))
			return
		}
		current, err := settings.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPublicSettings(current))
	}
}
