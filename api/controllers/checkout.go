package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/ordering-backend/api/middleware"
	"github.com/angelmondragon/ordering-backend/api/responses"
	"github.com/angelmondragon/ordering-backend/api/validators"
	"github.com/angelmondragon/ordering-backend/internal/checkout"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

// SettingsSource resolves the restaurant settings for the current request.
type SettingsSource interface {
	Current(ctx context.Context) (models.RestaurantSettings, error)
}

type checkoutRequest struct {
	OrderType       string                 `json:"order_type" validate:"required,oneof=delivery pickup"`
	DeliveryAddress *types.DeliveryAddress `json:"delivery_address" validate:"omitempty"`
	Phone           string                 `json:"phone" validate:"omitempty,max=32"`
	Notes           string                 `json:"notes" validate:"omitempty,max=500"`
}

type processRequest struct {
	SessionID string `json:"session_id" validate:"required,max=255"`
}

// CheckoutCreate opens a hosted payment session for the caller's cart.
func CheckoutCreate(svc checkout.Service, settings SettingsSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || settings == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderType, err := enums.ParseOrderType(payload.OrderType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_type"))
			return
		}

		current, err := settings.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkout.CreateSessionInput{
			UserID:          caller.UserID,
			Email:           caller.Email,
			EmailVerified:   caller.EmailVerified,
			OrderType:       orderType,
			DeliveryAddress: payload.DeliveryAddress,
			Phone:           payload.Phone,
			Notes:           payload.Notes,
			IdempotencyKey:  strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader)),
		}
		result, err := svc.CreateSession(r.Context(), input, current)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckoutProcess turns a paid session into an order. Repeat calls for the
// same session return the existing order.
func CheckoutProcess(svc checkout.Service, settings SettingsSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || settings == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload processRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		current, err := settings.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSessionID(ctx, payload.SessionID)
		}
		result, err := svc.ProcessSession(ctx, caller.UserID, strings.TrimSpace(payload.SessionID), current)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
