package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/ordering-backend/api/middleware"
	"github.com/angelmondragon/ordering-backend/api/responses"
	"github.com/angelmondragon/ordering-backend/api/validators"
	"github.com/angelmondragon/ordering-backend/internal/cart"
	ordersvc "github.com/angelmondragon/ordering-backend/internal/orders"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/outbox"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

type settingsSource interface {
	Current(ctx context.Context) (models.RestaurantSettings, error)
}

type cartReader interface {
	List(ctx context.Context, userID uuid.UUID) (*cart.CartView, error)
}

type createOrderRequest struct {
	OrderType       string                 `json:"order_type" validate:"required,oneof=delivery pickup"`
	PaymentMethod   string                 `json:"payment_method" validate:"required,oneof=cash"`
	DeliveryAddress *types.DeliveryAddress `json:"delivery_address" validate:"omitempty"`
	Phone           string                 `json:"phone" validate:"omitempty,max=32"`
	Notes           string                 `json:"notes" validate:"omitempty,max=500"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderCreate places a pay-on-collection order from the caller's cart. Card
// orders go through checkout instead.
func OrderCreate(svc ordersvc.Service, carts cartReader, settings settingsSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil || settings == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createOrderRequest
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
		if current.EmailVerificationRequired && !caller.EmailVerified {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "Please verify your email address before placing an order"))
			return
		}
		view, err := carts.List(r.Context(), caller.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines, err := ordersvc.LinesFromCart(view.Items, orderType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ordersvc.CreateOrderInput{
			UserID:          caller.UserID,
			Items:           lines,
			OrderType:       orderType,
			DeliveryAddress: payload.DeliveryAddress,
			Phone:           optional(payload.Phone),
			Notes:           optional(payload.Notes),
			PaymentMethod:   enums.PaymentMethodCash,
			PaymentStatus:   enums.PaymentStatusPending,
			CustomerEmail:   optional(caller.Email),
		}
		result, err := svc.CreateOrder(r.Context(), input, current)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, result)
	}
}

func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), caller.UserID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminUserOrders pages through another user's order history.
func AdminUserOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		userID, err := validators.UUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), userID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderDetail returns one of the caller's orders. Orders of other users read
// as not found.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), caller.UserID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func OrderCancel(svc ordersvc.Service, settings settingsSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || settings == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		current, err := settings.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Cancel(r.Context(), caller.UserID, orderID, current)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// AdminOrderStatus moves an order to a new fulfillment status.
func AdminOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !caller.IsAdmin() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
			return
		}
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		actor := &outbox.ActorRef{UserID: caller.UserID, Role: enums.RoleAdmin}
		dto, err := svc.UpdateStatus(r.Context(), orderID, status, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
