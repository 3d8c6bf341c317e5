package cart

import (
	"net/http"

	"github.com/angelmondragon/ordering-backend/api/middleware"
	"github.com/angelmondragon/ordering-backend/api/responses"
	"github.com/angelmondragon/ordering-backend/api/validators"
	cartsvc "github.com/angelmondragon/ordering-backend/internal/cart"
	"github.com/angelmondragon/ordering-backend/internal/cart/anoncart"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=99"`
}

type mergeRequest struct {
	Items []cartsvc.AddItemInput `json:"items" validate:"max=50,dive"`
}

// CartFetch returns the caller's cart with live prices.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.List(r.Context(), caller.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAdd adds a line, summing quantity into an identical existing line.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartsvc.AddItemInput
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Add(r.Context(), caller.UserID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, item)
	}
}

// CartUpdate sets a line's quantity; zero removes it.
func CartUpdate(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.UUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload quantityRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.SetQuantity(r.Context(), caller.UserID, itemID, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.UUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), caller.UserID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context(), caller.UserID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}

// CartMerge folds the anonymous cart (cookie lines plus any lines sent in the
// body) into the caller's cart, then drops the cookie.
func CartMerge(svc cartsvc.Service, guest *anoncart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || guest == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		caller, err := middleware.RequireCaller(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inputs := anoncart.MergeInputs(guest.Items(r))
		if r.ContentLength != 0 {
			var payload mergeRequest
			if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			inputs = append(inputs, payload.Items...)
		}

		view, err := svc.Merge(r.Context(), caller.UserID, inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := guest.Clear(w, r); err != nil && logg != nil {
			logg.Warn(r.Context(), "clear guest cart cookie: "+err.Error())
		}
		responses.WriteSuccess(w, view)
	}
}
