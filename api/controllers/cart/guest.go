package cart

import (
	"net/http"

	"github.com/angelmondragon/ordering-backend/api/responses"
	"github.com/angelmondragon/ordering-backend/api/validators"
	cartsvc "github.com/angelmondragon/ordering-backend/internal/cart"
	"github.com/angelmondragon/ordering-backend/internal/cart/anoncart"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

// GuestCartFetch prices the cookie-held cart.
func GuestCartFetch(store *anoncart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := store.View(r.Context(), store.Items(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func GuestCartAdd(store *anoncart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartsvc.AddItemInput
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := store.Add(r.Context(), w, r, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeGuestView(w, r, store, items, logg)
	}
}

func GuestCartUpdate(store *anoncart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		items, err := store.SetQuantity(w, r, itemID, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeGuestView(w, r, store, items, logg)
	}
}

func GuestCartRemove(store *anoncart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.UUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := store.Remove(w, r, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeGuestView(w, r, store, items, logg)
	}
}

func GuestCartClear(store *anoncart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Clear(w, r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}

func writeGuestView(w http.ResponseWriter, r *http.Request, store *anoncart.Store, items []anoncart.Item, logg *logger.Logger) {
	view, err := store.View(r.Context(), items)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, view)
}
