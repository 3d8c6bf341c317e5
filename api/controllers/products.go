package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/ordering-backend/api/responses"
	"github.com/angelmondragon/ordering-backend/api/validators"
	product "github.com/angelmondragon/ordering-backend/internal/products"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

type productOptionsReader interface {
	ProductOptions(ctx context.Context, productID uuid.UUID) (*product.ProductOptionsDTO, error)
}

// ProductOptions returns a product's option groups so clients can build
// selected_options.
func ProductOptions(svc productOptionsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := validators.UUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.ProductOptions(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
