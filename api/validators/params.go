package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/pagination"
)

// UUIDParam reads a chi path parameter as a uuid.
func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a valid id", name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// PageParams reads the limit and cursor query parameters. Limits outside
// 1..pagination.MaxLimit are clamped later; only non-numeric input fails here.
func PageParams(r *http.Request) (pagination.Params, error) {
	q := r.URL.Query()
	params := pagination.Params{Cursor: strings.TrimSpace(q.Get("cursor"))}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive number").
				WithDetails(map[string]any{"field": "limit"})
		}
		params.Limit = limit
	}
	return params, nil
}
