package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
)

type addRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"min=1,max=99"`
	OrderType string `json:"order_type" validate:"omitempty,oneof=delivery pickup"`
}

func TestDecodeJSONBody(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		field  string
		ok     bool
		reason string
	}{
		{name: "valid", body: `{"product_id":"8b0f0e1c-8a5e-4b8e-9a57-3e1a2f4c5d6e","quantity":2}`, ok: true},
		{name: "unknown field", body: `{"product_id":"8b0f0e1c-8a5e-4b8e-9a57-3e1a2f4c5d6e","quantity":1,"price":0}`},
		{name: "empty", body: ``},
		{name: "quantity", body: `{"product_id":"8b0f0e1c-8a5e-4b8e-9a57-3e1a2f4c5d6e","quantity":0}`, field: "quantity"},
		{name: "order type", body: `{"product_id":"8b0f0e1c-8a5e-4b8e-9a57-3e1a2f4c5d6e","quantity":1,"order_type":"drone"}`, field: "order_type"},
		{name: "bad id", body: `{"product_id":"nope","quantity":1}`, field: "product_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dest addRequest
			err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
			if tc.field != "" {
				details, ok := pkgerrors.As(err).Details().(map[string]string)
				require.True(t, ok)
				assert.Contains(t, details, tc.field)
			}
		})
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	big := `{"product_id":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	var dest addRequest
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUUIDParam(t *testing.T) {
	withParam := func(v string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("orderId", v)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}
	_, err := UUIDParam(withParam("not-a-uuid"), "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	id, err := UUIDParam(withParam("8b0f0e1c-8a5e-4b8e-9a57-3e1a2f4c5d6e"), "orderId")
	require.NoError(t, err)
	assert.Equal(t, "8b0f0e1c-8a5e-4b8e-9a57-3e1a2f4c5d6e", id.String())
}
