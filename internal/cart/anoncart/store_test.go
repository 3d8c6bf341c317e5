package anoncart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ordering-backend/internal/cart"
	product "github.com/angelmondragon/ordering-backend/internal/products"
	"github.com/angelmondragon/ordering-backend/pkg/config"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

type stubCatalog struct {
	products map[uuid.UUID]models.Product
}

func (s stubCatalog) ResolveSelection(_ context.Context, id uuid.UUID, _ []product.Selection) (*models.Product, types.SelectedOptions, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &p, nil, nil
}

func (s stubCatalog) ProductsByID(context.Context, []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return s.products, nil
}

func newTestStore(t *testing.T, products ...models.Product) *Store {
	t.Helper()
	catalog := stubCatalog{products: map[uuid.UUID]models.Product{}}
	for _, p := range products {
		catalog.products[p.ID] = p
	}
	store, err := NewStore(config.CartSessionConfig{
		Secret:     "test-secret-test-secret-test-secret",
		CookieName: "guest_cart",
		MaxAgeDays: 1,
	}, catalog)
	require.NoError(t, err)
	return store
}

// roundTrip replays the cookie set by the previous response on a new request.
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/guest/cart", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestAddMergesOptionlessLinesInCookie(t *testing.T) {
	burger := models.Product{ID: uuid.New(), Name: "Burger", Price: decimal.RequireFromString("8.00"), IsAvailable: true}
	store := newTestStore(t, burger)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	_, err := store.Add(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), cart.AddItemInput{ProductID: burger.ID, Quantity: 1})
	require.NoError(t, err)

	next := httptest.NewRecorder()
	items, err := store.Add(ctx, next, roundTrip(rec), cart.AddItemInput{ProductID: burger.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)

	stored := store.Items(roundTrip(next))
	require.Len(t, stored, 1)
	assert.Equal(t, 3, stored[0].Quantity)

	view, err := store.View(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, "24.00", view.Subtotal.StringFixed(2))
	assert.Equal(t, 3, view.ItemCount)
}

func TestAddRejectsUnknownProduct(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Add(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil),
		cart.AddItemInput{ProductID: uuid.New(), Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTamperedCookieReadsEmpty(t *testing.T) {
	store := newTestStore(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "guest_cart", Value: "forged"})
	assert.Empty(t, store.Items(req))
}

func TestSetQuantityRemoveAndClear(t *testing.T) {
	burger := models.Product{ID: uuid.New(), Name: "Burger", Price: decimal.NewFromInt(8), IsAvailable: true}
	store := newTestStore(t, burger)

	rec := httptest.NewRecorder()
	items, err := store.Add(context.Background(), rec, httptest.NewRequest(http.MethodPost, "/", nil), cart.AddItemInput{ProductID: burger.ID, Quantity: 1})
	require.NoError(t, err)
	id := items[0].ID

	_, err = store.SetQuantity(httptest.NewRecorder(), roundTrip(rec), uuid.New(), 2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	updated := httptest.NewRecorder()
	items, err = store.SetQuantity(updated, roundTrip(rec), id, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, items[0].Quantity)

	removed := httptest.NewRecorder()
	items, err = store.Remove(removed, roundTrip(updated), id)
	require.NoError(t, err)
	assert.Empty(t, items)

	cleared := httptest.NewRecorder()
	require.NoError(t, store.Clear(cleared, roundTrip(updated)))
	cookies := cleared.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestAddLineKeepsOptionLinesApartAndCapsSize(t *testing.T) {
	productID := uuid.New()
	withOptions := cart.AddItemInput{ProductID: productID, Quantity: 1, Selections: []product.Selection{{OptionID: uuid.New()}}}

	items, err := addLine(nil, withOptions)
	require.NoError(t, err)
	items, err = addLine(items, withOptions)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	for len(items) < maxLines {
		items, err = addLine(items, cart.AddItemInput{ProductID: uuid.New(), Quantity: 1})
		require.NoError(t, err)
	}
	_, err = addLine(items, cart.AddItemInput{ProductID: uuid.New(), Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	inputs := MergeInputs(items)
	assert.Len(t, inputs, maxLines)
}
