package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/ordering-backend/internal/checkout"
	"github.com/angelmondragon/ordering-backend/internal/orders"
	"github.com/angelmondragon/ordering-backend/pkg/auth"
	"github.com/angelmondragon/ordering-backend/pkg/config"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/outbox"
	"github.com/angelmondragon/ordering-backend/pkg/pagination"
)

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "test", PublicURL: "http://localhost:3000"},
		JWT:      config.JWTConfig{Secret: "router-secret", Issuer: "ordering", ExpirationMinutes: 60},
		Checkout: config.CheckoutConfig{RateLimit: 10, RateWindow: time.Minute},
	}
}

func bearer(t *testing.T, cfg *config.Config, role enums.Role) (uuid.UUID, string) {
	t.Helper()
	userID := uuid.New()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		UserID:        userID,
		Email:         "diner@example.com",
		EmailVerified: true,
		Role:          role,
	})
	require.NoError(t, err)
	return userID, "Bearer " + token
}

type stubSettings struct{}

func (stubSettings) Current(context.Context) (models.RestaurantSettings, error) {
	email := "kitchen@example.com"
	return models.RestaurantSettings{
		RestaurantName:         "Luigi's",
		EnablePickup:           true,
		AllowOrderCancellation: true,
		DeliveryFee:            decimal.RequireFromString("2.50"),
		NotificationEmail:      &email,
	}, nil
}

type stubCheckout struct {
	input checkout.CreateSessionInput
}

func (s *stubCheckout) CreateSession(_ context.Context, input checkout.CreateSessionInput, _ models.RestaurantSettings) (*checkout.SessionResult, error) {
	s.input = input
	return &checkout.SessionResult{SessionID: "cs_test_1", RedirectURL: "https://pay.example/cs_test_1"}, nil
}

func (s *stubCheckout) ProcessSession(context.Context, uuid.UUID, string, models.RestaurantSettings) (*checkout.ProcessResult, error) {
	return &checkout.ProcessResult{OrderID: uuid.New(), OrderNumber: "ORD-20260101-ABCDEF", Total: decimal.NewFromInt(12)}, nil
}

type stubOrders struct {
	statusActor *outbox.ActorRef
	page        pagination.Params
	listUser    uuid.UUID
}

func (s *stubOrders) CreateOrder(context.Context, orders.CreateOrderInput, models.RestaurantSettings) (*orders.OrderResult, error) {
	return nil, errors.New("not used")
}

func (s *stubOrders) Get(_ context.Context, _, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: orderID}, nil
}

func (s *stubOrders) List(_ context.Context, userID uuid.UUID, page pagination.Params) (*orders.OrderPage, error) {
	s.listUser = userID
	s.page = page
	return &orders.OrderPage{Orders: []orders.OrderDTO{}}, nil
}

func (s *stubOrders) FindBySession(context.Context, string) (*models.Order, error) {
	return nil, errors.New("not used")
}

func (s *stubOrders) Cancel(_ context.Context, _, orderID uuid.UUID, _ models.RestaurantSettings) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: orderID, Status: enums.OrderStatusCancelled}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, orderID uuid.UUID, status enums.OrderStatus, actor *outbox.ActorRef) (*orders.OrderDTO, error) {
	s.statusActor = actor
	return &orders.OrderDTO{ID: orderID, Status: status}, nil
}

type stubWebhook struct{ calls int }

func (s *stubWebhook) HandleEvent(context.Context, *stripe.Event) error {
	s.calls++
	return nil
}

type staticSecret string

func (s staticSecret) SigningSecret() string { return string(s) }

func newTestRouter(cfg *config.Config, co *stubCheckout, ord *stubOrders, wh *stubWebhook) http.Handler {
	return NewRouter(cfg, logger.Nop(), Infra{}, Services{
		Checkout:    co,
		Orders:      ord,
		Settings:    stubSettings{},
		Webhook:     wh,
		WebhookKeys: staticSecret("whsec_router"),
	})
}

func serve(h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(testConfig(), &stubCheckout{}, &stubOrders{}, &stubWebhook{})

	rec := serve(router, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Ordering-Env"))

	rec = serve(router, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAuthenticatedRoutesRequireBearer(t *testing.T) {
	router := newTestRouter(testConfig(), &stubCheckout{}, &stubOrders{}, &stubWebhook{})
	for _, path := range []string{"/api/v1/cart", "/api/v1/orders"} {
		rec := serve(router, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := serve(router, http.MethodPost, "/api/v1/checkout", "", `{"order_type":"pickup"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutRouteForwardsCaller(t *testing.T) {
	cfg := testConfig()
	co := &stubCheckout{}
	router := newTestRouter(cfg, co, &stubOrders{}, &stubWebhook{})
	userID, token := bearer(t, cfg, enums.RoleCustomer)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"order_type":"pickup","phone":"0123"}`))
	req.Header.Set("Authorization", token)
	req.Header.Set("Idempotency-Key", "chk-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data checkout.SessionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cs_test_1", body.Data.SessionID)
	assert.Equal(t, userID, co.input.UserID)
	assert.Equal(t, enums.OrderTypePickup, co.input.OrderType)
	assert.Equal(t, "chk-1", co.input.IdempotencyKey)
	assert.True(t, co.input.EmailVerified)
}

func TestCheckoutRejectsUnknownFields(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubCheckout{}, &stubOrders{}, &stubWebhook{})
	_, token := bearer(t, cfg, enums.RoleCustomer)

	rec := serve(router, http.MethodPost, "/api/v1/checkout", token, `{"order_type":"pickup","total":"0.01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPost, "/api/v1/checkout", token, `{"order_type":"teleport"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminStatusRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	ord := &stubOrders{}
	router := newTestRouter(cfg, &stubCheckout{}, ord, &stubWebhook{})
	path := "/api/v1/admin/orders/" + uuid.NewString() + "/status"

	_, customer := bearer(t, cfg, enums.RoleCustomer)
	rec := serve(router, http.MethodPatch, path, customer, `{"status":"preparing"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, ord.statusActor)

	adminID, admin := bearer(t, cfg, enums.RoleAdmin)
	rec = serve(router, http.MethodPatch, path, admin, `{"status":"preparing"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, ord.statusActor)
	assert.Equal(t, adminID, ord.statusActor.UserID)
	assert.Equal(t, enums.RoleAdmin, ord.statusActor.Role)

	rec = serve(router, http.MethodPatch, path, admin, `{"status":"teleported"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderDetailRejectsMalformedID(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubCheckout{}, &stubOrders{}, &stubWebhook{})
	_, token := bearer(t, cfg, enums.RoleCustomer)

	rec := serve(router, http.MethodGet, "/api/v1/orders/not-a-uuid", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderListReadsPageParams(t *testing.T) {
	cfg := testConfig()
	ord := &stubOrders{}
	router := newTestRouter(cfg, &stubCheckout{}, ord, &stubWebhook{})
	_, token := bearer(t, cfg, enums.RoleCustomer)

	rec := serve(router, http.MethodGet, "/api/v1/orders?limit=abc", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pagination.Params{Limit: 5, Cursor: "abc"}, ord.page)
}

func TestWebhookAliasesVerifySignature(t *testing.T) {
	wh := &stubWebhook{}
	router := newTestRouter(testConfig(), &stubCheckout{}, &stubOrders{}, wh)
	for _, path := range []string{"/webhooks/payment", "/webhooks/stripe"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"id":"evt_1"}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=bad")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	assert.Zero(t, wh.calls)
}

func TestSettingsRouteHidesNotificationEmail(t *testing.T) {
	router := newTestRouter(testConfig(), &stubCheckout{}, &stubOrders{}, &stubWebhook{})

	rec := serve(router, http.MethodGet, "/api/v1/settings", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "kitchen@example.com")

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Luigi's", body.Data["restaurant_name"])
	assert.Equal(t, "2.5", body.Data["delivery_fee"])
	assert.Equal(t, false, body.Data["enable_delivery"])
	assert.Equal(t, true, body.Data["enable_pickup"])
	assert.Equal(t, true, body.Data["allow_order_cancellation"])
	assert.NotContains(t, body.Data, "notification_email")
}

func TestAdminUserOrdersRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	ord := &stubOrders{}
	router := newTestRouter(cfg, &stubCheckout{}, ord, &stubWebhook{})
	target := uuid.New()
	path := "/api/v1/admin/users/" + target.String() + "/orders?limit=10"

	rec := serve(router, http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, customer := bearer(t, cfg, enums.RoleCustomer)
	rec = serve(router, http.MethodGet, path, customer, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, uuid.Nil, ord.listUser)

	_, admin := bearer(t, cfg, enums.RoleAdmin)
	rec = serve(router, http.MethodGet, "/api/v1/admin/users/nope/orders", admin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodGet, path, admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, target, ord.listUser)
	assert.Equal(t, pagination.Params{Limit: 10}, ord.page)
}

func TestOrderCreateRejectsClientPaymentFields(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubCheckout{}, &stubOrders{}, &stubWebhook{})
	_, token := bearer(t, cfg, enums.RoleCustomer)

	for _, body := range []string{
		`{"order_type":"pickup","payment_method":"card"}`,
		`{"order_type":"pickup","payment_method":"cash","payment_status":"paid"}`,
		`{"order_type":"pickup","payment_method":"cash","items":[]}`,
	} {
		rec := serve(router, http.MethodPost, "/api/v1/orders", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}
