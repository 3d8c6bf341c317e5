package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/ordering-backend/internal/cart"
	"github.com/angelmondragon/ordering-backend/internal/orders"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/pricing"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

type stubGateway struct {
	created   *stripe.CheckoutSessionParams
	createErr error
	session   *stripe.CheckoutSession
	getErr    error
	gets      int
}

func (s *stubGateway) CreateCheckoutSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.created = params
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (s *stubGateway) GetCheckoutSession(context.Context, string) (*stripe.CheckoutSession, error) {
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.session, nil
}

func (s *stubGateway) Currency() string { return "gbp" }

type stubCart struct {
	view *cart.CartView
}

func (s *stubCart) List(context.Context, uuid.UUID) (*cart.CartView, error) {
	if s.view == nil {
		return &cart.CartView{}, nil
	}
	return s.view, nil
}

type stubOrders struct {
	existing *models.Order
	inputs   []orders.CreateOrderInput
}

func (s *stubOrders) CreateOrder(_ context.Context, input orders.CreateOrderInput, _ models.RestaurantSettings) (*orders.OrderResult, error) {
	s.inputs = append(s.inputs, input)
	return &orders.OrderResult{OrderID: uuid.New(), OrderNumber: "ORD-20260314-ABC123", Total: decimal.RequireFromString("30.49")}, nil
}

func (s *stubOrders) FindBySession(context.Context, string) (*models.Order, error) {
	if s.existing != nil {
		return s.existing, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

type recordedMetrics struct {
	results []string
	ops     []string
}

func (m *recordedMetrics) SessionResult(result string) { m.results = append(m.results, result) }
func (m *recordedMetrics) ObserveGateway(op string, _ time.Duration) {
	m.ops = append(m.ops, op)
}

func cartWithPizza() *cart.CartView {
	options := types.SelectedOptions{
		{OptionName: "Large", PriceModifier: decimal.RequireFromString("2.50")},
		{OptionName: "Garlic", PriceModifier: decimal.RequireFromString("0.50")},
	}
	return &cart.CartView{Items: []cart.CartItemView{
		{
			ProductID: uuid.New(), ProductName: "Pizza", BasePrice: decimal.RequireFromString("10.00"), Quantity: 2,
			SelectedOptions: options, IsAvailable: true, DeliveryAvailable: true, PickupAvailable: true,
		},
		{
			ProductID: uuid.New(), ProductName: "Cola", BasePrice: decimal.RequireFromString("1.99"), Quantity: 1,
			SelectedOptions: types.SelectedOptions{}, IsAvailable: true, DeliveryAvailable: true, PickupAvailable: true,
		},
	}}
}

func settingsFixture() models.RestaurantSettings {
	return models.RestaurantSettings{EnableDelivery: true, EnablePickup: true, DeliveryFee: decimal.RequireFromString("2.50")}
}

func newTestService(t *testing.T, gw *stubGateway, c *stubCart, o *stubOrders, m *recordedMetrics) Service {
	t.Helper()
	params := ServiceParams{
		Gateway: gw,
		Cart:    c,
		Orders:  o,
		URLs:    URLs{Success: "https://shop.test/checkout/success?session_id={CHECKOUT_SESSION_ID}", Cancel: "https://shop.test/checkout"},
	}
	if m != nil {
		params.Metrics = m
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func deliveryInput(userID uuid.UUID) CreateSessionInput {
	return CreateSessionInput{
		UserID:          userID,
		Email:           "ada@example.com",
		EmailVerified:   true,
		OrderType:       enums.OrderTypeDelivery,
		DeliveryAddress: &types.DeliveryAddress{Line1: "1 High St", City: "Leeds", Postcode: "LS1 1AA"},
		Phone:           "07700900000",
		IdempotencyKey:  "key-1",
	}
}

func TestCreateSessionBuildsLineItemsInMinorUnits(t *testing.T) {
	gw := &stubGateway{}
	metrics := &recordedMetrics{}
	svc := newTestService(t, gw, &stubCart{view: cartWithPizza()}, &stubOrders{}, metrics)
	userID := uuid.New()

	result, err := svc.CreateSession(context.Background(), deliveryInput(userID), settingsFixture())
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", result.SessionID)
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", result.RedirectURL)

	params := gw.created
	require.NotNil(t, params)
	require.Len(t, params.LineItems, 3)

	pizza := params.LineItems[0]
	assert.EqualValues(t, 1300, *pizza.PriceData.UnitAmount)
	assert.EqualValues(t, 2, *pizza.Quantity)
	assert.Equal(t, "Pizza", *pizza.PriceData.ProductData.Name)
	assert.Equal(t, "Large, Garlic", *pizza.PriceData.ProductData.Description)
	assert.Nil(t, params.LineItems[1].PriceData.ProductData.Description)

	fee := params.LineItems[2]
	assert.EqualValues(t, 250, *fee.PriceData.UnitAmount)
	assert.Equal(t, deliveryFeeLabel, *fee.PriceData.ProductData.Name)

	var sum int64
	for _, item := range params.LineItems {
		sum += *item.PriceData.UnitAmount * *item.Quantity
	}
	assert.Equal(t, pricing.ToMinorUnits(decimal.RequireFromString("30.49")), sum)

	assert.Equal(t, userID.String(), params.Metadata[types.MetaUserID])
	assert.Equal(t, "delivery", params.Metadata[types.MetaOrderType])
	assert.Contains(t, params.Metadata[types.MetaDeliveryAddress], "LS1 1AA")
	assert.Equal(t, "ada@example.com", *params.CustomerEmail)
	require.NotNil(t, params.IdempotencyKey)
	assert.Equal(t, "checkout:"+userID.String()+":key-1", *params.IdempotencyKey)

	assert.Equal(t, []string{"created"}, metrics.results)
	assert.Equal(t, []string{"create_session"}, metrics.ops)
}

func TestCreateSessionPickupHasNoFeeOrAddress(t *testing.T) {
	gw := &stubGateway{}
	svc := newTestService(t, gw, &stubCart{view: cartWithPizza()}, &stubOrders{}, nil)

	input := deliveryInput(uuid.New())
	input.OrderType = enums.OrderTypePickup
	_, err := svc.CreateSession(context.Background(), input, settingsFixture())
	require.NoError(t, err)
	assert.Len(t, gw.created.LineItems, 2)
	_, hasAddress := gw.created.Metadata[types.MetaDeliveryAddress]
	assert.False(t, hasAddress)
}

func TestCreateSessionRejections(t *testing.T) {
	userID := uuid.New()
	cases := []struct {
		name     string
		cart     *cart.CartView
		input    func() CreateSessionInput
		settings func() models.RestaurantSettings
		code     pkgerrors.Code
	}{
		{
			name:     "empty cart",
			cart:     &cart.CartView{},
			input:    func() CreateSessionInput { return deliveryInput(userID) },
			settings: settingsFixture,
			code:     pkgerrors.CodeValidation,
		},
		{
			name: "delivery without address",
			cart: cartWithPizza(),
			input: func() CreateSessionInput {
				in := deliveryInput(userID)
				in.DeliveryAddress = nil
				return in
			},
			settings: settingsFixture,
			code:     pkgerrors.CodeValidation,
		},
		{
			name:  "delivery disabled",
			cart:  cartWithPizza(),
			input: func() CreateSessionInput { return deliveryInput(userID) },
			settings: func() models.RestaurantSettings {
				s := settingsFixture()
				s.EnableDelivery = false
				return s
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "unverified email",
			cart: cartWithPizza(),
			input: func() CreateSessionInput {
				in := deliveryInput(userID)
				in.EmailVerified = false
				return in
			},
			settings: func() models.RestaurantSettings {
				s := settingsFixture()
				s.EmailVerificationRequired = true
				return s
			},
			code: pkgerrors.CodeForbidden,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &stubGateway{}
			svc := newTestService(t, gw, &stubCart{view: tc.cart}, &stubOrders{}, nil)
			_, err := svc.CreateSession(context.Background(), tc.input(), tc.settings())
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
			assert.Nil(t, gw.created)
		})
	}
}

func TestCreateSessionSurfacesGatewayUnavailable(t *testing.T) {
	gw := &stubGateway{createErr: pkgerrors.Wrap(pkgerrors.CodeDependency, context.DeadlineExceeded, "payment provider timed out")}
	metrics := &recordedMetrics{}
	svc := newTestService(t, gw, &stubCart{view: cartWithPizza()}, &stubOrders{}, metrics)

	_, err := svc.CreateSession(context.Background(), deliveryInput(uuid.New()), settingsFixture())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, []string{"unavailable"}, metrics.results)
}

func paidSession(userID uuid.UUID) *stripe.CheckoutSession {
	meta, _ := types.OrderMetadata{
		UserID:          userID,
		OrderType:       enums.OrderTypeDelivery,
		DeliveryAddress: &types.DeliveryAddress{Line1: "1 High St", City: "Leeds", Postcode: "LS1 1AA"},
		Phone:           "07700900000",
	}.ToMap()
	return &stripe.CheckoutSession{
		ID:              "cs_test_1",
		PaymentStatus:   stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:        meta,
		AmountTotal:     3049,
		PaymentIntent:   &stripe.PaymentIntent{ID: "pi_1"},
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{Email: "ada@example.com"},
	}
}

func TestProcessSessionCreatesPaidOrder(t *testing.T) {
	userID := uuid.New()
	gw := &stubGateway{session: paidSession(userID)}
	o := &stubOrders{}
	svc := newTestService(t, gw, &stubCart{view: cartWithPizza()}, o, nil)

	result, err := svc.ProcessSession(context.Background(), userID, "cs_test_1", settingsFixture())
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260314-ABC123", result.OrderNumber)

	require.Len(t, o.inputs, 1)
	input := o.inputs[0]
	assert.Equal(t, enums.PaymentMethodCard, input.PaymentMethod)
	assert.Equal(t, enums.PaymentStatusPaid, input.PaymentStatus)
	assert.Equal(t, "cs_test_1", *input.StripeSessionID)
	assert.Equal(t, "pi_1", *input.StripePaymentIntentID)
	assert.Equal(t, "ada@example.com", *input.CustomerEmail)
	assert.Equal(t, "LS1 1AA", input.DeliveryAddress.Postcode)
	assert.Len(t, input.Items, 2)
}

func TestProcessSessionReturnsExistingOrder(t *testing.T) {
	userID := uuid.New()
	existing := &models.Order{ID: uuid.New(), UserID: userID, OrderNumber: "ORD-20260314-AAAAAA", Total: decimal.NewFromInt(12)}
	gw := &stubGateway{}
	o := &stubOrders{existing: existing}
	svc := newTestService(t, gw, &stubCart{}, o, nil)

	result, err := svc.ProcessSession(context.Background(), userID, "cs_test_1", settingsFixture())
	require.NoError(t, err)
	assert.Equal(t, existing.ID, result.OrderID)
	assert.Zero(t, gw.gets)
	assert.Empty(t, o.inputs)

	_, err = svc.ProcessSession(context.Background(), uuid.New(), "cs_test_1", settingsFixture())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestProcessSessionRejections(t *testing.T) {
	userID := uuid.New()

	unpaid := paidSession(userID)
	unpaid.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid
	svc := newTestService(t, &stubGateway{session: unpaid}, &stubCart{view: cartWithPizza()}, &stubOrders{}, nil)
	_, err := svc.ProcessSession(context.Background(), userID, "cs_test_1", settingsFixture())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentNotCompleted))

	o := &stubOrders{}
	svc = newTestService(t, &stubGateway{session: paidSession(uuid.New())}, &stubCart{view: cartWithPizza()}, o, nil)
	_, err = svc.ProcessSession(context.Background(), userID, "cs_test_1", settingsFixture())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.Empty(t, o.inputs)

	tampered := paidSession(userID)
	tampered.Metadata[types.MetaOrderType] = "drone"
	svc = newTestService(t, &stubGateway{session: tampered}, &stubCart{view: cartWithPizza()}, &stubOrders{}, nil)
	_, err = svc.ProcessSession(context.Background(), userID, "cs_test_1", settingsFixture())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ProcessSession(context.Background(), userID, "  ", settingsFixture())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
