package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"go.opentelemetry.io/otel/attribute"

	"github.com/angelmondragon/ordering-backend/internal/cart"
	"github.com/angelmondragon/ordering-backend/internal/orders"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/pricing"
	"github.com/angelmondragon/ordering-backend/pkg/tracing"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

const deliveryFeeLabel = "Delivery fee"

type gateway interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	Currency() string
}

type cartReader interface {
	List(ctx context.Context, userID uuid.UUID) (*cart.CartView, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput, settings models.RestaurantSettings) (*orders.OrderResult, error)
	FindBySession(ctx context.Context, sessionID string) (*models.Order, error)
}

type checkoutMetrics interface {
	SessionResult(result string)
	ObserveGateway(operation string, d time.Duration)
}

// Service creates hosted payment sessions and turns paid ones into orders.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput, settings models.RestaurantSettings) (*SessionResult, error)
	ProcessSession(ctx context.Context, userID uuid.UUID, sessionID string, settings models.RestaurantSettings) (*ProcessResult, error)
}

type ServiceParams struct {
	Gateway gateway
	Cart    cartReader
	Orders  orderCreator
	URLs    URLs
	Metrics checkoutMetrics
	Logger  *logger.Logger
}

type service struct {
	gateway gateway
	cart    cartReader
	orders  orderCreator
	urls    URLs
	metrics checkoutMetrics
	logg    *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if strings.TrimSpace(params.URLs.Success) == "" || strings.TrimSpace(params.URLs.Cancel) == "" {
		return nil, fmt.Errorf("success and cancel urls required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		gateway: params.Gateway,
		cart:    params.Cart,
		orders:  params.Orders,
		urls:    params.URLs,
		metrics: params.Metrics,
		logg:    logg,
	}, nil
}

func (s *service) CreateSession(ctx context.Context, input CreateSessionInput, settings models.RestaurantSettings) (result *SessionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "checkout.CreateSession",
		attribute.String("user_id", input.UserID.String()),
		attribute.String("order_type", string(input.OrderType)))
	defer func() {
		tracing.Fail(span, err)
		span.End()
	}()
	ctx = s.logg.WithUserID(ctx, input.UserID.String())

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if settings.EmailVerificationRequired && !input.EmailVerified {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Please verify your email address before placing an order")
	}
	metadata, err := s.buildMetadata(input, settings)
	if err != nil {
		return nil, err
	}

	view, err := s.cart.List(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	lines, err := orders.LinesFromCart(view.Items, input.OrderType)
	if err != nil {
		return nil, err
	}

	params := s.sessionParams(lines, input, settings, metadata)
	started := time.Now()
	sess, err := s.gateway.CreateCheckoutSession(ctx, params)
	s.observe("create_session", started)
	if err != nil {
		s.sessionResult(err)
		s.logg.Error(ctx, "create payment session failed", err)
		return nil, err
	}
	s.sessionResult(nil)

	ctx = s.logg.WithSessionID(ctx, sess.ID)
	s.logg.Info(ctx, "payment session created")
	return &SessionResult{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

func (s *service) buildMetadata(input CreateSessionInput, settings models.RestaurantSettings) (map[string]string, error) {
	if !input.OrderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_type must be delivery or pickup")
	}
	if input.OrderType == enums.OrderTypeDelivery && !settings.EnableDelivery {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Delivery is currently unavailable")
	}
	if input.OrderType == enums.OrderTypePickup && !settings.EnablePickup {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Pickup is currently unavailable")
	}
	address := input.DeliveryAddress
	if input.OrderType == enums.OrderTypePickup {
		address = nil
	}
	if address != nil {
		normalized := address.Normalize()
		address = &normalized
	}
	meta := types.OrderMetadata{
		UserID:          input.UserID,
		OrderType:       input.OrderType,
		DeliveryAddress: address,
		Phone:           strings.TrimSpace(input.Phone),
		Notes:           strings.TrimSpace(input.Notes),
	}
	out, err := meta.ToMap()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return out, nil
}

func (s *service) sessionParams(lines []orders.LineInput, input CreateSessionInput, settings models.RestaurantSettings, metadata map[string]string) *stripe.CheckoutSessionParams {
	currency := s.gateway.Currency()
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(lines)+1)
	for _, line := range lines {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.ProductName),
		}
		if names := line.SelectedOptions.Names(); len(names) > 0 {
			product.Description = stripe.String(strings.Join(names, ", "))
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(pricing.ToMinorUnits(pricing.UnitPrice(line.BasePrice, line.SelectedOptions))),
				ProductData: product,
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}
	if input.OrderType == enums.OrderTypeDelivery && settings.DeliveryFee.IsPositive() {
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(pricing.ToMinorUnits(settings.DeliveryFee)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(deliveryFeeLabel)},
			},
			Quantity: stripe.Int64(1),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          items,
		SuccessURL:         stripe.String(s.urls.Success),
		CancelURL:          stripe.String(s.urls.Cancel),
		Metadata:           metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		params.SetIdempotencyKey("checkout:" + input.UserID.String() + ":" + key)
	}
	return params
}

func (s *service) ProcessSession(ctx context.Context, userID uuid.UUID, sessionID string, settings models.RestaurantSettings) (result *ProcessResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "checkout.ProcessSession", attribute.String("session_id", sessionID))
	defer func() {
		tracing.Fail(span, err)
		span.End()
	}()
	ctx = s.logg.WithSessionID(s.logg.WithUserID(ctx, userID.String()), sessionID)

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}

	existing, err := s.orders.FindBySession(ctx, sessionID)
	switch {
	case err == nil:
		if existing.UserID != userID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment session belongs to another user")
		}
		return &ProcessResult{OrderID: existing.ID, OrderNumber: existing.OrderNumber, Total: existing.Total}, nil
	case !pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return nil, err
	}

	started := time.Now()
	sess, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	s.observe("get_session", started)
	if err != nil {
		return nil, err
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotCompleted, "Payment has not been completed")
	}

	meta, err := types.ParseOrderMetadata(sess.Metadata)
	if err != nil {
		s.logg.Warn(ctx, "payment session metadata rejected: "+err.Error())
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment session metadata is invalid")
	}
	if meta.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment session belongs to another user")
	}

	view, err := s.cart.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines, err := orders.LinesFromCart(view.Items, meta.OrderType)
	if err != nil {
		return nil, err
	}

	input := orders.CreateOrderInput{
		UserID:          userID,
		Items:           lines,
		OrderType:       meta.OrderType,
		DeliveryAddress: meta.DeliveryAddress,
		Phone:           optional(meta.Phone),
		Notes:           optional(meta.Notes),
		PaymentMethod:   enums.PaymentMethodCard,
		PaymentStatus:   enums.PaymentStatusPaid,
		StripeSessionID: &sess.ID,
		CustomerEmail:   customerEmail(sess),
	}
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		input.StripePaymentIntentID = &sess.PaymentIntent.ID
	}

	created, err := s.orders.CreateOrder(ctx, input, settings)
	if err != nil {
		return nil, err
	}
	if sess.AmountTotal > 0 && sess.AmountTotal != pricing.ToMinorUnits(created.Total) {
		s.logg.Warn(s.logg.WithOrderID(ctx, created.OrderID.String()),
			fmt.Sprintf("charged amount %d differs from order total %s", sess.AmountTotal, created.Total.StringFixed(2)))
	}
	return &ProcessResult{OrderID: created.OrderID, OrderNumber: created.OrderNumber, Total: created.Total}, nil
}

func (s *service) sessionResult(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.SessionResult("created")
	case pkgerrors.IsCode(err, pkgerrors.CodeDependency):
		s.metrics.SessionResult("unavailable")
	default:
		s.metrics.SessionResult("rejected")
	}
}

func (s *service) observe(op string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveGateway(op, time.Since(started))
	}
}

func customerEmail(sess *stripe.CheckoutSession) *string {
	if sess.CustomerDetails != nil && strings.TrimSpace(sess.CustomerDetails.Email) != "" {
		return &sess.CustomerDetails.Email
	}
	if strings.TrimSpace(sess.CustomerEmail) != "" {
		return &sess.CustomerEmail
	}
	return nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
