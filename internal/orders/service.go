package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordering-backend/pkg/db"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/outbox"
	"github.com/angelmondragon/ordering-backend/pkg/pagination"
	"github.com/angelmondragon/ordering-backend/pkg/pricing"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

const (
	orderNumberAttempts = 3
	sourceCheckout      = "checkout"
	sourceCustomer      = "customer"
	sourceAdmin         = "admin"
)

// Service materializes carts into orders and manages their lifecycle.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput, settings models.RestaurantSettings) (*OrderResult, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderPage, error)
	FindBySession(ctx context.Context, sessionID string) (*models.Order, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID, settings models.RestaurantSettings) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor *outbox.ActorRef) (*OrderDTO, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Cart    cartClearer
	Metrics orderMetrics
	Logger  *logger.Logger
	// Transactional writes header, items and outbox row in one transaction.
	// When false the header is written first and deleted again if the items
	// fail; a failed delete is recorded in orphaned_orders.
	Transactional bool
	Now           func() time.Time
}

type service struct {
	repo          Repository
	tx            txRunner
	outbox        outbox.Emitter
	cart          cartClearer
	metrics       orderMetrics
	logg          *logger.Logger
	transactional bool
	now           func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart clearer required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:          params.Repo,
		tx:            params.Tx,
		outbox:        params.Outbox,
		cart:          params.Cart,
		metrics:       params.Metrics,
		logg:          logg,
		transactional: params.Transactional,
		now:           now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput, settings models.RestaurantSettings) (*OrderResult, error) {
	if err := validateCreate(&input, settings); err != nil {
		return nil, err
	}
	ctx = s.logg.WithUserID(ctx, input.UserID.String())

	if input.StripeSessionID != nil {
		if existing, err := s.repo.FindBySessionID(ctx, *input.StripeSessionID); err == nil {
			return existingResult(existing), nil
		} else if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
	}

	var (
		order *models.Order
		err   error
	)
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order = s.buildOrder(input, settings)
		if s.transactional {
			err = s.createTransactional(ctx, order)
		} else {
			err = s.createCompensating(ctx, order)
		}
		if err == nil || !db.IsUniqueViolation(err, "") {
			break
		}
		if input.StripeSessionID != nil && sessionConflict(err) {
			// A concurrent return already materialized it; a new order
			// number cannot help.
			existing, findErr := s.repo.FindBySessionID(ctx, *input.StripeSessionID)
			if findErr == nil {
				s.logg.Info(ctx, "order already materialized for payment session")
				return existingResult(existing), nil
			}
			s.logg.Warn(ctx, "lookup after payment session conflict failed: "+findErr.Error())
			break
		}
	}
	if err != nil {
		if sessionConflict(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment session already has an order")
		}
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate an order number")
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		s.logg.Error(ctx, "create order failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if s.metrics != nil {
		s.metrics.OrderCreated(string(order.PaymentMethod))
	}
	if err := s.cart.Clear(ctx, input.UserID); err != nil {
		s.logg.Warn(ctx, "order created but cart clear failed: "+err.Error())
	}
	s.logg.Info(ctx, "order created")

	return &OrderResult{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Total:         order.Total,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
	}, nil
}

func validateCreate(input *CreateOrderInput, settings models.RestaurantSettings) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Cart is empty")
	}
	if !input.OrderType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "order_type must be delivery or pickup")
	}
	if input.OrderType == enums.OrderTypeDelivery && !settings.EnableDelivery {
		return pkgerrors.New(pkgerrors.CodeValidation, "Delivery is currently unavailable")
	}
	if input.OrderType == enums.OrderTypePickup && !settings.EnablePickup {
		return pkgerrors.New(pkgerrors.CodeValidation, "Pickup is currently unavailable")
	}
	if input.OrderType == enums.OrderTypePickup {
		input.DeliveryAddress = nil
	}
	if input.DeliveryAddress != nil {
		normalized := input.DeliveryAddress.Normalize()
		input.DeliveryAddress = &normalized
	}
	if err := types.ValidateDelivery(input.OrderType, input.DeliveryAddress); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment_method must be card or cash")
	}
	if input.PaymentStatus == "" {
		input.PaymentStatus = enums.PaymentStatusPending
	}
	if !input.PaymentStatus.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	for _, line := range input.Items {
		if line.Quantity < 1 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "quantity for %s must be at least 1", line.ProductName)
		}
		if pricing.LineTotal(line.BasePrice, line.SelectedOptions, line.Quantity).IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "%s has a negative price", line.ProductName)
		}
	}
	return nil
}

func (s *service) buildOrder(input CreateOrderInput, settings models.RestaurantSettings) *models.Order {
	lines := make([]pricing.Line, 0, len(input.Items))
	for _, item := range input.Items {
		lines = append(lines, pricing.Line{BasePrice: item.BasePrice, Options: item.SelectedOptions, Quantity: item.Quantity})
	}
	fee := decimal.Zero
	if input.OrderType == enums.OrderTypeDelivery {
		fee = settings.DeliveryFee
	}
	totals := pricing.Summarize(lines, fee)

	status := enums.OrderStatusPending
	if input.PaymentStatus == enums.PaymentStatusPaid {
		status = enums.OrderStatusConfirmed
	}

	now := s.now()
	order := &models.Order{
		ID:                    uuid.New(),
		UserID:                input.UserID,
		OrderNumber:           newOrderNumber(now),
		Status:                status,
		PaymentStatus:         input.PaymentStatus,
		OrderType:             input.OrderType,
		PaymentMethod:         input.PaymentMethod,
		DeliveryAddress:       input.DeliveryAddress,
		Phone:                 trimmed(input.Phone),
		Notes:                 trimmed(input.Notes),
		CustomerEmail:         trimmed(input.CustomerEmail),
		Subtotal:              totals.Subtotal,
		DeliveryFee:           totals.DeliveryFee,
		Total:                 totals.Total,
		StripeSessionID:       input.StripeSessionID,
		StripePaymentIntentID: trimmed(input.StripePaymentIntentID),
	}
	for _, item := range input.Items {
		options := item.SelectedOptions
		if options == nil {
			options = types.SelectedOptions{}
		}
		order.Items = append(order.Items, models.OrderItem{
			ID:                  uuid.New(),
			OrderID:             order.ID,
			ProductID:           item.ProductID,
			ProductName:         item.ProductName,
			Quantity:            item.Quantity,
			UnitPrice:           pricing.Round(item.BasePrice),
			Subtotal:            pricing.LineTotal(item.BasePrice, options, item.Quantity),
			SelectedOptions:     options,
			SpecialInstructions: trimmed(&item.SpecialInstructions),
		})
	}
	return order
}

func (s *service) createTransactional(ctx context.Context, order *models.Order) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := repo.CreateItems(ctx, order.Items); err != nil {
			return err
		}
		return s.emitCreated(ctx, tx, order)
	})
}

// createCompensating writes without a spanning transaction and undoes the
// header when a later step fails.
func (s *service) createCompensating(ctx context.Context, order *models.Order) error {
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return err
	}
	if err := s.repo.CreateItems(ctx, order.Items); err != nil {
		return s.compensate(ctx, order, err)
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error { return s.emitCreated(ctx, tx, order) }); err != nil {
		return s.compensate(ctx, order, err)
	}
	return nil
}

func (s *service) compensate(ctx context.Context, order *models.Order, cause error) error {
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Error(ctx, "order item insert failed, removing header", cause)

	deleteErr := s.repo.DeleteOrder(ctx, order.ID)
	if deleteErr == nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "Failed to create order items").
			WithDetails(map[string]any{"order_id": order.ID, "compensated": true})
	}

	msg := deleteErr.Error()
	orphan := &models.OrphanedOrder{
		OrderID:   order.ID,
		Reason:    "item insert failed: " + cause.Error(),
		LastError: &msg,
	}
	if err := s.repo.RecordOrphan(ctx, orphan); err != nil {
		s.logg.Error(ctx, "failed to record orphaned order", err)
	} else {
		s.logg.Warn(ctx, "compensating delete failed, orphaned order recorded")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "Failed to create order items").
		WithDetails(map[string]any{"order_id": order.ID, "compensated": false})
}

func (s *service) emitCreated(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:   enums.EventOrderCreated,
		AggregateID: order.ID,
		Actor:       &outbox.ActorRef{UserID: order.UserID, Role: enums.RoleCustomer},
		Data:        EventPayload(*order, sourceCheckout, nil),
	})
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := ToDTO(*order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderPage, error) {
	after, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(page.Limit)
	rows, err := s.repo.ListByUser(ctx, userID, pagination.LimitWithBuffer(page.Limit), after)
	if err != nil {
		return nil, err
	}

	out := &OrderPage{Orders: make([]OrderDTO, 0, limit)}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	for _, row := range rows {
		out.Orders = append(out.Orders, ToDTO(row))
	}
	return out, nil
}

func (s *service) FindBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	return s.repo.FindBySessionID(ctx, sessionID)
}

func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID, settings models.RestaurantSettings) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !settings.AllowOrderCancellation {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Order cancellation is currently disabled")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "Only pending orders can be cancelled (order is %s)", order.Status)
	}

	previous := order.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).UpdateStatusIf(ctx, order.ID, []enums.OrderStatus{enums.OrderStatusPending}, enums.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if updated == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "Only pending orders can be cancelled")
		}
		order.Status = enums.OrderStatusCancelled
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:   enums.EventOrderCancelled,
			AggregateID: order.ID,
			Actor:       &outbox.ActorRef{UserID: userID, Role: enums.RoleCustomer},
			Data:        EventPayload(*order, sourceCustomer, &previous),
		})
	})
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*order)
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor *outbox.ActorRef) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		dto := ToDTO(*order)
		return &dto, nil
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is already %s", order.Status)
	}

	previous := order.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).UpdateStatusIf(ctx, order.ID, []enums.OrderStatus{previous}, status)
		if err != nil {
			return err
		}
		if updated == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently, reload and retry")
		}
		order.Status = status
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:   enums.EventOrderStatusUpdated,
			AggregateID: order.ID,
			Actor:       actor,
			Data:        EventPayload(*order, sourceAdmin, &previous),
		})
	})
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*order)
	return &dto, nil
}

func sessionConflict(err error) bool {
	return db.IsUniqueViolation(err, models.OrderStripeSessionIndex) ||
		db.IsUniqueViolation(err, models.OrderStripeSessionColumn)
}

func existingResult(order *models.Order) *OrderResult {
	return &OrderResult{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Total:         order.Total,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Existing:      true,
	}
}

// newOrderNumber renders ORD-YYYYMMDD-XXXXXX.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
