package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordering-backend/internal/orders"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/outbox"
	"github.com/angelmondragon/ordering-backend/pkg/tracing"
	"github.com/angelmondragon/ordering-backend/pkg/types"
)

// Outcomes reported per event.
const (
	OutcomeApplied   = "applied"
	OutcomeNoop      = "noop"
	OutcomeUnmatched = "unmatched"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type webhookMetrics interface {
	WebhookEvent(eventType, outcome string)
}

type ServiceParams struct {
	Orders  orders.Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Metrics webhookMetrics
	Logger  *logger.Logger
}

// Service reconciles order payment state from provider events.
type Service struct {
	orders  orders.Repository
	tx      txRunner
	outbox  outbox.Emitter
	metrics webhookMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		orders:  params.Orders,
		tx:      params.Tx,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    logg,
	}, nil
}

// locator identifies the order an event refers to.
type locator struct {
	orderID         *uuid.UUID
	sessionID       string
	paymentIntentID string
}

// transition is one payment state change plus the event it produces.
type transition struct {
	update orders.PaymentUpdate
	event  enums.OutboxEventType
}

var (
	markPaid = transition{
		update: orders.PaymentUpdate{
			To:         enums.PaymentStatusPaid,
			From:       enums.SourcesFor(enums.PaymentStatusPaid),
			StatusFrom: enums.OrderStatusPending,
			StatusTo:   enums.OrderStatusConfirmed,
		},
		event: enums.EventOrderPaid,
	}
	markFailed = transition{
		update: orders.PaymentUpdate{
			To:         enums.PaymentStatusFailed,
			From:       enums.SourcesFor(enums.PaymentStatusFailed),
			StatusFrom: enums.OrderStatusPending,
			StatusTo:   enums.OrderStatusCancelled,
		},
		event: enums.EventOrderPaymentFailed,
	}
	markRefunded = transition{
		update: orders.PaymentUpdate{
			To:   enums.PaymentStatusRefunded,
			From: enums.SourcesFor(enums.PaymentStatusRefunded),
		},
		event: enums.EventOrderRefunded,
	}
)

// HandleEvent applies a verified event. Events that match no order or have
// an unhandled type succeed without changes so the provider stops retrying.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (err error) {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "stripe event required")
	}
	ctx, span := tracing.StartSpan(ctx, "stripewebhook.HandleEvent",
		attribute.String("event_id", event.ID),
		attribute.String("event_type", string(event.Type)))
	outcome := OutcomeIgnored
	defer func() {
		if err != nil {
			outcome = OutcomeFailed
		}
		if s.metrics != nil {
			s.metrics.WebhookEvent(string(event.Type), outcome)
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		tracing.Fail(span, err)
		span.End()
	}()
	ctx = s.logg.WithEventID(ctx, event.ID)

	var (
		loc   locator
		trans transition
	)
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		sess, err := decode[stripe.CheckoutSession](event)
		if err != nil {
			return s.undecodable(ctx, event, err)
		}
		if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid && event.Type == stripe.EventTypeCheckoutSessionCompleted {
			s.logg.Info(ctx, fmt.Sprintf("session %s completed with payment %s; waiting for async result", sess.ID, sess.PaymentStatus))
			return nil
		}
		loc = locator{orderID: orderIDFrom(sess.Metadata), sessionID: sess.ID}
		trans = markPaid
		trans.update.PaymentIntentID = sessionPaymentIntent(sess)
	case stripe.EventTypeCheckoutSessionExpired:
		sess, err := decode[stripe.CheckoutSession](event)
		if err != nil {
			return s.undecodable(ctx, event, err)
		}
		loc = locator{orderID: orderIDFrom(sess.Metadata), sessionID: sess.ID}
		trans = markFailed
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decode[stripe.PaymentIntent](event)
		if err != nil {
			return s.undecodable(ctx, event, err)
		}
		loc = locator{orderID: orderIDFrom(intent.Metadata), paymentIntentID: intent.ID}
		trans = markPaid
		trans.update.PaymentIntentID = &intent.ID
	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decode[stripe.PaymentIntent](event)
		if err != nil {
			return s.undecodable(ctx, event, err)
		}
		loc = locator{orderID: orderIDFrom(intent.Metadata), paymentIntentID: intent.ID}
		trans = markFailed
	case stripe.EventTypeChargeRefunded:
		charge, err := decode[stripe.Charge](event)
		if err != nil {
			return s.undecodable(ctx, event, err)
		}
		if !charge.Refunded {
			s.logg.Info(ctx, fmt.Sprintf("charge %s partially refunded; payment status unchanged", charge.ID))
			return nil
		}
		loc = locator{orderID: orderIDFrom(charge.Metadata)}
		if charge.PaymentIntent != nil {
			loc.paymentIntentID = charge.PaymentIntent.ID
		}
		trans = markRefunded
	default:
		s.logg.Debug(ctx, "ignoring stripe event type "+string(event.Type))
		return nil
	}

	outcome, err = s.apply(ctx, string(event.Type), loc, trans)
	return err
}

func (s *Service) apply(ctx context.Context, source string, loc locator, trans transition) (string, error) {
	outcome := OutcomeNoop
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := s.locate(ctx, repo, loc)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				outcome = OutcomeUnmatched
				return nil
			}
			return err
		}
		ctx := s.logg.WithOrderID(ctx, order.ID.String())
		previous := order.Status

		rows, err := repo.ApplyPayment(ctx, order.ID, trans.update)
		if err != nil {
			return err
		}
		if rows == 0 {
			s.logg.Info(ctx, fmt.Sprintf("payment already %s; %s not applied", order.PaymentStatus, trans.update.To))
			return nil
		}

		updated, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		var prev *enums.OrderStatus
		if updated.Status != previous {
			prev = &previous
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     trans.event,
			AggregateType: enums.AggregateOrder,
			AggregateID:   updated.ID,
			Data:          orders.EventPayload(*updated, source, prev),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(trans.event))
		}
		outcome = OutcomeApplied
		s.logg.Info(ctx, fmt.Sprintf("payment status %s -> %s", order.PaymentStatus, updated.PaymentStatus))
		return nil
	})
	if err != nil {
		s.logg.Error(ctx, "apply payment event failed", err)
		return OutcomeFailed, err
	}
	if outcome == OutcomeUnmatched {
		s.logg.Warn(ctx, fmt.Sprintf("no order matches %s event (session=%q intent=%q)", source, loc.sessionID, loc.paymentIntentID))
	}
	return outcome, nil
}

func (s *Service) locate(ctx context.Context, repo orders.Repository, loc locator) (*models.Order, error) {
	if loc.orderID != nil {
		order, err := repo.FindByID(ctx, *loc.orderID)
		if err == nil || !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return order, err
		}
	}
	if loc.sessionID != "" {
		order, err := repo.FindBySessionID(ctx, loc.sessionID)
		if err == nil || !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return order, err
		}
	}
	if loc.paymentIntentID != "" {
		return repo.FindByPaymentIntentID(ctx, loc.paymentIntentID)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func decode[T any](event *stripe.Event) (*T, error) {
	var out T
	if event.Data == nil {
		return nil, fmt.Errorf("%s event carries no data", event.Type)
	}
	if err := json.Unmarshal(event.Data.Raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	return &out, nil
}

// undecodable acknowledges a signed event whose payload cannot be read.
// Redelivery would carry the same bytes, so it is logged and dropped.
func (s *Service) undecodable(ctx context.Context, event *stripe.Event, err error) error {
	s.logg.Error(ctx, "dropping undecodable "+string(event.Type)+" event", err)
	return nil
}

func orderIDFrom(metadata map[string]string) *uuid.UUID {
	raw := strings.TrimSpace(metadata[types.MetaOrderID])
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func sessionPaymentIntent(sess *stripe.CheckoutSession) *string {
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return nil
	}
	return &sess.PaymentIntent.ID
}
