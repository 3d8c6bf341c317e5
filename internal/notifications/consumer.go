package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/ordering-backend/pkg/enums"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/outbox"
	"github.com/angelmondragon/ordering-backend/pkg/outbox/payloads"
)

// ConsumerName scopes the idempotency marks of this consumer.
const ConsumerName = "order-notifications"

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
}

type notifyMetrics interface {
	NotificationResult(outcome string)
}

// Consumer reads order events from the domain subscription. Email is best
// effort: every message is acked after a single attempt.
type Consumer struct {
	svc          Service
	subscription *pubsub.Subscriber
	guard        eventGuard
	metrics      notifyMetrics
	logg         *logger.Logger
}

func NewConsumer(svc Service, subscription *pubsub.Subscriber, guard eventGuard, metrics notifyMetrics, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:          svc,
		subscription: subscription,
		guard:        guard,
		metrics:      metrics,
		logg:         logg,
	}, nil
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		outcome := c.process(ctx, msg)
		if c.metrics != nil {
			c.metrics.NotificationResult(outcome)
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) string {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if msg.Attributes["aggregate_type"] != "" && msg.Attributes["aggregate_type"] != string(enums.AggregateOrder) {
		return OutcomeIgnored
	}

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "decode event envelope", err)
		return "malformed"
	}
	logCtx = c.logg.WithEventID(logCtx, envelope.EventID)

	seen, err := c.guard.CheckAndMark(ctx, envelope.EventID)
	if err != nil {
		c.logg.Warn(logCtx, "notification idempotency check failed: "+err.Error())
	} else if seen {
		c.logg.Debug(logCtx, "event already handled")
		return "duplicate"
	}

	var payload payloads.OrderEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "decode order event", err)
		return "malformed"
	}
	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID.String())

	outcome, err := c.svc.HandleOrderEvent(logCtx, eventType, payload)
	if err != nil {
		c.logg.Error(logCtx, "order email failed", err)
		return "failed"
	}
	return outcome
}
