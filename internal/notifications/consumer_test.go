package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ordering-backend/pkg/enums"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/outbox"
	"github.com/angelmondragon/ordering-backend/pkg/outbox/payloads"
)

type memoryGuard struct {
	seen map[string]bool
	err  error
}

func (g *memoryGuard) CheckAndMark(_ context.Context, id string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.seen[id] {
		return true, nil
	}
	g.seen[id] = true
	return false, nil
}

type recordingService struct {
	calls []enums.OutboxEventType
	err   error
}

func (s *recordingService) HandleOrderEvent(_ context.Context, eventType enums.OutboxEventType, _ payloads.OrderEvent) (string, error) {
	s.calls = append(s.calls, eventType)
	if s.err != nil {
		return "", s.err
	}
	return OutcomeSent, nil
}

func orderMessage(t *testing.T, eventID string, eventType enums.OutboxEventType) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payloads.OrderEvent{OrderID: uuid.New(), Status: enums.OrderStatusConfirmed})
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID, OccurredAt: time.Now(), Data: data})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:   "msg-" + eventID,
		Data: body,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(eventType),
			"aggregate_type": string(enums.AggregateOrder),
		},
	}
}

func TestConsumerHandlesEachEventOnce(t *testing.T) {
	svc := &recordingService{}
	c := &Consumer{svc: svc, guard: &memoryGuard{seen: map[string]bool{}}, logg: logger.Nop()}
	msg := orderMessage(t, uuid.NewString(), enums.EventOrderCreated)

	assert.Equal(t, OutcomeSent, c.process(context.Background(), msg))
	assert.Equal(t, "duplicate", c.process(context.Background(), msg))
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderCreated}, svc.calls)
}

func TestConsumerProceedsWhenGuardUnavailable(t *testing.T) {
	svc := &recordingService{}
	c := &Consumer{svc: svc, guard: &memoryGuard{err: errors.New("redis down")}, logg: logger.Nop()}

	assert.Equal(t, OutcomeSent, c.process(context.Background(), orderMessage(t, uuid.NewString(), enums.EventOrderStatusUpdated)))
	assert.Len(t, svc.calls, 1)
}

func TestConsumerReportsFailuresAndMalformedMessages(t *testing.T) {
	svc := &recordingService{err: errors.New("smtp down")}
	c := &Consumer{svc: svc, guard: &memoryGuard{seen: map[string]bool{}}, logg: logger.Nop()}

	assert.Equal(t, "failed", c.process(context.Background(), orderMessage(t, uuid.NewString(), enums.EventOrderCreated)))
	assert.Equal(t, "malformed", c.process(context.Background(), &pubsub.Message{ID: "bad", Data: []byte("{")}))
	assert.Equal(t, "malformed", c.process(context.Background(), &pubsub.Message{ID: "anon", Data: []byte(`{"version":1}`)}))

	other := orderMessage(t, uuid.NewString(), enums.EventOrderCreated)
	other.Attributes["aggregate_type"] = "store"
	assert.Equal(t, OutcomeIgnored, c.process(context.Background(), other))
	assert.Len(t, svc.calls, 1)
}
