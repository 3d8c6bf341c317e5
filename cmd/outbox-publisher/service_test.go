package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordering-backend/pkg/config"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/enums"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/outbox"
	"github.com/angelmondragon/ordering-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/ordering-backend/pkg/outbox/registry"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			orderEvent(t, enums.EventOrderCreated, 0),
			orderEvent(t, enums.EventOrderPaid, 0),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	counts := &countingMetrics{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: orderResolved()}, counts, nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	require.Len(t, repo.failed, 1)
	require.Len(t, repo.published, 1)
	assert.Equal(t, repo.events[0].ID, repo.failed[0])
	assert.Equal(t, repo.events[1].ID, repo.published[0])
	assert.Equal(t, map[string]int{outcomeRetry: 1, outcomePublished: 1}, counts.outcomes)
}

func TestPublishCarriesRoutingAttributes(t *testing.T) {
	event := orderEvent(t, enums.EventOrderStatusUpdated, 0)
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, &fakeRepo{events: []models.OutboxEvent{event}}, pub, &fakeRegistry{resolved: orderResolved()}, nil, nil)

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)

	msg := pub.messages[0]
	assert.Equal(t, []byte(event.Payload), msg.Data)
	assert.Equal(t, string(enums.EventOrderStatusUpdated), msg.Attributes["event_type"])
	assert.Equal(t, string(enums.AggregateOrder), msg.Attributes["aggregate_type"])
	assert.Equal(t, event.AggregateID.String(), msg.Attributes["aggregate_id"])
	assert.Equal(t, event.ID.String(), msg.Attributes["event_id"])
}

func TestServiceProcessBatchParksNonRetryable(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	counts := &countingMetrics{}
	service := newTestService(t, repo, &fakePublisher{}, reg, counts, nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	assert.Empty(t, repo.published)
	assert.Equal(t, 1, counts.outcomes[outcomeTerminal])
}

func TestServiceProcessBatchParksAtMaxAttempts(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: orderResolved()}, nil, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	assert.Empty(t, repo.failed)
}

func TestServiceProcessBatchMissingPublisherIsTerminal(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	service := newTestService(t, repo, nil, &fakeRegistry{resolved: orderResolved()}, nil, nil)
	service.publisherFactory = func(string) publisher { return nil }

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
}

func TestDeliveryFieldsCountTheFailedAttempt(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, nil, &fakeRegistry{}, nil, nil)
	event := orderEvent(t, enums.EventOrderPaid, 3)

	retry := service.fields(delivery{event: event, outcome: outcomeRetry, err: errors.New("timeout"), topic: "domain-topic"})
	assert.Equal(t, 4, retry["attempt_count"])
	assert.Equal(t, "timeout", retry["error"])
	assert.Equal(t, "domain-topic", retry["topic"])
	assert.NotContains(t, retry, "terminal_reason")

	published := service.fields(delivery{event: event, outcome: outcomePublished})
	assert.Equal(t, 3, published["attempt_count"])
	assert.NotContains(t, published, "error")
}

func TestTopicPublishersSkipsUnknownTopic(t *testing.T) {
	factory := topicPublishers(&fakePubSubClient{})
	assert.Nil(t, factory("missing"))
}

func TestNextBackoffCaps(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(500*time.Millisecond, 500*time.Millisecond, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(8*time.Second, 500*time.Millisecond, maxBackoff))
	assert.Equal(t, time.Second, nextBackoff(0, 500*time.Millisecond, maxBackoff))
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, m publishMetrics, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	params := ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logger.Nop(),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		PublisherFactory: func(string) publisher { return pub },
		Metrics:          m,
	}
	service, err := NewService(params)
	require.NoError(t, err)
	return service
}

func orderEvent(tb testing.TB, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	tb.Helper()
	id := uuid.New()
	data, err := json.Marshal(payloads.OrderEvent{OrderID: id, Status: enums.OrderStatusPending})
	require.NoError(tb, err)
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	})
	require.NoError(tb, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   id,
		Payload:       env,
		AttemptCount:  attempts,
		CreatedAt:     time.Now(),
	}
}

func orderResolved() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "domain-topic",
			AggregateType: enums.AggregateOrder,
		},
		Payload: &payloads.OrderEvent{},
	}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error            { return nil }
func (f *fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

type countingMetrics struct {
	outcomes map[string]int
}

func (c *countingMetrics) OutboxPublish(outcome string) {
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[outcome]++
}
