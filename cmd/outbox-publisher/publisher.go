package main

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/outbox/registry"
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// topicPublishers caches one publisher per topic so batching inside the
// Pub/Sub client survives across poll cycles.
func topicPublishers(client pubSubClient) publisherFactory {
	cache := map[string]publisher{}
	return func(topic string) publisher {
		if p, ok := cache[topic]; ok {
			return p
		}
		raw := client.Publisher(topic)
		if raw == nil {
			return nil
		}
		p := gcpPublisher{raw: raw}
		cache[topic] = p
		return p
	}
}

type gcpPublisher struct {
	raw *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	res := p.raw.Publish(ctx, msg)
	if res == nil {
		return nil
	}
	return gcpResult{raw: res}
}

type gcpResult struct {
	raw *gcppubsub.PublishResult
}

func (r gcpResult) Get(ctx context.Context) (string, error) {
	if r.raw == nil {
		return "", errors.New("publish result is nil")
	}
	return r.raw.Get(ctx)
}

// buildMessage copies the stored envelope verbatim; consumers route on the
// attributes without decoding the body.
func buildMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}
