package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/outbox/registry"
)

// Publish outcomes reported to metrics.
const (
	outcomePublished = "published"
	outcomeRetry     = "retry"
	outcomeTerminal  = "terminal"
)

const (
	reasonNonRetryable = "non_retryable"
	reasonMaxAttempts  = "max_attempts"
)

// delivery is the result of one publish attempt before it is recorded.
type delivery struct {
	event   models.OutboxEvent
	topic   string
	eventID string
	outcome string
	reason  string
	err     error
}

// processBatch claims a batch under FOR UPDATE SKIP LOCKED and records every
// delivery in the same transaction. It reports whether any rows were claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	claimed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(events) > 0
		for _, event := range events {
			if err := s.record(ctx, tx, s.deliver(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) delivery {
	d := delivery{event: event}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		d.outcome, d.reason, d.err = outcomeTerminal, reasonNonRetryable, err
		return d
	}
	d.topic = resolved.Descriptor.Topic
	d.eventID = resolved.Envelope.EventID

	err = s.send(ctx, event, resolved)
	var nonRetry registry.NonRetryableError
	switch {
	case err == nil:
		d.outcome = outcomePublished
	case errors.As(err, &nonRetry):
		d.outcome, d.reason, d.err = outcomeTerminal, reasonNonRetryable, err
	case event.AttemptCount+1 >= s.maxAttempts:
		d.outcome, d.reason = outcomeTerminal, reasonMaxAttempts
		d.err = fmt.Errorf("max publish attempts reached: %w", err)
	default:
		d.outcome, d.err = outcomeRetry, err
	}
	return d
}

func (s *Service) send(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, buildMessage(event, resolved))
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// record writes the delivery back to the outbox row. Terminal rows are parked
// at the attempt ceiling with their payload and last_error intact.
func (s *Service) record(ctx context.Context, tx *gorm.DB, d delivery) error {
	id := d.event.ID
	logCtx := s.logg.WithFields(ctx, s.fields(d))

	var err error
	switch d.outcome {
	case outcomePublished:
		err = s.repo.MarkPublishedTx(tx, id)
		s.logg.Info(logCtx, "outbox event published")
	case outcomeRetry:
		err = s.repo.MarkFailedTx(tx, id, d.err)
		s.logg.Warn(logCtx, "outbox publish failed")
	default:
		err = s.repo.MarkTerminalTx(tx, id, d.err, s.maxAttempts)
		s.logg.Warn(logCtx, "outbox event will not be retried")
	}
	if err != nil {
		return fmt.Errorf("mark %s %s: %w", d.outcome, id, err)
	}
	if s.metrics != nil {
		s.metrics.OutboxPublish(d.outcome)
	}
	return nil
}

func (s *Service) fields(d delivery) map[string]any {
	attempts := d.event.AttemptCount
	if d.outcome != outcomePublished {
		attempts++
	}
	f := map[string]any{
		"outbox_id":      d.event.ID.String(),
		"event_type":     d.event.EventType,
		"aggregate_type": d.event.AggregateType,
		"aggregate_id":   d.event.AggregateID.String(),
		"attempt_count":  attempts,
		"outcome":        d.outcome,
		"age_ms":         time.Since(d.event.CreatedAt).Milliseconds(),
	}
	if d.topic != "" {
		f["topic"] = d.topic
	}
	if d.eventID != "" {
		f["event_id"] = d.eventID
	}
	if d.reason != "" {
		f["terminal_reason"] = d.reason
	}
	if d.err != nil {
		f["error"] = d.err.Error()
	}
	return f
}
