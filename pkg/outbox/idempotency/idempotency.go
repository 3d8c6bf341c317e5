package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/ordering-backend/pkg/redis"
)

// Manager records processed event ids per consumer using Redis SETNX with a TTL.
// Keys follow `ord:idempotency:evt:processed:<consumer>:<event_id>`. Both the
// payment webhook (provider event ids) and the Pub/Sub workers (outbox event
// ids) go through it.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true when eventID was already seen by consumer and
// otherwise marks it.
func (m *Manager) CheckAndMark(ctx context.Context, consumer, eventID string) (bool, error) {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release forgets the mark so a redelivery can run again.
func (m *Manager) Release(ctx context.Context, consumer, eventID string) error {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// Scoped binds the manager to one consumer name.
func (m *Manager) Scoped(consumer string) *Guard {
	return &Guard{manager: m, consumer: consumer}
}

func (m *Manager) processedKey(consumer, eventID string) (string, error) {
	if strings.TrimSpace(consumer) == "" {
		return "", errors.New("consumer name is required")
	}
	if strings.TrimSpace(eventID) == "" {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(fmt.Sprintf("evt:processed:%s", consumer), eventID), nil
}

// Guard is a Manager bound to a consumer.
type Guard struct {
	manager  *Manager
	consumer string
}

func (g *Guard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	return g.manager.CheckAndMark(ctx, g.consumer, eventID)
}

func (g *Guard) Delete(ctx context.Context, eventID string) error {
	return g.manager.Release(ctx, g.consumer, eventID)
}
