package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ordering-backend/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "checkout:user-1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.EqualValues(t, 1, count)
	require.Len(t, mock.expires, 1)
	assert.Equal(t, "ord:rate_limit:checkout:user-1", mock.expires[0])

	allowed, _, _ = client.FixedWindowAllow(ctx, "checkout:user-1", 2, time.Minute)
	assert.True(t, allowed)
	allowed, count, _ = client.FixedWindowAllow(ctx, "checkout:user-1", 2, time.Minute)
	assert.False(t, allowed)
	assert.EqualValues(t, 3, count)
	assert.Len(t, mock.expires, 1, "ttl is only set on the first hit")
}

func TestSetNXAndMiss(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.IdempotencyKey("stripe_webhook", "evt_1")

	ok, err := client.SetNX(ctx, key, "processing", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, key, "processing", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.True(t, IsMiss(err))
}

func TestDeleteIfValue(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	require.NoError(t, client.Set(ctx, "ord:lock:cron", "owner-a", time.Minute))

	deleted, err := client.DeleteIfValue(ctx, "ord:lock:cron", "owner-b")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Contains(t, mock.data, "ord:lock:cron")

	deleted, err = client.DeleteIfValue(ctx, "ord:lock:cron", "owner-a")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NotContains(t, mock.data, "ord:lock:cron")
}

func TestNilClient(t *testing.T) {
	var client *Client
	assert.ErrorIs(t, client.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "ord:idempotency:checkout:abc", client.IdempotencyKey("checkout", "abc"))
	assert.Equal(t, "ord:idempotency:checkout", client.IdempotencyKey("checkout", " "))
	assert.Equal(t, "ord:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "ord:cache:restaurant_settings", client.CacheKey("restaurant_settings"))
	assert.Equal(t, "ord:lock:cron", client.LockKey("cron"))
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://localhost:6379/2",
		PoolSize:    7,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
}

// mockCmdable keeps state in maps. EvalSha stands in for the only script the
// client runs, compare-and-delete.
type mockCmdable struct {
	redis.Scripter
	data    map[string]string
	counts  map[string]int64
	expires []string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := m.data[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *mockCmdable) Expire(_ context.Context, key string, _ time.Duration) *redis.BoolCmd {
	m.expires = append(m.expires, key)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) EvalSha(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	if v, ok := m.data[keys[0]]; ok && v == fmt.Sprint(args[0]) {
		delete(m.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}
