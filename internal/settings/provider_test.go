package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ordering-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/ordering-backend/pkg/errors"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
)

type stubLoader struct {
	row   models.RestaurantSettings
	err   error
	calls int
}

func (s *stubLoader) Load(context.Context) (models.RestaurantSettings, error) {
	s.calls++
	return s.row, s.err
}

type memoryCache struct {
	data   map[string]string
	getErr error
}

func newMemoryCache() *memoryCache { return &memoryCache{data: map[string]string{}} }

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memoryCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryCache) CacheKey(name string) string { return "ord:cache:" + name }

func TestProviderCachesSnapshot(t *testing.T) {
	loader := &stubLoader{row: models.RestaurantSettings{ID: 1, EnablePickup: true, DeliveryFee: decimal.RequireFromString("2.50")}}
	cache := newMemoryCache()
	provider, err := NewProvider(loader, cache, 30*time.Second, logger.Nop())
	require.NoError(t, err)

	first, err := provider.Current(context.Background())
	require.NoError(t, err)
	second, err := provider.Current(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, loader.calls)
	assert.True(t, second.DeliveryFee.Equal(first.DeliveryFee))
	assert.True(t, second.EnablePickup)

	require.NoError(t, provider.Invalidate(context.Background()))
	_, err = provider.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestProviderFallsBackWhenCacheFails(t *testing.T) {
	loader := &stubLoader{row: Defaults()}
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	provider, err := NewProvider(loader, cache, time.Minute, logger.Nop())
	require.NoError(t, err)

	row, err := provider.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, row.AllowOrderCancellation)
	assert.Equal(t, 1, loader.calls)
}

func TestProviderWithoutCache(t *testing.T) {
	loader := &stubLoader{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	provider, err := NewProvider(loader, nil, 0, nil)
	require.NoError(t, err)

	_, err = provider.Current(context.Background())
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	require.NoError(t, provider.Invalidate(context.Background()))

	_, err = NewProvider(nil, nil, 0, nil)
	assert.Error(t, err)
}

func TestRepositoryLoad(t *testing.T) {
	conn := dbtest.OpenSQLite(t)
	require.NoError(t, conn.AutoMigrate(&models.RestaurantSettings{}))
	repo := NewRepository(conn)

	row, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), row)

	email := "kitchen@example.com"
	require.NoError(t, conn.Create(&models.RestaurantSettings{
		ID:                models.SettingsRowID,
		RestaurantName:    "Luigi's",
		EnablePickup:      true,
		DeliveryFee:       decimal.RequireFromString("3.00"),
		NotificationEmail: &email,
	}).Error)
	// Create skips zero-value bools that carry a column default.
	require.NoError(t, conn.Model(&models.RestaurantSettings{}).
		Where("id = ?", models.SettingsRowID).
		Updates(map[string]any{"enable_delivery": false, "allow_order_cancellation": false}).Error)

	row, err = repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Luigi's", row.RestaurantName)
	assert.False(t, row.EnableDelivery)
	assert.True(t, row.EnablePickup)
	assert.False(t, row.AllowOrderCancellation)
	assert.True(t, row.DeliveryFee.Equal(decimal.RequireFromString("3.00")))
	require.NotNil(t, row.NotificationEmail)
	assert.Equal(t, email, *row.NotificationEmail)
}
