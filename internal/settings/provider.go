package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/ordering-backend/pkg/db/models"
	"github.com/angelmondragon/ordering-backend/pkg/logger"
	"github.com/angelmondragon/ordering-backend/pkg/redis"
)

const cacheName = "restaurant_settings"

type loader interface {
	Load(ctx context.Context) (models.RestaurantSettings, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(name string) string
}

// Provider loads the settings snapshot handed to each request. Callers pass
// the snapshot down explicitly; nothing holds it globally.
type Provider struct {
	repo  loader
	cache cacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewProvider builds a provider; a nil cache or zero ttl disables caching.
func NewProvider(repo loader, cache cacheStore, ttl time.Duration, logg *logger.Logger) (*Provider, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &Provider{repo: repo, cache: cache, ttl: ttl, logg: logg}, nil
}

// Current returns the settings, served from cache when fresh. Cache
// failures fall through to the database.
func (p *Provider) Current(ctx context.Context) (models.RestaurantSettings, error) {
	if p.cacheEnabled() {
		if cached, ok := p.fromCache(ctx); ok {
			return cached, nil
		}
	}
	row, err := p.repo.Load(ctx)
	if err != nil {
		return models.RestaurantSettings{}, err
	}
	if p.cacheEnabled() {
		p.store(ctx, row)
	}
	return row, nil
}

// Invalidate drops the cached snapshot.
func (p *Provider) Invalidate(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Del(ctx, p.cache.CacheKey(cacheName))
}

func (p *Provider) cacheEnabled() bool {
	return p.cache != nil && p.ttl > 0
}

func (p *Provider) fromCache(ctx context.Context) (models.RestaurantSettings, bool) {
	raw, err := p.cache.Get(ctx, p.cache.CacheKey(cacheName))
	if err != nil {
		if !redis.IsMiss(err) && p.logg != nil {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "settings cache read failed")
		}
		return models.RestaurantSettings{}, false
	}
	var row models.RestaurantSettings
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return models.RestaurantSettings{}, false
	}
	return row, true
}

func (p *Provider) store(ctx context.Context, row models.RestaurantSettings) {
	raw, err := json.Marshal(row)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, p.cache.CacheKey(cacheName), string(raw), p.ttl); err != nil && p.logg != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "settings cache write failed")
	}
}
