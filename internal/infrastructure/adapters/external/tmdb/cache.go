package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/narwhalmedia/availability/internal/application/availability"
	"github.com/narwhalmedia/availability/pkg/config"
	"github.com/narwhalmedia/availability/pkg/interfaces"
)

// Store is the subset of the redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedProvider caches metadata lookups in redis. Cache failures are logged
// and the lookup falls through to the wrapped provider.
type CachedProvider struct {
	next   availability.MetadataProvider
	store  Store
	ttl    time.Duration
	logger interfaces.Logger
}

// NewCachedProvider wraps next with a redis cache.
func NewCachedProvider(next availability.MetadataProvider, store Store, ttl time.Duration, logger interfaces.Logger) *CachedProvider {
	return &CachedProvider{next: next, store: store, ttl: ttl, logger: logger}
}

// GetMovieMetadata returns cached movie metadata, fetching it on a miss.
func (p *CachedProvider) GetMovieMetadata(ctx context.Context, tmdbID int) (*availability.Metadata, error) {
	return p.lookup(ctx, fmt.Sprintf("tmdb:movie:%d", tmdbID), func() (*availability.Metadata, error) {
		return p.next.GetMovieMetadata(ctx, tmdbID)
	})
}

// GetSeriesMetadata returns cached series metadata, fetching it on a miss.
func (p *CachedProvider) GetSeriesMetadata(ctx context.Context, tmdbID int) (*availability.Metadata, error) {
	return p.lookup(ctx, fmt.Sprintf("tmdb:tv:%d", tmdbID), func() (*availability.Metadata, error) {
		return p.next.GetSeriesMetadata(ctx, tmdbID)
	})
}

func (p *CachedProvider) lookup(ctx context.Context, key string, fetch func() (*availability.Metadata, error)) (*availability.Metadata, error) {
	raw, err := p.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var metadata *availability.Metadata
		if jsonErr := json.Unmarshal(raw, &metadata); jsonErr == nil && metadata != nil {
			return metadata, nil
		}
		p.logger.Warn("discarding malformed cache entry", interfaces.String("key", key))
	case !errors.Is(err, redis.Nil):
		p.logger.Warn("metadata cache read failed", interfaces.String("key", key), interfaces.Error(err))
	}

	metadata, err := fetch()
	if err != nil || metadata == nil {
		return metadata, err
	}

	if raw, err := json.Marshal(metadata); err == nil {
		if err := p.store.Set(ctx, key, raw, p.ttl).Err(); err != nil {
			p.logger.Warn("metadata cache write failed", interfaces.String("key", key), interfaces.Error(err))
		}
	}
	return metadata, nil
}

// NewRedisClient connects to redis and pings it.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}
