package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/tramhuong/internal/cart"
)

const defaultTTL = 15 * time.Minute

// RedisCache is a CartCache backed by Redis. TTLs carry up to a minute of
// jitter so entries written together do not expire together.
type RedisCache struct {
	client  redis.Cmdable
	baseTTL time.Duration
}

// Compile-time check that RedisCache implements CartCache.
var _ CartCache = (*RedisCache)(nil)

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{client: client, baseTTL: ttl}
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *RedisCache) Get(ctx context.Context, session cart.SessionID) (*cart.Snapshot, error) {
	data, err := r.client.Get(ctx, cacheKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snap cart.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if snap.Items == nil {
		snap.Items = []cart.Item{}
	}
	return &snap, nil
}

func (r *RedisCache) Set(ctx context.Context, snap cart.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	ttl := r.baseTTL + time.Duration(rand.Int64N(int64(time.Minute)))
	if err := r.client.Set(ctx, cacheKey(snap.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, session cart.SessionID) error {
	if err := r.client.Del(ctx, cacheKey(session)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(session cart.SessionID) string {
	return fmt.Sprintf("cart:%s", session)
}
