// Package cache provides a Redis-backed cache for resolved actor details.
// Actor lookups sit on the hot path of every download, so a short TTL cache
// keeps round-trips to user management off repeated requests.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"civreg/internal/users"
	"civreg/pkg/platform/sentinel"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "civreg_actor_cache_lookups_total",
	Help: "Actor details cache lookups by kind and outcome",
}, []string{"kind", "outcome"})

const (
	userKeyPrefix   = "actor:user:"
	systemKeyPrefix = "actor:system:"
)

// RedisCache stores actor details in Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetUser(ctx context.Context, id string) (*users.User, error) {
	var user users.User
	if err := c.get(ctx, userKeyPrefix+id, "user", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *RedisCache) PutUser(ctx context.Context, user *users.User) error {
	return c.put(ctx, userKeyPrefix+user.ID, user)
}

func (c *RedisCache) GetSystem(ctx context.Context, id string) (*users.System, error) {
	var system users.System
	if err := c.get(ctx, systemKeyPrefix+id, "system", &system); err != nil {
		return nil, err
	}
	return &system, nil
}

func (c *RedisCache) PutSystem(ctx context.Context, system *users.System) error {
	return c.put(ctx, systemKeyPrefix+system.ID, system)
}

func (c *RedisCache) get(ctx context.Context, key, kind string, dst any) error {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		lookups.WithLabelValues(kind, "miss").Inc()
		return sentinel.ErrNotFound
	}
	if err != nil {
		lookups.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("actor cache get: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		lookups.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("actor cache decode: %w", err)
	}
	lookups.WithLabelValues(kind, "hit").Inc()
	return nil
}

func (c *RedisCache) put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("actor cache encode: %w", err)
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
