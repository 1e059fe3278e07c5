// Package cache implements the view revalidation hook. The nextjs frontend
// keeps rendered pages in a shared redis cache keyed by view path; writes
// through the data service drop the stale keys and announce the path on a
// pub/sub channel so running frontend instances revalidate.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const revalidateChannel = "chinea:revalidate"

// Revalidator marks a named view path stale after a write.
type Revalidator interface {
	Revalidate(ctx context.Context, path string) error
}

// RedisRevalidator is the redis-backed Revalidator used in production.
type RedisRevalidator struct {
	client *redis.Client
	prefix string
}

// NewRedisRevalidator connects a revalidator to the given redis instance.
func NewRedisRevalidator(addr, password string, db int) *RedisRevalidator {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisRevalidator{
		client: client,
		prefix: "chinea:view:",
	}
}

// Revalidate deletes the cached view entry and publishes the path.
func (r *RedisRevalidator) Revalidate(ctx context.Context, path string) error {
	if err := r.client.Del(ctx, r.prefix+path).Err(); err != nil {
		return fmt.Errorf("failed to drop cached view %s: %w", path, err)
	}
	if err := r.client.Publish(ctx, revalidateChannel, path).Err(); err != nil {
		return fmt.Errorf("failed to publish revalidation for %s: %w", path, err)
	}
	return nil
}

// Ping verifies the redis connection, used by the health check.
func (r *RedisRevalidator) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the redis connection.
func (r *RedisRevalidator) Close() error {
	return r.client.Close()
}

// NoopRevalidator is used when no redis address is configured and in tests.
type NoopRevalidator struct{}

// Revalidate does nothing.
func (NoopRevalidator) Revalidate(context.Context, string) error {
	return nil
}
