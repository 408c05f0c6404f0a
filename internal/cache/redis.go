package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"insightql/internal/domain"
)

// Compile-time check.
var _ domain.Cache = (*Redis)(nil)

// scanBatch is the COUNT hint for SCAN during prefix deletion.
const scanBatch = 500

// Redis stores entries in a Redis server.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps an existing client. Close closes the client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// OpenRedis parses a redis:// or rediss:// URL and verifies the server with PING.
func OpenRedis(ctx context.Context, rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, domain.ErrValidation("invalid redis URL: %v", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client), nil
}

// Get returns the value for key if present.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set stores value under key. A ttl <= 0 stores without expiry.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key and reports whether it existed.
func (r *Redis) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return n > 0, nil
}

// DeletePrefix removes every key matching prefix*. The keyspace is scanned to
// completion before anything is deleted so the SCAN cursor never skips keys.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan: %w", err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			break
		}
		cursor = next
	}

	deleted := 0
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		n, err := r.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis del: %w", err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
