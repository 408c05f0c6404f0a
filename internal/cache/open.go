package cache

import (
	"context"
	"strings"

	"insightql/internal/domain"
)

// Open returns the store for a cache URL: memory:// (or empty) for the
// in-process store, redis:// or rediss:// for Redis.
func Open(ctx context.Context, rawURL string) (domain.Cache, error) {
	switch {
	case rawURL == "" || strings.HasPrefix(rawURL, "memory://"):
		return NewMemory(), nil
	case strings.HasPrefix(rawURL, "redis://"), strings.HasPrefix(rawURL, "rediss://"):
		return OpenRedis(ctx, rawURL)
	default:
		return nil, domain.ErrValidation("unsupported cache URL %q (want memory:// or redis://)", rawURL)
	}
}
