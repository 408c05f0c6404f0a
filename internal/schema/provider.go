package schema

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"insightql/internal/cache"
	"insightql/internal/domain"
)

// DatabaseHash returns the first 16 hex characters of the SHA-256 of the
// database URL. It identifies the database in schema cache keys.
func DatabaseHash(databaseURL string) string {
	sum := sha256.Sum256([]byte(databaseURL))
	return hex.EncodeToString(sum[:])[:16]
}

// Provider returns the schema of one database, extracting it at most once per
// cache lifetime.
type Provider struct {
	extractor domain.SchemaExtractor
	cache     domain.Cache
	hash      string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewProvider creates a Provider. When permanent is true cached schemas never
// expire; otherwise they live for ttl. cache may be nil.
func NewProvider(extractor domain.SchemaExtractor, c domain.Cache, databaseURL string, ttl time.Duration, permanent bool, logger *slog.Logger) *Provider {
	if permanent {
		ttl = 0
	}
	return &Provider{
		extractor: extractor,
		cache:     c,
		hash:      DatabaseHash(databaseURL),
		ttl:       ttl,
		logger:    logger.With("component", "schema"),
	}
}

// CacheKey returns the key the schema is stored under.
func (p *Provider) CacheKey() string {
	return cache.Key(cache.PrefixSchema, p.hash)
}

// Get returns the cached schema, or extracts and caches it on a miss.
// Cache failures are logged and treated as a miss.
func (p *Provider) Get(ctx context.Context) (*domain.Schema, error) {
	if p.cache != nil {
		raw, ok, err := p.cache.Get(ctx, p.CacheKey())
		switch {
		case err != nil:
			p.logger.Warn("schema cache read failed", "error", err)
		case ok:
			var s domain.Schema
			if err := json.Unmarshal(raw, &s); err == nil {
				p.logger.Debug("schema cache hit", "database_hash", p.hash)
				return &s, nil
			}
			p.logger.Warn("discarding undecodable cached schema", "error", err)
		}
	}
	return p.Refresh(ctx)
}

// Refresh extracts the schema unconditionally and overwrites the cached copy.
func (p *Provider) Refresh(ctx context.Context) (*domain.Schema, error) {
	start := time.Now()
	s, err := p.extractor.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract schema: %w", err)
	}
	s.DatabaseHash = p.hash
	p.logger.Info("schema extracted", "tables", len(s.Tables), "duration", time.Since(start))

	if p.cache != nil {
		raw, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("encode schema: %w", err)
		}
		if err := p.cache.Set(ctx, p.CacheKey(), raw, p.ttl); err != nil {
			p.logger.Warn("schema cache write failed", "error", err)
		}
	}
	return s, nil
}
