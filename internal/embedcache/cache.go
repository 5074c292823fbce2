package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/vectorflow/embedbatch/internal/cache"
)

// Cache is a Redis-backed embedding cache keyed by sha256(model, input). It
// implements batch.Cache structurally. A miss or a Redis outage is always
// reported as "not cached," never surfaced as an error: caching is a pure
// throughput optimization and must never be allowed to fail a request.
type Cache struct {
	manager *cache.Manager
	ttl     time.Duration
	logger  *zap.Logger
}

type entry struct {
	Embedding []float64 `json:"embedding"`
}

// New builds a Cache on top of an already-connected manager. ttl governs
// how long an embedding stays cached; logger may be zap.NewNop().
func New(manager *cache.Manager, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{manager: manager, ttl: ttl, logger: logger}
}

func key(model, input string) string {
	h := sha256.Sum256([]byte(model + "|" + input))
	return "embedproxy:cache:" + hex.EncodeToString(h[:16])
}

// Get returns the cached embedding for (model, input), if present.
func (c *Cache) Get(ctx context.Context, model, input string) ([]float64, bool) {
	var e entry
	if err := c.manager.GetJSON(ctx, key(model, input), &e); err != nil {
		if !cache.IsCacheMiss(err) {
			c.logger.Debug("embedding cache get failed", zap.Error(err))
		}
		return nil, false
	}
	return e.Embedding, true
}

// Set stores embedding under (model, input). Failures are logged and
// otherwise ignored.
func (c *Cache) Set(ctx context.Context, model, input string, embedding []float64) {
	if err := c.manager.SetJSON(ctx, key(model, input), entry{Embedding: embedding}, c.ttl); err != nil {
		c.logger.Debug("embedding cache set failed", zap.Error(err))
	}
}
