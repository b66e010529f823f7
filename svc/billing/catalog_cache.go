package billing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/billsync/pkg/cache"
	"github.com/dmitrymomot/billsync/pkg/logger"
	"github.com/dmitrymomot/billsync/pkg/redis"
	"github.com/dmitrymomot/billsync/pkg/subscription"
)

// ByteStore is a shared key/value cache, e.g. *redis.Storage.
type ByteStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedCatalog memoises catalog lookups in process and, optionally, in a
// shared store. Concurrent lookups of one price share a single query.
// Cache failures are logged and the underlying catalog is used instead.
// Empty results are not cached so newly published plans resolve at once.
type CachedCatalog struct {
	next      subscription.PlanCatalog
	remote    ByteStore
	remoteTTL time.Duration
	local     *cache.LRU[string, []subscription.Plan]
	group     singleflight.Group
	log       *slog.Logger
}

var _ subscription.PlanCatalog = (*CachedCatalog)(nil)

// CacheOption configures a CachedCatalog.
type CacheOption func(*CachedCatalog)

// WithRemoteCache shares lookups through store for ttl.
func WithRemoteCache(store ByteStore, ttl time.Duration) CacheOption {
	return func(c *CachedCatalog) {
		c.remote = store
		c.remoteTTL = ttl
	}
}

// WithLocalCache keeps up to size lookups in process for ttl.
func WithLocalCache(size int, ttl time.Duration, opts ...cache.Option) CacheOption {
	return func(c *CachedCatalog) {
		if size > 0 {
			c.local = cache.NewLRU[string, []subscription.Plan](size, ttl, opts...)
		}
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(log *slog.Logger) CacheOption {
	return func(c *CachedCatalog) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCachedCatalog wraps next. Panics if next is nil.
func NewCachedCatalog(next subscription.PlanCatalog, opts ...CacheOption) *CachedCatalog {
	if next == nil {
		panic("billing: plan catalog cannot be nil")
	}
	c := &CachedCatalog{
		next: next,
		log:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("catalog_cache"))
	return c
}

// FindByPriceID returns the cached lookup for priceID or queries the catalog.
func (c *CachedCatalog) FindByPriceID(ctx context.Context, priceID string) ([]subscription.Plan, error) {
	if c.local != nil {
		if plans, ok := c.local.Get(priceID); ok {
			return slices.Clone(plans), nil
		}
	}

	v, err, _ := c.group.Do(priceID, func() (any, error) {
		if plans, ok := c.fromRemote(ctx, priceID); ok {
			c.remember(priceID, plans)
			return plans, nil
		}

		plans, err := c.next.FindByPriceID(ctx, priceID)
		if err != nil {
			return nil, err
		}
		if len(plans) > 0 {
			c.toRemote(ctx, priceID, plans)
			c.remember(priceID, plans)
		}
		return plans, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]subscription.Plan)), nil
}

// Invalidate drops any cached lookup for priceID.
func (c *CachedCatalog) Invalidate(ctx context.Context, priceID string) error {
	if c.local != nil {
		c.local.Remove(priceID)
	}
	if c.remote == nil {
		return nil
	}
	return c.remote.Delete(ctx, cacheKey(priceID))
}

func (c *CachedCatalog) remember(priceID string, plans []subscription.Plan) {
	if c.local != nil {
		c.local.Put(priceID, plans)
	}
}

func (c *CachedCatalog) fromRemote(ctx context.Context, priceID string) ([]subscription.Plan, bool) {
	if c.remote == nil {
		return nil, false
	}
	data, err := c.remote.Get(ctx, cacheKey(priceID))
	if errors.Is(err, redis.ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		c.log.WarnContext(ctx, "plan cache read failed", logger.PriceID(priceID), logger.Error(err))
		return nil, false
	}
	var plans []subscription.Plan
	if err := json.Unmarshal(data, &plans); err != nil {
		c.log.WarnContext(ctx, "plan cache entry is corrupt", logger.PriceID(priceID), logger.Error(err))
		return nil, false
	}
	return plans, len(plans) > 0
}

func (c *CachedCatalog) toRemote(ctx context.Context, priceID string, plans []subscription.Plan) {
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(plans)
	if err != nil {
		c.log.WarnContext(ctx, "plan cache encode failed", logger.PriceID(priceID), logger.Error(err))
		return
	}
	if err := c.remote.Set(ctx, cacheKey(priceID), data, c.remoteTTL); err != nil {
		c.log.WarnContext(ctx, "plan cache write failed", logger.PriceID(priceID), logger.Error(err))
	}
}

func cacheKey(priceID string) string {
	return "plans:price:" + priceID
}
