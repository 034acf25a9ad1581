// Package cache is the read-through redis cache for published pages.
package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/common/metrics"
	"site-cms/internal/models"
	"site-cms/internal/store"
)

const (
	DefaultTTL    = 60 * time.Second
	DefaultPrefix = "cms:page:"
)

// PageCache stores resolved public pages keyed by slug. Only published
// aggregates are ever written.
type PageCache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	log    logger.Logger
}

func NewPageCache(client redis.Cmdable, ttl time.Duration, prefix string, log logger.Logger) *PageCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &PageCache{client: client, ttl: ttl, prefix: prefix, log: log}
}

func (c *PageCache) key(slug string) string {
	return c.prefix + slug
}

// Get returns (nil, false, nil) on a miss.
func (c *PageCache) Get(ctx context.Context, slug string) (*models.PageWithSections, bool, error) {
	data, err := c.client.Get(ctx, c.key(slug)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false, errors.NewCacheError("get", err)
	}

	var agg models.PageWithSections
	if err := json.Unmarshal(data, &agg); err != nil {
		// a corrupt entry is treated as a miss and dropped
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		c.log.Warn("dropping undecodable cache entry", map[string]interface{}{"slug": slug, "error": err.Error()})
		_ = c.client.Del(ctx, c.key(slug)).Err()
		return nil, false, nil
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &agg, true, nil
}

func (c *PageCache) Set(ctx context.Context, agg *models.PageWithSections) error {
	if agg == nil || agg.Page == nil {
		return nil
	}
	data, err := json.Marshal(agg)
	if err != nil {
		return errors.NewCacheError("set", err)
	}
	if err := c.client.Set(ctx, c.key(agg.Page.Slug), data, c.ttl).Err(); err != nil {
		return errors.NewCacheError("set", err)
	}
	return nil
}

func (c *PageCache) Invalidate(ctx context.Context, slugs ...string) error {
	if len(slugs) == 0 {
		return nil
	}
	keys := make([]string, len(slugs))
	for i, s := range slugs {
		keys[i] = c.key(s)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.NewCacheError("invalidate", err)
	}
	return nil
}

func (c *PageCache) Name() string { return "page-cache" }

// PageChanged drops every slug a committed write touched.
func (c *PageCache) PageChanged(ctx context.Context, change store.Change) error {
	return c.Invalidate(ctx, change.Slugs()...)
}
