package cache

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/jon4hz/wanderlust/internal/config"
	"github.com/jon4hz/wanderlust/internal/database"
)

// Cache key prefixes.
const (
	FeedCachePrefix = "wanderlust-feed-"
)

const feedKey = "all"

// FeedCache holds the shared story feed between mutations.
// Failures are logged and treated as misses.
//
// Every Invalidate bumps a generation counter. A feed read before an
// Invalidate carries the older generation and is never written back.
type FeedCache struct {
	stories *PrefixedCache[[]database.Story]
	ttl     time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewFeedCache creates the feed cache for the configured store.
func NewFeedCache(cfg *config.CacheConfig) *FeedCache {
	return &FeedCache{
		stories: NewPrefixedCache[[]database.Story](
			newCacheInstanceByType(cfg),
			cfg.Type,
			FeedCachePrefix,
		),
		ttl: cfg.TTL,
	}
}

// Get returns the cached feed, if any.
func (f *FeedCache) Get(ctx context.Context) ([]database.Story, bool) {
	stories, err := f.stories.Get(ctx, feedKey)
	if err != nil {
		log.Debug("feed cache miss", "error", err)
		return nil, false
	}
	return stories, true
}

// Generation returns the current generation. Take it before reading the feed
// from the database and hand it to Set.
func (f *FeedCache) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation
}

// Set stores the feed unless the cache was invalidated since generation gen.
func (f *FeedCache) Set(ctx context.Context, gen uint64, stories []database.Story) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		log.Debug("skipping stale feed", "generation", gen, "current", f.generation)
		return
	}

	var opts []store.Option
	if f.ttl > 0 {
		opts = append(opts, store.WithExpiration(f.ttl))
	}
	if err := f.stories.Set(ctx, feedKey, stories, opts...); err != nil {
		log.Warn("failed to cache feed", "error", err)
	}
}

// Invalidate drops the cached feed.
func (f *FeedCache) Invalidate(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation++
	if err := f.stories.Delete(ctx, feedKey); err != nil {
		log.Warn("failed to invalidate feed cache", "error", err)
	}
}

type Stats struct {
	*codec.Stats
	CacheName string `json:"cacheName"`
	CacheType string `json:"cacheType"`
}

// GetStats returns the hit and miss counters of the feed cache.
func (f *FeedCache) GetStats() *Stats {
	return &Stats{
		Stats:     f.stories.GetStats(),
		CacheName: "feed",
		CacheType: string(f.stories.GetType()),
	}
}
