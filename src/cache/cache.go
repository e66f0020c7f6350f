package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// -----------------------------------------------------------------------------
// ResultCache
// -----------------------------------------------------------------------------

// FetchFunc produces the value for a cache miss.
type FetchFunc func() (interface{}, error)

// ResultCache is a time-bounded LRU keyed by full request parameters.
// Expired entries behave as absent; capacity overflow evicts the least
// recently used entry regardless of age. Concurrent misses on one key are
// coalesced into a single upstream fetch whose result (or failure) is
// delivered to every waiter. Failures are never stored.
type ResultCache struct {
	lru   *expirable.LRU[string, interface{}]
	group singleflight.Group
}

// -----------------------------------------------------------------------------

func NewResultCache(size int, ttl time.Duration) *ResultCache {
	return &ResultCache{
		lru: expirable.NewLRU[string, interface{}](size, nil, ttl),
	}
}

// -----------------------------------------------------------------------------

// GetOrFetch returns the live entry for key, or invokes fetch exactly once
// across all concurrent callers and stores its result.
func (c *ResultCache) GetOrFetch(key string, fetch FetchFunc) (interface{}, error) {
	if value, ok := c.lru.Get(key); ok {
		return value, nil
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A winner may have stored the value while we waited on the group.
		if value, ok := c.lru.Get(key); ok {
			return value, nil
		}

		value, err := fetch()
		if err != nil {
			return nil, err
		}

		c.lru.Add(key, value)
		return value, nil
	})

	return value, err
}

// -----------------------------------------------------------------------------

// Peek reports whether a live entry exists without touching recency.
func (c *ResultCache) Peek(key string) bool {
	_, ok := c.lru.Peek(key)
	return ok
}

// -----------------------------------------------------------------------------

// Len returns the number of stored entries, expired ones included until
// their next sweep.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// -----------------------------------------------------------------------------

// Purge drops every entry.
func (c *ResultCache) Purge() {
	c.lru.Purge()
}
