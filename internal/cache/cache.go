// Package cache holds materialized query results keyed by their exact SQL
// text. Entries expire a fixed time after they are written and the cache is
// bounded in size. Loads are single-flight: for a given key at most one
// loader runs at a time and concurrent callers share its outcome.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"bq-bridge/internal/domain"
)

// Defaults used when Config fields are zero.
const (
	DefaultMaxEntries = 1000
	DefaultTTL        = 15 * time.Minute
)

// Config configures a Cache.
type Config struct {
	MaxEntries int
	TTL        time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Loader computes the value for a missing key.
type Loader func(ctx context.Context) (*domain.TableInfo, error)

type entry struct {
	key       string
	value     *domain.TableInfo
	expiresAt time.Time
}

// Cache maps query text to the descriptor of its materialized table.
type Cache struct {
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // oldest write at the front

	group singleflight.Group
}

// New creates a Cache.
func New(cfg Config) *Cache {
	c := &Cache{
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		now:        cfg.Now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
	if c.maxEntries <= 0 {
		c.maxEntries = DefaultMaxEntries
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Get returns the live entry for key.
func (c *Cache) Get(key string) (*domain.TableInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache) getLocked(key string) (*domain.TableInfo, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if !c.now().Before(e.expiresAt) {
		c.removeLocked(el)
		return nil, false
	}
	return e.value, true
}

// Put stores value under key, replacing any previous entry and resetting its expiry.
func (c *Cache) Put(key string, value *domain.TableInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
	c.entries[key] = c.order.PushBack(&entry{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
	c.evictLocked()
}

// GetOrCompute returns the cached value for key, or runs load and caches its
// result. Concurrent calls for the same key wait for the first caller's load
// and receive the same value or the same error. Errors are not cached.
//
// The load runs detached from ctx cancellation: a caller whose ctx ends stops
// waiting and returns ctx.Err(), while the load keeps going for the others.
func (c *Cache) GetOrCompute(ctx context.Context, key string, load Loader) (*domain.TableInfo, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// A load for this key may have finished between Get and DoChan.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.TableInfo), nil
	}
}

// Invalidate drops key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of stored entries, including any not yet swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) evictLocked() {
	now := c.now()
	for el := c.order.Front(); el != nil; el = c.order.Front() {
		if now.Before(el.Value.(*entry).expiresAt) {
			break
		}
		c.removeLocked(el)
	}
	for c.order.Len() > c.maxEntries {
		c.removeLocked(c.order.Front())
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
}
