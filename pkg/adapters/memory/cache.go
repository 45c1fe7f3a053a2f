package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/triangulator/pkg/domain"
)

type entry struct {
	result  *domain.Result
	expires time.Time
}

// Cache implements ports.ResultCache in memory.
// Safe for concurrent use.
type Cache struct {
	data map[string]entry
	ttl  time.Duration
	now  func() time.Time
	mu   sync.RWMutex
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL expires entries after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock replaces the time source used for expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a new in-memory result cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		data: make(map[string]entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached result.
func (c *Cache) Get(ctx context.Context, id string) (*domain.Result, error) {
	c.mu.RLock()
	e, ok := c.data[id]
	c.mu.RUnlock()

	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.mu.Lock()
		delete(c.data, id)
		c.mu.Unlock()
		return nil, domain.ErrCacheMiss
	}
	return cloneResult(e.result), nil
}

// Put stores a copy of result.
func (c *Cache) Put(ctx context.Context, id string, result *domain.Result) error {
	e := entry{result: cloneResult(result)}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[id] = e
	return nil
}

// Delete removes the entry.
func (c *Cache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, id)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func cloneResult(r *domain.Result) *domain.Result {
	out := *r
	out.PointSet.Points = slices.Clone(r.PointSet.Points)
	out.Triangles = slices.Clone(r.Triangles)
	out.Hull = slices.Clone(r.Hull)
	if r.Dedup.Merges != nil {
		out.Dedup.Merges = make([]domain.Merge, len(r.Dedup.Merges))
		for i, m := range r.Dedup.Merges {
			out.Dedup.Merges[i] = domain.Merge{Kept: m.Kept, Dropped: slices.Clone(m.Dropped)}
		}
	}
	return &out
}
