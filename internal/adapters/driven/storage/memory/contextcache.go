package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
)

// Ensure ContextCache implements the interface.
var _ driven.ContextCache = (*ContextCache)(nil)

// DefaultContextTTL is how long a pushed context snapshot stays usable.
// Dashboards mutate constantly; a stale snapshot is worse than none.
const DefaultContextTTL = 5 * time.Minute

// ContextCache is an in-memory implementation of driven.ContextCache with
// per-entry expiry.
type ContextCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	snapshot domain.DashboardContext
	storedAt time.Time
}

// NewContextCache creates a context cache. A non-positive ttl falls back to
// the default.
func NewContextCache(ttl time.Duration) *ContextCache {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	return &ContextCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Put stores the snapshot for a session key, replacing any previous entry.
func (c *ContextCache) Put(_ context.Context, key string, snapshot *domain.DashboardContext) error {
	if key == "" || snapshot == nil {
		return domain.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{snapshot: *snapshot, storedAt: time.Now()}
	return nil
}

// Get returns the stored snapshot, or domain.ErrNotFound when absent or
// expired. Expired entries are dropped on access.
func (c *ContextCache) Get(_ context.Context, key string) (*domain.DashboardContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if time.Since(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, domain.ErrNotFound
	}

	snapshot := entry.snapshot
	return &snapshot, nil
}
