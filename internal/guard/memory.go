package guard

import (
	"context"
	"sync"
	"time"

	"github.com/amoylab/atelier/internal/authz"
)

// sweepEvery is how many inserts pass between scans for expired entries.
const sweepEvery = 256

type memoryEntry struct {
	principal *authz.Principal
	expiresAt time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	byUser  map[string]map[string]struct{}
	gens    map[string]int64
	inserts int
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		byUser:  make(map[string]map[string]struct{}),
		gens:    make(map[string]int64),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*authz.Principal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.removeLocked(key, e.principal.UserID)
		return nil, false, nil
	}
	return clonePrincipal(e.principal), true, nil
}

func (c *MemoryCache) Generation(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID], nil
}

func (c *MemoryCache) Set(_ context.Context, key string, p *authz.Principal, ttl time.Duration, gen int64) error {
	if p == nil || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[p.UserID] != gen {
		return nil
	}
	c.inserts++
	if c.inserts >= sweepEvery {
		c.inserts = 0
		c.sweepLocked()
	}

	c.entries[key] = memoryEntry{principal: clonePrincipal(p), expiresAt: c.now().Add(ttl)}
	keys, ok := c.byUser[p.UserID]
	if !ok {
		keys = make(map[string]struct{})
		c.byUser[p.UserID] = keys
	}
	keys[key] = struct{}{}
	return nil
}

func (c *MemoryCache) InvalidateUser(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.byUser[userID] {
		delete(c.entries, key)
	}
	delete(c.byUser, userID)
	c.gens[userID]++
	return nil
}

// Len returns the number of held entries, expired ones not yet swept included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweepLocked drops every expired entry, including tokens never read again.
func (c *MemoryCache) sweepLocked() {
	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			c.removeLocked(key, e.principal.UserID)
		}
	}
}

func (c *MemoryCache) removeLocked(key, userID string) {
	delete(c.entries, key)
	if keys, ok := c.byUser[userID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.byUser, userID)
		}
	}
}
