package forecast

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// Cache is a TTL cache for forecast responses keyed by account, history,
// horizon and as-of date. Entries for an account are dropped wholesale when
// new transactions are committed.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	resp      *models.ForecastResponse
	expiresAt time.Time
}

// NewCache creates a cache. A non-positive TTL disables caching entirely.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: map[string]cacheEntry{},
		now:     time.Now,
	}
}

func cacheKey(accountID string, historyDays, horizonDays int, asOf time.Time) string {
	return fmt.Sprintf("%s|%d|%d|%s", accountID, historyDays, horizonDays, asOf.Format("2006-01-02"))
}

// Get returns a live cached response.
func (c *Cache) Get(key string) (*models.ForecastResponse, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.resp, true
}

// Put stores a response under the key. The key's account prefix drives
// invalidation.
func (c *Cache) Put(key string, resp *models.ForecastResponse) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{resp: resp, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate removes every cached forecast for the account.
func (c *Cache) Invalidate(accountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := accountID + "|"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}
