package services

import (
	"sync"
	"time"

	"corewatch/internal/models"
)

// TTLCache holds one fetched value until its TTL expires
type TTLCache[T any] struct {
	mu        sync.RWMutex
	value     T
	cacheTime time.Time
	valid     bool
	ttl       time.Duration
	now       func() time.Time
}

// NewTTLCache creates an empty cache
func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{ttl: ttl, now: time.Now}
}

// SetTTL sets the cache time-to-live
func (c *TTLCache[T]) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// isCacheValid checks if cache is still valid. Callers hold mu.
func (c *TTLCache[T]) isCacheValid() bool {
	return c.valid && c.now().Sub(c.cacheTime) < c.ttl
}

// Get returns the cached value if valid, otherwise fetches fresh.
// Errors are not cached.
func (c *TTLCache[T]) Get(fetch func() (T, error)) (T, error) {
	c.mu.RLock()
	if c.isCacheValid() {
		defer c.mu.RUnlock()
		return c.value, nil
	}
	c.mu.RUnlock()

	// Fetch fresh data
	value, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}

	// Update cache
	c.mu.Lock()
	c.value = value
	c.cacheTime = c.now()
	c.valid = true
	c.mu.Unlock()

	return value, nil
}

// Clear drops the cached value
func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.valid = false
}

var selfCache = NewTTLCache[*models.SelfStatus](1 * time.Second)

// SetCacheTTL sets the self stats time-to-live
func SetCacheTTL(duration time.Duration) {
	selfCache.SetTTL(duration)
}

// GetCachedSelfStatus returns cached self stats if valid, otherwise fetches fresh
func GetCachedSelfStatus() (*models.SelfStatus, error) {
	return selfCache.Get(GetSelfStatus)
}
