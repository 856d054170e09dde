// Package cache provides the process-wide expiring key-value store used
// for quote caching and day-scoped notification dedup.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value    any
	deadline time.Time // zero means never expires
}

// Cache is a mutex-guarded map with optional per-key TTL. Every Set with a
// TTL arms a timer holding the entry's absolute deadline; the timer deletes
// the key only if that deadline is still current, so overwriting a key with
// a fresh TTL cannot be undone by a stale timer.
type Cache struct {
	mu   sync.Mutex
	data map[string]entry

	now func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

// Set stores value under key. ttl <= 0 means the value never expires.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.deadline = c.now().Add(ttl)
	}
	c.data[key] = e

	if ttl > 0 {
		deadline := e.deadline
		time.AfterFunc(ttl, func() {
			c.expire(key, deadline)
		})
	}
}

// expire deletes key only if its deadline is still the one the timer was
// armed with. An overwrite replaces the deadline and disarms stale timers.
func (c *Cache) expire(key string, deadline time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.data[key]; ok && e.deadline.Equal(deadline) {
		delete(c.data, key)
	}
}

// Get returns the live value for key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if !e.deadline.IsZero() && !c.now().Before(e.deadline) {
		delete(c.data, key)
		return nil, false
	}
	return e.value, true
}

// Exists reports whether key holds a live value.
func (c *Cache) Exists(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key, reporting whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.data[key]
	delete(c.data, key)
	return ok
}

// UntilTomorrow returns the duration from now until the next local midnight
// in loc, plus a one second buffer.
func UntilTomorrow(loc *time.Location, now time.Time) time.Duration {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return next.Sub(local) + time.Second
}

// SetExpireToday stores value under key with a TTL reaching the next local
// midnight, the lifetime of a day-scoped dedup entry.
func (c *Cache) SetExpireToday(key string, value any, loc *time.Location) {
	c.Set(key, value, UntilTomorrow(loc, c.now()))
}
