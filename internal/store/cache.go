package store

import (
	"strconv"
	"sync"
	"time"

	"air-quality-monitor/internal/airquality"
)

const defaultBucket = 5 * time.Minute

// Cache is a concurrency-safe, process-wide cache of raw fetch results.
// Entries are keyed by the location and the fetch time truncated to a fixed
// bucket, so repeated fetches inside one bucket are served from memory and a
// new bucket naturally refreshes the data. Entries are never invalidated
// beyond the optional count and age bounds.
type Cache struct {
	mu sync.RWMutex

	// key: location + bucket start, value: cached fetch result
	data map[string]airquality.CacheEntry

	bucket     time.Duration
	maxEntries int           // max number of entries kept (0 = unlimited)
	maxAge     time.Duration // optional max age for entries (0 = unlimited)
}

// NewCache creates a Cache. A non-positive bucket falls back to five
// minutes; maxEntries and maxAge of zero disable the respective bound.
func NewCache(bucket time.Duration, maxEntries int, maxAge time.Duration) *Cache {
	if bucket <= 0 {
		bucket = defaultBucket
	}
	return &Cache{
		data:       make(map[string]airquality.CacheEntry),
		bucket:     bucket,
		maxEntries: maxEntries,
		maxAge:     maxAge,
	}
}

// key joins the location exactly as requested with the bucket now falls in.
func (c *Cache) key(location string, now time.Time) string {
	bucketStart := now.UTC().Truncate(c.bucket)
	return location + "|" + strconv.FormatInt(bucketStart.Unix(), 10)
}

// Get returns the entry cached for this location in the current bucket.
func (c *Cache) Get(location string, now time.Time) (airquality.CacheEntry, bool) {
	key := c.key(location, now)

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok {
		return airquality.CacheEntry{}, false
	}
	if c.maxAge > 0 && now.Sub(entry.FetchedAt) > c.maxAge {
		return airquality.CacheEntry{}, false
	}
	return entry, true
}

// Put stores an entry under the location's current bucket and enforces the
// retention bounds. Callers only store successful fetches; failures never
// reach the cache.
func (c *Cache) Put(location string, now time.Time, entry airquality.CacheEntry) {
	key := c.key(location, now)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry

	// Enforce retention by age.
	if c.maxAge > 0 {
		cutoff := now.Add(-c.maxAge)
		for k, e := range c.data {
			if e.FetchedAt.Before(cutoff) {
				delete(c.data, k)
			}
		}
	}

	// Enforce retention by count, evicting the oldest entries first.
	if c.maxEntries > 0 {
		for len(c.data) > c.maxEntries {
			oldestKey := ""
			var oldest time.Time
			for k, e := range c.data {
				if oldestKey == "" || e.FetchedAt.Before(oldest) {
					oldestKey = k
					oldest = e.FetchedAt
				}
			}
			delete(c.data, oldestKey)
		}
	}
}

// Len reports the number of entries currently held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
