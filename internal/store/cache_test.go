package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"air-quality-monitor/internal/airquality"
)

func entryWithID(id string, fetchedAt time.Time) airquality.CacheEntry {
	v := 12.5
	return airquality.CacheEntry{
		ID: id,
		Table: airquality.RawTable{Rows: []airquality.Measurement{
			{Parameter: "pm25", Value: &v, Unit: "µg/m³"},
		}},
		FetchedAt: fetchedAt,
	}
}

func TestCacheMissThenHit(t *testing.T) {
	cache := NewCache(time.Hour, 0, 0)
	now := time.Date(2026, 8, 20, 10, 15, 0, 0, time.UTC)

	_, ok := cache.Get("Paris", now)
	assert.False(t, ok)

	cache.Put("Paris", now, entryWithID("a", now))

	got, ok := cache.Get("Paris", now)
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)
	assert.Len(t, got.Table.Rows, 1)
}

func TestCacheHitsWithinSameBucket(t *testing.T) {
	cache := NewCache(time.Hour, 0, 0)
	now := time.Date(2026, 8, 20, 10, 5, 0, 0, time.UTC)

	cache.Put("Paris", now, entryWithID("a", now))

	// Any instant inside the same hour resolves to the same entry.
	_, ok := cache.Get("Paris", now.Add(50*time.Minute))
	assert.True(t, ok)
}

func TestCacheMissesInNewBucket(t *testing.T) {
	cache := NewCache(time.Hour, 0, 0)
	now := time.Date(2026, 8, 20, 10, 55, 0, 0, time.UTC)

	cache.Put("Paris", now, entryWithID("a", now))

	_, ok := cache.Get("Paris", now.Add(10*time.Minute))
	assert.False(t, ok, "crossing the bucket boundary should miss")
}

func TestCacheKeysByLocation(t *testing.T) {
	cache := NewCache(time.Hour, 0, 0)
	now := time.Date(2026, 8, 20, 10, 15, 0, 0, time.UTC)

	cache.Put("Paris", now, entryWithID("paris", now))
	cache.Put("London", now, entryWithID("london", now))

	got, ok := cache.Get("Paris", now)
	require.True(t, ok)
	assert.Equal(t, "paris", got.ID)

	got, ok = cache.Get("London", now)
	require.True(t, ok)
	assert.Equal(t, "london", got.ID)
}

func TestCacheExpiresByAge(t *testing.T) {
	// A wide bucket with a tighter age bound: the entry stays in its bucket
	// but ages out of validity.
	cache := NewCache(4*time.Hour, 0, 30*time.Minute)
	now := time.Date(2026, 8, 20, 8, 10, 0, 0, time.UTC)

	cache.Put("Paris", now, entryWithID("a", now))

	_, ok := cache.Get("Paris", now.Add(20*time.Minute))
	assert.True(t, ok)

	_, ok = cache.Get("Paris", now.Add(45*time.Minute))
	assert.False(t, ok, "entries older than maxAge should not be served")
}

func TestCachePrunesAgedEntriesOnPut(t *testing.T) {
	cache := NewCache(time.Hour, 0, 30*time.Minute)
	base := time.Date(2026, 8, 20, 8, 10, 0, 0, time.UTC)

	cache.Put("Paris", base, entryWithID("old", base))
	require.Equal(t, 1, cache.Len())

	later := base.Add(2 * time.Hour)
	cache.Put("London", later, entryWithID("new", later))

	assert.Equal(t, 1, cache.Len(), "the aged Paris entry should have been pruned")
	_, ok := cache.Get("London", later)
	assert.True(t, ok)
}

func TestCacheEvictsOldestWhenFull(t *testing.T) {
	cache := NewCache(time.Hour, 2, 0)
	base := time.Date(2026, 8, 20, 8, 10, 0, 0, time.UTC)

	for i, city := range []string{"Paris", "London", "Tokyo"} {
		fetchedAt := base.Add(time.Duration(i) * time.Minute)
		cache.Put(city, base, entryWithID(city, fetchedAt))
	}

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("Paris", base)
	assert.False(t, ok, "the oldest entry should have been evicted")
	_, ok = cache.Get("London", base)
	assert.True(t, ok)
	_, ok = cache.Get("Tokyo", base)
	assert.True(t, ok)
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewCache(time.Hour, 0, 0)
	now := time.Date(2026, 8, 20, 10, 15, 0, 0, time.UTC)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			city := fmt.Sprintf("city-%d", i%4)
			for j := 0; j < 100; j++ {
				cache.Put(city, now, entryWithID(city, now))
				cache.Get(city, now)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, 4, cache.Len())
}
