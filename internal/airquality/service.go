package airquality

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FetchResult is a raw table together with its acquisition metadata.
type FetchResult struct {
	Table     RawTable
	ID        string
	FetchedAt time.Time
	FromCache bool
}

// Dataset is the cleaned view of one fetch, ready for presentation.
type Dataset struct {
	City      string     `json:"city"`
	ID        string     `json:"datasetId"`
	FetchedAt time.Time  `json:"fetchedAt"`
	FromCache bool       `json:"fromCache"`
	Table     CleanTable `json:"table"`
}

// Service wires the measurement source to the process-wide result cache and
// the cleaning pipeline.
type Service struct {
	source Source
	cache  ResultCache

	// now supplies the clock used for cache bucketing.
	now func() time.Time
}

// NewService creates a new Service.
func NewService(source Source, cache ResultCache) *Service {
	return &Service{
		source: source,
		cache:  cache,
		now:    time.Now,
	}
}

// Fetch returns the raw measurement table for a location, consulting the
// cache before any network I/O. Only a successful fetch is stored; a failure
// of any kind, no-data included, leaves the cache untouched, so the next
// call in the same bucket tries the network again.
func (s *Service) Fetch(ctx context.Context, location string) (FetchResult, error) {
	now := s.now()

	if entry, ok := s.cache.Get(location, now); ok {
		return FetchResult{
			Table:     entry.Table,
			ID:        entry.ID,
			FetchedAt: entry.FetchedAt,
			FromCache: true,
		}, nil
	}

	table, err := s.source.FetchMeasurements(ctx, location)
	if err != nil {
		return FetchResult{}, err
	}

	entry := CacheEntry{ID: uuid.NewString(), Table: table, FetchedAt: now}
	// Only a non-empty success populates the cache. Sources report no-data as
	// an empty_result error, but an empty table must not be stored either way.
	if !table.Empty() {
		s.cache.Put(location, now, entry)
	}

	return FetchResult{
		Table:     entry.Table,
		ID:        entry.ID,
		FetchedAt: entry.FetchedAt,
		FromCache: false,
	}, nil
}

// Dataset fetches the measurements for a location through the cache and
// cleans them.
func (s *Service) Dataset(ctx context.Context, location string) (Dataset, error) {
	res, err := s.Fetch(ctx, location)
	if err != nil {
		return Dataset{}, err
	}

	return Dataset{
		City:      location,
		ID:        res.ID,
		FetchedAt: res.FetchedAt,
		FromCache: res.FromCache,
		Table:     Clean(res.Table),
	}, nil
}
