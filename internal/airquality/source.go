package airquality

import (
	"context"
	"time"
)

// Source abstracts the remote measurement service. Implementations return a
// raw table or a *FetchError classifying the failure; they never panic on an
// expected fault and never leak credentials through error messages.
type Source interface {
	FetchMeasurements(ctx context.Context, location string) (RawTable, error)
}

// ResultCache is the contract the process-wide result cache must satisfy.
// Implementations key entries on the location and a coarse time bucket
// derived from now, so lookups inside one bucket see the same entry.
type ResultCache interface {
	Get(location string, now time.Time) (CacheEntry, bool)
	Put(location string, now time.Time, entry CacheEntry)
}

// CoordinateResolver turns a city name into coordinates for narrowing
// station queries. Implementations may call external services.
type CoordinateResolver interface {
	Resolve(city string) (Coordinates, error)
}
