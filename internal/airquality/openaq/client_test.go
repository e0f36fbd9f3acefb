package openaq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"air-quality-monitor/internal/airquality"
)

const testAPIKey = "super-secret-key-123"

// newTestClient builds a client against a local test server with a backoff
// short enough for failure-path tests.
func newTestClient(t *testing.T, handler http.Handler, apiKey string) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(&http.Client{Timeout: 2 * time.Second}, ClientConfig{
		APIKey:  apiKey,
		BaseURL: srv.URL,
		Limit:   100,
	})
	c.httpCfg.Backoff = BackoffConfig{
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
	return c
}

func TestFetchMeasurementsSuccess(t *testing.T) {
	var gotKey, gotQuery string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [
				{
					"parameter": "pm25",
					"value": 12.5,
					"unit": "µg/m³",
					"location": "Paris 18eme",
					"date": {"utc": "2026-08-20T10:00:00Z", "local": "2026-08-20T12:00:00+02:00"}
				},
				{
					"parameter": {"name": "no2", "units": "ppm"},
					"value": null,
					"locationName": "Paris Centre",
					"datetime": "2026-08-20T11:00:00Z",
					"coordinates": {"latitude": 48.85, "longitude": 2.35}
				}
			]
		}`))
	})

	c := newTestClient(t, handler, testAPIKey)

	table, err := c.FetchMeasurements(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}

	if gotKey != testAPIKey {
		t.Fatalf("expected X-API-Key header %q, got %q", testAPIKey, gotKey)
	}
	// The credential must never travel in the URL.
	if strings.Contains(gotQuery, testAPIKey) {
		t.Fatalf("api key leaked into the query string: %q", gotQuery)
	}
	if !strings.Contains(gotQuery, "limit=100") {
		t.Fatalf("expected limit in query, got %q", gotQuery)
	}
	if !strings.Contains(gotQuery, "date_from=") {
		t.Fatalf("expected date_from in query, got %q", gotQuery)
	}

	first := table.Rows[0]
	if first.Parameter != "pm25" {
		t.Fatalf("expected parameter pm25, got %q", first.Parameter)
	}
	if first.Value == nil || *first.Value != 12.5 {
		t.Fatalf("expected value 12.5, got %v", first.Value)
	}
	if first.Timestamps.DateUTC != "2026-08-20T10:00:00Z" {
		t.Fatalf("expected date.utc to be captured, got %q", first.Timestamps.DateUTC)
	}

	second := table.Rows[1]
	if second.Parameter != "no2" {
		t.Fatalf("expected parameter no2, got %q", second.Parameter)
	}
	if second.Value != nil {
		t.Fatalf("expected null value to stay missing, got %v", *second.Value)
	}
	if second.Unit != "ppm" {
		t.Fatalf("expected unit from nested parameter, got %q", second.Unit)
	}
	if second.Location != "Paris Centre" {
		t.Fatalf("expected locationName fallback, got %q", second.Location)
	}
	if second.Coordinates == nil || second.Coordinates.Latitude != 48.85 {
		t.Fatalf("expected coordinates to be decoded, got %+v", second.Coordinates)
	}
	if second.Timestamps.Datetime != "2026-08-20T11:00:00Z" {
		t.Fatalf("expected datetime to be captured, got %q", second.Timestamps.Datetime)
	}
}

func TestFetchMeasurementsWindowIsTwentyFourHours(t *testing.T) {
	var gotDateFrom string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDateFrom = r.URL.Query().Get("date_from")
		w.Write([]byte(`{"results": [{"parameter": "pm25", "value": 1, "datetime": "2026-08-20T10:00:00Z"}]}`))
	})

	c := newTestClient(t, handler, testAPIKey)

	if _, err := c.FetchMeasurements(context.Background(), "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	from, err := time.Parse("2006-01-02T15:04:05Z", gotDateFrom)
	if err != nil {
		t.Fatalf("date_from is not in the expected layout: %q", gotDateFrom)
	}
	age := time.Since(from)
	if age < 23*time.Hour || age > 25*time.Hour {
		t.Fatalf("expected a 24 hour lookback, got %s", age)
	}
}

func TestFetchMeasurementsFiltersByCity(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"parameter": "pm25", "value": 1, "location": "Paris 18eme", "datetime": "2026-08-20T10:00:00Z"},
			{"parameter": "pm25", "value": 2, "location": "Berlin Mitte", "datetime": "2026-08-20T10:00:00Z"}
		]}`))
	})

	c := newTestClient(t, handler, testAPIKey)

	table, err := c.FetchMeasurements(context.Background(), "paris")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("expected the filter to keep 1 row, got %d", len(table.Rows))
	}
	if table.Rows[0].Location != "Paris 18eme" {
		t.Fatalf("expected the Paris station, got %q", table.Rows[0].Location)
	}
}

func TestFetchMeasurementsFilterFallsBackToFullSet(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"parameter": "pm25", "value": 1, "location": "Paris 18eme", "datetime": "2026-08-20T10:00:00Z"},
			{"parameter": "pm25", "value": 2, "location": "Berlin Mitte", "datetime": "2026-08-20T10:00:00Z"}
		]}`))
	})

	c := newTestClient(t, handler, testAPIKey)

	table, err := c.FetchMeasurements(context.Background(), "Lisbon")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected the unmatched filter to fall back to 2 rows, got %d", len(table.Rows))
	}
}

func TestFetchMeasurementsMissingKeyIsConfigError(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	for _, key := range []string{"", "your_key_here"} {
		c := newTestClient(t, handler, key)

		_, err := c.FetchMeasurements(context.Background(), "Paris")
		if !airquality.IsKind(err, airquality.KindConfig) {
			t.Fatalf("key %q: expected config error, got %v", key, err)
		}
	}
	// The credential check happens before any I/O.
	if calls != 0 {
		t.Fatalf("expected no requests without a credential, got %d", calls)
	}
}

func TestFetchMeasurementsEmptyResult(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	})

	c := newTestClient(t, handler, testAPIKey)

	_, err := c.FetchMeasurements(context.Background(), "Atlantis")
	if !airquality.IsKind(err, airquality.KindEmptyResult) {
		t.Fatalf("expected empty_result, got %v", err)
	}
}

func TestFetchMeasurementsMalformedResponse(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [`))
	})

	c := newTestClient(t, handler, testAPIKey)

	_, err := c.FetchMeasurements(context.Background(), "Paris")
	if !airquality.IsKind(err, airquality.KindMalformedResponse) {
		t.Fatalf("expected malformed_response, got %v", err)
	}
}

func TestFetchMeasurementsServerErrorIsTransport(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := newTestClient(t, handler, testAPIKey)

	_, err := c.FetchMeasurements(context.Background(), "Paris")
	if !airquality.IsKind(err, airquality.KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	// The error surface must never expose the credential.
	if strings.Contains(err.Error(), testAPIKey) {
		t.Fatalf("api key leaked into error message: %q", err.Error())
	}
}

func TestFetchMeasurementsRetriesServerErrors(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"results": [{"parameter": "pm25", "value": 1, "datetime": "2026-08-20T10:00:00Z"}]}`))
	})

	c := newTestClient(t, handler, testAPIKey)

	table, err := c.FetchMeasurements(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("expected the retry to succeed, got %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(table.Rows))
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestFetchMeasurementsClientErrorIsNotRetried(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	})

	c := newTestClient(t, handler, testAPIKey)

	_, err := c.FetchMeasurements(context.Background(), "Paris")
	if !airquality.IsKind(err, airquality.KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt for a client error, got %d", calls)
	}
}

func TestFetchMeasurementsTimeoutIsTransport(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(&http.Client{Timeout: 20 * time.Millisecond}, ClientConfig{
		APIKey:  testAPIKey,
		BaseURL: srv.URL,
	})
	c.httpCfg.Backoff = BackoffConfig{MaxRetries: 0, InitialInterval: time.Millisecond}

	_, err := c.FetchMeasurements(context.Background(), "Paris")
	if !airquality.IsKind(err, airquality.KindTransport) {
		t.Fatalf("expected transport error on timeout, got %v", err)
	}
}

// staticResolver resolves every city to the same coordinates.
type staticResolver struct {
	coords airquality.Coordinates
}

func (r *staticResolver) Resolve(city string) (airquality.Coordinates, error) {
	return r.coords, nil
}

func TestFetchMeasurementsNarrowsByResolvedCoordinates(t *testing.T) {
	var gotCoordinates, gotRadius string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCoordinates = r.URL.Query().Get("coordinates")
		gotRadius = r.URL.Query().Get("radius")
		w.Write([]byte(`{"results": [{"parameter": "pm25", "value": 1, "datetime": "2026-08-20T10:00:00Z"}]}`))
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(&http.Client{Timeout: 2 * time.Second}, ClientConfig{
		APIKey:   testAPIKey,
		BaseURL:  srv.URL,
		Resolver: &staticResolver{coords: airquality.Coordinates{Latitude: 48.8566, Longitude: 2.3522}},
	})

	if _, err := c.FetchMeasurements(context.Background(), "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(gotCoordinates, "48.8566") {
		t.Fatalf("expected resolved coordinates in query, got %q", gotCoordinates)
	}
	if gotRadius != "25000" {
		t.Fatalf("expected radius 25000, got %q", gotRadius)
	}
}
