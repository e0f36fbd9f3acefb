package openaq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"air-quality-monitor/internal/airquality"
	"air-quality-monitor/internal/common"
)

const (
	// DefaultBaseURL is the public OpenAQ API root.
	DefaultBaseURL = "https://api.openaq.org"

	measurementsPath = "/v3/measurements"

	// lookbackWindow is the fixed acquisition window: every fetch asks for
	// the most recent 24 hours.
	lookbackWindow = 24 * time.Hour

	// placeholderKey is the sample value shipped in .env templates; it is
	// treated the same as no key at all.
	placeholderKey = "your_key_here"

	// coordinateRadiusMeters bounds the station search around resolved
	// coordinates. 25 km is the API maximum.
	coordinateRadiusMeters = 25000

	defaultLimit = 100
)

// ClientConfig carries the client's construction parameters.
type ClientConfig struct {
	// APIKey authenticates against the measurement service. It travels in a
	// request header, never in the URL; empty or placeholder values surface
	// as a config-kind FetchError at fetch time.
	APIKey string

	// BaseURL overrides the service root, mainly for tests.
	BaseURL string

	// Limit caps the number of measurements requested per fetch.
	Limit int

	// Resolver optionally narrows queries to the coordinates of the
	// requested city. May be nil.
	Resolver airquality.CoordinateResolver
}

// Client fetches measurements from the OpenAQ v3 API. It implements the
// airquality.Source interface.
type Client struct {
	apiKey   string
	baseURL  string
	limit    int
	resolver airquality.CoordinateResolver
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

// NewClient creates an OpenAQ measurement client on top of a shared HTTP
// client.
func NewClient(client *http.Client, cfg ClientConfig) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openaq",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		limit:    limit,
		resolver: cfg.Resolver,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

// FetchMeasurements retrieves the last 24 hours of measurements for a city,
// all parameters included. The API key travels in the X-API-Key header only;
// URLs and returned errors never carry it.
func (c *Client) FetchMeasurements(ctx context.Context, location string) (airquality.RawTable, error) {
	if c.apiKey == "" || c.apiKey == placeholderKey {
		return airquality.RawTable{}, airquality.NewFetchError(airquality.KindConfig,
			"OPENAQ_API_KEY is not set; add it to the environment or the .env file", nil)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("date_from", time.Now().UTC().Add(-lookbackWindow).Format("2006-01-02T15:04:05Z"))
		values.Set("limit", strconv.Itoa(c.limit))

		if c.resolver != nil {
			// Resolution failures degrade to the unnarrowed query.
			if coords, err := c.resolver.Resolve(location); err == nil {
				values.Set("coordinates", fmt.Sprintf("%f,%f", coords.Latitude, coords.Longitude))
				values.Set("radius", strconv.Itoa(coordinateRadiusMeters))
			}
		}

		req, err := http.NewRequest(http.MethodGet, c.baseURL+measurementsPath+"?"+values.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return airquality.RawTable{}, airquality.NewFetchError(airquality.KindTransport,
			"failed to reach the air quality service", err)
	}
	defer resp.Body.Close()

	var payload measurementsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return airquality.RawTable{}, airquality.NewFetchError(airquality.KindMalformedResponse,
			"could not decode the air quality response", err)
	}

	if len(payload.Results) == 0 {
		return airquality.RawTable{}, airquality.NewFetchError(airquality.KindEmptyResult,
			fmt.Sprintf("no measurements found for %q in the last 24 hours", location), nil)
	}

	rows := make([]airquality.Measurement, 0, len(payload.Results))
	for _, item := range payload.Results {
		rows = append(rows, item.toMeasurement())
	}

	return airquality.RawTable{Rows: filterByCity(rows, location)}, nil
}

// filterByCity keeps rows whose station location mentions the city,
// case-insensitively. A filter that would empty the table is discarded and
// the full set returned, so an unknown or misspelled city still yields the
// regional data the window covered.
func filterByCity(rows []airquality.Measurement, city string) []airquality.Measurement {
	matched := make([]airquality.Measurement, 0, len(rows))
	for _, row := range rows {
		if common.ContainsFold(row.Location, city) {
			matched = append(matched, row)
		}
	}
	if len(matched) == 0 {
		return rows
	}
	return matched
}

// measurementsResponse is the envelope the API wraps result lists in.
type measurementsResponse struct {
	Results []measurementPayload `json:"results"`
}

// measurementPayload decodes one measurement leniently. Several fields vary
// between a bare string and an object depending on the API version, and the
// timestamp can arrive under any of four names.
type measurementPayload struct {
	Parameter    flexParameter       `json:"parameter"`
	Value        *float64            `json:"value"`
	Unit         string              `json:"unit"`
	Location     flexLocation        `json:"location"`
	LocationName string              `json:"locationName"`
	Datetime     flexTime            `json:"datetime"`
	Date         flexTime            `json:"date"`
	DateLocal    string              `json:"dateLocal"`
	Coordinates  *coordinatesPayload `json:"coordinates"`
}

type coordinatesPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (m measurementPayload) toMeasurement() airquality.Measurement {
	unit := m.Unit
	if unit == "" {
		unit = m.Parameter.Units
	}

	location := m.Location.Name
	if location == "" {
		location = m.Location.City
	}
	if location == "" {
		location = m.LocationName
	}

	var value *float64
	if m.Value != nil {
		v := *m.Value
		value = &v
	}

	var coords *airquality.Coordinates
	if m.Coordinates != nil && m.Coordinates.Latitude != nil && m.Coordinates.Longitude != nil {
		coords = &airquality.Coordinates{
			Latitude:  *m.Coordinates.Latitude,
			Longitude: *m.Coordinates.Longitude,
		}
	}

	datetime := m.Datetime.Plain
	if datetime == "" {
		datetime = m.Datetime.UTC
	}

	ts := airquality.RawTimestamps{
		Datetime:  datetime,
		DateUTC:   m.Date.UTC,
		DateLocal: m.DateLocal,
		Date:      m.Date.Plain,
	}
	if ts.DateLocal == "" {
		ts.DateLocal = m.Date.Local
	}

	return airquality.Measurement{
		Parameter:   m.Parameter.Name,
		Value:       value,
		Unit:        unit,
		Location:    location,
		Coordinates: coords,
		Timestamps:  ts,
	}
}

// flexTime accepts either a plain timestamp string or a {utc, local} object.
type flexTime struct {
	Plain string
	UTC   string
	Local string
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Plain = s
		return nil
	}

	var obj struct {
		UTC   string `json:"utc"`
		Local string `json:"local"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.UTC = obj.UTC
	t.Local = obj.Local
	return nil
}

// flexParameter accepts either a parameter name string or the nested object
// newer API versions send.
type flexParameter struct {
	Name  string
	Units string
}

func (p *flexParameter) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Name = s
		return nil
	}

	var obj struct {
		Name  string `json:"name"`
		Units string `json:"units"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Name = obj.Name
	p.Units = obj.Units
	return nil
}

// flexLocation accepts either a station name string or an object carrying
// name and city fields.
type flexLocation struct {
	Name string
	City string
}

func (l *flexLocation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		l.Name = s
		return nil
	}

	var obj struct {
		Name string `json:"name"`
		City string `json:"city"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.Name = obj.Name
	l.City = obj.City
	return nil
}
