package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultCities is the selectable city list offered when CITIES is not
// configured. The scheduler keeps these warm.
var DefaultCities = []string{
	"London", "Los Angeles", "Paris", "New York", "Tokyo",
	"Delhi", "Beijing", "Mumbai", "Berlin", "Madrid",
}

type AppConfig struct {
	// OpenAQAPIKey authenticates measurement fetches. It may be empty at
	// load time; the fetch path reports that as a config error instead of
	// failing startup.
	OpenAQAPIKey string

	// GeocoderAPIKey enables coordinate narrowing of station queries when set.
	GeocoderAPIKey string

	// BaseURL is the measurement service root.
	BaseURL string

	// HTTPTimeout bounds each outbound request.
	HTTPTimeout time.Duration

	// FetchLimit caps the number of measurements requested per fetch.
	FetchLimit int

	// Result cache keying and retention.
	CacheBucket     time.Duration
	CacheMaxEntries int // max cached fetch results (0 = unlimited)
	CacheMaxAge     time.Duration

	// RefreshInterval controls how often the background job re-fetches the
	// configured cities. Zero disables the job.
	RefreshInterval time.Duration

	// Cities to offer and keep warm.
	Cities []string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenAQAPIKey = os.Getenv("OPENAQ_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.BaseURL = getenvDefault("OPENAQ_BASE_URL", "https://api.openaq.org")

	var err error
	if cfg.FetchLimit, err = getenvInt("FETCH_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.CacheBucket, err = getenvDuration("CACHE_BUCKET", "5m"); err != nil {
		return nil, err
	}
	if cfg.CacheMaxEntries, err = getenvInt("CACHE_MAX_ENTRIES", 128); err != nil {
		return nil, err
	}
	if cfg.CacheMaxAge, err = getenvDuration("CACHE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.Cities = loadCities()
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// loadCities splits the CITIES list, dropping blank entries. An unset or
// blank variable falls back to the default list.
func loadCities() []string {
	raw := os.Getenv("CITIES")
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), DefaultCities...)
	}

	var cities []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cities = append(cities, c)
		}
	}
	if len(cities) == 0 {
		return append([]string(nil), DefaultCities...)
	}
	return cities
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
