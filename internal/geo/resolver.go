package geo

import (
	"fmt"

	"github.com/kelvins/geocoder"

	"air-quality-monitor/internal/airquality"
)

// GoogleResolver resolves city names to coordinates through the Google
// geocoding API. The geocoder package holds its key in a package-level
// variable, so a process should construct at most one resolver.
type GoogleResolver struct{}

// NewGoogleResolver sets the geocoding key and returns a resolver.
func NewGoogleResolver(apiKey string) *GoogleResolver {
	geocoder.ApiKey = apiKey
	return &GoogleResolver{}
}

// Resolve looks up the coordinates of a city.
func (r *GoogleResolver) Resolve(city string) (airquality.Coordinates, error) {
	location, err := geocoder.Geocoding(geocoder.Address{City: city})
	if err != nil {
		return airquality.Coordinates{}, fmt.Errorf("geocode %s: %w", city, err)
	}
	return airquality.Coordinates{
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
	}, nil
}
