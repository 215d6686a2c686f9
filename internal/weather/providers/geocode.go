package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/forecast-cache/internal/weather"
)

var errNoCity = errors.New("location has no city")

// GoogleGeocoder resolves cities through the Google Geocoding API.
// Results are cached per location for the life of the process.
type GoogleGeocoder struct {
	apiKey string

	mu    sync.Mutex
	cache map[string]weather.Location

	// lookup is swapped in tests.
	lookup func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		apiKey: apiKey,
		cache:  make(map[string]weather.Location),
		lookup: geocoder.Geocoding,
	}
}

// Geocode returns loc with Lat and Lon filled in.
func (g *GoogleGeocoder) Geocode(ctx context.Context, loc weather.Location) (weather.Location, error) {
	if loc.HasCoordinates() {
		return loc, nil
	}
	if loc.City == "" {
		return weather.Location{}, errNoCity
	}
	if g.apiKey == "" {
		return weather.Location{}, fmt.Errorf("geocoder: %w", errNoAPIKey)
	}

	key := loc.Key()

	g.mu.Lock()
	defer g.mu.Unlock()

	if cached, ok := g.cache[key]; ok {
		return cached, nil
	}

	// the library reads its key from a package variable
	geocoder.ApiKey = g.apiKey

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		l, err := g.lookup(geocoder.Address{City: loc.City, Country: loc.Country})
		done <- result{l, err}
	}()

	select {
	case <-ctx.Done():
		return weather.Location{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return weather.Location{}, fmt.Errorf("%w: %v", ErrLocationNotFound, r.err)
		}
		resolved := loc
		resolved.Lat = weather.Float(r.loc.Latitude)
		resolved.Lon = weather.Float(r.loc.Longitude)
		g.cache[key] = resolved
		return resolved, nil
	}
}
