package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/forecast-cache/internal/weather"
)

func TestGoogleGeocoderCachesResults(t *testing.T) {
	g := NewGoogleGeocoder("key")

	calls := 0
	g.lookup = func(addr geocoder.Address) (geocoder.Location, error) {
		calls++
		assert.Equal(t, "Lisbon", addr.City)
		assert.Equal(t, "PT", addr.Country)
		return geocoder.Location{Latitude: 38.72, Longitude: -9.14}, nil
	}

	for i := 0; i < 3; i++ {
		loc, err := g.Geocode(context.Background(), weather.Location{City: "Lisbon", Country: "PT"})
		require.NoError(t, err)
		assert.Equal(t, 38.72, *loc.Lat)
		assert.Equal(t, -9.14, *loc.Lon)
		assert.Equal(t, "Lisbon", loc.City)
	}
	assert.Equal(t, 1, calls)
}

func TestGoogleGeocoderErrors(t *testing.T) {
	g := NewGoogleGeocoder("")
	_, err := g.Geocode(context.Background(), weather.Location{City: "Lisbon"})
	assert.ErrorIs(t, err, errNoAPIKey)

	g = NewGoogleGeocoder("key")
	_, err = g.Geocode(context.Background(), weather.Location{})
	assert.ErrorIs(t, err, errNoCity)

	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, errors.New("ZERO_RESULTS")
	}
	_, err = g.Geocode(context.Background(), weather.Location{City: "Nowhere"})
	assert.ErrorIs(t, err, ErrLocationNotFound)

	pinned := weather.Location{Lat: weather.Float(1), Lon: weather.Float(2)}
	loc, err := g.Geocode(context.Background(), pinned)
	require.NoError(t, err)
	assert.Equal(t, pinned, loc)
}
