package app

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/i474232898/forecast-cache/internal/config"
	"github.com/i474232898/forecast-cache/internal/prefs"
	"github.com/i474232898/forecast-cache/internal/weather"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		AppName:                   "forecast-cache-test",
		Port:                      "0",
		FetchInterval:             time.Hour,
		HTTPTimeout:               time.Second,
		SyncTimeout:               5 * time.Second,
		Provider:                  "fake",
		ForecastDays:              7,
		Location:                  weather.Location{City: "London", Country: "GB"},
		Authority:                 "forecast",
		StoreDriver:               "sqlite",
		StorePath:                 filepath.Join(t.TempDir(), "forecast.db"),
		StoreSchemaVersion:        3,
		PrefsPath:                 filepath.Join(t.TempDir(), "preferences.yaml"),
		NotifyInterval:            24 * time.Hour,
		CompanionPushSubject:      "forecast.companion.summary",
		CompanionInstalledSubject: "forecast.companion.installed",
	}
}

func TestGraphIsComplete(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, fx.ValidateApp(Core, Server, fx.Supply(cfg)))
}

func TestCoreSyncsFakeForecast(t *testing.T) {
	cfg := testConfig(t)

	var (
		svc    *weather.Service
		reader *weather.Reader
		p      *prefs.Store
	)
	app := fxtest.New(t, Core, fx.Supply(cfg), fx.NopLogger, fx.Populate(&svc, &reader, &p))
	app.RequireStart()
	defer app.RequireStop()

	res, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fake", res.Source)
	assert.Equal(t, 7, res.Written)
	assert.True(t, res.Notified)
	assert.False(t, res.Pushed)

	recs, err := reader.QueryPath(context.Background(), "/forecast", nil)
	require.NoError(t, err)
	assert.Len(t, recs, 7)

	assert.Less(t, p.LastNotificationElapsed(), time.Minute)
}

func TestNewSourceSelection(t *testing.T) {
	cfg := testConfig(t)
	p, err := prefs.Load("")
	require.NoError(t, err)

	for _, name := range []string{"openweathermap", "openweathermap-3h", "openmeteo", "fake"} {
		cfg.Provider = name
		cfg.OpenWeatherAPIKey = "key"
		src, err := NewSource(cfg, http.DefaultClient, p)
		require.NoError(t, err, name)
		assert.Equal(t, name, src.Name())
	}

	cfg.Provider = "openweathermap"
	cfg.OpenWeatherAPIKey = ""
	_, err = NewSource(cfg, http.DefaultClient, p)
	assert.ErrorIs(t, err, errNoAPIKey)

	cfg.Provider = "darksky"
	_, err = NewSource(cfg, http.DefaultClient, p)
	assert.Error(t, err)
}

func TestMemoryStoreDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = "memory"

	st, err := NewStore(fxtest.NewLifecycle(t), cfg)
	require.NoError(t, err)

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
