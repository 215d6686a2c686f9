package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/forecast-cache/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	AppName string `validate:"required"`
	Port    string `validate:"required,numeric"`

	// FetchInterval controls how often the forecast is synced.
	FetchInterval time.Duration `validate:"gt=0"`
	HTTPTimeout   time.Duration `validate:"gt=0"`
	SyncTimeout   time.Duration `validate:"gt=0"`

	Provider          string `validate:"oneof=openweathermap openweathermap-3h openmeteo fake"`
	OpenWeatherAPIKey string
	GeocoderAPIKey    string
	ForecastDays      int `validate:"min=1,max=16"`

	Location weather.Location

	// Route authority of the forecast collection, e.g. "forecast" for /forecast/<day>.
	Authority string `validate:"required"`

	StoreDriver        string `validate:"oneof=sqlite memory"`
	StorePath          string `validate:"required_if=StoreDriver sqlite"`
	StoreSchemaVersion int    `validate:"min=1"`

	PrefsPath string

	NotifyInterval   time.Duration `validate:"gt=0"`
	NotifyWebhookURL string        `validate:"omitempty,url"`

	NATSURL                   string `validate:"omitempty,url"`
	CompanionPushSubject      string `validate:"required"`
	CompanionInstalledSubject string `validate:"required"`

	Log LogConfig
}

// LogConfig controls where log output goes. An empty File logs to stdout only.
type LogConfig struct {
	File       string
	MaxSizeMB  int `validate:"min=1"`
	MaxBackups int `validate:"min=0"`
	MaxAgeDays int `validate:"min=0"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment without touching .env.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		AppName:           getenvDefault("APP_NAME", "forecast-cache"),
		Port:              getenvDefault("PORT", "8080"),
		Provider:          strings.ToLower(getenvDefault("FORECAST_PROVIDER", "openweathermap")),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		GeocoderAPIKey:    os.Getenv("GEOCODER_API_KEY"),
		ForecastDays:      getenvInt("FORECAST_DAYS", 14),
		Authority:         getenvDefault("ROUTE_AUTHORITY", "forecast"),

		StoreDriver:        strings.ToLower(getenvDefault("STORE_DRIVER", "sqlite")),
		StorePath:          getenvDefault("STORE_PATH", "forecast.db"),
		StoreSchemaVersion: getenvInt("STORE_SCHEMA_VERSION", 3),

		PrefsPath: getenvDefault("PREFS_PATH", "preferences.yaml"),

		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),

		NATSURL:                   os.Getenv("NATS_URL"),
		CompanionPushSubject:      getenvDefault("COMPANION_PUSH_SUBJECT", "forecast.companion.summary"),
		CompanionInstalledSubject: getenvDefault("COMPANION_INSTALLED_SUBJECT", "forecast.companion.installed"),

		Log: LogConfig{
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getenvInt("LOG_MAX_SIZE_MB", 10),
			MaxBackups: getenvInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getenvInt("LOG_MAX_AGE_DAYS", 28),
		},
	}

	var err error
	// Scheduler interval: default 3 hours.
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", 3*time.Hour); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncTimeout, err = getenvDuration("SYNC_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}
	if cfg.NotifyInterval, err = getenvDuration("NOTIFY_INTERVAL", weather.DefaultNotifyInterval); err != nil {
		return nil, err
	}

	loc, err := loadLocation()
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadLocation() (weather.Location, error) {
	loc := weather.Location{
		City:    strings.TrimSpace(os.Getenv("WEATHER_LOCATION_CITY")),
		Country: strings.TrimSpace(os.Getenv("WEATHER_LOCATION_COUNTRY")),
	}

	latStr, lonStr := os.Getenv("WEATHER_LOCATION_LAT"), os.Getenv("WEATHER_LOCATION_LON")
	if (latStr == "") != (lonStr == "") {
		return loc, fmt.Errorf("WEATHER_LOCATION_LAT and WEATHER_LOCATION_LON must be set together")
	}
	if latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil || lat < -90 || lat > 90 {
			return loc, fmt.Errorf("invalid WEATHER_LOCATION_LAT %q", latStr)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil || lon < -180 || lon > 180 {
			return loc, fmt.Errorf("invalid WEATHER_LOCATION_LON %q", lonStr)
		}
		loc.Lat, loc.Lon = &lat, &lon
	}

	if loc.City == "" && !loc.HasCoordinates() {
		loc.City = "London"
		loc.Country = "GB"
	}
	return loc, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
