package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/forecast-cache/internal/weather"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

var openMeteoDaily = []string{
	"weather_code",
	"temperature_2m_min",
	"temperature_2m_max",
	"relative_humidity_2m_mean",
	"pressure_msl_mean",
	"wind_speed_10m_max",
	"wind_direction_10m_dominant",
}

// Geocoder resolves a city to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, loc weather.Location) (weather.Location, error)
}

// OpenMeteoOptions configures an OpenMeteoProvider.
type OpenMeteoOptions struct {
	Days int

	// Geocoder resolves locations without coordinates. Without one such locations fail.
	Geocoder Geocoder

	// BaseURL overrides the endpoint.
	BaseURL string
}

// OpenMeteoProvider fetches the keyless Open-Meteo daily forecast.
// Open-Meteo needs coordinates and reports WMO weather codes, which are
// mapped onto the OpenWeatherMap code families used by the store.
type OpenMeteoProvider struct {
	name     string
	days     int
	geocoder Geocoder
	baseURL  string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

var _ weather.Source = (*OpenMeteoProvider)(nil)

func NewOpenMeteoProvider(client *http.Client, opts OpenMeteoOptions) *OpenMeteoProvider {
	if opts.Days <= 0 {
		opts.Days = DefaultForecastDays
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = openMeteoURL
	}

	return &OpenMeteoProvider{
		name:     "openmeteo",
		days:     min(opts.Days, 16),
		geocoder: opts.Geocoder,
		baseURL:  baseURL,
		httpCfg:  defaultHTTPConfig(client),
		circuit:  newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) ([]byte, error) {
	if !loc.HasCoordinates() {
		if p.geocoder == nil {
			return nil, fmt.Errorf("openmeteo requires latitude and longitude")
		}
		resolved, err := p.geocoder.Geocode(ctx, loc)
		if err != nil {
			return nil, fmt.Errorf("openmeteo geocode %s: %w", loc.Key(), err)
		}
		loc = resolved
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(*loc.Lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(*loc.Lon, 'f', -1, 64))
		values.Set("daily", strings.Join(openMeteoDaily, ","))
		values.Set("timezone", "UTC")
		values.Set("forecast_days", strconv.Itoa(p.days))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return fetchBody(ctx, p.httpCfg, p.circuit, buildRequest)
}

type openMeteoPayload struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
	Daily  struct {
		Time          []string   `json:"time"`
		WeatherCode   []*int     `json:"weather_code"`
		MinTemp       []*float64 `json:"temperature_2m_min"`
		MaxTemp       []*float64 `json:"temperature_2m_max"`
		Humidity      []*float64 `json:"relative_humidity_2m_mean"`
		Pressure      []*float64 `json:"pressure_msl_mean"`
		WindSpeed     []*float64 `json:"wind_speed_10m_max"` // km/h
		WindDirection []*float64 `json:"wind_direction_10m_dominant"`
	} `json:"daily"`
}

// Parse decodes a daily payload. Null entries and unmapped weather codes stay nil.
func (p *OpenMeteoProvider) Parse(payload []byte) ([]weather.ForecastRecord, error) {
	var data openMeteoPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, err
	}
	if data.Error {
		return nil, fmt.Errorf("openmeteo: %s", data.Reason)
	}

	d := data.Daily
	recs := make([]weather.ForecastRecord, 0, len(d.Time))
	for i, raw := range d.Time {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, fmt.Errorf("openmeteo day %q: %w", raw, err)
		}

		rec := weather.ForecastRecord{
			Day:           weather.Int64(weather.NormalizeDay(t)),
			MinTemp:       at(d.MinTemp, i),
			MaxTemp:       at(d.MaxTemp, i),
			Humidity:      at(d.Humidity, i),
			Pressure:      at(d.Pressure, i),
			WindSpeed:     at(d.WindSpeed, i),
			WindDirection: at(d.WindDirection, i),
		}
		if code := at(d.WeatherCode, i); code != nil {
			if mapped, ok := mapWMOCode(*code); ok {
				rec.ConditionCode = weather.Int(mapped)
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func at[T any](values []*T, i int) *T {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

// mapWMOCode converts a WMO weather interpretation code to the closest OpenWeatherMap code.
func mapWMOCode(code int) (int, bool) {
	switch code {
	case 0:
		return 800, true
	case 1:
		return 801, true
	case 2:
		return 802, true
	case 3:
		return 804, true
	case 45, 48:
		return 741, true
	case 51:
		return 300, true
	case 53:
		return 301, true
	case 55:
		return 302, true
	case 56, 57, 66, 67:
		return 511, true
	case 61:
		return 500, true
	case 63:
		return 501, true
	case 65:
		return 502, true
	case 71, 77:
		return 600, true
	case 73:
		return 601, true
	case 75:
		return 602, true
	case 80:
		return 520, true
	case 81:
		return 501, true
	case 82:
		return 502, true
	case 85:
		return 620, true
	case 86:
		return 622, true
	case 95:
		return 211, true
	case 96:
		return 201, true
	case 99:
		return 202, true
	default:
		return 0, false
	}
}
