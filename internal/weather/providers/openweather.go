package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/forecast-cache/internal/weather"
)

const (
	openWeatherDailyURL     = "https://api.openweathermap.org/data/2.5/forecast/daily"
	openWeatherThreeHourURL = "https://api.openweathermap.org/data/2.5/forecast"

	// DefaultForecastDays is how many days are requested when none is configured.
	DefaultForecastDays = 14

	// the 3-hour endpoint returns at most 40 steps (5 days)
	maxThreeHourSteps = 40
)

// OpenWeatherOptions configures an OpenWeatherProvider.
type OpenWeatherOptions struct {
	APIKey string
	Days   int

	// ThreeHourly uses the 3-hour forecast endpoint and aggregates it per day.
	ThreeHourly bool

	// BaseURL overrides the endpoint.
	BaseURL string

	// OnCoordinates receives the coordinates the payload reports for the location.
	OnCoordinates func(lat, lon float64)

	// Now is the clock used to anchor day zero. Defaults to time.Now.
	Now func() time.Time
}

// OpenWeatherProvider fetches the OpenWeatherMap forecast in metric units.
type OpenWeatherProvider struct {
	name    string
	opts    OpenWeatherOptions
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

var _ weather.Source = (*OpenWeatherProvider)(nil)

func NewOpenWeatherProvider(client *http.Client, opts OpenWeatherOptions) *OpenWeatherProvider {
	if opts.Days <= 0 {
		opts.Days = DefaultForecastDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	name := "openweathermap"
	baseURL := openWeatherDailyURL
	if opts.ThreeHourly {
		name = "openweathermap-3h"
		baseURL = openWeatherThreeHourURL
	}
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	return &OpenWeatherProvider{
		name:    name,
		opts:    opts,
		baseURL: baseURL,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker(name),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Fetch requests the forecast by coordinates when the location has them, by city otherwise.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc weather.Location) ([]byte, error) {
	if p.opts.APIKey == "" {
		return nil, fmt.Errorf("openweather: %w", errNoAPIKey)
	}
	if !loc.HasCoordinates() && loc.City == "" {
		return nil, fmt.Errorf("openweather: %w: no city or coordinates", ErrLocationNotFound)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.opts.APIKey)
		values.Set("units", "metric")

		if p.opts.ThreeHourly {
			values.Set("cnt", strconv.Itoa(min(p.opts.Days*8, maxThreeHourSteps)))
		} else {
			values.Set("cnt", strconv.Itoa(p.opts.Days))
		}

		if loc.HasCoordinates() {
			values.Set("lat", strconv.FormatFloat(*loc.Lat, 'f', -1, 64))
			values.Set("lon", strconv.FormatFloat(*loc.Lon, 'f', -1, 64))
		} else {
			q := loc.City
			if loc.Country != "" {
				q = fmt.Sprintf("%s,%s", loc.City, loc.Country)
			}
			values.Set("q", q)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	body, err := fetchBody(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("openweather %s: %w", loc.Key(), ErrLocationNotFound)
		}
		return nil, err
	}
	return body, nil
}

// statusCode is the "cod" field, which the API sends as either a string or a number.
type statusCode int

func (c *statusCode) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid cod %q: %w", s, err)
	}
	*c = statusCode(n)
	return nil
}

type owmCity struct {
	Coord struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"coord"`
}

type owmCondition struct {
	ID *int `json:"id"`
}

type owmDailyPayload struct {
	Cod  statusCode `json:"cod"`
	City owmCity    `json:"city"`
	List []struct {
		Temp struct {
			Min *float64 `json:"min"`
			Max *float64 `json:"max"`
		} `json:"temp"`
		Pressure *float64       `json:"pressure"`
		Humidity *float64       `json:"humidity"`
		Speed    *float64       `json:"speed"` // m/s
		Deg      *float64       `json:"deg"`
		Weather  []owmCondition `json:"weather"`
	} `json:"list"`
}

type owmThreeHourPayload struct {
	Cod  statusCode `json:"cod"`
	City owmCity    `json:"city"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			TempMin  float64 `json:"temp_min"`
			TempMax  float64 `json:"temp_max"`
			Pressure float64 `json:"pressure"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"` // m/s
			Deg   float64 `json:"deg"`
		} `json:"wind"`
		Weather []owmCondition `json:"weather"`
	} `json:"list"`
}

// Parse decodes a payload returned by Fetch.
//
// Daily payloads carry no usable date, so day i is today's UTC midnight plus i days.
// Fields missing from the payload stay nil and the store rejects those records.
// Wind speed is converted from m/s to km/h.
func (p *OpenWeatherProvider) Parse(payload []byte) ([]weather.ForecastRecord, error) {
	if p.opts.ThreeHourly {
		return p.parseThreeHour(payload)
	}

	var data owmDailyPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, err
	}
	if err := checkCode(data.Cod); err != nil {
		return nil, err
	}
	p.reportCoordinates(data.City)

	today := weather.NormalizeDay(p.opts.Now())
	recs := make([]weather.ForecastRecord, 0, len(data.List))
	for i, d := range data.List {
		rec := weather.ForecastRecord{
			Day:           weather.Int64(today + int64(i)*weather.DayMillis),
			MinTemp:       d.Temp.Min,
			MaxTemp:       d.Temp.Max,
			Humidity:      d.Humidity,
			Pressure:      d.Pressure,
			WindDirection: d.Deg,
		}
		if d.Speed != nil {
			rec.WindSpeed = weather.Float(msToKph(*d.Speed))
		}
		if len(d.Weather) > 0 {
			rec.ConditionCode = d.Weather[0].ID
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (p *OpenWeatherProvider) parseThreeHour(payload []byte) ([]weather.ForecastRecord, error) {
	var data owmThreeHourPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, err
	}
	if err := checkCode(data.Cod); err != nil {
		return nil, err
	}
	p.reportCoordinates(data.City)

	samples := make([]weather.Sample, 0, len(data.List))
	for _, step := range data.List {
		if len(step.Weather) == 0 || step.Weather[0].ID == nil {
			continue
		}
		samples = append(samples, weather.Sample{
			Time:          time.Unix(step.Dt, 0).UTC(),
			ConditionCode: *step.Weather[0].ID,
			MinTemp:       step.Main.TempMin,
			MaxTemp:       step.Main.TempMax,
			Humidity:      step.Main.Humidity,
			Pressure:      step.Main.Pressure,
			WindSpeed:     msToKph(step.Wind.Speed),
			WindDirection: step.Wind.Deg,
		})
	}
	return weather.AggregateDaily(samples), nil
}

func (p *OpenWeatherProvider) reportCoordinates(city owmCity) {
	if p.opts.OnCoordinates == nil || city.Coord.Lat == nil || city.Coord.Lon == nil {
		return
	}
	p.opts.OnCoordinates(*city.Coord.Lat, *city.Coord.Lon)
}

func checkCode(code statusCode) error {
	switch code {
	case 0, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrLocationNotFound
	default:
		return fmt.Errorf("%w: cod %d", errServerError, code)
	}
}

func msToKph(ms float64) float64 {
	return ms * 3.6
}
