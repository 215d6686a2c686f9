package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/forecast-cache/internal/route"
	"github.com/i474232898/forecast-cache/internal/store"
	"github.com/i474232898/forecast-cache/internal/weather"
)

const day0 int64 = 1_710_028_800_000

type staticSource struct {
	recs []weather.ForecastRecord
	err  error
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Fetch(context.Context, weather.Location) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("{}"), nil
}

func (s staticSource) Parse([]byte) ([]weather.ForecastRecord, error) {
	return s.recs, nil
}

func threeDays() []weather.ForecastRecord {
	recs := make([]weather.ForecastRecord, 3)
	for i := range recs {
		recs[i] = weather.ForecastRecord{
			Day:           weather.Int64(day0 + int64(i)*weather.DayMillis),
			ConditionCode: weather.Int(800),
			MinTemp:       weather.Float(5),
			MaxTemp:       weather.Float(12),
			Humidity:      weather.Float(70),
			Pressure:      weather.Float(1013),
			WindSpeed:     weather.Float(10),
			WindDirection: weather.Float(225),
		}
	}
	return recs
}

func newTestApp(t *testing.T, src weather.Source) *fiber.App {
	t.Helper()

	st := store.NewMemoryStore()
	reader := weather.NewReader(route.NewMatcher("forecast"), st)
	svc := weather.NewService(st, reader, src, weather.ServiceConfig{AppName: "test"})

	app := NewApp("test")
	RegisterRoutes(app, svc, nil)
	return app
}

type readResponse struct {
	Route   string `json:"route"`
	Records []struct {
		weather.ForecastRecord
		Display *displayView `json:"display"`
	} `json:"records"`
}

func doJSON(t *testing.T, app *fiber.App, method, target string, out any) int {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestSyncThenReadCollection(t *testing.T) {
	app := newTestApp(t, staticSource{recs: threeDays()})

	var res weather.SyncResult
	if code := doJSON(t, app, http.MethodPost, "/api/v1/sync", &res); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if res.Written != 3 || res.CycleID == "" {
		t.Fatalf("unexpected sync result: %+v", res)
	}

	var body readResponse
	if code := doJSON(t, app, http.MethodGet, "/api/v1/forecast", &body); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if body.Route != "COLLECTION" || len(body.Records) != 3 {
		t.Fatalf("unexpected response: %+v", body)
	}
	if body.Records[0].Display != nil {
		t.Fatalf("display fields should be omitted without units")
	}
}

func TestReadSingleDayWithProjection(t *testing.T) {
	app := newTestApp(t, staticSource{recs: threeDays()})
	doJSON(t, app, http.MethodPost, "/api/v1/sync", nil)

	day := day0 + weather.DayMillis
	var body readResponse
	target := "/api/v1" + route.NewMatcher("forecast").DayPath(day) + "?columns=day,max_temp,min_temp&units=imperial"
	if code := doJSON(t, app, http.MethodGet, target, &body); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if body.Route != "COLLECTION_WITH_DAY" || len(body.Records) != 1 {
		t.Fatalf("unexpected response: %+v", body)
	}

	rec := body.Records[0]
	if rec.Day == nil || *rec.Day != day {
		t.Fatalf("unexpected day: %v", rec.Day)
	}
	if rec.Humidity != nil || rec.ConditionCode != nil {
		t.Fatalf("projection leaked columns: %+v", rec.ForecastRecord)
	}
	if rec.Display == nil || rec.Display.HighLow != "54° / 41°" {
		t.Fatalf("unexpected display: %+v", rec.Display)
	}
}

func TestReadMissingDayIsEmpty(t *testing.T) {
	app := newTestApp(t, staticSource{recs: threeDays()})

	var body readResponse
	if code := doJSON(t, app, http.MethodGet, "/api/v1/forecast/42", &body); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if len(body.Records) != 0 {
		t.Fatalf("expected no records, got %d", len(body.Records))
	}
}

func TestReadValidation(t *testing.T) {
	app := newTestApp(t, staticSource{})

	cases := map[string]int{
		"/api/v1/weather":                        http.StatusNotFound,
		"/api/v1/forecast/abc":                   http.StatusNotFound,
		"/api/v1/forecast/1/2":                   http.StatusNotFound,
		"/api/v1/forecast?columns=day,colour":    http.StatusBadRequest,
		"/api/v1/forecast?units=kelvin":          http.StatusBadRequest,
		"/api/v1/forecast?columns=_id,day&units": http.StatusOK,
	}
	for target, want := range cases {
		if code := doJSON(t, app, http.MethodGet, target, nil); code != want {
			t.Fatalf("%s: expected status %d, got %d", target, want, code)
		}
	}
}

func TestSyncFetchFailureIsBadGateway(t *testing.T) {
	app := newTestApp(t, staticSource{err: errors.New("upstream down")})

	if code := doJSON(t, app, http.MethodPost, "/api/v1/sync", nil); code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, code)
	}
}

func TestSyncWithoutSource(t *testing.T) {
	app := newTestApp(t, nil)

	if code := doJSON(t, app, http.MethodPost, "/api/v1/sync", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := NewApp("forecast-cache")
	RegisterMetrics(app, promhttp.Handler())

	var health map[string]string
	if code := doJSON(t, app, http.MethodGet, "/health", &health); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if health["service"] != "forecast-cache" {
		t.Fatalf("unexpected health body: %v", health)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("metrics output missing go collector")
	}
}
