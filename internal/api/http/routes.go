package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/forecast-cache/internal/route"
	"github.com/i474232898/forecast-cache/internal/units"
	"github.com/i474232898/forecast-cache/internal/weather"
)

var validate = validator.New()

// NewApp creates the Fiber app with the shared error handler and middleware.
func NewApp(appName string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	return app
}

// RegisterMetrics exposes a net/http metrics handler at /metrics.
func RegisterMetrics(app *fiber.App, handler http.Handler) {
	app.Get("/metrics", adaptor.HTTPHandler(handler))
}

// RegisterRoutes wires the forecast handlers into the Fiber app.
// prefs may be nil; it only supplies the default display units.
func RegisterRoutes(app *fiber.App, service *weather.Service, prefs weather.Preferences) {
	v1 := app.Group("/api/v1")

	v1.Post("/sync", func(c *fiber.Ctx) error {
		res, err := service.Sync(c.UserContext())
		if err != nil {
			var fetchErr *weather.SyncFetchError
			var parseErr *weather.SyncParseError
			switch {
			case errors.Is(err, weather.ErrNoSource):
				return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
			case errors.As(err, &fetchErr), errors.As(err, &parseErr):
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "sync failed")
			}
		}
		return c.JSON(res)
	})

	// Everything else under /api/v1 is a forecast resource path, e.g.
	// /api/v1/forecast or /api/v1/forecast/1700000000000.
	v1.Get("/*", func(c *fiber.Ctx) error {
		var q readQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reader := service.Reader()
		path := "/" + c.Params("*")
		rt := reader.Resolve(path)
		if rt.Kind == route.Unrecognized {
			return fiber.NewError(fiber.StatusNotFound, "unrecognized route: "+path)
		}

		records, err := reader.Query(c.UserContext(), rt, q.columns)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read forecast")
		}

		sys, display := q.system(prefs)
		views := make([]forecastView, 0, len(records))
		for _, rec := range records {
			v := forecastView{ForecastRecord: rec}
			if display {
				v.Display = newDisplay(rec, sys)
			}
			views = append(views, v)
		}

		return c.JSON(fiber.Map{
			"route":   rt.Kind.String(),
			"path":    path,
			"records": views,
		})
	})
}

// readQuery holds query parameters of forecast reads.
type readQuery struct {
	Columns string `validate:"omitempty,max=256"`
	Units   string `validate:"omitempty,oneof=metric imperial"`

	columns []weather.Column
}

func (q *readQuery) bind(c *fiber.Ctx) error {
	q.Columns = c.Query("columns")
	q.Units = strings.ToLower(c.Query("units"))

	if err := validate.Struct(q); err != nil {
		return err
	}

	if q.Columns == "" {
		return nil
	}
	names := strings.Split(q.Columns, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	cols, err := weather.ParseColumns(names)
	if err != nil {
		return err
	}
	q.columns = cols
	return nil
}

// system returns the display units and whether display fields were asked for.
func (q readQuery) system(prefs weather.Preferences) (units.System, bool) {
	switch {
	case q.Units != "":
		return units.System(q.Units), true
	case prefs != nil:
		return units.FromMetric(prefs.IsMetric()), true
	default:
		return units.Metric, false
	}
}

type forecastView struct {
	weather.ForecastRecord
	Display *displayView `json:"display,omitempty"`
}

type displayView struct {
	Description string       `json:"description,omitempty"`
	Art         weather.Art  `json:"art,omitempty"`
	HighLow     string       `json:"highLow,omitempty"`
	Wind        string       `json:"wind,omitempty"`
	Units       units.System `json:"units"`
}

// newDisplay formats whatever fields the projection kept.
func newDisplay(rec weather.ForecastRecord, sys units.System) *displayView {
	d := &displayView{Units: sys}
	if rec.ConditionCode != nil {
		d.Description = weather.Describe(*rec.ConditionCode)
		d.Art = weather.ArtFor(*rec.ConditionCode)
	}
	if rec.MaxTemp != nil && rec.MinTemp != nil {
		d.HighLow = units.FormatHighLow(*rec.MaxTemp, *rec.MinTemp, sys)
	}
	if rec.WindSpeed != nil && rec.WindDirection != nil {
		d.Wind = units.FormatWind(*rec.WindSpeed, *rec.WindDirection, sys)
	}
	return d
}
