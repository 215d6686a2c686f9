// Package app wires the forecast cache components together with fx.
//
// Core provides everything a one-shot command needs (store, preferences,
// reader, source, service). Server adds the long-running parts: the sync
// scheduler, the companion listener and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	httpapi "github.com/i474232898/forecast-cache/internal/api/http"
	"github.com/i474232898/forecast-cache/internal/companion"
	"github.com/i474232898/forecast-cache/internal/config"
	"github.com/i474232898/forecast-cache/internal/metrics"
	"github.com/i474232898/forecast-cache/internal/notify"
	"github.com/i474232898/forecast-cache/internal/prefs"
	"github.com/i474232898/forecast-cache/internal/route"
	"github.com/i474232898/forecast-cache/internal/scheduler"
	"github.com/i474232898/forecast-cache/internal/store"
	"github.com/i474232898/forecast-cache/internal/weather"
	"github.com/i474232898/forecast-cache/internal/weather/providers"
)

var errNoAPIKey = errors.New("OPENWEATHER_API_KEY is required for the openweathermap provider")

// Core provides the cache and its sync service. It expects a *config.AppConfig
// to be supplied.
var Core = fx.Module("core",
	fx.Provide(
		NewHTTPClient,
		NewStore,
		NewPreferences,
		NewReader,
		NewSource,
		NewNotifier,
		metrics.NewPrometheusRecorder,
		NewNATSConn,
		NewService,
	),
)

// Server runs periodic syncs, the companion install listener and the HTTP API.
var Server = fx.Module("server",
	fx.Provide(
		NewScheduler,
		NewHTTPServer,
	),
	fx.Invoke(
		ListenCompanion,
		func(*scheduler.Scheduler, *fiber.App) {},
	),
)

// NewHTTPClient is the shared client for outbound provider and webhook calls.
func NewHTTPClient(cfg *config.AppConfig) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

// NewStore opens the configured record store and closes it on shutdown.
func NewStore(lc fx.Lifecycle, cfg *config.AppConfig) (weather.Store, error) {
	if cfg.StoreDriver == "memory" {
		log.Printf("INFO: store: using in-memory forecast store")
		return store.NewMemoryStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg.StorePath, store.Options{Version: cfg.StoreSchemaVersion})
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: store: opened %s (schema version %d)", cfg.StorePath, st.Version())

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Printf("INFO: store: closing %s", cfg.StorePath)
			return st.Close()
		},
	})
	return st, nil
}

// NewPreferences loads the preference file and watches it while the app runs.
func NewPreferences(lc fx.Lifecycle, cfg *config.AppConfig) (*prefs.Store, error) {
	p, err := prefs.Load(cfg.PrefsPath)
	if err != nil {
		return nil, err
	}
	if cfg.PrefsPath == "" {
		return p, nil
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return p.Watch()
		},
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})
	return p, nil
}

// NewReader builds the route reader over the store.
func NewReader(cfg *config.AppConfig, st weather.Store) *weather.Reader {
	return weather.NewReader(route.NewMatcher(cfg.Authority), st)
}

// NewSource selects the forecast provider named by the configuration.
func NewSource(cfg *config.AppConfig, client *http.Client, p *prefs.Store) (weather.Source, error) {
	switch cfg.Provider {
	case "openweathermap", "openweathermap-3h":
		if cfg.OpenWeatherAPIKey == "" {
			return nil, errNoAPIKey
		}
		return providers.NewOpenWeatherProvider(client, providers.OpenWeatherOptions{
			APIKey:      cfg.OpenWeatherAPIKey,
			Days:        cfg.ForecastDays,
			ThreeHourly: cfg.Provider == "openweathermap-3h",
			OnCoordinates: func(lat, lon float64) {
				if err := p.SaveCoordinates(lat, lon); err != nil {
					log.Printf("ERROR: prefs: failed to save reported coordinates: %v", err)
				}
			},
		}), nil

	case "openmeteo":
		opts := providers.OpenMeteoOptions{Days: cfg.ForecastDays}
		if cfg.GeocoderAPIKey != "" {
			opts.Geocoder = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)
		} else if !cfg.Location.HasCoordinates() {
			log.Printf("INFO: openmeteo: no GEOCODER_API_KEY; only coordinate locations can be synced")
		}
		return providers.NewOpenMeteoProvider(client, opts), nil

	case "fake":
		return providers.NewFakeSource(cfg.ForecastDays, uint64(time.Now().UnixNano())), nil

	default:
		return nil, fmt.Errorf("unknown forecast provider %q", cfg.Provider)
	}
}

// NewNotifier posts to the webhook when one is configured and logs otherwise.
func NewNotifier(cfg *config.AppConfig, client *http.Client) weather.Notifier {
	if cfg.NotifyWebhookURL != "" {
		return notify.NewWebhookNotifier(client, cfg.NotifyWebhookURL)
	}
	return notify.LogNotifier{}
}

// NewNATSConn connects to the companion broker. Without NATS_URL it returns nil
// and the companion features stay off.
func NewNATSConn(lc fx.Lifecycle, cfg *config.AppConfig) (*nats.Conn, error) {
	if cfg.NATSURL == "" {
		log.Printf("INFO: companion: NATS_URL not set; companion push disabled")
		return nil, nil
	}

	nc, err := companion.Connect(cfg.NATSURL, cfg.AppName)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return nc.Drain()
		},
	})
	return nc, nil
}

// ServiceParams are the dependencies of the sync service.
type ServiceParams struct {
	fx.In

	Config   *config.AppConfig
	Store    weather.Store
	Reader   *weather.Reader
	Source   weather.Source
	Prefs    *prefs.Store
	Notifier weather.Notifier
	Recorder *metrics.PrometheusRecorder
	NATS     *nats.Conn
}

// NewService builds the sync service.
func NewService(p ServiceParams) *weather.Service {
	cfg := weather.ServiceConfig{
		AppName:        p.Config.AppName,
		NotifyInterval: p.Config.NotifyInterval,
		Location:       p.Config.Location,
		Prefs:          p.Prefs,
		Notifier:       p.Notifier,
		Recorder:       p.Recorder,
	}
	if p.NATS != nil {
		cfg.Pusher = companion.NewPusher(p.NATS, p.Config.CompanionPushSubject)
	}
	return weather.NewService(p.Store, p.Reader, p.Source, cfg)
}

// NewScheduler runs the sync every FETCH_INTERVAL while the app is up.
func NewScheduler(lc fx.Lifecycle, cfg *config.AppConfig, svc *weather.Service) *scheduler.Scheduler {
	s := scheduler.New(svc, cfg.FetchInterval, cfg.SyncTimeout)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return s.Start()
		},
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
	return s
}

// ListenCompanion triggers a sync whenever the companion reports an install.
func ListenCompanion(lc fx.Lifecycle, cfg *config.AppConfig, nc *nats.Conn, svc *weather.Service) {
	if nc == nil {
		return
	}

	var sub *nats.Subscription
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var err error
			sub, err = companion.ListenInstalled(nc, cfg.CompanionInstalledSubject, svc, cfg.SyncTimeout)
			return err
		},
		OnStop: func(context.Context) error {
			if sub == nil {
				return nil
			}
			return sub.Unsubscribe()
		},
	})
}

// NewHTTPServer serves the read API, manual sync, health and metrics.
func NewHTTPServer(lc fx.Lifecycle, cfg *config.AppConfig, svc *weather.Service, p *prefs.Store, rec *metrics.PrometheusRecorder) *fiber.App {
	app := httpapi.NewApp(cfg.AppName)
	httpapi.RegisterMetrics(app, rec.Handler())
	httpapi.RegisterRoutes(app, svc, p)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := app.Listen(":" + cfg.Port); err != nil {
					log.Printf("ERROR: http: fiber server stopped: %v", err)
				}
			}()
			log.Printf("INFO: http: listening on :%s", cfg.Port)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
	return app
}
