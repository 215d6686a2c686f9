package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/i474232898/forecast-cache/internal/app"
	"github.com/i474232898/forecast-cache/internal/config"
	"github.com/i474232898/forecast-cache/internal/logging"
)

var (
	cfg       *config.AppConfig
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "forecast-cache",
	Short: "Local cache of the daily weather forecast",
	Long: `forecast-cache keeps a local, day-keyed cache of the weather forecast.

It periodically fetches the forecast, replaces the cached days in one
transaction, notifies at most once a day and pushes a summary of today to
the companion device.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logCloser = logging.Setup(cfg.Log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler, companion listener and HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		fx.New(
			app.Core,
			app.Server,
			fx.Supply(cfg),
			fx.WithLogger(func() fxevent.Logger {
				return &fxevent.ConsoleLogger{W: log.Writer()}
			}),
		).Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
