package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/i474232898/forecast-cache/internal/app"
	"github.com/i474232898/forecast-cache/internal/weather"
)

var syncFake bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle and exit",
	Long: `Fetch the forecast once, replace the cached days, then notify and push
as a scheduled cycle would.

With --fake, seven days of random data starting today are stored instead of
calling a provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncFake {
			cfg.Provider = "fake"
			cfg.ForecastDays = 7
		}

		var svc *weather.Service
		fxApp := fx.New(app.Core, fx.Supply(cfg), fx.NopLogger, fx.Populate(&svc))
		if err := fxApp.Err(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.SyncTimeout+fx.DefaultTimeout)
		defer cancel()

		if err := fxApp.Start(ctx); err != nil {
			return err
		}
		defer fxApp.Stop(context.Background())

		syncCtx, cancelSync := context.WithTimeout(ctx, cfg.SyncTimeout)
		defer cancelSync()

		res, err := svc.Sync(syncCtx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFake, "fake", false, "store seven days of random forecast data")
	rootCmd.AddCommand(syncCmd)
}
