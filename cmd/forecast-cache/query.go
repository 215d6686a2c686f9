package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/i474232898/forecast-cache/internal/app"
	"github.com/i474232898/forecast-cache/internal/prefs"
	"github.com/i474232898/forecast-cache/internal/units"
	"github.com/i474232898/forecast-cache/internal/weather"
)

var (
	queryColumns string
	queryUnits   string
	queryJSON    bool
)

var queryCmd = &cobra.Command{
	Use:   "query [path]",
	Short: "Read cached forecast days by route path",
	Long: `Read the cache the same way the HTTP API does.

  forecast-cache query                        every cached day
  forecast-cache query /forecast/1700006400000 one day (ms since epoch, UTC midnight)`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cols []weather.Column
		if queryColumns != "" {
			var err error
			if cols, err = weather.ParseColumns(strings.Split(queryColumns, ",")); err != nil {
				return err
			}
		}

		var (
			reader *weather.Reader
			p      *prefs.Store
		)
		fxApp := fx.New(app.Core, fx.Supply(cfg), fx.NopLogger, fx.Populate(&reader, &p))
		if err := fxApp.Err(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := fxApp.Start(ctx); err != nil {
			return err
		}
		defer fxApp.Stop(context.Background())

		path := reader.Matcher().CollectionPath()
		if len(args) == 1 {
			path = args[0]
		}

		recs, err := reader.QueryPath(ctx, path, cols)
		if err != nil {
			return err
		}

		if queryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		}

		sys := units.FromMetric(p.IsMetric())
		switch strings.ToLower(queryUnits) {
		case "":
		case string(units.Metric), string(units.Imperial):
			sys = units.System(strings.ToLower(queryUnits))
		default:
			return fmt.Errorf("unknown units %q", queryUnits)
		}
		return printRecords(recs, sys)
	},
}

func printRecords(recs []weather.ForecastRecord, sys units.System) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tCONDITION\tHIGH / LOW\tHUMIDITY\tPRESSURE\tWIND")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			orDash(r.Day, func(d int64) string { return time.UnixMilli(d).UTC().Format("Mon 2006-01-02") }),
			orDash(r.ConditionCode, weather.Describe),
			highLow(r, sys),
			orDash(r.Humidity, func(h float64) string { return fmt.Sprintf("%.0f%%", h) }),
			orDash(r.Pressure, func(p float64) string { return fmt.Sprintf("%.0f hPa", p) }),
			wind(r, sys),
		)
	}
	return w.Flush()
}

func highLow(r weather.ForecastRecord, sys units.System) string {
	if r.MaxTemp == nil || r.MinTemp == nil {
		return "-"
	}
	return units.FormatHighLow(*r.MaxTemp, *r.MinTemp, sys)
}

func wind(r weather.ForecastRecord, sys units.System) string {
	if r.WindSpeed == nil || r.WindDirection == nil {
		return "-"
	}
	return units.FormatWind(*r.WindSpeed, *r.WindDirection, sys)
}

func orDash[T any](v *T, format func(T) string) string {
	if v == nil {
		return "-"
	}
	return format(*v)
}

func init() {
	queryCmd.Flags().StringVar(&queryColumns, "columns", "", "comma-separated columns to return (default all)")
	queryCmd.Flags().StringVar(&queryUnits, "units", "", "metric or imperial (default from preferences)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print raw records as JSON")
	rootCmd.AddCommand(queryCmd)
}
