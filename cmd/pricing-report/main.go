// Command pricing-report runs the pricing pipeline once and writes the
// elasticity, forecast and recommendation reports to the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"pricecli/internal/config"
	"pricecli/internal/pipeline"
)

func main() {
	dataDir := flag.String("data", "", "input directory with products/sales/competitor CSVs (defaults to config paths.data_dir)")
	outDir := flag.String("out", "", "output directory for reports (defaults to config paths.out_dir)")
	horizon := flag.Int("horizon", 0, "forecast horizon in days (overrides config when > 0)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger()

	if *dataDir != "" {
		cfg.Paths.DataDir = *dataDir
	}
	if *outDir != "" {
		cfg.Paths.OutDir = *outDir
	}
	if *horizon > 0 {
		cfg.Pricing.HorizonDays = *horizon
	}

	metrics := pipeline.NewMetrics(prometheus.NewRegistry())
	runner := pipeline.NewRunner(logger, metrics, pipeline.DefaultSteps(logger, metrics)...)

	state := &pipeline.State{
		Config:  cfg.Pricing,
		DataDir: cfg.Paths.DataDir,
		OutDir:  cfg.Paths.OutDir,
	}

	ctx := context.Background()
	run, err := runner.Execute(ctx, state)
	if err != nil {
		logger.ErrorContext(ctx, "pricing run failed", "run_id", run.ID, "error", err)
		os.Exit(1)
	}

	logger.InfoContext(ctx, "pricing run completed",
		"run_id", run.ID,
		"products", len(state.Catalog),
		"estimates", len(state.Estimates),
		"forecast_points", len(state.ForecastPoints),
		"recommendations", len(state.Recommendations),
		"out_dir", state.OutDir,
	)
}
