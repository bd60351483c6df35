// Command pricing-server exposes the pricing pipeline over HTTP: trigger
// runs, poll their status and query the latest results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"pricecli/internal/config"
	"pricecli/internal/pipeline"
	"pricecli/internal/services"
	transport "pricecli/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger()

	registry := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(registry)
	runner := pipeline.NewRunner(logger, metrics, pipeline.DefaultSteps(logger, metrics)...)

	service := services.NewPricingService(cfg.Pricing, cfg.Paths.DataDir, cfg.Paths.OutDir, runner, logger)
	server := transport.NewServer(cfg.Server, service, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx := context.Background()
	select {
	case err := <-errCh:
		if err != nil {
			logger.ErrorContext(ctx, "server error", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.InfoContext(ctx, "shutting down", "signal", sig.String())
		if err := server.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "shutdown error", "error", err)
			os.Exit(1)
		}
	}
}
