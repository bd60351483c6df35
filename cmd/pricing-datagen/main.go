// Command pricing-datagen writes a synthetic demo dataset (catalog, sales
// history, competitor prices) in the raw input layout the pipeline reads.
package main

import (
	"flag"
	"log/slog"
	"os"

	"pricecli/internal/datagen"
	"pricecli/internal/pipeline"
)

func main() {
	outDir := flag.String("out", "data", "directory to write the generated CSVs")
	seed := flag.Int64("seed", datagen.DefaultSeed, "random seed (same seed, same dataset)")
	days := flag.Int("days", 0, "days of sales history (overrides default when > 0)")
	products := flag.Int("products", 0, "number of products (overrides default when > 0)")
	flag.Parse()

	params := datagen.DefaultParams()
	params.Seed = *seed
	if *days > 0 {
		params.Days = *days
	}
	if *products > 0 {
		params.Products = *products
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		slog.Error("failed to create output directory", "dir", *outDir, "error", err)
		os.Exit(1)
	}

	ds := datagen.Generate(params)
	if err := pipeline.WriteInputs(*outDir, ds); err != nil {
		slog.Error("failed to write dataset", "error", err)
		os.Exit(1)
	}

	slog.Info("dataset written",
		"dir", *outDir,
		"products", len(ds.Catalog),
		"sales_rows", len(ds.Sales),
		"competitor_rows", len(ds.CompetitorPrices),
	)
}
