package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"pricecli/internal/datagen"
	"pricecli/internal/dataprep"
	"pricecli/internal/exporter"
	"pricecli/internal/pricing"
)

// Input file names expected under the data directory
const (
	ProductsFile   = "products.csv"
	SalesFile      = "sales_history.csv"
	CompetitorFile = "competitor_prices.csv"
	CleanFile      = "clean_data.csv"
)

// PrepareStep assembles the clean observation set. When the raw inputs are
// missing it generates the synthetic demo dataset first, so a fresh checkout
// produces a working run.
type PrepareStep struct {
	logger *slog.Logger
}

// NewPrepareStep creates the data preparation step
func NewPrepareStep(logger *slog.Logger) *PrepareStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrepareStep{logger: logger}
}

func (s *PrepareStep) ID() string   { return "prepare" }
func (s *PrepareStep) Name() string { return "Data Preparation" }

// Run loads (or generates) the raw inputs, merges them into clean rows, and
// persists clean_data.csv beside the inputs
func (s *PrepareStep) Run(ctx context.Context, state *State) error {
	productsPath := filepath.Join(state.DataDir, ProductsFile)
	salesPath := filepath.Join(state.DataDir, SalesFile)
	compPath := filepath.Join(state.DataDir, CompetitorFile)

	if err := os.MkdirAll(state.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	if !allExist(productsPath, salesPath, compPath) {
		s.logger.InfoContext(ctx, "input files missing, generating synthetic demo data",
			"data_dir", state.DataDir)
		ds := datagen.Generate(datagen.DefaultParams())
		if err := WriteInputs(state.DataDir, ds); err != nil {
			return fmt.Errorf("write demo data: %w", err)
		}
	}

	catalog, err := dataprep.LoadCatalog(productsPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	sales, err := dataprep.LoadSales(salesPath)
	if err != nil {
		return fmt.Errorf("load sales history: %w", err)
	}
	comp, err := dataprep.LoadCompetitorPrices(compPath)
	if err != nil {
		return fmt.Errorf("load competitor prices: %w", err)
	}

	rows := dataprep.Prepare(ctx, sales, comp, catalog)
	if err := dataprep.WriteClean(filepath.Join(state.DataDir, CleanFile), rows); err != nil {
		return fmt.Errorf("write clean data: %w", err)
	}

	state.CleanRows = rows
	state.Observations = dataprep.Observations(rows)
	state.Catalog = catalog
	state.CompetitorPrices = comp
	return nil
}

// ElasticityStep runs the per-product elasticity estimator
type ElasticityStep struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewElasticityStep creates the elasticity estimation step
func NewElasticityStep(logger *slog.Logger, metrics *Metrics) *ElasticityStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ElasticityStep{logger: logger, metrics: metrics}
}

func (s *ElasticityStep) ID() string   { return "elasticity" }
func (s *ElasticityStep) Name() string { return "Elasticity Estimation" }

func (s *ElasticityStep) Run(ctx context.Context, state *State) error {
	estimator := pricing.NewEstimator(state.Config, s.logger)
	estimates, err := estimator.Estimate(ctx, state.Observations)
	if err != nil {
		return fmt.Errorf("estimate elasticity: %w", err)
	}
	state.Estimates = estimates

	if s.metrics != nil {
		for _, e := range estimates {
			outcome := "fitted"
			if !e.Defined() {
				outcome = "degraded"
			}
			s.metrics.ElasticityFits.WithLabelValues(outcome).Inc()
		}
	}
	return nil
}

// ForecastStep runs the demand forecaster and derives the optimizer's
// future competitor reference
type ForecastStep struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewForecastStep creates the demand forecasting step
func NewForecastStep(logger *slog.Logger, metrics *Metrics) *ForecastStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastStep{logger: logger, metrics: metrics}
}

func (s *ForecastStep) ID() string   { return "forecast" }
func (s *ForecastStep) Name() string { return "Demand Forecasting" }

func (s *ForecastStep) Run(ctx context.Context, state *State) error {
	forecaster := pricing.NewForecaster(state.Config, s.logger)
	forecasts, err := forecaster.Forecast(ctx, state.Observations)
	if err != nil {
		return fmt.Errorf("forecast demand: %w", err)
	}
	state.Forecasts = forecasts
	state.ForecastPoints = pricing.FlattenForecasts(forecasts)
	state.FutureCompRef = dataprep.FutureCompetitorReference(state.ForecastPoints, state.CompetitorPrices)

	if s.metrics != nil {
		for _, f := range forecasts {
			if f.Fallback != pricing.FallbackNone {
				s.metrics.ForecastFallbacks.WithLabelValues(string(f.Fallback)).Inc()
			}
		}
	}
	return nil
}

// OptimizeStep runs the price optimizer over the forecast rows
type OptimizeStep struct {
	logger *slog.Logger
}

// NewOptimizeStep creates the price optimization step
func NewOptimizeStep(logger *slog.Logger) *OptimizeStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &OptimizeStep{logger: logger}
}

func (s *OptimizeStep) ID() string   { return "optimize" }
func (s *OptimizeStep) Name() string { return "Price Optimization" }

func (s *OptimizeStep) Run(ctx context.Context, state *State) error {
	optimizer := pricing.NewOptimizer(state.Config, s.logger)
	state.Recommendations = optimizer.Recommend(
		ctx, state.ForecastPoints, state.Catalog, state.Estimates, state.FutureCompRef)
	return nil
}

// ExportStep persists the three output datasets and the combined workbook
type ExportStep struct {
	logger *slog.Logger
}

// NewExportStep creates the output export step
func NewExportStep(logger *slog.Logger) *ExportStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportStep{logger: logger}
}

func (s *ExportStep) ID() string   { return "export" }
func (s *ExportStep) Name() string { return "Output Export" }

func (s *ExportStep) Run(ctx context.Context, state *State) error {
	w := exporter.NewCSVWriter(state.OutDir)
	if err := w.WriteElasticity(state.Estimates); err != nil {
		return fmt.Errorf("write elasticity results: %w", err)
	}
	if err := w.WriteForecast(state.ForecastPoints); err != nil {
		return fmt.Errorf("write forecast: %w", err)
	}
	if err := w.WriteRecommendations(state.Recommendations); err != nil {
		return fmt.Errorf("write recommendations: %w", err)
	}
	if err := w.WriteWorkbook(state.Estimates, state.ForecastPoints, state.Recommendations); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// DefaultSteps wires the full run order
func DefaultSteps(logger *slog.Logger, metrics *Metrics) []Step {
	return []Step{
		NewPrepareStep(logger),
		NewElasticityStep(logger, metrics),
		NewForecastStep(logger, metrics),
		NewOptimizeStep(logger),
		NewExportStep(logger),
	}
}

func allExist(paths ...string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// WriteInputs persists a generated dataset in the raw input layout
func WriteInputs(dataDir string, ds datagen.Dataset) error {
	w := exporter.NewCSVWriter(dataDir)

	products := make([][]string, 0, len(ds.Catalog))
	for _, p := range ds.Catalog {
		products = append(products, []string{
			itoa(p.ProductID), p.Name, p.Category, p.Brand,
			ftoa(p.BaseCost), ftoa(p.BasePrice),
		})
	}
	if err := w.WriteCSV(ProductsFile, exporter.WriteOptions{
		Headers: []string{"product_id", "product_name", "category", "brand", "base_cost", "base_price"},
		Records: products,
	}); err != nil {
		return err
	}

	sales := make([][]string, 0, len(ds.Sales))
	for _, s := range ds.Sales {
		sales = append(sales, []string{
			s.Date.Format("2006-01-02"), itoa(s.ProductID), ftoa(s.Price),
			boolFlag(s.IsPromo), boolFlag(s.IsStockout), itoa(s.UnitsSold),
		})
	}
	if err := w.WriteCSV(SalesFile, exporter.WriteOptions{
		Headers: []string{"date", "product_id", "price", "is_promo", "is_stockout", "units_sold"},
		Records: sales,
	}); err != nil {
		return err
	}

	comp := make([][]string, 0, len(ds.CompetitorPrices))
	for _, c := range ds.CompetitorPrices {
		comp = append(comp, []string{
			c.Date.Format("2006-01-02"), itoa(c.ProductID), ftoa(c.CompetitorPrice),
		})
	}
	return w.WriteCSV(CompetitorFile, exporter.WriteOptions{
		Headers: []string{"date", "product_id", "competitor_price"},
		Records: comp,
	})
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
