package pricing

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// seasonalPeriod is the weekly seasonality of daily retail demand
const seasonalPeriod = 7

// Forecaster produces per-product daily unit-demand forecasts over a fixed
// horizon. The primary path is a weekly-seasonal AR model with price,
// competitor price and the promo indicator as exogenous regressors. When the
// product has too little history, no demand at all, or the fit or forecast
// fails, the forecaster degrades to the product's historical mean and
// records which trigger fired.
type Forecaster struct {
	cfg    Config
	logger *slog.Logger
}

// NewForecaster creates a demand forecaster with the given parameters
func NewForecaster(cfg Config, logger *slog.Logger) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{cfg: cfg, logger: logger}
}

// Forecast produces one ProductForecast per product in the observation set.
// Every forecast carries exactly HorizonDays contiguous daily points starting
// the day after the product's latest observation. Products run independently
// and may be forecast concurrently; results are sorted by product ID.
func (f *Forecaster) Forecast(ctx context.Context, obs []Observation) ([]ProductForecast, error) {
	grouped := groupByProduct(obs)
	ids := sortedProductIDs(grouped)

	f.logger.InfoContext(ctx, "forecasting demand",
		"products", len(ids),
		"horizon_days", f.cfg.HorizonDays,
		"min_sample", f.cfg.ForecastMinSample,
	)

	results := make([]ProductForecast, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.MaxConcurrency)
	for i, pid := range ids {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = f.forecastProduct(gctx, pid, grouped[pid])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// forecastProduct runs the primary model for one product, degrading to the
// historical-mean policy on any of the fallback triggers
func (f *Forecaster) forecastProduct(ctx context.Context, pid int, rows []Observation) ProductForecast {
	sorted := make([]Observation, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	y := make([]float64, len(sorted))
	exog := make([][]float64, len(sorted))
	var total float64
	for i, o := range sorted {
		y[i] = float64(o.UnitsSold)
		total += y[i]
		promo := 0.0
		if o.IsPromo {
			promo = 1.0
		}
		exog[i] = []float64{o.Price, o.CompetitorPrice, promo}
	}

	if len(sorted) < f.cfg.ForecastMinSample {
		return f.meanFallback(pid, sorted, y, FallbackInsufficientHistory)
	}
	if total == 0 {
		return f.meanFallback(pid, sorted, y, FallbackZeroDemand)
	}

	model, err := fitSARIMA(y, exog, seasonalPeriod)
	if err != nil {
		f.logger.WarnContext(ctx, "seasonal fit degraded to mean forecast",
			"product_id", pid,
			"rows", len(sorted),
			"error", err,
		)
		return f.meanFallback(pid, sorted, y, FallbackFitFailure)
	}

	// Future exogenous policy: hold prices at their recent mean, assume the
	// configured promo level (0 = no future promotions)
	futurePrice := recentMean(column(exog, 0), f.cfg.ExogWindow)
	futureComp := recentMean(column(exog, 1), f.cfg.ExogWindow)
	futureExog := make([][]float64, f.cfg.HorizonDays)
	for i := range futureExog {
		futureExog[i] = []float64{futurePrice, futureComp, f.cfg.FuturePromo}
	}

	pred, err := model.forecast(futureExog, f.cfg.HorizonDays)
	if err != nil {
		f.logger.WarnContext(ctx, "forecast generation degraded to mean forecast",
			"product_id", pid,
			"error", err,
		)
		return f.meanFallback(pid, sorted, y, FallbackForecastFailure)
	}

	points := make([]ForecastPoint, f.cfg.HorizonDays)
	lastDate := sorted[len(sorted)-1].Date
	for i, q := range pred {
		if q < 0 {
			q = 0 // demand cannot be negative
		}
		points[i] = ForecastPoint{
			Date:          lastDate.AddDate(0, 0, i+1),
			ProductID:     pid,
			ForecastUnits: q,
		}
	}
	return ProductForecast{ProductID: pid, Fallback: FallbackNone, Points: points}
}

// meanFallback emits HorizonDays points carrying the historical mean,
// tagged with the trigger that fired
func (f *Forecaster) meanFallback(pid int, sorted []Observation, y []float64, reason FallbackReason) ProductForecast {
	var mean float64
	if len(y) > 0 {
		var sum float64
		for _, v := range y {
			sum += v
		}
		mean = sum / float64(len(y))
	}

	var lastDate time.Time
	if len(sorted) > 0 {
		lastDate = sorted[len(sorted)-1].Date
	}

	points := make([]ForecastPoint, f.cfg.HorizonDays)
	for i := range points {
		points[i] = ForecastPoint{
			Date:          lastDate.AddDate(0, 0, i+1),
			ProductID:     pid,
			ForecastUnits: mean,
		}
	}
	return ProductForecast{ProductID: pid, Fallback: reason, Points: points}
}

// FlattenForecasts concatenates per-product forecasts into a single dataset,
// preserving the per-product date order
func FlattenForecasts(forecasts []ProductForecast) []ForecastPoint {
	var out []ForecastPoint
	for _, pf := range forecasts {
		out = append(out, pf.Points...)
	}
	return out
}

// recentMean averages the last window values of a series, or the whole
// series when it is shorter. An empty series yields 0.0.
func recentMean(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0.0
	}
	start := len(values) - window
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, v := range values[start:] {
		sum += v
	}
	return sum / float64(len(values)-start)
}

func column(rows [][]float64, j int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r[j]
	}
	return out
}
