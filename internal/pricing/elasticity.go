package pricing

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// logFloor is the positive floor applied before taking logarithms,
// protecting the log-log transform against zero and negative values
const logFloor = 1e-6

// Estimator computes per-product own-price elasticity of demand from
// historical observations.
//
// The fit is a log-log OLS of units sold on price, with the competitor
// price and the promo indicator as controls:
//
//	ln(q) = b0 + b1*ln(p) + b2*ln(p_comp) + b3*promo + e
//
// b1 is the reported elasticity. Products with too little usable history,
// or whose fit fails numerically, yield an estimate with nil statistical
// fields; that is a defined outcome, never an error.
type Estimator struct {
	cfg    Config
	logger *slog.Logger
}

// NewEstimator creates an elasticity estimator with the given parameters
func NewEstimator(cfg Config, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{cfg: cfg, logger: logger}
}

// Estimate fits one elasticity per product present in the observation set.
// Only rows flagged usable for elasticity participate. Products are fitted
// independently and may run concurrently; the result is sorted by product ID
// so repeated runs produce identical output.
func (e *Estimator) Estimate(ctx context.Context, obs []Observation) ([]ElasticityEstimate, error) {
	usable := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if o.OKForElasticity {
			usable = append(usable, o)
		}
	}

	grouped := groupByProduct(usable)
	ids := sortedProductIDs(grouped)

	e.logger.InfoContext(ctx, "estimating elasticity",
		"products", len(ids),
		"usable_rows", len(usable),
		"min_sample", e.cfg.ElasticityMinSample,
	)

	results := make([]ElasticityEstimate, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrency)
	for i, pid := range ids {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = e.estimateProduct(gctx, pid, grouped[pid])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// estimateProduct fits a single product. Failures degrade to an estimate
// with nil fields and never propagate.
func (e *Estimator) estimateProduct(ctx context.Context, pid int, rows []Observation) ElasticityEstimate {
	est := ElasticityEstimate{ProductID: pid, SampleSize: len(rows)}

	if len(rows) < e.cfg.ElasticityMinSample {
		return est
	}

	sorted := make([]Observation, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	y := make([]float64, len(sorted))
	x := make([][]float64, len(sorted))
	for i, o := range sorted {
		y[i] = guardLog(float64(o.UnitsSold), logFloor)
		promo := 0.0
		if o.IsPromo {
			promo = 1.0
		}
		x[i] = []float64{
			1.0,
			guardLog(o.Price, logFloor),
			guardLog(o.CompetitorPrice, logFloor),
			promo,
		}
	}

	fit, err := fitOLS(y, x)
	if err != nil {
		e.logger.WarnContext(ctx, "elasticity fit degraded",
			"product_id", pid,
			"rows", len(rows),
			"error", err,
		)
		return est
	}

	// Column 1 of the design is ln(price)
	const priceCol = 1
	est.Elasticity = finiteOrNil(fit.Coef[priceCol])
	est.RSquared = finiteOrNil(fit.RSquared)
	est.PValue = finiteOrNil(fit.PValue(priceCol))
	lo, hi := fit.ConfInt(priceCol, 0.95)
	est.ConfLow = finiteOrNil(lo)
	est.ConfHigh = finiteOrNil(hi)
	return est
}

// finiteOrNil boxes a float, mapping NaN and infinities to nil so that
// undefined stays undefined downstream instead of corrupting aggregates
func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// IndexEstimates builds a product ID lookup over elasticity results.
// Product IDs are unique within one estimator run.
func IndexEstimates(estimates []ElasticityEstimate) map[int]ElasticityEstimate {
	idx := make(map[int]ElasticityEstimate, len(estimates))
	for _, est := range estimates {
		idx[est.ProductID] = est
	}
	return idx
}
