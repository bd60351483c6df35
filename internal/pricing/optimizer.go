package pricing

import (
	"context"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"
)

// defaultElasticity is the unit-elastic fallback used when a product has no
// defined elasticity estimate: demand is assumed to move proportionally and
// oppositely to price.
const defaultElasticity = -1.0

// Optimizer searches for the profit-maximizing price per forecast row,
// subject to a margin floor, a sanity ceiling, and an optional
// competitor-proximity band.
//
// Each (date, product) row is an independent, stateless evaluation: the
// demand-at-price model is the constant-elasticity curve
//
//	q(p) = q0 * (p / p0)^β
//
// with q0 the forecast demand, p0 the catalog base price and β the
// estimated (or fallback) elasticity. Profit is (p - cost) * q(p).
type Optimizer struct {
	cfg    Config
	logger *slog.Logger
}

// NewOptimizer creates a price optimizer with the given parameters
func NewOptimizer(cfg Config, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{cfg: cfg, logger: logger}
}

// Recommend produces one PriceRecommendation per forecast row whose product
// exists in the catalog. Rows referencing unknown products are skipped
// silently: that is a data-join concern, not a failure.
func (o *Optimizer) Recommend(
	ctx context.Context,
	forecast []ForecastPoint,
	catalog []Product,
	estimates []ElasticityEstimate,
	compRef []CompetitorReference,
) []PriceRecommendation {
	products := make(map[int]Product, len(catalog))
	for _, p := range catalog {
		products[p.ProductID] = p
	}
	elasticity := IndexEstimates(estimates)

	type compKey struct {
		date string
		pid  int
	}
	comp := make(map[compKey]float64, len(compRef))
	for _, c := range compRef {
		comp[compKey{DateKey(c.Date), c.ProductID}] = c.CompetitorPrice
	}

	o.logger.InfoContext(ctx, "optimizing prices",
		"forecast_rows", len(forecast),
		"catalog_products", len(products),
		"comp_refs", len(comp),
	)

	recs := make([]PriceRecommendation, 0, len(forecast))
	skipped := 0
	for _, row := range forecast {
		product, ok := products[row.ProductID]
		if !ok {
			skipped++
			continue
		}

		beta := defaultElasticity
		if est, ok := elasticity[row.ProductID]; ok && est.Defined() {
			beta = *est.Elasticity
		}

		low := product.BaseCost * (1 + o.cfg.MinMargin)
		high := product.BasePrice * o.cfg.PriceCeilingRatio

		var compPriceRef *float64
		if cp, ok := comp[compKey{DateKey(row.Date), row.ProductID}]; ok {
			low = math.Max(low, cp*(1-o.cfg.CompDelta))
			high = math.Min(high, cp*(1+o.cfg.CompDelta))
			compPriceRef = roundPtr(cp, 2)
		}

		bestPrice, bestProfit := o.searchGrid(low, high, product.BaseCost, product.BasePrice, row.ForecastUnits, beta)

		recs = append(recs, PriceRecommendation{
			Date:             row.Date,
			ProductID:        row.ProductID,
			RecommendedPrice: roundTo(bestPrice, 2),
			ExpectedProfit:   roundTo(bestProfit, 2),
			BaselineUnits:    roundTo(row.ForecastUnits, 3),
			ElasticityUsed:   roundPtr(beta, 3),
			CompPriceRef:     compPriceRef,
		})
	}

	if skipped > 0 {
		o.logger.InfoContext(ctx, "skipped forecast rows without catalog entry", "rows", skipped)
	}
	return recs
}

// searchGrid scans a uniform inclusive grid over [low, high] and returns the
// lowest price among maximal-profit candidates. A collapsed interval
// (high <= low) means the row is genuinely overconstrained; the floor is the
// only feasible candidate.
func (o *Optimizer) searchGrid(low, high, cost, basePrice, q0, beta float64) (float64, float64) {
	if high <= low {
		return low, ProfitForPrice(low, cost, q0, basePrice, beta)
	}

	step := (high - low) / float64(o.cfg.GridPoints-1)
	bestPrice := low
	bestProfit := math.Inf(-1)
	for i := 0; i < o.cfg.GridPoints; i++ {
		p := low + step*float64(i)
		if i == o.cfg.GridPoints-1 {
			p = high
		}
		// Strict improvement keeps the first (lowest-price) maximizer on ties
		if profit := ProfitForPrice(p, cost, q0, basePrice, beta); profit > bestProfit {
			bestProfit = profit
			bestPrice = p
		}
	}
	return bestPrice, bestProfit
}

// ProfitForPrice evaluates profit at price p under the constant-elasticity
// demand curve. A non-positive base price makes demand price-invariant.
func ProfitForPrice(p, cost, q0, basePrice, beta float64) float64 {
	q := q0
	if basePrice > 0 {
		q = q0 * math.Pow(p/basePrice, beta)
	}
	return (p - cost) * q
}

// roundTo rounds half away from zero at the given number of decimal places.
// Money and demand fields go through decimal so output values are exact at
// their stated precision.
func roundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func roundPtr(v float64, places int32) *float64 {
	r := roundTo(v, places)
	return &r
}
