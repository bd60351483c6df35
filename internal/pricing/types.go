package pricing

import (
	"sort"
	"time"
)

// Observation represents a single day's sales data for a product.
// Observations are immutable inputs; the modeling stages never mutate them.
type Observation struct {
	Date            time.Time `json:"date"`
	ProductID       int       `json:"product_id"`
	UnitsSold       int       `json:"units_sold"`
	Price           float64   `json:"price"`
	CompetitorPrice float64   `json:"competitor_price"`
	IsPromo         bool      `json:"is_promo"`
	OKForElasticity bool      `json:"ok_for_elasticity"`
}

// IsValid checks if the observation carries usable values
func (o Observation) IsValid() bool {
	return o.ProductID > 0 && o.UnitsSold >= 0 && o.Price > 0 && o.CompetitorPrice > 0
}

// ElasticityEstimate contains the per-product own-price elasticity fit.
// Every statistical field is a pointer: nil means the value is undefined
// (insufficient data or a numerical failure), which is a defined outcome
// rather than an error.
type ElasticityEstimate struct {
	ProductID  int      `json:"product_id"`
	Elasticity *float64 `json:"elasticity"`
	RSquared   *float64 `json:"r2"`
	SampleSize int      `json:"n"`
	PValue     *float64 `json:"p_value"`
	ConfLow    *float64 `json:"conf_low"`
	ConfHigh   *float64 `json:"conf_high"`
}

// Defined reports whether the estimate carries a usable elasticity value
func (e ElasticityEstimate) Defined() bool {
	return e.Elasticity != nil
}

// FallbackReason identifies which trigger forced the historical-mean
// forecast policy for a product. Empty means the seasonal model was used.
type FallbackReason string

const (
	FallbackNone                FallbackReason = ""
	FallbackInsufficientHistory FallbackReason = "insufficient_history"
	FallbackZeroDemand          FallbackReason = "zero_demand"
	FallbackFitFailure          FallbackReason = "fit_failure"
	FallbackForecastFailure     FallbackReason = "forecast_failure"
)

// ForecastPoint is a single future-day demand estimate for a product
type ForecastPoint struct {
	Date          time.Time `json:"date"`
	ProductID     int       `json:"product_id"`
	ForecastUnits float64   `json:"forecast_units"`
}

// ProductForecast bundles a product's forecast horizon with the reason a
// fallback fired, if one did. Tests assert on the reason, not just the values.
type ProductForecast struct {
	ProductID int             `json:"product_id"`
	Fallback  FallbackReason  `json:"fallback,omitempty"`
	Points    []ForecastPoint `json:"points"`
}

// Product is a catalog entry. Read-only reference data.
type Product struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"product_name,omitempty"`
	Category  string  `json:"category,omitempty"`
	Brand     string  `json:"brand,omitempty"`
	BaseCost  float64 `json:"base_cost"`
	BasePrice float64 `json:"base_price"`
}

// CompetitorReference is a competitor price for a (date, product) pair,
// used only to tighten the optimizer's price band.
type CompetitorReference struct {
	Date            time.Time `json:"date"`
	ProductID       int       `json:"product_id"`
	CompetitorPrice float64   `json:"competitor_price"`
}

// PriceRecommendation is the optimizer output for one (date, product) row
type PriceRecommendation struct {
	Date             time.Time `json:"date"`
	ProductID        int       `json:"product_id"`
	RecommendedPrice float64   `json:"recommended_price"`
	ExpectedProfit   float64   `json:"expected_profit"`
	BaselineUnits    float64   `json:"baseline_units"`
	ElasticityUsed   *float64  `json:"elasticity_used"`
	CompPriceRef     *float64  `json:"comp_price_ref"`
}

// Config holds the tunable parameters of the modeling pipeline
type Config struct {
	// HorizonDays is the number of future days to forecast per product
	HorizonDays int `yaml:"horizon_days" envconfig:"HORIZON_DAYS" default:"30" validate:"gt=0"`
	// MinMargin is the profit floor over cost: low bound = cost * (1 + MinMargin)
	MinMargin float64 `yaml:"min_margin" envconfig:"MIN_MARGIN" default:"0.10" validate:"gte=0"`
	// CompDelta is the allowed fractional deviation from a competitor price
	CompDelta float64 `yaml:"comp_delta" envconfig:"COMP_DELTA" default:"0.10" validate:"gte=0"`
	// ElasticityMinSample is the minimum usable rows for an elasticity fit
	ElasticityMinSample int `yaml:"elasticity_min_sample" envconfig:"ELASTICITY_MIN_SAMPLE" default:"30" validate:"gt=1"`
	// ForecastMinSample is the minimum history rows for the seasonal model
	ForecastMinSample int `yaml:"forecast_min_sample" envconfig:"FORECAST_MIN_SAMPLE" default:"60" validate:"gt=0"`
	// GridPoints is the number of candidate prices evaluated per row
	GridPoints int `yaml:"grid_points" envconfig:"GRID_POINTS" default:"60" validate:"gt=1"`
	// ExogWindow is the lookback used to hold exogenous regressors flat
	ExogWindow int `yaml:"exog_window" envconfig:"EXOG_WINDOW" default:"14" validate:"gt=0"`
	// PriceCeilingRatio caps recommendations at base price times this ratio
	PriceCeilingRatio float64 `yaml:"price_ceiling_ratio" envconfig:"PRICE_CEILING_RATIO" default:"1.8" validate:"gt=0"`
	// FuturePromo is the promo indicator assumed for future days.
	// 0 encodes the no-future-promotions business assumption.
	FuturePromo float64 `yaml:"future_promo" envconfig:"FUTURE_PROMO" default:"0" validate:"gte=0,lte=1"`
	// MaxConcurrency bounds the per-product worker fan-out
	MaxConcurrency int `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" default:"4" validate:"gt=0"`
}

// DefaultConfig returns the reference parameter set
func DefaultConfig() Config {
	return Config{
		HorizonDays:         30,
		MinMargin:           0.10,
		CompDelta:           0.10,
		ElasticityMinSample: 30,
		ForecastMinSample:   60,
		GridPoints:          60,
		ExogWindow:          14,
		PriceCeilingRatio:   1.8,
		FuturePromo:         0,
		MaxConcurrency:      4,
	}
}

// DateKey formats a date the way the (date, product) join keys expect
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// groupByProduct partitions observations by product ID, preserving input order
// within each group
func groupByProduct(obs []Observation) map[int][]Observation {
	grouped := make(map[int][]Observation)
	for _, o := range obs {
		grouped[o.ProductID] = append(grouped[o.ProductID], o)
	}
	return grouped
}

// sortedProductIDs returns the keys of a product-grouped map in ascending
// order so that fan-out and output assembly are deterministic
func sortedProductIDs(grouped map[int][]Observation) []int {
	ids := make([]int, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
