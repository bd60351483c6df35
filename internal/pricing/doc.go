// Package pricing implements the three-stage dynamic pricing model:
// elasticity estimation, demand forecasting, and constrained price
// optimization.
//
// Each stage consumes a tabular dataset and produces another, forming a
// linear pipeline:
//
//  1. Estimator: per-product own-price elasticity from a log-log OLS of
//     units sold on price, controlling for the competitor price and promo
//     activity. Products with too little usable history, or whose fit fails
//     numerically, produce an estimate with nil statistical fields.
//  2. Forecaster: per-product daily demand over a fixed horizon from a
//     weekly-seasonal AR model with exogenous price, competitor price and
//     promo regressors. Four independent triggers degrade a product to its
//     historical-mean forecast, each recorded as a named fallback reason.
//  3. Optimizer: per (date, product) grid search for the profit-maximizing
//     price under a constant-elasticity demand curve, bounded by a margin
//     floor, a base-price ceiling, and an optional competitor-proximity
//     band.
//
// # Degradation policy
//
// No failure in one product's estimation, forecasting or optimization ever
// aborts processing of other products. Degraded outcomes are represented as
// data: nil fields on ElasticityEstimate, a FallbackReason on
// ProductForecast, a skipped row on a catalog join miss, and a floor-only
// candidate when the feasible price interval collapses.
//
// # Concurrency
//
// The Estimator and Forecaster fan out per product over a bounded errgroup;
// every unit of work owns a disjoint input slice and a disjoint result slot,
// so no synchronization beyond collection is needed. Results are ordered by
// product ID, making repeated runs on identical input byte-identical.
//
// # File layout
//
//   - types.go: datasets, configuration, and grouping helpers
//   - elasticity.go: the per-product elasticity estimator
//   - regression.go: ordinary least squares on the normal equations
//   - dist.go: Student-t tail probabilities and quantiles
//   - forecast.go: the demand forecaster and its fallback policy
//   - sarima.go: the seasonal AR model and Nelder-Mead search
//   - optimizer.go: guardrailed grid search over candidate prices
//
// # Usage
//
//	cfg := pricing.DefaultConfig()
//	estimates, err := pricing.NewEstimator(cfg, logger).Estimate(ctx, obs)
//	if err != nil {
//	    return err
//	}
//	forecasts, err := pricing.NewForecaster(cfg, logger).Forecast(ctx, obs)
//	if err != nil {
//	    return err
//	}
//	recs := pricing.NewOptimizer(cfg, logger).Recommend(
//	    ctx, pricing.FlattenForecasts(forecasts), catalog, estimates, compRef)
package pricing
