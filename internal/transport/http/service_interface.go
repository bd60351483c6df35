package http

import (
	"context"

	"pricecli/internal/pipeline"
	"pricecli/internal/pricing"
)

// PricingServiceInterface is what the handlers need from the pricing service.
// Kept as an interface so handler tests can substitute a mock.
type PricingServiceInterface interface {
	TriggerRun(ctx context.Context) (*pipeline.Run, error)
	GetRun(ctx context.Context, id string) (*pipeline.Run, error)
	ListRuns(ctx context.Context) []*pipeline.Run
	Recommendations(ctx context.Context, productID *int, date string) ([]pricing.PriceRecommendation, error)
	Elasticities(ctx context.Context, productID *int) ([]pricing.ElasticityEstimate, error)
	Forecasts(ctx context.Context, productID *int, date string) ([]pricing.ForecastPoint, error)
}
