package pricing

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticElasticityRows generates observations whose demand follows a
// known log-log curve with small noise, so the estimator should recover the
// elasticity used to generate them.
func syntheticElasticityRows(pid, n int, beta float64, rng *rand.Rand) []Observation {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]Observation, 0, n)
	for i := 0; i < n; i++ {
		price := 80 + 40*rng.Float64()
		comp := price * (0.95 + 0.1*rng.Float64())
		promo := i%9 == 0
		lnQ := 12 + beta*math.Log(price) + 0.3*math.Log(comp) + 0.02*rng.NormFloat64()
		if promo {
			lnQ += 0.4
		}
		units := int(math.Round(math.Exp(lnQ)))
		if units < 1 {
			units = 1
		}
		rows = append(rows, Observation{
			Date:            start.AddDate(0, 0, i),
			ProductID:       pid,
			UnitsSold:       units,
			Price:           price,
			CompetitorPrice: comp,
			IsPromo:         promo,
			OKForElasticity: true,
		})
	}
	return rows
}

func TestEstimateRecoversElasticity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	obs := syntheticElasticityRows(1, 120, -1.5, rng)

	est := NewEstimator(DefaultConfig(), slog.Default())
	results, err := est.Estimate(context.Background(), obs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 1, r.ProductID)
	assert.Equal(t, 120, r.SampleSize)
	require.True(t, r.Defined())
	assert.InDelta(t, -1.5, *r.Elasticity, 0.2)
	require.NotNil(t, r.ConfLow)
	require.NotNil(t, r.ConfHigh)
	assert.LessOrEqual(t, *r.ConfLow, *r.Elasticity)
	assert.GreaterOrEqual(t, *r.ConfHigh, *r.Elasticity)
	require.NotNil(t, r.RSquared)
	assert.Greater(t, *r.RSquared, 0.9)
	require.NotNil(t, r.PValue)
	assert.Less(t, *r.PValue, 0.05)
}

func TestEstimateInsufficientData(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	obs := syntheticElasticityRows(9, 29, -1.0, rng)

	est := NewEstimator(DefaultConfig(), slog.Default())
	results, err := est.Estimate(context.Background(), obs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 29, r.SampleSize)
	assert.Nil(t, r.Elasticity)
	assert.Nil(t, r.RSquared)
	assert.Nil(t, r.PValue)
	assert.Nil(t, r.ConfLow)
	assert.Nil(t, r.ConfHigh)
}

func TestEstimateExcludesUnusableRows(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	obs := syntheticElasticityRows(4, 40, -1.2, rng)
	// Flag ten rows unusable: only thirty remain, still enough to fit
	for i := 0; i < 10; i++ {
		obs[i].OKForElasticity = false
	}

	est := NewEstimator(DefaultConfig(), slog.Default())
	results, err := est.Estimate(context.Background(), obs)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 30, results[0].SampleSize)
}

func TestEstimateDegradesOnSingularDesign(t *testing.T) {
	// Constant price and competitor price are collinear with the intercept;
	// the fit must degrade for this product without returning an error
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var obs []Observation
	for i := 0; i < 50; i++ {
		obs = append(obs, Observation{
			Date:            start.AddDate(0, 0, i),
			ProductID:       2,
			UnitsSold:       10 + i%3,
			Price:           100,
			CompetitorPrice: 100,
			OKForElasticity: true,
		})
	}

	est := NewEstimator(DefaultConfig(), slog.Default())
	results, err := est.Estimate(context.Background(), obs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 50, r.SampleSize)
	assert.Nil(t, r.Elasticity)
	assert.Nil(t, r.RSquared)
}

func TestEstimateFailureIsProductLocal(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	obs := syntheticElasticityRows(1, 80, -1.3, rng)

	// Product 2 has a degenerate, unfittable design
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		obs = append(obs, Observation{
			Date:            start.AddDate(0, 0, i),
			ProductID:       2,
			UnitsSold:       5,
			Price:           50,
			CompetitorPrice: 50,
			OKForElasticity: true,
		})
	}

	est := NewEstimator(DefaultConfig(), slog.Default())
	results, err := est.Estimate(context.Background(), obs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Defined(), "healthy product must still fit")
	assert.False(t, results[1].Defined())
}

func TestEstimateIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	obs := syntheticElasticityRows(1, 90, -1.1, rng)
	obs = append(obs, syntheticElasticityRows(2, 70, -0.8, rng)...)
	obs = append(obs, syntheticElasticityRows(3, 20, -1.0, rng)...)

	est := NewEstimator(DefaultConfig(), slog.Default())
	first, err := est.Estimate(context.Background(), obs)
	require.NoError(t, err)
	second, err := est.Estimate(context.Background(), obs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestIndexEstimates(t *testing.T) {
	e := 1.5
	idx := IndexEstimates([]ElasticityEstimate{
		{ProductID: 1, Elasticity: &e},
		{ProductID: 2},
	})
	assert.Len(t, idx, 2)
	assert.True(t, idx[1].Defined())
	assert.False(t, idx[2].Defined())
}
