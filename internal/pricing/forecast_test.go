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

// demandHistory builds daily observations with weekly-seasonal demand
func demandHistory(pid, days int, rng *rand.Rand) []Observation {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]Observation, 0, days)
	for i := 0; i < days; i++ {
		weekend := 0.0
		if d := start.AddDate(0, 0, i).Weekday(); d == time.Saturday || d == time.Sunday {
			weekend = 8
		}
		units := int(20 + weekend + 3*rng.Float64())
		rows = append(rows, Observation{
			Date:            start.AddDate(0, 0, i),
			ProductID:       pid,
			UnitsSold:       units,
			Price:           100 + rng.Float64()*5,
			CompetitorPrice: 98 + rng.Float64()*5,
			IsPromo:         i%13 == 0,
			OKForElasticity: true,
		})
	}
	return rows
}

func requireContiguousDaily(t *testing.T, points []ForecastPoint, lastHist time.Time) {
	t.Helper()
	for i, p := range points {
		want := lastHist.AddDate(0, 0, i+1)
		require.True(t, p.Date.Equal(want), "point %d: got %v want %v", i, p.Date, want)
	}
}

func TestForecastPrimaryPath(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	obs := demandHistory(1, 120, rng)

	fc := NewForecaster(DefaultConfig(), slog.Default())
	results, err := fc.Forecast(context.Background(), obs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, FallbackNone, r.Fallback)
	require.Len(t, r.Points, 30)
	requireContiguousDaily(t, r.Points, obs[len(obs)-1].Date)
	for i, p := range r.Points {
		assert.GreaterOrEqual(t, p.ForecastUnits, 0.0, "point %d", i)
		assert.False(t, math.IsNaN(p.ForecastUnits), "point %d", i)
		assert.Equal(t, 1, p.ProductID)
	}
}

func TestForecastFallbackInsufficientHistory(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	obs := demandHistory(2, 59, rng)

	var sum float64
	for _, o := range obs {
		sum += float64(o.UnitsSold)
	}
	mean := sum / float64(len(obs))

	fc := NewForecaster(DefaultConfig(), slog.Default())
	results, err := fc.Forecast(context.Background(), obs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, FallbackInsufficientHistory, r.Fallback)
	require.Len(t, r.Points, 30)
	requireContiguousDaily(t, r.Points, obs[len(obs)-1].Date)
	for _, p := range r.Points {
		assert.InDelta(t, mean, p.ForecastUnits, 1e-12)
	}
}

func TestForecastFallbackZeroDemand(t *testing.T) {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	var obs []Observation
	for i := 0; i < 90; i++ {
		obs = append(obs, Observation{
			Date:            start.AddDate(0, 0, i),
			ProductID:       3,
			UnitsSold:       0,
			Price:           50,
			CompetitorPrice: 49,
		})
	}

	fc := NewForecaster(DefaultConfig(), slog.Default())
	results, err := fc.Forecast(context.Background(), obs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, FallbackZeroDemand, r.Fallback)
	require.Len(t, r.Points, 30)
	for _, p := range r.Points {
		assert.Zero(t, p.ForecastUnits)
	}
}

func TestForecastHorizonConfigurable(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	obs := demandHistory(4, 30, rng)

	cfg := DefaultConfig()
	cfg.HorizonDays = 7
	fc := NewForecaster(cfg, slog.Default())
	results, err := fc.Forecast(context.Background(), obs)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Points, 7)
}

func TestForecastIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	obs := demandHistory(1, 100, rng)
	obs = append(obs, demandHistory(2, 45, rand.New(rand.NewSource(42)))...)

	fc := NewForecaster(DefaultConfig(), slog.Default())
	first, err := fc.Forecast(context.Background(), obs)
	require.NoError(t, err)
	second, err := fc.Forecast(context.Background(), obs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestForecastProductsAreIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(47))
	obs := demandHistory(1, 120, rng)
	obs = append(obs, demandHistory(2, 10, rand.New(rand.NewSource(48)))...)

	fc := NewForecaster(DefaultConfig(), slog.Default())
	results, err := fc.Forecast(context.Background(), obs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, FallbackNone, results[0].Fallback)
	assert.Equal(t, FallbackInsufficientHistory, results[1].Fallback)
}

func TestFlattenForecasts(t *testing.T) {
	pf := []ProductForecast{
		{ProductID: 1, Points: []ForecastPoint{{ProductID: 1}, {ProductID: 1}}},
		{ProductID: 2, Points: []ForecastPoint{{ProductID: 2}}},
	}
	flat := FlattenForecasts(pf)
	require.Len(t, flat, 3)
	assert.Equal(t, 2, flat[2].ProductID)
}

func TestRecentMean(t *testing.T) {
	assert.Equal(t, 0.0, recentMean(nil, 14))
	assert.InDelta(t, 2.0, recentMean([]float64{1, 2, 3}, 14), 1e-12)
	assert.InDelta(t, 9.5, recentMean([]float64{1, 1, 1, 9, 10}, 2), 1e-12)
}
