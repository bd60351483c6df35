package pricing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sarSeries simulates z_t = phi*z_{t-1} + sphi*z_{t-7} - phi*sphi*z_{t-8} + eps
// plus an exogenous contribution, matching the model form exactly
func sarSeries(n int, phi, sphi float64, beta []float64, rng *rand.Rand) ([]float64, [][]float64) {
	y := make([]float64, n)
	exog := make([][]float64, n)
	z := make([]float64, n)
	for t := 0; t < n; t++ {
		exog[t] = []float64{10 + rng.Float64()*2, 9 + rng.Float64()*2, 0}
		if t%11 == 0 {
			exog[t][2] = 1
		}
		eps := 0.1 * rng.NormFloat64()
		zt := eps
		if t >= 1 {
			zt += phi * z[t-1]
		}
		if t >= 7 {
			zt += sphi * z[t-7]
		}
		if t >= 8 {
			zt -= phi * sphi * z[t-8]
		}
		z[t] = zt
		y[t] = zt + dot(exog[t], beta)
	}
	return y, exog
}

func TestFitSARIMARecoversParameters(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	beta := []float64{1.2, -0.4, 3.0}
	y, exog := sarSeries(200, 0.6, 0.3, beta, rng)

	model, err := fitSARIMA(y, exog, 7)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, model.phi, 0.15)
	assert.InDelta(t, 0.3, model.sphi, 0.15)
	for i := range beta {
		assert.InDelta(t, beta[i], model.beta[i], 0.3, "beta[%d]", i)
	}
}

func TestFitSARIMATooShort(t *testing.T) {
	y := make([]float64, 10)
	exog := make([][]float64, 10)
	for i := range exog {
		exog[i] = []float64{1, 1, 0}
	}
	_, err := fitSARIMA(y, exog, 7)
	require.Error(t, err)
}

func TestSARIMAForecastShapeAndFiniteness(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	y, exog := sarSeries(150, 0.5, 0.2, []float64{0.8, 0.1, 2.0}, rng)

	model, err := fitSARIMA(y, exog, 7)
	require.NoError(t, err)

	future := make([][]float64, 30)
	for i := range future {
		future[i] = []float64{10.5, 9.5, 0}
	}
	pred, err := model.forecast(future, 30)
	require.NoError(t, err)
	require.Len(t, pred, 30)
	for i, v := range pred {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "step %d", i)
	}
}

func TestSARIMAForecastValidatesInputs(t *testing.T) {
	m := &sarimaModel{period: 7, beta: []float64{1}, y: make([]float64, 20), exog: make([][]float64, 20)}
	for i := range m.exog {
		m.exog[i] = []float64{1}
	}

	_, err := m.forecast(nil, 0)
	assert.Error(t, err)

	_, err = m.forecast([][]float64{{1}}, 5)
	assert.Error(t, err)
}

func TestNelderMeadMinimizesQuadratic(t *testing.T) {
	f := func(p []float64) float64 {
		return (p[0]-3)*(p[0]-3) + 2*(p[1]+1)*(p[1]+1)
	}
	best, converged := nelderMead(f, []float64{0, 0}, 500, 1e-10)
	require.True(t, converged)
	assert.InDelta(t, 3.0, best[0], 1e-3)
	assert.InDelta(t, -1.0, best[1], 1e-3)
}

func TestNelderMeadReportsNonConvergence(t *testing.T) {
	// An unbounded descent direction cannot satisfy the spread criterion
	// in a handful of iterations
	f := func(p []float64) float64 { return p[0] }
	_, converged := nelderMead(f, []float64{0}, 5, 1e-12)
	assert.False(t, converged)
}
