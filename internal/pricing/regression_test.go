package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitOLSRecoversKnownCoefficients(t *testing.T) {
	// y = 2 + 3*x1 - 0.5*x2 with a small deterministic perturbation so the
	// residual variance is positive
	var y []float64
	var x [][]float64
	for i := 0; i < 50; i++ {
		x1 := float64(i) * 0.1
		x2 := float64(i%7) - 3.0
		noise := 0.001 * float64(i%5-2)
		y = append(y, 2+3*x1-0.5*x2+noise)
		x = append(x, []float64{1, x1, x2})
	}

	fit, err := fitOLS(y, x)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, fit.Coef[0], 0.01)
	assert.InDelta(t, 3.0, fit.Coef[1], 0.01)
	assert.InDelta(t, -0.5, fit.Coef[2], 0.01)
	assert.Greater(t, fit.RSquared, 0.999)
	assert.Equal(t, 47, fit.DF)

	// A coefficient this strong against tiny noise must be significant
	assert.Less(t, fit.PValue(1), 1e-6)

	lo, hi := fit.ConfInt(1, 0.95)
	assert.LessOrEqual(t, lo, fit.Coef[1])
	assert.GreaterOrEqual(t, hi, fit.Coef[1])
}

func TestFitOLSSingularDesign(t *testing.T) {
	// Second column duplicates the intercept, so X'X is singular
	var y []float64
	var x [][]float64
	for i := 0; i < 40; i++ {
		y = append(y, float64(i))
		x = append(x, []float64{1, 1, float64(i)})
	}

	_, err := fitOLS(y, x)
	require.Error(t, err)
}

func TestFitOLSUnderdetermined(t *testing.T) {
	y := []float64{1, 2}
	x := [][]float64{{1, 0.5}, {1, 0.7}}

	_, err := fitOLS(y, x)
	require.Error(t, err)
}

func TestStudentTDistribution(t *testing.T) {
	tests := []struct {
		name  string
		fn    func() float64
		want  float64
		delta float64
	}{
		{"cdf_at_zero", func() float64 { return studentTCDF(0, 10) }, 0.5, 1e-12},
		{"cdf_symmetric", func() float64 { return studentTCDF(-2, 8) + studentTCDF(2, 8) }, 1.0, 1e-9},
		{"cdf_large_df_near_normal", func() float64 { return studentTCDF(1.96, 100000) }, 0.975, 1e-3},
		{"quantile_df10_975", func() float64 { return studentTQuantile(0.975, 10) }, 2.228, 1e-3},
		{"quantile_df30_975", func() float64 { return studentTQuantile(0.975, 30) }, 2.042, 1e-3},
		{"quantile_symmetric", func() float64 { return studentTQuantile(0.025, 10) + studentTQuantile(0.975, 10) }, 0.0, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.fn(), tt.delta)
		})
	}
}

func TestStudentTQuantileRoundTrip(t *testing.T) {
	for _, p := range []float64{0.6, 0.9, 0.975, 0.999} {
		q := studentTQuantile(p, 25)
		assert.InDelta(t, p, studentTCDF(q, 25), 1e-8, "p=%v", p)
	}
}

func TestGuardLog(t *testing.T) {
	assert.InDelta(t, math.Log(2.5), guardLog(2.5, 1e-6), 1e-12)
	assert.InDelta(t, math.Log(1e-6), guardLog(0, 1e-6), 1e-12)
	assert.InDelta(t, math.Log(1e-6), guardLog(-10, 1e-6), 1e-12)
	assert.False(t, math.IsNaN(guardLog(-1, 1e-6)))
}
