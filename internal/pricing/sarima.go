package pricing

import (
	"fmt"
	"math"
)

// Seasonal autoregressive model with exogenous regressors, fixed at order
// (1,0,0)x(1,0,0,s): regression on the exogenous variables with SAR errors.
//
//	z_t = y_t - x_t·β
//	e_t = z_t - φ·z_{t-1} - Φ·z_{t-s} + φ·Φ·z_{t-s-1}
//
// Parameters are estimated by minimizing the conditional sum of squared
// residuals with a derivative-free Nelder-Mead search under a fixed
// iteration cap. Stationarity is deliberately not enforced: explosive
// parameter regions are penalized by the objective itself, and
// non-convergence within the cap is reported as an error so the caller can
// fall back.

const (
	sarimaMaxIter = 500
	sarimaTol     = 1e-8
)

// sarimaModel is a fitted seasonal AR model tied to its training data
type sarimaModel struct {
	phi    float64   // non-seasonal AR(1) coefficient
	sphi   float64   // seasonal AR(1) coefficient
	beta   []float64 // exogenous regression coefficients
	period int

	y    []float64
	exog [][]float64
}

// fitSARIMA estimates the model on y with the given exogenous design
// (row-major, one row per observation, same length as y)
func fitSARIMA(y []float64, exog [][]float64, period int) (*sarimaModel, error) {
	n := len(y)
	if n != len(exog) {
		return nil, fmt.Errorf("series/exog length mismatch: %d vs %d", n, len(exog))
	}
	if n < 2*(period+1) {
		return nil, fmt.Errorf("series too short for seasonal period %d: %d points", period, n)
	}
	m := len(exog[0])

	// Starting betas from a plain OLS of y on the exogenous columns;
	// zero works too when that fit is singular
	beta0 := make([]float64, m)
	if fit, err := fitOLS(y, exog); err == nil {
		copy(beta0, fit.Coef)
	}

	start := make([]float64, 2+m)
	start[0] = 0.1 // phi
	start[1] = 0.1 // seasonal phi
	copy(start[2:], beta0)

	objective := func(params []float64) float64 {
		return cssObjective(y, exog, period, params)
	}

	best, converged := nelderMead(objective, start, sarimaMaxIter, sarimaTol)
	if !converged {
		return nil, fmt.Errorf("seasonal AR fit did not converge within %d iterations", sarimaMaxIter)
	}
	if !allFinite(best) {
		return nil, fmt.Errorf("seasonal AR fit produced non-finite parameters")
	}

	model := &sarimaModel{
		phi:    best[0],
		sphi:   best[1],
		beta:   append([]float64(nil), best[2:]...),
		period: period,
		y:      append([]float64(nil), y...),
		exog:   exog,
	}
	return model, nil
}

// cssObjective computes the conditional sum of squared residuals for a
// parameter vector [phi, sphi, beta...]. Non-finite intermediate values map
// to a huge penalty so the search steers away from them.
func cssObjective(y []float64, exog [][]float64, period int, params []float64) float64 {
	phi, sphi := params[0], params[1]
	beta := params[2:]
	n := len(y)

	z := make([]float64, n)
	for t := 0; t < n; t++ {
		z[t] = y[t] - dot(exog[t], beta)
	}

	var sse float64
	for t := period + 1; t < n; t++ {
		e := z[t] - phi*z[t-1] - sphi*z[t-period] + phi*sphi*z[t-period-1]
		sse += e * e
	}
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return math.MaxFloat64
	}
	return sse
}

// forecast produces point forecasts for the given number of steps using the
// supplied future exogenous rows (one per step)
func (m *sarimaModel) forecast(futureExog [][]float64, steps int) ([]float64, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("non-positive forecast steps: %d", steps)
	}
	if len(futureExog) != steps {
		return nil, fmt.Errorf("future exog rows %d != steps %d", len(futureExog), steps)
	}

	n := len(m.y)
	// Regression residual series over history, extended by the AR recursion
	z := make([]float64, n, n+steps)
	for t := 0; t < n; t++ {
		z[t] = m.y[t] - dot(m.exog[t], m.beta)
	}

	out := make([]float64, steps)
	for h := 0; h < steps; h++ {
		t := n + h
		next := m.phi*z[t-1] + m.sphi*z[t-m.period] - m.phi*m.sphi*z[t-m.period-1]
		z = append(z, next)
		v := next + dot(futureExog[h], m.beta)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite forecast at step %d", h+1)
		}
		out[h] = v
	}
	return out, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range b {
		s += a[i] * b[i]
	}
	return s
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// nelderMead minimizes f starting from the given point using the standard
// reflection/expansion/contraction/shrink simplex moves. It reports whether
// the simplex converged (function-value spread under tol) within maxIter
// iterations; hitting the cap without convergence returns converged=false.
func nelderMead(f func([]float64) float64, start []float64, maxIter int, tol float64) ([]float64, bool) {
	const (
		alpha = 1.0 // reflection
		gamma = 2.0 // expansion
		rho   = 0.5 // contraction
		sigma = 0.5 // shrink
	)

	dim := len(start)

	// Initial simplex: start plus a perturbation along each axis
	simplex := make([][]float64, dim+1)
	values := make([]float64, dim+1)
	simplex[0] = append([]float64(nil), start...)
	for i := 0; i < dim; i++ {
		pt := append([]float64(nil), start...)
		if pt[i] != 0 {
			pt[i] *= 1.05
		} else {
			pt[i] = 0.00025
		}
		simplex[i+1] = pt
	}
	for i := range simplex {
		values[i] = f(simplex[i])
	}

	order := func() {
		// Insertion sort keeps the simplex ordered by objective value;
		// dim+1 points, so cost is negligible
		for i := 1; i < len(values); i++ {
			for j := i; j > 0 && values[j] < values[j-1]; j-- {
				values[j], values[j-1] = values[j-1], values[j]
				simplex[j], simplex[j-1] = simplex[j-1], simplex[j]
			}
		}
	}
	order()

	centroid := make([]float64, dim)
	for iter := 0; iter < maxIter; iter++ {
		spread := math.Abs(values[dim] - values[0])
		if spread <= tol*(math.Abs(values[0])+tol) {
			return simplex[0], true
		}

		// Centroid of all points except the worst
		for j := 0; j < dim; j++ {
			centroid[j] = 0
			for i := 0; i < dim; i++ {
				centroid[j] += simplex[i][j]
			}
			centroid[j] /= float64(dim)
		}

		reflected := make([]float64, dim)
		for j := 0; j < dim; j++ {
			reflected[j] = centroid[j] + alpha*(centroid[j]-simplex[dim][j])
		}
		fr := f(reflected)

		switch {
		case fr < values[0]:
			expanded := make([]float64, dim)
			for j := 0; j < dim; j++ {
				expanded[j] = centroid[j] + gamma*(reflected[j]-centroid[j])
			}
			if fe := f(expanded); fe < fr {
				simplex[dim], values[dim] = expanded, fe
			} else {
				simplex[dim], values[dim] = reflected, fr
			}
		case fr < values[dim-1]:
			simplex[dim], values[dim] = reflected, fr
		default:
			contracted := make([]float64, dim)
			for j := 0; j < dim; j++ {
				contracted[j] = centroid[j] + rho*(simplex[dim][j]-centroid[j])
			}
			if fc := f(contracted); fc < values[dim] {
				simplex[dim], values[dim] = contracted, fc
			} else {
				// Shrink toward the best point
				for i := 1; i <= dim; i++ {
					for j := 0; j < dim; j++ {
						simplex[i][j] = simplex[0][j] + sigma*(simplex[i][j]-simplex[0][j])
					}
					values[i] = f(simplex[i])
				}
			}
		}
		order()
	}

	return simplex[0], false
}
