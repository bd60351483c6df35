package pricing

import (
	"math"
)

// Statistical distribution helpers for the elasticity regression.
// Implemented on stdlib math: the Student-t CDF reduces to the regularized
// incomplete beta function, evaluated with a Lentz continued fraction.
//
// Reference: Press et al., Numerical Recipes, 3rd ed., §6.4 and §6.14.

// logGamma computes ln(Gamma(x)) for x > 0 using the Lanczos approximation
func logGamma(x float64) float64 {
	coeffs := [6]float64{
		76.18009172947146,
		-86.50532032941677,
		24.01409824083091,
		-1.231739572450155,
		0.1208650973866179e-2,
		-0.5395239384953e-5,
	}

	y := x
	tmp := x + 5.5
	tmp -= (x + 0.5) * math.Log(tmp)
	ser := 1.000000000190015
	for _, c := range coeffs {
		y++
		ser += c / y
	}
	return -tmp + math.Log(2.5066282746310005*ser/x)
}

// regularizedIncompleteBeta computes I_x(a, b) for 0 <= x <= 1
func regularizedIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	// Prefactor exp(ln B(a,b) + a ln x + b ln(1-x))
	lnBeta := logGamma(a+b) - logGamma(a) - logGamma(b) +
		a*math.Log(x) + b*math.Log(1-x)
	front := math.Exp(lnBeta)

	// Continued fraction converges fastest for x < (a+1)/(a+b+2);
	// use the symmetry relation otherwise
	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - regularizedIncompleteBeta(b, a, 1-x)
}

// betaContinuedFraction evaluates the continued fraction for the incomplete
// beta function using the modified Lentz method
func betaContinuedFraction(a, b, x float64) float64 {
	const (
		maxIterations = 200
		epsilon       = 3e-14
		tiny          = 1e-30
	)

	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIterations; m++ {
		m2 := float64(2 * m)
		fm := float64(m)

		// Even step
		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		// Odd step
		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del

		if math.Abs(del-1) < epsilon {
			break
		}
	}
	return h
}

// studentTCDF computes P(T <= t) for the Student-t distribution with df
// degrees of freedom
func studentTCDF(t, df float64) float64 {
	if df <= 0 {
		return math.NaN()
	}
	if t == 0 {
		return 0.5
	}

	x := df / (df + t*t)
	tail := 0.5 * regularizedIncompleteBeta(df/2, 0.5, x)
	if t > 0 {
		return 1 - tail
	}
	return tail
}

// studentTPValue computes the two-sided p-value for a t statistic
func studentTPValue(t, df float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) || df <= 0 {
		return math.NaN()
	}
	x := df / (df + t*t)
	return regularizedIncompleteBeta(df/2, 0.5, x)
}

// studentTQuantile computes the quantile function of the Student-t
// distribution by bisection on the CDF. p must be in (0, 1).
func studentTQuantile(p, df float64) float64 {
	if p <= 0 || p >= 1 || df <= 0 {
		return math.NaN()
	}
	if p == 0.5 {
		return 0
	}

	// Exploit symmetry so the search interval is always [0, hi]
	if p < 0.5 {
		return -studentTQuantile(1-p, df)
	}

	lo, hi := 0.0, 2.0
	for studentTCDF(hi, df) < p && hi < 1e8 {
		hi *= 2
	}

	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if studentTCDF(mid, df) < p {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < 1e-10*(1+hi) {
			break
		}
	}
	return (lo + hi) / 2
}
