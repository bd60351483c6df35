package pricing

import (
	"fmt"
	"math"
)

// Ordinary least squares on the normal equations. The design matrices here
// are tiny (a handful of regressors), so a dense solve with partial pivoting
// is accurate enough and keeps the fit dependency-free.

// olsFit holds the result of an ordinary least squares regression
type olsFit struct {
	Coef     []float64 // coefficient per design column
	StdErr   []float64 // standard error per coefficient
	RSquared float64   // centered R²
	DF       int       // residual degrees of freedom (n - k)
}

// TStat returns the t statistic for coefficient j
func (f *olsFit) TStat(j int) float64 {
	if f.StdErr[j] == 0 {
		return math.NaN()
	}
	return f.Coef[j] / f.StdErr[j]
}

// PValue returns the two-sided p-value for coefficient j
func (f *olsFit) PValue(j int) float64 {
	return studentTPValue(f.TStat(j), float64(f.DF))
}

// ConfInt returns the confidence interval for coefficient j at the given
// two-sided level (e.g. 0.95)
func (f *olsFit) ConfInt(j int, level float64) (float64, float64) {
	t := studentTQuantile(0.5+level/2, float64(f.DF))
	half := t * f.StdErr[j]
	return f.Coef[j] - half, f.Coef[j] + half
}

// fitOLS regresses y on the columns of x (row-major design matrix, one row
// per observation). It returns an error when the design is singular or the
// system is otherwise unfit to solve; callers treat that as a local
// degradation, not a run failure.
func fitOLS(y []float64, x [][]float64) (*olsFit, error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, fmt.Errorf("design/response size mismatch: %d rows vs %d", len(x), n)
	}
	k := len(x[0])
	if k == 0 || n <= k {
		return nil, fmt.Errorf("underdetermined system: %d rows, %d regressors", n, k)
	}

	// Normal equations: X'X b = X'y
	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xty := make([]float64, k)
	for r := 0; r < n; r++ {
		if len(x[r]) != k {
			return nil, fmt.Errorf("ragged design matrix at row %d", r)
		}
		for i := 0; i < k; i++ {
			xty[i] += x[r][i] * y[r]
			for j := i; j < k; j++ {
				xtx[i][j] += x[r][i] * x[r][j]
			}
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	inv, err := invertMatrix(xtx)
	if err != nil {
		return nil, err
	}

	coef := make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			coef[i] += inv[i][j] * xty[j]
		}
	}

	// Residual and total sums of squares
	var rss, tss, ybar float64
	for _, v := range y {
		ybar += v
	}
	ybar /= float64(n)
	for r := 0; r < n; r++ {
		var fitted float64
		for j := 0; j < k; j++ {
			fitted += x[r][j] * coef[j]
		}
		resid := y[r] - fitted
		rss += resid * resid
		dev := y[r] - ybar
		tss += dev * dev
	}

	df := n - k
	sigma2 := rss / float64(df)
	stderr := make([]float64, k)
	for j := 0; j < k; j++ {
		v := sigma2 * inv[j][j]
		if v < 0 {
			return nil, fmt.Errorf("negative coefficient variance for column %d", j)
		}
		stderr[j] = math.Sqrt(v)
	}

	r2 := math.NaN()
	if tss > 0 {
		r2 = 1 - rss/tss
	}

	fit := &olsFit{Coef: coef, StdErr: stderr, RSquared: r2, DF: df}
	for j := 0; j < k; j++ {
		if math.IsNaN(coef[j]) || math.IsInf(coef[j], 0) {
			return nil, fmt.Errorf("non-finite coefficient for column %d", j)
		}
	}
	return fit, nil
}

// invertMatrix inverts a square matrix by Gauss-Jordan elimination with
// partial pivoting
func invertMatrix(m [][]float64) ([][]float64, error) {
	k := len(m)

	// Augment a working copy with the identity
	aug := make([][]float64, k)
	for i := 0; i < k; i++ {
		aug[i] = make([]float64, 2*k)
		copy(aug[i], m[i])
		aug[i][k+i] = 1
	}

	for col := 0; col < k; col++ {
		// Pivot selection
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular matrix at column %d", col)
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		p := aug[col][col]
		for j := 0; j < 2*k; j++ {
			aug[col][j] /= p
		}
		for r := 0; r < k; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			if factor == 0 {
				continue
			}
			for j := 0; j < 2*k; j++ {
				aug[r][j] -= factor * aug[col][j]
			}
		}
	}

	inv := make([][]float64, k)
	for i := 0; i < k; i++ {
		inv[i] = aug[i][k:]
	}
	return inv, nil
}

// guardLog applies a natural logarithm with a positive floor so that zero or
// negative inputs produce a large negative value instead of NaN/-Inf
func guardLog(v, floor float64) float64 {
	if v < floor {
		v = floor
	}
	return math.Log(v)
}
