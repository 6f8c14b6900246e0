// Package regress fits ordinary least-squares models on polynomial design
// matrices and reports the diagnostics used for model selection.
//
// Fitting uses a QR decomposition (gonum) rather than explicit normal
// equations. Rank deficiency is detected from the R diagonal before any
// coefficient is produced, so a degenerate design never yields an unstable
// solution.
package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hupe1980/rsmgo/design"
	"github.com/hupe1980/rsmgo/term"
)

// rankTol is the relative tolerance on the R diagonal below which a design
// column is treated as linearly dependent.
const rankTol = 1e-10

// ErrInsufficientData indicates that a fit was requested with fewer
// observations than estimated parameters plus one residual degree of freedom.
type ErrInsufficientData struct {
	Observations int
	Parameters   int
}

func (e *ErrInsufficientData) Error() string {
	return fmt.Sprintf("regress: %d observations cannot support %d parameters", e.Observations, e.Parameters)
}

// ErrDegenerateModel indicates a rank-deficient restricted design matrix
// (duplicate or linearly dependent columns).
type ErrDegenerateModel struct {
	Parameters int
	cause      error
}

func (e *ErrDegenerateModel) Error() string {
	return fmt.Sprintf("regress: rank-deficient design matrix with %d parameters", e.Parameters)
}

func (e *ErrDegenerateModel) Unwrap() error { return e.cause }

// FittedModel is the read-only result of one least-squares fit.
type FittedModel struct {
	// Terms is the fitted subset in canonical order. The intercept is
	// implicit and not listed.
	Terms term.Pool
	// Coeffs holds the estimated coefficients; Coeffs[0] is the intercept
	// and Coeffs[i+1] belongs to Terms[i].
	Coeffs []float64
	// Residuals are observed minus fitted values, one per observation.
	Residuals []float64
	// RSS is the residual sum of squares.
	RSS float64
	// R2 is the coefficient of determination.
	R2 float64
	// AdjR2 is R2 penalized for parameter count: 1-(1-R2)(n-1)/(n-p-1).
	AdjR2 float64
	// PValues holds two-sided t-test p-values aligned with Coeffs.
	PValues []float64
	// MaxPValue is the largest p-value among non-intercept terms.
	// It is zero for an intercept-only model.
	MaxPValue float64
	// N is the number of observations used in the fit.
	N int
	// DF is the residual degrees of freedom, N-len(Coeffs).
	DF int
}

// NumParams returns the number of estimated parameters, intercept included.
func (m *FittedModel) NumParams() int { return len(m.Coeffs) }

// Predict evaluates the fitted surface at the factor values supplied by val.
func (m *FittedModel) Predict(val func(factor string) float64) float64 {
	y := m.Coeffs[0]
	for i, t := range m.Terms {
		y += m.Coeffs[i+1] * t.Eval(val)
	}
	return y
}

// Labels returns the canonical labels of the fitted terms.
func (m *FittedModel) Labels() []string { return m.Terms.Labels() }

// Fit estimates an ordinary least-squares model on the design matrix
// restricted to the given term indices.
//
// It fails with *ErrInsufficientData unless the observation count exceeds
// the parameter count, and with *ErrDegenerateModel when the restricted
// design matrix is rank deficient.
func Fit(dm *design.Matrix, subset []int, y []float64) (*FittedModel, error) {
	if len(subset) == 0 {
		return nil, fmt.Errorf("regress: empty term subset")
	}

	n := dm.NumObservations()
	if len(y) != n {
		return nil, fmt.Errorf("regress: response length %d does not match %d observations", len(y), n)
	}

	p := len(subset) + 1
	if n <= p {
		return nil, &ErrInsufficientData{Observations: n, Parameters: p}
	}

	x := dm.Restrict(subset)

	var qr mat.QR
	qr.Factorize(x)

	var r mat.Dense
	qr.RTo(&r)

	// Rank check on the R diagonal. A (near-)zero pivot means a column is a
	// linear combination of the preceding ones.
	maxDiag := 0.0
	for i := 0; i < p; i++ {
		maxDiag = math.Max(maxDiag, math.Abs(r.At(i, i)))
	}
	for i := 0; i < p; i++ {
		if math.Abs(r.At(i, i)) <= rankTol*math.Max(maxDiag, 1) {
			return nil, &ErrDegenerateModel{Parameters: p}
		}
	}

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, mat.NewDense(n, 1, append([]float64(nil), y...))); err != nil {
		return nil, &ErrDegenerateModel{Parameters: p, cause: err}
	}

	coeffs := make([]float64, p)
	for i := range coeffs {
		coeffs[i] = beta.At(i, 0)
	}

	// Fitted values and residuals.
	residuals := make([]float64, n)
	rss := 0.0
	for i := 0; i < n; i++ {
		fitted := 0.0
		for j := 0; j < p; j++ {
			fitted += x.At(i, j) * coeffs[j]
		}
		residuals[i] = y[i] - fitted
		rss += residuals[i] * residuals[i]
	}

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	tss := 0.0
	for _, v := range y {
		d := v - mean
		tss += d * d
	}

	r2 := 0.0
	if tss > 0 {
		r2 = 1 - rss/tss
	}
	df := n - p
	adjR2 := 1 - (1-r2)*float64(n-1)/float64(df)

	pvalues := coefficientPValues(&r, coeffs, rss, df)

	maxP := 0.0
	for _, pv := range pvalues[1:] {
		maxP = math.Max(maxP, pv)
	}

	return &FittedModel{
		Terms:     dm.Terms().Select(subset),
		Coeffs:    coeffs,
		Residuals: residuals,
		RSS:       rss,
		R2:        r2,
		AdjR2:     adjR2,
		PValues:   pvalues,
		MaxPValue: maxP,
		N:         n,
		DF:        df,
	}, nil
}

// FitFull fits the complete term pool of the design matrix.
func FitFull(dm *design.Matrix, y []float64) (*FittedModel, error) {
	return Fit(dm, dm.AllIndices(), y)
}

// coefficientPValues computes two-sided Student-t p-values from the upper
// triangular factor R of the design QR decomposition.
//
// Var(beta) = sigma^2 (X'X)^-1 with (X'X)^-1 = R^-1 R^-T, so the i-th
// diagonal entry is the squared row norm of R^-1.
func coefficientPValues(r *mat.Dense, coeffs []float64, rss float64, df int) []float64 {
	p := len(coeffs)

	// Invert the top p x p block of R by back substitution. The diagonal was
	// already checked to be nonzero.
	rinv := make([][]float64, p)
	for i := range rinv {
		rinv[i] = make([]float64, p)
	}
	for j := p - 1; j >= 0; j-- {
		rinv[j][j] = 1 / r.At(j, j)
		for i := j - 1; i >= 0; i-- {
			sum := 0.0
			for k := i + 1; k <= j; k++ {
				sum += r.At(i, k) * rinv[k][j]
			}
			rinv[i][j] = -sum / r.At(i, i)
		}
	}

	sigma2 := rss / float64(df)
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}

	pvalues := make([]float64, p)
	for i := 0; i < p; i++ {
		diag := 0.0
		for k := i; k < p; k++ {
			diag += rinv[i][k] * rinv[i][k]
		}
		se := math.Sqrt(sigma2 * diag)

		switch {
		case se > 0:
			pvalues[i] = 2 * tdist.Survival(math.Abs(coeffs[i])/se)
		case coeffs[i] != 0:
			// Perfect fit: the coefficient is exact.
			pvalues[i] = 0
		default:
			pvalues[i] = 1
		}
	}

	return pvalues
}
