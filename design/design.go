// Package design builds polynomial design matrices from experimental factor
// data.
//
// A FactorMatrix holds the raw observations (rows) of named continuous
// factors. Build evaluates an expansion-term pool against every observation
// and produces an immutable DesignMatrix with a leading intercept column,
// ready for least-squares fitting.
package design

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/rsmgo/term"
)

// ErrInvalidFactorCount is returned when a factor matrix is constructed
// without any factor columns.
var ErrInvalidFactorCount = fmt.Errorf("design: factor count must be positive")

// ErrUnknownFactor indicates a term referencing a factor that is not a
// column of the factor matrix.
type ErrUnknownFactor struct {
	Factor string
}

func (e *ErrUnknownFactor) Error() string {
	return fmt.Sprintf("design: unknown factor %q", e.Factor)
}

// FactorMatrix is an ordered set of observations over named continuous
// factors. It is immutable after construction.
type FactorMatrix struct {
	factors []string
	index   map[string]int
	rows    [][]float64
}

// NewFactorMatrix creates a FactorMatrix from named factor columns and
// row-major observation data. Every row must have one value per factor and
// no value may be NaN or infinite.
func NewFactorMatrix(factors []string, rows [][]float64) (*FactorMatrix, error) {
	if len(factors) == 0 {
		return nil, ErrInvalidFactorCount
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("design: at least one observation is required")
	}

	index := make(map[string]int, len(factors))
	for i, f := range factors {
		if f == "" {
			return nil, fmt.Errorf("design: empty factor name at column %d", i)
		}
		if _, ok := index[f]; ok {
			return nil, fmt.Errorf("design: duplicate factor name %q", f)
		}
		index[f] = i
	}

	copied := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(factors) {
			return nil, fmt.Errorf("design: row %d has %d values, want %d", i, len(row), len(factors))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("design: non-finite value at row %d, factor %q", i, factors[j])
			}
		}
		copied[i] = append([]float64(nil), row...)
	}

	return &FactorMatrix{
		factors: append([]string(nil), factors...),
		index:   index,
		rows:    copied,
	}, nil
}

// Factors returns the factor names in column order.
func (fm *FactorMatrix) Factors() []string {
	return append([]string(nil), fm.factors...)
}

// NumFactors returns the number of factor columns.
func (fm *FactorMatrix) NumFactors() int { return len(fm.factors) }

// NumRows returns the number of observations.
func (fm *FactorMatrix) NumRows() int { return len(fm.rows) }

// At returns the value of the named factor at the given observation.
func (fm *FactorMatrix) At(row int, factor string) (float64, error) {
	col, ok := fm.index[factor]
	if !ok {
		return 0, &ErrUnknownFactor{Factor: factor}
	}
	return fm.rows[row][col], nil
}

// Row returns a lookup over the factor values of one observation, suitable
// for term evaluation. The lookup panics on unknown factors; validate terms
// against the matrix first.
func (fm *FactorMatrix) Row(row int) func(factor string) float64 {
	values := fm.rows[row]
	return func(factor string) float64 {
		col, ok := fm.index[factor]
		if !ok {
			panic(&ErrUnknownFactor{Factor: factor})
		}
		return values[col]
	}
}

// Range returns the observed [min, max] of the named factor.
func (fm *FactorMatrix) Range(factor string) (minVal, maxVal float64, err error) {
	col, ok := fm.index[factor]
	if !ok {
		return 0, 0, &ErrUnknownFactor{Factor: factor}
	}
	minVal, maxVal = fm.rows[0][col], fm.rows[0][col]
	for _, row := range fm.rows[1:] {
		minVal = math.Min(minVal, row[col])
		maxVal = math.Max(maxVal, row[col])
	}
	return minVal, maxVal, nil
}

// Drop returns a copy of the matrix without the given observation.
// It is the training-set constructor for leave-one-out folds.
func (fm *FactorMatrix) Drop(row int) (*FactorMatrix, error) {
	if row < 0 || row >= len(fm.rows) {
		return nil, fmt.Errorf("design: row %d out of range [0,%d)", row, len(fm.rows))
	}
	rows := make([][]float64, 0, len(fm.rows)-1)
	for i, r := range fm.rows {
		if i == row {
			continue
		}
		rows = append(rows, r)
	}
	return NewFactorMatrix(fm.factors, rows)
}

// HasFactor reports whether the named factor is a column of the matrix.
func (fm *FactorMatrix) HasFactor(factor string) bool {
	_, ok := fm.index[factor]
	return ok
}

// Matrix is an immutable design matrix: an intercept column followed by one
// column per expansion term, evaluated for every observation.
type Matrix struct {
	pool term.Pool
	data *mat.Dense
	n    int
}

// Build evaluates the term pool against every observation of the factor
// matrix. The resulting matrix has n rows and len(pool)+1 columns, with the
// intercept in column 0.
func Build(fm *FactorMatrix, pool term.Pool) (*Matrix, error) {
	if len(pool) == 0 {
		return nil, fmt.Errorf("design: term pool must not be empty")
	}
	for _, t := range pool {
		for _, f := range t.Factors() {
			if !fm.HasFactor(f) {
				return nil, &ErrUnknownFactor{Factor: f}
			}
		}
	}

	n := fm.NumRows()
	data := mat.NewDense(n, len(pool)+1, nil)
	for i := 0; i < n; i++ {
		val := fm.Row(i)
		data.Set(i, 0, 1)
		for j, t := range pool {
			data.Set(i, j+1, t.Eval(val))
		}
	}

	return &Matrix{pool: pool, data: data, n: n}, nil
}

// BuildQuadratic builds the design matrix for the full quadratic expansion
// of the factor matrix.
func BuildQuadratic(fm *FactorMatrix) (*Matrix, error) {
	return Build(fm, term.FullQuadratic(fm.factors))
}

// Terms returns the term pool backing the matrix, in column order.
func (m *Matrix) Terms() term.Pool { return m.pool }

// NumObservations returns the number of rows.
func (m *Matrix) NumObservations() int { return m.n }

// Restrict returns the design matrix restricted to the given term indices:
// the intercept column plus one column per selected term, preserving index
// order. The returned matrix shares no storage with the receiver.
func (m *Matrix) Restrict(indices []int) *mat.Dense {
	out := mat.NewDense(m.n, len(indices)+1, nil)
	for i := 0; i < m.n; i++ {
		out.Set(i, 0, 1)
		for j, idx := range indices {
			out.Set(i, j+1, m.data.At(i, idx+1))
		}
	}
	return out
}

// AllIndices returns the index list selecting every term of the pool.
func (m *Matrix) AllIndices() []int {
	indices := make([]int, len(m.pool))
	for i := range indices {
		indices[i] = i
	}
	return indices
}
