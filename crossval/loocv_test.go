package crossval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rsmgo/design"
	"github.com/hupe1980/rsmgo/selection"
	"github.com/hupe1980/rsmgo/term"
)

var loocvRows = [][]float64{
	{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2, 1}, {1, 2}, {2, 2}, {3, 1}, {1, 3}, {3, 3}, {2, 3}, {3, 2},
}

func loocvData(t *testing.T, f func(a, b float64) float64) (*design.FactorMatrix, []float64) {
	t.Helper()

	fm, err := design.NewFactorMatrix([]string{"A", "B"}, loocvRows)
	require.NoError(t, err)

	y := make([]float64, len(loocvRows))
	for i, row := range loocvRows {
		y[i] = f(row[0], row[1])
	}
	return fm, y
}

func TestLOOCVFoldCoverage(t *testing.T) {
	fm, y := loocvData(t, func(a, b float64) float64 { return 1 + 2*a - b })

	summary, err := LOOCV(context.Background(), fm, y, selection.NewAdjustedR2())
	require.NoError(t, err)

	// Exactly n folds, held-out indices {0,...,n-1} with no repeats.
	n := len(loocvRows)
	require.Len(t, summary.Folds, n)
	assert.Equal(t, n, summary.N)
	assert.Equal(t, uint64(n), summary.HeldOut.GetCardinality())
	for i := 0; i < n; i++ {
		assert.True(t, summary.HeldOut.Contains(uint32(i)))
		assert.Equal(t, i, summary.Folds[i].Index)
	}
}

func TestLOOCVNoiseFreePrediction(t *testing.T) {
	fm, y := loocvData(t, func(a, b float64) float64 { return 3 - a + 0.5*b*b })

	summary, err := LOOCV(context.Background(), fm, y, selection.NewAdjustedR2())
	require.NoError(t, err)

	assert.Equal(t, len(loocvRows), summary.Successful)
	assert.InDelta(t, 1.0, summary.MeanAdjR2, 1e-9)
	assert.InDelta(t, 1.0, summary.Q2, 1e-9)

	for _, fold := range summary.Folds {
		require.NoError(t, fold.Err)
		assert.InDelta(t, fold.Actual, fold.Predicted, 1e-6)
		assert.NotEmpty(t, fold.Terms)
	}
}

func TestLOOCVFailedFoldsAreCountedNotFatal(t *testing.T) {
	// Three observations: each fold trains on two rows, which cannot
	// support even a single term plus intercept with a residual degree of
	// freedom, so every fold fails.
	fm, err := design.NewFactorMatrix([]string{"A"}, [][]float64{{0}, {1}, {2}})
	require.NoError(t, err)

	summary, err := LOOCV(context.Background(), fm, []float64{1, 2, 3}, selection.NewAdjustedR2())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.N)
	assert.Equal(t, 0, summary.Successful)
	assert.Equal(t, 0.0, summary.MeanAdjR2)
	assert.Equal(t, 0.0, summary.Q2)
	for _, fold := range summary.Folds {
		assert.ErrorIs(t, fold.Err, selection.ErrNoFeasibleSubset)
	}
}

func TestLOOCVFirstOrderPool(t *testing.T) {
	fm, y := loocvData(t, func(a, b float64) float64 { return 2 + a + b })

	summary, err := LOOCV(context.Background(), fm, y, selection.NewAdjustedR2(), func(o *Options) {
		o.Pool = term.FirstOrder(fm.Factors())
	})
	require.NoError(t, err)

	assert.Equal(t, len(loocvRows), summary.Successful)
	for _, fold := range summary.Folds {
		for _, tm := range fold.Terms {
			assert.Equal(t, term.KindLinear, tm.Kind)
		}
	}
}

func TestLOOCVFoldsMaySelectDifferentSubsets(t *testing.T) {
	fm, y := loocvData(t, func(a, b float64) float64 { return 1 + a + 0.2*a*b })
	for i := range y {
		y[i] += 0.3 * float64(i%3)
	}

	summary, err := LOOCV(context.Background(), fm, y, selection.NewAdjustedR2())
	require.NoError(t, err)

	// Per-fold structure is reported as-is; the engine never forces one
	// canonical subset across folds.
	require.Positive(t, summary.Successful)
	for _, fold := range summary.Folds {
		if fold.Err == nil {
			assert.NotEmpty(t, fold.Terms)
		}
	}
}

func TestLOOCVResponseLengthMismatch(t *testing.T) {
	fm, _ := loocvData(t, func(a, b float64) float64 { return a })

	_, err := LOOCV(context.Background(), fm, []float64{1, 2}, selection.NewAdjustedR2())
	require.Error(t, err)
}
