package selection

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rsmgo/regress"
)

func TestAdjustedR2Criterion(t *testing.T) {
	crit := NewAdjustedR2()
	assert.Equal(t, "adjusted-r2", crit.Name())
	assert.False(t, crit.ExcludesFullPool())

	scorer, err := crit.Prepare(nil, nil)
	require.NoError(t, err)

	assert.True(t, scorer.Better(0.9, 0.8))
	assert.False(t, scorer.Better(0.8, 0.8))
	assert.Equal(t, 0.5, scorer.Score(&regress.FittedModel{AdjR2: 0.5}))
}

func TestMallowsCpCriterion(t *testing.T) {
	dm := searchDesign(t)

	// Noisy response so the full-pool residual variance is positive.
	y := searchResponse(func(a, b float64) float64 { return 3 + a - 0.5*b })
	for i := range y {
		y[i] += 0.4 * math.Sin(float64(2*i+1))
	}

	crit := NewMallowsCp()
	assert.Equal(t, "mallows-cp", crit.Name())
	assert.True(t, crit.ExcludesFullPool())

	scorer, err := crit.Prepare(dm, y)
	require.NoError(t, err)

	t.Run("FullPoolCpEqualsParameterCount", func(t *testing.T) {
		full, err := regress.FitFull(dm, y)
		require.NoError(t, err)

		cp := scorer.(*cpScorer).Cp(full)
		assert.InDelta(t, float64(full.NumParams()), cp, 1e-9)
		assert.InDelta(t, 0.0, scorer.Score(full), 1e-9)
	})

	t.Run("BetterMinimizesDistance", func(t *testing.T) {
		assert.True(t, scorer.Better(0.1, 0.2))
		assert.False(t, scorer.Better(0.2, 0.2))
	})

	t.Run("SearchExcludesFullPool", func(t *testing.T) {
		res, err := Search(context.Background(), dm, y, crit)
		require.NoError(t, err)

		assert.Less(t, len(res.Terms), len(dm.Terms()))
		// 2^5 - 2: all non-empty subsets minus the full pool.
		assert.Equal(t, 30, res.Fitted+res.Skipped)
		assert.Equal(t, "mallows-cp", res.Criterion)
	})

	t.Run("SearchMinimizesCpDistance", func(t *testing.T) {
		res, err := Search(context.Background(), dm, y, crit)
		require.NoError(t, err)

		p := len(dm.Terms())
		fullMask := uint64(1)<<p - 1
		for mask := uint64(1); mask < fullMask; mask++ {
			model, err := regress.Fit(dm, maskIndices(mask), y)
			if err != nil {
				continue
			}
			assert.GreaterOrEqual(t, scorer.Score(model), res.Score-1e-12)
		}
	})
}

func TestMallowsCpPrepareFailsWithoutResidualVariance(t *testing.T) {
	dm := searchDesign(t)

	t.Run("PerfectFullFit", func(t *testing.T) {
		// Noise-free quadratic data: the full pool fits exactly, leaving no
		// residual variance to calibrate Cp against. QR leaves the RSS at
		// rounding-error scale rather than exactly zero, so this exercises
		// the relative tolerance.
		y := searchResponse(func(a, b float64) float64 { return 1 + a + b*b })

		_, err := NewMallowsCp().Prepare(dm, y)
		require.ErrorContains(t, err, "zero residual variance")
	})

	t.Run("ConstantResponse", func(t *testing.T) {
		y := searchResponse(func(a, b float64) float64 { return 7 })

		_, err := NewMallowsCp().Prepare(dm, y)
		require.ErrorContains(t, err, "zero residual variance")
	})

	t.Run("TooFewObservations", func(t *testing.T) {
		short := make([]float64, 4)
		_, err := NewMallowsCp().Prepare(dm, short)
		require.Error(t, err)
	})
}
