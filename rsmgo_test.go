package rsmgo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rsmgo/dataset"
	"github.com/hupe1980/rsmgo/selection"
	"github.com/hupe1980/rsmgo/term"
)

// peakDataset samples y = 10 - (A-2)^2 - (B-1)^2, an exact quadratic with
// its maximum at A=2, B=1.
func peakDataset() *dataset.Dataset {
	points := [][]float64{
		{0, 0}, {4, 0}, {0, 3}, {4, 3}, {2, 1}, {1, 2},
		{3, 1}, {2, 0}, {0, 1}, {1, 1}, {3, 2}, {4, 1},
	}

	d := &dataset.Dataset{
		Name:     "peak",
		Factors:  []string{"A", "B"},
		Response: "y",
		X:        points,
	}
	for _, p := range points {
		d.Y = append(d.Y, 10-(p[0]-2)*(p[0]-2)-(p[1]-1)*(p[1]-1))
	}
	return d
}

func TestAnalyzerSelectModel(t *testing.T) {
	a := New()

	sel, err := a.SelectModel(context.Background(), peakDataset())
	require.NoError(t, err)

	assert.Equal(t, "adjusted-r2", sel.Criterion)
	assert.Greater(t, sel.Model.R2, 0.999)

	labels := sel.Terms.Labels()
	assert.Contains(t, labels, "A^2")
	assert.Contains(t, labels, "B^2")
}

func TestAnalyzerCrossValidate(t *testing.T) {
	a := New()

	cv, err := a.CrossValidate(context.Background(), peakDataset())
	require.NoError(t, err)

	assert.Equal(t, 12, cv.N)
	assert.Equal(t, 12, cv.Successful)
	assert.Greater(t, cv.Q2, 0.99)
}

func TestAnalyzerRun(t *testing.T) {
	a := New()

	study, err := a.Run(context.Background(), peakDataset())
	require.NoError(t, err)

	assert.Equal(t, "peak", study.Dataset)
	require.NotNil(t, study.Optimization)

	// The maximum lies at (2, 1) with response 10; the grid search lands
	// within one step of it.
	assert.InDelta(t, 10, study.Optimization.Predicted, 0.01)

	va, ok := study.Optimization.Value("A")
	require.True(t, ok)
	assert.InDelta(t, 2, va, 0.05)

	vb, ok := study.Optimization.Value("B")
	require.True(t, ok)
	assert.InDelta(t, 1, vb, 0.05)
}

func TestAnalyzerFitFull(t *testing.T) {
	a := New()

	m, err := a.FitFull(peakDataset())
	require.NoError(t, err)

	assert.Len(t, m.Terms, 5)
	assert.Greater(t, m.R2, 0.999)
}

func TestAnalyzerRefitSelected(t *testing.T) {
	a := New()
	d := peakDataset()

	sel := &dataset.SelectedTerms{Dataset: "peak", Labels: []string{"A", "B", "A^2", "B^2"}}

	m, err := a.RefitSelected(d, sel)
	require.NoError(t, err)

	assert.Greater(t, m.AdjR2, 0.999)

	pred := m.Predict(func(f string) float64 {
		if f == "A" {
			return 2
		}
		return 1
	})
	assert.InDelta(t, 10, pred, 1e-6)
}

func TestAnalyzerWithMallowsCp(t *testing.T) {
	a := New(WithCriterion(selection.NewMallowsCp()))

	d := peakDataset()
	// Perturb the responses so the full fit keeps residual variance.
	for i := range d.Y {
		d.Y[i] += []float64{0.01, -0.02, 0.015, -0.01, 0.02, -0.015, 0.01, -0.005, 0.005, -0.02, 0.015, -0.01}[i]
	}

	sel, err := a.SelectModel(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, "mallows-cp", sel.Criterion)
	assert.NotEmpty(t, sel.Terms)
}

func TestAnalyzerWithTermPool(t *testing.T) {
	a := New(WithTermPool(term.FirstOrder([]string{"A", "B"})))

	sel, err := a.SelectModel(context.Background(), peakDataset())
	require.NoError(t, err)

	for _, label := range sel.Terms.Labels() {
		assert.NotContains(t, label, "^2")
	}
}

func TestAnalyzerNoFeasibleModel(t *testing.T) {
	a := New()

	d := &dataset.Dataset{
		Name:     "tiny",
		Factors:  []string{"A"},
		Response: "y",
		X:        [][]float64{{1}, {2}},
		Y:        []float64{1, 2},
	}

	_, err := a.SelectModel(context.Background(), d)
	require.ErrorIs(t, err, ErrNoFeasibleModel)
}

func TestAnalyzerEmptyDataset(t *testing.T) {
	a := New()

	d := &dataset.Dataset{Name: "empty", Factors: []string{"A"}, Response: "y"}

	_, err := a.SelectModel(context.Background(), d)
	require.ErrorIs(t, err, ErrEmptyDataset)

	_, err = a.CrossValidate(context.Background(), d)
	require.ErrorIs(t, err, ErrEmptyDataset)
}

func TestAnalyzerMetrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	a := New(WithMetricsCollector(metrics))

	_, err := a.SelectModel(context.Background(), peakDataset())
	require.NoError(t, err)

	_, err = a.CrossValidate(context.Background(), peakDataset())
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.SelectionCount)
	assert.Positive(t, stats.SelectionFitted)
	assert.Equal(t, int64(1), stats.CVCount)
	assert.Equal(t, int64(12), stats.CVFolds)
	assert.Zero(t, stats.CVFailedFolds)
}
