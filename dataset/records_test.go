package dataset

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSelectionRecords(t *testing.T) {
	records := []SelectionRecord{
		{
			Dataset:   "run1",
			Criterion: "adjusted_r2",
			Terms:     []string{"A", "B", "A^2"},
			Score:     0.97,
			R2:        0.99,
			AdjR2:     0.97,
			MaxPValue: 0.03,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSelectionRecords(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"dataset", "criterion", "terms", "score", "r2", "adj_r2", "max_p_value"}, rows[0])
	assert.Equal(t, "run1", rows[1][0])
	assert.Equal(t, "A, B, A^2", rows[1][2])
}

func TestParseSelectedTerms(t *testing.T) {
	sel := ParseSelectedTerms("run1", "A, B, A^2, A B")

	assert.Equal(t, "run1", sel.Dataset)
	assert.Equal(t, []string{"A", "B", "A^2", "A B"}, sel.Labels)

	pool, err := sel.Terms()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "A^2", "A B"}, pool.Labels())
}

func TestParseSelectedTermsInvalidLabel(t *testing.T) {
	sel := ParseSelectedTerms("run1", "A, ^2")

	_, err := sel.Terms()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run1")
}

func TestWriteCVRecords(t *testing.T) {
	folds := []CVRecord{
		{Fold: 0, Predicted: 1.1, Actual: 1.0, AdjR2: 0.9},
		{Fold: 1, Failed: true},
	}
	summary := CVSummaryRecord{Dataset: "run1", Folds: 2, Successful: 1, MeanAdjR2: 0.9, Q2: 0.81}

	var buf bytes.Buffer
	require.NoError(t, WriteCVRecords(&buf, folds, summary))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"0", "1.1", "1", "0.9", "false"}, rows[1])
	assert.Equal(t, "true", rows[2][4])
	assert.Equal(t, "summary", rows[3][0])
}

func TestWriteOptimizationRecords(t *testing.T) {
	records := []OptimizationRecord{
		{
			Dataset:     "run1",
			MaxResponse: 42.5,
			Factors:     []string{"A", "B"},
			Values:      []float64{1.5, 3},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOptimizationRecords(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"run1", "42.5", "A=1.5 B=3"}, rows[1])
}
