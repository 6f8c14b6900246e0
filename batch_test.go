package rsmgo

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rsmgo/blobstore"
	"github.com/hupe1980/rsmgo/dataset"
)

// parabolaDataset samples y = 10 - (x-5)^2 at x = 0..9.
func parabolaDataset(name string) *dataset.Dataset {
	d := &dataset.Dataset{
		Name:     name,
		Factors:  []string{"x"},
		Response: "y",
	}
	for i := 0; i < 10; i++ {
		x := float64(i)
		d.X = append(d.X, []float64{x})
		d.Y = append(d.Y, 10-(x-5)*(x-5))
	}
	return d
}

func seedBatchStore(t *testing.T) blobstore.Store {
	t.Helper()
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	peak := peakDataset()
	require.NoError(t, peak.Save(ctx, store, "run-a.csv"))
	require.NoError(t, parabolaDataset("run-b").Save(ctx, store, "run-b.csv.gz"))

	// Below the sample floor used in the tests.
	small := &dataset.Dataset{
		Name:     "run-c",
		Factors:  []string{"x"},
		Response: "y",
		X:        [][]float64{{1}, {2}, {3}},
		Y:        []float64{1, 2, 3},
	}
	require.NoError(t, small.Save(ctx, store, "run-c.csv"))

	// Not a dataset; must be ignored.
	require.NoError(t, store.Put(ctx, "notes.txt", []byte("lab notes")))

	return store
}

func TestRunBatch(t *testing.T) {
	ctx := context.Background()
	store := seedBatchStore(t)

	a := New()

	summary, err := a.RunBatch(ctx, store, BatchInput{
		OutputPrefix: "results/",
		MinSamples:   5,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.SkippedSmall)
	assert.Empty(t, summary.Failures)
	assert.Zero(t, summary.FailedSet.GetCardinality())

	names, err := store.List(ctx, "results/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"results/optimization.csv",
		"results/run-a.cv.csv",
		"results/run-a.study.json",
		"results/run-b.cv.csv",
		"results/run-b.study.json",
		"results/selection.csv",
	}, names)

	// Decode one study blob and sanity-check the optimum.
	data, err := store.Get(ctx, "results/run-b.study.json")
	require.NoError(t, err)

	var rec struct {
		Optimization dataset.OptimizationRecord `json:"optimization"`
	}
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "run-b", rec.Optimization.Dataset)
	assert.InDelta(t, 10, rec.Optimization.MaxResponse, 0.01)
}

func TestRunBatchFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	store := seedBatchStore(t)
	require.NoError(t, store.Put(ctx, "bad.csv", []byte("not,a\nvalid,dataset\n")))

	a := New()

	summary, err := a.RunBatch(ctx, store, BatchInput{MinSamples: 5})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "bad.csv", summary.Failures[0].Dataset)
	assert.Equal(t, uint64(1), summary.FailedSet.GetCardinality())
}

func TestRunBatchEmptyStore(t *testing.T) {
	a := New()

	summary, err := a.RunBatch(context.Background(), blobstore.NewMemoryStore(), BatchInput{})
	require.NoError(t, err)

	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.Succeeded)
}
