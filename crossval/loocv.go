// Package crossval validates subset selection with leave-one-out
// cross-validation.
//
// Each fold removes one observation, reruns the full subset search on the
// remaining rows, and predicts the held-out response with the fold's winning
// model. Folds are independent and run concurrently; different folds may
// select different term subsets, and the summary deliberately reports
// aggregate predictive performance rather than one canonical reduced model.
package crossval

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/rsmgo/design"
	"github.com/hupe1980/rsmgo/selection"
	"github.com/hupe1980/rsmgo/term"
)

// Fold is the outcome of one leave-one-out fold.
type Fold struct {
	// Index is the held-out observation.
	Index int
	// Actual is the true held-out response.
	Actual float64
	// Predicted is the fold model's prediction at the held-out factor
	// values. Valid only when Err is nil.
	Predicted float64
	// AdjR2 is the adjusted R² of the fold's selected model on its
	// training rows. Valid only when Err is nil.
	AdjR2 float64
	// Terms is the subset selected on this fold's training rows.
	Terms term.Pool
	// Err records a fold whose subset search failed entirely; such folds
	// are excluded from the summary aggregates.
	Err error
}

// Summary aggregates all folds of one LOOCV run.
type Summary struct {
	// Folds holds one entry per observation, in held-out index order.
	Folds []Fold
	// N is the number of observations and therefore of folds.
	N int
	// Successful counts folds whose subset search produced a model.
	Successful int
	// MeanAdjR2 is the mean training adjusted R² over successful folds.
	MeanAdjR2 float64
	// Q2 is the squared Pearson correlation between held-out predictions
	// and actual responses over successful folds.
	Q2 float64
	// HeldOut is the set of observation indices that completed a fold,
	// successful or not.
	HeldOut *roaring.Bitmap
}

// Options configures a LOOCV run.
type Options struct {
	// Parallelism bounds the number of folds evaluated concurrently.
	// Values < 1 default to GOMAXPROCS.
	Parallelism int

	// SearchOptions are applied to every fold's subset search.
	SearchOptions []func(o *selection.Options)

	// Pool overrides the term pool. If nil, the full quadratic expansion
	// of the factor matrix is used.
	Pool term.Pool
}

// DefaultOptions are the default LOOCV options.
var DefaultOptions = Options{
	Parallelism: 0,
}

// LOOCV runs leave-one-out cross-validation of the subset search over the
// given observations. It produces exactly one fold per observation; folds
// whose search fails are recorded with their error and skipped in the
// aggregates, without failing the run.
func LOOCV(ctx context.Context, fm *design.FactorMatrix, y []float64, crit selection.Criterion, optFns ...func(o *Options)) (*Summary, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	n := fm.NumRows()
	if len(y) != n {
		return nil, fmt.Errorf("crossval: response length %d does not match %d observations", len(y), n)
	}

	pool := opts.Pool
	if pool == nil {
		pool = term.FullQuadratic(fm.Factors())
	}

	workers := opts.Parallelism
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	folds := make([]Fold, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			folds[i] = runFold(ctx, fm, y, pool, crit, i, opts.SearchOptions)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summarize(folds, n), nil
}

// runFold evaluates a single held-out observation. Any failure is captured
// on the fold rather than propagated.
func runFold(ctx context.Context, fm *design.FactorMatrix, y []float64, pool term.Pool, crit selection.Criterion, i int, searchOpts []func(o *selection.Options)) Fold {
	fold := Fold{Index: i, Actual: y[i]}

	train, err := fm.Drop(i)
	if err != nil {
		fold.Err = err
		return fold
	}

	yTrain := make([]float64, 0, len(y)-1)
	yTrain = append(yTrain, y[:i]...)
	yTrain = append(yTrain, y[i+1:]...)

	dm, err := design.Build(train, pool)
	if err != nil {
		fold.Err = err
		return fold
	}

	res, err := selection.Search(ctx, dm, yTrain, crit, searchOpts...)
	if err != nil {
		fold.Err = err
		return fold
	}

	fold.Predicted = res.Model.Predict(fm.Row(i))
	fold.AdjR2 = res.Model.AdjR2
	fold.Terms = res.Terms

	return fold
}

func summarize(folds []Fold, n int) *Summary {
	heldOut := roaring.New()

	var (
		preds, actuals []float64
		sumAdjR2       float64
		successful     int
	)

	for _, fold := range folds {
		heldOut.Add(uint32(fold.Index))
		if fold.Err != nil {
			continue
		}
		successful++
		sumAdjR2 += fold.AdjR2
		preds = append(preds, fold.Predicted)
		actuals = append(actuals, fold.Actual)
	}

	summary := &Summary{
		Folds:      folds,
		N:          n,
		Successful: successful,
		HeldOut:    heldOut,
	}

	if successful > 0 {
		summary.MeanAdjR2 = sumAdjR2 / float64(successful)
	}
	if successful > 1 {
		if r := stat.Correlation(preds, actuals, nil); !math.IsNaN(r) {
			summary.Q2 = r * r
		}
	}

	return summary
}
