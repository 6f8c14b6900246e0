package surface

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/rsmgo/design"
	"github.com/hupe1980/rsmgo/regress"
)

// Result is the grid point achieving the maximum predicted response.
// The maximum is grid-bounded: accuracy is limited by grid resolution, not
// exact.
type Result struct {
	// Factors are the optimized factor names, aligned with Values.
	Factors []string
	// Values is the winning grid point, one value per factor.
	Values []float64
	// Predicted is the model's response at the winning point.
	Predicted float64
	// Evaluated is the number of grid points visited.
	Evaluated uint64
	// Grids are the per-factor discretizations that were traversed.
	Grids []Grid
}

// Value returns the winning setting of the named factor.
func (r *Result) Value(factor string) (float64, bool) {
	for i, f := range r.Factors {
		if f == factor {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Options configures a grid optimization.
type Options struct {
	// Steps is the number of grid intervals per factor dimension.
	Steps int

	// MinStep is the floor on the per-dimension step width, guarding
	// against vanishingly narrow observed ranges.
	MinStep float64

	// Parallelism is the number of concurrent traversal workers.
	// Values < 1 default to GOMAXPROCS.
	Parallelism int

	// Logger receives throttled progress reports during long traversals.
	// If nil, progress is not reported.
	Logger *slog.Logger

	// ProgressInterval is the minimum time between progress reports.
	ProgressInterval time.Duration
}

// DefaultOptions are the default grid-optimization options.
var DefaultOptions = Options{
	Steps:            100,
	MinStep:          0.01,
	Parallelism:      0,
	ProgressInterval: 5 * time.Second,
}

// Optimize exhaustively evaluates the fitted model over the Cartesian grid
// spanned by the observed range of every factor the model references, and
// returns the point with the maximum predicted response.
//
// The traversal is partitioned over the first grid dimension; each worker
// keeps a local running maximum and the partial results combine through a
// final max reduction, so no locking is required on the hot path.
func Optimize(ctx context.Context, m *regress.FittedModel, fm *design.FactorMatrix, optFns ...func(o *Options)) (*Result, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Steps < 1 {
		opts.Steps = DefaultOptions.Steps
	}

	grids, err := buildGrids(m, fm, opts.Steps, opts.MinStep)
	if err != nil {
		return nil, err
	}

	workers := opts.Parallelism
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if outer := len(grids[0].Values); workers > outer {
		workers = outer
	}

	total := totalPoints(grids)
	var evaluated atomic.Uint64

	progress := rate.Sometimes{Interval: opts.ProgressInterval}
	if opts.ProgressInterval <= 0 {
		progress = rate.Sometimes{Every: 1}
	}

	locals := make([]localMax, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			local := &locals[w]
			local.best = math.Inf(-1)

			point := make([]float64, len(grids))
			lookup := pointLookup(grids, point)

			for outer := w; outer < len(grids[0].Values); outer += workers {
				if err := ctx.Err(); err != nil {
					return err
				}

				point[0] = grids[0].Values[outer]
				local.scan(m, grids, point, lookup, 1)

				done := evaluated.Add(local.flushCount())
				if opts.Logger != nil {
					progress.Do(func() {
						opts.Logger.InfoContext(ctx, "grid search progress",
							"evaluated", done,
							"total", total,
						)
					})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := &locals[0]
	for i := 1; i < len(locals); i++ {
		if locals[i].best > best.best {
			best = &locals[i]
		}
	}

	factors := make([]string, len(grids))
	for i, grid := range grids {
		factors[i] = grid.Factor
	}

	return &Result{
		Factors:   factors,
		Values:    best.point,
		Predicted: best.best,
		Evaluated: evaluated.Load(),
		Grids:     grids,
	}, nil
}

// localMax is one worker's running maximum.
type localMax struct {
	best    float64
	point   []float64
	pending uint64
}

// scan recursively traverses dimensions dim.. of the grid, evaluating the
// model at every completed point.
func (l *localMax) scan(m *regress.FittedModel, grids []Grid, point []float64, lookup func(string) float64, dim int) {
	if dim == len(grids) {
		l.pending++
		if y := m.Predict(lookup); y > l.best {
			l.best = y
			l.point = append(l.point[:0], point...)
		}
		return
	}
	for _, v := range grids[dim].Values {
		point[dim] = v
		l.scan(m, grids, point, lookup, dim+1)
	}
}

// flushCount returns and resets the number of points evaluated since the
// last flush.
func (l *localMax) flushCount() uint64 {
	n := l.pending
	l.pending = 0
	return n
}

// pointLookup adapts the traversal's current point to the factor-value
// lookup used by model prediction.
func pointLookup(grids []Grid, point []float64) func(string) float64 {
	index := make(map[string]int, len(grids))
	for i, g := range grids {
		index[g.Factor] = i
	}
	return func(factor string) float64 {
		return point[index[factor]]
	}
}
