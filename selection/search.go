package selection

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/rsmgo/design"
	"github.com/hupe1980/rsmgo/regress"
	"github.com/hupe1980/rsmgo/term"
)

// ErrNoFeasibleSubset is returned when every enumerated subset failed to fit.
var ErrNoFeasibleSubset = errors.New("selection: no feasible subset")

// maxPoolSize bounds the enumerable pool. Subsets are encoded as uint64
// bitmasks; the practical domain (k <= 6 factors, p <= 27) is far below it.
const maxPoolSize = 62

// Result is the outcome of one subset search over a single training set.
type Result struct {
	// Terms is the best-scoring subset in canonical pool order.
	Terms term.Pool
	// Indices are the positions of Terms within the search pool.
	Indices []int
	// Model is the fit of the winning subset.
	Model *regress.FittedModel
	// Score is the winning criterion value.
	Score float64
	// Criterion is the name of the criterion that produced the score.
	Criterion string
	// Fitted counts subsets that were fitted and scored.
	Fitted int
	// Skipped counts subsets excluded for insufficient data or degeneracy.
	Skipped int
}

// Options configures a subset search.
type Options struct {
	// Parallelism is the number of concurrent enumeration workers.
	// Values < 1 default to GOMAXPROCS.
	Parallelism int

	// ExcludeFullPool removes the all-terms subset from the search space.
	// It is forced on when the criterion requires it.
	ExcludeFullPool bool
}

// DefaultOptions are the default subset-search options.
var DefaultOptions = Options{
	Parallelism:     0,
	ExcludeFullPool: false,
}

// candidate is one worker-local best subset.
type candidate struct {
	mask    uint64
	model   *regress.FittedModel
	score   float64
	fitted  int
	skipped int
	found   bool
}

// Search enumerates every non-empty subset of the design matrix's term pool,
// fits each with ordinary least squares, scores it with the criterion, and
// returns the best. Subsets that fail with insufficient data or a degenerate
// design are skipped and counted.
//
// Enumeration order is ascending bitmask; ties on the criterion score keep
// the earliest subset in that order, so results are deterministic regardless
// of parallelism.
func Search(ctx context.Context, dm *design.Matrix, y []float64, crit Criterion, optFns ...func(o *Options)) (*Result, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	p := len(dm.Terms())
	if p > maxPoolSize {
		return nil, fmt.Errorf("selection: term pool of %d exceeds enumerable maximum %d", p, maxPoolSize)
	}

	scorer, err := crit.Prepare(dm, y)
	if err != nil {
		return nil, err
	}

	exclude := opts.ExcludeFullPool || crit.ExcludesFullPool()
	fullMask := uint64(1)<<p - 1
	lastMask := fullMask
	if exclude {
		lastMask = fullMask - 1
	}
	if lastMask == 0 {
		return nil, ErrNoFeasibleSubset
	}

	workers := opts.Parallelism
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if uint64(workers) > lastMask {
		workers = int(lastMask)
	}

	locals := make([]candidate, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			local := &locals[w]
			for mask := uint64(w) + 1; mask <= lastMask; mask += uint64(workers) {
				if mask%4096 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}

				model, err := regress.Fit(dm, maskIndices(mask), y)
				if err != nil {
					var insufficient *regress.ErrInsufficientData
					var degenerate *regress.ErrDegenerateModel
					if errors.As(err, &insufficient) || errors.As(err, &degenerate) {
						local.skipped++
						continue
					}
					return err
				}

				local.fitted++
				score := scorer.Score(model)
				if !local.found || scorer.Better(score, local.score) {
					local.mask = mask
					local.model = model
					local.score = score
					local.found = true
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best, fitted, skipped := mergeCandidates(locals, scorer)
	if best == nil {
		return nil, ErrNoFeasibleSubset
	}

	indices := maskIndices(best.mask)

	return &Result{
		Terms:     dm.Terms().Select(indices),
		Indices:   indices,
		Model:     best.model,
		Score:     best.score,
		Criterion: crit.Name(),
		Fitted:    fitted,
		Skipped:   skipped,
	}, nil
}

// mergeCandidates reduces worker-local bests into the global winner,
// breaking score ties toward the smaller mask to reproduce sequential
// first-encounter semantics.
func mergeCandidates(locals []candidate, scorer Scorer) (best *candidate, fitted, skipped int) {
	for i := range locals {
		local := &locals[i]
		fitted += local.fitted
		skipped += local.skipped
		if !local.found {
			continue
		}
		switch {
		case best == nil,
			scorer.Better(local.score, best.score),
			local.score == best.score && local.mask < best.mask:
			best = local
		}
	}
	return best, fitted, skipped
}

// maskIndices expands a subset bitmask into ascending term indices.
func maskIndices(mask uint64) []int {
	indices := make([]int, 0, bits.OnesCount64(mask))
	for mask != 0 {
		i := bits.TrailingZeros64(mask)
		indices = append(indices, i)
		mask &^= 1 << i
	}
	return indices
}
