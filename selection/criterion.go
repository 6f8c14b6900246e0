// Package selection ranks candidate term subsets of a response-surface model
// and exhaustively searches the subset space for the best-scoring fit.
package selection

import (
	"fmt"
	"math"

	"github.com/hupe1980/rsmgo/design"
	"github.com/hupe1980/rsmgo/regress"
)

// Scorer scores fitted models for one training set.
// Implementations must be safe for concurrent use.
type Scorer interface {
	// Score maps a fitted model to its criterion value.
	Score(m *regress.FittedModel) float64
	// Better reports whether candidate strictly beats incumbent.
	Better(candidate, incumbent float64) bool
}

// Criterion is a pluggable subset-selection strategy. Prepare binds the
// criterion to a concrete training set and returns the Scorer used during
// enumeration; the Criterion itself is stateless and reusable across folds.
type Criterion interface {
	// Name returns a stable identifier for result records.
	Name() string
	// ExcludesFullPool reports whether the full-term subset is excluded
	// from the search space.
	ExcludesFullPool() bool
	// Prepare computes any per-dataset reference quantities (such as the
	// full-model error variance) and returns the Scorer.
	Prepare(dm *design.Matrix, y []float64) (Scorer, error)
}

// AdjustedR2 selects the subset with the largest adjusted R².
// Ties keep the first-encountered subset in enumeration order.
type AdjustedR2 struct{}

// NewAdjustedR2 returns the adjusted-R²-maximizing criterion.
func NewAdjustedR2() AdjustedR2 { return AdjustedR2{} }

// Name implements Criterion.
func (AdjustedR2) Name() string { return "adjusted-r2" }

// ExcludesFullPool implements Criterion. The full pool competes like any
// other subset.
func (AdjustedR2) ExcludesFullPool() bool { return false }

// Prepare implements Criterion.
func (AdjustedR2) Prepare(*design.Matrix, []float64) (Scorer, error) {
	return adjustedR2Scorer{}, nil
}

type adjustedR2Scorer struct{}

func (adjustedR2Scorer) Score(m *regress.FittedModel) float64 { return m.AdjR2 }

func (adjustedR2Scorer) Better(candidate, incumbent float64) bool { return candidate > incumbent }

// MallowsCp selects the subset whose Mallows' Cp statistic is closest to its
// own parameter count, minimizing |Cp - p|. The reference error variance is
// the residual mean square of the full-pool fit, so the full pool itself is
// excluded from the search space.
type MallowsCp struct{}

// NewMallowsCp returns the Mallows'-Cp-distance-minimizing criterion.
func NewMallowsCp() MallowsCp { return MallowsCp{} }

// Name implements Criterion.
func (MallowsCp) Name() string { return "mallows-cp" }

// ExcludesFullPool implements Criterion.
func (MallowsCp) ExcludesFullPool() bool { return true }

// cpResidualTol is the relative floor on the full-pool RSS. A numerically
// perfect fit leaves RSS at rounding-error scale rather than exactly zero,
// so the guard compares against the response's total sum of squares.
const cpResidualTol = 1e-12

// Prepare implements Criterion. It fits the full term pool once to obtain
// MSE_full; failure here is dataset-fatal since no subset can be scored
// without the reference variance.
func (MallowsCp) Prepare(dm *design.Matrix, y []float64) (Scorer, error) {
	full, err := regress.FitFull(dm, y)
	if err != nil {
		return nil, fmt.Errorf("selection: full-pool reference fit: %w", err)
	}

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var tss float64
	for _, v := range y {
		d := v - mean
		tss += d * d
	}

	mseFull := full.RSS / float64(full.DF)
	if tss <= 0 || full.RSS <= cpResidualTol*tss || math.IsNaN(mseFull) {
		return nil, fmt.Errorf("selection: full-pool fit has zero residual variance, Cp is undefined")
	}

	return &cpScorer{mseFull: mseFull, n: full.N}, nil
}

type cpScorer struct {
	mseFull float64
	n       int
}

// Cp computes the Mallows' Cp statistic for a fitted subset:
// Cp = RSS_s/MSE_full - n + 2*p_s with p_s counting the intercept.
func (s *cpScorer) Cp(m *regress.FittedModel) float64 {
	ps := float64(m.NumParams())
	return m.RSS/s.mseFull - float64(s.n) + 2*ps
}

func (s *cpScorer) Score(m *regress.FittedModel) float64 {
	return math.Abs(s.Cp(m) - float64(m.NumParams()))
}

func (s *cpScorer) Better(candidate, incumbent float64) bool { return candidate < incumbent }
