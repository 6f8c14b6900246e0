// Package surface locates the predicted maximum of a fitted response-surface
// model by exhaustive evaluation over a discretized factor grid.
package surface

import (
	"fmt"

	"github.com/hupe1980/rsmgo/design"
	"github.com/hupe1980/rsmgo/regress"
)

// Grid is the discretization of one factor dimension over its observed range.
type Grid struct {
	// Factor is the dimension's factor name.
	Factor string
	// Values are the ordered grid points from min to max inclusive.
	Values []float64
}

// buildValues discretizes [lo, hi] into steps intervals with a minimum step
// floor. A zero-width range collapses to the single point lo.
func buildValues(lo, hi float64, steps int, minStep float64) []float64 {
	if lo == hi {
		return []float64{lo}
	}

	step := (hi - lo) / float64(steps)
	if step < minStep {
		step = minStep
	}

	var values []float64
	for v := lo; v <= hi+step/2; v += step {
		values = append(values, v)
	}
	return values
}

// buildGrids derives one grid per factor referenced by the fitted model,
// in first-appearance order of the model's terms, using the observed
// [min, max] of each factor.
func buildGrids(m *regress.FittedModel, fm *design.FactorMatrix, steps int, minStep float64) ([]Grid, error) {
	factors := m.Terms.Factors()
	if len(factors) == 0 {
		return nil, fmt.Errorf("surface: fitted model references no factors")
	}

	grids := make([]Grid, len(factors))
	for i, f := range factors {
		lo, hi, err := fm.Range(f)
		if err != nil {
			return nil, err
		}
		grids[i] = Grid{Factor: f, Values: buildValues(lo, hi, steps, minStep)}
	}
	return grids, nil
}

// totalPoints returns the Cartesian product size of the grids.
func totalPoints(grids []Grid) uint64 {
	total := uint64(1)
	for _, g := range grids {
		total *= uint64(len(g.Values))
	}
	return total
}
