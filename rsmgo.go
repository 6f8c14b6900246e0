package rsmgo

import (
	"context"
	"time"

	"github.com/hupe1980/rsmgo/crossval"
	"github.com/hupe1980/rsmgo/dataset"
	"github.com/hupe1980/rsmgo/design"
	"github.com/hupe1980/rsmgo/regress"
	"github.com/hupe1980/rsmgo/selection"
	"github.com/hupe1980/rsmgo/surface"
	"github.com/hupe1980/rsmgo/term"
)

// Analyzer runs response-surface analyses over experimental datasets.
// It is safe for concurrent use; all per-run state lives on the stack.
type Analyzer struct {
	opts options
}

// New creates an Analyzer. By default models are selected with the adjusted
// R² criterion over the full quadratic term pool, and surfaces are optimized
// over a 100-step grid.
func New(optFns ...Option) *Analyzer {
	return &Analyzer{opts: applyOptions(optFns)}
}

// StudyResult is the outcome of a full analysis of one dataset: the selected
// model, its cross-validation and the optimized surface.
type StudyResult struct {
	// Dataset is the analyzed dataset's name.
	Dataset string
	// Selection holds the winning term subset and its fit.
	Selection *selection.Result
	// CrossValidation holds the leave-one-out folds and aggregates.
	CrossValidation *crossval.Summary
	// Optimization holds the grid point maximizing the predicted response.
	Optimization *surface.Result
}

// pool returns the configured term pool, or the full quadratic expansion of
// the dataset's factors.
func (a *Analyzer) pool(d *dataset.Dataset) term.Pool {
	if a.opts.pool != nil {
		return a.opts.pool
	}
	return term.FullQuadratic(d.Factors)
}

func (a *Analyzer) build(d *dataset.Dataset) (*design.Matrix, *design.FactorMatrix, error) {
	if d.NumRows() == 0 {
		return nil, nil, ErrEmptyDataset
	}

	fm, err := d.FactorMatrix()
	if err != nil {
		return nil, nil, translateError(err)
	}

	dm, err := design.Build(fm, a.pool(d))
	if err != nil {
		return nil, nil, translateError(err)
	}

	return dm, fm, nil
}

// SelectModel searches every subset of the candidate term pool for the one
// scoring best under the configured criterion.
func (a *Analyzer) SelectModel(ctx context.Context, d *dataset.Dataset) (*selection.Result, error) {
	start := time.Now()

	dm, _, err := a.build(d)
	if err != nil {
		a.opts.metricsCollector.RecordSelection(0, time.Since(start), err)
		return nil, err
	}

	result, err := selection.Search(ctx, dm, d.Y, a.opts.criterion, func(o *selection.Options) {
		o.Parallelism = a.opts.parallelism
	})

	err = translateError(err)
	fitted := 0
	if result != nil {
		fitted = result.Fitted
	}
	a.opts.metricsCollector.RecordSelection(fitted, time.Since(start), err)
	a.opts.logger.LogSelection(ctx, d.Name, fitted, resultSkipped(result), err)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// CrossValidate runs leave-one-out cross-validation of the subset search
// over the dataset, producing one fold per observation.
func (a *Analyzer) CrossValidate(ctx context.Context, d *dataset.Dataset) (*crossval.Summary, error) {
	start := time.Now()

	if d.NumRows() == 0 {
		return nil, ErrEmptyDataset
	}

	fm, err := d.FactorMatrix()
	if err != nil {
		return nil, translateError(err)
	}

	summary, err := crossval.LOOCV(ctx, fm, d.Y, a.opts.criterion, func(o *crossval.Options) {
		o.Parallelism = a.opts.parallelism
		o.Pool = a.opts.pool
	})
	if err != nil {
		a.opts.logger.LogCrossValidation(ctx, d.Name, 0, 0, err)
		return nil, translateError(err)
	}

	a.opts.metricsCollector.RecordCrossValidation(summary.N, summary.N-summary.Successful, time.Since(start))
	a.opts.logger.LogCrossValidation(ctx, d.Name, summary.N, summary.Successful, nil)

	return summary, nil
}

// Optimize locates the factor settings maximizing the fitted model's
// predicted response over the observed factor ranges.
func (a *Analyzer) Optimize(ctx context.Context, d *dataset.Dataset, m *regress.FittedModel) (*surface.Result, error) {
	start := time.Now()

	fm, err := d.FactorMatrix()
	if err != nil {
		return nil, translateError(err)
	}

	result, err := surface.Optimize(ctx, m, fm, func(o *surface.Options) {
		o.Steps = a.opts.gridSteps
		o.MinStep = a.opts.minStep
		o.Parallelism = a.opts.parallelism
		o.Logger = a.opts.logger.Logger
	})

	err = translateError(err)
	var evaluated uint64
	if result != nil {
		evaluated = result.Evaluated
	}
	a.opts.metricsCollector.RecordOptimization(evaluated, time.Since(start), err)
	a.opts.logger.LogOptimization(ctx, d.Name, evaluated, err)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// FitFull fits the entire candidate term pool without selection. It fails
// with ErrInsufficientData when the dataset cannot support the full model.
func (a *Analyzer) FitFull(d *dataset.Dataset) (*regress.FittedModel, error) {
	dm, _, err := a.build(d)
	if err != nil {
		return nil, err
	}

	m, err := regress.FitFull(dm, d.Y)
	if err != nil {
		return nil, translateError(err)
	}
	return m, nil
}

// RefitSelected re-fits a previously selected model structure on the
// dataset. The selected terms are decoded from their canonical labels, so a
// structure chosen on one dataset can be refitted on later observations of
// the same factors.
func (a *Analyzer) RefitSelected(d *dataset.Dataset, sel *dataset.SelectedTerms) (*regress.FittedModel, error) {
	pool, err := sel.Terms()
	if err != nil {
		return nil, err
	}

	if d.NumRows() == 0 {
		return nil, ErrEmptyDataset
	}

	fm, err := d.FactorMatrix()
	if err != nil {
		return nil, translateError(err)
	}

	dm, err := design.Build(fm, pool)
	if err != nil {
		return nil, translateError(err)
	}

	m, err := regress.FitFull(dm, d.Y)
	if err != nil {
		return nil, translateError(err)
	}
	return m, nil
}

// Run performs the full pipeline on one dataset: model selection, leave-one-
// out cross-validation and surface optimization of the selected model.
func (a *Analyzer) Run(ctx context.Context, d *dataset.Dataset) (*StudyResult, error) {
	sel, err := a.SelectModel(ctx, d)
	if err != nil {
		return nil, err
	}

	cv, err := a.CrossValidate(ctx, d)
	if err != nil {
		return nil, err
	}

	opt, err := a.Optimize(ctx, d, sel.Model)
	if err != nil {
		return nil, err
	}

	return &StudyResult{
		Dataset:         d.Name,
		Selection:       sel,
		CrossValidation: cv,
		Optimization:    opt,
	}, nil
}

func resultSkipped(r *selection.Result) int {
	if r == nil {
		return 0
	}
	return r.Skipped
}
