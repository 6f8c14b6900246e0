package rsmgo

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/time/rate"

	"github.com/hupe1980/rsmgo/blobstore"
	"github.com/hupe1980/rsmgo/dataset"
	"github.com/hupe1980/rsmgo/internal/pool"
)

// BatchInput describes one batch run over a blobstore.
type BatchInput struct {
	// InputPrefix selects the dataset blobs to analyze. Blobs whose name
	// does not look like a dataset (.csv, .csv.gz, .csv.lz4) are ignored.
	InputPrefix string

	// OutputPrefix is where result records are written. Leave empty to
	// skip writing and only return the in-memory summary.
	OutputPrefix string

	// MinSamples skips datasets with fewer observations instead of
	// failing them. Zero disables the filter.
	MinSamples int

	// Dedupe merges duplicate factor combinations, averaging their
	// responses, before analysis.
	Dedupe bool

	// Workers bounds the number of datasets analyzed concurrently.
	// Values < 1 default to GOMAXPROCS.
	Workers int

	// ProgressInterval is the minimum time between progress log lines.
	// Zero defaults to 10 seconds.
	ProgressInterval time.Duration
}

// BatchFailure records one dataset whose analysis failed.
type BatchFailure struct {
	Dataset string
	Err     error
}

func (f BatchFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Dataset, f.Err)
}

// BatchSummary aggregates one batch run.
type BatchSummary struct {
	// Total is the number of dataset blobs found under the input prefix.
	Total int
	// Succeeded counts fully analyzed datasets.
	Succeeded int
	// SkippedSmall counts datasets below the MinSamples floor.
	SkippedSmall int
	// Failures records each failed dataset with its error.
	Failures []BatchFailure
	// FailedSet holds the listing indices of failed datasets.
	FailedSet *roaring.Bitmap
	// Studies holds the per-dataset results, indexed like the listing.
	// Entries are nil for skipped or failed datasets.
	Studies []*StudyResult
}

// batchUnit is the per-dataset slot a worker fills in.
type batchUnit struct {
	name    string
	study   *StudyResult
	skipped bool
	err     error
}

// RunBatch analyzes every dataset under the input prefix and, when an output
// prefix is set, writes the combined result records back to the store:
// selection.csv and optimization.csv across all datasets, one <name>.cv.csv
// per dataset, and per-dataset study blobs encoded with the configured
// codec.
//
// Individual dataset failures do not abort the run; they are collected in
// the summary. RunBatch returns an error only for store access failures,
// context cancellation, or result-write failures.
func (a *Analyzer) RunBatch(ctx context.Context, store blobstore.Store, in BatchInput) (*BatchSummary, error) {
	names, err := store.List(ctx, in.InputPrefix)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	var datasets []string
	for _, name := range names {
		if isDatasetName(name) {
			datasets = append(datasets, name)
		}
	}

	units := make([]batchUnit, len(datasets))

	interval := in.ProgressInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	progress := rate.Sometimes{Interval: interval}

	wp := pool.New(in.Workers)
	defer wp.Close()

	var wg sync.WaitGroup
	var completed atomic.Int64

	for i, name := range datasets {
		i, name := i, name
		wg.Add(1)

		err := wp.Submit(ctx, func() {
			defer wg.Done()
			units[i] = a.runUnit(ctx, store, name, in)

			n := completed.Add(1)
			progress.Do(func() {
				a.opts.logger.InfoContext(ctx, "batch progress",
					"completed", n,
					"total", len(datasets),
				)
			})
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}

	wg.Wait()

	summary := &BatchSummary{
		Total:     len(datasets),
		FailedSet: roaring.New(),
		Studies:   make([]*StudyResult, len(datasets)),
	}
	for i, unit := range units {
		switch {
		case unit.err != nil:
			summary.Failures = append(summary.Failures, BatchFailure{Dataset: unit.name, Err: unit.err})
			summary.FailedSet.Add(uint32(i))
		case unit.skipped:
			summary.SkippedSmall++
		default:
			summary.Succeeded++
			summary.Studies[i] = unit.study
		}
	}

	a.opts.logger.LogBatch(ctx, summary.Total, len(summary.Failures))

	if in.OutputPrefix != "" {
		if err := a.writeBatchResults(ctx, store, in.OutputPrefix, units); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (a *Analyzer) runUnit(ctx context.Context, store blobstore.Store, name string, in BatchInput) batchUnit {
	unit := batchUnit{name: name}

	d, err := dataset.Load(ctx, store, name)
	a.opts.metricsCollector.RecordDataset(datasetRows(d), err)
	if err != nil {
		unit.err = err
		return unit
	}

	if in.Dedupe {
		d = d.Dedupe()
	}

	if in.MinSamples > 0 && d.NumRows() < in.MinSamples {
		a.opts.logger.DebugContext(ctx, "dataset below sample floor, skipped",
			"dataset", d.Name,
			"rows", d.NumRows(),
			"min_samples", in.MinSamples,
		)
		unit.skipped = true
		return unit
	}

	study, err := a.Run(ctx, d)
	if err != nil {
		unit.err = err
		return unit
	}

	unit.study = study
	return unit
}

func (a *Analyzer) writeBatchResults(ctx context.Context, store blobstore.Store, prefix string, units []batchUnit) error {
	var selRecords []dataset.SelectionRecord
	var optRecords []dataset.OptimizationRecord

	for _, unit := range units {
		study := unit.study
		if study == nil {
			continue
		}

		selRecords = append(selRecords, dataset.SelectionRecord{
			Dataset:   study.Dataset,
			Criterion: study.Selection.Criterion,
			Terms:     study.Selection.Terms.Labels(),
			Score:     study.Selection.Score,
			R2:        study.Selection.Model.R2,
			AdjR2:     study.Selection.Model.AdjR2,
			MaxPValue: study.Selection.Model.MaxPValue,
		})
		optRecords = append(optRecords, dataset.OptimizationRecord{
			Dataset:     study.Dataset,
			MaxResponse: study.Optimization.Predicted,
			Factors:     study.Optimization.Factors,
			Values:      study.Optimization.Values,
		})

		if err := a.writeCVResult(ctx, store, prefix, study); err != nil {
			return err
		}
		if err := a.writeStudyBlob(ctx, store, prefix, study); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := dataset.WriteSelectionRecords(&buf, selRecords); err != nil {
		return err
	}
	if err := store.Put(ctx, path.Join(prefix, "selection.csv"), buf.Bytes()); err != nil {
		return fmt.Errorf("write selection records: %w", err)
	}

	buf.Reset()
	if err := dataset.WriteOptimizationRecords(&buf, optRecords); err != nil {
		return err
	}
	if err := store.Put(ctx, path.Join(prefix, "optimization.csv"), buf.Bytes()); err != nil {
		return fmt.Errorf("write optimization records: %w", err)
	}

	return nil
}

func (a *Analyzer) writeCVResult(ctx context.Context, store blobstore.Store, prefix string, study *StudyResult) error {
	cv := study.CrossValidation

	folds := make([]dataset.CVRecord, len(cv.Folds))
	for i, fold := range cv.Folds {
		folds[i] = dataset.CVRecord{
			Fold:      fold.Index,
			Predicted: fold.Predicted,
			Actual:    fold.Actual,
			AdjR2:     fold.AdjR2,
			Failed:    fold.Err != nil,
		}
	}

	summary := dataset.CVSummaryRecord{
		Dataset:    study.Dataset,
		Folds:      cv.N,
		Successful: cv.Successful,
		MeanAdjR2:  cv.MeanAdjR2,
		Q2:         cv.Q2,
	}

	var buf bytes.Buffer
	if err := dataset.WriteCVRecords(&buf, folds, summary); err != nil {
		return err
	}

	name := path.Join(prefix, study.Dataset+".cv.csv")
	if err := store.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("write cv records for %s: %w", study.Dataset, err)
	}
	return nil
}

// studyRecord is the codec-encoded form of one dataset's study.
type studyRecord struct {
	Selection       dataset.SelectionRecord    `json:"selection"`
	CrossValidation dataset.CVSummaryRecord    `json:"cross_validation"`
	Optimization    dataset.OptimizationRecord `json:"optimization"`
}

func (a *Analyzer) writeStudyBlob(ctx context.Context, store blobstore.Store, prefix string, study *StudyResult) error {
	rec := studyRecord{
		Selection: dataset.SelectionRecord{
			Dataset:   study.Dataset,
			Criterion: study.Selection.Criterion,
			Terms:     study.Selection.Terms.Labels(),
			Score:     study.Selection.Score,
			R2:        study.Selection.Model.R2,
			AdjR2:     study.Selection.Model.AdjR2,
			MaxPValue: study.Selection.Model.MaxPValue,
		},
		CrossValidation: dataset.CVSummaryRecord{
			Dataset:    study.Dataset,
			Folds:      study.CrossValidation.N,
			Successful: study.CrossValidation.Successful,
			MeanAdjR2:  study.CrossValidation.MeanAdjR2,
			Q2:         study.CrossValidation.Q2,
		},
		Optimization: dataset.OptimizationRecord{
			Dataset:     study.Dataset,
			MaxResponse: study.Optimization.Predicted,
			Factors:     study.Optimization.Factors,
			Values:      study.Optimization.Values,
		},
	}

	data, err := a.opts.codec.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode study for %s: %w", study.Dataset, err)
	}

	name := path.Join(prefix, study.Dataset+".study."+a.opts.codec.Name())
	if err := store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("write study for %s: %w", study.Dataset, err)
	}
	return nil
}

func isDatasetName(name string) bool {
	return strings.HasSuffix(name, ".csv") ||
		strings.HasSuffix(name, ".csv.gz") ||
		strings.HasSuffix(name, ".csv.lz4")
}

func datasetRows(d *dataset.Dataset) int {
	if d == nil {
		return 0
	}
	return d.NumRows()
}
