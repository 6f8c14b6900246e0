package rsmgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordSelection is called after each subset search.
	// fitted is the number of subsets scored, duration is the total time
	// taken, err is nil if successful.
	RecordSelection(fitted int, duration time.Duration, err error)

	// RecordCrossValidation is called after each cross-validation run.
	// folds is the number of folds attempted, failed is the number whose
	// subset search produced no model.
	RecordCrossValidation(folds, failed int, duration time.Duration)

	// RecordOptimization is called after each surface optimization.
	// evaluated is the number of grid points visited.
	RecordOptimization(evaluated uint64, duration time.Duration, err error)

	// RecordDataset is called after each dataset load.
	RecordDataset(rows int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSelection(int, time.Duration, error)       {}
func (NoopMetricsCollector) RecordCrossValidation(int, int, time.Duration)   {}
func (NoopMetricsCollector) RecordOptimization(uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordDataset(int, error)                        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SelectionCount      atomic.Int64
	SelectionErrors     atomic.Int64
	SelectionFitted     atomic.Int64
	SelectionTotalNanos atomic.Int64
	CVCount             atomic.Int64
	CVFolds             atomic.Int64
	CVFailedFolds       atomic.Int64
	OptimizationCount   atomic.Int64
	OptimizationErrors  atomic.Int64
	OptimizationPoints  atomic.Int64
	DatasetCount        atomic.Int64
	DatasetErrors       atomic.Int64
	DatasetRows         atomic.Int64
}

// RecordSelection implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSelection(fitted int, duration time.Duration, err error) {
	b.SelectionCount.Add(1)
	b.SelectionFitted.Add(int64(fitted))
	b.SelectionTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SelectionErrors.Add(1)
	}
}

// RecordCrossValidation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCrossValidation(folds, failed int, duration time.Duration) {
	b.CVCount.Add(1)
	b.CVFolds.Add(int64(folds))
	b.CVFailedFolds.Add(int64(failed))
}

// RecordOptimization implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOptimization(evaluated uint64, duration time.Duration, err error) {
	b.OptimizationCount.Add(1)
	b.OptimizationPoints.Add(int64(evaluated))
	if err != nil {
		b.OptimizationErrors.Add(1)
	}
}

// RecordDataset implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDataset(rows int, err error) {
	b.DatasetCount.Add(1)
	b.DatasetRows.Add(int64(rows))
	if err != nil {
		b.DatasetErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SelectionCount:     b.SelectionCount.Load(),
		SelectionErrors:    b.SelectionErrors.Load(),
		SelectionFitted:    b.SelectionFitted.Load(),
		SelectionAvgNanos:  b.getAvgSelectionNanos(),
		CVCount:            b.CVCount.Load(),
		CVFolds:            b.CVFolds.Load(),
		CVFailedFolds:      b.CVFailedFolds.Load(),
		OptimizationCount:  b.OptimizationCount.Load(),
		OptimizationErrors: b.OptimizationErrors.Load(),
		OptimizationPoints: b.OptimizationPoints.Load(),
		DatasetCount:       b.DatasetCount.Load(),
		DatasetErrors:      b.DatasetErrors.Load(),
		DatasetRows:        b.DatasetRows.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSelectionNanos() int64 {
	count := b.SelectionCount.Load()
	if count == 0 {
		return 0
	}
	return b.SelectionTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SelectionCount     int64
	SelectionErrors    int64
	SelectionFitted    int64
	SelectionAvgNanos  int64
	CVCount            int64
	CVFolds            int64
	CVFailedFolds      int64
	OptimizationCount  int64
	OptimizationErrors int64
	OptimizationPoints int64
	DatasetCount       int64
	DatasetErrors      int64
	DatasetRows        int64
}
