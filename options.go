package rsmgo

import (
	"log/slog"

	"github.com/hupe1980/rsmgo/codec"
	"github.com/hupe1980/rsmgo/selection"
	"github.com/hupe1980/rsmgo/term"
)

type options struct {
	criterion        selection.Criterion
	pool             term.Pool
	gridSteps        int
	minStep          float64
	parallelism      int
	metricsCollector MetricsCollector
	logger           *Logger
	codec            codec.Codec
}

// Option configures Analyzer behavior.
type Option func(*options)

// WithCriterion configures the model-selection criterion.
//
// If nil is passed, adjusted R² is used.
func WithCriterion(c selection.Criterion) Option {
	return func(o *options) {
		if c == nil {
			c = selection.NewAdjustedR2()
		}
		o.criterion = c
	}
}

// WithTermPool overrides the candidate term pool. By default the full
// quadratic expansion of the dataset's factors is searched; pass e.g.
// term.FirstOrder(factors) to restrict selection to main effects.
func WithTermPool(pool term.Pool) Option {
	return func(o *options) {
		o.pool = pool
	}
}

// WithGridSteps configures the number of grid intervals per factor dimension
// during surface optimization. Finer grids locate the maximum more precisely
// at a cost that grows with the power of the factor count.
func WithGridSteps(steps int) Option {
	return func(o *options) {
		o.gridSteps = steps
	}
}

// WithMinStep configures the floor on the per-dimension grid step width.
func WithMinStep(minStep float64) Option {
	return func(o *options) {
		o.minStep = minStep
	}
}

// WithParallelism bounds the number of concurrent workers used by the subset
// search, cross-validation folds and grid traversal. Values < 1 default to
// GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithCodec configures the codec used for encoding batch result records.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &rsmgo.BasicMetricsCollector{}
//	a := rsmgo.New(rsmgo.WithMetricsCollector(metrics))
//	// ... run analyses ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SelectionCount, stats.SelectionAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := rsmgo.NewJSONLogger(slog.LevelInfo)
//	a := rsmgo.New(rsmgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		criterion:        selection.NewAdjustedR2(),
		gridSteps:        100,
		minStep:          0.01,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		codec:            codec.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
