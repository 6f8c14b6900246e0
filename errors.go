package rsmgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/rsmgo/design"
	"github.com/hupe1980/rsmgo/regress"
	"github.com/hupe1980/rsmgo/selection"
)

var (
	// ErrNoFeasibleModel is returned when no term subset can be fitted on
	// the dataset at all.
	ErrNoFeasibleModel = errors.New("no feasible model")

	// ErrEmptyDataset is returned when a dataset has no observations.
	ErrEmptyDataset = errors.New("dataset has no observations")
)

// ErrInsufficientData indicates a dataset too small for the requested model.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInsufficientData struct {
	Observations int
	Parameters   int
	cause        error
}

func (e *ErrInsufficientData) Error() string {
	return fmt.Sprintf("insufficient data: %d observations for %d parameters", e.Observations, e.Parameters)
}

func (e *ErrInsufficientData) Unwrap() error { return e.cause }

// ErrUnknownFactor indicates a factor name absent from the dataset.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrUnknownFactor struct {
	Factor string
	cause  error
}

func (e *ErrUnknownFactor) Error() string {
	return fmt.Sprintf("unknown factor: %q", e.Factor)
}

func (e *ErrUnknownFactor) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, selection.ErrNoFeasibleSubset) {
		return fmt.Errorf("%w: %w", ErrNoFeasibleModel, err)
	}

	var id *regress.ErrInsufficientData
	if errors.As(err, &id) {
		return &ErrInsufficientData{Observations: id.Observations, Parameters: id.Parameters, cause: err}
	}

	var uf *design.ErrUnknownFactor
	if errors.As(err, &uf) {
		return &ErrUnknownFactor{Factor: uf.Factor, cause: err}
	}

	return err
}
