package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/rsmgo/term"
)

// SelectedTerms is the interchange record for a previously selected model
// structure, keyed by dataset name and encoded with canonical term labels.
type SelectedTerms struct {
	Dataset string   `json:"dataset"`
	Labels  []string `json:"labels"`
}

// Terms reconstructs the term pool from the canonical labels.
func (s *SelectedTerms) Terms() (term.Pool, error) {
	pool, err := term.DecodeAll(s.Labels)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", s.Dataset, err)
	}
	return pool, nil
}

// SelectionRecord summarizes the winning subset of one dataset's search.
type SelectionRecord struct {
	Dataset   string   `json:"dataset"`
	Criterion string   `json:"criterion"`
	Terms     []string `json:"terms"`
	Score     float64  `json:"score"`
	R2        float64  `json:"r2"`
	AdjR2     float64  `json:"adj_r2"`
	MaxPValue float64  `json:"max_p_value"`
}

// CVRecord is one cross-validation fold's outcome.
type CVRecord struct {
	Fold      int     `json:"fold"`
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
	AdjR2     float64 `json:"adj_r2"`
	Failed    bool    `json:"failed,omitempty"`
}

// CVSummaryRecord aggregates one dataset's cross-validation run.
type CVSummaryRecord struct {
	Dataset    string  `json:"dataset"`
	Folds      int     `json:"folds"`
	Successful int     `json:"successful"`
	MeanAdjR2  float64 `json:"mean_adj_r2"`
	Q2         float64 `json:"q2"`
}

// OptimizationRecord is the predicted maximum of one dataset's fitted
// surface and the factor setting achieving it.
type OptimizationRecord struct {
	Dataset     string    `json:"dataset"`
	MaxResponse float64   `json:"max_response"`
	Factors     []string  `json:"factors"`
	Values      []float64 `json:"values"`
}

// WriteSelectionRecords encodes selection records as CSV with a header row.
// Term labels are joined with ", " in a single cell, matching the canonical
// structure encoding consumed by SelectedTerms.
func WriteSelectionRecords(w io.Writer, records []SelectionRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"dataset", "criterion", "terms", "score", "r2", "adj_r2", "max_p_value"}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.Dataset,
			rec.Criterion,
			strings.Join(rec.Terms, ", "),
			formatFloat(rec.Score),
			formatFloat(rec.R2),
			formatFloat(rec.AdjR2),
			formatFloat(rec.MaxPValue),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ParseSelectedTerms decodes a "terms" cell written by WriteSelectionRecords
// back into a SelectedTerms record.
func ParseSelectedTerms(dataset, cell string) *SelectedTerms {
	var labels []string
	for _, label := range strings.Split(cell, ",") {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	return &SelectedTerms{Dataset: dataset, Labels: labels}
}

// WriteCVRecords encodes per-fold rows followed by one summary row.
func WriteCVRecords(w io.Writer, folds []CVRecord, summary CVSummaryRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"fold", "predicted", "actual", "adj_r2", "failed"}); err != nil {
		return err
	}
	for _, rec := range folds {
		row := []string{
			strconv.Itoa(rec.Fold),
			formatFloat(rec.Predicted),
			formatFloat(rec.Actual),
			formatFloat(rec.AdjR2),
			strconv.FormatBool(rec.Failed),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	summaryRow := []string{
		"summary",
		formatFloat(summary.MeanAdjR2),
		formatFloat(summary.Q2),
		strconv.Itoa(summary.Successful),
		strconv.Itoa(summary.Folds),
	}
	if err := writer.Write(summaryRow); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

// WriteOptimizationRecords encodes one row per dataset: the predicted
// maximum followed by factor=value pairs.
func WriteOptimizationRecords(w io.Writer, records []OptimizationRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"dataset", "max_response", "settings"}); err != nil {
		return err
	}
	for _, rec := range records {
		pairs := make([]string, len(rec.Factors))
		for i, f := range rec.Factors {
			pairs[i] = f + "=" + formatFloat(rec.Values[i])
		}
		row := []string{rec.Dataset, formatFloat(rec.MaxResponse), strings.Join(pairs, " ")}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
