// Package dataset defines the plain record structures exchanged at the batch
// boundary: experimental datasets, selected-term records, and the result
// records produced by selection, cross-validation and optimization.
//
// Datasets travel as CSV, optionally gzip- or lz4-compressed, through a
// blobstore. The last column is always the response; all values are numeric
// and no missing values are permitted.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/rsmgo/blobstore"
	"github.com/hupe1980/rsmgo/design"
)

// Dataset is one experimental dataset: named factor columns plus a response
// column, aligned by row index.
type Dataset struct {
	// Name identifies the dataset in result records.
	Name string
	// Factors are the factor column names in order.
	Factors []string
	// Response is the response column name.
	Response string
	// X holds the factor observations, row-major.
	X [][]float64
	// Y holds the response values, aligned with X.
	Y []float64
}

// NumRows returns the number of observations.
func (d *Dataset) NumRows() int { return len(d.Y) }

// FactorMatrix converts the factor columns into an immutable design input.
func (d *Dataset) FactorMatrix() (*design.FactorMatrix, error) {
	return design.NewFactorMatrix(d.Factors, d.X)
}

// ParseCSV decodes a dataset from CSV. The first row is the header; the last
// column is the response. Every cell must parse as a finite number.
func ParseCSV(name string, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("dataset %s: need a header and at least one observation", name)
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("dataset %s: need at least one factor column and a response column", name)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	k := len(header) - 1
	d := &Dataset{
		Name:     name,
		Factors:  header[:k],
		Response: header[k],
		X:        make([][]float64, 0, len(rows)-1),
		Y:        make([]float64, 0, len(rows)-1),
	}

	for i, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("dataset %s: row %d has %d cells, want %d", name, i+1, len(row), len(header))
		}
		values := make([]float64, k)
		for j, cell := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("dataset %s: row %d, column %q: %w", name, i+1, header[j], err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("dataset %s: row %d, column %q: non-finite value", name, i+1, header[j])
			}
			if j < k {
				values[j] = v
			} else {
				d.Y = append(d.Y, v)
			}
		}
		d.X = append(d.X, values)
	}

	return d, nil
}

// WriteCSV encodes the dataset as CSV with a header row.
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(append(append([]string(nil), d.Factors...), d.Response)); err != nil {
		return err
	}

	record := make([]string, len(d.Factors)+1)
	for i, row := range d.X {
		for j, v := range row {
			record[j] = formatFloat(v)
		}
		record[len(record)-1] = formatFloat(d.Y[i])
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// Load reads and decodes a dataset blob. Compression is chosen by extension:
// ".gz" and ".lz4" wrap the CSV transport; anything else is read as plain
// CSV. The dataset name is the blob name with transport extensions removed.
func Load(ctx context.Context, store blobstore.Store, name string) (*Dataset, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	var r io.Reader = bytes.NewReader(data)
	base := name

	switch {
	case strings.HasSuffix(name, ".gz"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: gzip: %w", name, err)
		}
		defer zr.Close()
		r = zr
		base = strings.TrimSuffix(name, ".gz")
	case strings.HasSuffix(name, ".lz4"):
		r = lz4.NewReader(r)
		base = strings.TrimSuffix(name, ".lz4")
	}

	return ParseCSV(strings.TrimSuffix(base, ".csv"), r)
}

// Save encodes the dataset and writes it to the store under the given blob
// name, applying the transport compression implied by the extension.
func (d *Dataset) Save(ctx context.Context, store blobstore.Store, name string) error {
	var buf bytes.Buffer

	switch {
	case strings.HasSuffix(name, ".gz"):
		zw := gzip.NewWriter(&buf)
		if err := d.WriteCSV(zw); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	case strings.HasSuffix(name, ".lz4"):
		zw := lz4.NewWriter(&buf)
		if err := d.WriteCSV(zw); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	default:
		if err := d.WriteCSV(&buf); err != nil {
			return err
		}
	}

	return store.Put(ctx, name, buf.Bytes())
}

// dedupePrecision is the rounding applied to factor values when detecting
// duplicate observations.
const dedupePrecision = 6

// Dedupe averages the responses of observations whose factor combinations
// are identical after rounding to six decimals, keeping first-occurrence
// row order. It returns a new dataset; the receiver is unchanged.
func (d *Dataset) Dedupe() *Dataset {
	type group struct {
		row   []float64
		sum   float64
		count int
	}

	order := make([]string, 0, len(d.X))
	groups := make(map[string]*group, len(d.X))

	for i, row := range d.X {
		key := rowKey(row)
		g, ok := groups[key]
		if !ok {
			g = &group{row: row}
			groups[key] = g
			order = append(order, key)
		}
		g.sum += d.Y[i]
		g.count++
	}

	out := &Dataset{
		Name:     d.Name,
		Factors:  append([]string(nil), d.Factors...),
		Response: d.Response,
		X:        make([][]float64, 0, len(order)),
		Y:        make([]float64, 0, len(order)),
	}
	for _, key := range order {
		g := groups[key]
		out.X = append(out.X, append([]float64(nil), g.row...))
		out.Y = append(out.Y, g.sum/float64(g.count))
	}
	return out
}

func rowKey(row []float64) string {
	var sb strings.Builder
	for _, v := range row {
		sb.WriteString(strconv.FormatFloat(round(v, dedupePrecision), 'g', -1, 64))
		sb.WriteByte('|')
	}
	return sb.String()
}

func round(v float64, digits int) float64 {
	scale := math.Pow10(digits)
	return math.Round(v*scale) / scale
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
