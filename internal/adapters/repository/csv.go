package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/okian/festa/internal/domain/model"
)

// ctxCheckEvery bounds how many rows are decoded between context checks.
const ctxCheckEvery = 1024

// CSVSource reads the catalog from a CSV file with a header row.
type CSVSource struct {
	path  string
	comma rune
}

// NewCSVSource creates a CSV-backed Source.
func NewCSVSource(path string, o options) *CSVSource {
	return &CSVSource{path: path, comma: o.comma}
}

// Describe implements Source.
func (s *CSVSource) Describe() string { return "csv:" + s.path }

// Festivals implements Source.
func (s *CSVSource) Festivals(ctx context.Context) ([]model.Festival, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog csv: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(ctx, f, s.comma)
}

// ReadCSV decodes festivals from r. The first record is the header.
func ReadCSV(ctx context.Context, r io.Reader, comma rune) ([]model.Festival, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty csv", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := newColumnMap(header)
	if err != nil {
		return nil, err
	}

	var out []model.Festival
	values := make([]*string, len(header))
	for row := 1; ; row++ {
		if row%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		for i := range values {
			values[i] = &rec[i]
		}
		festival, err := cols.decode(row, values)
		if err != nil {
			return nil, err
		}
		out = append(out, festival)
	}
	return out, nil
}
