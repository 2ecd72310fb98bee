// Package similarity resolves content ids to matrix rows and exposes the
// precomputed pairwise scores.
package similarity

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/festa/internal/adapters/artifact"
	"github.com/okian/festa/internal/domain/model"
	"github.com/okian/festa/internal/domain/types"
)

// Index is a square score matrix plus a one-to-one id/row mapping.
// It is immutable after construction.
type Index struct {
	matrix *artifact.Matrix
	ids    map[string]int
	byRow  []string // row -> content id; "" for rows without an id
}

// Load reads the matrix and mapping artifacts concurrently and validates
// them against each other.
func Load(ctx context.Context, matrixPath, mappingPath string) (*Index, error) {
	const op = "similarity.load"

	var (
		matrix  *artifact.Matrix
		mapping map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := artifact.ReadMatrix(gctx, matrixPath)
		if err != nil {
			return fmt.Errorf("matrix %s: %w", matrixPath, err)
		}
		matrix = m
		return nil
	})
	g.Go(func() error {
		m, err := artifact.ReadMapping(gctx, mappingPath)
		if err != nil {
			return fmt.Errorf("mapping %s: %w", mappingPath, err)
		}
		mapping = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, types.Wrap(op, err)
	}

	idx, err := New(matrix, mapping)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	return idx, nil
}

// New validates and wraps an already decoded matrix and mapping.
func New(matrix *artifact.Matrix, mapping map[string]int) (*Index, error) {
	if matrix == nil || matrix.Dim <= 0 || len(matrix.Data) != matrix.Dim*matrix.Dim {
		return nil, fmt.Errorf("%w: matrix is not square", artifact.ErrDimension)
	}
	if len(mapping) > matrix.Dim {
		return nil, fmt.Errorf("%w: mapping has %d ids but matrix has %d rows",
			artifact.ErrDimension, len(mapping), matrix.Dim)
	}

	byRow := make([]string, matrix.Dim)
	ids := make(map[string]int, len(mapping))
	for id, row := range mapping {
		if id == "" {
			return nil, fmt.Errorf("%w: empty content id maps to row %d", artifact.ErrFormat, row)
		}
		if row < 0 || row >= matrix.Dim {
			return nil, fmt.Errorf("%w: id %q maps to row %d outside [0, %d)",
				artifact.ErrDimension, id, row, matrix.Dim)
		}
		if prev := byRow[row]; prev != "" {
			return nil, fmt.Errorf("%w: ids %q and %q both map to row %d",
				artifact.ErrDimension, prev, id, row)
		}
		byRow[row] = id
		ids[id] = row
	}
	return &Index{matrix: matrix, ids: ids, byRow: byRow}, nil
}

// Dim returns the matrix side.
func (x *Index) Dim() int { return x.matrix.Dim }

// Len returns the number of mapped ids.
func (x *Index) Len() int { return len(x.ids) }

// ContentID returns the id mapped to row, if any.
func (x *Index) ContentID(row int) (string, bool) {
	if row < 0 || row >= len(x.byRow) || x.byRow[row] == "" {
		return "", false
	}
	return x.byRow[row], true
}

// IndexOf resolves contentID to its row.
func (x *Index) IndexOf(contentID string) (int, error) {
	row, ok := x.ids[contentID]
	if !ok {
		return 0, types.WrapKind("similarity.index_of", types.ErrNotFound,
			fmt.Errorf("content id %q", contentID))
	}
	return row, nil
}

// SimilarityRow returns row index paired with every column, in natural
// column order. Ranking is the caller's job.
func (x *Index) SimilarityRow(index int) ([]model.ScoredRow, error) {
	if index < 0 || index >= x.matrix.Dim {
		return nil, types.WrapKind("similarity.row", types.ErrInternal,
			fmt.Errorf("row %d outside [0, %d)", index, x.matrix.Dim))
	}
	scores := x.matrix.Row(index)
	out := make([]model.ScoredRow, len(scores))
	for j, s := range scores {
		out[j] = model.ScoredRow{Index: j, Score: s}
	}
	return out, nil
}
