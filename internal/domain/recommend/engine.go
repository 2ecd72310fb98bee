// Package recommend produces the two-track festival recommendations.
//
// Track 1 holds the festivals most similar to a base festival. Track 2
// walks the same ranking and keeps only festivals in unpopular
// districts that track 1 did not already pick, so the two tracks are
// disjoint by construction.
package recommend

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/okian/festa/internal/domain/catalog"
	"github.com/okian/festa/internal/domain/model"
	"github.com/okian/festa/internal/domain/similarity"
	"github.com/okian/festa/internal/domain/types"
	"github.com/okian/festa/pkg/logger"
	"github.com/okian/festa/pkg/metrics"
)

// Engine combines a catalog with the similarity index built for it.
type Engine struct {
	catalog *catalog.Catalog
	index   *similarity.Index
	logger  logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the logger used for data-quality warnings.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New checks that the index was built for this catalog: the matrix side
// equals the number of rows, and each mapped id names the catalog row at
// its index.
func New(c *catalog.Catalog, idx *similarity.Index, opts ...Option) (*Engine, error) {
	const op = "recommend.new"

	if c == nil || idx == nil {
		return nil, types.NewKind(op, types.ErrNotReady)
	}
	if idx.Dim() != c.Len() {
		return nil, types.Wrap(op, fmt.Errorf("%w: matrix has %d rows, catalog has %d",
			ErrInconsistent, idx.Dim(), c.Len()))
	}
	for row := 0; row < idx.Dim(); row++ {
		id, ok := idx.ContentID(row)
		if !ok {
			continue
		}
		festival, _ := c.Row(row)
		if festival.ContentID != id {
			return nil, types.Wrap(op, fmt.Errorf("%w: mapping puts %q at row %d which holds %q",
				ErrInconsistent, id, row, festival.ContentID))
		}
	}

	e := &Engine{catalog: c, index: idx, logger: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Catalog returns the catalog the engine reads from.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Index returns the similarity index the engine reads from.
func (e *Engine) Index() *similarity.Index { return e.index }

// Recommend returns up to topN festivals per track for contentID.
// A topN of zero or less yields two empty tracks.
func (e *Engine) Recommend(ctx context.Context, contentID string, topN int) (types.Recommendation, error) {
	const op = "recommend"

	if err := ctx.Err(); err != nil {
		return types.Recommendation{}, types.Wrap(op, err)
	}
	base, err := e.index.IndexOf(contentID)
	if err != nil {
		return types.Recommendation{}, types.Wrap(op, err)
	}
	pairs, err := e.index.SimilarityRow(base)
	if err != nil {
		return types.Recommendation{}, types.Wrap(op, err)
	}
	Rank(pairs)

	// The base row normally ranks first through self-similarity. It is
	// excluded by index either way; a different leader means bad data.
	if len(pairs) > 0 && pairs[0].Index != base {
		metrics.RecordBaseNotTopRanked()
		e.logger.Warn(ctx, "base festival is not its own most similar row",
			logger.String("contentID", contentID),
			logger.Int("baseRow", base),
			logger.Int("topRow", pairs[0].Index),
			logger.Float64("topScore", pairs[0].Score),
		)
	}

	similar, unpopular := e.tracks(pairs, base, topN)

	rec := types.Recommendation{}
	if rec.Base, err = e.row(base); err != nil {
		return types.Recommendation{}, types.Wrap(op, err)
	}
	if rec.Similar, err = e.catalog.RowsByIndices(similar); err != nil {
		return types.Recommendation{}, types.Wrap(op, err)
	}
	if rec.Unpopular, err = e.catalog.RowsByIndices(unpopular); err != nil {
		return types.Recommendation{}, types.Wrap(op, err)
	}
	return rec, nil
}

// tracks selects row indices for both tracks from a ranked row.
func (e *Engine) tracks(ranked []model.ScoredRow, base, topN int) (similar, unpopular []int) {
	if topN <= 0 {
		return []int{}, []int{}
	}
	similar = make([]int, 0, topN)
	taken := make(map[int]struct{}, topN)
	for _, p := range ranked {
		if len(similar) == topN {
			break
		}
		if p.Index == base {
			continue
		}
		similar = append(similar, p.Index)
		taken[p.Index] = struct{}{}
	}

	unpopular = make([]int, 0, topN)
	for _, p := range ranked {
		if len(unpopular) == topN {
			break
		}
		if p.Index == base || !e.catalog.IsUnpopularRow(p.Index) {
			continue
		}
		if _, dup := taken[p.Index]; dup {
			continue
		}
		unpopular = append(unpopular, p.Index)
	}
	return similar, unpopular
}

func (e *Engine) row(i int) (model.Festival, error) {
	rows, err := e.catalog.RowsByIndices([]int{i})
	if err != nil {
		return model.Festival{}, err
	}
	return rows[0], nil
}

// Rank sorts pairs by descending score in place. Equal scores keep their
// incoming order, which for a similarity row is ascending row index.
// NaN scores sort last.
func Rank(pairs []model.ScoredRow) {
	slices.SortStableFunc(pairs, func(a, b model.ScoredRow) int {
		return cmp.Compare(b.Score, a.Score)
	})
}
