// Package catalog holds the in-memory festival table.
//
// A Catalog is built once by Load and is read-only afterwards, so any
// number of goroutines may query it without coordination.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/okian/festa/internal/adapters/repository"
	"github.com/okian/festa/internal/domain/model"
	"github.com/okian/festa/internal/domain/types"
)

// Catalog is the festival table keyed by row index and content id.
type Catalog struct {
	rows       []model.Festival
	byID       map[string]int
	byDistrict map[int]*roaring.Bitmap
	unpopular  *roaring.Bitmap
}

// Load reads every row from src and derives the unpopular-district flag
// against the given district codes.
func Load(ctx context.Context, src repository.Source, unpopularDistricts []int) (*Catalog, error) {
	const op = "catalog.load"

	rows, err := src.Festivals(ctx)
	if err != nil {
		return nil, types.Wrap(op, fmt.Errorf("%s: %w", src.Describe(), err))
	}
	c, err := New(rows, unpopularDistricts)
	if err != nil {
		return nil, types.Wrap(op, fmt.Errorf("%s: %w", src.Describe(), err))
	}
	return c, nil
}

// New builds a Catalog from already decoded rows. The slice is owned by
// the Catalog afterwards.
func New(rows []model.Festival, unpopularDistricts []int) (*Catalog, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	unpopularSet := make(map[int]struct{}, len(unpopularDistricts))
	for _, code := range unpopularDistricts {
		unpopularSet[code] = struct{}{}
	}

	c := &Catalog{
		rows:       rows,
		byID:       make(map[string]int, len(rows)),
		byDistrict: make(map[int]*roaring.Bitmap),
		unpopular:  roaring.New(),
	}
	for i := range c.rows {
		row := &c.rows[i]
		if prev, dup := c.byID[row.ContentID]; dup {
			return nil, fmt.Errorf("%w: %q at rows %d and %d", ErrDuplicateID, row.ContentID, prev, i)
		}
		c.byID[row.ContentID] = i

		_, row.IsUnpopularDistrict = unpopularSet[row.DistrictCode]
		if row.IsUnpopularDistrict {
			c.unpopular.Add(uint32(i))
		}

		bm, ok := c.byDistrict[row.DistrictCode]
		if !ok {
			bm = roaring.New()
			c.byDistrict[row.DistrictCode] = bm
		}
		bm.Add(uint32(i))
	}
	for _, bm := range c.byDistrict {
		bm.RunOptimize()
	}
	c.unpopular.RunOptimize()
	return c, nil
}

// Len returns the number of rows.
func (c *Catalog) Len() int { return len(c.rows) }

// Row returns the row at index i.
func (c *Catalog) Row(i int) (model.Festival, bool) {
	if i < 0 || i >= len(c.rows) {
		return model.Festival{}, false
	}
	return c.rows[i], true
}

// Lookup returns the row index of contentID.
func (c *Catalog) Lookup(contentID string) (int, bool) {
	i, ok := c.byID[contentID]
	return i, ok
}

// RowsByIndices materializes rows in the order of indices.
func (c *Catalog) RowsByIndices(indices []int) ([]model.Festival, error) {
	out := make([]model.Festival, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(c.rows) {
			return nil, types.WrapKind("catalog.rows_by_indices", types.ErrInternal,
				fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(c.rows)))
		}
		out = append(out, c.rows[i])
	}
	return out, nil
}

// FilterByDistrict returns every row when code is empty, otherwise the
// rows whose district code equals code, in catalog order. A code that is
// not an integer is an invalid argument.
func (c *Catalog) FilterByDistrict(code string) ([]model.Festival, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		out := make([]model.Festival, len(c.rows))
		copy(out, c.rows)
		return out, nil
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return nil, types.WrapKind("catalog.filter_by_district", types.ErrInvalidArgument,
			fmt.Errorf("district code %q is not an integer", code))
	}
	return c.District(n), nil
}

// District returns the rows of one district in catalog order.
func (c *Catalog) District(code int) []model.Festival {
	bm, ok := c.byDistrict[code]
	if !ok {
		return []model.Festival{}
	}
	out := make([]model.Festival, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, c.rows[it.Next()])
	}
	return out
}

// Districts returns the number of rows per district code.
func (c *Catalog) Districts() map[int]int {
	out := make(map[int]int, len(c.byDistrict))
	for code, bm := range c.byDistrict {
		out[code] = int(bm.GetCardinality())
	}
	return out
}

// UnpopularRowIndices returns a copy of the set of rows flagged unpopular.
// The set itself is computed once in New.
func (c *Catalog) UnpopularRowIndices() *roaring.Bitmap {
	return c.unpopular.Clone()
}

// IsUnpopularRow reports whether row i is in an unpopular district.
func (c *Catalog) IsUnpopularRow(i int) bool {
	return i >= 0 && i < len(c.rows) && c.unpopular.Contains(uint32(i))
}

// UnpopularCount returns the number of rows flagged unpopular.
func (c *Catalog) UnpopularCount() int {
	return int(c.unpopular.GetCardinality())
}
