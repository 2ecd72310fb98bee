package recommend_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/festa/internal/adapters/artifact"
	"github.com/okian/festa/internal/domain/catalog"
	"github.com/okian/festa/internal/domain/model"
	"github.com/okian/festa/internal/domain/recommend"
	"github.com/okian/festa/internal/domain/similarity"
	"github.com/okian/festa/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func build(rows []model.Festival, unpopular []int, data []float64) *recommend.Engine {
	c, err := catalog.New(rows, unpopular)
	So(err, ShouldBeNil)
	mapping := make(map[string]int, len(rows))
	for i, r := range rows {
		mapping[r.ContentID] = i
	}
	idx, err := similarity.New(&artifact.Matrix{Dim: len(rows), Data: data}, mapping)
	So(err, ShouldBeNil)
	e, err := recommend.New(c, idx)
	So(err, ShouldBeNil)
	return e
}

func ids(rows []model.Festival) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ContentID
	}
	return out
}

func TestEngine_WorkedExample(t *testing.T) {
	Convey("Given A and C in an unpopular district and A's row ranked A, B, C, D", t, func() {
		rows := []model.Festival{
			{ContentID: "A", DistrictCode: 9},
			{ContentID: "B", DistrictCode: 1},
			{ContentID: "C", DistrictCode: 9},
			{ContentID: "D", DistrictCode: 1},
		}
		e := build(rows, []int{9}, []float64{
			1.0, 0.8, 0.6, 0.4,
			0.8, 1.0, 0.3, 0.2,
			0.6, 0.3, 1.0, 0.5,
			0.4, 0.2, 0.5, 1.0,
		})

		Convey("When recommending one festival per track for A", func() {
			rec, err := e.Recommend(context.Background(), "A", 1)

			Convey("Then track 1 is B and track 2 is C", func() {
				So(err, ShouldBeNil)
				So(rec.Base.ContentID, ShouldEqual, "A")
				So(ids(rec.Similar), ShouldResemble, []string{"B"})
				So(ids(rec.Unpopular), ShouldResemble, []string{"C"})
				So(rec.Unpopular[0].IsUnpopularDistrict, ShouldBeTrue)
			})
		})

		Convey("When asking for more than the catalog holds", func() {
			rec, err := e.Recommend(context.Background(), "A", 10)

			Convey("Then both tracks are truncated to what exists", func() {
				So(err, ShouldBeNil)
				So(ids(rec.Similar), ShouldResemble, []string{"B", "C", "D"})
				// C already sits in track 1 and A is the base.
				So(rec.Unpopular, ShouldBeEmpty)
			})
		})

		Convey("When recommending for D", func() {
			rec, err := e.Recommend(context.Background(), "D", 2)

			Convey("Then track 2 keeps unpopular rows track 1 skipped", func() {
				So(err, ShouldBeNil)
				So(ids(rec.Similar), ShouldResemble, []string{"C", "A"})
				So(rec.Unpopular, ShouldBeEmpty)
			})
		})

		Convey("When topN is zero", func() {
			rec, err := e.Recommend(context.Background(), "A", 0)
			So(err, ShouldBeNil)
			So(rec.Similar, ShouldBeEmpty)
			So(rec.Unpopular, ShouldBeEmpty)
		})

		Convey("When the id is unknown", func() {
			_, err := e.Recommend(context.Background(), "Z", 3)

			Convey("Then it is not found", func() {
				So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := e.Recommend(ctx, "A", 1)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestEngine_Ordering(t *testing.T) {
	Convey("Given ties and a NaN in the base row", t, func() {
		rows := []model.Festival{
			{ContentID: "base", DistrictCode: 1},
			{ContentID: "r1", DistrictCode: 1},
			{ContentID: "r2", DistrictCode: 7},
			{ContentID: "r3", DistrictCode: 1},
			{ContentID: "r4", DistrictCode: 7},
		}
		nan := math.NaN()
		e := build(rows, []int{7}, []float64{
			1.0, nan, 0.5, 0.5, 0.9,
			nan, 1.0, 0.0, 0.0, 0.0,
			0.5, 0.0, 1.0, 0.0, 0.0,
			0.5, 0.0, 0.0, 1.0, 0.0,
			0.9, 0.0, 0.0, 0.0, 1.0,
		})

		Convey("When ranking everything", func() {
			rec, err := e.Recommend(context.Background(), "base", 4)

			Convey("Then ties keep row order and NaN sorts last", func() {
				So(err, ShouldBeNil)
				So(ids(rec.Similar), ShouldResemble, []string{"r4", "r2", "r3", "r1"})
			})
		})

		Convey("When track 1 takes only the best row", func() {
			rec, err := e.Recommend(context.Background(), "base", 1)

			Convey("Then track 2 continues down the ranking", func() {
				So(err, ShouldBeNil)
				So(ids(rec.Similar), ShouldResemble, []string{"r4"})
				So(ids(rec.Unpopular), ShouldResemble, []string{"r2"})
			})
		})
	})

	Convey("Given a base row whose self-similarity is not maximal", t, func() {
		rows := []model.Festival{
			{ContentID: "a", DistrictCode: 1},
			{ContentID: "b", DistrictCode: 2},
			{ContentID: "c", DistrictCode: 2},
		}
		e := build(rows, []int{2}, []float64{
			0.5, 0.9, 0.1,
			0.9, 1.0, 0.1,
			0.1, 0.1, 1.0,
		})

		Convey("When recommending for it", func() {
			rec, err := e.Recommend(context.Background(), "a", 2)

			Convey("Then the base is excluded by identity, not by position", func() {
				So(err, ShouldBeNil)
				So(ids(rec.Similar), ShouldResemble, []string{"b", "c"})
			})
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given pairs in row order", t, func() {
		pairs := []model.ScoredRow{{Index: 0, Score: 0.1}, {Index: 1, Score: 0.3}, {Index: 2, Score: 0.3}, {Index: 3, Score: 0.2}}
		recommend.Rank(pairs)

		Convey("Then they are sorted by descending score with stable ties", func() {
			So(pairs, ShouldResemble, []model.ScoredRow{{Index: 1, Score: 0.3}, {Index: 2, Score: 0.3}, {Index: 3, Score: 0.2}, {Index: 0, Score: 0.1}})
		})
	})
}

func TestEngine_Properties(t *testing.T) {
	Convey("Given a random symmetric catalog", t, func() {
		const n = 40
		rng := rand.New(rand.NewSource(7))
		rows := make([]model.Festival, n)
		for i := range rows {
			rows[i] = model.Festival{ContentID: fmt.Sprintf("f%02d", i), DistrictCode: rng.Intn(6)}
		}
		data := make([]float64, n*n)
		for i := 0; i < n; i++ {
			data[i*n+i] = 1
			for j := i + 1; j < n; j++ {
				s := math.Round(rng.Float64()*10) / 10 // coarse values force ties
				data[i*n+j], data[j*n+i] = s, s
			}
		}
		e := build(rows, []int{2, 5}, data)

		Convey("Then every recommendation honours the track invariants", func() {
			for i := 0; i < n; i++ {
				for _, topN := range []int{1, 3, 8, n} {
					rec, err := e.Recommend(context.Background(), rows[i].ContentID, topN)
					So(err, ShouldBeNil)
					So(len(rec.Similar), ShouldBeLessThanOrEqualTo, topN)
					So(len(rec.Unpopular), ShouldBeLessThanOrEqualTo, topN)

					seen := map[string]bool{}
					prev := math.Inf(1)
					for _, f := range rec.Similar {
						So(f.ContentID, ShouldNotEqual, rows[i].ContentID)
						seen[f.ContentID] = true
						j, _ := e.Catalog().Lookup(f.ContentID)
						score := data[i*n+j]
						So(score, ShouldBeLessThanOrEqualTo, prev)
						prev = score
					}
					for _, f := range rec.Unpopular {
						So(f.ContentID, ShouldNotEqual, rows[i].ContentID)
						So(f.IsUnpopularDistrict, ShouldBeTrue)
						So(seen[f.ContentID], ShouldBeFalse)
					}
				}
			}
		})
	})
}

func TestEngine_New(t *testing.T) {
	Convey("Given a catalog and an index", t, func() {
		rows := []model.Festival{{ContentID: "a"}, {ContentID: "b"}}
		c, err := catalog.New(rows, nil)
		So(err, ShouldBeNil)

		Convey("When the matrix side differs from the row count", func() {
			idx, err := similarity.New(&artifact.Matrix{Dim: 3, Data: make([]float64, 9)}, map[string]int{"a": 0})
			So(err, ShouldBeNil)
			_, err = recommend.New(c, idx)
			So(errors.Is(err, recommend.ErrInconsistent), ShouldBeTrue)
		})

		Convey("When the mapping points an id at another festival's row", func() {
			idx, err := similarity.New(&artifact.Matrix{Dim: 2, Data: make([]float64, 4)}, map[string]int{"a": 1, "b": 0})
			So(err, ShouldBeNil)
			_, err = recommend.New(c, idx)
			So(errors.Is(err, recommend.ErrInconsistent), ShouldBeTrue)
		})

		Convey("When either part is missing", func() {
			_, err := recommend.New(nil, nil)
			So(errors.Is(err, types.ErrNotReady), ShouldBeTrue)
		})
	})
}
