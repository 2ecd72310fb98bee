// Package service loads the festival catalog and similarity artifacts once
// and serves recommendations from the published, read-only state.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/festa/internal/adapters/repository"
	"github.com/okian/festa/internal/domain/catalog"
	"github.com/okian/festa/internal/domain/recommend"
	"github.com/okian/festa/internal/domain/similarity"
	"github.com/okian/festa/internal/domain/types"
	"github.com/okian/festa/pkg/logger"
	"github.com/okian/festa/pkg/metrics"
)

// State is everything a request needs. It is built once by Start and never
// mutated afterwards.
type State struct {
	Catalog  *catalog.Catalog
	Index    *similarity.Index
	Engine   *recommend.Engine
	Source   string
	LoadedAt time.Time
}

// Service implements the API dependencies for the recommendation system.
type Service struct {
	mu    sync.Mutex // serializes Start
	state atomic.Pointer[State]

	// Artifacts
	catalogPath  string
	catalogTable string
	matrixPath   string
	mappingPath  string
	source       repository.Source

	// Recommendation settings
	unpopularDistricts []int
	defaultTopN        int
	maxTopN            int

	createdAt time.Time
	served    atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCatalog sets the catalog file and, for SQLite, its table.
func WithCatalog(path, table string) Option {
	return func(s *Service) {
		if path != "" {
			s.catalogPath = path
		}
		if table != "" {
			s.catalogTable = table
		}
	}
}

// WithCatalogSource bypasses path based source selection.
func WithCatalogSource(src repository.Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithArtifacts sets the similarity matrix and id mapping paths.
func WithArtifacts(matrixPath, mappingPath string) Option {
	return func(s *Service) {
		if matrixPath != "" {
			s.matrixPath = matrixPath
		}
		if mappingPath != "" {
			s.mappingPath = mappingPath
		}
	}
}

// WithUnpopularDistricts sets the district codes feeding track 2.
func WithUnpopularDistricts(codes []int) Option {
	return func(s *Service) {
		s.unpopularDistricts = append([]int(nil), codes...)
	}
}

// WithTopN sets the default and maximum per-track result counts.
func WithTopN(defaultN, maxN int) Option {
	return func(s *Service) {
		if maxN > 0 {
			s.maxTopN = maxN
		}
		if defaultN > 0 && defaultN <= s.maxTopN {
			s.defaultTopN = defaultN
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		catalogPath:        "data/festivals.db",
		catalogTable:       "festivals",
		matrixPath:         "data/cosine_sim.npy",
		mappingPath:        "data/id_to_index.json",
		unpopularDistricts: []int{3, 8, 9, 10, 22, 25},
		defaultTopN:        5,
		maxTopN:            50,
		createdAt:          time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the catalog and both similarity artifacts concurrently,
// cross-checks them and publishes the result. On failure nothing is
// published and Ready keeps reporting false. Calling Start after a
// successful load is a no-op.
func (s *Service) Start(ctx context.Context) error {
	const op = "service.start"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Load() != nil {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	began := time.Now()
	src := s.source
	if src == nil {
		var err error
		src, err = repository.Open(s.catalogPath, repository.WithTable(s.catalogTable))
		if err != nil {
			return s.loadFailed(ctx, op, "catalog", err)
		}
	}
	s.logger.Info(ctx, "loading recommendation data",
		logger.String("catalog", src.Describe()),
		logger.String("matrix", s.matrixPath),
		logger.String("mapping", s.mappingPath),
	)

	var (
		cat *catalog.Catalog
		idx *similarity.Index
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := catalog.Load(gctx, src, s.unpopularDistricts)
		if err != nil {
			metrics.RecordLoadFailure("catalog")
			return err
		}
		cat = c
		return nil
	})
	g.Go(func() error {
		x, err := similarity.Load(gctx, s.matrixPath, s.mappingPath)
		if err != nil {
			metrics.RecordLoadFailure("index")
			return err
		}
		idx = x
		return nil
	})
	if err := g.Wait(); err != nil {
		return s.loadFailed(ctx, op, "", err)
	}

	engine, err := recommend.New(cat, idx, recommend.WithLogger(s.logger.Named("recommend")))
	if err != nil {
		return s.loadFailed(ctx, op, "engine", err)
	}

	st := &State{Catalog: cat, Index: idx, Engine: engine, Source: src.Describe(), LoadedAt: time.Now()}
	s.state.Store(st)

	elapsed := time.Since(began)
	metrics.RecordLoadDuration(float64(elapsed.Milliseconds()))
	metrics.UpdateCatalogRows(cat.Len())
	metrics.UpdateUnpopularRows(cat.UnpopularCount())
	metrics.UpdateMatrixDim(idx.Dim())
	metrics.UpdateMappedIDs(idx.Len())
	metrics.SetReady(true)

	s.logger.Info(ctx, "recommendation data loaded",
		logger.Int("festivals", cat.Len()),
		logger.Int("unpopular", cat.UnpopularCount()),
		logger.Int("mappedIDs", idx.Len()),
		logger.Any("duration", elapsed),
	)
	if idx.Len() < cat.Len() {
		s.logger.Warn(ctx, "some festivals have no similarity mapping and cannot be used as a base",
			logger.Int("unmapped", cat.Len()-idx.Len()),
		)
	}
	return nil
}

func (s *Service) loadFailed(ctx context.Context, op, stage string, err error) error {
	if stage != "" {
		metrics.RecordLoadFailure(stage)
	}
	metrics.SetReady(false)
	s.logger.Error(ctx, "failed to load recommendation data", logger.Error(err))
	return types.WrapKind(op, types.ErrNotReady, err)
}

// Stop releases the published state.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Swap(nil) == nil {
		return
	}
	metrics.SetReady(false)
	if s.logger != nil {
		s.logger.Info(context.Background(), "recommendation service stopped")
	}
}

// Ready reports whether state has been published.
func (s *Service) Ready() bool {
	return s.state.Load() != nil
}

// State returns the published state or nil.
func (s *Service) State() *State {
	return s.state.Load()
}

// TopNLimits returns the default and maximum per-track result counts.
func (s *Service) TopNLimits() (defaultN, maxN int) {
	return s.defaultTopN, s.maxTopN
}

// Recommend returns both recommendation tracks for contentID.
func (s *Service) Recommend(ctx context.Context, contentID string, topN int) (types.Recommendation, error) {
	const op = "service.recommend"

	st := s.state.Load()
	if st == nil {
		metrics.RecordRecommendation("not_ready")
		return types.Recommendation{}, types.NewKind(op, types.ErrNotReady)
	}
	if topN < 0 || topN > s.maxTopN {
		metrics.RecordRecommendation("bad_request")
		return types.Recommendation{}, types.WrapKind(op, types.ErrInvalidArgument,
			fmt.Errorf("top_n must be between 1 and %d, got %d", s.maxTopN, topN))
	}

	began := time.Now()
	rec, err := st.Engine.Recommend(ctx, contentID, topN)
	metrics.RecordRecommendationLatency(float64(time.Since(began).Microseconds()) / 1000)
	if err != nil {
		err = classify(op, err)
		metrics.RecordRecommendation(outcome(err))
		return types.Recommendation{}, err
	}

	s.served.Add(1)
	metrics.RecordRecommendation("ok")
	metrics.RecordTrackSize("similar", len(rec.Similar))
	metrics.RecordTrackSize("unpopular", len(rec.Unpopular))
	return rec, nil
}

// Festivals lists the catalog, optionally narrowed to one district code.
func (s *Service) Festivals(_ context.Context, districtCode string) ([]types.Festival, error) {
	const op = "service.festivals"

	st := s.state.Load()
	if st == nil {
		return nil, types.NewKind(op, types.ErrNotReady)
	}
	rows, err := st.Catalog.FilterByDistrict(districtCode)
	if err != nil {
		return nil, classify(op, err)
	}
	return rows, nil
}

// Festival returns a single catalog row.
func (s *Service) Festival(_ context.Context, contentID string) (types.Festival, error) {
	const op = "service.festival"

	st := s.state.Load()
	if st == nil {
		return types.Festival{}, types.NewKind(op, types.ErrNotReady)
	}
	i, ok := st.Catalog.Lookup(contentID)
	if !ok {
		return types.Festival{}, types.WrapKind(op, types.ErrNotFound, fmt.Errorf("content id %q", contentID))
	}
	f, _ := st.Catalog.Row(i)
	return f, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	stats := map[string]any{
		"ready":                  false,
		"uptime_seconds":         int64(time.Since(s.createdAt).Seconds()),
		"recommendations_served": s.served.Load(),
		"default_top_n":          s.defaultTopN,
		"max_top_n":              s.maxTopN,
		"unpopular_districts":    s.unpopularDistricts,
	}

	st := s.state.Load()
	if st == nil {
		return stats
	}
	stats["ready"] = true
	stats["source"] = st.Source
	stats["loaded_at"] = st.LoadedAt.UTC().Format(time.RFC3339)
	stats["catalog_rows"] = st.Catalog.Len()
	stats["unpopular_rows"] = st.Catalog.UnpopularCount()
	stats["matrix_dim"] = st.Index.Dim()
	stats["mapped_ids"] = st.Index.Len()
	stats["districts"] = st.Catalog.Districts()
	return stats
}

// classify makes sure err carries exactly one of the service error kinds.
// Cancellation is passed through untouched.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.Wrap(op, err)
	}
	kind := types.KindOf(err)
	if errors.Is(err, kind) {
		return types.Wrap(op, err)
	}
	return types.WrapKind(op, kind, err)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	case errors.Is(err, types.ErrInvalidArgument):
		return "bad_request"
	case errors.Is(err, types.ErrNotReady):
		return "not_ready"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
