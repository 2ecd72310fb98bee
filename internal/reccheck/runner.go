package reccheck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/festa/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// Errors returned by Run.
var (
	ErrNotReady   = errors.New("service is not ready")
	ErrEmpty      = errors.New("service lists no festivals")
	ErrViolations = errors.New("recommendation invariants violated")
)

// Run samples festivals from the service, requests recommendations for each
// concurrently and verifies every response. It returns ErrViolations when
// any response breaks an invariant.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{RunID: uuid.NewString(), StartTime: time.Now(), Violations: []Violation{}}
	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.String("run_id", stats.RunID))

	log.Info(ctx, "starting recommendation check",
		logger.String("baseURL", config.BaseURL),
		logger.Int("samples", config.Samples),
		logger.Int("topN", config.TopN),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()))

	client := newHTTPClient(config.BaseURL, stats.RunID, config.Timeout)

	// Step 1: readiness
	status, _, err := client.Get(ctx, "/readyz", nil)
	if err != nil {
		return stats, fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != StatusOK {
		return stats, fmt.Errorf("%w: /readyz returned %d", ErrNotReady, status)
	}

	// Step 2: catalog
	festivals, err := client.festivals(ctx)
	if err != nil {
		return stats, fmt.Errorf("festival listing failed: %w", err)
	}
	if len(festivals) == 0 {
		return stats, ErrEmpty
	}
	stats.Festivals = len(festivals)
	catalog := make(map[string]Festival, len(festivals))
	for _, f := range festivals {
		catalog[f.ContentID] = f
	}

	// Step 3: recommendations, verified as they arrive
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for _, f := range sample(festivals, config.Samples) {
		g.Go(func() error {
			rec, err := client.recommend(gctx, f.ContentID, config.TopN)
			violations := []Violation(nil)
			if err == nil {
				violations = verifyRecommendation(f.ContentID, config.TopN, rec, catalog)
			}

			mu.Lock()
			defer mu.Unlock()
			stats.Checked++
			switch {
			case err != nil:
				stats.RequestErrors++
				log.Warn(gctx, "recommendation request failed", logger.String("contentID", f.ContentID), logger.Error(err))
			case len(violations) > 0:
				stats.Failed++
				stats.Violations = append(stats.Violations, violations...)
				if config.Verbose {
					for _, v := range violations {
						log.Warn(gctx, "invariant violated",
							logger.String("contentID", v.ContentID),
							logger.String("rule", v.Rule),
							logger.String("detail", v.Detail))
					}
				}
			default:
				stats.Passed++
			}
			if err == nil {
				stats.SimilarTotal += len(rec.Similar)
				stats.UnpopularTotal += len(rec.Unpopular)
			}
			// Only cancellation of the whole run stops the group.
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if config.OutputFile != "" {
		if err := saveReport(config.OutputFile, stats); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		} else {
			log.Info(ctx, "report saved", logger.String("file", config.OutputFile))
		}
	}
	displayFinalStats(ctx, log, stats)

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d festivals", ErrViolations, stats.Failed, stats.Checked)
	}
	return stats, nil
}

// sample picks n festivals spread evenly across the listing. n <= 0 or
// n >= len(all) returns all of them.
func sample(all []Festival, n int) []Festival {
	if n <= 0 || n >= len(all) {
		return all
	}
	out := make([]Festival, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, all[i*len(all)/n])
	}
	return out
}

func saveReport(filename string, stats *Stats) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(filename, data, reportPermission)
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var passRate, perSecond float64
	if stats.Checked > 0 {
		passRate = float64(stats.Passed) / float64(stats.Checked) * 100
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Checked) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("festivals", stats.Festivals),
		logger.Int("checked", stats.Checked),
		logger.Int("passed", stats.Passed),
		logger.Int("failed", stats.Failed),
		logger.Int("requestErrors", stats.RequestErrors),
		logger.Int("violations", len(stats.Violations)),
		logger.Int("similarTotal", stats.SimilarTotal),
		logger.Int("unpopularTotal", stats.UnpopularTotal),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("passRate", passRate),
		logger.Float64("requestsPerSecond", perSecond))
}
