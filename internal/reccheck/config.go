package reccheck

import (
	"time"

	"github.com/okian/festa/internal/domain/types"
	"github.com/okian/festa/pkg/logger"
)

// Config holds configuration for a check run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Samples    int           // Number of festivals to use as a base; 0 means all
	TopN       int           // top_n sent with every request
	Workers    int           // Number of concurrent requests
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // JSON report destination; empty skips the report
	Verbose    bool          // Log every violation as it is found
	Logger     logger.Logger // Destination for progress logs; nil discards them
}

// Festival and Recommendation mirror the service wire format.
type (
	Festival       = types.Festival
	Recommendation = types.Recommendation
)

// Violation is one broken recommendation invariant.
type Violation struct {
	ContentID string `json:"contentid"`
	Rule      string `json:"rule"`
	Detail    string `json:"detail"`
}

// Stats holds run statistics.
type Stats struct {
	RunID          string        `json:"run_id"`
	Festivals      int           `json:"festivals"`
	Checked        int           `json:"checked"`
	Passed         int           `json:"passed"`
	Failed         int           `json:"failed"`
	RequestErrors  int           `json:"request_errors"`
	SimilarTotal   int           `json:"similar_total"`
	UnpopularTotal int           `json:"unpopular_total"`
	Violations     []Violation   `json:"violations"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	Duration       time.Duration `json:"duration_ns"`
}
