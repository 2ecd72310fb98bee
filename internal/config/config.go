// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and FESTA_* environment variables on top.
// - Validate reports every problem wrapped in ErrInvalidConfig.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log records.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// CatalogPath points at the festival table: a CSV file or a SQLite database.
	CatalogPath string `koanf:"catalog_path"`

	// CatalogTable names the SQLite table holding festivals.
	CatalogTable string `koanf:"catalog_table"`

	// MatrixPath and MappingPath locate the precomputed similarity artifacts.
	MatrixPath  string `koanf:"matrix_path"`
	MappingPath string `koanf:"mapping_path"`

	// UnpopularDistricts lists district codes that feed track 2.
	UnpopularDistricts []int `koanf:"unpopular_districts"`

	// DefaultTopN applies when a request omits top_n.
	DefaultTopN int `koanf:"default_top_n"`

	// MaxTopN caps top_n.
	MaxTopN int `koanf:"max_top_n"`

	// FailFast exits the process when startup loading fails instead of
	// serving 503 from /readyz.
	FailFast bool `koanf:"fail_fast"`

	// StaticDir serves a frontend from / when set.
	StaticDir string `koanf:"static_dir"`

	// CORSAllowedOrigins is passed to the CORS middleware.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimitRequests per RateLimitWindow per client IP; 0 disables limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`

	// MetricsEnabled turns recording of Prometheus observations on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshInterval is how often runtime gauges are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`

	// MetricsLabels are constant labels added to every metric (YAML only).
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":8000",
		CatalogPath:        "data/festivals.db",
		CatalogTable:       "festivals",
		MatrixPath:         "data/cosine_sim.npy",
		MappingPath:        "data/id_to_index.json",
		UnpopularDistricts: []int{3, 8, 9, 10, 22, 25},
		DefaultTopN:        5,
		MaxTopN:            50,
		FailFast:           true,
		CORSAllowedOrigins: []string{"*"},
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,

		MetricsEnabled:         true,
		MetricsRefreshInterval: 10 * time.Second,
	}
}
