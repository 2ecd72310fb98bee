package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "FESTA_"
	envConfig  = "FESTA_CONFIG"
	maxTopNCap = 1000
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// listKeys are the settings whose environment value is a comma separated
// list. koanf hands env values over as a single string otherwise.
var listKeys = map[string]bool{
	"unpopular_districts":  true,
	"cors_allowed_origins": true,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FESTA_CONFIG is set
//  3. env (prefix FESTA_)
func Load() (*Config, error) {
	cfg := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// FESTA_MAX_TOP_N -> max_top_n. Lists are comma separated.
	envProvider := env.ProviderWithValue(envPrefix, ".", envValue)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The config file location is not itself a setting.
	k.Delete("config")

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envValue maps FESTA_KEY=value to a koanf key and splits list settings.
func envValue(key, value string) (string, any) {
	key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
	if !listKeys[key] {
		return key, value
	}
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	if c.CatalogPath == "" {
		errs = append(errs, errors.New("catalog_path must not be empty"))
	}
	if c.MatrixPath == "" || c.MappingPath == "" {
		errs = append(errs, errors.New("matrix_path and mapping_path must not be empty"))
	}
	if !tableName.MatchString(c.CatalogTable) {
		errs = append(errs, fmt.Errorf("catalog_table %q is not a plain identifier", c.CatalogTable))
	}
	if c.MaxTopN < 1 || c.MaxTopN > maxTopNCap {
		errs = append(errs, fmt.Errorf("max_top_n must be in 1..%d, got %d", maxTopNCap, c.MaxTopN))
	}
	if c.DefaultTopN < 1 || c.DefaultTopN > c.MaxTopN {
		errs = append(errs, fmt.Errorf("default_top_n must be in 1..max_top_n, got %d", c.DefaultTopN))
	}
	for _, d := range c.UnpopularDistricts {
		if d < 0 {
			errs = append(errs, fmt.Errorf("unpopular_districts: negative code %d", d))
		}
	}
	if c.MetricsRefreshInterval <= 0 {
		errs = append(errs, errors.New("metrics_refresh_interval must be positive"))
	}
	if c.RateLimitRequests < 0 {
		errs = append(errs, errors.New("rate_limit_requests must not be negative"))
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate_limit_window must be positive when rate limiting is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
