package config

import "errors"

var (
	// ErrInvalidConfig wraps every rule Validate finds broken.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps failures reading the YAML file or FESTA_ variables.
	ErrLoadConfig = errors.New("load config failed")
)
