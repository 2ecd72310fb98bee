package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrCollectorSetup = errors.New("metrics collector setup failed")
)
