package reccheck

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/festa/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the logger to write to stdout and, when logFile
// is set, to that file as well. The returned closer releases the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = io.NopCloser(nil)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closer, nil
}

// ShowHelp prints usage information for the check tool.
func ShowHelp() {
	os.Stdout.WriteString(`festa recommendation check
==========================

Requests recommendations for many festivals from a running service and
verifies that every response keeps the track invariants: the base is never
recommended, tracks hold at most top_n festivals, the tracks are disjoint and
track 2 only holds festivals in unpopular districts.

Usage:
  go run ./cmd/rec-check [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8000")
  -samples int
        Festivals to use as a base, 0 for all (default 200)
  -top int
        top_n sent with every request (default 5)
  -workers int
        Concurrent requests (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        Write a JSON report to this file
  -log string
        Also write logs to this file
  -verbose
        Log every violation
  -help
        Show this help message

Examples:
  go run ./cmd/rec-check -samples 0 -top 3
  go run ./cmd/rec-check -url http://127.0.0.1:8000 -output reports/check.json
`)
}
