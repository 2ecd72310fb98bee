package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/festa/internal/reccheck"
	"github.com/okian/festa/pkg/logger"
)

// Default configuration constants.
const (
	defaultSamples     = 200
	defaultTopN        = 5
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8000", "Base URL of the service")
		samples    = flag.Int("samples", defaultSamples, "Festivals to use as a base, 0 for all")
		topN       = flag.Int("top", defaultTopN, "top_n sent with every request")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent requests")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "JSON report file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Log every violation")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		reccheck.ShowHelp()
		return
	}

	closer, err := reccheck.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)

	_, err = reccheck.Run(ctx, &reccheck.Config{
		BaseURL:    *baseURL,
		Samples:    *samples,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
		Logger:     logger.Get(),
	})
	cancel()
	_ = closer.Close()
	if err != nil {
		os.Stderr.WriteString("Check failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
