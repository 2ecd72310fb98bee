// Command migrate copies the festival CSV export into a SQLite table that
// the service can read with catalog_path pointing at the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/festa/internal/adapters/repository"
	"github.com/okian/festa/pkg/logger"
)

func main() {
	var (
		csvPath = flag.String("csv", "data/festivals_db.csv", "Source CSV file")
		dbPath  = flag.String("db", "data/festivals.db", "Destination SQLite database")
		table   = flag.String("table", "festivals", "Destination table, replaced if present")
		comma   = flag.String("comma", ",", "CSV field separator")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := migrate(ctx, *csvPath, *dbPath, *table, *comma)
	if err != nil {
		logger.Get().Error(ctx, "migration failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
	logger.Get().Info(ctx, "migration complete",
		logger.String("csv", *csvPath),
		logger.String("db", *dbPath),
		logger.String("table", *table),
		logger.Int("rows", n),
	)
}

// migrate validates every CSV row before touching the database, so a bad
// export never replaces a good table.
func migrate(ctx context.Context, csvPath, dbPath, table, comma string) (int, error) {
	sep := []rune(comma)
	if len(sep) != 1 {
		return 0, fmt.Errorf("comma must be a single character, got %q", comma)
	}
	src, err := repository.Open(csvPath, repository.WithComma(sep[0]))
	if err != nil {
		return 0, err
	}
	rows, err := src.Festivals(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", src.Describe(), err)
	}
	return repository.WriteSQLite(ctx, dbPath, table, rows)
}
