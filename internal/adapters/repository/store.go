// Package repository reads the festival catalog from tabular sources.
package repository

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/okian/festa/internal/domain/model"
)

// Source yields every catalog row in source order.
type Source interface {
	// Festivals decodes all rows. The column mapping is validated once,
	// before the first row is decoded.
	Festivals(ctx context.Context) ([]model.Festival, error)
	// Describe names the source for logs.
	Describe() string
}

// Open picks a Source implementation from the file extension.
// .csv selects the CSV reader; .db, .sqlite and .sqlite3 select SQLite.
func Open(path string, opts ...Option) (Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrUnsupportedSource
	}
	o := newOptions(opts...)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVSource(path, o), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteSource(path, o)
	default:
		return nil, ErrUnsupportedSource
	}
}
