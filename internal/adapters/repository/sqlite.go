package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"

	"github.com/okian/festa/internal/domain/model"

	_ "modernc.org/sqlite"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource reads the catalog from a table of a SQLite database.
type SQLiteSource struct {
	path  string
	table string
}

// NewSQLiteSource creates a SQLite-backed Source.
func NewSQLiteSource(path string, o options) (*SQLiteSource, error) {
	if !tableName.MatchString(o.table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, o.table)
	}
	return &SQLiteSource{path: path, table: o.table}, nil
}

// Describe implements Source.
func (s *SQLiteSource) Describe() string { return "sqlite:" + s.path + "#" + s.table }

// Festivals implements Source. Every column is scanned as text so a
// district code stored as TEXT (as the original migration did) or as
// INTEGER decodes the same way.
func (s *SQLiteSource) Festivals(ctx context.Context) ([]model.Festival, error) {
	// mode=ro would otherwise surface a missing file as a generic open error.
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, `SELECT * FROM "`+s.table+`"`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	cols, err := newColumnMap(header)
	if err != nil {
		return nil, err
	}

	raw := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range raw {
		dest[i] = &raw[i]
	}
	values := make([]*string, len(header))

	var out []model.Festival
	for row := 1; rows.Next(); row++ {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedRow, row, err)
		}
		for i := range raw {
			values[i] = nil
			if raw[i].Valid {
				values[i] = &raw[i].String
			}
		}
		festival, err := cols.decode(row, values)
		if err != nil {
			return nil, err
		}
		out = append(out, festival)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.table, err)
	}
	return out, nil
}

// WriteSQLite replaces table in the database at path with festivals and
// returns the number of rows written. The database file is created when
// missing.
func WriteSQLite(ctx context.Context, path, table string, festivals []model.Festival) (int, error) {
	if !tableName.MatchString(table) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`DROP TABLE IF EXISTS "` + table + `"`,
		`CREATE TABLE "` + table + `" (
			contentid      TEXT PRIMARY KEY,
			title          TEXT NOT NULL,
			sigungucode    INTEGER NOT NULL,
			overview       TEXT,
			eventstartdate INTEGER,
			eventenddate   INTEGER,
			addr1          TEXT,
			firstimage     TEXT,
			mapx           REAL,
			mapy           REAL
		)`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return 0, fmt.Errorf("prepare table: %w", err)
		}
	}

	ins, err := tx.PrepareContext(ctx, `INSERT INTO "`+table+`"
		(contentid, title, sigungucode, overview, eventstartdate, eventenddate, addr1, firstimage, mapx, mapy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = ins.Close() }()

	for i := range festivals {
		f := &festivals[i]
		if _, err := ins.ExecContext(ctx,
			f.ContentID, f.Title, f.DistrictCode,
			f.Overview, f.EventStartDate, f.EventEndDate,
			f.Address, f.ImageURL, f.MapX, f.MapY,
		); err != nil {
			return i, fmt.Errorf("insert %s: %w", f.ContentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(festivals), nil
}
