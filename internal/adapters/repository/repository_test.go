package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = "\ufeffcontentid,title,sigungucode,overview,eventstartdate,eventenddate,addr1,firstimage,mapx,mapy\n" +
	"100,Lantern Festival,23,Lights over the stream,20251101,20251116,Jongno-gu,http://img/1.jpg,126.97,37.56\n" +
	"200,Rose Festival,25,,20250516,,,,,\n" +
	"300,Kite Day,9.0, ,,,Nowon-gu,,127.05,\n"

func TestReadCSV_DecodesTypedRows(t *testing.T) {
	rows, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV), ',')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.ContentID != "100" || first.Title != "Lantern Festival" || first.DistrictCode != 23 {
		t.Errorf("unexpected first row: %+v", first)
	}
	if first.EventStartDate == nil || *first.EventStartDate != 20251101 {
		t.Errorf("expected start date 20251101, got %v", first.EventStartDate)
	}
	if first.MapY == nil || *first.MapY != 37.56 {
		t.Errorf("expected mapy 37.56, got %v", first.MapY)
	}

	second := rows[1]
	if second.Overview != nil || second.EventEndDate != nil || second.Address != nil || second.MapX != nil {
		t.Errorf("expected empty cells to decode as nil: %+v", second)
	}

	third := rows[2]
	if third.DistrictCode != 9 {
		t.Errorf("expected integral float district to decode as 9, got %d", third.DistrictCode)
	}
	if third.Overview != nil {
		t.Errorf("expected blank overview to be nil")
	}
	if third.MapX == nil || third.MapY != nil {
		t.Errorf("unexpected coordinates: %v %v", third.MapX, third.MapY)
	}
}

func TestReadCSV_MissingRequiredColumn(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader("contentid,title\n1,x\n"), ',')
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestReadCSV_EmptyInput(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""), ',')
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestReadCSV_MalformedRows(t *testing.T) {
	cases := []string{
		"contentid,title,sigungucode\n1,,1\n",
		"contentid,title,sigungucode\n1,  ,1\n",
		"contentid,title,sigungucode\n1,x,gangnam\n",
		"contentid,title,sigungucode\n1,x,9.5\n",
		"contentid,title,sigungucode\n1,x,\n",
		"contentid,title,sigungucode\n,x,1\n",
		"contentid,title,sigungucode\n1,x,1,extra\n",
	}
	for _, in := range cases {
		if _, err := ReadCSV(context.Background(), strings.NewReader(in), ','); !errors.Is(err, ErrMalformedRow) {
			t.Errorf("input %q: expected ErrMalformedRow, got %v", in, err)
		}
	}
}

func TestOpen_SelectsSourceByExtension(t *testing.T) {
	src, err := Open("data/festivals_db.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := src.(*CSVSource); !ok {
		t.Errorf("expected CSVSource, got %T", src)
	}

	src, err = Open("data/festivals.db", WithTable("events"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := src.Describe(); got != "sqlite:data/festivals.db#events" {
		t.Errorf("unexpected description %q", got)
	}

	if _, err := Open("data/festivals.parquet"); !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("expected ErrUnsupportedSource, got %v", err)
	}
	if _, err := Open("x.db", WithTable("drop table;")); !errors.Is(err, ErrInvalidTable) {
		t.Errorf("expected ErrInvalidTable, got %v", err)
	}
}

func TestCSVSource_MissingFile(t *testing.T) {
	src := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"), newOptions())
	if _, err := src.Festivals(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rows, err := ReadCSV(ctx, strings.NewReader(sampleCSV), ',')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "festivals.db")
	n, err := WriteSQLite(ctx, path, "festivals", rows)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if n != len(rows) {
		t.Errorf("expected %d rows written, got %d", len(rows), n)
	}

	// A second migration replaces the table rather than appending.
	if _, err := WriteSQLite(ctx, path, "festivals", rows[:1]); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	src, err := NewSQLiteSource(path, newOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := src.Festivals(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row after replace, got %d", len(got))
	}
	if got[0].ContentID != "100" || got[0].DistrictCode != 23 || got[0].MapX == nil || *got[0].MapX != 126.97 {
		t.Errorf("unexpected row: %+v", got[0])
	}
}

func TestSQLiteSource_TextDistrictCodes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	stmts := []string{
		`CREATE TABLE festivals (contentid TEXT, title TEXT, sigungucode TEXT, overview TEXT)`,
		`INSERT INTO festivals VALUES ('1', 'Spring', '9', NULL)`,
		`INSERT INTO festivals VALUES ('2', 'Autumn', '14', 'leaves')`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
	_ = db.Close()

	src, err := NewSQLiteSource(path, newOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := src.Festivals(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(got) != 2 || got[0].DistrictCode != 9 || got[1].DistrictCode != 14 {
		t.Fatalf("unexpected rows: %+v", got)
	}
	if got[0].Overview != nil || got[1].Overview == nil || *got[1].Overview != "leaves" {
		t.Errorf("unexpected overview decoding: %+v", got)
	}
}

func TestSQLiteSource_MissingFile(t *testing.T) {
	src, err := NewSQLiteSource(filepath.Join(t.TempDir(), "none.db"), newOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := src.Festivals(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
