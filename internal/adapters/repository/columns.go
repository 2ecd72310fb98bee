package repository

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/festa/internal/domain/model"
)

// Catalog column names as published in the festival dataset.
const (
	ColContentID    = "contentid"
	ColTitle        = "title"
	ColDistrictCode = "sigungucode"
	ColOverview     = "overview"
	ColStartDate    = "eventstartdate"
	ColEndDate      = "eventenddate"
	ColAddress      = "addr1"
	ColImageURL     = "firstimage"
	ColMapX         = "mapx"
	ColMapY         = "mapy"
)

var requiredColumns = []string{ColContentID, ColTitle, ColDistrictCode}

// columnMap resolves column names to positions in a record.
// Missing optional columns map to -1.
type columnMap struct {
	contentID, title, district                   int
	overview, start, end, address, image, mx, my int
}

func newColumnMap(header []string) (*columnMap, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := pos[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	at := func(name string) int {
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}
	return &columnMap{
		contentID: at(ColContentID),
		title:     at(ColTitle),
		district:  at(ColDistrictCode),
		overview:  at(ColOverview),
		start:     at(ColStartDate),
		end:       at(ColEndDate),
		address:   at(ColAddress),
		image:     at(ColImageURL),
		mx:        at(ColMapX),
		my:        at(ColMapY),
	}, nil
}

// decode converts one record into a typed Festival. Absent values are
// passed as nil so that SQL NULL and an empty CSV cell behave the same.
func (m *columnMap) decode(row int, values []*string) (model.Festival, error) {
	get := func(i int) *string {
		if i < 0 || i >= len(values) || values[i] == nil {
			return nil
		}
		v := strings.TrimSpace(*values[i])
		if v == "" {
			return nil
		}
		return &v
	}

	var f model.Festival
	id := get(m.contentID)
	if id == nil {
		return f, fmt.Errorf("%w: row %d: empty %s", ErrMalformedRow, row, ColContentID)
	}
	f.ContentID = *id
	title := get(m.title)
	if title == nil {
		return f, fmt.Errorf("%w: row %d: empty %s", ErrMalformedRow, row, ColTitle)
	}
	f.Title = *title

	raw := get(m.district)
	if raw == nil {
		return f, fmt.Errorf("%w: row %d: empty %s", ErrMalformedRow, row, ColDistrictCode)
	}
	code, err := parseInteger(*raw)
	if err != nil {
		return f, fmt.Errorf("%w: row %d: %s %q: %v", ErrMalformedRow, row, ColDistrictCode, *raw, err)
	}
	f.DistrictCode = int(code)

	f.Overview = keepText(values, m.overview)
	f.Address = get(m.address)
	f.ImageURL = get(m.image)

	if f.EventStartDate, err = optionalInt(get(m.start)); err != nil {
		return f, fmt.Errorf("%w: row %d: %s: %v", ErrMalformedRow, row, ColStartDate, err)
	}
	if f.EventEndDate, err = optionalInt(get(m.end)); err != nil {
		return f, fmt.Errorf("%w: row %d: %s: %v", ErrMalformedRow, row, ColEndDate, err)
	}
	if f.MapX, err = optionalFloat(get(m.mx)); err != nil {
		return f, fmt.Errorf("%w: row %d: %s: %v", ErrMalformedRow, row, ColMapX, err)
	}
	if f.MapY, err = optionalFloat(get(m.my)); err != nil {
		return f, fmt.Errorf("%w: row %d: %s: %v", ErrMalformedRow, row, ColMapY, err)
	}
	return f, nil
}

// keepText returns free text untrimmed; only an all-blank value counts as absent.
func keepText(values []*string, i int) *string {
	if i < 0 || i >= len(values) || values[i] == nil || strings.TrimSpace(*values[i]) == "" {
		return nil
	}
	v := *values[i]
	return &v
}

// parseInteger accepts plain integers and integral floats such as "9.0",
// which is how pandas writes integer columns that contained NaN.
func parseInteger(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("not an integer")
	}
	return int64(f), nil
}

func optionalInt(s *string) (*int64, error) {
	if s == nil {
		return nil, nil
	}
	n, err := parseInteger(*s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func optionalFloat(s *string) (*float64, error) {
	if s == nil {
		return nil, nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
