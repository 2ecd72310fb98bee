// Package model contains domain models passed between layers.
package model

// Festival is one row of the festival catalog.
// JSON names mirror the columns of the published dataset.
type Festival struct {
	ContentID    string `json:"contentid"`
	Title        string `json:"title"`
	DistrictCode int    `json:"sigungucode"`

	// IsUnpopularDistrict is derived once at load time from the configured
	// district set and never recomputed per request.
	IsUnpopularDistrict bool `json:"is_unpopular_district"`

	Overview       *string  `json:"overview"`
	EventStartDate *int64   `json:"eventstartdate"` // YYYYMMDD
	EventEndDate   *int64   `json:"eventenddate"`   // YYYYMMDD
	Address        *string  `json:"addr1"`
	ImageURL       *string  `json:"firstimage"`
	MapX           *float64 `json:"mapx"`
	MapY           *float64 `json:"mapy"`
}

// ScoredRow pairs a catalog row index with its similarity to a base row.
type ScoredRow struct {
	Index int
	Score float64
}
