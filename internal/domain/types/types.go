// Package types contains common types used across the application
package types

import "github.com/okian/festa/internal/domain/model"

// Festival is the read shape of a catalog row.
type Festival = model.Festival

// Recommendation is the two-track answer for one base festival.
type Recommendation struct {
	Base      Festival   `json:"base"`
	Similar   []Festival `json:"track1_similar"`
	Unpopular []Festival `json:"track2_unpopular"`
}
