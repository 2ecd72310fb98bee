package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrEmpty           = errors.New("catalog is empty")
	ErrDuplicateID     = errors.New("duplicate content id")
	ErrIndexOutOfRange = errors.New("row index out of range")
)
