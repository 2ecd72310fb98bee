package repository

import "errors"

// Sentinel kinds for catalog source errors.
var (
	ErrUnsupportedSource = errors.New("unsupported catalog source")
	ErrMissingColumn     = errors.New("missing required column")
	ErrMalformedRow      = errors.New("malformed catalog row")
	ErrInvalidTable      = errors.New("invalid table name")
)
