package artifact

import "errors"

// Sentinel kinds for artifact decoding errors.
var (
	ErrFormat      = errors.New("malformed artifact")
	ErrDimension   = errors.New("artifact dimension mismatch")
	ErrUnsupported = errors.New("unsupported artifact type")
)
