package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// ReadMapping decodes the content id to row index mapping at path.
func ReadMapping(ctx context.Context, path string) (map[string]int, error) {
	rc, ext, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping: %w", err)
	}
	defer func() { _ = rc.Close() }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ext != ".json" {
		return nil, fmt.Errorf("%w: mapping %q", ErrUnsupported, path)
	}
	return DecodeMapping(rc)
}

// DecodeMapping accepts either an object {"<content id>": <row index>} or
// an array of content ids whose positions are the row indices.
// Range and uniqueness checks belong to the caller, which knows the
// matrix dimension.
func DecodeMapping(r io.Reader) (map[string]int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mapping: %v", ErrFormat, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty mapping", ErrFormat)
	}

	switch raw[0] {
	case '{':
		var m map[string]int
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: mapping object: %v", ErrFormat, err)
		}
		return m, nil
	case '[':
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, fmt.Errorf("%w: mapping array: %v", ErrFormat, err)
		}
		m := make(map[string]int, len(ids))
		for i, id := range ids {
			if _, dup := m[id]; dup {
				return nil, fmt.Errorf("%w: duplicate content id %q", ErrFormat, id)
			}
			m[id] = i
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: mapping must be a JSON object or array", ErrFormat)
	}
}
