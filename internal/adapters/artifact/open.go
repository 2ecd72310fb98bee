// Package artifact decodes the precomputed similarity artifacts: the
// square score matrix and the content id to row index mapping.
//
// Either artifact may be stored compressed; a trailing .zst or .lz4
// suffix selects the decompressor and the remaining extension selects
// the codec.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// open returns a decompressed stream for path and the codec extension
// left after stripping a compression suffix, e.g. "x.npy.zst" -> ".npy".
func open(path string) (io.ReadCloser, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	closeFile := func() error { return f.Close() }

	ext := strings.ToLower(filepath.Ext(path))
	inner := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))

	switch ext {
	case ".zst", ".zstd":
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, "", fmt.Errorf("%w: zstd: %v", ErrFormat, err)
		}
		return &readCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			closeFile,
		}}, inner, nil
	case ".lz4":
		return &readCloser{Reader: lz4.NewReader(f), closers: []func() error{closeFile}}, inner, nil
	default:
		return &readCloser{Reader: f, closers: []func() error{closeFile}}, ext, nil
	}
}
