package artifact

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// maxDim caps the matrix side so that Dim*Dim cannot overflow.
const maxDim = 1 << 16

// preallocValues bounds the capacity reserved from the header alone. Beyond
// it the data slice grows only as rows are actually read, so a header that
// claims more than the file holds fails on a short read.
const preallocValues = 1 << 20

// Matrix is a dense square score matrix stored row-major.
type Matrix struct {
	Dim  int
	Data []float64
}

// Row returns row i without copying.
func (m *Matrix) Row(i int) []float64 {
	return m.Data[i*m.Dim : (i+1)*m.Dim]
}

// ReadMatrix decodes the matrix at path. Supported codecs are NumPy .npy
// (little or big endian float32/float64, C or Fortran order) and .json
// (an array of rows).
func ReadMatrix(ctx context.Context, path string) (*Matrix, error) {
	rc, ext, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("open matrix: %w", err)
	}
	defer func() { _ = rc.Close() }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch ext {
	case ".npy":
		return DecodeNPY(rc)
	case ".json":
		return DecodeJSONMatrix(rc)
	default:
		return nil, fmt.Errorf("%w: matrix %q", ErrUnsupported, path)
	}
}

var (
	npyMagic   = []byte("\x93NUMPY")
	npyDescr   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	npyFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShape   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// DecodeNPY reads a two-dimensional square array in NumPy .npy format.
func DecodeNPY(r io.Reader) (*Matrix, error) {
	br := bufio.NewReader(r)

	prefix := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(br, prefix); err != nil {
		return nil, fmt.Errorf("%w: npy preamble: %v", ErrFormat, err)
	}
	if string(prefix[:len(npyMagic)]) != string(npyMagic) {
		return nil, fmt.Errorf("%w: not an npy file", ErrFormat)
	}

	var headerLen int
	switch major := prefix[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: npy header length: %v", ErrFormat, err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: npy header length: %v", ErrFormat, err)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("%w: npy version %d", ErrUnsupported, major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: npy header: %v", ErrFormat, err)
	}
	descr, fortran, shape, err := parseNPYHeader(string(header))
	if err != nil {
		return nil, err
	}
	if len(shape) != 2 || shape[0] != shape[1] {
		return nil, fmt.Errorf("%w: matrix shape %v is not square", ErrDimension, shape)
	}
	dim := shape[0]
	if dim <= 0 || dim > maxDim {
		return nil, fmt.Errorf("%w: matrix side %d out of range", ErrDimension, dim)
	}

	var order binary.ByteOrder = binary.LittleEndian
	switch descr[0] {
	case '<', '=', '|':
	case '>':
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: dtype %q", ErrUnsupported, descr)
	}

	var width int
	var decode func(b []byte) float64
	switch descr[1:] {
	case "f8":
		width = 8
		decode = func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }
	case "f4":
		width = 4
		decode = func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) }
	default:
		return nil, fmt.Errorf("%w: dtype %q", ErrUnsupported, descr)
	}

	m := &Matrix{Dim: dim, Data: make([]float64, 0, min(dim*dim, preallocValues))}
	buf := make([]byte, width*dim)
	row := make([]float64, dim)
	for i := 0; i < dim; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: npy data row %d: %v", ErrFormat, i, err)
		}
		for j := range row {
			row[j] = decode(buf[width*j:])
		}
		m.Data = append(m.Data, row...)
	}

	if fortran {
		transpose(m)
	}
	return m, nil
}

func parseNPYHeader(h string) (descr string, fortran bool, shape []int, err error) {
	d := npyDescr.FindStringSubmatch(h)
	f := npyFortran.FindStringSubmatch(h)
	s := npyShape.FindStringSubmatch(h)
	if d == nil || f == nil || s == nil {
		return "", false, nil, fmt.Errorf("%w: npy header %q", ErrFormat, strings.TrimSpace(h))
	}
	if len(d[1]) != 3 {
		return "", false, nil, fmt.Errorf("%w: dtype %q", ErrUnsupported, d[1])
	}
	for _, part := range strings.Split(s[1], ",") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "L"))
		if part == "" {
			continue
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil {
			return "", false, nil, fmt.Errorf("%w: shape %q", ErrFormat, s[1])
		}
		shape = append(shape, n)
	}
	return d[1], f[1] == "True", shape, nil
}

func transpose(m *Matrix) {
	n := m.Dim
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m.Data[i*n+j], m.Data[j*n+i] = m.Data[j*n+i], m.Data[i*n+j]
		}
	}
}

// WriteNPY encodes m as a version 1.0 little-endian float64 .npy stream.
func WriteNPY(w io.Writer, m *Matrix) error {
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%d, %d), }", m.Dim, m.Dim)
	// magic(6) + version(2) + length(2) + header + '\n' is padded to a multiple of 64.
	total := len(npyMagic) + 4 + len(header) + 1
	if pad := (64 - total%64) % 64; pad > 0 {
		header += strings.Repeat(" ", pad)
	}
	header += "\n"

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(npyMagic); err != nil {
		return err
	}
	if _, err := bw.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := bw.WriteString(header); err != nil {
		return err
	}
	var buf [8]byte
	for _, v := range m.Data {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodeJSONMatrix reads a square matrix encoded as a JSON array of rows.
func DecodeJSONMatrix(r io.Reader) (*Matrix, error) {
	var rows [][]float64
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: json matrix: %v", ErrFormat, err)
	}
	dim := len(rows)
	if dim == 0 || dim > maxDim {
		return nil, fmt.Errorf("%w: matrix side %d out of range", ErrDimension, dim)
	}
	m := &Matrix{Dim: dim, Data: make([]float64, 0, dim*dim)}
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimension, i, len(row), dim)
		}
		m.Data = append(m.Data, row...)
	}
	return m, nil
}
