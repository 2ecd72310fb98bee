package repository

const (
	defaultTable = "festivals"
	defaultComma = ','
)

type options struct {
	table string
	comma rune
}

// Option applies a configuration option to a Source.
type Option func(*options)

// WithTable sets the SQLite table holding the catalog.
func WithTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.table = name
		}
	}
}

// WithComma sets the CSV field delimiter.
func WithComma(r rune) Option {
	return func(o *options) {
		if r != 0 {
			o.comma = r
		}
	}
}

func newOptions(opts ...Option) options {
	o := options{table: defaultTable, comma: defaultComma}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
