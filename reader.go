package aotsql

import (
	"database/sql"
	"reflect"

	"github.com/syssam/aotsql/token"
)

// RowReader materializes rows of one result set as values of T.
//
// Tokenize is called once per result set, before the first row, and
// routes every column to a member token. Read is called once per row.
// A reader is used by one execution at a time.
type RowReader[T any] interface {
	Tokenize(columns []string, types []*sql.ColumnType) error
	Read(rows Rows) (T, error)
}

// ScanState holds the per-execution scan destinations of a row reader.
// Generated readers embed it.
type ScanState struct {
	Columns []string
	// Tokens holds the member token of every column, or token.Skip.
	Tokens []int
	// Dest holds the scan destination of every column.
	Dest []any
	// Raw receives the untyped value of columns that are coerced or skipped.
	Raw []any
}

// Reset sizes the state for columns. Every column scans into Raw and is
// skipped until the reader assigns a token and a typed destination.
func (s *ScanState) Reset(columns []string) {
	n := len(columns)
	s.Columns = columns
	s.Tokens = grow(s.Tokens, n)
	s.Dest = grow(s.Dest, n)
	s.Raw = grow(s.Raw, n)
	for i := range n {
		s.Tokens[i] = token.Skip
		s.Raw[i] = nil
		s.Dest[i] = &s.Raw[i]
	}
}

// Scan reads the current row into the destinations.
func (s *ScanState) Scan(rows Rows) error {
	return rows.Scan(s.Dest...)
}

func grow[E any](s []E, n int) []E {
	if cap(s) < n {
		return make([]E, n)
	}
	return s[:n]
}

// ScanTypeIs reports whether the driver scans column i as exactly U. Such a
// column can be read into a sql.Null[U] holder without conversion.
func ScanTypeIs[U any](types []*sql.ColumnType, i int) bool {
	if i >= len(types) || types[i] == nil {
		return false
	}
	return types[i].ScanType() == reflect.TypeFor[U]()
}

// Convert converts a scanned value to T with the conversion rules of
// database/sql. SQL NULL converts to the zero value.
func Convert[T any](src any) (T, error) {
	if v, ok := src.(T); ok {
		return v, nil
	}
	var n sql.Null[T]
	if err := n.Scan(src); err != nil {
		return n.V, err
	}
	return n.V, nil
}

// ScalarReader reads the first column of every row as T. The remaining
// columns are discarded.
type ScalarReader[T any] struct {
	ScanState
	column string
}

// NewScalarReader returns a reader of first-column values.
func NewScalarReader[T any]() RowReader[T] {
	return &ScalarReader[T]{}
}

func (r *ScalarReader[T]) Tokenize(columns []string, _ []*sql.ColumnType) error {
	if len(columns) == 0 {
		return ErrNoResultSet
	}
	r.Reset(columns)
	r.Tokens[0] = 0
	r.column = columns[0]
	return nil
}

func (r *ScalarReader[T]) Read(rows Rows) (T, error) {
	if err := r.Scan(rows); err != nil {
		var zero T
		return zero, err
	}
	v, err := Convert[T](r.Raw[0])
	if err != nil {
		return v, NewColumnError(r.column, reflect.TypeFor[T]().String(), err)
	}
	return v, nil
}
