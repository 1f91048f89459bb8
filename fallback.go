package aotsql

import (
	"context"
	"database/sql"
	"iter"
	"reflect"
	"sync"

	"github.com/syssam/aotsql/accessor"
	"github.com/syssam/aotsql/dialect"
	"github.com/syssam/aotsql/sqlshape"
	"github.com/syssam/aotsql/token"
)

// Fallback runs a call with reflection. Generated handlers call it when the
// parameter bag does not have the type seen at generation time.
type Fallback[T any] struct {
	cmd      *Command
	strategy Strategy
}

// NewFallback classifies query, binds params by reflection and resolves
// the strategy for in. The element shape and the command flags of in are
// filled from T and the classified text.
func NewFallback[T any](conn Conn, query string, params any, in Input) (*Fallback[T], error) {
	shape := sqlshape.Lookup(query)
	in.Shape = shape.Flags
	in.Elem = ElemShapeOf(reflect.TypeFor[T]())
	s, err := Resolve(in)
	if err != nil {
		return nil, err
	}
	cmd := Prepare(shape, StyleOf(conn))
	if err := BindReflect(cmd, shape, params); err != nil {
		return nil, err
	}
	return &Fallback[T]{cmd: cmd, strategy: s}, nil
}

// Command returns the bound command.
func (f *Fallback[T]) Command() *Command { return f.cmd }

// Strategy returns the resolved strategy.
func (f *Fallback[T]) Strategy() Strategy { return f.strategy }

// Exec executes the command for its affected-row count.
func (f *Fallback[T]) Exec(ctx context.Context, conn Conn) (int64, error) {
	return ExecCommand(ctx, conn, f.cmd)
}

// All reads every row.
func (f *Fallback[T]) All(ctx context.Context, conn Conn) ([]T, error) {
	return QueryRows(ctx, conn, f.cmd, f.strategy, ReaderFor[T]())
}

// Iter yields rows lazily.
func (f *Fallback[T]) Iter(ctx context.Context, conn Conn) iter.Seq2[T, error] {
	return IterRows(ctx, conn, f.cmd, f.strategy, ReaderFor[T])
}

// Stream sends rows on a channel.
func (f *Fallback[T]) Stream(ctx context.Context, conn Conn) <-chan Row[T] {
	return StreamRows(ctx, conn, f.cmd, f.strategy, ReaderFor[T])
}

// One reads a single row or scalar according to the strategy.
func (f *Fallback[T]) One(ctx context.Context, conn Conn) (T, error) {
	switch f.strategy.Kind {
	case KindExecute:
		return AffectedAs[T](ctx, conn, f.cmd)
	case KindExecuteScalar, KindScalar:
		return QueryScalarValue[T](ctx, conn, f.cmd, f.strategy)
	}
	return QueryOneRow(ctx, conn, f.cmd, f.strategy, ReaderFor[T]())
}

// StyleOf returns the placeholder style used for conn: the style of its
// dialect, or named arguments.
func StyleOf(conn Conn) dialect.Placeholder {
	if d, ok := conn.(Dialecter); ok {
		return dialect.PlaceholderFor(d.Dialect())
	}
	return dialect.Named
}

// ElemShapeOf classifies a row type.
func ElemShapeOf(t reflect.Type) ElemShape {
	var e ElemShape
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		e.Reference = true
	}
	e.Scalar = isScalar(t) || t.Kind() == reflect.Interface
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		e.Integer = true
	}
	return e
}

// isScalar reports whether values of t are read from the first column
// only: basic kinds, byte slices, time.Time, scanners and pointers to them.
func isScalar(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType, isScanner(t):
		return true
	case t.Kind() == reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	case t.Kind() == reflect.Struct:
		return false
	}
	return bindableKind(t.Kind())
}

func bindableKind(k reflect.Kind) bool {
	switch k {
	case reflect.Func, reflect.Chan, reflect.Map, reflect.Interface, reflect.UnsafePointer,
		reflect.Struct, reflect.Array, reflect.Complex64, reflect.Complex128:
		return false
	}
	return true
}

// ReaderFor returns the reflection-based reader of T.
func ReaderFor[T any]() RowReader[T] {
	if ElemShapeOf(reflect.TypeFor[T]()).Scalar {
		return NewScalarReader[T]()
	}
	return newReflectReader[T]()
}

// rowModel is the bindable member table of a struct row type.
type rowModel struct {
	typ     reflect.Type
	dynamic accessor.Dynamic
	// members maps token members to accessor indexes.
	members []int
	names   []string
	table   *token.Table
}

var models sync.Map // reflect.Type -> *rowModel

func modelOf(t reflect.Type) *rowModel {
	if m, ok := models.Load(t); ok {
		return m.(*rowModel)
	}
	m := &rowModel{typ: t, dynamic: accessor.ReflectType(t)}
	for i := range m.dynamic.MemberCount() {
		mt, _ := m.dynamic.Type(i)
		if !isScalar(mt) {
			continue
		}
		name, _ := m.dynamic.Name(i)
		m.members = append(m.members, i)
		m.names = append(m.names, name)
	}
	m.table, _ = token.NewTable(m.names)
	v, _ := models.LoadOrStore(t, m)
	return v.(*rowModel)
}

// reflectReader assigns columns to the members of a struct T, or of the
// struct T points to, with reflection.
type reflectReader[T any] struct {
	ScanState
	model *rowModel
	ptr   bool
}

func newReflectReader[T any]() *reflectReader[T] {
	t := reflect.TypeFor[T]()
	r := &reflectReader[T]{}
	if t.Kind() == reflect.Pointer {
		r.ptr, t = true, t.Elem()
	}
	r.model = modelOf(t)
	return r
}

func (r *reflectReader[T]) Tokenize(columns []string, types []*sql.ColumnType) error {
	r.Reset(columns)
	n := len(r.model.members)
	for i, name := range columns {
		m := r.model.table.Resolve(name)
		if m == token.Skip {
			continue
		}
		mt, _ := r.model.dynamic.Type(r.model.members[m])
		if i >= len(types) || types[i] == nil || types[i].ScanType() != mt {
			m += n
		}
		r.Tokens[i] = m
	}
	return nil
}

func (r *reflectReader[T]) Read(rows Rows) (T, error) {
	var out T
	if err := r.Scan(rows); err != nil {
		return out, err
	}
	obj := reflect.New(r.model.typ)
	v := obj.Elem()
	n := len(r.model.members)
	for i, tok := range r.Tokens {
		if tok == token.Skip || r.Raw[i] == nil {
			continue
		}
		m := tok
		if m >= n {
			m -= n
		}
		idx := r.model.members[m]
		if tok < n {
			if f, err := r.model.dynamic.Field(v, idx); err == nil {
				if src := reflect.ValueOf(r.Raw[i]); src.Type() == f.Type() {
					f.Set(src)
					continue
				}
			}
		}
		if err := r.model.dynamic.Assign(v, idx, r.Raw[i]); err != nil {
			return out, NewColumnError(r.Columns[i], r.model.names[m], err)
		}
	}
	if r.ptr {
		return obj.Interface().(T), nil
	}
	return v.Interface().(T), nil
}
