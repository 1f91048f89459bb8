package aotsql

import (
	"fmt"
	"strings"

	"github.com/syssam/aotsql/sqlshape"
)

// Kind is the row cardinality a call materializes.
type Kind uint8

// Materialization kinds.
const (
	KindExecute Kind = iota
	KindExecuteScalar
	KindSequence
	KindFirst
	KindFirstOrDefault
	KindSingle
	KindSingleOrDefault
	KindScalar
)

var kindNames = [...]string{
	KindExecute:         "Execute",
	KindExecuteScalar:   "ExecuteScalar",
	KindSequence:        "QuerySequence",
	KindFirst:           "QueryFirst",
	KindFirstOrDefault:  "QueryFirstOrDefault",
	KindSingle:          "QuerySingle",
	KindSingleOrDefault: "QuerySingleOrDefault",
	KindScalar:          "QueryScalar",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Async is the execution shape of a call.
type Async uint8

// Execution shapes.
const (
	// Sync blocks the caller until the result is materialized.
	Sync Async = iota
	// AsyncTask runs on its own goroutine and is awaited through *Task.
	AsyncTask
	// AsyncDeferred is awaited through *Task but runs inline on the first Wait.
	AsyncDeferred
	// AsyncStream yields rows over a channel fed by a producer goroutine.
	AsyncStream
)

var asyncNames = [...]string{
	Sync:          "sync",
	AsyncTask:     "task",
	AsyncDeferred: "deferred",
	AsyncStream:   "stream",
}

func (a Async) String() string {
	if int(a) < len(asyncNames) {
		return asyncNames[a]
	}
	return fmt.Sprintf("Async(%d)", a)
}

// RowKind is the single-row policy of a call.
type RowKind uint8

// Single-row policies. Automatic resolves to First for row types and to
// QueryScalar for scalar types.
const (
	Automatic RowKind = iota
	First
	FirstOrDefault
	Single
	SingleOrDefault
)

var rowKindNames = [...]string{
	Automatic:       "Automatic",
	First:           "First",
	FirstOrDefault:  "FirstOrDefault",
	Single:          "Single",
	SingleOrDefault: "SingleOrDefault",
}

func (k RowKind) String() string {
	if int(k) < len(rowKindNames) {
		return rowKindNames[k]
	}
	return fmt.Sprintf("RowKind(%d)", k)
}

// ParseRowKind parses a policy name, case-insensitively.
func ParseRowKind(s string) (RowKind, error) {
	for i, n := range rowKindNames {
		if strings.EqualFold(n, s) {
			return RowKind(i), nil
		}
	}
	return Automatic, fmt.Errorf("aotsql: unknown row kind %q", s)
}

// Verb is the family of entry point used at a call site.
type Verb uint8

// Entry point families.
const (
	VerbExecute Verb = iota
	VerbExecuteScalar
	VerbQuery
	VerbQueryRow
)

// Container is the shape that wraps the rows a call returns.
type Container uint8

// Result containers.
const (
	// ContainerValue is a single value: T.
	ContainerValue Container = iota
	// ContainerSlice is a buffered list: []T.
	ContainerSlice
	// ContainerIter is a lazy sequence: iter.Seq2[T, error].
	ContainerIter
	// ContainerStream is an asynchronous sequence: <-chan Row[T].
	ContainerStream
)

// ElemShape describes the row type T of a call.
type ElemShape struct {
	// Scalar is set for types read from the first column only.
	Scalar bool
	// Integer is set for integer scalars, which can carry an affected-row count.
	Integer bool
	// Reference is set for pointer, slice, map and interface types.
	Reference bool
}

// Input collects what is known about one call.
type Input struct {
	Verb      Verb
	Container Container
	Async     Async
	RowKind   RowKind
	Elem      ElemShape
	Shape     sqlshape.Flags
}

// Strategy is the materialization selected for one call.
type Strategy struct {
	Kind  Kind
	Async Async
	// Buffered is set when all rows are read before the call returns.
	Buffered bool
	// RuntimeCheck is set when the command may not produce a result set;
	// an absent result set then reads as zero rows.
	RuntimeCheck bool
}

// String returns e.g. "QuerySequence/task/buffered".
func (s Strategy) String() string {
	var b strings.Builder
	b.WriteString(s.Kind.String())
	b.WriteByte('/')
	b.WriteString(s.Async.String())
	if s.Kind == KindSequence {
		if s.Buffered {
			b.WriteString("/buffered")
		} else {
			b.WriteString("/unbuffered")
		}
	}
	if s.RuntimeCheck {
		b.WriteString("/checked")
	}
	return b.String()
}

// Resolve selects the strategy for a call. The async shape is carried
// through unchanged; it never alters the row cardinality.
func Resolve(in Input) (Strategy, error) {
	s := Strategy{Async: in.Async}
	if in.Container == ContainerStream {
		s.Async = AsyncStream
	}
	var (
		reliable = in.Shape.Has(sqlshape.Reliable)
		rows     = in.Shape.Has(sqlshape.ReturnsRows)
		maybe    = in.Shape.Has(sqlshape.MaybeQuery)
	)
	switch in.Verb {
	case VerbExecute:
		s.Kind = KindExecute
		return s, nil
	case VerbExecuteScalar:
		s.Kind = KindExecuteScalar
		s.RuntimeCheck = !rows
		return s, nil
	case VerbQuery, VerbQueryRow:
	default:
		return Strategy{}, &StrategyError{msg: fmt.Sprintf("unknown verb %d", in.Verb)}
	}
	switch in.Container {
	case ContainerSlice:
		s.Kind, s.Buffered = KindSequence, true
	case ContainerIter, ContainerStream:
		s.Kind = KindSequence
	case ContainerValue:
		if in.Elem.Scalar && reliable && !rows && !maybe {
			if !in.Elem.Integer {
				return Strategy{}, &StrategyError{msg: "command returns no rows; only an integer result can carry the affected-row count"}
			}
			s.Kind = KindExecute
			return s, nil
		}
		s.Buffered = true
		switch in.RowKind {
		case Automatic:
			s.Kind = KindFirst
			if in.Elem.Scalar {
				s.Kind = KindScalar
			}
		case First:
			s.Kind = KindFirst
		case FirstOrDefault:
			s.Kind = KindFirstOrDefault
		case Single:
			s.Kind = KindSingle
		case SingleOrDefault:
			s.Kind = KindSingleOrDefault
		default:
			return Strategy{}, &StrategyError{msg: fmt.Sprintf("unknown row kind %d", in.RowKind)}
		}
	default:
		return Strategy{}, &StrategyError{msg: fmt.Sprintf("unknown container %d", in.Container)}
	}
	s.RuntimeCheck = !rows
	return s, nil
}
