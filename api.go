package aotsql

import (
	"context"
	"iter"
)

// The entry points below look up the handler generated for their caller
// and run it; without one they run the reflection-based path. They must
// not be inlined so that the caller's frame stays identifiable.

// Execute executes a command and returns the number of affected rows.
//
//go:noinline
func Execute(ctx context.Context, conn Conn, query string, params any, opts ...CallOption) (int64, error) {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(ExecHandler); ok {
			return h(ctx, conn, query, params)
		}
	}
	return RunExecute(ctx, conn, query, params)
}

// ExecuteScalar executes a command and returns the first column of the
// first row, or the zero value of T when there is no row.
//
//go:noinline
func ExecuteScalar[T any](ctx context.Context, conn Conn, query string, params any, opts ...CallOption) (T, error) {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(RowHandler[T]); ok {
			return h(ctx, conn, query, params)
		}
	}
	return RunRow[T](ctx, conn, query, params, Input{Verb: VerbExecuteScalar})
}

// Query reads all rows.
//
//go:noinline
func Query[T any](ctx context.Context, conn Conn, query string, params any, opts ...CallOption) ([]T, error) {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(SliceHandler[T]); ok {
			return h(ctx, conn, query, params)
		}
	}
	return RunQuery[T](ctx, conn, query, params)
}

// QueryIter returns a sequence that executes the command when ranged over
// and yields rows as they are read.
//
//go:noinline
func QueryIter[T any](ctx context.Context, conn Conn, query string, params any, opts ...CallOption) iter.Seq2[T, error] {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(IterHandler[T]); ok {
			return h(ctx, conn, query, params)
		}
	}
	return RunIter[T](ctx, conn, query, params)
}

// QueryRow reads one row with the row kind set by WithRowKind. Without it,
// row types read the first row and scalar types the first column of the
// first row.
//
//go:noinline
func QueryRow[T any](ctx context.Context, conn Conn, query string, params any, opts ...CallOption) (T, error) {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(RowHandler[T]); ok {
			return h(ctx, conn, query, params)
		}
	}
	c := newCallConfig(opts)
	return RunRow[T](ctx, conn, query, params, Input{Verb: VerbQueryRow, RowKind: c.rowKind})
}

// QueryFirst reads the first row. It fails with a *NotFoundError when
// there is none.
//
//go:noinline
func QueryFirst[T any](ctx context.Context, conn Conn, query string, params any, opts ...CallOption) (T, error) {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(RowHandler[T]); ok {
			return h(ctx, conn, query, params)
		}
	}
	return RunRow[T](ctx, conn, query, params, Input{Verb: VerbQueryRow, RowKind: First})
}

// QueryFirstOrDefault reads the first row, or returns the zero value.
//
//go:noinline
func QueryFirstOrDefault[T any](ctx context.Context, conn Conn, query string, params any, opts ...CallOption) (T, error) {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(RowHandler[T]); ok {
			return h(ctx, conn, query, params)
		}
	}
	return RunRow[T](ctx, conn, query, params, Input{Verb: VerbQueryRow, RowKind: FirstOrDefault})
}

// QuerySingle reads the only row. It fails with a *NotFoundError when
// there is none and with a *NotSingularError when there are more.
//
//go:noinline
func QuerySingle[T any](ctx context.Context, conn Conn, query string, params any, opts ...CallOption) (T, error) {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(RowHandler[T]); ok {
			return h(ctx, conn, query, params)
		}
	}
	return RunRow[T](ctx, conn, query, params, Input{Verb: VerbQueryRow, RowKind: Single})
}

// QuerySingleOrDefault reads the only row, or returns the zero value. It
// fails with a *NotSingularError when there is more than one row.
//
//go:noinline
func QuerySingleOrDefault[T any](ctx context.Context, conn Conn, query string, params any, opts ...CallOption) (T, error) {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(RowHandler[T]); ok {
			return h(ctx, conn, query, params)
		}
	}
	return RunRow[T](ctx, conn, query, params, Input{Verb: VerbQueryRow, RowKind: SingleOrDefault})
}

// ExecuteAsync is Execute run as a task.
//
//go:noinline
func ExecuteAsync(ctx context.Context, conn Conn, query string, params any, opts ...CallOption) *Task[int64] {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(TaskHandler[int64]); ok {
			return h(ctx, conn, query, params)
		}
	}
	return Start(ctx, newCallConfig(opts).async(), func(ctx context.Context) (int64, error) {
		return RunExecute(ctx, conn, query, params)
	})
}

// QueryAsync is Query run as a task.
//
//go:noinline
func QueryAsync[T any](ctx context.Context, conn Conn, query string, params any, opts ...CallOption) *Task[[]T] {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(TaskHandler[[]T]); ok {
			return h(ctx, conn, query, params)
		}
	}
	return Start(ctx, newCallConfig(opts).async(), func(ctx context.Context) ([]T, error) {
		return RunQuery[T](ctx, conn, query, params)
	})
}

// QueryRowAsync is QueryRow run as a task.
//
//go:noinline
func QueryRowAsync[T any](ctx context.Context, conn Conn, query string, params any, opts ...CallOption) *Task[T] {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(TaskHandler[T]); ok {
			return h(ctx, conn, query, params)
		}
	}
	c := newCallConfig(opts)
	return Start(ctx, c.async(), func(ctx context.Context) (T, error) {
		return RunRow[T](ctx, conn, query, params, Input{Verb: VerbQueryRow, RowKind: c.rowKind})
	})
}

// QueryStream sends rows on a channel fed by a producer goroutine. The
// channel is closed after the last row or the first error.
//
//go:noinline
func QueryStream[T any](ctx context.Context, conn Conn, query string, params any, opts ...CallOption) <-chan Row[T] {
	if intercepted.Load() {
		if h, ok := handlerAt(callerPC()).(StreamHandler[T]); ok {
			return h(ctx, conn, query, params)
		}
	}
	return RunStream[T](ctx, conn, query, params)
}

// Start runs fn as a task of the given async shape.
func Start[R any](ctx context.Context, a Async, fn func(context.Context) (R, error)) *Task[R] {
	if a == AsyncDeferred {
		return Defer(ctx, fn)
	}
	return Go(ctx, fn)
}

// RunExecute is the reflection-based path of Execute.
func RunExecute(ctx context.Context, conn Conn, query string, params any) (int64, error) {
	f, err := NewFallback[int64](conn, query, params, Input{Verb: VerbExecute})
	if err != nil {
		return 0, err
	}
	return f.Exec(ctx, conn)
}

// RunQuery is the reflection-based path of Query.
func RunQuery[T any](ctx context.Context, conn Conn, query string, params any) ([]T, error) {
	f, err := NewFallback[T](conn, query, params, Input{Verb: VerbQuery, Container: ContainerSlice})
	if err != nil {
		return nil, err
	}
	return f.All(ctx, conn)
}

// RunIter is the reflection-based path of QueryIter.
func RunIter[T any](ctx context.Context, conn Conn, query string, params any) iter.Seq2[T, error] {
	f, err := NewFallback[T](conn, query, params, Input{Verb: VerbQuery, Container: ContainerIter})
	if err != nil {
		return FailedIter[T](err)
	}
	return f.Iter(ctx, conn)
}

// RunStream is the reflection-based path of QueryStream.
func RunStream[T any](ctx context.Context, conn Conn, query string, params any) <-chan Row[T] {
	f, err := NewFallback[T](conn, query, params, Input{Verb: VerbQuery, Container: ContainerStream})
	if err != nil {
		return FailedStream[T](err)
	}
	return f.Stream(ctx, conn)
}

// RunRow is the reflection-based path of ExecuteScalar, QueryRow and its
// fixed-kind variants. in carries the verb and the row kind.
func RunRow[T any](ctx context.Context, conn Conn, query string, params any, in Input) (T, error) {
	in.Container = ContainerValue
	f, err := NewFallback[T](conn, query, params, in)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.One(ctx, conn)
}

// FailedIter returns a sequence that yields err once.
func FailedIter[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// FailedStream returns a closed channel holding one row with err.
func FailedStream[T any](err error) <-chan Row[T] {
	ch := make(chan Row[T], 1)
	ch <- Row[T]{Err: err}
	close(ch)
	return ch
}
