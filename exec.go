package aotsql

import (
	"context"
	"iter"
	"reflect"
)

// ExecCommand executes cmd and returns the number of affected rows, or -1
// when the driver cannot report it.
func ExecCommand(ctx context.Context, conn Conn, cmd *Command) (int64, error) {
	args, err := cmd.Args(conn)
	if err != nil {
		return 0, err
	}
	res, err := conn.ExecContext(ctx, cmd.Text, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return n, nil
}

func queryCommand(ctx context.Context, conn Conn, cmd *Command) (Rows, error) {
	args, err := cmd.Args(conn)
	if err != nil {
		return nil, err
	}
	return conn.QueryContext(ctx, cmd.Text, args...)
}

// open tokenizes the current result set. It reports false when the
// command produced no result set and the strategy reads that as no rows.
func open[T any](rows Rows, s Strategy, r RowReader[T]) (bool, error) {
	columns, err := rows.Columns()
	if err != nil {
		return false, err
	}
	if len(columns) == 0 {
		if s.RuntimeCheck {
			return false, nil
		}
		return false, ErrNoResultSet
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		types = nil
	}
	return true, r.Tokenize(columns, types)
}

// QueryRows reads every row of the first result set.
func QueryRows[T any](ctx context.Context, conn Conn, cmd *Command, s Strategy, r RowReader[T]) ([]T, error) {
	rows, err := queryCommand(ctx, conn, cmd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]T, 0)
	ok, err := open(rows, s, r)
	if err != nil || !ok {
		return out, err
	}
	for rows.Next() {
		v, err := r.Read(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// IterRows returns a sequence that executes cmd when ranged over and
// yields rows as they are read. Every iteration executes the command again
// with a reader from newReader. The cursor is closed when the loop ends.
func IterRows[T any](ctx context.Context, conn Conn, cmd *Command, s Strategy, newReader func() RowReader[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		rows, err := queryCommand(ctx, conn, cmd)
		if err != nil {
			yield(zero, err)
			return
		}
		defer rows.Close()
		r := newReader()
		ok, err := open(rows, s, r)
		if err != nil {
			yield(zero, err)
			return
		}
		if !ok {
			return
		}
		for rows.Next() {
			v, err := r.Read(rows)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, err)
		}
	}
}

// StreamRows executes cmd on a producer goroutine and sends every row on
// the returned channel, which is closed after the last row or the first
// error. Canceling ctx stops the producer and closes the cursor.
func StreamRows[T any](ctx context.Context, conn Conn, cmd *Command, s Strategy, newReader func() RowReader[T]) <-chan Row[T] {
	ch := make(chan Row[T])
	go func() {
		defer close(ch)
		for v, err := range IterRows(ctx, conn, cmd, s, newReader) {
			select {
			case ch <- Row[T]{Value: v, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// QueryOneRow reads at most one row according to the row kind of s.
// First and Single fail with a *NotFoundError when there is no row; the
// OrDefault kinds, ExecuteScalar and QueryScalar return the zero value.
// Single and SingleOrDefault fail with a *NotSingularError when a second
// row exists.
func QueryOneRow[T any](ctx context.Context, conn Conn, cmd *Command, s Strategy, r RowReader[T]) (T, error) {
	var zero T
	rows, err := queryCommand(ctx, conn, cmd)
	if err != nil {
		return zero, err
	}
	defer rows.Close()
	ok, err := open(rows, s, r)
	if err != nil {
		return zero, err
	}
	if !ok || !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		switch s.Kind {
		case KindFirst, KindSingle:
			return zero, NewNotFoundError(label[T]())
		}
		return zero, nil
	}
	v, err := r.Read(rows)
	if err != nil {
		return zero, err
	}
	if s.Kind == KindSingle || s.Kind == KindSingleOrDefault {
		if rows.Next() {
			return zero, NewNotSingularError(label[T](), 2)
		}
	}
	if err := rows.Err(); err != nil {
		return zero, err
	}
	return v, nil
}

// QueryScalarValue returns the first column of the first row as T, or the
// zero value when there is no row.
func QueryScalarValue[T any](ctx context.Context, conn Conn, cmd *Command, s Strategy) (T, error) {
	return QueryOneRow(ctx, conn, cmd, s, NewScalarReader[T]())
}

// AffectedAs executes cmd and returns the affected-row count as T, which
// must be an integer type.
func AffectedAs[T any](ctx context.Context, conn Conn, cmd *Command) (T, error) {
	n, err := ExecCommand(ctx, conn, cmd)
	if err != nil {
		var zero T
		return zero, err
	}
	return Convert[T](n)
}

func label[T any]() string {
	return reflect.TypeFor[T]().String()
}
