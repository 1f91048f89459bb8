// Package aotsql is the runtime of the aotsql code generator.
//
// Application code calls the entry points of this package:
//
//	users, err := aotsql.Query[User](ctx, db,
//	    "SELECT id, name FROM users WHERE org = @org", struct{ Org int32 }{org})
//
// Without generated code every call runs the reflection-based path: the
// command text is classified, markers are bound from the parameter bag by
// name and result columns are routed to struct members through a hashed
// token table. Running the aotsqlgen tool on the package emits, for each
// call it can specialize, a handler with the command pre-rendered and a
// row reader that dispatches columns with a switch on constant hashes.
// Generated handlers register themselves in init against the file and line
// of the call; the entry point looks them up by its caller and runs them
// instead. Both paths pick the same strategy and fail the same way.
package aotsql

import (
	"context"
	"database/sql"
)

// Conn is the connection capability the runtime needs. *sql.DB, *sql.Tx
// and *sql.Conn implement it.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Rows is the cursor capability the runtime reads from. *sql.Rows implements it.
type Rows interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

// Dialecter is implemented by connections that know their SQL dialect.
// The runtime path renders markers in the dialect's placeholder style;
// other connections receive named arguments.
type Dialecter interface {
	Dialect() string
}

// ParameterBinder is implemented by connections whose driver wants typed
// parameter values, e.g. to honor size or precision. The returned value
// replaces Parameter.Value.
type ParameterBinder interface {
	BindParameter(p Parameter) any
}
