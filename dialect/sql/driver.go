package sql

import (
	"context"
	"database/sql"

	"github.com/syssam/aotsql"
	"github.com/syssam/aotsql/dialect"
)

// Driver is an aotsql connection bound to a database handle and its dialect.
// The runtime renders markers in the dialect's placeholder style.
type Driver struct {
	Conn
}

// NewDriver creates a new Driver with the given Conn.
func NewDriver(c Conn) *Driver {
	return &Driver{Conn: c}
}

// Open wraps database/sql.Open. The driver name doubles as the dialect name.
func Open(driverName, source string) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(driverName, db), nil
}

// OpenDB wraps the given database/sql.DB with a Driver.
func OpenDB(name string, db *sql.DB) *Driver {
	return NewDriver(Conn{ExecQuerier: db, dialect: name})
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (*Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{Conn: Conn{ExecQuerier: tx, dialect: d.dialect}, tx: tx}, nil
}

// Pin reserves a single pooled connection, e.g. to keep session state
// between commands. The returned connection must be closed.
func (d *Driver) Pin(ctx context.Context) (*PinnedConn, error) {
	c, err := d.DB().Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &PinnedConn{Conn: Conn{ExecQuerier: c, dialect: d.dialect}, conn: c}, nil
}

// Close closes the underlying database handle.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx is a transaction usable as an aotsql connection.
type Tx struct {
	Conn
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// PinnedConn is a single connection usable as an aotsql connection.
type PinnedConn struct {
	Conn
	conn *sql.Conn
}

// Close returns the connection to the pool.
func (c *PinnedConn) Close() error { return c.conn.Close() }

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn attaches a dialect name to an ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
}

// NewConn returns a Conn running commands on ex.
func NewConn(name string, ex ExecQuerier) Conn {
	return Conn{ExecQuerier: ex, dialect: name}
}

// Dialect returns the canonical dialect name, so wrapped driver names such
// as "postgres+otel" still select the right placeholder style.
func (c Conn) Dialect() string {
	if name := dialect.Canonical(c.dialect); name != "" {
		return name
	}
	return c.dialect
}

// TxOptions holds the transaction options to be used in DB.BeginTx.
type TxOptions = sql.TxOptions

var (
	_ aotsql.Conn      = (*Driver)(nil)
	_ aotsql.Dialecter = (*Driver)(nil)
	_ aotsql.Conn      = (*Tx)(nil)
	_ aotsql.Dialecter = (*PinnedConn)(nil)
)
