package sql

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/aotsql"
	"github.com/syssam/aotsql/dialect"
)

// TestOpenDB tests the OpenDB function with different dialects.
func TestOpenDB(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		dialect string
	}{
		{"Postgres", dialect.Postgres, dialect.Postgres},
		{"PGX", "pgx", dialect.Postgres},
		{"MySQL", dialect.MySQL, dialect.MySQL},
		{"SQLite", "sqlite", dialect.SQLite},
		{"Wrapped", "postgres+otel", dialect.Postgres},
		{"Unknown", "duckdb", "duckdb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.driver, db)
			assert.Same(t, db, drv.DB())
			assert.Equal(t, tt.dialect, drv.Dialect())
		})
	}
}

func TestDriverRendersDialectPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	for _, tt := range []struct {
		dialect string
		query   string
	}{
		{dialect.Postgres, "UPDATE users SET name = $1 WHERE id = $2 OR parent = $2"},
		{dialect.MySQL, "UPDATE users SET name = ? WHERE id = ? OR parent = ?"},
		{dialect.SQLServer, "UPDATE users SET name = @p1 WHERE id = @p2 OR parent = @p2"},
	} {
		t.Run(tt.dialect, func(t *testing.T) {
			drv := OpenDB(tt.dialect, db)
			exp := mock.ExpectExec(tt.query)
			if tt.dialect == dialect.MySQL {
				exp.WithArgs("ann", 1, 1)
			} else {
				exp.WithArgs("ann", 1)
			}
			exp.WillReturnResult(sqlmock.NewResult(0, 1))
			n, err := aotsql.Execute(ctx, drv, "UPDATE users SET name = @name WHERE id = @id OR parent = @id", map[string]any{
				"name": "ann",
				"id":   1,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// TestDriverTransaction tests transaction operations.
func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT name FROM users WHERE id = $1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice"))
		mock.ExpectCommit()

		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		assert.Equal(t, dialect.Postgres, tx.Dialect())
		name, err := aotsql.QueryFirst[string](ctx, tx, "SELECT name FROM users WHERE id = @id", 1)
		require.NoError(t, err)
		assert.Equal(t, "Alice", name)
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM users").WillReturnError(errors.New("constraint violation"))
		mock.ExpectRollback()

		tx, err := drv.BeginTx(ctx, &TxOptions{})
		require.NoError(t, err)
		_, err = aotsql.Execute(ctx, tx, "DELETE FROM users", nil)
		require.Error(t, err)
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin_error", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("no connection"))
		_, err := drv.Tx(ctx)
		require.Error(t, err)
	})
}

func TestDriverPin(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.MySQL, db)
	ctx := context.Background()
	conn, err := drv.Pin(ctx)
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, conn.Dialect())

	mock.ExpectExec("SET @@session.time_zone = ?").WithArgs("+00:00").WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = aotsql.Execute(ctx, conn, "SET @@session.time_zone = @tz", "+00:00")
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsConn(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	conn := NewStatsConn(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(time.Hour),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	assert.Equal(t, dialect.SQLite, conn.Dialect())
	assert.Equal(t, time.Hour, conn.SlowThreshold())

	ctx := context.Background()
	mock.ExpectQuery("SELECT id FROM users WHERE age > ?").
		WithArgs(30).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	ids, err := aotsql.Query[int64](ctx, conn, "SELECT id FROM users WHERE age > @age", struct{ Age int }{30})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	mock.ExpectExec("DELETE FROM users").WillReturnError(errors.New("locked"))
	_, err = aotsql.Execute(ctx, conn, "DELETE FROM users", nil)
	require.Error(t, err)

	conn.SetSlowThreshold(0)
	mock.ExpectExec("VACUUM").WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = aotsql.Execute(ctx, conn, "VACUUM", nil)
	require.NoError(t, err)

	s := conn.QueryStats().Stats()
	assert.Equal(t, int64(1), s.TotalQueries)
	assert.Equal(t, int64(2), s.TotalExecs)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(1), s.SlowQueries)
	assert.Equal(t, []string{"VACUUM"}, slow)
	assert.Contains(t, s.String(), "queries=1 execs=2")

	conn.QueryStats().Reset()
	assert.Zero(t, conn.QueryStats().Stats())
	assert.Zero(t, StatsSnapshot{}.AvgDuration())
}

func TestStatsConnSlowQueryLog(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	conn := NewStatsConn(OpenDB(dialect.SQLite, db), WithSlowThreshold(0), WithSlowQueryLog(zerolog.New(&buf)))
	mock.ExpectExec("DELETE FROM sessions").WillReturnResult(sqlmock.NewResult(0, 2))
	n, err := aotsql.Execute(context.Background(), conn, "DELETE FROM sessions", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"query":"DELETE FROM sessions"`)
	assert.Contains(t, buf.String(), `"message":"slow query detected"`)
}

func TestDebugConn(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	conn := NewDebugConn(OpenDB(dialect.Postgres, db), zerolog.New(&buf).Level(zerolog.DebugLevel))
	assert.Equal(t, dialect.Postgres, conn.Dialect())

	mock.ExpectQuery("SELECT name FROM users WHERE id = $1").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Carol"))
	name, err := aotsql.QueryFirstOrDefault[string](context.Background(), conn, "SELECT name FROM users WHERE id = @id", 3)
	require.NoError(t, err)
	assert.Equal(t, "Carol", name)
	assert.Contains(t, buf.String(), `"query":"SELECT name FROM users WHERE id = $1"`)
	assert.Contains(t, buf.String(), `"message":"query"`)

	// Unwrapped connections have no dialect and get named arguments.
	plain := NewDebugConn(db, zerolog.Nop())
	assert.Empty(t, plain.Dialect())
}
