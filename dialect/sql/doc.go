// Package sql binds database/sql handles to a dialect for the aotsql
// runtime.
//
// The aotsql entry points accept any value with ExecContext and
// QueryContext. Handles wrapped by this package additionally report their
// dialect, which selects how command markers are rendered on the
// reflection-based path:
//
//	drv, err := sql.Open("sqlite", "file:app.db")
//	if err != nil {
//	    return err
//	}
//	// "... WHERE id = @id" is sent as "... WHERE id = ?".
//	u, err := aotsql.QueryFirst[User](ctx, drv, "SELECT * FROM users WHERE id = @id", id)
//
// Transactions and pinned connections keep the dialect of their driver.
//
// # Instrumentation
//
// StatsConn counts commands, errors and slow commands; DebugConn logs
// every command with zerolog:
//
//	conn := sql.NewStatsConn(sql.NewDebugConn(drv, logger),
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(logger),
//	)
package sql
