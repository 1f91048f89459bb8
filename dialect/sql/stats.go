package sql

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/syssam/aotsql"
)

// QueryStats holds command execution statistics.
type QueryStats struct {
	// TotalQueries is the number of commands run through QueryContext.
	TotalQueries atomic.Int64
	// TotalExecs is the number of commands run through ExecContext.
	TotalExecs atomic.Int64
	// TotalDuration is the time spent issuing commands, in nanoseconds.
	// Row reading after QueryContext returns is not included.
	TotalDuration atomic.Int64
	// SlowQueries is the count of commands exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of failed commands.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of command statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgDuration returns the average command duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is called when a command exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsConn wraps an aotsql connection with statistics collection. It
// keeps the dialect of the wrapped connection.
type StatsConn struct {
	aotsql.Conn
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures a StatsConn.
type StatsOption func(*StatsConn)

// WithSlowThreshold sets the threshold for slow command detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsConn) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback for slow commands.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsConn) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow commands as warnings to log.
func WithSlowQueryLog(log zerolog.Logger) StatsOption {
	return WithSlowQueryHook(func(_ context.Context, query string, args []any, duration time.Duration) {
		log.Warn().
			Dur("duration", duration).
			Str("query", query).
			Int("args", len(args)).
			Msg("slow query detected")
	})
}

// NewStatsConn wraps conn with statistics collection.
//
//	drv, _ := sql.Open("sqlite", dsn)
//	conn := sql.NewStatsConn(drv, sql.WithSlowThreshold(200*time.Millisecond))
//	users, err := aotsql.Query[User](ctx, conn, "SELECT * FROM users", nil)
//	fmt.Println(conn.QueryStats().Stats())
func NewStatsConn(conn aotsql.Conn, opts ...StatsOption) *StatsConn {
	s := &StatsConn{
		Conn:          conn,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the statistics collected so far.
func (c *StatsConn) QueryStats() *QueryStats {
	return c.stats
}

// SlowThreshold returns the current slow command threshold.
func (c *StatsConn) SlowThreshold() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slowThreshold
}

// SetSlowThreshold updates the slow command threshold.
func (c *StatsConn) SetSlowThreshold(threshold time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slowThreshold = threshold
}

// Dialect returns the dialect of the wrapped connection, if any.
func (c *StatsConn) Dialect() string {
	return dialectOf(c.Conn)
}

// QueryContext runs a command that returns rows and records statistics.
func (c *StatsConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := c.Conn.QueryContext(ctx, query, args...)
	c.record(ctx, query, args, start, err, true)
	return rows, err
}

// ExecContext runs a command and records statistics.
func (c *StatsConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := c.Conn.ExecContext(ctx, query, args...)
	c.record(ctx, query, args, start, err, false)
	return res, err
}

func (c *StatsConn) record(ctx context.Context, query string, args []any, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		c.stats.TotalQueries.Add(1)
	} else {
		c.stats.TotalExecs.Add(1)
	}
	c.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		c.stats.Errors.Add(1)
	}

	c.mu.RLock()
	threshold := c.slowThreshold
	hook := c.slowHook
	c.mu.RUnlock()

	if duration > threshold {
		c.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, query, args, duration)
		}
	}
}

// DebugConn wraps an aotsql connection and logs every command at debug level.
type DebugConn struct {
	aotsql.Conn
	log zerolog.Logger
}

// NewDebugConn wraps conn with debug logging to log.
func NewDebugConn(conn aotsql.Conn, log zerolog.Logger) *DebugConn {
	return &DebugConn{Conn: conn, log: log}
}

// Dialect returns the dialect of the wrapped connection, if any.
func (c *DebugConn) Dialect() string {
	return dialectOf(c.Conn)
}

// QueryContext logs and runs a command that returns rows.
func (c *DebugConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.log.Debug().Str("query", query).Interface("args", args).Msg("query")
	return c.Conn.QueryContext(ctx, query, args...)
}

// ExecContext logs and runs a command.
func (c *DebugConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.log.Debug().Str("query", query).Interface("args", args).Msg("exec")
	return c.Conn.ExecContext(ctx, query, args...)
}

func dialectOf(conn aotsql.Conn) string {
	if d, ok := conn.(aotsql.Dialecter); ok {
		return d.Dialect()
	}
	return ""
}

var (
	_ aotsql.Dialecter = (*StatsConn)(nil)
	_ aotsql.Dialecter = (*DebugConn)(nil)
)
