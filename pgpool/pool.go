// Package pgpool wraps a pgxpool.Pool with the bounded-resource policy the
// service requires: a capped connection count, an idle timeout, and a
// statement_timeout applied to every checked-out connection so a recycled
// connection can never inherit an unbounded timeout from a prior request.
package pgpool

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config controls pool sizing and per-statement timeouts.
type Config struct {
	DatabaseURL      string
	MaxConns         int32
	MaxConnIdleTime  time.Duration
	StatementTimeout time.Duration
}

const (
	DefaultMaxConns         = 5
	DefaultMaxConnIdleTime  = 10 * time.Second
	DefaultStatementTimeout = 60 * time.Second
)

// Pool is the process-wide, shared connection pool. One Pool is created at
// startup and reused across every request.
type Pool struct {
	raw              *pgxpool.Pool
	statementTimeout time.Duration
}

// Open connects to cfg.DatabaseURL and configures the underlying pgxpool.Pool
// per cfg. It does not itself verify connectivity; call Ping for that.
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgpool: parse DATABASE_URL: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	idleTime := cfg.MaxConnIdleTime
	if idleTime <= 0 {
		idleTime = DefaultMaxConnIdleTime
	}
	stmtTimeout := cfg.StatementTimeout
	if stmtTimeout <= 0 {
		stmtTimeout = DefaultStatementTimeout
	}

	poolCfg.MaxConns = maxConns
	poolCfg.MaxConnIdleTime = idleTime

	raw, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgpool: open pool: %w", err)
	}

	return &Pool{raw: raw, statementTimeout: stmtTimeout}, nil
}

// Ping probes liveness with a bare SELECT 1, bounded by the pool's
// statement timeout. Used by the Coordinator's liveness check (§4.6 step 2).
func (p *Pool) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.statementTimeout)
	defer cancel()
	var one int
	row := p.raw.QueryRow(ctx, "SELECT 1")
	if err := row.Scan(&one); err != nil {
		return fmt.Errorf("pgpool: liveness probe failed: %w", err)
	}
	return nil
}

// Query acquires a connection, sets statement_timeout to the pool's
// configured value, runs sql, and returns the rows. The caller must Close
// the returned Rows on every exit path; doing so releases the connection
// back to the pool.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	conn, err := p.raw.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgpool: acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf("SET statement_timeout = %d", p.statementTimeout.Milliseconds())); err != nil {
		conn.Release()
		return nil, fmt.Errorf("pgpool: set statement_timeout: %w", err)
	}

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		conn.Release()
		return nil, err
	}
	return &releasingRows{Rows: rows, conn: conn}, nil
}

// StatementTimeout reports the configured per-statement deadline.
func (p *Pool) StatementTimeout() time.Duration { return p.statementTimeout }

// Stat exposes the underlying pool's current size/usage.
func (p *Pool) Stat() *pgxpool.Stat { return p.raw.Stat() }

// Close releases the pool's resources. Called once at process shutdown.
func (p *Pool) Close() { p.raw.Close() }

// releasingRows wraps pgx.Rows so Close both closes the row cursor and
// releases the underlying connection back to the pool, regardless of
// which exit path the caller takes (including a defer after a panic).
type releasingRows struct {
	pgx.Rows
	conn *pgxpool.Conn
}

func (r *releasingRows) Close() {
	r.Rows.Close()
	r.conn.Release()
}
