package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus/internal/core/tx"
)

// Querier is the common query surface of pool, connection and
// transaction. Repositories depend on it and stay agnostic of whether
// a transaction is active.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Compile-time checks against the core contracts.
var (
	_ tx.Session          = (*Session)(nil)
	_ tx.SessionProvider  = (*SessionProvider)(nil)
	_ tx.IsolationSupport = (*Session)(nil)
)

// Session holds one pooled connection and at most one open transaction
// on it. It implements tx.Session; the transaction manager drives the
// lifecycle, repositories only see the Querier.
type Session struct {
	conn *pgxpool.Conn
	tx   pgx.Tx
}

// Begin opens a transaction with the requested isolation and access
// mode, then applies the statement timeout (SET LOCAL) when set.
func (s *Session) Begin(ctx context.Context, opts tx.BeginOptions) error {
	if s.tx != nil {
		return fmt.Errorf("transaction already open on session")
	}

	pgxOpts := pgx.TxOptions{IsoLevel: isoLevel(opts.Isolation)}
	if opts.ReadOnly {
		pgxOpts.AccessMode = pgx.ReadOnly
	}

	t, err := s.conn.BeginTx(ctx, pgxOpts)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if opts.StatementTimeout > 0 {
		_, err = t.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", opts.StatementTimeout.Milliseconds()))
		if err != nil {
			_ = t.Rollback(ctx)
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	s.tx = t
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("no open transaction on session")
	}
	err := s.tx.Commit(ctx)
	s.tx = nil
	return err
}

func (s *Session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("no open transaction on session")
	}
	err := s.tx.Rollback(ctx)
	s.tx = nil
	return err
}

func (s *Session) Savepoint(ctx context.Context, name string) error {
	_, err := s.tx.Exec(ctx, "SAVEPOINT "+name)
	return err
}

func (s *Session) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := s.tx.Exec(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

func (s *Session) RollbackToSavepoint(ctx context.Context, name string) error {
	_, err := s.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name)
	return err
}

// SupportsIsolation reports true for all standard levels: PostgreSQL
// accepts every one (READ UNCOMMITTED behaves as READ COMMITTED).
func (s *Session) SupportsIsolation(tx.IsolationLevel) bool { return true }

// Querier returns the open transaction, or the bare connection when no
// transaction has been started.
func (s *Session) Querier() Querier {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

func isoLevel(l tx.IsolationLevel) pgx.TxIsoLevel {
	switch l {
	case tx.ReadUncommitted:
		return pgx.ReadUncommitted
	case tx.ReadCommitted:
		return pgx.ReadCommitted
	case tx.RepeatableRead:
		return pgx.RepeatableRead
	case tx.Serializable:
		return pgx.Serializable
	default:
		return "" // backend default
	}
}

// SessionProvider hands out sessions backed by pooled connections.
type SessionProvider struct {
	pool *Pool
}

// NewSessionProvider creates a provider over the given pool.
func NewSessionProvider(pool *Pool) *SessionProvider {
	return &SessionProvider{pool: pool}
}

// Acquire checks a connection out of the pool.
func (p *SessionProvider) Acquire(ctx context.Context) (tx.Session, error) {
	conn, err := p.pool.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Release returns the connection to the pool. A transaction still open
// at this point means resolution failed upstream; it is rolled back so
// the connection goes back clean.
func (p *SessionProvider) Release(ctx context.Context, s tx.Session) error {
	sess, ok := s.(*Session)
	if !ok {
		return fmt.Errorf("unexpected session type %T", s)
	}
	if sess.tx != nil {
		_ = sess.tx.Rollback(ctx)
		sess.tx = nil
	}
	sess.conn.Release()
	return nil
}

// QuerierFrom returns the ambient transaction's querier when one is
// active on ctx, otherwise the pool. This lets repositories work both
// inside and outside transactions.
func QuerierFrom(ctx context.Context, pool *Pool) Querier {
	if s, err := tx.Current(ctx); err == nil {
		if ps, ok := s.(*Session); ok {
			return ps.Querier()
		}
	}
	return pool
}
