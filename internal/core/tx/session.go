package tx

import (
	"context"
	"time"
)

// BeginOptions configures a newly opened transaction.
type BeginOptions struct {
	Isolation IsolationLevel
	ReadOnly  bool

	// StatementTimeout bounds individual statements inside the
	// transaction (SET LOCAL statement_timeout on PostgreSQL).
	StatementTimeout time.Duration
}

// Session is the unit of work handed out by a SessionProvider. It owns
// one underlying connection on which a single transaction (plus
// savepoints) can be open at a time.
//
// The manager is the only caller of these methods; repositories reach
// the session through the ambient transaction context instead.
type Session interface {
	Begin(ctx context.Context, opts BeginOptions) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	Savepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
}

// SessionProvider yields sessions on demand and disposes them on
// release. The postgres implementation hands out pooled connections.
type SessionProvider interface {
	Acquire(ctx context.Context) (Session, error)
	Release(ctx context.Context, s Session) error
}

// IsolationSupport is optionally implemented by sessions whose backend
// cannot honor every isolation level. When a requested level is
// unsupported the manager drops the directive instead of failing.
type IsolationSupport interface {
	SupportsIsolation(level IsolationLevel) bool
}
