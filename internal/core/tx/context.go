package tx

import (
	"context"
)

// txnKey is the context key for the ambient transaction.
type txnKey struct{}

// Txn is one frame of transaction state: the session it runs on, its
// nesting depth, the savepoint guarding it (empty for a top-level
// frame) and a rollback-only flag.
//
// The session is owned by the depth-0 frame that created it; nested
// frames borrow it and must never release it.
type Txn struct {
	session      Session
	depth        int
	savepoint    string
	rollbackOnly bool
}

// Session returns the borrowed or owned session of this frame.
func (t *Txn) Session() Session { return t.session }

// Depth returns the nesting depth (0 for a top-level transaction).
func (t *Txn) Depth() int { return t.depth }

// Savepoint returns the savepoint name guarding this frame, or "" for
// a top-level frame.
func (t *Txn) Savepoint() string { return t.savepoint }

// MarkRollbackOnly flags the frame so its outcome is a rollback even
// when the body completes normally.
func (t *Txn) MarkRollbackOnly() { t.rollbackOnly = true }

// RollbackOnly reports whether the frame was marked rollback-only.
func (t *Txn) RollbackOnly() bool { return t.rollbackOnly }

// From returns the ambient transaction frame, if any. A detached
// context (NOT_SUPPORTED, REQUIRES_NEW suspension) reports absence
// even when an outer frame exists further up the chain.
func From(ctx context.Context) (*Txn, bool) {
	t, ok := ctx.Value(txnKey{}).(*Txn)
	if !ok || t == nil {
		return nil, false
	}
	return t, true
}

// newContext derives a context carrying txn as the ambient frame.
func newContext(ctx context.Context, txn *Txn) context.Context {
	return context.WithValue(ctx, txnKey{}, txn)
}

// detach derives a context with no ambient frame, shadowing any outer
// one. The outer frame is untouched and becomes visible again when the
// derived context goes out of scope.
func detach(ctx context.Context) context.Context {
	return context.WithValue(ctx, txnKey{}, (*Txn)(nil))
}

// Current returns the session of the ambient transaction, or
// ErrNoTransaction when none is active.
func Current(ctx context.Context) (Session, error) {
	t, ok := From(ctx)
	if !ok {
		return nil, ErrNoTransaction
	}
	return t.session, nil
}

// IsActive reports whether a transaction is active on ctx.
func IsActive(ctx context.Context) bool {
	_, ok := From(ctx)
	return ok
}

// MarkRollbackOnly flags the ambient transaction for rollback. It
// returns ErrNoTransaction when no transaction is active.
func MarkRollbackOnly(ctx context.Context) error {
	t, ok := From(ctx)
	if !ok {
		return ErrNoTransaction
	}
	t.MarkRollbackOnly()
	return nil
}
