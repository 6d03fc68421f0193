// Package tx provides Spring-style declarative transaction management
// over a pluggable session provider: propagation levels, savepoint
// nesting, isolation/read-only/timeout options and rollback rules.
//
// Domain services depend on Manager and never touch sessions directly;
// repositories reach the ambient session through the request context.
// The actual session implementation lives in
// internal/infrastructure/storage/postgres.
package tx

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"campus/pkg/logger"
)

var tracer = otel.Tracer("campus/tx")

// Func is the body of a transactional invocation. The ambient
// transaction (if any) is reachable from ctx via Current.
type Func func(ctx context.Context) error

// Manager executes functions under managed transactions.
type Manager struct {
	provider SessionProvider
}

// NewManager creates a Manager over the given session provider.
func NewManager(provider SessionProvider) *Manager {
	return &Manager{provider: provider}
}

// Run executes fn under the transaction demanded by opts.
//
// The ambient state visible to fn depends on the propagation level:
// joined and nested calls see their parent's session, REQUIRES_NEW
// sees a fresh independent one, NEVER/NOT_SUPPORTED (and SUPPORTS
// without a parent) see none. Whatever happens inside fn, the caller's
// ambient state is unchanged when Run returns.
//
// Errors returned by fn are never swallowed: Run only decides whether
// to commit or roll back, then returns the original error.
func (m *Manager) Run(ctx context.Context, fn Func, opts ...Option) error {
	o := buildOptions(opts)

	ctx, span := tracer.Start(ctx, "tx.run",
		trace.WithAttributes(
			attribute.String("tx.propagation", o.Propagation.String()),
			attribute.String("tx.isolation", o.Isolation.String()),
		))
	defer span.End()

	parent, active := From(ctx)

	switch o.Propagation {
	case Mandatory:
		if !active {
			return ErrTransactionRequired
		}
		return m.execute(ctx, o, fn)

	case Never:
		if active {
			return ErrTransactionNotAllowed
		}
		return m.execute(ctx, o, fn)

	case NotSupported:
		if active {
			ctx = detach(ctx)
		}
		return m.execute(ctx, o, fn)

	case Supports:
		// Joins when active, otherwise runs without a transaction.
		// Either way the ambient state is already what fn should see.
		return m.execute(ctx, o, fn)

	case RequiresNew:
		return m.runNew(detach(ctx), o, fn)

	case Required:
		if active {
			return m.runNested(ctx, parent, o, fn)
		}
		return m.runNew(ctx, o, fn)

	default:
		return fmt.Errorf("unknown propagation level %d", o.Propagation)
	}
}

// runNew acquires a session, opens a top-level transaction and
// resolves it after the body runs. The session is released in a defer
// so cleanup happens even when commit or rollback fails.
func (m *Manager) runNew(ctx context.Context, o Options, fn Func) error {
	sess, err := m.provider.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	defer func() {
		if relErr := m.provider.Release(context.WithoutCancel(ctx), sess); relErr != nil {
			logger.Error(ctx, "session release failed", "error", relErr)
		}
	}()

	begin := BeginOptions{
		Isolation:        o.Isolation,
		ReadOnly:         o.ReadOnly,
		StatementTimeout: o.Timeout,
	}
	if begin.Isolation != IsolationDefault {
		if sup, ok := sess.(IsolationSupport); ok && !sup.SupportsIsolation(begin.Isolation) {
			logger.Debug(ctx, "isolation level not supported by backend, skipping",
				"level", begin.Isolation.String())
			begin.Isolation = IsolationDefault
		}
	}

	if err := sess.Begin(ctx, begin); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txn := &Txn{session: sess}
	err = m.execute(newContext(ctx, txn), o, fn)

	switch {
	case err == nil && !txn.rollbackOnly:
		if commitErr := sess.Commit(ctx); commitErr != nil {
			return fmt.Errorf("commit transaction: %w", commitErr)
		}
		return nil

	case err == nil:
		// Marked rollback-only: the body's result stands, the writes do not.
		if rbErr := sess.Rollback(context.Background()); rbErr != nil {
			return fmt.Errorf("rollback transaction: %w", rbErr)
		}
		return nil

	case o.shouldRollback(err):
		// Rollback on a background context so it completes even when
		// the original context was cancelled.
		if rbErr := sess.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err

	default:
		// Deny-list matched: commit despite the error, then re-raise it.
		if commitErr := sess.Commit(ctx); commitErr != nil {
			logger.Error(ctx, "commit after suppressed rollback failed",
				"error", commitErr, "original_error", err)
		}
		return err
	}
}

// runNested joins the parent transaction behind a savepoint, so a
// failure rolls back this frame alone and the parent stays
// committable. Isolation/read-only settings are not applied here.
func (m *Manager) runNested(ctx context.Context, parent *Txn, o Options, fn Func) error {
	sess := parent.session
	name := fmt.Sprintf("sp_%d", parent.depth+1)

	if err := sess.Savepoint(ctx, name); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}

	child := &Txn{session: sess, depth: parent.depth + 1, savepoint: name}
	err := m.execute(newContext(ctx, child), o, fn)

	switch {
	case err == nil && !child.rollbackOnly:
		if relErr := sess.ReleaseSavepoint(ctx, name); relErr != nil {
			return fmt.Errorf("release savepoint: %w", relErr)
		}
		return nil

	case err == nil:
		if rbErr := sess.RollbackToSavepoint(ctx, name); rbErr != nil {
			return fmt.Errorf("rollback to savepoint: %w", rbErr)
		}
		return nil

	case o.shouldRollback(err):
		if rbErr := sess.RollbackToSavepoint(context.Background(), name); rbErr != nil {
			logger.Error(ctx, "rollback to savepoint failed",
				"savepoint", name, "error", rbErr, "original_error", err)
		}
		return err

	default:
		if relErr := sess.ReleaseSavepoint(ctx, name); relErr != nil {
			logger.Error(ctx, "release savepoint after suppressed rollback failed",
				"savepoint", name, "error", relErr, "original_error", err)
		}
		return err
	}
}

// execute runs the body, applying the configured timeout. A body that
// outlives its deadline yields ErrTimeout so no commit can follow.
func (m *Manager) execute(ctx context.Context, o Options, fn Func) error {
	if o.Timeout <= 0 {
		return fn(ctx)
	}

	tctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	err := fn(tctx)
	if errors.Is(tctx.Err(), context.DeadlineExceeded) &&
		(err == nil || errors.Is(err, context.DeadlineExceeded)) {
		return fmt.Errorf("%w after %s", ErrTimeout, o.Timeout)
	}
	return err
}

// Wrap turns a value-returning function into a transactional callable
// with an identical signature. It is the composition form of Run for
// call sites that prefer wrapping over inline closures:
//
//	getUser := tx.Wrap(mgr, svc.loadUser, tx.WithReadOnly())
//	u, err := getUser(ctx)
func Wrap[T any](m *Manager, fn func(ctx context.Context) (T, error), opts ...Option) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var out T
		err := m.Run(ctx, func(ctx context.Context) error {
			var fnErr error
			out, fnErr = fn(ctx)
			return fnErr
		}, opts...)
		if err != nil {
			var zero T
			return zero, err
		}
		return out, nil
	}
}
