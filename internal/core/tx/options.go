package tx

import (
	"errors"
	"time"

	"campus/internal/core/apperror"
)

// Options configures one transactional invocation. Zero value means
// REQUIRED propagation, backend-default isolation, read-write, no
// timeout and roll back on any error.
type Options struct {
	Propagation Propagation
	Isolation   IsolationLevel
	ReadOnly    bool

	// Timeout bounds the wrapped body via a context deadline. Exceeding
	// it yields ErrTimeout and the transaction is resolved through the
	// rollback policy like any other failure.
	Timeout time.Duration

	// NoRollbackOn is evaluated first: a matching error commits the
	// transaction despite the failure. RollbackOn is evaluated next and
	// forces a rollback. When neither matches, the default is rollback.
	RollbackOn   []RollbackRule
	NoRollbackOn []RollbackRule
}

// Option mutates Options in the functional-options style.
type Option func(*Options)

// WithPropagation selects the propagation level.
func WithPropagation(p Propagation) Option {
	return func(o *Options) { o.Propagation = p }
}

// WithIsolation requests an isolation level for newly opened
// transactions. Joined and nested calls ignore it.
func WithIsolation(l IsolationLevel) Option {
	return func(o *Options) { o.Isolation = l }
}

// WithReadOnly opens newly created transactions in read-only mode.
func WithReadOnly() Option {
	return func(o *Options) { o.ReadOnly = true }
}

// WithTimeout bounds the body execution by d.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// RollbackOn adds rules that force a rollback when matched.
func RollbackOn(rules ...RollbackRule) Option {
	return func(o *Options) { o.RollbackOn = append(o.RollbackOn, rules...) }
}

// NoRollbackOn adds rules that suppress the rollback (the transaction
// commits and the error is still returned to the caller).
func NoRollbackOn(rules ...RollbackRule) Option {
	return func(o *Options) { o.NoRollbackOn = append(o.NoRollbackOn, rules...) }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// shouldRollback resolves the rollback policy for err: deny-list
// first, then allow-list, then default rollback.
func (o Options) shouldRollback(err error) bool {
	for _, r := range o.NoRollbackOn {
		if r.Matches(err) {
			return false
		}
	}
	for _, r := range o.RollbackOn {
		if r.Matches(err) {
			return true
		}
	}
	return true
}

// RollbackRule classifies an error for rollback-policy evaluation.
type RollbackRule interface {
	Matches(err error) bool
}

type sentinelRule struct{ target error }

func (r sentinelRule) Matches(err error) bool { return errors.Is(err, r.target) }

// On matches errors wrapping the given sentinel (errors.Is).
func On(target error) RollbackRule { return sentinelRule{target: target} }

type typeRule[T error] struct{}

func (typeRule[T]) Matches(err error) bool {
	var t T
	return errors.As(err, &t)
}

// OnType matches errors assignable to the concrete type T (errors.As).
func OnType[T error]() RollbackRule { return typeRule[T]{} }

type codeRule struct{ code string }

func (r codeRule) Matches(err error) bool {
	appErr, ok := apperror.AsAppError(err)
	return ok && appErr.Code == r.code
}

// OnCode matches AppErrors carrying the given error code.
func OnCode(code string) RollbackRule { return codeRule{code: code} }
