package tx

import "errors"

var (
	// ErrNoTransaction is returned by Current and MarkRollbackOnly when
	// no transaction is active on the calling context.
	ErrNoTransaction = errors.New("no active transaction")

	// ErrTransactionRequired reports a Mandatory call made outside any
	// transaction. It is raised before any session work happens.
	ErrTransactionRequired = errors.New("transaction required by MANDATORY propagation")

	// ErrTransactionNotAllowed reports a Never call made inside an
	// active transaction. It is raised before the body executes.
	ErrTransactionNotAllowed = errors.New("transaction not allowed by NEVER propagation")

	// ErrTimeout reports a body that exceeded its configured timeout.
	// It is subject to rollback-policy evaluation like any other error.
	ErrTimeout = errors.New("transaction timed out")
)
