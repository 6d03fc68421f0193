package tx

// Propagation controls how a transactional call relates to an already
// active transaction, mirroring the classic Spring propagation levels.
type Propagation int

const (
	// Required joins the active transaction through a savepoint, or
	// starts a new one when none is active. This is the default.
	Required Propagation = iota

	// RequiresNew suspends any active transaction and always starts an
	// independent one on its own session.
	RequiresNew

	// Mandatory joins the active transaction and fails with
	// ErrTransactionRequired when none is active.
	Mandatory

	// Never fails with ErrTransactionNotAllowed when a transaction is
	// active, otherwise runs without one.
	Never

	// Supports joins the active transaction when present, otherwise
	// runs without one.
	Supports

	// NotSupported suspends any active transaction and runs without one.
	NotSupported
)

func (p Propagation) String() string {
	switch p {
	case Required:
		return "REQUIRED"
	case RequiresNew:
		return "REQUIRES_NEW"
	case Mandatory:
		return "MANDATORY"
	case Never:
		return "NEVER"
	case Supports:
		return "SUPPORTS"
	case NotSupported:
		return "NOT_SUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// IsolationLevel selects the isolation of a newly opened transaction.
// It is applied only when a new underlying transaction is started
// (top-level or RequiresNew) and is never inherited by nested calls.
type IsolationLevel int

const (
	// IsolationDefault leaves the backend's default isolation in place.
	IsolationDefault IsolationLevel = iota
	ReadUncommitted
	ReadCommitted
	RepeatableRead
	Serializable
)

func (l IsolationLevel) String() string {
	switch l {
	case ReadUncommitted:
		return "READ UNCOMMITTED"
	case ReadCommitted:
		return "READ COMMITTED"
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return "DEFAULT"
	}
}
