package usersession

type (
	// WriteStatus is the outcome of a write operation.
	WriteStatus int

	// ReadStatus is the outcome of a lookup.
	ReadStatus int

	// WriteResult reports the outcome of a write. Callers switch on Status;
	// Err carries the underlying cause for every status but Success.
	WriteResult struct {
		Status WriteStatus
		// Affected is the number of records matched (UpdateUserPreferences) or
		// deleted (DeleteUser, DeleteUserSessions). It is zero for inserts
		// and upserts.
		Affected int64
		Err      error
	}

	// Lookup reports the outcome of a read. Value is meaningful only when
	// Status is Found.
	Lookup[T any] struct {
		Status ReadStatus
		Value  T
		Err    error
	}
)

// The zero WriteStatus and ReadStatus are deliberately not valid outcomes so an
// uninitialized result is never mistaken for success or absence.
const (
	// Success indicates the write was applied.
	Success WriteStatus = iota + 1
	// Conflict indicates a record with the same unique key already exists.
	Conflict
	// TransientFailure indicates the storage backend failed; retrying may succeed.
	TransientFailure
	// ValidationFailure indicates the input was rejected before reaching storage.
	ValidationFailure
)

const (
	// Found indicates the record exists and is held in Lookup.Value.
	Found ReadStatus = iota + 1
	// NotFound indicates no record matched.
	NotFound
	// ReadFailure indicates the storage backend failed; retrying may succeed.
	ReadFailure
)

// OK reports whether the write succeeded.
func (r WriteResult) OK() bool { return r.Status == Success }

// OK reports whether the record was found.
func (l Lookup[T]) OK() bool { return l.Status == Found }

func (s WriteStatus) String() string {
	switch s {
	case Success:
		return "success"
	case Conflict:
		return "conflict"
	case TransientFailure:
		return "transient_failure"
	case ValidationFailure:
		return "validation_failure"
	default:
		return "unknown"
	}
}

func (s ReadStatus) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case ReadFailure:
		return "read_failure"
	default:
		return "unknown"
	}
}
