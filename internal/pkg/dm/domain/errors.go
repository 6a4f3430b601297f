package dm

import "errors"

// Domain-level errors for direct messaging behaviors.
var (
	// ErrBackendUnavailable marks a transient transport or service failure at
	// the data store. The attempt may be retried by the caller.
	ErrBackendUnavailable = errors.New("dm: backend unavailable")

	// ErrBackendRejected marks a constraint or validation failure at the data
	// store. Retrying the same operation will not help.
	ErrBackendRejected = errors.New("dm: backend rejected operation")

	// ErrInvalidParticipants marks a resolve attempt with missing or
	// non-distinct user ids.
	ErrInvalidParticipants = errors.New("dm: conversation requires two distinct users")

	// ErrEmptyBody marks a send whose body is empty after trimming.
	ErrEmptyBody = errors.New("dm: message body is empty")
)
