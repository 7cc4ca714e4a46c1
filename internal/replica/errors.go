package replica

import "errors"

// Sentinel errors returned by Engine methods. The HTTP surface maps each of
// these to a status code in exactly one place (internal/api), rather than
// every call site choosing its own status.
var (
	// ErrKeyTooLong is returned when a key exceeds store.MaxKeyLength.
	ErrKeyTooLong = errors.New("key exceeds maximum length")
	// ErrKeyNotFound is returned by Get/Delete when the key is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCausalPending is returned when cc or cd fails: the caller's
	// declared causal context exceeds what this replica has observed, or a
	// peer message arrived out of causal order. The caller is expected to
	// retry.
	ErrCausalPending = errors.New("causal dependencies not yet satisfied")
	// ErrReplicaUnknown is returned by DepartView when the replica is not
	// a member.
	ErrReplicaUnknown = errors.New("replica not found in view")
)
