package domain

import "errors"

// Pipeline error taxonomy. Validation rejections are terminal and never
// surfaced to the offending client; consumer-side failures are the only class
// that blocks offset commits and triggers broker redelivery.
var (
	// ErrAuthRejected: the session has no bound identity.
	ErrAuthRejected = errors.New("no identity bound to session")

	// ErrIdentitySpoofRejected: the claimed sender does not match the
	// session's bound identity.
	ErrIdentitySpoofRejected = errors.New("claimed sender does not match bound identity")

	// ErrPublishFailure: the event could not be handed to the log; the caller
	// must treat the action as possibly-not-delivered.
	ErrPublishFailure = errors.New("event publish failed")

	// ErrCacheUnavailable: cache reads/writes are best effort; callers
	// degrade to empty results rather than failing the pipeline.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrPersistenceFailure: blocks offset acknowledgment so the record is
	// redelivered.
	ErrPersistenceFailure = errors.New("persistence failed")
)
