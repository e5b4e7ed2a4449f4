package eventstore

import "errors"

// Sentinel kinds for event store failures.
var (
	// ErrStorageUnavailable marks transient infrastructure failures.
	// Retrying the same submission is safe: no sequence number was
	// consumed when append fails.
	ErrStorageUnavailable = errors.New("event storage unavailable")

	// ErrSequenceGap means the appended sequence does not directly follow
	// the last stored one for that game.
	ErrSequenceGap = errors.New("non-contiguous sequence number")
)
