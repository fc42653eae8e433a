package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrInvalidNotification indicates that the notification is nil or lacks
	// an id or a target user.
	ErrInvalidNotification = errors.New("invalid notification")

	// ErrChannelResolution indicates that the enabled channels of the target
	// user could not be resolved. No channel was attempted.
	ErrChannelResolution = errors.New("resolve notification channels")

	// ErrDispatchPanic indicates that a whole-notification dispatch panicked.
	ErrDispatchPanic = errors.New("notification dispatch panicked")

	// ErrAttemptTimeout indicates that a channel adapter did not return within
	// the per-attempt timeout.
	ErrAttemptTimeout = errors.New("channel delivery timed out")
)
