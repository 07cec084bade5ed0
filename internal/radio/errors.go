package radio

import "errors"

// Sentinel errors for radio operations.
var (
	// ErrClosed indicates an operation on a closed advertiser or broadcast.
	ErrClosed = errors.New("radio: closed")

	// ErrBroadcastActive indicates Open was called while a previous
	// broadcast from the same advertiser is still open.
	ErrBroadcastActive = errors.New("radio: broadcast already active")

	// ErrPayloadSize indicates a payload that does not match the fixed
	// manufacturer-data frame length.
	ErrPayloadSize = errors.New("radio: invalid payload size")
)
