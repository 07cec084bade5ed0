package scheduler

import "errors"

// Sentinel errors for scheduler operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, scheduler.ErrSuperseded) {
//	    // A newer session took over; not a failure
//	}
var (
	// ErrSuperseded indicates an in-flight transmission or hold was cut
	// short because a newer session took over the radio. This is a
	// distinct outcome from success so callers can tell "finished" from
	// "preempted", but it is not a fault.
	ErrSuperseded = errors.New("scheduler: superseded by newer session")

	// ErrRadioUnavailable indicates the radio never confirmed the
	// broadcast started within the timeout. Local to one transmission;
	// the scheduler remains usable.
	ErrRadioUnavailable = errors.New("scheduler: radio unavailable")
)
