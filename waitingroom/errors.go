package waitingroom

import "errors"

// Sentinel errors for waiting-room operations. Callers should use errors.Is
// to distinguish TimeOut (surfaced to the reducer as Request::TimedOut) from
// the others, which are merely logged (spec.md §7).
var (
	// ErrTimeOut means the URN's request has exceeded its age ceiling or
	// attempt limit; the entry is moved to the terminal TimedOut state.
	ErrTimeOut = errors.New("waiting room: request timed out")

	// ErrInvalidTransition means the operation does not apply to the
	// entry's current state (e.g. cloning a Cancelled entry).
	ErrInvalidTransition = errors.New("waiting room: invalid state transition")

	// ErrNotFound means no entry exists for the given URN.
	ErrNotFound = errors.New("waiting room: no entry for urn")
)
