package rides

import "errors"

var (
	// Input errors, rejected before touching the store.
	ErrInvalidDestination = errors.New("destination must be airport or campus")
	ErrPastDeparture      = errors.New("departure time must be in the future")
	ErrHorizonExceeded    = errors.New("departure time is too far in the future")

	// Authorization errors, rejected before any mutation attempt.
	ErrForbidden = errors.New("only the ride creator may perform this action")
	ErrBanned    = errors.New("user is banned")

	// Conflict errors: a definitive rejection, never retried.
	ErrTooManyActiveRides      = errors.New("user already holds the maximum number of active rides")
	ErrConflictingRide         = errors.New("user already holds an active ride to this destination")
	ErrActiveCreatedRideExists = errors.New("user already created an active ride to this destination")
	ErrCreatorCannotLeave      = errors.New("creator cannot leave their own ride; delete it instead")
	ErrSelfKick                = errors.New("creator cannot kick themselves")
	ErrNotInRide               = errors.New("target user is not in this ride")
	ErrNotParticipant          = errors.New("user is not a participant of this ride")
	ErrInvalidState            = errors.New("ride is not in a state that allows this action")

	// ErrUnjoinable is deliberately generic: the join predicate is evaluated
	// atomically in the store, and the engine does not report which clause
	// failed.
	ErrUnjoinable = errors.New("unable to join: ride is full, locked, expired, or you are already a participant")

	ErrRideNotFound = errors.New("ride not found")
	ErrRideEnded    = errors.New("this ride is no longer active")

	// Chat input errors.
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = errors.New("message too long")
)
