package domain

import "errors"

// Error kinds for the booking and inventory paths. Callers branch with
// errors.Is; concrete messages are wrapped around these sentinels with %w.
var (
	// ErrValidation: malformed or inconsistent request, fixed by the caller.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound: missing flight, itinerary or airline.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientCapacity: seat reservation rejected; never auto-retried.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrCancellationNotAllowed: cancellation policy window has lapsed.
	ErrCancellationNotAllowed = errors.New("cancellation not allowed")

	// ErrInventoryUnreachable: the inventory boundary could not be reached
	// after bounded retries; the booking fails, it never proceeds unreserved.
	ErrInventoryUnreachable = errors.New("inventory service unreachable")
)
