// Package engine implements the admission allocation core: the one-pass
// initial allocation and the cascading upgrade-and-fill reallocation that
// keeps assignments consistent as withdrawals and capacity changes arrive.
package engine

import "errors"

// ErrInvalidCapacityDelta is returned by AddCapacity for a zero or negative
// delta. Capacity never shrinks through this path; shrinking while seats are
// occupied is undefined. Handlers should translate this into an HTTP 400
// response.
var ErrInvalidCapacityDelta = errors.New("capacity delta must be positive")

// ErrUnknownSeatType is returned when a seat type is neither OPEN nor one of
// the reserved categories.
var ErrUnknownSeatType = errors.New("unknown seat type")

// ErrCandidateNotFound is returned by Withdraw for an unknown candidate id.
// The queue consumer treats it as a no-op so duplicate withdrawal events stay
// idempotent; the HTTP layer surfaces it as a 404.
var ErrCandidateNotFound = errors.New("candidate not found")

// ErrAlreadyAllocated is returned when InitialAllocate is invoked twice on
// the same engine instance.
var ErrAlreadyAllocated = errors.New("initial allocation already performed")
