package domain

import "errors"

// Business outcomes are values, not panics. Every operation returns exactly
// one of these (possibly wrapped) so callers can branch with errors.Is
// without matching message strings.
var (
	// ErrNotFound: unknown reservation or payment id.
	ErrNotFound = errors.New("not found")

	// ErrSlotUnavailable: the requested interval overlaps a non-cancelled
	// reservation on the same space and date. Retryable with another slot.
	ErrSlotUnavailable = errors.New("time slot unavailable")

	// ErrInvalidSpace: the referenced space does not exist or is inactive.
	ErrInvalidSpace = errors.New("invalid space")

	// ErrCannotDeletePaid: PAID payments are immutable.
	ErrCannotDeletePaid = errors.New("cannot delete paid payment")

	// ErrOverpayment: recording the payment would push the settled sum past
	// the reservation's committed total (only when the policy forbids it).
	ErrOverpayment = errors.New("payment exceeds remaining balance")

	// ErrReservationClosed: the reservation is CANCELLED, a terminal state.
	ErrReservationClosed = errors.New("reservation is cancelled")

	// ErrValidation: malformed or missing input, rejected before any store
	// access. Wrap with context: fmt.Errorf("%w: end before start", ErrValidation).
	ErrValidation = errors.New("validation failed")
)
