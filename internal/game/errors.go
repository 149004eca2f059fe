package game

import "errors"

// Rejected intents return one of these, wrapped with context
var (
	ErrWrongPhase        = errors.New("action not allowed in this phase")
	ErrNotYourTurn       = errors.New("not this player's turn")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrUnknownCard       = errors.New("unknown card")
	ErrCardNotInHand     = errors.New("card not in hand")
	ErrIllegalCard       = errors.New("card may not be played to this trick")
	ErrBidOutOfRange     = errors.New("bid out of range")
	ErrForbiddenBidTotal = errors.New("bid would make declared tricks equal cards dealt")
)

// ErrInvalidConfig is returned by SetupGame for a table that cannot be played
var ErrInvalidConfig = errors.New("invalid game configuration")

// ErrInvariant means the engine produced an inconsistent state. The
// candidate state is discarded.
var ErrInvariant = errors.New("game state invariant violated")
