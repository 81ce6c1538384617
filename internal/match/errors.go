package match

import (
	"errors"
	"fmt"
)

// Error is a protocol error. Its text is the code sent to clients.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNoRoom           Error = "NO_ROOM"
	ErrRoomFull         Error = "ROOM_FULL"
	ErrAlreadyStarted   Error = "ALREADY_STARTED"
	ErrNotInRoom        Error = "NOT_IN_ROOM"
	ErrNotStarted       Error = "NOT_STARTED"
	ErrNotYourTurn      Error = "NOT_YOUR_TURN"
	ErrInvalidMove      Error = "INVALID_MOVE"
	ErrPawnAlreadyMoved Error = "PAWN_ALREADY_MOVED"
	ErrInvalidCoords    Error = "INVALID_COORDS"

	ErrUnknownEvent Error = "UNKNOWN_EVENT"
	ErrRateLimited  Error = "RATE_LIMITED"
	ErrDisabled     Error = "DISABLED"
	ErrInternal     Error = "INTERNAL"
)

// ErrCodeExhausted is returned when every generated room code was already taken.
var ErrCodeExhausted = fmt.Errorf("%w: room code space exhausted", ErrInternal)

// TurnError is NOT_YOUR_TURN with the slot that is actually on move.
type TurnError struct {
	CurrentTurn Slot
}

func (e *TurnError) Error() string { return string(ErrNotYourTurn) }

func (e *TurnError) Unwrap() error { return ErrNotYourTurn }

// Code maps err to its wire code. Anything that is not a protocol error is INTERNAL.
func Code(err error) string {
	var me Error
	if errors.As(err, &me) {
		return string(me)
	}
	return string(ErrInternal)
}
