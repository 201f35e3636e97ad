package apperror

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExpired     = errors.New("room has expired")
	ErrRoomFull        = errors.New("room is full")
	ErrAlreadyInRoom   = errors.New("already in this room")
	ErrRoomIDExhausted = errors.New("could not generate a unique room id")
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidMove wraps every move legality failure below.
	ErrInvalidMove      = errors.New("invalid move")
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell index")

	ErrMalformedRequest = errors.New("malformed request")
)
