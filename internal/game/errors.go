// internal/game/errors.go
package game

import "errors"

// Errors returned by room and engine operations. All of them are reported back
// to the originating connection and never change room state.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrNameTaken          = errors.New("name already taken in this room")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrAlreadyStarted     = errors.New("game is already in progress")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrOutOfRange         = errors.New("cell out of range")
	ErrNotHost            = errors.New("only the host can start the game")
	ErrInvalidName        = errors.New("name must be between 1 and 32 characters")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrAlreadyInRoom      = errors.New("connection already belongs to a room")
	ErrNotInRoom          = errors.New("connection is not in this room")
	ErrUnknownMode        = errors.New("unknown game mode")
)
