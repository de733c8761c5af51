package game

import "errors"

var (
	// ErrGameNotFound is returned when no game has the requested id.
	ErrGameNotFound = errors.New("game not found")
	// ErrNotParticipant is returned when the caller holds no seat in the game.
	ErrNotParticipant = errors.New("not a participant in this game")
	// ErrGameFull is returned when joining a game that is not waiting for a second player.
	ErrGameFull = errors.New("game is not available to join")
	// ErrOwnGame is returned when the creator tries to join their own game.
	ErrOwnGame = errors.New("cannot join your own game")
	// ErrAIGame is returned when a human tries to take the computer's seat.
	ErrAIGame = errors.New("cannot join a game against the computer")
	// ErrInvalidPlayer is returned for an empty player id.
	ErrInvalidPlayer = errors.New("player id is required")
	// ErrGameExists is returned when restoring a game whose id is already loaded.
	ErrGameExists = errors.New("game already loaded")
	// ErrStaleSnapshot is returned when a snapshot is older than the loaded game.
	ErrStaleSnapshot = errors.New("snapshot is older than the loaded game")
)
