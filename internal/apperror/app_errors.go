package apperror

import "errors"

var (
	ErrNotFound               = errors.New("resource not found")
	ErrConflict               = errors.New("resource conflict")
	ErrConcurrentModification = errors.New("record was concurrently modified")
	ErrInvalidCredentials     = errors.New("invalid credentials")

	ErrGameAlreadyWon  = errors.New("game already has a winner")
	ErrNotPlayerInGame = errors.New("player is not part of this game")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrOutOfBounds     = errors.New("coordinate is out of bounds")
)

// IsValidation reports whether err is one of the move validation errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrGameAlreadyWon) ||
		errors.Is(err, ErrNotPlayerInGame) ||
		errors.Is(err, ErrCellOccupied) ||
		errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrOutOfBounds)
}
