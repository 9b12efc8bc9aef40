package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell index")
	ErrInvalidMove      = errors.New("invalid move notation")
	ErrGameNotFound     = errors.New("game not found")
	ErrGameIsFull       = errors.New("game already has two players")
	ErrAlreadyInGame    = errors.New("player is already in this game")
	ErrNotInGame        = errors.New("player is not in this game")
)
