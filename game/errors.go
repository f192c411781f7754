package game

import "errors"

var (
	ErrTooFewPlayers     = errors.New("minimum of 2 players required")
	ErrRoomFull          = errors.New("room is full")
	ErrNotHost           = errors.New("only the host can start the game")
	ErrGameInProgress    = errors.New("game has already started")
	ErrGameNotInProgress = errors.New("game is not in progress")
	ErrGameOver          = errors.New("game is already over")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrInvalidMove       = errors.New("invalid move")
	ErrUnknownPlayer     = errors.New("unknown player ID")
	ErrUnknownCard       = errors.New("card is not in your hand")
	ErrAlreadyDrawn      = errors.New("already drawn a card this turn")
	ErrMustDrawFirst     = errors.New("must draw a card before passing")
	ErrNoCardsLeft       = errors.New("no cards left to draw")
	ErrWildNeedsColor    = errors.New("wild card requires a chromatic colour")
	ErrCannotCallLow     = errors.New("can only call with exactly one card left")
)
