// internal/game/errors.go
package game

import "errors"

// Action validation errors. Every rejected action maps to exactly one of
// these; a rejection never mutates room state and is reported only to the
// submitting connection.
var (
	ErrRoomNotFound          = errors.New("room not found")
	ErrRoomFull              = errors.New("room is full")
	ErrPlayerNotInRoom       = errors.New("player has no seat in this room")
	ErrNotYourTurn           = errors.New("not your turn")
	ErrCardNotInHand         = errors.New("card not in hand")
	ErrInvalidTarget         = errors.New("invalid target")
	ErrIllegalAbilityUse     = errors.New("illegal ability use")
	ErrInvalidPhaseForAction = errors.New("action not valid in current phase")
	ErrInsufficientDeck      = errors.New("not enough cards left in deck")
	ErrDuplicateMulligan     = errors.New("mulligan already submitted")
	ErrMulliganLimit         = errors.New("cannot replace more than 2 cards")
)
