package models

// Player is one seat in a room. ID is stable across reconnects; the session
// layer matches returning connections against it. Hand order and discard
// order are meaningful; board order only matters for display stability.
type Player struct {
	ID           string  `json:"id"`
	Nickname     string  `json:"nickname"`
	Avatar       string  `json:"avatar"`
	Hand         []*Card `json:"hand"`
	Board        []*Card `json:"board"`
	DiscardPile  []*Card `json:"discard_pile"`
	CurrentScore int     `json:"current_score"`
	RoundsWon    int     `json:"rounds_won"`
	Passed       bool    `json:"passed"`
}
