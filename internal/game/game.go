// internal/game/game.go
package game

import (
	"math/rand"
	"time"

	"github.com/jason-s-yu/skirmish/internal/models"
)

// Phase is the room's current stage in the match lifecycle.
type Phase string

const (
	PhaseWaiting  Phase = "Waiting"
	PhaseMulligan Phase = "Mulligan"
	PhasePlaying  Phase = "Playing"
	PhaseRoundEnd Phase = "RoundEnd"
	PhaseGameEnd  Phase = "GameEnd"
)

const (
	// HandSize is the number of cards dealt to each player.
	HandSize = 10
	// MulliganLimit caps how many cards a player may replace.
	MulliganLimit = 2
	// RoundsToWin is the round threshold that ends the match.
	RoundsToWin = 2
	// MaxPlayers is the seat count of a room.
	MaxPlayers = 2
)

// GameState is the full wire snapshot broadcast after every accepted
// mutation. It references live state and is only valid until the next
// mutation; callers marshal it immediately.
type GameState struct {
	RoomID      string                    `json:"room_id"`
	Phase       Phase                     `json:"phase"`
	Players     map[string]*models.Player `json:"players"`
	CurrentTurn string                    `json:"current_turn"`
	RoundCount  int                       `json:"round_count"`
	Deck        []*models.Card            `json:"deck"`
	Winner      *string                   `json:"winner,omitempty"`
	LastUpdate  int64                     `json:"last_update"`
}

// Game is the state machine for a single room. It performs no locking of its
// own: the session layer guarantees every call happens on the room's single
// writer goroutine.
type Game struct {
	RoomID      string
	Phase       Phase
	CurrentTurn string
	RoundCount  int

	players   map[string]*models.Player
	joinOrder []string
	deck      *Deck
	winner    string
	mulliganed map[string]bool

	// leadIndex points into joinOrder at the player who opens the current
	// round. The earlier joiner leads round 1; the lead alternates after
	// each round.
	leadIndex int

	rng        *rand.Rand
	lastUpdate int64
}

// New creates a room in the Waiting phase. The random source drives every
// shuffle for this room's lifetime.
func New(roomID string, rng *rand.Rand) *Game {
	g := &Game{
		RoomID:     roomID,
		Phase:      PhaseWaiting,
		RoundCount: 1,
		players:    make(map[string]*models.Player),
		mulliganed: make(map[string]bool),
		rng:        rng,
	}
	g.touch()
	return g
}

func (g *Game) touch() { g.lastUpdate = time.Now().Unix() }

// Join seats a player, creating their entry on first join. Joining again
// with a known id is a reconnect and mutates nothing. The second distinct
// join shuffles a fresh deck, deals opening hands and enters Mulligan.
func (g *Game) Join(playerID, nickname, avatar string) (rejoined bool, err error) {
	if _, ok := g.players[playerID]; ok {
		return true, nil
	}
	if len(g.players) >= MaxPlayers {
		return false, ErrRoomFull
	}
	g.players[playerID] = &models.Player{
		ID:          playerID,
		Nickname:    nickname,
		Avatar:      avatar,
		Hand:        []*models.Card{},
		Board:       []*models.Card{},
		DiscardPile: []*models.Card{},
	}
	g.joinOrder = append(g.joinOrder, playerID)

	if len(g.players) == MaxPlayers {
		if err := g.deal(); err != nil {
			return false, err
		}
		g.Phase = PhaseMulligan
	}
	g.touch()
	return false, nil
}

// deal replaces the deck with a freshly shuffled one and deals each seat its
// opening hand in join order.
func (g *Game) deal() error {
	g.deck = NewDeck(g.rng)
	for _, id := range g.joinOrder {
		p := g.players[id]
		hand, err := g.deck.Draw(HandSize)
		if err != nil {
			return ErrInsufficientDeck
		}
		for _, c := range hand {
			c.OwnerID = id
		}
		p.Hand = hand
	}
	return nil
}

// Mulligan exchanges up to MulliganLimit hand cards for fresh draws. Each
// player submits exactly once; an empty selection is a valid submission.
// Once every seat has submitted, play begins with the round lead to act.
func (g *Game) Mulligan(playerID string, cardIDs []string) error {
	if g.Phase != PhaseMulligan {
		return ErrInvalidPhaseForAction
	}
	p, ok := g.players[playerID]
	if !ok {
		return ErrPlayerNotInRoom
	}
	if g.mulliganed[playerID] {
		return ErrDuplicateMulligan
	}
	if len(cardIDs) > MulliganLimit {
		return ErrMulliganLimit
	}

	// Validate the whole selection before touching any zone.
	seen := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		if seen[id] || cardByID(p.Hand, id) == nil {
			return ErrCardNotInHand
		}
		seen[id] = true
	}

	for _, id := range cardIDs {
		g.deck.Return(removeCard(&p.Hand, id))
	}
	g.drawToHand(p, len(cardIDs))
	g.mulliganed[playerID] = true

	if len(g.mulliganed) == len(g.players) && len(g.players) == MaxPlayers {
		g.Phase = PhasePlaying
		g.CurrentTurn = g.joinOrder[g.leadIndex]
	}
	g.touch()
	return nil
}

// PlayCard moves a hand card to the board and resolves its ability. The turn
// passes to the opponent unless they have already passed this round.
func (g *Game) PlayCard(playerID, cardID, targetID string) error {
	if g.Phase != PhasePlaying {
		return ErrInvalidPhaseForAction
	}
	p, ok := g.players[playerID]
	if !ok {
		return ErrPlayerNotInRoom
	}
	if g.CurrentTurn != playerID {
		return ErrNotYourTurn
	}
	card := cardByID(p.Hand, cardID)
	if card == nil {
		return ErrCardNotInHand
	}
	resolver, ok := abilityResolvers[card.Ability]
	if !ok {
		return ErrIllegalAbilityUse
	}
	if err := resolver.validate(g, p, card, targetID); err != nil {
		return err
	}

	removeCard(&p.Hand, cardID)
	resolver.apply(g, p, card, targetID)
	g.updateScores()

	if opponent := g.opponentOf(playerID); !opponent.Passed {
		g.CurrentTurn = opponent.ID
	}
	g.touch()
	return nil
}

// Pass ends the player's participation in the round. When both seats have
// passed the round resolves: the higher board score takes the round, a tie
// awards neither side.
func (g *Game) Pass(playerID string) error {
	if g.Phase != PhasePlaying {
		return ErrInvalidPhaseForAction
	}
	p, ok := g.players[playerID]
	if !ok {
		return ErrPlayerNotInRoom
	}
	if g.CurrentTurn != playerID {
		return ErrNotYourTurn
	}

	p.Passed = true
	if opponent := g.opponentOf(playerID); opponent.Passed {
		g.resolveRound()
	} else {
		g.CurrentTurn = opponent.ID
	}
	g.touch()
	return nil
}

// resolveRound fixes the round result after both seats passed. The match
// ends as soon as a player reaches RoundsToWin; otherwise the room sits in
// RoundEnd until AdvanceRound starts the next round.
func (g *Game) resolveRound() {
	g.updateScores()
	p1 := g.players[g.joinOrder[0]]
	p2 := g.players[g.joinOrder[1]]
	if p1.CurrentScore > p2.CurrentScore {
		p1.RoundsWon++
	} else if p2.CurrentScore > p1.CurrentScore {
		p2.RoundsWon++
	}

	g.CurrentTurn = ""
	for _, p := range []*models.Player{p1, p2} {
		if p.RoundsWon >= RoundsToWin {
			g.winner = p.ID
			g.Phase = PhaseGameEnd
			return
		}
	}
	g.Phase = PhaseRoundEnd
}

// AdvanceRound clears per-round state and re-enters Playing with the lead
// alternated. The session layer calls this after broadcasting the RoundEnd
// snapshot.
func (g *Game) AdvanceRound() error {
	if g.Phase != PhaseRoundEnd {
		return ErrInvalidPhaseForAction
	}
	for _, id := range g.joinOrder {
		p := g.players[id]
		p.DiscardPile = append(p.DiscardPile, p.Board...)
		p.Board = []*models.Card{}
		p.CurrentScore = 0
		p.Passed = false
	}
	g.RoundCount++
	g.leadIndex = (g.leadIndex + 1) % len(g.joinOrder)
	g.CurrentTurn = g.joinOrder[g.leadIndex]
	g.Phase = PhasePlaying
	g.touch()
	return nil
}

// Restart re-initializes the match from GameEnd, keeping the same seats but
// clearing scores and hands. With both seats still occupied the room deals
// immediately and lands back in Mulligan.
func (g *Game) Restart(playerID string) error {
	if g.Phase != PhaseGameEnd {
		return ErrInvalidPhaseForAction
	}
	if _, ok := g.players[playerID]; !ok {
		return ErrPlayerNotInRoom
	}

	for _, id := range g.joinOrder {
		old := g.players[id]
		g.players[id] = &models.Player{
			ID:          old.ID,
			Nickname:    old.Nickname,
			Avatar:      old.Avatar,
			Hand:        []*models.Card{},
			Board:       []*models.Card{},
			DiscardPile: []*models.Card{},
		}
	}
	g.winner = ""
	g.RoundCount = 1
	g.leadIndex = 0
	g.CurrentTurn = ""
	g.mulliganed = make(map[string]bool)
	if err := g.deal(); err != nil {
		return err
	}
	g.Phase = PhaseMulligan
	g.touch()
	return nil
}

// Snapshot builds the wire view of the room. The returned struct shares the
// underlying card and player data; marshal it before the next mutation.
func (g *Game) Snapshot() *GameState {
	st := &GameState{
		RoomID:      g.RoomID,
		Phase:       g.Phase,
		Players:     g.players,
		CurrentTurn: g.CurrentTurn,
		RoundCount:  g.RoundCount,
		Deck:        []*models.Card{},
		LastUpdate:  g.lastUpdate,
	}
	if g.deck != nil {
		st.Deck = g.deck.Cards()
	}
	if g.winner != "" {
		w := g.winner
		st.Winner = &w
	}
	return st
}

// Winner returns the match winner's player id, or "" before GameEnd.
func (g *Game) Winner() string { return g.winner }

// PlayerCount returns the number of seated players.
func (g *Game) PlayerCount() int { return len(g.players) }

// HasPlayer reports whether the given id holds a seat.
func (g *Game) HasPlayer(playerID string) bool {
	_, ok := g.players[playerID]
	return ok
}

func (g *Game) opponentOf(playerID string) *models.Player {
	for _, id := range g.joinOrder {
		if id != playerID {
			return g.players[id]
		}
	}
	return g.players[playerID]
}
