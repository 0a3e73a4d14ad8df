// internal/game/abilities.go
package game

import (
	"github.com/jason-s-yu/skirmish/internal/models"
)

// abilityResolver resolves one ability's on-play effect in two phases.
// validate runs while the played card is still in the actor's hand and must
// not mutate anything; apply runs after the card has been removed from the
// hand and owns placing it. Splitting the phases keeps a failed action free
// of partial effects.
type abilityResolver struct {
	validate func(g *Game, actor *models.Player, card *models.Card, targetID string) error
	apply    func(g *Game, actor *models.Player, card *models.Card, targetID string)
}

// abilityResolvers maps each ability tag to its resolver. New abilities are
// added here; the state machine never switches on ability tags itself.
var abilityResolvers = map[models.Ability]abilityResolver{
	models.AbilityNone:      {validate: validateNothing, apply: applyPlain},
	models.AbilityIronGuard: {validate: validateNothing, apply: applyPlain},
	models.AbilityHero:      {validate: validateNothing, apply: applyPlain},
	models.AbilityIntel:     {validate: validateNothing, apply: applyIntel},
	models.AbilityMedic:     {validate: validateMedic, apply: applyMedic},
	models.AbilityBurn:      {validate: validateNothing, apply: applyBurn},
	models.AbilityDecoy:     {validate: validateDecoy, apply: applyDecoy},
}

func validateNothing(g *Game, actor *models.Player, card *models.Card, targetID string) error {
	return nil
}

// validateMedic checks the optional revive target: it must sit in the actor's
// own discard pile, and Heroes cannot be revived.
func validateMedic(g *Game, actor *models.Player, card *models.Card, targetID string) error {
	if targetID == "" {
		return nil
	}
	target := cardByID(actor.DiscardPile, targetID)
	if target == nil {
		return ErrInvalidTarget
	}
	if target.Ability == models.AbilityHero {
		return ErrIllegalAbilityUse
	}
	return nil
}

// validateDecoy requires a non-Hero target on the actor's own board.
func validateDecoy(g *Game, actor *models.Player, card *models.Card, targetID string) error {
	if targetID == "" {
		return ErrInvalidTarget
	}
	target := cardByID(actor.Board, targetID)
	if target == nil {
		return ErrInvalidTarget
	}
	if target.Ability == models.AbilityHero {
		return ErrIllegalAbilityUse
	}
	return nil
}

// applyPlain places the card on the actor's own board.
func applyPlain(g *Game, actor *models.Player, card *models.Card, targetID string) {
	card.OwnerID = actor.ID
	actor.Board = append(actor.Board, card)
}

// applyIntel plants the card on the opponent's board (scored by the
// opponent) and draws up to two replacement cards for the actor.
func applyIntel(g *Game, actor *models.Player, card *models.Card, targetID string) {
	opponent := g.opponentOf(actor.ID)
	card.OwnerID = opponent.ID
	opponent.Board = append(opponent.Board, card)
	g.drawToHand(actor, 2)
}

// applyMedic plays the Medic to the actor's board and, if a target was named,
// revives it from the actor's discard pile. A revived Intel or Burn triggers
// its effect again.
func applyMedic(g *Game, actor *models.Player, card *models.Card, targetID string) {
	applyPlain(g, actor, card, "")
	if targetID == "" {
		return
	}
	revived := removeCard(&actor.DiscardPile, targetID)
	switch revived.Ability {
	case models.AbilityIntel:
		applyIntel(g, actor, revived, "")
	case models.AbilityBurn:
		applyPlain(g, actor, revived, "")
		g.scorch()
	default:
		applyPlain(g, actor, revived, "")
	}
}

// applyBurn plays the card and scorches the strongest units on both boards.
func applyBurn(g *Game, actor *models.Player, card *models.Card, targetID string) {
	applyPlain(g, actor, card, "")
	g.scorch()
}

// applyDecoy swaps the card with the targeted board card, which returns to
// the actor's hand.
func applyDecoy(g *Game, actor *models.Player, card *models.Card, targetID string) {
	target := removeCard(&actor.Board, targetID)
	target.OwnerID = actor.ID
	actor.Hand = append(actor.Hand, target)
	applyPlain(g, actor, card, "")
}

// scorch moves every non-Hero board card holding the maximum current power,
// on either side, to its board owner's discard pile.
func (g *Game) scorch() {
	maxPower := 0
	for _, id := range g.joinOrder {
		for _, c := range g.players[id].Board {
			if c.Ability != models.AbilityHero && c.CurrentPower > maxPower {
				maxPower = c.CurrentPower
			}
		}
	}
	for _, id := range g.joinOrder {
		p := g.players[id]
		kept := p.Board[:0]
		for _, c := range p.Board {
			if c.Ability != models.AbilityHero && c.CurrentPower == maxPower {
				p.DiscardPile = append(p.DiscardPile, c)
			} else {
				kept = append(kept, c)
			}
		}
		p.Board = kept
	}
}

// updateScores recomputes power modifiers and each player's board score.
// IronGuard 2s are worth 6 while at least two of them share a board, else 2.
func (g *Game) updateScores() {
	for _, id := range g.joinOrder {
		p := g.players[id]
		ironGuards := 0
		for _, c := range p.Board {
			if c.Ability == models.AbilityIronGuard {
				ironGuards++
			}
		}
		score := 0
		for _, c := range p.Board {
			if c.Ability == models.AbilityIronGuard {
				if ironGuards >= 2 {
					c.CurrentPower = 6
				} else {
					c.CurrentPower = 2
				}
			}
			if c.CurrentPower < 0 {
				c.CurrentPower = 0
			}
			score += c.CurrentPower
		}
		p.CurrentScore = score
	}
}

// drawToHand draws up to n cards for a player. A short deck is tolerated;
// the player simply receives fewer cards.
func (g *Game) drawToHand(p *models.Player, n int) {
	drawn, _ := g.deck.Draw(n)
	for _, c := range drawn {
		c.OwnerID = p.ID
		p.Hand = append(p.Hand, c)
	}
}

func cardByID(zone []*models.Card, id string) *models.Card {
	for _, c := range zone {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// removeCard extracts the card with the given id from a zone, preserving
// order. The caller must have validated presence beforehand.
func removeCard(zone *[]*models.Card, id string) *models.Card {
	for i, c := range *zone {
		if c.ID == id {
			*zone = append((*zone)[:i], (*zone)[i+1:]...)
			return c
		}
	}
	return nil
}
