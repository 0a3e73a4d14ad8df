// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/jason-s-yu/skirmish/internal/models"
)

// Deck is the shared stack of undealt cards for a room. The random source is
// injected so shuffles are reproducible under test.
type Deck struct {
	cards []*models.Card
	rng   *rand.Rand
}

// NewDeck builds the full 54-card deck and shuffles it.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{cards: buildCards(), rng: rng}
	d.Shuffle()
	return d
}

// buildCards assembles the fixed deck composition: for each of the four real
// suits, numbers 2-10 (the 2 carries IronGuard), Jack/Intel at power 10,
// Queen/Medic at 5, King/Hero at 15 and Ace/Burn at 0, plus two Decoy jokers.
func buildCards() []*models.Card {
	suits := []models.Suit{models.SuitHeart, models.SuitDiamond, models.SuitSpade, models.SuitClub}

	var cards []*models.Card
	add := func(suit models.Suit, rank models.Rank, power int, ability models.Ability) {
		cards = append(cards, &models.Card{
			ID:           uuid.NewString(),
			Suit:         suit,
			Rank:         rank,
			BasePower:    power,
			CurrentPower: power,
			Ability:      ability,
			OwnerID:      models.DeckOwner,
		})
	}

	for _, suit := range suits {
		for num := 2; num <= 10; num++ {
			ability := models.AbilityNone
			if num == 2 {
				ability = models.AbilityIronGuard
			}
			add(suit, models.NumberRank(num), num, ability)
		}
		add(suit, models.FaceRank("Jack"), 10, models.AbilityIntel)
		add(suit, models.FaceRank("Queen"), 5, models.AbilityMedic)
		add(suit, models.FaceRank("King"), 15, models.AbilityHero)
		add(suit, models.FaceRank("Ace"), 0, models.AbilityBurn)
	}

	for i := 0; i < 2; i++ {
		add(models.SuitJoker, models.FaceRank("Joker"), 0, models.AbilityDecoy)
	}

	return cards
}

// Shuffle randomizes the deck order using the injected source.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes up to n cards from the front of the deck. If fewer than n
// remain it returns everything available along with ErrInsufficientDeck; the
// caller decides whether a partial draw is acceptable.
func (d *Deck) Draw(n int) ([]*models.Card, error) {
	if n > len(d.cards) {
		drawn := d.cards
		d.cards = nil
		return drawn, ErrInsufficientDeck
	}
	drawn := d.cards[:n]
	d.cards = d.cards[n:]
	return drawn, nil
}

// Return places a card at the back of the deck and resets its ownership.
func (d *Deck) Return(c *models.Card) {
	c.OwnerID = models.DeckOwner
	d.cards = append(d.cards, c)
}

// Len reports the number of undealt cards.
func (d *Deck) Len() int { return len(d.cards) }

// Cards exposes the remaining cards for snapshot serialization. The slice is
// owned by the deck and must not be mutated by callers.
func (d *Deck) Cards() []*models.Card { return d.cards }
