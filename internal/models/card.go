// internal/models/card.go
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Suit identifies a card's suit. Joker cards carry SuitJoker.
type Suit string

const (
	SuitHeart   Suit = "Heart"
	SuitDiamond Suit = "Diamond"
	SuitSpade   Suit = "Spade"
	SuitClub    Suit = "Club"
	SuitJoker   Suit = "Joker"
)

// Ability names the special rule resolved when a card is played.
type Ability string

const (
	AbilityNone      Ability = "None"
	AbilityIronGuard Ability = "IronGuard" // 2s: pairs get stronger
	AbilityIntel     Ability = "Intel"     // Jacks: planted on the opponent's board, draw 2
	AbilityMedic     Ability = "Medic"     // Queens: revive a unit from the discard pile
	AbilityHero      Ability = "Hero"      // Kings: immune to effects
	AbilityBurn      Ability = "Burn"      // Aces: scorch the strongest units
	AbilityDecoy     Ability = "Decoy"     // Jokers: return a board card to hand
)

// Rank is either a number (2..10) or a face rank. The wire encoding is a
// tagged union matching the client contract: numeric ranks marshal as
// {"Number":n}, face ranks as bare strings ("Jack", "Queen", ...).
type Rank struct {
	Number int
	Face   string // empty for numeric ranks
}

// NumberRank returns a numeric rank (2..10).
func NumberRank(n int) Rank { return Rank{Number: n} }

// FaceRank returns a face rank ("Jack", "Queen", "King", "Ace", "Joker").
func FaceRank(face string) Rank { return Rank{Face: face} }

// IsNumber reports whether the rank is numeric.
func (r Rank) IsNumber() bool { return r.Face == "" }

func (r Rank) String() string {
	if r.IsNumber() {
		return strconv.Itoa(r.Number)
	}
	return r.Face
}

// MarshalJSON encodes numeric ranks as {"Number":n} and face ranks as strings.
func (r Rank) MarshalJSON() ([]byte, error) {
	if r.IsNumber() {
		return json.Marshal(struct {
			Number int `json:"Number"`
		}{r.Number})
	}
	return json.Marshal(r.Face)
}

// UnmarshalJSON accepts both encodings produced by MarshalJSON.
func (r *Rank) UnmarshalJSON(data []byte) error {
	var face string
	if err := json.Unmarshal(data, &face); err == nil {
		*r = Rank{Face: face}
		return nil
	}
	var num struct {
		Number *int `json:"Number"`
	}
	if err := json.Unmarshal(data, &num); err != nil || num.Number == nil {
		return fmt.Errorf("invalid rank encoding: %s", string(data))
	}
	*r = Rank{Number: *num.Number}
	return nil
}

// DeckOwner is the owner id carried by undealt cards.
const DeckOwner = "deck"

// Card is a single card. ID, Suit, Rank, BasePower and Ability are fixed at
// creation; CurrentPower and OwnerID change as abilities move cards around.
type Card struct {
	ID           string  `json:"id"`
	Suit         Suit    `json:"suit"`
	Rank         Rank    `json:"rank"`
	BasePower    int     `json:"base_power"`
	CurrentPower int     `json:"current_power"`
	Ability      Ability `json:"ability"`
	OwnerID      string  `json:"owner_id"`
}
