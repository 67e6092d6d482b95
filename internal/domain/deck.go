package domain

import (
	"time"

	"github.com/google/uuid"
)

// Deck owns a collection of cards. Deleting a deck deletes its cards.
// Hosted decks come from the remote catalog and are read-only for edit
// flows; scheduling treats them like any other deck.
type Deck struct {
	ID        string
	Name      string
	Category  string
	CreatedAt time.Time
	IsHosted  bool
	SourceID  *int64
	Cards     []Card
}

// NewDeck returns an empty deck with a fresh ID.
func NewDeck(name, category string, hosted bool, now time.Time) Deck {
	return Deck{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  category,
		CreatedAt: now,
		IsHosted:  hosted,
	}
}

// AddCard attaches card to the deck, setting its DeckID.
func (d *Deck) AddCard(card Card) {
	card.DeckID = d.ID
	d.Cards = append(d.Cards, card)
}
