package web

import (
	"time"

	"github.com/conorfennell/pocketdeck/internal/domain"
	"github.com/conorfennell/pocketdeck/internal/knol"
	"github.com/conorfennell/pocketdeck/internal/srs"
)

type deckJSON struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Category  string     `json:"category,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	IsHosted  bool       `json:"is_hosted"`
	SourceID  *int64     `json:"source_id,omitempty"`
	DueCount  *int       `json:"due_count,omitempty"`
	Cards     []cardJSON `json:"cards,omitempty"`
}

type cardJSON struct {
	ID           string     `json:"id,omitempty"`
	DeckID       string     `json:"deck_id,omitempty"`
	Front        string     `json:"front"`
	Back         string     `json:"back"`
	Tags         string     `json:"tags,omitempty"`
	Difficulty   string     `json:"difficulty,omitempty"`
	Mastery      float64    `json:"mastery"`
	Interval     float64    `json:"interval"`
	EaseFactor   float64    `json:"ease_factor"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty"`
	NextReview   *time.Time `json:"next_review,omitempty"`
}

type reviewLogJSON struct {
	ID         string    `json:"id"`
	CardID     string    `json:"card_id"`
	Quality    int       `json:"quality"`
	ReviewedAt time.Time `json:"reviewed_at"`
	Mastery    float64   `json:"mastery"`
	Interval   float64   `json:"interval"`
	EaseFactor float64   `json:"ease_factor"`
}

// latestJSONTime is the last instant encoding/json can write; very long
// intervals are reported as this date.
var latestJSONTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

func toDeckJSON(d domain.Deck) deckJSON {
	return deckJSON{
		ID:        d.ID,
		Name:      d.Name,
		Category:  d.Category,
		CreatedAt: d.CreatedAt,
		IsHosted:  d.IsHosted,
		SourceID:  d.SourceID,
		Cards:     toCardsJSON(d.Cards),
	}
}

func toCardJSON(c domain.Card) cardJSON {
	out := cardJSON{
		ID:           c.ID,
		DeckID:       c.DeckID,
		Front:        c.Front,
		Back:         c.Back,
		Tags:         c.Tags,
		Difficulty:   string(c.Difficulty),
		Mastery:      c.Mastery,
		Interval:     c.Interval,
		EaseFactor:   c.EaseFactor,
		LastReviewed: c.LastReviewed,
	}
	if next, ok := srs.NextReview(c); ok {
		if next.After(latestJSONTime) {
			next = latestJSONTime
		}
		out.NextReview = &next
	}
	return out
}

func toCardsJSON(cards []domain.Card) []cardJSON {
	out := make([]cardJSON, len(cards))
	for i, c := range cards {
		out[i] = toCardJSON(c)
	}
	return out
}

// newCard builds a fresh card from request content. Scheduling fields in
// the request are ignored.
func (c cardJSON) newCard() domain.Card {
	card := domain.NewCard(c.Front, c.Back)
	card.Tags = c.Tags
	card.Difficulty = domain.ParseDifficulty(c.Difficulty)
	card.Hash = knol.Hash(card)
	return card
}
