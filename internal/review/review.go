// Package review runs quiz sessions against stored decks: it builds the
// due queue for a deck and applies ratings to cards, persisting each result.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/conorfennell/pocketdeck/internal/domain"
	"github.com/conorfennell/pocketdeck/internal/srs"
)

// Store is the persistence the service needs.
type Store interface {
	GetDeck(ctx context.Context, id string) (*domain.Deck, error)
	GetCard(ctx context.Context, id string) (*domain.Card, error)
	SaveReview(ctx context.Context, card domain.Card, log domain.ReviewLog) error
}

// Service answers "what is due" and "record this rating".
type Service struct {
	store Store
}

// NewService creates a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Due returns the due cards of a deck at now, sorted by front.
func (s *Service) Due(ctx context.Context, deckID string, now time.Time, filter domain.Difficulty) ([]domain.Card, error) {
	deck, err := s.store.GetDeck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	return srs.DueCards(*deck, now, filter), nil
}

// Review applies a rating to a card and saves the new schedule together
// with a review log entry. Out-of-range qualities are clamped.
func (s *Service) Review(ctx context.Context, cardID string, quality int, now time.Time) (*domain.Card, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	q := srs.Quality(quality).Clamp()
	st := srs.Update(card, q, now)

	log := domain.ReviewLog{
		ID:         ulid.Make().String(),
		CardID:     card.ID,
		Quality:    int(q),
		ReviewedAt: st.LastReviewed,
		Mastery:    st.Mastery,
		Interval:   st.Interval,
		EaseFactor: st.EaseFactor,
	}
	if err := s.store.SaveReview(ctx, *card, log); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}

	slog.Debug("Card reviewed",
		"card", card.ID,
		"quality", int(q),
		"mastery", st.Mastery,
		"interval", st.Interval,
		"ease_factor", st.EaseFactor,
	)
	return card, nil
}
