package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/pocketdeck/internal/domain"
	"github.com/conorfennell/pocketdeck/internal/knol"
	"github.com/conorfennell/pocketdeck/internal/storage"
)

// Store is the persistence Import needs.
type Store interface {
	FindHostedDeckByName(ctx context.Context, name string) (*domain.Deck, error)
	InsertDeck(ctx context.Context, deck *domain.Deck) error
}

// Result summarises an import run.
type Result struct {
	Imported int `json:"imported"`
	Existing int `json:"existing"`
	Failed   int `json:"failed"`
	Cards    int `json:"cards"`
}

// Import materialises every manifest deck that is not already stored as a
// hosted deck of the same name. A deck whose card table cannot be fetched
// is counted as failed and not stored; the run carries on with the rest.
// Only a manifest failure aborts the run.
func Import(ctx context.Context, store Store, client *Client, now time.Time) (Result, error) {
	var res Result

	entries, err := client.FetchManifest(ctx)
	if err != nil {
		return res, err
	}

	for _, entry := range entries {
		_, err := store.FindHostedDeckByName(ctx, entry.Name)
		if err == nil {
			slog.Debug("Hosted deck already exists, skipping", "name", entry.Name)
			res.Existing++
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return res, err
		}

		cards, err := client.FetchCards(ctx, entry.URL)
		if err != nil {
			slog.Warn("Failed to fetch cards for hosted deck", "name", entry.Name, "url", entry.URL, "error", err)
			res.Failed++
			continue
		}

		deck := domain.NewDeck(entry.Name, entry.Category, true, now)
		for _, card := range cards {
			card.Hash = knol.Hash(card)
			deck.AddCard(card)
		}
		if err := store.InsertDeck(ctx, &deck); err != nil {
			return res, fmt.Errorf("save hosted deck %s: %w", entry.Name, err)
		}

		slog.Info("Imported hosted deck", "name", entry.Name, "cards", len(deck.Cards))
		res.Imported++
		res.Cards += len(deck.Cards)
	}
	return res, nil
}
