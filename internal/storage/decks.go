package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/pocketdeck/internal/domain"
)

type deckRow struct {
	ID        string        `db:"id"`
	Name      string        `db:"name"`
	Category  string        `db:"category"`
	CreatedAt time.Time     `db:"created_at"`
	IsHosted  bool          `db:"is_hosted"`
	SourceID  sql.NullInt64 `db:"source_id"`
}

func (r deckRow) toDomain() domain.Deck {
	d := domain.Deck{
		ID:        r.ID,
		Name:      r.Name,
		Category:  r.Category,
		CreatedAt: r.CreatedAt,
		IsHosted:  r.IsHosted,
	}
	if r.SourceID.Valid {
		id := r.SourceID.Int64
		d.SourceID = &id
	}
	return d
}

const deckColumns = `id, name, category, created_at, is_hosted, source_id`

// InsertDeck stores a deck together with all of its cards in one transaction.
// Each card's DeckID is set to the deck's ID.
func (db *DB) InsertDeck(ctx context.Context, deck *domain.Deck) error {
	var sourceID sql.NullInt64
	if deck.SourceID != nil {
		sourceID = sql.NullInt64{Int64: *deck.SourceID, Valid: true}
	}

	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO decks (`+deckColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)
		`), deck.ID, deck.Name, deck.Category, deck.CreatedAt, deck.IsHosted, sourceID)
		if err != nil {
			return fmt.Errorf("failed to insert deck %s: %w", deck.Name, err)
		}

		for i := range deck.Cards {
			deck.Cards[i].DeckID = deck.ID
			if err := insertCard(ctx, tx, deck.Cards[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDeck retrieves a deck and its cards, ordered by front.
func (db *DB) GetDeck(ctx context.Context, id string) (*domain.Deck, error) {
	var row deckRow
	err := db.conn.GetContext(ctx, &row, db.conn.Rebind(`
		SELECT `+deckColumns+` FROM decks WHERE id = ?
	`), id)
	if err != nil {
		return nil, notFound(err, "failed to find deck %s", id)
	}

	deck := row.toDomain()
	cards, err := db.deckCards(ctx, id)
	if err != nil {
		return nil, err
	}
	deck.Cards = cards
	return &deck, nil
}

// ListDecks returns local decks newest first, or hosted decks by name.
// Cards are not loaded.
func (db *DB) ListDecks(ctx context.Context, hosted bool) ([]domain.Deck, error) {
	order := "created_at DESC"
	if hosted {
		order = "name ASC"
	}

	var rows []deckRow
	err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(`
		SELECT `+deckColumns+` FROM decks WHERE is_hosted = ? ORDER BY `+order,
	), hosted)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}

	decks := make([]domain.Deck, len(rows))
	for i, r := range rows {
		decks[i] = r.toDomain()
	}
	return decks, nil
}

// FindHostedDeckByName retrieves the hosted deck with the given name, without its cards.
func (db *DB) FindHostedDeckByName(ctx context.Context, name string) (*domain.Deck, error) {
	var row deckRow
	err := db.conn.GetContext(ctx, &row, db.conn.Rebind(`
		SELECT `+deckColumns+` FROM decks WHERE name = ? AND is_hosted = ? LIMIT 1
	`), name, true)
	if err != nil {
		return nil, notFound(err, "failed to find hosted deck %s", name)
	}
	deck := row.toDomain()
	return &deck, nil
}

// DeckForSource retrieves the deck fed by a synced source, with its cards.
func (db *DB) DeckForSource(ctx context.Context, sourceID int64) (*domain.Deck, error) {
	var id string
	err := db.conn.GetContext(ctx, &id, db.conn.Rebind(`
		SELECT id FROM decks WHERE source_id = ? LIMIT 1
	`), sourceID)
	if err != nil {
		return nil, notFound(err, "failed to find deck for source %d", sourceID)
	}
	return db.GetDeck(ctx, id)
}

// UpdateDeck renames a local deck and changes its category.
func (db *DB) UpdateDeck(ctx context.Context, id, name, category string) error {
	if err := db.checkWritable(ctx, id); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx, db.conn.Rebind(`
		UPDATE decks SET name = ?, category = ? WHERE id = ?
	`), name, category, id)
	if err != nil {
		return fmt.Errorf("failed to update deck %s: %w", id, err)
	}
	return nil
}

// DeleteDeck removes a deck. Its cards and their review logs go with it.
func (db *DB) DeleteDeck(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(`DELETE FROM decks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to delete deck %s: %w", id, ErrNotFound)
	}
	return nil
}

// checkWritable fails with ErrReadOnly for hosted decks and ErrNotFound
// for missing ones.
func (db *DB) checkWritable(ctx context.Context, deckID string) error {
	var hosted bool
	err := db.conn.GetContext(ctx, &hosted, db.conn.Rebind(`
		SELECT is_hosted FROM decks WHERE id = ?
	`), deckID)
	if err != nil {
		return notFound(err, "failed to find deck %s", deckID)
	}
	if hosted {
		return fmt.Errorf("deck %s: %w", deckID, ErrReadOnly)
	}
	return nil
}
