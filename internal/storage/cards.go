package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/pocketdeck/internal/domain"
)

type cardRow struct {
	ID           string       `db:"id"`
	DeckID       string       `db:"deck_id"`
	Hash         string       `db:"hash"`
	Front        string       `db:"front"`
	Back         string       `db:"back"`
	Tags         string       `db:"tags"`
	Difficulty   string       `db:"difficulty"`
	Mastery      float64      `db:"mastery"`
	Interval     float64      `db:"interval_days"`
	EaseFactor   float64      `db:"ease_factor"`
	LastReviewed sql.NullTime `db:"last_reviewed"`
}

func (r cardRow) toDomain() domain.Card {
	c := domain.Card{
		ID:         r.ID,
		DeckID:     r.DeckID,
		Hash:       r.Hash,
		Front:      r.Front,
		Back:       r.Back,
		Tags:       r.Tags,
		Difficulty: domain.Difficulty(r.Difficulty),
		Mastery:    r.Mastery,
		Interval:   r.Interval,
		EaseFactor: r.EaseFactor,
	}
	if r.LastReviewed.Valid {
		t := r.LastReviewed.Time
		c.LastReviewed = &t
	}
	return c
}

const cardColumns = `id, deck_id, hash, front, back, tags, difficulty, mastery, interval_days, ease_factor, last_reviewed`

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func insertCard(ctx context.Context, tx *sqlx.Tx, card domain.Card) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		card.ID,
		card.DeckID,
		card.Hash,
		card.Front,
		card.Back,
		card.Tags,
		string(card.Difficulty),
		card.Mastery,
		card.Interval,
		card.EaseFactor,
		nullTime(card.LastReviewed),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// InsertCard adds a card to an existing local deck.
func (db *DB) InsertCard(ctx context.Context, card domain.Card) error {
	if err := db.checkWritable(ctx, card.DeckID); err != nil {
		return err
	}
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		return insertCard(ctx, tx, card)
	})
}

// GetCard retrieves a single card by ID.
func (db *DB) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	var row cardRow
	err := db.conn.GetContext(ctx, &row, db.conn.Rebind(`
		SELECT `+cardColumns+` FROM cards WHERE id = ?
	`), id)
	if err != nil {
		return nil, notFound(err, "failed to find card %s", id)
	}
	card := row.toDomain()
	return &card, nil
}

func (db *DB) deckCards(ctx context.Context, deckID string) ([]domain.Card, error) {
	var rows []cardRow
	err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(`
		SELECT `+cardColumns+` FROM cards WHERE deck_id = ? ORDER BY front, id
	`), deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %s: %w", deckID, err)
	}

	cards := make([]domain.Card, len(rows))
	for i, r := range rows {
		cards[i] = r.toDomain()
	}
	return cards, nil
}

// UpdateCardContent saves a card's front, back, tags and difficulty.
// Scheduling fields are left alone; use SaveReview for those.
func (db *DB) UpdateCardContent(ctx context.Context, card domain.Card) error {
	existing, err := db.GetCard(ctx, card.ID)
	if err != nil {
		return err
	}
	if err := db.checkWritable(ctx, existing.DeckID); err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, db.conn.Rebind(`
		UPDATE cards
		SET front = ?, back = ?, tags = ?, difficulty = ?, hash = ?
		WHERE id = ?
	`), card.Front, card.Back, card.Tags, string(card.Difficulty), card.Hash, card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", card.ID, err)
	}
	return nil
}

// SaveReview persists the four scheduling fields of card and appends the
// review log in one transaction.
func (db *DB) SaveReview(ctx context.Context, card domain.Card, log domain.ReviewLog) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE cards
			SET mastery = ?, interval_days = ?, ease_factor = ?, last_reviewed = ?
			WHERE id = ?
		`), card.Mastery, card.Interval, card.EaseFactor, nullTime(card.LastReviewed), card.ID)
		if err != nil {
			return fmt.Errorf("failed to update schedule for card %s: %w", card.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("failed to update schedule for card %s: %w", card.ID, ErrNotFound)
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO review_logs (id, card_id, quality, reviewed_at, mastery, interval_days, ease_factor)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`), log.ID, log.CardID, log.Quality, log.ReviewedAt, log.Mastery, log.Interval, log.EaseFactor)
		if err != nil {
			return fmt.Errorf("failed to insert review log for card %s: %w", card.ID, err)
		}
		return nil
	})
}

// DeleteCards removes cards by ID and reports how many were deleted.
// Cards belonging to hosted decks are skipped.
func (db *DB) DeleteCards(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`
		DELETE FROM cards
		WHERE id IN (?)
		AND deck_id NOT IN (SELECT id FROM decks WHERE is_hosted = ?)
	`, ids, true)
	if err != nil {
		return 0, fmt.Errorf("failed to build delete query: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cards: %w", err)
	}
	return res.RowsAffected()
}

type reviewLogRow struct {
	ID         string    `db:"id"`
	CardID     string    `db:"card_id"`
	Quality    int       `db:"quality"`
	ReviewedAt time.Time `db:"reviewed_at"`
	Mastery    float64   `db:"mastery"`
	Interval   float64   `db:"interval_days"`
	EaseFactor float64   `db:"ease_factor"`
}

// ReviewLogs returns the review history of a card, oldest first.
func (db *DB) ReviewLogs(ctx context.Context, cardID string) ([]domain.ReviewLog, error) {
	var rows []reviewLogRow
	err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(`
		SELECT id, card_id, quality, reviewed_at, mastery, interval_days, ease_factor
		FROM review_logs WHERE card_id = ? ORDER BY id
	`), cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for card %s: %w", cardID, err)
	}

	logs := make([]domain.ReviewLog, len(rows))
	for i, r := range rows {
		logs[i] = domain.ReviewLog(r)
	}
	return logs, nil
}
