package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source represents a card source, either a local path or a Git URL.
type Source struct {
	ID          int64        `db:"id" json:"id"`
	Path        string       `db:"path" json:"path"`
	Type        string       `db:"type" json:"type"`
	LastScanned sql.NullTime `db:"last_scanned" json:"-"`
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	var id int64
	err := db.conn.QueryRowxContext(ctx, db.conn.Rebind(`
		INSERT INTO sources (path, type)
		VALUES (?, ?)
		RETURNING id
	`), path, sourceType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*Source, error) {
	var s Source
	err := db.conn.GetContext(ctx, &s, db.conn.Rebind(`
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`), path)
	if err != nil {
		return nil, notFound(err, "failed to find source by path %s", path)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	var sources []Source
	err := db.conn.SelectContext(ctx, &sources, `
		SELECT id, path, type, last_scanned
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	return sources, nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, db.conn.Rebind(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`), at, sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source and the deck synced from it.
func (db *DB) DeleteSource(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(`DELETE FROM sources WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to delete source %d: %w", id, ErrNotFound)
	}
	return nil
}
