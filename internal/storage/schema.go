package storage

// sqliteSchema and postgresSchema describe the same tables. Deleting a deck
// cascades to its cards and their review logs; deleting a source cascades
// to the deck it feeds. A source feeds at most one deck.
const sqliteSchema = `
-- 'sources' tracks where synced decks come from: a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);

CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    is_hosted BOOLEAN NOT NULL DEFAULT 0,
    source_id INTEGER REFERENCES sources(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_decks_name ON decks(name);
CREATE UNIQUE INDEX IF NOT EXISTS idx_decks_source ON decks(source_id);

CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
    hash TEXT NOT NULL DEFAULT '',
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '',
    difficulty TEXT NOT NULL DEFAULT '',
    mastery REAL NOT NULL DEFAULT 0,
    interval_days REAL NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL DEFAULT 0, -- 0: uninitialized
    last_reviewed DATETIME
);
CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck_id);

CREATE TABLE IF NOT EXISTS review_logs (
    id TEXT PRIMARY KEY,
    card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
    quality INTEGER NOT NULL,
    reviewed_at DATETIME NOT NULL,
    mastery REAL NOT NULL,
    interval_days REAL NOT NULL,
    ease_factor REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_review_logs_card ON review_logs(card_id);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sources (
    id BIGSERIAL PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    is_hosted BOOLEAN NOT NULL DEFAULT FALSE,
    source_id BIGINT REFERENCES sources(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_decks_name ON decks(name);
CREATE UNIQUE INDEX IF NOT EXISTS idx_decks_source ON decks(source_id);

CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
    hash TEXT NOT NULL DEFAULT '',
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '',
    difficulty TEXT NOT NULL DEFAULT '',
    mastery DOUBLE PRECISION NOT NULL DEFAULT 0,
    interval_days DOUBLE PRECISION NOT NULL DEFAULT 0,
    ease_factor DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_reviewed TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck_id);

CREATE TABLE IF NOT EXISTS review_logs (
    id TEXT PRIMARY KEY,
    card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
    quality INTEGER NOT NULL,
    reviewed_at TIMESTAMPTZ NOT NULL,
    mastery DOUBLE PRECISION NOT NULL,
    interval_days DOUBLE PRECISION NOT NULL,
    ease_factor DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_review_logs_card ON review_logs(card_id);
`
