package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // Registers the postgres driver
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn   *sqlx.DB
	driver string
}

// Open creates a new database connection and ensures the schema is up to date.
// driver is either "sqlite" (the default when empty) or "postgres".
func Open(driver, dsn string) (*DB, error) {
	if driver == "" {
		driver = DriverSQLite
	}

	var schema string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite doesn't support multiple writers
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: conn, driver: driver}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// sqliteDSN turns on foreign keys (needed for cascade deletes) and a busy
// timeout for every connection the pool opens.
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	return nil
}

// inTx runs fn inside a transaction, committing on success.
func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// notFound maps sql.ErrNoRows onto ErrNotFound and wraps anything else.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
