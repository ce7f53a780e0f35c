// Package history keeps a persistent log of refresh attempts so the UI and
// the history subcommand can show when each tab was last reloaded and how.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mlukow/tabrefresh/internal/types"
)

// Attempt is one recorded refresh attempt.
type Attempt struct {
	ID      int64
	TabKey  string // TabID.Key() of the refreshed tab
	Name    string
	Browser types.BrowserType
	Tier    string // dispatch tier that succeeded; "" on failure
	Success bool
	At      time.Time
}

// migration is a numbered schema change. Migrations are applied in order
// and tracked in the schema_migrations table so each runs exactly once.
type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS refresh_attempts (
    id          INTEGER PRIMARY KEY,
    tab_key     TEXT NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    browser     TEXT NOT NULL,
    tier        TEXT NOT NULL DEFAULT '',
    success     BOOLEAN NOT NULL,
    at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_attempts_tab ON refresh_attempts(tab_key, at DESC);`,
	},
}

// OpenDB opens (or creates) the history database at the given path.
// It creates parent directories if needed, enables WAL mode, and runs any
// pending migrations.
func OpenDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}
		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// DefaultDBPath returns ~/.local/share/tabrefresh/history.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "tabrefresh", "history.db"), nil
}

// Record stores the results of one refresh batch.
func Record(db *sql.DB, results []types.RefreshResult, at time.Time) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range results {
		_, err := tx.Exec(
			"INSERT INTO refresh_attempts (tab_key, name, browser, tier, success, at) VALUES (?, ?, ?, ?, ?, ?)",
			r.ID.Key(), r.Name, string(r.Browser), r.Tier, r.Success, at.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert attempt for %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Recent returns the newest attempts, most recent first.
func Recent(db *sql.DB, limit int) ([]Attempt, error) {
	rows, err := db.Query(
		"SELECT id, tab_key, name, browser, tier, success, at FROM refresh_attempts ORDER BY at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var browser string
		if err := rows.Scan(&a.ID, &a.TabKey, &a.Name, &browser, &a.Tier, &a.Success, &a.At); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Browser = types.BrowserType(browser)
		out = append(out, a)
	}
	return out, rows.Err()
}

// LastSuccess returns the time of the tab's most recent successful refresh.
// The zero time means it never succeeded.
func LastSuccess(db *sql.DB, tabKey string) (time.Time, error) {
	var at time.Time
	err := db.QueryRow(
		"SELECT at FROM refresh_attempts WHERE tab_key = ? AND success ORDER BY at DESC, id DESC LIMIT 1",
		tabKey,
	).Scan(&at)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query last success: %w", err)
	}
	return at, nil
}
