// Package ledger records what a seeding run has already created, so an
// interrupted run can be resumed without re-issuing writes the server would
// reject as duplicates.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Ledger handles SQLite run state storage
type Ledger struct {
	db *sql.DB
}

// Entry represents one recorded creation
type Entry struct {
	Kind      string
	Key       string
	RunID     string
	CreatedAt time.Time
}

// Open creates or opens a ledger at the given path
func Open(dbPath string) (*Ledger, error) {
	// Expand ~ in path
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return l, nil
}

// migrate creates the necessary tables
func (l *Ledger) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS created (
			kind TEXT NOT NULL,
			key TEXT NOT NULL,
			run_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (kind, key)
		);

		CREATE INDEX IF NOT EXISTS idx_created_run ON created(run_id);
	`
	_, err := l.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

// Record marks a kind/key pair as created by the given run. Recording the
// same pair twice is not an error; the first run wins.
func (l *Ledger) Record(kind, key, runID string) error {
	_, err := l.db.Exec(
		`INSERT OR IGNORE INTO created (kind, key, run_id, created_at) VALUES (?, ?, ?, ?)`,
		kind, key, runID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record %s %q: %w", kind, key, err)
	}
	return nil
}

// Exists reports whether a kind/key pair was already created.
func (l *Ledger) Exists(kind, key string) (bool, error) {
	var n int
	err := l.db.QueryRow(
		`SELECT COUNT(*) FROM created WHERE kind = ? AND key = ?`, kind, key,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check %s %q: %w", kind, key, err)
	}
	return n > 0, nil
}

// CountByKind reports how many entries of a kind have been recorded.
func (l *Ledger) CountByKind(kind string) (int, error) {
	var n int
	err := l.db.QueryRow(
		`SELECT COUNT(*) FROM created WHERE kind = ?`, kind,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

// Close closes the underlying database
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Nop is a ledger that remembers nothing, used when the ledger is disabled.
type Nop struct{}

func (Nop) Record(kind, key, runID string) error { return nil }
func (Nop) Exists(kind, key string) (bool, error) {
	return false, nil
}
func (Nop) Close() error { return nil }

// Store is the subset of the ledger the backfillers depend on.
type Store interface {
	Record(kind, key, runID string) error
	Exists(kind, key string) (bool, error)
	Close() error
}
