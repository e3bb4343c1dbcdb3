// CLAUDE:SUMMARY SQLite opener for the download ledger: WAL, busy timeout, synchronous NORMAL, schema on open, in-memory variant for tests.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// openDB opens path with the production pragmas and applies the schema.
//
//	journal_mode = WAL
//	busy_timeout = 10000
//	synchronous  = NORMAL
func openDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ledger: mkdir: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: exec schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	return db, nil
}

// OpenMemory opens an in-memory ledger for tests. It pins one connection
// (each ":memory:" connection is a separate database) and closes the
// ledger on cleanup.
func OpenMemory(t testing.TB) *Ledger {
	t.Helper()
	db, err := openDB(":memory:")
	if err != nil {
		t.Fatalf("ledger.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	l := &Ledger{db: db}
	t.Cleanup(func() { l.Close() })
	return l
}
