// CLAUDE:SUMMARY SQLite download ledger: remembers downloaded LMS files (id, size, updated_at, hash, path) and records sync runs.
// CLAUDE:DEPENDS idgen
// CLAUDE:EXPORTS Ledger, Open, OpenMemory, File, Run, Digest
// Package ledger records what a sync downloaded so that unchanged course
// files are not fetched again, and keeps a short history of sync runs for
// the status views.
package ledger

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/hazyhaar/coursesync/idgen"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	file_id     INTEGER PRIMARY KEY,
	url         TEXT NOT NULL DEFAULT '',
	local_path  TEXT NOT NULL,
	size        INTEGER NOT NULL DEFAULT 0,
	updated_at  TEXT NOT NULL DEFAULT '',
	hash        TEXT NOT NULL DEFAULT '',
	recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_runs (
	run_id          TEXT PRIMARY KEY,
	started_at      INTEGER NOT NULL,
	finished_at     INTEGER,
	courses         INTEGER NOT NULL DEFAULT 0,
	assignments     INTEGER NOT NULL DEFAULT 0,
	items           INTEGER NOT NULL DEFAULT 0,
	items_extracted INTEGER NOT NULL DEFAULT 0,
	failures        INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT ''
);
`

// File is one downloaded LMS file.
type File struct {
	ID         int64
	URL        string
	LocalPath  string
	Size       int64
	UpdatedAt  string
	Hash       string
	RecordedAt time.Time
}

// Run is one sync run and its counters.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Courses        int
	Assignments    int
	Items          int
	ItemsExtracted int
	Failures       int
	Error          string
}

// Ledger is the SQLite-backed record.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error { return l.db.Close() }

func (l *Ledger) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

// Lookup returns the ledger entry for an LMS file id, or nil.
func (l *Ledger) Lookup(ctx context.Context, fileID int64) (*File, error) {
	var f File
	var recorded int64
	err := l.db.QueryRowContext(ctx,
		`SELECT file_id, url, local_path, size, updated_at, hash, recorded_at FROM files WHERE file_id = ?`,
		fileID,
	).Scan(&f.ID, &f.URL, &f.LocalPath, &f.Size, &f.UpdatedAt, &f.Hash, &recorded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: lookup %d: %w", fileID, err)
	}
	f.RecordedAt = time.UnixMilli(recorded)
	return &f, nil
}

// Fresh reports whether the file with this id, size and LMS updated_at was
// already downloaded and its local copy still exists. It returns the local
// path when fresh. Lookup errors count as not fresh.
func (l *Ledger) Fresh(ctx context.Context, fileID, size int64, updatedAt string) (string, bool) {
	f, err := l.Lookup(ctx, fileID)
	if err != nil || f == nil {
		return "", false
	}
	if f.Size != size || f.UpdatedAt != updatedAt {
		return "", false
	}
	if _, err := os.Stat(f.LocalPath); err != nil {
		return "", false
	}
	return f.LocalPath, true
}

// Remember records (or replaces) a downloaded file.
func (l *Ledger) Remember(ctx context.Context, f File) error {
	_, err := execRetry(ctx, l.db,
		`INSERT INTO files (file_id, url, local_path, size, updated_at, hash, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_id) DO UPDATE SET
		   url = excluded.url, local_path = excluded.local_path, size = excluded.size,
		   updated_at = excluded.updated_at, hash = excluded.hash, recorded_at = excluded.recorded_at`,
		f.ID, f.URL, f.LocalPath, f.Size, f.UpdatedAt, f.Hash, l.clock().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("ledger: remember %d: %w", f.ID, err)
	}
	return nil
}

// StartRun inserts a new sync run and returns it.
func (l *Ledger) StartRun(ctx context.Context) (*Run, error) {
	r := &Run{ID: idgen.RunID(), StartedAt: l.clock()}
	_, err := execRetry(ctx, l.db,
		`INSERT INTO sync_runs (run_id, started_at) VALUES (?, ?)`,
		r.ID, r.StartedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: start run: %w", err)
	}
	return r, nil
}

// FinishRun stores the final counters of a run.
func (l *Ledger) FinishRun(ctx context.Context, r *Run) error {
	r.FinishedAt = l.clock()
	_, err := execRetry(ctx, l.db,
		`UPDATE sync_runs SET finished_at = ?, courses = ?, assignments = ?, items = ?,
		   items_extracted = ?, failures = ?, error = ? WHERE run_id = ?`,
		r.FinishedAt.UnixMilli(), r.Courses, r.Assignments, r.Items,
		r.ItemsExtracted, r.Failures, r.Error, r.ID,
	)
	if err != nil {
		return fmt.Errorf("ledger: finish run: %w", err)
	}
	return nil
}

// LastRun returns the most recently started run, or nil.
func (l *Ledger) LastRun(ctx context.Context) (*Run, error) {
	runs, err := l.Runs(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// Runs lists up to limit runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, started_at, COALESCE(finished_at, 0), courses, assignments, items,
		        items_extracted, failures, error
		 FROM sync_runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Courses, &r.Assignments, &r.Items,
			&r.ItemsExtracted, &r.Failures, &r.Error); err != nil {
			return nil, fmt.Errorf("ledger: scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished > 0 {
			r.FinishedAt = time.UnixMilli(finished)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Digest returns the hex BLAKE2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
