package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpen_Pragmas(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "sub", "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	var journalMode string
	if err := l.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatal(err)
	}
	if journalMode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", journalMode)
	}
	var busy int
	if err := l.db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatal(err)
	}
	if busy != 10_000 {
		t.Fatalf("busy_timeout = %d", busy)
	}
}

func TestFresh(t *testing.T) {
	// WHAT: A file is fresh only when id, size and updated_at match and the copy exists.
	// WHY: Unchanged lecture files must not be downloaded on every sync.
	ctx := context.Background()
	l := OpenMemory(t)

	local := filepath.Join(t.TempDir(), "slides.pdf")
	if err := os.WriteFile(local, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := l.Fresh(ctx, 11, 8, "2025-01-01T00:00:00Z"); ok {
		t.Fatal("unknown file reported fresh")
	}

	err := l.Remember(ctx, File{ID: 11, URL: "https://lms/files/11", LocalPath: local, Size: 8, UpdatedAt: "2025-01-01T00:00:00Z", Hash: Digest([]byte("%PDF-1.4"))})
	if err != nil {
		t.Fatal(err)
	}

	if p, ok := l.Fresh(ctx, 11, 8, "2025-01-01T00:00:00Z"); !ok || p != local {
		t.Fatalf("Fresh = %q, %v", p, ok)
	}
	if _, ok := l.Fresh(ctx, 11, 9, "2025-01-01T00:00:00Z"); ok {
		t.Error("size change should not be fresh")
	}
	if _, ok := l.Fresh(ctx, 11, 8, "2025-02-01T00:00:00Z"); ok {
		t.Error("updated_at change should not be fresh")
	}

	os.Remove(local)
	if _, ok := l.Fresh(ctx, 11, 8, "2025-01-01T00:00:00Z"); ok {
		t.Error("deleted local copy should not be fresh")
	}
}

func TestRemember_Upsert(t *testing.T) {
	ctx := context.Background()
	l := OpenMemory(t)
	if err := l.Remember(ctx, File{ID: 5, LocalPath: "/a", Size: 1}); err != nil {
		t.Fatal(err)
	}
	if err := l.Remember(ctx, File{ID: 5, LocalPath: "/b", Size: 2}); err != nil {
		t.Fatal(err)
	}
	f, err := l.Lookup(ctx, 5)
	if err != nil || f == nil {
		t.Fatalf("lookup: %v, %v", f, err)
	}
	if f.LocalPath != "/b" || f.Size != 2 {
		t.Errorf("not replaced: %+v", f)
	}
	if missing, err := l.Lookup(ctx, 99); err != nil || missing != nil {
		t.Errorf("missing lookup = %v, %v", missing, err)
	}
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	l := OpenMemory(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := l.StartRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first.Courses, first.Items, first.ItemsExtracted = 2, 10, 8
	if err := l.FinishRun(ctx, first); err != nil {
		t.Fatal(err)
	}
	second, err := l.StartRun(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(first.ID, "run_") {
		t.Errorf("run id = %q", first.ID)
	}

	last, err := l.LastRun(ctx)
	if err != nil || last == nil || last.ID != second.ID {
		t.Fatalf("last run = %+v, %v", last, err)
	}
	if !last.FinishedAt.IsZero() {
		t.Error("unfinished run should have zero FinishedAt")
	}

	runs, err := l.Runs(ctx, 10)
	if err != nil || len(runs) != 2 {
		t.Fatalf("runs = %v, %v", runs, err)
	}
	if runs[1].Courses != 2 || runs[1].ItemsExtracted != 8 || runs[1].FinishedAt.IsZero() {
		t.Errorf("counters lost: %+v", runs[1])
	}
}

func TestDigest(t *testing.T) {
	a, b := Digest([]byte("x")), Digest([]byte("x"))
	if a != b || len(a) != 64 {
		t.Fatalf("digest = %q", a)
	}
	if Digest([]byte("y")) == a {
		t.Fatal("different input, same digest")
	}
}
