package detectcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }

func TestNeedsRecheck_Sequence(t *testing.T) {
	// WHAT: Fresh dir needs a check; after saving a matching cache it does not; editing final.md flips it back.
	// WHY: Detection runs are slow and rate-limited, so they only rerun on change.
	dir := t.TempDir()
	if !NeedsRecheck(dir) {
		t.Fatal("empty dir should need recheck")
	}

	final := filepath.Join(dir, FinalFile)
	os.WriteFile(final, []byte("my essay"), 0o644)

	r := &Record{CheckedAt: time.Now(), Services: map[string]ServiceResult{"zerogpt": {Score: f64(12), Status: "ok"}}}
	if err := SaveFor(dir, FinalFile, r); err != nil {
		t.Fatal(err)
	}
	if NeedsRecheck(dir) {
		t.Fatal("unchanged file should not need recheck")
	}
	if NeedsRecheck(dir) {
		t.Fatal("second call changed the answer")
	}

	os.WriteFile(final, []byte("my essay, revised"), 0o644)
	if !NeedsRecheck(dir) {
		t.Fatal("edited final.md should need recheck")
	}
}

func TestNeedsRecheck_FinalPreferredOverDraft(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, DraftFile), []byte("draft"), 0o644)
	if err := SaveFor(dir, DraftFile, &Record{}); err != nil {
		t.Fatal(err)
	}
	if NeedsRecheck(dir) {
		t.Fatal("draft cache should be current")
	}

	os.WriteFile(filepath.Join(dir, FinalFile), []byte("final"), 0o644)
	if !NeedsRecheck(dir) {
		t.Fatal("new final.md has no recorded hash")
	}
}

func TestLoad_CorruptIsMiss(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "draft.md"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "ai_check.json"), []byte("{truncated"), 0o644)
	if Load(filepath.Join(dir, "ai_check.json")) != nil {
		t.Fatal("corrupt cache should load as nil")
	}
	if !NeedsRecheck(dir) {
		t.Fatal("corrupt cache should trigger recheck")
	}
	if _, ok := CachedScore(dir, DraftFile); ok {
		t.Fatal("corrupt cache has no score")
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"final.md":           "ai_check.json",
		"draft.md":           "ai_check.json",
		"final_humanized.md": "ai_check_final_humanized.json",
		"draft_humanized.md": "ai_check_draft_humanized.json",
	}
	for in, want := range tests {
		if got := FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFirstScore_NameOrder(t *testing.T) {
	r := &Record{Services: map[string]ServiceResult{
		"zerogpt": {Score: f64(40)},
		"gptzero": {Score: f64(22)},
		"alpha":   {Score: nil, Status: "error: timeout"},
	}}
	s, ok := r.FirstScore()
	if !ok || s != 22 {
		t.Fatalf("FirstScore = %v, %v", s, ok)
	}
	if _, ok := (&Record{}).FirstScore(); ok {
		t.Error("empty record has no score")
	}
}

func TestCachedScore_HashGuard(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "final_humanized.md"), []byte("v1"), 0o644)

	// No recorded hash: trusted.
	Save(filepath.Join(dir, "ai_check_final_humanized.json"), &Record{Services: map[string]ServiceResult{"zerogpt": {Score: f64(9)}}})
	if s, ok := CachedScore(dir, "final_humanized.md"); !ok || s != 9 {
		t.Fatalf("unhashed score = %v, %v", s, ok)
	}

	r := &Record{Services: map[string]ServiceResult{"zerogpt": {Score: f64(18)}}}
	if err := SaveFor(dir, "final_humanized.md", r); err != nil {
		t.Fatal(err)
	}
	if s, ok := CachedScore(dir, "final_humanized.md"); !ok || s != 18 {
		t.Fatalf("hashed score = %v, %v", s, ok)
	}

	os.WriteFile(filepath.Join(dir, "final_humanized.md"), []byte("v2"), 0o644)
	if _, ok := CachedScore(dir, "final_humanized.md"); ok {
		t.Fatal("score for old content must not be used")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	in := &Record{
		CheckedAt:  now,
		TextHash:   Digest([]byte("héllo")),
		TextLength: 5,
		FileHashes: map[string]string{FinalFile: Digest([]byte("héllo"))},
		Services:   map[string]ServiceResult{"zerogpt": {Status: "error: quota"}},
	}
	p := filepath.Join(dir, "ai_check.json")
	if err := Save(p, in); err != nil {
		t.Fatal(err)
	}
	out := Load(p)
	if out == nil || !out.CheckedAt.Equal(now) || out.TextLength != 5 || out.TextHash != Digest([]byte("héllo")) {
		t.Fatalf("loaded = %+v", out)
	}
	if out.Services["zerogpt"].Score != nil || out.Services["zerogpt"].Status != "error: quota" {
		t.Errorf("service = %+v", out.Services["zerogpt"])
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestCachedScore_SharedCacheNeedsOwnHash(t *testing.T) {
	// WHAT: A score recorded for draft.md is not reused for final.md through the shared ai_check.json.
	// WHY: final.md's content was never checked, so reporting a score for it would be wrong.
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, DraftFile), []byte("draft"), 0o644)
	if err := SaveFor(dir, DraftFile, &Record{Services: map[string]ServiceResult{"zerogpt": {Score: f64(12)}}}); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, FinalFile), []byte("final"), 0o644)

	if _, ok := CachedScore(dir, FinalFile); ok {
		t.Fatal("draft score trusted for final.md")
	}
	if s, ok := CachedScore(dir, DraftFile); !ok || s != 12 {
		t.Errorf("draft score = %v, %v", s, ok)
	}
	if !NeedsRecheck(dir) {
		t.Error("final.md without its own hash should need a recheck")
	}
}
