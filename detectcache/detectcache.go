// CLAUDE:SUMMARY Detection-score cache files (ai_check*.json) in a submission folder: load, atomic save, staleness by BLAKE2b content hash.
// CLAUDE:EXPORTS Record, ServiceResult, Load, Save, NeedsRecheck, CachedScore, FileName, ActiveSource, Digest
// Package detectcache reads and writes the detection-score cache kept next
// to a submission. The scores themselves come from an external detection
// service; this package only decides whether a cached result still
// describes the current file content.
package detectcache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Submission file names.
const (
	DraftFile = "draft.md"
	FinalFile = "final.md"
	// HumanizedSuffix marks a rewritten variant, e.g. final_humanized.md.
	HumanizedSuffix = "_humanized.md"

	cacheBase = "ai_check"
)

// ServiceResult is one detection service's verdict.
type ServiceResult struct {
	Score   *float64        `json:"score"`
	Status  string          `json:"status"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Record is the content of an ai_check*.json file.
type Record struct {
	CheckedAt  time.Time                `json:"checked_at"`
	TextHash   string                   `json:"text_hash"`
	TextLength int                      `json:"text_length"`
	FileHashes map[string]string        `json:"file_hashes"`
	Services   map[string]ServiceResult `json:"services"`
}

// FirstScore returns the first non-null score, services taken in name order.
func (r *Record) FirstScore() (float64, bool) {
	if r == nil {
		return 0, false
	}
	names := make([]string, 0, len(r.Services))
	for name := range r.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if s := r.Services[name].Score; s != nil {
			return *s, true
		}
	}
	return 0, false
}

// Digest returns the hex BLAKE2b-256 digest used for change detection.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileName returns the cache file name for a submission file:
// ai_check.json for draft.md and final.md, ai_check_<stem>.json otherwise.
func FileName(sourceFile string) string {
	if sourceFile == "" || sourceFile == DraftFile || sourceFile == FinalFile {
		return cacheBase + ".json"
	}
	return cacheBase + "_" + strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile)) + ".json"
}

// Load reads a cache file. A missing or unreadable file is a miss (nil).
func Load(path string) *Record {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil
	}
	return &r
}

// Save writes the whole record atomically. The last writer wins.
func Save(path string, r *Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("detectcache: marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("detectcache: write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("detectcache: rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ActiveSource returns final.md if present, else draft.md if present, else "".
func ActiveSource(dir string) string {
	for _, name := range []string{FinalFile, DraftFile} {
		if fileExists(filepath.Join(dir, name)) {
			return name
		}
	}
	return ""
}

// NeedsRecheck reports whether the submission in dir has no cached result
// or its active source changed since the result was cached.
func NeedsRecheck(dir string) bool {
	r := Load(filepath.Join(dir, FileName(FinalFile)))
	if r == nil {
		return true
	}
	src := ActiveSource(dir)
	if src == "" {
		return false
	}
	current, err := hashFile(filepath.Join(dir, src))
	if err != nil {
		return true
	}
	return r.FileHashes[src] != current
}

// CachedScore returns the cached score for sourceFile in dir. A cache that
// records file hashes is trusted only when it holds a hash for sourceFile
// matching the file's current content; one that records none is trusted as is.
// draft.md and final.md share a cache, so a hash for the other file does not
// vouch for this one.
func CachedScore(dir, sourceFile string) (float64, bool) {
	r := Load(filepath.Join(dir, FileName(sourceFile)))
	if r == nil {
		return 0, false
	}
	if len(r.FileHashes) > 0 {
		recorded := r.FileHashes[sourceFile]
		if recorded == "" {
			return 0, false
		}
		current, err := hashFile(filepath.Join(dir, sourceFile))
		if err != nil || current != recorded {
			return 0, false
		}
	}
	return r.FirstScore()
}

// SaveFor records r as the cache of sourceFile in dir, refreshing the
// file's hash from disk.
func SaveFor(dir, sourceFile string, r *Record) error {
	h, err := hashFile(filepath.Join(dir, sourceFile))
	if err != nil {
		return fmt.Errorf("detectcache: hash %s: %w", sourceFile, err)
	}
	if r.FileHashes == nil {
		r.FileHashes = map[string]string{}
	}
	r.FileHashes[sourceFile] = h
	return Save(filepath.Join(dir, FileName(sourceFile)), r)
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Digest(data), nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
