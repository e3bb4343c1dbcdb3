// CLAUDE:SUMMARY Submission state machine: derives an assignment's workflow state from submission/ files and cached detection scores, never persisted.
// CLAUDE:DEPENDS detectcache, layout
// CLAUDE:EXPORTS State, Status, Evaluator, Stage, Stages
// Package submission derives where a student stands on an assignment from
// the files in its submission directory. The result is recomputed from disk
// on every call and never stored.
package submission

import (
	"errors"
	"fmt"
	"os"

	"github.com/hazyhaar/coursesync/detectcache"
	"github.com/hazyhaar/coursesync/layout"
)

// State is the derived workflow state.
type State string

const (
	NotStarted        State = "not_started"
	WorkStarted       State = "work_started"
	DraftInProgress   State = "draft_in_progress"
	FinalReady        State = "final_ready"
	AIHigh            State = "ai_high"
	ReadyToSubmit     State = "ready_to_submit"
	SubmittedToCanvas State = "submitted_to_canvas"
)

// DefaultThreshold is the score (percent) from which a submission is ai_high.
const DefaultThreshold = 30.0

// humanizedVariants in preference order.
var humanizedVariants = []string{"final_humanized.md", "draft_humanized.md"}

// Status is the evaluation of one submission directory.
type Status struct {
	State State `json:"state"`
	// Files present in the directory, sorted by name.
	Files []string `json:"files,omitempty"`
	// Score is the cached score of final.md, when trusted.
	Score *float64 `json:"score,omitempty"`
	// HumanizedFile and HumanizedScore describe the deciding variant.
	HumanizedFile  string   `json:"humanized_file,omitempty"`
	HumanizedScore *float64 `json:"humanized_score,omitempty"`
	// NeedsRecheck is true when the cached result no longer matches the
	// active source file.
	NeedsRecheck bool `json:"needs_recheck"`
}

// Evaluator computes statuses with a fixed threshold.
type Evaluator struct {
	Threshold float64
}

// NewEvaluator returns an Evaluator; threshold <= 0 means DefaultThreshold.
func NewEvaluator(threshold float64) Evaluator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Evaluator{Threshold: threshold}
}

// Evaluate derives the status of the submission directory dir. It only
// reads the filesystem; calling it twice on unchanged files gives the same
// result.
func (e Evaluator) Evaluate(dir string) (Status, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return Status{State: NotStarted, NeedsRecheck: true}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("submission: read %s: %w", dir, err)
	}

	present := make(map[string]bool, len(entries))
	var files []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		present[ent.Name()] = true
		files = append(files, ent.Name())
	}

	st := Status{Files: files, NeedsRecheck: detectcache.NeedsRecheck(dir)}

	if !present[detectcache.FinalFile] {
		switch {
		case present[detectcache.DraftFile]:
			st.State = DraftInProgress
		case len(files) > 0:
			st.State = WorkStarted
		default:
			st.State = NotStarted
		}
		return st, nil
	}

	score, ok := detectcache.CachedScore(dir, detectcache.FinalFile)
	if !ok {
		st.State = FinalReady
		return st, nil
	}
	st.Score = &score

	for _, name := range humanizedVariants {
		if !present[name] {
			continue
		}
		st.HumanizedFile = name
		if hs, ok := detectcache.CachedScore(dir, name); ok {
			st.HumanizedScore = &hs
			st.State = e.byScore(hs)
			return st, nil
		}
		break
	}

	st.State = e.byScore(score)
	return st, nil
}

func (e Evaluator) byScore(score float64) State {
	if score < e.Threshold {
		return ReadyToSubmit
	}
	return AIHigh
}

// Overlay applies the LMS submission flag on top of a derived status.
func Overlay(st Status, hasSubmitted bool) Status {
	if hasSubmitted {
		st.State = SubmittedToCanvas
	}
	return st
}

// EvaluateAssignment evaluates <assignmentDir>/submission and applies the
// submitted overlay.
func (e Evaluator) EvaluateAssignment(assignmentDir string, hasSubmitted bool) (Status, error) {
	st, err := e.Evaluate(layout.SubmissionPath(assignmentDir))
	if err != nil {
		return st, err
	}
	return Overlay(st, hasSubmitted), nil
}
