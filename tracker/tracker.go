// CLAUDE:SUMMARY Reads the synced tree back: course summaries, upcoming assignments and per-assignment submission status, recomputed on every call.
// CLAUDE:DEPENDS layout, submission, detectcache
// CLAUDE:EXPORTS Tracker, New, Config, Entry, CourseSummary
package tracker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hazyhaar/coursesync/detectcache"
	"github.com/hazyhaar/coursesync/layout"
	"github.com/hazyhaar/coursesync/submission"
)

// Config configures a Tracker.
type Config struct {
	// Tree is the synced tree. Required.
	Tree *layout.Tree
	// Threshold is the AI score at or above which work is ai_high. Default: 30.
	Threshold float64
	// CourseWindowDays is the upcoming window of CourseSummary. Default: 14.
	CourseWindowDays int
	Now              func() time.Time
	Logger           *slog.Logger
}

func (c *Config) defaults() {
	if c.Threshold <= 0 {
		c.Threshold = submission.DefaultThreshold
	}
	if c.CourseWindowDays <= 0 {
		c.CourseWindowDays = 14
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Tracker answers questions about the local tree. It holds no state between
// calls: every answer is read from disk.
type Tracker struct {
	cfg    Config
	eval   submission.Evaluator
	logger *slog.Logger
}

// New creates a Tracker.
func New(cfg Config) *Tracker {
	cfg.defaults()
	return &Tracker{cfg: cfg, eval: submission.NewEvaluator(cfg.Threshold), logger: cfg.Logger}
}

// Entry is one assignment with its derived status.
type Entry struct {
	Course         string              `json:"course"`
	Name           string              `json:"name"`
	DueAt          *string             `json:"due_at"`
	DueAtFormatted *string             `json:"due_at_formatted,omitempty"`
	Points         *float64            `json:"points"`
	URL            string              `json:"url"`
	Path           string              `json:"path"`
	HasSubmitted   bool                `json:"has_submitted"`
	IsGraded       bool                `json:"is_graded"`
	Score          *float64            `json:"score,omitempty"`
	Grade          *string             `json:"grade,omitempty"`
	Status         submission.Status   `json:"status"`
	Progress       submission.Progress `json:"progress"`
	Workflow       string              `json:"workflow"`

	due time.Time
}

// Due returns the parsed due date, zero when absent.
func (e Entry) Due() time.Time { return e.due }

// CourseSummary describes one synced course.
type CourseSummary struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Term        *string `json:"term"`
	Path        string  `json:"path"`
	Assignments int     `json:"assignments"`
	Upcoming    int     `json:"upcoming"`
	HasSyllabus bool    `json:"has_syllabus"`
	FetchedAt   string  `json:"fetched_at"`
}

// Courses lists the synced courses with their assignment counts.
func (t *Tracker) Courses() ([]CourseSummary, error) {
	courses, err := t.cfg.Tree.Courses()
	if err != nil {
		return nil, err
	}
	now := t.cfg.Now()
	horizon := now.AddDate(0, 0, t.cfg.CourseWindowDays)

	out := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		recs, err := layout.Assignments(c.Dir)
		if err != nil {
			t.logger.Warn("tracker: read assignments", "course", c.Name, "error", err)
		}
		s := CourseSummary{
			Name:        c.Name,
			Code:        c.Code,
			Term:        c.Term,
			Path:        c.Dir,
			Assignments: len(recs),
			FetchedAt:   c.FetchedAt,
		}
		for _, r := range recs {
			if due, ok := r.Due(); ok && within(due, now, horizon) {
				s.Upcoming++
			}
		}
		if _, err := os.Stat(filepath.Join(c.Dir, layout.SyllabusFile)); err == nil {
			s.HasSyllabus = true
		}
		out = append(out, s)
	}
	return out, nil
}

// Upcoming lists assignments due within the next days days, across every
// course, ordered by due date. Assignments without a due date are skipped.
func (t *Tracker) Upcoming(days int) ([]Entry, error) {
	if days < 0 {
		return nil, fmt.Errorf("tracker: days must not be negative, got %d", days)
	}
	courses, err := t.cfg.Tree.Courses()
	if err != nil {
		return nil, err
	}
	now := t.cfg.Now()
	horizon := now.AddDate(0, 0, days)

	var out []Entry
	for _, c := range courses {
		recs, err := layout.Assignments(c.Dir)
		if err != nil {
			t.logger.Warn("tracker: read assignments", "course", c.Name, "error", err)
			continue
		}
		for _, r := range recs {
			due, ok := r.Due()
			if !ok || !within(due, now, horizon) {
				continue
			}
			if r.Course == "" {
				r.Course = c.Name
			}
			e, err := t.entry(r)
			if err != nil {
				t.logger.Warn("tracker: status", "assignment", r.Name, "error", err)
				continue
			}
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].due.Equal(out[j].due) {
			return out[i].due.Before(out[j].due)
		}
		if out[i].Course != out[j].Course {
			return out[i].Course < out[j].Course
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Status resolves "<course>/<assignment>" and derives its status.
func (t *Tracker) Status(ref string) (Entry, error) {
	rec, err := t.cfg.Tree.FindAssignment(ref)
	if err != nil {
		return Entry{}, err
	}
	return t.entry(rec)
}

// NeedsRecheck reports whether the active submission file of ref changed
// since its last AI check. It also returns the submission directory.
func (t *Tracker) NeedsRecheck(ref string) (bool, string, error) {
	rec, err := t.cfg.Tree.FindAssignment(ref)
	if err != nil {
		return false, "", err
	}
	dir := layout.SubmissionPath(rec.Dir)
	return detectcache.NeedsRecheck(dir), dir, nil
}

func (t *Tracker) entry(r layout.AssignmentRecord) (Entry, error) {
	st, err := t.eval.EvaluateAssignment(r.Dir, r.HasSubmitted)
	if err != nil {
		return Entry{}, err
	}
	p := submission.Workflow(st)
	e := Entry{
		Course:         r.Course,
		Name:           r.Name,
		DueAt:          r.DueAt,
		DueAtFormatted: r.DueAtFormatted,
		Points:         r.PointsPossible,
		URL:            r.URL,
		Path:           r.Dir,
		HasSubmitted:   r.HasSubmitted,
		IsGraded:       r.IsGraded,
		Score:          r.Score,
		Grade:          r.Grade,
		Status:         st,
		Progress:       p,
		Workflow:       p.Line(),
	}
	if due, ok := r.Due(); ok {
		e.due = due
	}
	return e, nil
}

func within(due, now, horizon time.Time) bool {
	return !due.Before(now) && !due.After(horizon)
}
