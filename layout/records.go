package layout

import (
	"time"

	"github.com/hazyhaar/coursesync/canvas"
)

// DueFormat renders due dates for humans ("2025-03-01 23:59 UTC").
const DueFormat = "2006-01-02 15:04 MST"

// CourseInfo is course_info.json.
type CourseInfo struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	Term      *string `json:"term"`
	FetchedAt string  `json:"fetched_at"`
}

// NewCourseInfo builds the course record from the LMS course.
func NewCourseInfo(c canvas.Course, now time.Time) CourseInfo {
	info := CourseInfo{
		ID:        c.ID,
		Name:      c.Name,
		Code:      c.CourseCode,
		FetchedAt: now.Format(time.RFC3339),
	}
	if term := c.TermName(); term != "" {
		info.Term = &term
	}
	return info
}

// AssignmentRecord is assignment.json.
type AssignmentRecord struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Course            string   `json:"course"`
	DueAt             *string  `json:"due_at"`
	DueAtFormatted    *string  `json:"due_at_formatted"`
	PointsPossible    *float64 `json:"points_possible"`
	SubmissionTypes   []string `json:"submission_types"`
	AllowedExtensions []string `json:"allowed_extensions"`
	URL               string   `json:"url"`
	HasSubmitted      bool     `json:"has_submitted"`
	IsGraded          bool     `json:"is_graded"`
	WorkflowState     string   `json:"workflow_state"`
	SubmittedAt       *string  `json:"submitted_at"`
	Score             *float64 `json:"score"`
	Grade             *string  `json:"grade"`
	FetchedAt         string   `json:"fetched_at"`

	// Dir is the assignment directory the record was read from.
	Dir string `json:"-"`
}

// NewAssignmentRecord derives the persisted record from the LMS assignment.
// has_submitted and is_graded follow from the submission workflow state.
func NewAssignmentRecord(a canvas.Assignment, course string, now time.Time) AssignmentRecord {
	state := a.WorkflowState()
	rec := AssignmentRecord{
		ID:                a.ID,
		Name:              a.Name,
		Course:            course,
		PointsPossible:    a.PointsPossible,
		SubmissionTypes:   nonNil(a.SubmissionTypes),
		AllowedExtensions: nonNil(a.AllowedExtensions),
		URL:               a.HTMLURL,
		HasSubmitted:      IsSubmittedState(state),
		IsGraded:          state == "graded",
		WorkflowState:     state,
		FetchedAt:         now.Format(time.RFC3339),
	}
	if a.DueAt != nil && *a.DueAt != "" {
		raw := *a.DueAt
		rec.DueAt = &raw
		if due, err := time.Parse(time.RFC3339, raw); err == nil {
			utc := due.UTC()
			norm := utc.Format(time.RFC3339)
			formatted := utc.Format(DueFormat)
			rec.DueAt = &norm
			rec.DueAtFormatted = &formatted
		}
	}
	if s := a.Submission; s != nil {
		rec.SubmittedAt = s.SubmittedAt
		rec.Score = s.Score
		rec.Grade = s.Grade
	}
	return rec
}

// IsSubmittedState reports whether an LMS workflow state means the student
// has handed the work in.
func IsSubmittedState(state string) bool {
	switch state {
	case "submitted", "graded", "pending_review":
		return true
	}
	return false
}

// Due parses DueAt, reporting false when absent or malformed.
func (r AssignmentRecord) Due() (time.Time, bool) {
	if r.DueAt == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, *r.DueAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ModuleRecord is module.json.
type ModuleRecord struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
	ItemsCount int    `json:"items_count"`
}

// ItemEntry is one rendered section of content.md.
type ItemEntry struct {
	Title   string
	Type    string
	Content string
	URL     string
}

// UpcomingEntry is one element of upcoming_assignments.json.
type UpcomingEntry struct {
	Course string   `json:"course"`
	Name   string   `json:"name"`
	DueAt  string   `json:"due_at"`
	Points *float64 `json:"points"`
	URL    string   `json:"url"`
	Path   string   `json:"path"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
