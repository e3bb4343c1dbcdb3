package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/hazyhaar/coursesync/canvas"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Lab 1: Intro?", "Lab_1_Intro"},
		{"  spaced   out  ", "spaced_out"},
		{`a<b>c:"d/e\f|g?h*`, "abcdefgh"},
		{"...hidden_", "hidden"},
		{"Essay\t\n draft", "Essay_draft"},
		{"<>:?*", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize_Properties(t *testing.T) {
	// WHAT: Output never contains forbidden characters, stays within 100 runes
	// and never starts or ends with '.' or '_'.
	// WHY: Names become directory names on every platform.
	inputs := []string{
		strings.Repeat("a", 150),
		strings.Repeat("é", 120),
		strings.Repeat("x", 99) + " .",
		strings.Repeat("ab ", 60),
		"..." + strings.Repeat("_", 200) + "...",
		"Week 3 / Reading: \"Chapter 2\" | notes?",
	}
	for _, in := range inputs {
		got := Sanitize(in)
		if strings.ContainsAny(got, `<>:"/\|?*`) {
			t.Errorf("Sanitize(%q) = %q contains forbidden characters", in, got)
		}
		if n := utf8.RuneCountInString(got); n > MaxNameLen {
			t.Errorf("Sanitize(%q) has %d runes", in, n)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Sanitize(%q) split a UTF-8 sequence", in)
		}
		if strings.HasPrefix(got, ".") || strings.HasPrefix(got, "_") ||
			strings.HasSuffix(got, ".") || strings.HasSuffix(got, "_") {
			t.Errorf("Sanitize(%q) = %q has leading/trailing . or _", in, got)
		}
	}
}

func ptr[T any](v T) *T { return &v }

func TestNewAssignmentRecord_SubmissionFlags(t *testing.T) {
	// WHAT: has_submitted and is_graded follow the workflow state.
	// WHY: The tracker overlays "submitted" from these flags.
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		state     string
		submitted bool
		graded    bool
	}{
		{"", false, false},
		{"unsubmitted", false, false},
		{"submitted", true, false},
		{"pending_review", true, false},
		{"graded", true, true},
	}
	for _, tt := range tests {
		a := canvas.Assignment{ID: 7, Name: "Essay"}
		if tt.state != "" {
			a.Submission = &canvas.Submission{WorkflowState: tt.state}
		}
		rec := NewAssignmentRecord(a, "Writing 101", now)
		if rec.HasSubmitted != tt.submitted || rec.IsGraded != tt.graded {
			t.Errorf("state %q: has_submitted=%v is_graded=%v", tt.state, rec.HasSubmitted, rec.IsGraded)
		}
		if tt.state == "" && rec.WorkflowState != "unsubmitted" {
			t.Errorf("missing submission should read as unsubmitted, got %q", rec.WorkflowState)
		}
	}
}

func TestNewAssignmentRecord_DueDate(t *testing.T) {
	a := canvas.Assignment{Name: "Quiz", DueAt: ptr("2025-03-01T18:59:00-05:00")}
	rec := NewAssignmentRecord(a, "Math", time.Now())
	if rec.DueAt == nil || *rec.DueAt != "2025-03-01T23:59:00Z" {
		t.Fatalf("due_at = %v", rec.DueAt)
	}
	if rec.DueAtFormatted == nil || *rec.DueAtFormatted != "2025-03-01 23:59 UTC" {
		t.Fatalf("due_at_formatted = %v", rec.DueAtFormatted)
	}

	none := NewAssignmentRecord(canvas.Assignment{Name: "Open"}, "Math", time.Now())
	if none.DueAt != nil || none.DueAtFormatted != nil {
		t.Fatal("expected null due dates")
	}
	if none.SubmissionTypes == nil || none.AllowedExtensions == nil {
		t.Fatal("lists should be empty, not null")
	}
}

func TestWriteAssignment_RoundTrip(t *testing.T) {
	// WHAT: assignment.json, requirements.md and rubric.md are written and read back.
	// WHY: The tracker only sees what the writer persisted.
	tree := New(t.TempDir())
	a := canvas.Assignment{
		ID:                42,
		Name:              "Lab 2: Sorting",
		DueAt:             ptr("2025-04-10T23:59:00Z"),
		PointsPossible:    ptr(20.0),
		SubmissionTypes:   []string{"online_upload"},
		AllowedExtensions: []string{"py", "pdf"},
		HTMLURL:           "https://lms.example.edu/courses/1/assignments/42",
		Submission:        &canvas.Submission{WorkflowState: "graded", Score: ptr(18.5), Grade: ptr("18.5")},
	}
	rubric := []canvas.RubricCriterion{{
		Description: "Correctness",
		Points:      15,
		Ratings: []canvas.RubricRating{
			{Description: "Full", Points: 15, LongDescription: "All tests pass"},
			{Description: "None", Points: 0},
		},
	}}
	rec := NewAssignmentRecord(a, "CS 101", time.Now())

	dir, err := WriteAssignment(tree.CourseDir("CS 101", 1), rec, "Implement **merge sort**.", rubric)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dir) != "Lab_2_Sorting" {
		t.Errorf("dir = %s", dir)
	}

	back, err := ReadAssignment(dir)
	if err != nil {
		t.Fatal(err)
	}
	if back.ID != 42 || !back.HasSubmitted || !back.IsGraded || *back.Score != 18.5 {
		t.Errorf("round trip lost fields: %+v", back)
	}

	req, _ := os.ReadFile(filepath.Join(dir, RequirementFile))
	for _, want := range []string{
		"# Lab 2: Sorting\n\n",
		"**Course:** CS 101\n",
		"**Due:** 2025-04-10 23:59 UTC\n",
		"**Points:** 20\n",
		"**Submission Type:** online_upload\n",
		"**Allowed File Types:** py, pdf\n",
		"## Assignment Description\n\nImplement **merge sort**.\n",
	} {
		if !strings.Contains(string(req), want) {
			t.Errorf("requirements.md missing %q:\n%s", want, req)
		}
	}

	rub, _ := os.ReadFile(filepath.Join(dir, RubricFile))
	for _, want := range []string{
		"# Rubric: Lab 2: Sorting\n\n**Total Points:** 20\n",
		"## Correctness\n**Points:** 15\n",
		"| Full | 15 | All tests pass |\n",
		"| None | 0 | None |\n",
	} {
		if !strings.Contains(string(rub), want) {
			t.Errorf("rubric.md missing %q:\n%s", want, rub)
		}
	}

	if fi, err := os.Stat(SubmissionPath(dir)); err != nil || !fi.IsDir() {
		t.Error("submission directory not created")
	}
}

func TestWriteAssignment_KeepsSubmissionFiles(t *testing.T) {
	// WHAT: Re-syncing never touches files the student wrote.
	// WHY: Metadata is clobbered on every sync; drafts are not.
	tree := New(t.TempDir())
	rec := NewAssignmentRecord(canvas.Assignment{Name: "Essay"}, "English", time.Now())
	courseDir := tree.CourseDir("English", 2)
	dir, err := WriteAssignment(courseDir, rec, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	draft := filepath.Join(SubmissionPath(dir), "draft.md")
	if err := os.WriteFile(draft, []byte("my words"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteAssignment(courseDir, rec, "", nil); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(draft); string(data) != "my words" {
		t.Errorf("draft changed: %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, RubricFile)); !os.IsNotExist(err) {
		t.Error("rubric.md should not exist without a rubric")
	}
	req, _ := os.ReadFile(filepath.Join(dir, RequirementFile))
	if !strings.Contains(string(req), "*No description provided*") || !strings.Contains(string(req), "**Due:** No due date") {
		t.Errorf("defaults missing:\n%s", req)
	}
}

func TestModuleMarkdown(t *testing.T) {
	got := ModuleMarkdown("Week 1", []ItemEntry{
		{Title: "Welcome", Type: "page", Content: "Hello class", URL: "https://lms/pages/welcome"},
		{Title: "Heading", Type: "subheader"},
	})
	want := "# Week 1\n\n\n## Welcome\n\n*Type: page*\n\n\nHello class\n\n\nSource: https://lms/pages/welcome\n\n\n---\n\n\n## Heading\n\n*Type: subheader*\n\n\n---\n"
	if got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestCoursesAndFind(t *testing.T) {
	tree := New(t.TempDir())
	info := NewCourseInfo(canvas.Course{ID: 1, Name: "Data Structures", CourseCode: "CS201", Term: &canvas.Term{Name: "Fall 2025"}}, time.Now())
	courseDir, err := tree.WriteCourse(info, "Read chapter 1.")
	if err != nil {
		t.Fatal(err)
	}
	rec := NewAssignmentRecord(canvas.Assignment{ID: 9, Name: "Homework 3"}, info.Name, time.Now())
	if _, err := WriteAssignment(courseDir, rec, "", nil); err != nil {
		t.Fatal(err)
	}

	courses, err := tree.Courses()
	if err != nil || len(courses) != 1 {
		t.Fatalf("courses = %v, %v", courses, err)
	}
	if courses[0].Term == nil || *courses[0].Term != "Fall 2025" {
		t.Errorf("term lost: %+v", courses[0])
	}
	syl, _ := os.ReadFile(filepath.Join(courses[0].Dir, SyllabusFile))
	if string(syl) != "# Data Structures - Syllabus\n\nRead chapter 1." {
		t.Errorf("syllabus = %q", syl)
	}

	got, err := tree.FindAssignment("cs201/homework")
	if err != nil || got.ID != 9 {
		t.Fatalf("find = %+v, %v", got, err)
	}
	if _, err := tree.FindAssignment("cs201/missing"); err == nil {
		t.Fatal("expected not found")
	}
	if _, err := tree.FindAssignment("no-slash"); err == nil {
		t.Fatal("expected malformed reference error")
	}
}

func TestUpcoming_RoundTrip(t *testing.T) {
	tree := New(t.TempDir())
	if got, err := tree.ReadUpcoming(); err != nil || got != nil {
		t.Fatalf("missing file: %v, %v", got, err)
	}
	entries := []UpcomingEntry{
		{Course: "B", Name: "late", DueAt: "2025-05-02T10:00:00Z"},
		{Course: "A", Name: "early", DueAt: "2025-05-01T10:00:00Z"},
	}
	SortUpcoming(entries)
	if err := tree.WriteUpcoming(entries); err != nil {
		t.Fatal(err)
	}
	back, err := tree.ReadUpcoming()
	if err != nil || len(back) != 2 || back[0].Name != "early" {
		t.Fatalf("got %+v, %v", back, err)
	}
}

func TestEmptySanitizedNames_FallBackToIDs(t *testing.T) {
	// WHAT: Titles that sanitize to nothing get <kind>_<id> directories, one per record.
	// WHY: Two such assignments must not overwrite each other or land on the parent directory.
	tree := New(t.TempDir())
	courseDir, err := tree.WriteCourse(CourseInfo{ID: 5, Name: "???"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(courseDir) != "course_5" {
		t.Fatalf("course dir = %s", courseDir)
	}

	dirA, err := WriteAssignment(courseDir, AssignmentRecord{ID: 1, Name: "???", Course: "???"}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	dirB, err := WriteAssignment(courseDir, AssignmentRecord{ID: 2, Name: "***", Course: "???"}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if dirA == dirB || filepath.Base(dirA) != "assignment_1" || filepath.Base(dirB) != "assignment_2" {
		t.Fatalf("dirs = %s, %s", dirA, dirB)
	}
	if _, err := os.Stat(filepath.Join(courseDir, AssignmentsDir, AssignmentFile)); !os.IsNotExist(err) {
		t.Error("assignment.json written directly into assignments/")
	}
	recs, err := Assignments(courseDir)
	if err != nil || len(recs) != 2 {
		t.Errorf("assignments = %d, %v", len(recs), err)
	}

	modDir, err := WriteModule(courseDir, ModuleRecord{ID: 8, Name: "///"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(modDir) != "module_8" {
		t.Errorf("module dir = %s", modDir)
	}

	courses, err := tree.Courses()
	if err != nil || len(courses) != 1 || courses[0].ID != 5 {
		t.Errorf("courses = %+v, %v", courses, err)
	}
}
