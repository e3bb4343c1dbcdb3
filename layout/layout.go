// CLAUDE:SUMMARY On-disk tree of synced courses: path builders, persisted record types, atomic writers and readers.
// CLAUDE:DEPENDS canvas
// CLAUDE:EXPORTS Tree, CourseInfo, AssignmentRecord, ModuleRecord, ItemRecord, UpcomingEntry, Sanitize
// Package layout owns the directory tree a sync produces:
//
//	<root>/courses/<course>/course_info.json
//	<root>/courses/<course>/syllabus.md
//	<root>/courses/<course>/assignments/<name>/{assignment.json,requirements.md,rubric.md,submission/}
//	<root>/courses/<course>/modules/<name>/{module.json,content.md}
//	<root>/courses/<course>/files/
//	<root>/upcoming_assignments.json
//
// A name that sanitizes to nothing is replaced by <kind>_<id>. Every file is
// rewritten whole on each sync. Files a student creates under
// submission/ are never touched.
package layout

import (
	"fmt"
	"path/filepath"
)

// File and directory names inside the tree.
const (
	CoursesDir      = "courses"
	AssignmentsDir  = "assignments"
	ModulesDir      = "modules"
	FilesDir        = "files"
	SubmissionDir   = "submission"
	CourseInfoFile  = "course_info.json"
	SyllabusFile    = "syllabus.md"
	AssignmentFile  = "assignment.json"
	RequirementFile = "requirements.md"
	RubricFile      = "rubric.md"
	ModuleFile      = "module.json"
	ContentFile     = "content.md"
	UpcomingFile    = "upcoming_assignments.json"
)

// Tree resolves paths under a data directory.
type Tree struct {
	root string
}

// New returns a Tree rooted at dataDir.
func New(dataDir string) *Tree {
	return &Tree{root: dataDir}
}

// Root returns the data directory.
func (t *Tree) Root() string { return t.root }

// CoursesRoot is the directory holding one subdirectory per course.
func (t *Tree) CoursesRoot() string { return filepath.Join(t.root, CoursesDir) }

// CourseDir is the directory of a course. A name that sanitizes to nothing
// falls back to course_<id>.
func (t *Tree) CourseDir(courseName string, courseID int64) string {
	return filepath.Join(t.CoursesRoot(), dirName(courseName, "course", courseID))
}

// AssignmentDir is the directory of one assignment inside courseDir.
func AssignmentDir(courseDir, assignmentName string, assignmentID int64) string {
	return filepath.Join(courseDir, AssignmentsDir, dirName(assignmentName, "assignment", assignmentID))
}

// ModuleDir is the directory of one module inside courseDir.
func ModuleDir(courseDir, moduleName string, moduleID int64) string {
	return filepath.Join(courseDir, ModulesDir, dirName(moduleName, "module", moduleID))
}

// FilesPath is where a course's downloaded files land.
func FilesPath(courseDir string) string {
	return filepath.Join(courseDir, FilesDir)
}

func dirName(name, kind string, id int64) string {
	if s := Sanitize(name); s != "" {
		return s
	}
	return fmt.Sprintf("%s_%d", kind, id)
}

// UpcomingPath is the top-level upcoming summary.
func (t *Tree) UpcomingPath() string {
	return filepath.Join(t.root, UpcomingFile)
}

// SubmissionPath returns the submission directory inside an assignment dir.
func SubmissionPath(assignmentDir string) string {
	return filepath.Join(assignmentDir, SubmissionDir)
}
