package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a course or assignment is not on disk.
var ErrNotFound = errors.New("layout: not found")

// LocalCourse is a course directory read back from disk.
type LocalCourse struct {
	CourseInfo
	Dir string
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("layout: decode %s: %w", path, err)
	}
	return nil
}

// Courses lists the synced courses, sorted by directory name. Directories
// without a readable course_info.json are skipped.
func (t *Tree) Courses() ([]LocalCourse, error) {
	entries, err := os.ReadDir(t.CoursesRoot())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("layout: list courses: %w", err)
	}

	var out []LocalCourse
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(t.CoursesRoot(), e.Name())
		var info CourseInfo
		if err := ReadJSON(filepath.Join(dir, CourseInfoFile), &info); err != nil {
			continue
		}
		out = append(out, LocalCourse{CourseInfo: info, Dir: dir})
	}
	return out, nil
}

// Assignments reads every assignment.json under a course directory, sorted
// by directory name. Unreadable records are skipped.
func Assignments(courseDir string) ([]AssignmentRecord, error) {
	root := filepath.Join(courseDir, AssignmentsDir)
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("layout: list assignments: %w", err)
	}

	var out []AssignmentRecord
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rec, err := ReadAssignment(filepath.Join(root, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadAssignment reads one assignment directory.
func ReadAssignment(dir string) (AssignmentRecord, error) {
	var rec AssignmentRecord
	if err := ReadJSON(filepath.Join(dir, AssignmentFile), &rec); err != nil {
		return AssignmentRecord{}, err
	}
	rec.Dir = dir
	return rec, nil
}

// FindAssignment locates an assignment by "<course>/<assignment>" where each
// side is matched case-insensitively as a prefix of the sanitized directory
// name or of the display name.
func (t *Tree) FindAssignment(ref string) (AssignmentRecord, error) {
	courseRef, assignRef, ok := strings.Cut(ref, "/")
	if !ok || courseRef == "" || assignRef == "" {
		return AssignmentRecord{}, fmt.Errorf("layout: reference %q must be <course>/<assignment>", ref)
	}

	courses, err := t.Courses()
	if err != nil {
		return AssignmentRecord{}, err
	}
	for _, c := range courses {
		if !matchesRef(courseRef, filepath.Base(c.Dir), c.Name, c.Code) {
			continue
		}
		recs, err := Assignments(c.Dir)
		if err != nil {
			return AssignmentRecord{}, err
		}
		for _, r := range recs {
			if matchesRef(assignRef, filepath.Base(r.Dir), r.Name) {
				return r, nil
			}
		}
	}
	return AssignmentRecord{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

func matchesRef(ref string, candidates ...string) bool {
	ref = strings.ToLower(ref)
	for _, c := range candidates {
		if c != "" && strings.HasPrefix(strings.ToLower(c), ref) {
			return true
		}
	}
	return false
}

// ReadUpcoming reads upcoming_assignments.json; a missing file is empty.
func (t *Tree) ReadUpcoming() ([]UpcomingEntry, error) {
	var out []UpcomingEntry
	err := ReadJSON(t.UpcomingPath(), &out)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return out, err
}

// SortUpcoming orders entries by due date, then course and name.
func SortUpcoming(entries []UpcomingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DueAt != entries[j].DueAt {
			return entries[i].DueAt < entries[j].DueAt
		}
		if entries[i].Course != entries[j].Course {
			return entries[i].Course < entries[j].Course
		}
		return entries[i].Name < entries[j].Name
	})
}
