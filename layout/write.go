package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hazyhaar/coursesync/canvas"
)

// WriteFileAtomic writes data to path through a temp file and rename so a
// concurrent reader never sees a partial file.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("layout: mkdir %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("layout: write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("layout: rename: %w", err)
	}
	return nil
}

// WriteJSON writes v as two-space indented JSON.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("layout: marshal %s: %w", filepath.Base(path), err)
	}
	return WriteFileAtomic(path, append(data, '\n'))
}

// WriteCourse writes course_info.json and, when the syllabus is non-empty,
// syllabus.md. It returns the course directory.
func (t *Tree) WriteCourse(info CourseInfo, syllabusMD string) (string, error) {
	dir := t.CourseDir(info.Name, info.ID)
	if err := WriteJSON(filepath.Join(dir, CourseInfoFile), info); err != nil {
		return "", err
	}
	if syllabusMD != "" {
		body := fmt.Sprintf("# %s - Syllabus\n\n%s", info.Name, syllabusMD)
		if err := WriteFileAtomic(filepath.Join(dir, SyllabusFile), []byte(body)); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// WriteAssignment writes assignment.json, requirements.md and, when the
// assignment has one, rubric.md under courseDir. The submission directory is
// created but its contents are left alone. It returns the assignment directory.
func WriteAssignment(courseDir string, rec AssignmentRecord, descriptionMD string, rubric []canvas.RubricCriterion) (string, error) {
	dir := AssignmentDir(courseDir, rec.Name, rec.ID)
	if err := WriteJSON(filepath.Join(dir, AssignmentFile), rec); err != nil {
		return "", err
	}
	if err := WriteFileAtomic(filepath.Join(dir, RequirementFile), []byte(RequirementsMarkdown(rec, descriptionMD))); err != nil {
		return "", err
	}
	if len(rubric) > 0 {
		if err := WriteFileAtomic(filepath.Join(dir, RubricFile), []byte(RubricMarkdown(rec, rubric))); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(SubmissionPath(dir), 0o755); err != nil {
		return "", fmt.Errorf("layout: mkdir submission: %w", err)
	}
	return dir, nil
}

// WriteModule writes module.json and content.md under courseDir. It returns
// the module directory.
func WriteModule(courseDir string, mod ModuleRecord, items []ItemEntry) (string, error) {
	dir := ModuleDir(courseDir, mod.Name, mod.ID)
	if err := WriteJSON(filepath.Join(dir, ModuleFile), mod); err != nil {
		return "", err
	}
	if err := WriteFileAtomic(filepath.Join(dir, ContentFile), []byte(ModuleMarkdown(mod.Name, items))); err != nil {
		return "", err
	}
	return dir, nil
}

// WriteUpcoming replaces upcoming_assignments.json.
func (t *Tree) WriteUpcoming(entries []UpcomingEntry) error {
	if entries == nil {
		entries = []UpcomingEntry{}
	}
	return WriteJSON(t.UpcomingPath(), entries)
}

// RequirementsMarkdown renders requirements.md.
func RequirementsMarkdown(rec AssignmentRecord, descriptionMD string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", rec.Name)
	fmt.Fprintf(&sb, "**Course:** %s\n", rec.Course)
	fmt.Fprintf(&sb, "**Due:** %s\n", orDefault(rec.DueAtFormatted, "No due date"))
	points := "Not specified"
	if rec.PointsPossible != nil && *rec.PointsPossible != 0 {
		points = formatPoints(*rec.PointsPossible)
	}
	fmt.Fprintf(&sb, "**Points:** %s\n", points)
	types := strings.Join(rec.SubmissionTypes, ", ")
	if types == "" {
		types = "Not specified"
	}
	fmt.Fprintf(&sb, "**Submission Type:** %s\n", types)
	if len(rec.AllowedExtensions) > 0 {
		fmt.Fprintf(&sb, "**Allowed File Types:** %s\n", strings.Join(rec.AllowedExtensions, ", "))
	}
	sb.WriteString("\n---\n\n")
	sb.WriteString("## Assignment Description\n\n")
	if descriptionMD == "" {
		sb.WriteString("*No description provided*")
	} else {
		sb.WriteString(descriptionMD)
	}
	sb.WriteString("\n")
	return sb.String()
}

// RubricMarkdown renders rubric.md: one section per criterion with a
// rating table.
func RubricMarkdown(rec AssignmentRecord, rubric []canvas.RubricCriterion) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Rubric: %s\n\n", rec.Name)
	total := "N/A"
	if rec.PointsPossible != nil {
		total = formatPoints(*rec.PointsPossible)
	}
	fmt.Fprintf(&sb, "**Total Points:** %s\n\n", total)

	for _, c := range rubric {
		desc := c.Description
		if desc == "" {
			desc = "Criterion"
		}
		fmt.Fprintf(&sb, "## %s\n", desc)
		fmt.Fprintf(&sb, "**Points:** %s\n\n", formatPoints(c.Points))
		if len(c.Ratings) == 0 {
			continue
		}
		sb.WriteString("| Rating | Points | Description |\n")
		sb.WriteString("|--------|--------|-------------|\n")
		for _, r := range c.Ratings {
			long := r.LongDescription
			if long == "" {
				long = r.Description
			}
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", r.Description, formatPoints(r.Points), cell(long))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ModuleMarkdown renders content.md for a module.
func ModuleMarkdown(name string, items []ItemEntry) string {
	if name == "" {
		name = "Module"
	}
	parts := []string{fmt.Sprintf("# %s\n", name)}
	for _, it := range items {
		title := it.Title
		if title == "" {
			title = "Untitled"
		}
		typ := it.Type
		if typ == "" {
			typ = "unknown"
		}
		parts = append(parts, fmt.Sprintf("\n## %s\n", title))
		parts = append(parts, fmt.Sprintf("*Type: %s*\n", typ))
		if it.Content != "" {
			parts = append(parts, fmt.Sprintf("\n%s\n", it.Content))
		}
		if it.URL != "" {
			parts = append(parts, fmt.Sprintf("\nSource: %s\n", it.URL))
		}
		parts = append(parts, "\n---\n")
	}
	return strings.Join(parts, "\n")
}

// formatPoints prints 10 as "10" and 2.5 as "2.5".
func formatPoints(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// cell keeps a table cell on one line.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
