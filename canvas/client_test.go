package canvas

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) StatusCode() int { return e.code }

// mapFetcher answers from a map keyed by URL; errs take precedence.
type mapFetcher struct {
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func (m *mapFetcher) Get(_ context.Context, url string) ([]byte, error) {
	m.calls = append(m.calls, url)
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	body, ok := m.bodies[url]
	if !ok {
		return nil, statusErr{404}
	}
	return []byte(body), nil
}

func (m *mapFetcher) GetRaw(ctx context.Context, url string) ([]byte, error) {
	return m.Get(ctx, url)
}

func TestCourses(t *testing.T) {
	f := &mapFetcher{bodies: map[string]string{
		pathCourses: `[{"id":1,"name":"CS 201","course_code":"CS201","term":{"name":"Spring 2025"},"syllabus_body":"<p>x</p>"},{"id":2,"name":"History"}]`,
	}}
	courses, err := New(f, nil).Courses(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 2 || courses[0].TermName() != "Spring 2025" || courses[1].TermName() != "" {
		t.Fatalf("courses = %+v", courses)
	}
}

func TestAssignments_Submission(t *testing.T) {
	url := fmt.Sprintf(pathAssignments, 1)
	f := &mapFetcher{bodies: map[string]string{
		url: `[{"id":10,"name":"Essay","submission":{"workflow_state":"graded","score":18}},{"id":11,"name":"Quiz"}]`,
	}}
	got, err := New(f, nil).Assignments(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].WorkflowState() != "graded" || *got[0].Submission.Score != 18 {
		t.Errorf("graded = %+v", got[0])
	}
	if got[1].WorkflowState() != "unsubmitted" {
		t.Errorf("missing submission state = %q", got[1].WorkflowState())
	}
}

func TestUnauthorized(t *testing.T) {
	// WHAT: A 401 from the fetch layer becomes ErrUnauthorized; other statuses do not.
	// WHY: Only rejected credentials should send the user back to login.
	f := &mapFetcher{errs: map[string]error{
		pathSelf:    fmt.Errorf("fetch: %w", statusErr{401}),
		pathCourses: statusErr{500},
	}}
	c := New(f, nil)
	if _, err := c.Self(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("401 err = %v", err)
	}
	if _, err := c.Courses(context.Background()); err == nil || errors.Is(err, ErrUnauthorized) {
		t.Errorf("500 err = %v", err)
	}
}

func TestDecodeError(t *testing.T) {
	url := fmt.Sprintf(pathModules, 3)
	f := &mapFetcher{bodies: map[string]string{url: `<html>login</html>`}}
	_, err := New(f, nil).Modules(context.Background(), 3)
	if err == nil || !strings.Contains(err.Error(), "canvas: decode") {
		t.Fatalf("err = %v", err)
	}
}

func TestFile(t *testing.T) {
	url := FileURL(4, 55)
	if url != "/api/v1/courses/4/files/55" {
		t.Fatalf("FileURL = %q", url)
	}
	f := &mapFetcher{bodies: map[string]string{
		url: `{"id":55,"filename":"notes.pdf","display_name":"Notes","url":"https://files.example/dl","size":10,"updated_at":"2025-01-01T00:00:00Z"}`,
	}}
	file, err := New(f, nil).File(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	if file.Filename != "notes.pdf" || file.Size != 10 || file.URL == "" {
		t.Errorf("file = %+v", file)
	}
}
