// CLAUDE:SUMMARY Typed LMS REST client: users/self, active courses, assignments, modules, pages, file metadata over an injected fetch capability.
// CLAUDE:DEPENDS canvas/types.go
// CLAUDE:EXPORTS Client, New, Fetcher, ErrUnauthorized
// Package canvas wraps the handful of LMS REST endpoints a sync needs.
//
// The client never talks HTTP itself: it goes through a Fetcher, which
// carries authentication (cookie session or bearer token) and resolves
// relative URLs against the LMS base URL.
package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrUnauthorized is returned when the LMS rejects the credentials.
var ErrUnauthorized = errors.New("canvas: unauthorized")

// Fetcher is the authenticated fetch capability.
// Get expects a JSON response; GetRaw returns the body bytes unchanged.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
	GetRaw(ctx context.Context, url string) ([]byte, error)
}

// Endpoint paths, relative to the LMS base URL.
const (
	pathSelf        = "/api/v1/users/self"
	pathCourses     = "/api/v1/courses?enrollment_state=active&per_page=50&include[]=syllabus_body&include[]=term"
	pathAssignments = "/api/v1/courses/%d/assignments?per_page=100&include[]=rubric&include[]=submission"
	pathModules     = "/api/v1/courses/%d/modules?include[]=items&per_page=50"
	pathFile        = "/api/v1/courses/%d/files/%d"
)

// Client is a typed view over the LMS API.
type Client struct {
	f      Fetcher
	logger *slog.Logger
}

// New creates a Client. A nil logger uses slog.Default().
func New(f Fetcher, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{f: f, logger: logger}
}

// Fetcher returns the underlying fetch capability.
func (c *Client) Fetcher() Fetcher { return c.f }

// Self returns the authenticated user. It is the cheapest credential check.
func (c *Client) Self(ctx context.Context) (*User, error) {
	var u User
	if err := c.getJSON(ctx, pathSelf, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Courses lists active enrollments with syllabus bodies and terms.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := c.getJSON(ctx, pathCourses, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// Assignments lists a course's assignments with rubric and own submission.
func (c *Client) Assignments(ctx context.Context, courseID int64) ([]Assignment, error) {
	var out []Assignment
	if err := c.getJSON(ctx, fmt.Sprintf(pathAssignments, courseID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Modules lists a course's modules with their items inlined.
func (c *Client) Modules(ctx context.Context, courseID int64) ([]Module, error) {
	var out []Module
	if err := c.getJSON(ctx, fmt.Sprintf(pathModules, courseID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Page fetches a wiki page by the API URL carried in its module item.
func (c *Client) Page(ctx context.Context, url string) (*Page, error) {
	var p Page
	if err := c.getJSON(ctx, url, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// File fetches file metadata by the API URL carried in its module item.
func (c *Client) File(ctx context.Context, url string) (*File, error) {
	var f File
	if err := c.getJSON(ctx, url, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FileURL builds the metadata URL of a course file from its ids.
func FileURL(courseID, fileID int64) string {
	return fmt.Sprintf(pathFile, courseID, fileID)
}

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	c.logger.Debug("canvas: get", "url", url)
	body, err := c.f.Get(ctx, url)
	if err != nil {
		var sc statusCoder
		if errors.As(err, &sc) && sc.StatusCode() == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s: %v", ErrUnauthorized, url, err)
		}
		return fmt.Errorf("canvas: get %s: %w", url, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("canvas: decode %s (%d bytes): %w", url, len(body), err)
	}
	return nil
}
