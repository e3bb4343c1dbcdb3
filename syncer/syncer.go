// CLAUDE:SUMMARY Sync orchestrator: walks courses, assignments and modules from the LMS into the local tree with per-item partial success.
// CLAUDE:DEPENDS canvas, content, extract, layout, ledger
// CLAUDE:EXPORTS Syncer, New, Config, Report, ErrNoCourses
// Package syncer mirrors the LMS account into the local tree.
//
// One failing item, module, assignment or course is logged and counted but
// never stops its siblings. Only the course list itself is fatal: without it
// nothing is written.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/coursesync/canvas"
	"github.com/hazyhaar/coursesync/content"
	"github.com/hazyhaar/coursesync/extract"
	"github.com/hazyhaar/coursesync/layout"
	"github.com/hazyhaar/coursesync/ledger"
)

// ErrNoCourses is returned when the account has no active course.
var ErrNoCourses = errors.New("syncer: no active courses")

// Config configures a Syncer.
type Config struct {
	// Client talks to the LMS. Required.
	Client *canvas.Client
	// Tree is the output tree. Required.
	Tree *layout.Tree
	// Normalizer converts module items. Default: content.NewNormalizer over Client.
	Normalizer *content.Normalizer
	// Renderer converts syllabus bodies. Default: extract.NewRenderer.
	Renderer *extract.Renderer
	// Ledger records the run. Optional.
	Ledger *ledger.Ledger
	// BaseURL resolves relative links in the syllabus.
	BaseURL string
	// UpcomingDays is the window of upcoming_assignments.json. Default: 14.
	UpcomingDays int
	// SkipModules only syncs courses and assignments.
	SkipModules bool
	Now         func() time.Time
	Logger      *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Renderer == nil {
		c.Renderer = extract.NewRenderer(c.Logger)
	}
	if c.Normalizer == nil && c.Client != nil {
		ncfg := content.Config{
			Renderer: c.Renderer,
			BaseURL:  c.BaseURL,
			Logger:   c.Logger,
		}
		if c.Ledger != nil {
			ncfg.Ledger = c.Ledger
		}
		c.Normalizer = content.NewNormalizer(c.Client.Fetcher(), ncfg)
	}
	if c.UpcomingDays <= 0 {
		c.UpcomingDays = 14
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Report summarises a sync.
type Report struct {
	RunID          string
	Courses        int
	Assignments    int
	Modules        int
	Items          int
	ItemsExtracted int
	Failures       int
	Upcoming       []layout.UpcomingEntry
}

// Syncer runs syncs.
type Syncer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Syncer.
func New(cfg Config) *Syncer {
	cfg.defaults()
	return &Syncer{cfg: cfg, logger: cfg.Logger}
}

// Run performs one full sync.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	rep := &Report{}
	run := s.startRun(ctx)
	if run != nil {
		rep.RunID = run.ID
	}

	err := s.run(ctx, rep)
	s.finishRun(ctx, run, rep, err)
	if err != nil {
		return rep, err
	}
	s.logger.Info("syncer: done",
		"courses", rep.Courses, "assignments", rep.Assignments, "modules", rep.Modules,
		"items", rep.Items, "extracted", rep.ItemsExtracted, "failures", rep.Failures)
	return rep, nil
}

func (s *Syncer) run(ctx context.Context, rep *Report) error {
	courses, err := s.cfg.Client.Courses(ctx)
	if err != nil {
		return fmt.Errorf("syncer: list courses: %w", err)
	}
	if len(courses) == 0 {
		return ErrNoCourses
	}
	s.logger.Info("syncer: courses", "count", len(courses))

	now := s.cfg.Now()
	horizon := now.Add(time.Duration(s.cfg.UpcomingDays) * 24 * time.Hour)

	for _, c := range courses {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Name == "" {
			continue
		}
		if err := s.syncCourse(ctx, c, now, horizon, rep); err != nil {
			rep.Failures++
			s.logger.Warn("syncer: course failed", "course", c.Name, "error", err)
			continue
		}
		rep.Courses++
	}

	layout.SortUpcoming(rep.Upcoming)
	if err := s.cfg.Tree.WriteUpcoming(rep.Upcoming); err != nil {
		return fmt.Errorf("syncer: write upcoming: %w", err)
	}
	return nil
}

// syncCourse writes one course. Only a failure to write the course itself is
// returned; assignment and module failures are counted in rep.
func (s *Syncer) syncCourse(ctx context.Context, c canvas.Course, now, horizon time.Time, rep *Report) error {
	log := s.logger.With("course", c.Name)

	syllabus := ""
	if c.SyllabusBody != "" {
		syllabus = s.cfg.Renderer.Render(c.SyllabusBody, s.cfg.BaseURL)
	}
	courseDir, err := s.cfg.Tree.WriteCourse(layout.NewCourseInfo(c, now), syllabus)
	if err != nil {
		return err
	}

	assignments, err := s.cfg.Client.Assignments(ctx, c.ID)
	if err != nil {
		rep.Failures++
		log.Warn("syncer: assignments failed", "error", err)
	}
	for _, a := range assignments {
		rec := layout.NewAssignmentRecord(a, c.Name, now)
		dir, err := layout.WriteAssignment(courseDir, rec, extract.HTMLToMarkdown(a.Description), a.Rubric)
		if err != nil {
			rep.Failures++
			log.Warn("syncer: write assignment failed", "assignment", a.Name, "error", err)
			continue
		}
		rep.Assignments++
		if due, ok := rec.Due(); ok && !due.Before(now) && !due.After(horizon) {
			rep.Upcoming = append(rep.Upcoming, layout.UpcomingEntry{
				Course: c.Name,
				Name:   rec.Name,
				DueAt:  *rec.DueAt,
				Points: rec.PointsPossible,
				URL:    rec.URL,
				Path:   dir,
			})
		}
	}
	log.Debug("syncer: assignments written", "count", len(assignments))

	if s.cfg.SkipModules {
		return nil
	}

	modules, err := s.cfg.Client.Modules(ctx, c.ID)
	if err != nil {
		rep.Failures++
		log.Warn("syncer: modules failed", "error", err)
		return nil
	}
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.syncModule(ctx, c, m, courseDir, rep)
	}
	return nil
}

func (s *Syncer) syncModule(ctx context.Context, c canvas.Course, m canvas.Module, courseDir string, rep *Report) {
	log := s.logger.With("course", c.Name, "module", m.Name)

	entries := make([]layout.ItemEntry, 0, len(m.Items))
	for _, mi := range m.Items {
		it := s.prefetch(ctx, c.ID, content.FromModuleItem(mi))
		rec := s.cfg.Normalizer.Normalize(ctx, it, layout.FilesPath(courseDir))
		rep.Items++
		if rec.Extracted {
			rep.ItemsExtracted++
		}
		entries = append(entries, layout.ItemEntry{
			Title:   rec.Title,
			Type:    rec.Type,
			Content: rec.Content,
			URL:     rec.URL,
		})
	}

	mod := layout.ModuleRecord{ID: m.ID, Name: m.Name, Position: m.Position, ItemsCount: m.ItemsCount}
	if mod.ItemsCount == 0 {
		mod.ItemsCount = len(m.Items)
	}
	if _, err := layout.WriteModule(courseDir, mod, entries); err != nil {
		rep.Failures++
		log.Warn("syncer: write module failed", "error", err)
		return
	}
	rep.Modules++
	log.Debug("syncer: module written", "items", len(entries))
}

// prefetch attaches page bodies and file metadata the normalizer expects
// from its caller.
func (s *Syncer) prefetch(ctx context.Context, courseID int64, it content.Item) content.Item {
	switch v := it.(type) {
	case *content.PageItem:
		if v.APIURL == "" {
			return v
		}
		p, err := s.cfg.Client.Page(ctx, v.APIURL)
		if err != nil {
			s.logger.Debug("syncer: page fetch failed", "title", v.Title, "error", err)
			return v
		}
		v.Body, v.Loaded = p.Body, true
	case *content.FileItem:
		if v.MetaURL == "" && v.ContentID != 0 {
			v.MetaURL = canvas.FileURL(courseID, v.ContentID)
		}
		if v.MetaURL == "" || v.Meta != nil {
			return v
		}
		f, err := s.cfg.Client.File(ctx, v.MetaURL)
		if err != nil {
			s.logger.Debug("syncer: file metadata failed", "title", v.Title, "error", err)
			return v
		}
		v.Meta = f
	}
	return it
}

func (s *Syncer) startRun(ctx context.Context) *ledger.Run {
	if s.cfg.Ledger == nil {
		return nil
	}
	run, err := s.cfg.Ledger.StartRun(ctx)
	if err != nil {
		s.logger.Warn("syncer: ledger start run", "error", err)
		return nil
	}
	return run
}

func (s *Syncer) finishRun(ctx context.Context, run *ledger.Run, rep *Report, runErr error) {
	if run == nil {
		return
	}
	run.Courses = rep.Courses
	run.Assignments = rep.Assignments
	run.Items = rep.Items
	run.ItemsExtracted = rep.ItemsExtracted
	run.Failures = rep.Failures
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// The run row is written even when ctx was cancelled.
	if err := s.cfg.Ledger.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("syncer: ledger finish run", "error", err)
	}
}
