package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/coursesync/browser"
	"github.com/hazyhaar/coursesync/canvas"
	"github.com/hazyhaar/coursesync/content"
	"github.com/hazyhaar/coursesync/docpipe"
	"github.com/hazyhaar/coursesync/extract"
	"github.com/hazyhaar/coursesync/fetch"
	"github.com/hazyhaar/coursesync/layout"
	"github.com/hazyhaar/coursesync/ledger"
	"github.com/hazyhaar/coursesync/session"
	"github.com/hazyhaar/coursesync/submission"
	"github.com/hazyhaar/coursesync/syncer"
	"github.com/hazyhaar/coursesync/tracker"
)

func (a *app) store() session.Store { return session.Store{Path: a.cfg.SessionFile} }

func (a *app) tree() *layout.Tree { return layout.New(a.cfg.DataDir) }

func (a *app) tracker() *tracker.Tracker {
	return tracker.New(tracker.Config{
		Tree:             a.tree(),
		Threshold:        a.cfg.AIThreshold,
		CourseWindowDays: a.cfg.UpcomingDays,
		Now:              a.now,
		Logger:           a.logger,
	})
}

// fetcher builds the authenticated fetch capability: the API token when
// configured, the saved browser session otherwise.
func (a *app) fetcher() (*fetch.Fetcher, error) {
	fcfg := fetch.Config{
		BaseURL:     a.cfg.BaseURL,
		Token:       a.cfg.Token,
		Timeout:     a.cfg.HTTP.Timeout,
		RawTimeout:  a.cfg.HTTP.RawTimeout,
		MaxRawBytes: a.cfg.HTTP.MaxRawBytes,
		UserAgent:   a.cfg.HTTP.UserAgent,
		Logger:      a.logger,
	}
	if fcfg.Token == "" {
		sess, err := a.store().Load()
		if err != nil {
			return nil, err
		}
		jar, err := sess.Jar(a.cfg.BaseURL, a.now())
		if err != nil {
			return nil, err
		}
		fcfg.Jar = jar
	}
	return fetch.New(fcfg)
}

// --- sync ---

func (a *app) sync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	skipModules := fs.Bool("skip-modules", false, "only sync courses and assignments")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	f, err := a.fetcher()
	if err != nil {
		return err
	}
	l, err := ledger.Open(a.cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer l.Close()

	renderer := extract.NewRenderer(a.logger)
	norm := content.NewNormalizer(f, content.Config{
		Pipeline: docpipe.New(docpipe.Config{
			MaxInlineChars: a.cfg.Extract.MaxInlineChars,
			ListLimit:      a.cfg.Extract.ListLimit,
			Logger:         a.logger,
		}),
		Renderer: renderer,
		Ledger:   l,
		BaseURL:  a.cfg.BaseURL,
		Logger:   a.logger,
	})
	s := syncer.New(syncer.Config{
		Client:       canvas.New(f, a.logger),
		Tree:         a.tree(),
		Normalizer:   norm,
		Renderer:     renderer,
		Ledger:       l,
		BaseURL:      a.cfg.BaseURL,
		UpcomingDays: a.cfg.UpcomingDays,
		SkipModules:  *skipModules,
		Logger:       a.logger,
	})

	fmt.Fprintf(a.out, "Syncing %s ...\n", a.cfg.BaseURL)
	rep, err := s.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Synced %d courses, %d assignments, %d modules (%d/%d items extracted).\n",
		rep.Courses, rep.Assignments, rep.Modules, rep.ItemsExtracted, rep.Items)
	if rep.Failures > 0 {
		fmt.Fprintf(a.out, "%d parts could not be fetched; rerun with -log-level info for details.\n", rep.Failures)
	}
	fmt.Fprintf(a.out, "%d assignments due in the next %d days. Data in %s\n", len(rep.Upcoming), a.cfg.UpcomingDays, a.cfg.DataDir)
	return nil
}

// --- login / logout ---

func (a *app) login(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "A browser window will open. Sign in; it closes once the dashboard is reached.")
	sess, err := browser.Login(ctx, browser.Config{
		BaseURL:   a.cfg.BaseURL,
		Timeout:   a.cfg.Browser.LoginTimeout,
		RemoteURL: a.cfg.Browser.Remote,
		Bin:       a.cfg.Browser.Bin,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	if err := a.store().Save(*sess); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Session saved to %s (%d cookies).\n", a.cfg.SessionFile, len(sess.Cookies))

	if a.cfg.Token != "" {
		return nil
	}
	f, err := a.fetcher()
	if err != nil {
		return err
	}
	me, err := canvas.New(f, a.logger).Self(ctx)
	if err != nil {
		a.logger.Warn("coursesync: session check failed", "error", err)
		return nil
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", me.Name)
	return nil
}

func (a *app) logout() error {
	if err := a.store().Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Session cleared.")
	return nil
}

// --- where ---

func (a *app) where(ctx context.Context) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Base URL:\t%s\n", orNone(a.cfg.BaseURL))
	fmt.Fprintf(w, "Config dir:\t%s\n", a.cfg.ConfigDir)
	fmt.Fprintf(w, "Session:\t%s\t%s\n", a.cfg.SessionFile, present(a.store().Exists()))
	fmt.Fprintf(w, "Data:\t%s\n", a.cfg.DataDir)
	fmt.Fprintf(w, "Courses:\t%s\n", a.tree().CoursesRoot())
	_, ledgerErr := os.Stat(a.cfg.LedgerPath)
	fmt.Fprintf(w, "Ledger:\t%s\t%s\n", a.cfg.LedgerPath, present(ledgerErr == nil))
	if err := w.Flush(); err != nil {
		return err
	}

	if ledgerErr != nil {
		return nil
	}
	l, err := ledger.Open(a.cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer l.Close()
	last, err := l.LastRun(ctx)
	if err != nil || last == nil {
		return err
	}
	status := "ok"
	if last.Error != "" {
		status = "failed: " + last.Error
	}
	fmt.Fprintf(a.out, "Last sync: %s (%s ago), %d courses, %d failures, %s\n",
		last.StartedAt.Local().Format("2006-01-02 15:04"), ago(a.now().Sub(last.StartedAt)),
		last.Courses, last.Failures, status)
	return nil
}

// --- courses ---

func (a *app) courses() error {
	list, err := a.tracker().Courses()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No courses synced yet. Run `coursesync sync`.")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COURSE\tTERM\tASSIGNMENTS\tUPCOMING\tSYLLABUS\tSYNCED")
	for _, c := range list {
		term := "-"
		if c.Term != nil {
			term = *c.Term
		}
		synced := "never"
		if t, err := time.Parse(time.RFC3339, c.FetchedAt); err == nil {
			synced = ago(a.now().Sub(t)) + " ago"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", truncate(c.Name, 40), term, c.Assignments, c.Upcoming, present(c.HasSyllabus), synced)
	}
	return w.Flush()
}

// --- status ---

func (a *app) status(args []string) error {
	if len(args) != 1 {
		return errors.New("status: usage: coursesync status <course>/<assignment>")
	}
	e, err := a.tracker().Status(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", e.Name, e.Course)
	fmt.Fprintf(a.out, "  Due:    %s\n", dueText(e))
	fmt.Fprintf(a.out, "  Path:   %s\n", layout.SubmissionPath(e.Path))
	fmt.Fprintf(a.out, "  State:  %s\n", e.Status.State)
	fmt.Fprintf(a.out, "  %s\n", e.Workflow)
	if len(e.Status.Files) > 0 {
		fmt.Fprintf(a.out, "  Files:  %s\n", strings.Join(e.Status.Files, ", "))
	}
	if e.Status.Score != nil {
		fmt.Fprintf(a.out, "  AI score (final.md): %.0f%%\n", *e.Status.Score)
	}
	if e.Status.HumanizedScore != nil {
		fmt.Fprintf(a.out, "  AI score (%s): %.0f%%\n", e.Status.HumanizedFile, *e.Status.HumanizedScore)
	}
	if e.Status.NeedsRecheck && e.Status.State != submission.NotStarted {
		fmt.Fprintln(a.out, "  Submission changed since the last AI check.")
	}
	if e.Progress.Next != "" {
		fmt.Fprintf(a.out, "  Next:   %s\n", e.Progress.Next)
	}
	return nil
}

// --- quick view ---

const quickViewLimit = 6

func (a *app) quickView() error {
	switch {
	case a.cfg.Token != "":
		fmt.Fprintln(a.out, "● Using API token")
	case a.store().Exists():
		fmt.Fprintln(a.out, "● Logged in")
	default:
		fmt.Fprintln(a.out, "○ Not logged in - run `coursesync login`")
	}
	fmt.Fprintln(a.out)

	tr := a.tracker()
	courses, err := tr.Courses()
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		fmt.Fprintln(a.out, "No courses synced yet. Run `coursesync sync` to fetch your courses and assignments.")
		return nil
	}

	days := a.cfg.QuickViewDays
	upcoming, err := tr.Upcoming(days)
	if err != nil {
		return err
	}
	if len(upcoming) == 0 {
		fmt.Fprintf(a.out, "No assignments due in the next %d days!\n", days)
		return nil
	}

	submitted := 0
	for _, e := range upcoming {
		if e.HasSubmitted {
			submitted++
		}
	}
	summary := ""
	switch {
	case submitted == len(upcoming):
		summary = " (all submitted!)"
	case submitted > 0:
		summary = fmt.Sprintf(" (%d/%d submitted)", submitted, len(upcoming))
	}
	fmt.Fprintf(a.out, "Upcoming assignments (next %d days):%s\n\n", days, summary)

	for i, e := range upcoming {
		if i == quickViewLimit {
			fmt.Fprintf(a.out, "  ... and %d more\n", len(upcoming)-quickViewLimit)
			break
		}
		fmt.Fprintf(a.out, "  %s %s%s\n", marker(e), e.Name, pointsText(e.Points))
		fmt.Fprintf(a.out, "    %s\n", e.Course)
		fmt.Fprintf(a.out, "    Due: %s\n", dueText(e))
		if !e.HasSubmitted {
			fmt.Fprintf(a.out, "    %s\n", e.Workflow)
			if e.Progress.Next != "" {
				fmt.Fprintf(a.out, "    Next: %s\n", e.Progress.Next)
			}
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

// --- mcp ---

func (a *app) serveMCP(ctx context.Context) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "coursesync", Version: version}, nil)
	a.tracker().RegisterMCP(srv)
	a.logger.Info("coursesync: mcp stdio serving", "data", a.cfg.DataDir)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

// --- formatting ---

func marker(e tracker.Entry) string {
	switch {
	case e.IsGraded && e.Score != nil:
		return fmt.Sprintf("★ %s/%s", num(*e.Score), pointsOr(e.Points))
	case e.HasSubmitted:
		return "✓"
	default:
		return "○"
	}
}

func dueText(e tracker.Entry) string {
	if d := e.Due(); !d.IsZero() {
		return d.Local().Format("Mon Jan 02, 03:04 PM")
	}
	return "no due date"
}

func pointsText(p *float64) string {
	if p == nil || *p == 0 {
		return ""
	}
	return fmt.Sprintf(" (%s pts)", num(*p))
}

func pointsOr(p *float64) string {
	if p == nil {
		return "?"
	}
	return num(*p)
}

func num(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.1f", f)
}

func ago(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
}

func present(ok bool) string {
	if ok {
		return "✓"
	}
	return "-"
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
