// CLAUDE:SUMMARY CLI entry point for coursesync: quick view, sync, login/logout, status, where and the MCP stdio server.
// Command coursesync mirrors an LMS account into a local directory tree and
// tracks the writing workflow of each assignment.
//
// Usage:
//
//	coursesync                      # assignments due in the next 7 days, with status
//	coursesync sync                 # fetch courses, assignments and modules
//	coursesync login                # log in through a browser and save the session
//	coursesync logout               # forget the saved session
//	coursesync where                # print config, session and data paths
//	coursesync courses              # list synced courses
//	coursesync status cs201/essay   # workflow status of one assignment
//	coursesync mcp                  # serve the tracker tools over MCP stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hazyhaar/coursesync/browser"
	"github.com/hazyhaar/coursesync/canvas"
	"github.com/hazyhaar/coursesync/config"
	"github.com/hazyhaar/coursesync/layout"
	"github.com/hazyhaar/coursesync/session"
	"github.com/hazyhaar/coursesync/syncer"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

// run executes one invocation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	fs := flag.NewFlagSet("coursesync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath(), "path to config.yaml")
	envFile := fs.String("env-file", ".env", "optional .env file loaded before the environment is read")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn, error")
	logJSON := fs.Bool("log-json", false, "log as JSON instead of text")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	logger := newLogger(stderr, *logLevel, *logJSON)
	slog.SetDefault(logger)

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Warn("coursesync: .env ignored", "error", err)
	}
	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		fmt.Fprintf(stderr, "coursesync: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, logger: logger, out: stdout, errOut: stderr, now: time.Now}

	cmd, rest := "", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}
	switch cmd {
	case "":
		err = a.quickView()
	case "sync":
		err = a.sync(ctx, rest)
	case "login":
		err = a.login(ctx)
	case "logout":
		err = a.logout()
	case "where":
		err = a.where(ctx)
	case "courses":
		err = a.courses()
	case "status":
		err = a.status(rest)
	case "mcp":
		err = a.serveMCP(ctx)
	case "help":
		usage(stdout)
		return 0
	case "version":
		fmt.Fprintln(stdout, "coursesync", version)
		return 0
	default:
		fmt.Fprintf(stderr, "coursesync: unknown command %q\n\n", cmd)
		usage(stderr)
		return 1
	}

	if err != nil {
		a.report(err)
		return 1
	}
	return 0
}

// report prints err with a hint for the failures a user can act on.
func (a *app) report(err error) {
	fmt.Fprintf(a.errOut, "coursesync: %v\n", err)
	switch {
	case errors.Is(err, session.ErrNoSession):
		fmt.Fprintf(a.errOut, "Not logged in. Run `coursesync login` first, or set %s.\n", config.EnvToken)
	case errors.Is(err, canvas.ErrUnauthorized):
		fmt.Fprintln(a.errOut, "The LMS rejected the saved credentials. Run `coursesync login` again.")
	case errors.Is(err, browser.ErrLoginTimeout):
		fmt.Fprintln(a.errOut, "Login was not completed in time. Run `coursesync login` and finish signing in.")
	case errors.Is(err, syncer.ErrNoCourses):
		fmt.Fprintln(a.errOut, "The account has no active course.")
	case errors.Is(err, layout.ErrNotFound):
		fmt.Fprintln(a.errOut, "Run `coursesync courses` to list what is synced, then `coursesync status <course>/<assignment>`.")
	}
}

func newLogger(w io.Writer, level string, asJSON bool) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func usage(w io.Writer) {
	fmt.Fprint(w, `coursesync - mirror your LMS courses into local files

Usage:
  coursesync [flags] [command]

Commands:
  (none)     Assignments due in the next days, with workflow status
  sync       Fetch courses, assignments and module content
             -skip-modules  only sync courses and assignments
  login      Log in through a browser window and save the session
  logout     Forget the saved session
  where      Print config, session and data locations
  courses    List synced courses
  status     Show the workflow status of <course>/<assignment>
  mcp        Serve the tracker tools over MCP stdio
  help       Show this help

Flags:
  -config string     path to config.yaml
  -env-file string   .env file loaded before the environment (default ".env")
  -log-level string  debug, info, warn, error (default "warn")
  -log-json          log as JSON instead of text

Environment:
  COURSESYNC_BASE_URL, COURSESYNC_TOKEN, COURSESYNC_DATA_DIR, COURSESYNC_AI_THRESHOLD
`)
}
