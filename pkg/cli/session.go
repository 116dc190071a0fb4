// Package cli hosts a command tree interactively: Session parses and runs
// lines for one user, Shell drives a Session (or a remote one) from a
// readline terminal.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/psaab/vty/pkg/cmdtree"
	"github.com/psaab/vty/pkg/logging"
	"github.com/psaab/vty/pkg/metrics"
	"github.com/psaab/vty/pkg/parser"
	"github.com/psaab/vty/pkg/runner"
)

// ErrExit is returned by a handler to end the interactive session.
var ErrExit = errors.New("exit")

// ErrBusy is returned by Execute while another command of the same session
// is still running.
var ErrBusy = errors.New("a command is already running")

// Backend completes and executes lines. Session is the local
// implementation; grpcapi.Client executes on a remote server.
type Backend interface {
	Complete(ctx context.Context, line string) ([]cmdtree.Candidate, error)
	Execute(ctx context.Context, line string, w io.Writer) error
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Engine     *parser.Engine
	Runner     *runner.Runner
	Stats      *metrics.Stats      // optional
	Accountant *logging.Accountant // optional
	User       string
	Source     string // "console" or the remote peer address
}

// Session runs lines for one user. At most one command runs at a time.
type Session struct {
	engine *parser.Engine
	runner *runner.Runner
	stats  *metrics.Stats
	acct   *logging.Accountant
	user   string
	source string

	// Command cancellation: Cancel during a running command cancels it.
	cmdMu     sync.Mutex
	cmdCancel context.CancelFunc // non-nil while a command is executing
}

// NewSession creates a Session.
func NewSession(cfg SessionConfig) *Session {
	source := cfg.Source
	if source == "" {
		source = "console"
	}
	return &Session{
		engine: cfg.Engine,
		runner: cfg.Runner,
		stats:  cfg.Stats,
		acct:   cfg.Accountant,
		user:   cfg.User,
		source: source,
	}
}

// Open records the start of an interactive session.
func (s *Session) Open() {
	s.stats.SessionOpened()
	s.acct.SessionStarted(s.user, s.source)
}

// Close records the end of an interactive session and cancels any running
// command.
func (s *Session) Close() {
	s.Cancel()
	s.stats.SessionClosed()
	s.acct.SessionEnded(s.user, s.source)
}

// Complete returns the completion candidates for line.
func (s *Session) Complete(_ context.Context, line string) ([]cmdtree.Candidate, error) {
	s.stats.Completion()
	return s.engine.Complete(line), nil
}

// Execute parses line and runs it, writing output to w. Parse failures are
// returned as *parser.Error.
func (s *Session) Execute(ctx context.Context, line string, w io.Writer) error {
	res, err := s.engine.Parse(line)
	if err != nil {
		var perr *parser.Error
		if errors.As(err, &perr) {
			s.stats.ParseError(string(perr.Kind))
		}
		slog.Debug("line rejected", "user", s.user, "line", line, "err", err)
		return err
	}

	ctx, err = s.startCmd(ctx)
	if err != nil {
		return err
	}
	defer s.endCmd()

	start := time.Now()
	err = s.runner.Run(ctx, res, w)
	d := time.Since(start)

	status := commandStatus(err)
	s.stats.CommandExecuted(status, d)
	entry := logging.Entry{User: s.user, Source: s.source, Line: line, Status: status, Duration: d}
	if status == metrics.StatusError {
		entry.Err = err
	}
	s.acct.Record(entry)
	return err
}

// Cancel cancels the running command. Returns true if a command was
// cancelled.
func (s *Session) Cancel() bool {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if s.cmdCancel != nil {
		s.cmdCancel()
		return true
	}
	return false
}

// Running reports whether a command is executing.
func (s *Session) Running() bool {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	return s.cmdCancel != nil
}

// startCmd creates a cancellable context for the current command.
// Must call endCmd() when the command finishes.
func (s *Session) startCmd(parent context.Context) (context.Context, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if s.cmdCancel != nil {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(parent)
	s.cmdCancel = cancel
	return ctx, nil
}

// endCmd clears the per-command context.
func (s *Session) endCmd() {
	s.cmdMu.Lock()
	if s.cmdCancel != nil {
		s.cmdCancel()
	}
	s.cmdCancel = nil
	s.cmdMu.Unlock()
}

func commandStatus(err error) string {
	switch {
	case err == nil, errors.Is(err, ErrExit):
		return metrics.StatusOK
	case errors.Is(err, context.Canceled):
		return metrics.StatusCancelled
	default:
		return metrics.StatusError
	}
}
