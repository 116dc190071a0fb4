// Package logging sets up structured logging for vty and forwards command
// accounting records to remote syslog servers.
package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"time"
)

// Server is a remote syslog destination.
type Server struct {
	Host       string
	Port       int
	Protocol   string   // "udp" (default) or "tcp"
	Severity   string   // "error", "warning", "info" or "" for all
	Facility   string   // default local0
	Categories []string // "accounting", "session", "system"; empty for all
}

// Options configure Setup.
type Options struct {
	Level   slog.Level
	Output  io.Writer // default os.Stderr
	Servers []Server
}

// Setup installs the default slog logger: a text handler on Output wrapped
// with syslog forwarding to Servers. Servers that cannot be dialed are
// skipped and reported in the returned error; the handler is usable either
// way.
func Setup(opts Options) (*SyslogSlogHandler, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	h := NewSyslogSlogHandler(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: opts.Level,
	}))

	var (
		clients []*SyslogClient
		errs    []error
	)
	for _, srv := range opts.Servers {
		c, err := DialSyslog(srv.Protocol, srv.Host, srv.Port)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.MinSeverity = ParseSeverity(srv.Severity)
		c.Facility = ParseFacility(srv.Facility)
		c.Categories = ParseCategories(srv.Categories)
		clients = append(clients, c)
	}
	h.SetClients(clients)
	slog.SetDefault(slog.New(h))
	return h, errors.Join(errs...)
}

// Entry is one accounting record: a line a user executed.
type Entry struct {
	User     string
	Source   string // "console" or the remote peer address
	Line     string
	Status   string
	Duration time.Duration
	Err      error
}

// Accountant writes accounting and session records.
type Accountant struct {
	logger *slog.Logger
}

// NewAccountant returns an Accountant logging to l, or to the default
// logger when l is nil.
func NewAccountant(l *slog.Logger) *Accountant {
	if l == nil {
		l = slog.Default()
	}
	return &Accountant{logger: l}
}

// Record logs e. Failed commands are logged at warning level.
func (a *Accountant) Record(e Entry) {
	if a == nil {
		return
	}
	args := []any{
		CategoryKey, "accounting",
		"user", e.User,
		"source", e.Source,
		"line", e.Line,
		"status", e.Status,
		"duration", e.Duration.Round(time.Millisecond),
	}
	if e.Err != nil {
		args = append(args, "err", e.Err)
		a.logger.Warn("command", args...)
		return
	}
	a.logger.Info("command", args...)
}

// SessionStarted logs the start of an interactive session.
func (a *Accountant) SessionStarted(user, source string) {
	if a == nil {
		return
	}
	a.logger.Info("session started", CategoryKey, "session", "user", user, "source", source)
}

// SessionEnded logs the end of an interactive session.
func (a *Accountant) SessionEnded(user, source string) {
	if a == nil {
		return
	}
	a.logger.Info("session ended", CategoryKey, "session", "user", user, "source", source)
}
