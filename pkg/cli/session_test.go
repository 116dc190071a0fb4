package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/psaab/vty/pkg/cmdtree"
	"github.com/psaab/vty/pkg/logging"
	"github.com/psaab/vty/pkg/metrics"
	"github.com/psaab/vty/pkg/parser"
	"github.com/psaab/vty/pkg/runner"
)

func printer(s string) cmdtree.Handler {
	return cmdtree.HandlerFunc(func(_ context.Context, w io.Writer, _ cmdtree.Store) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func testTree(started chan<- struct{}) *cmdtree.Tree {
	return cmdtree.MustCompile(
		&cmdtree.Node{Name: "show", Help: "Show system information", Children: []*cmdtree.Node{
			{Name: "version", Help: "Show version", Handler: printer("vty 1.0\n")},
			{Name: "clock", Help: "Show system clock", Handler: printer("12:00\n")},
			{Name: "hardware", Help: "Show hardware", Handler: printer("none\n")},
			{Name: "hard-drive", Help: "Show disks", Handler: printer("sda\n")},
		}},
		&cmdtree.Node{Name: "ping", Help: "Send echo requests", Meta: cmdtree.Meta{Pipeable: true},
			Options: []cmdtree.Option{{Name: "host", Primary: true, Required: true}},
			Handler: cmdtree.HandlerFunc(func(_ context.Context, w io.Writer, s cmdtree.Store) error {
				_, err := io.WriteString(w, "reply from "+s.String("host")+"\n")
				return err
			}),
		},
		&cmdtree.Node{Name: "wait", Help: "Block until cancelled", Handler: cmdtree.HandlerFunc(
			func(ctx context.Context, _ io.Writer, _ cmdtree.Store) error {
				if started != nil {
					started <- struct{}{}
				}
				<-ctx.Done()
				return ctx.Err()
			})},
		&cmdtree.Node{Name: "fail", Help: "Always fails", Handler: cmdtree.HandlerFunc(
			func(context.Context, io.Writer, cmdtree.Store) error { return errors.New("device busy") })},
		&cmdtree.Node{Name: "exit", Help: "Exit the session", Handler: cmdtree.HandlerFunc(
			func(context.Context, io.Writer, cmdtree.Store) error { return ErrExit })},
	)
}

type sessionFixture struct {
	session *Session
	stats   *metrics.Stats
	log     *bytes.Buffer
}

func newFixture(started chan<- struct{}) *sessionFixture {
	var logBuf bytes.Buffer
	stats := metrics.NewStats()
	s := NewSession(SessionConfig{
		Engine:     parser.New(testTree(started)),
		Runner:     runner.New(&runner.ExecSpawner{}),
		Stats:      stats,
		Accountant: logging.NewAccountant(slog.New(slog.NewTextHandler(&logBuf, nil))),
		User:       "admin",
	})
	return &sessionFixture{session: s, stats: stats, log: &logBuf}
}

func TestSessionExecute(t *testing.T) {
	f := newFixture(nil)
	var out bytes.Buffer
	if err := f.session.Execute(context.Background(), "ping 192.0.2.1", &out); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.String(); got != "reply from 192.0.2.1\n" {
		t.Errorf("output = %q", got)
	}
	if got := f.stats.Snapshot().Commands[metrics.StatusOK]; got != 1 {
		t.Errorf("ok commands = %d, want 1", got)
	}
	if !strings.Contains(f.log.String(), `line="ping 192.0.2.1" status=ok`) {
		t.Errorf("accounting record missing:\n%s", f.log.String())
	}
	if !strings.Contains(f.log.String(), "user=admin source=console") {
		t.Errorf("accounting record lacks user/source:\n%s", f.log.String())
	}
}

func TestSessionParseError(t *testing.T) {
	f := newFixture(nil)
	err := f.session.Execute(context.Background(), "show versoin", io.Discard)
	var perr *parser.Error
	if !errors.As(err, &perr) || perr.Kind != parser.KindUnknownToken {
		t.Fatalf("Execute error = %v, want %s", err, parser.KindUnknownToken)
	}
	if got := f.stats.Snapshot().ParseErrors[string(parser.KindUnknownToken)]; got != 1 {
		t.Errorf("parse errors = %d, want 1", got)
	}
	if strings.Contains(f.log.String(), "msg=command") {
		t.Error("rejected line was accounted as executed")
	}
}

func TestSessionStatuses(t *testing.T) {
	f := newFixture(nil)
	if err := f.session.Execute(context.Background(), "fail", io.Discard); err == nil {
		t.Error("fail succeeded")
	}
	if err := f.session.Execute(context.Background(), "exit", io.Discard); !errors.Is(err, ErrExit) {
		t.Errorf("exit error = %v, want ErrExit", err)
	}
	snap := f.stats.Snapshot()
	if snap.Commands[metrics.StatusError] != 1 || snap.Commands[metrics.StatusOK] != 1 {
		t.Errorf("commands = %v, want one ok and one error", snap.Commands)
	}
	if !strings.Contains(f.log.String(), "level=WARN msg=command") {
		t.Errorf("failed command not logged at warning level:\n%s", f.log.String())
	}
}

func TestSessionSingleFlightAndCancel(t *testing.T) {
	started := make(chan struct{}, 1)
	f := newFixture(started)

	done := make(chan error, 1)
	go func() {
		done <- f.session.Execute(context.Background(), "wait", io.Discard)
	}()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("command did not start")
	}

	if !f.session.Running() {
		t.Error("Running() = false during a command")
	}
	if err := f.session.Execute(context.Background(), "show version", io.Discard); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Execute error = %v, want ErrBusy", err)
	}
	if !f.session.Cancel() {
		t.Error("Cancel() = false during a command")
	}

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled command error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("command not cancelled")
	}
	if f.session.Running() || f.session.Cancel() {
		t.Error("session still busy after the command ended")
	}
	if got := f.stats.Snapshot().Commands[metrics.StatusCancelled]; got != 1 {
		t.Errorf("cancelled commands = %d, want 1", got)
	}
}

func TestSessionOpenClose(t *testing.T) {
	f := newFixture(nil)
	f.session.Open()
	if got := f.stats.Snapshot().Sessions; got != 1 {
		t.Errorf("sessions = %d, want 1", got)
	}
	f.session.Close()
	if got := f.stats.Snapshot().Sessions; got != 0 {
		t.Errorf("sessions = %d, want 0", got)
	}
	for _, want := range []string{"msg=\"session started\"", "msg=\"session ended\""} {
		if !strings.Contains(f.log.String(), want) {
			t.Errorf("log missing %s:\n%s", want, f.log.String())
		}
	}
}

func TestSessionComplete(t *testing.T) {
	f := newFixture(nil)
	got, err := f.session.Complete(context.Background(), "show h")
	if err != nil {
		t.Fatal(err)
	}
	if names := cmdtree.Names(got); len(names) != 2 {
		t.Errorf("Complete(show h) = %v, want 2 candidates", names)
	}
	if got := f.stats.Snapshot().Completions; got != 1 {
		t.Errorf("completions = %d, want 1", got)
	}
}
