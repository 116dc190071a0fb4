// Package runner executes parsed command lines: it starts the pipe modifier
// chain, runs the leaf handler with the chain head as its output, and waits
// for everything to drain.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/psaab/vty/pkg/parser"
)

// Kind classifies execution errors.
type Kind string

const (
	KindHandlerError      Kind = "handler_error"
	KindProcessSpawnError Kind = "process_spawn_error"
)

// Error is an execution failure.
type Error struct {
	Kind    Kind
	Command string // command path or modifier chain
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindProcessSpawnError:
		return fmt.Sprintf("cannot start output modifier: %v", e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Chain is a started modifier chain. Writes go to the first process; Close
// ends its input and Wait blocks until the last process has exited.
type Chain interface {
	io.WriteCloser
	Wait() error
}

// Spawner starts a chain of shell commands whose final output goes to out.
type Spawner interface {
	Spawn(ctx context.Context, commands []string, out io.Writer) (Chain, error)
}

// Runner executes parse results.
type Runner struct {
	spawner Spawner
}

// New returns a Runner that starts modifier chains with s.
func New(s Spawner) *Runner {
	return &Runner{spawner: s}
}

// Run executes res, writing output to sink. It returns after the handler
// has returned and every modifier process has exited.
func (r *Runner) Run(ctx context.Context, res *parser.Result, sink io.Writer) error {
	if len(res.Pipes) == 0 {
		return runHandler(ctx, res, sink)
	}

	chain, err := r.spawner.Spawn(ctx, res.Pipes, sink)
	if err != nil {
		return &Error{Kind: KindProcessSpawnError, Command: strings.Join(res.Pipes, " | "), Err: err}
	}
	herr := runHandler(ctx, res, chain)
	if cerr := chain.Close(); cerr != nil && !errors.Is(cerr, unix.EPIPE) {
		slog.Debug("closing modifier chain", "err", cerr)
	}
	werr := chain.Wait()
	if herr != nil {
		return herr
	}
	return werr
}

// Start runs res in a new goroutine and calls done exactly once with the
// result.
func (r *Runner) Start(ctx context.Context, res *parser.Result, sink io.Writer, done func(error)) {
	go func() {
		done(r.Run(ctx, res, sink))
	}()
}

func runHandler(ctx context.Context, res *parser.Result, w io.Writer) (err error) {
	name := commandName(res)
	defer func() {
		if p := recover(); p != nil {
			slog.Error("command handler panic", "command", name, "panic", p)
			err = &Error{Kind: KindHandlerError, Command: name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	if res.Command == nil || res.Command.Handler == nil {
		return &Error{Kind: KindHandlerError, Command: name, Err: errors.New("no handler")}
	}
	if err := res.Command.Handler.Run(ctx, w, res.Store); err != nil {
		// The chain exiting early (e.g. a filter that stops reading) is
		// not a handler failure.
		if errors.Is(err, unix.EPIPE) {
			return nil
		}
		return &Error{Kind: KindHandlerError, Command: name, Err: err}
	}
	return nil
}

func commandName(res *parser.Result) string {
	if len(res.Path) > 0 {
		return strings.Join(res.Path, " ")
	}
	if res.Command != nil {
		return res.Command.Name
	}
	return "command"
}
