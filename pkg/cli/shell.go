package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/chzyer/readline"

	"github.com/psaab/vty/pkg/cmdtree"
	"github.com/psaab/vty/pkg/parser"
)

// ShellOptions configure a Shell.
type ShellOptions struct {
	Prompt      string
	HistoryFile string
	HelpHeader  string // printed above completion lists
	Banner      string
	Stdin       io.ReadCloser // default os.Stdin
	Stdout      io.Writer     // default os.Stdout
	Stderr      io.Writer     // default os.Stderr
}

// Shell is the interactive terminal front end.
type Shell struct {
	backend Backend
	opts    ShellOptions
	rl      *readline.Instance
	stdout  io.Writer
	stderr  io.Writer

	// Command cancellation: Ctrl-C during a running command cancels it.
	cmdMu     sync.Mutex
	cmdCancel context.CancelFunc // non-nil while a command is executing
}

// NewShell creates a Shell over b.
func NewShell(b Backend, opts ShellOptions) *Shell {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Shell{
		backend: b,
		opts:    opts,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
	}
}

// Run starts the interactive loop. It returns when the input ends, a
// handler returns ErrExit, or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.opts.Prompt,
		HistoryFile:     s.opts.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    &completer{shell: s},
		Stdin:           s.opts.Stdin,
		Stdout:          s.opts.Stdout,
		Stderr:          s.opts.Stderr,
		Listener:        readline.FuncListener(s.onKey),
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer rl.Close()
	s.rl = rl
	s.stdout = rl.Stdout()
	s.stderr = rl.Stderr()

	if s.opts.Banner != "" {
		fmt.Fprintln(s.stdout, s.opts.Banner)
	}

	// Handle SIGINT while a command runs; readline reports ^C itself
	// while reading.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if s.cancelCmd() {
				fmt.Fprintln(s.stderr, "\n^C (command cancelled)")
			}
		}
	}()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if s.handleLine(ctx, line) {
			return nil
		}
	}
}

// handleLine executes one input line and reports whether the session
// should end.
func (s *Shell) handleLine(ctx context.Context, line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}

	cmdCtx := s.startCmd(ctx)
	err := s.backend.Execute(cmdCtx, line, s.stdout)
	s.endCmd()

	var perr *parser.Error
	switch {
	case err == nil:
	case errors.Is(err, ErrExit):
		return true
	case errors.Is(err, context.Canceled):
		// cancelled by Ctrl-C
	case errors.As(err, &perr):
		fmt.Fprint(s.stderr, FormatError(s.promptWidth(), perr))
	default:
		fmt.Fprintf(s.stderr, "error: %v\n", err)
	}
	return false
}

// FormatError renders a parse error for a terminal: a caret under the
// failing token (indent is the prompt width) followed by "% message" and
// any suggestion.
func FormatError(indent int, err *parser.Error) string {
	var b strings.Builder
	if err.Offset >= 0 {
		b.WriteString(strings.Repeat(" ", indent+err.Offset))
		b.WriteString("^\n")
	}
	fmt.Fprintf(&b, "%% %s\n", err.Msg)
	if err.Suggestion != "" {
		fmt.Fprintf(&b, "%% Did you mean `%s`?\n", err.Suggestion)
	}
	return b.String()
}

func (s *Shell) promptWidth() int {
	return utf8.RuneCountInString(s.opts.Prompt)
}

// startCmd creates a cancellable context for the current command.
// Must call endCmd() when the command finishes.
func (s *Shell) startCmd(parent context.Context) context.Context {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	ctx, cancel := context.WithCancel(parent)
	s.cmdCancel = cancel
	return ctx
}

// endCmd clears the per-command context.
func (s *Shell) endCmd() {
	s.cmdMu.Lock()
	if s.cmdCancel != nil {
		s.cmdCancel()
	}
	s.cmdCancel = nil
	s.cmdMu.Unlock()
}

// cancelCmd cancels any running command. Returns true if a command was cancelled.
func (s *Shell) cancelCmd() bool {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if s.cmdCancel != nil {
		s.cmdCancel()
		return true
	}
	return false
}

// onKey prints the completion list when '?' is typed and removes the '?'
// from the line.
func (s *Shell) onKey(line []rune, pos int, key rune) ([]rune, int, bool) {
	if key != '?' || pos < 1 {
		return line, pos, false
	}
	// Strip the '?' that readline already inserted.
	cleanLine := make([]rune, 0, len(line)-1)
	cleanLine = append(cleanLine, line[:pos-1]...)
	cleanLine = append(cleanLine, line[pos:]...)
	text := string(cleanLine[:pos-1])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	candidates, err := s.backend.Complete(ctx, text)
	if err != nil || len(candidates) == 0 {
		fmt.Fprintln(s.stdout, "  (no help available)")
		return cleanLine, pos - 1, true
	}
	cmdtree.WriteHelp(s.stdout, s.opts.HelpHeader, candidates)
	return cleanLine, pos - 1, true
}

// completer implements readline.AutoCompleter over the shell's backend.
type completer struct {
	shell *Shell
}

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	candidates, err := c.shell.backend.Complete(ctx, text)
	if err != nil || len(candidates) == 0 {
		return nil, 0
	}

	_, partial, _ := parser.Tokenize(text)
	if partial == parser.PipeChar {
		partial = ""
	}
	if suffix, ok := parser.AutoInsert(candidates, partial); ok {
		return [][]rune{[]rune(suffix)}, len([]rune(partial))
	}

	// Multiple matches: show descriptions above prompt.
	cmdtree.WriteHelp(c.shell.stdout, c.shell.opts.HelpHeader, candidates)

	var names []string
	for _, cand := range candidates {
		if cand.CompleteOn && strings.HasPrefix(cand.Name, partial) {
			names = append(names, cand.Name)
		}
	}
	if len(names) == 0 {
		return nil, 0
	}
	cp := cmdtree.CommonPrefix(names)
	suffix := cp[len(partial):]
	if suffix == "" {
		return nil, 0
	}
	return [][]rune{[]rune(suffix)}, len([]rune(partial))
}
