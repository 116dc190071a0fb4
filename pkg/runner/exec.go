package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"

	"github.com/mattn/go-shellwords"
	"golang.org/x/sys/unix"
)

// ExecSpawner starts modifier chains as local processes. All processes of a
// chain share one process group, which is killed when the context is
// cancelled.
type ExecSpawner struct {
	// Env, if non-nil, replaces the environment of spawned processes.
	Env []string
}

type execChain struct {
	io.WriteCloser
	ctx  context.Context
	cmds []*exec.Cmd
	done chan struct{}
	once sync.Once
	err  error
}

// Spawn implements Spawner.
func (s *ExecSpawner) Spawn(ctx context.Context, commands []string, out io.Writer) (Chain, error) {
	if len(commands) == 0 {
		return nil, errors.New("empty modifier chain")
	}
	cmds := make([]*exec.Cmd, len(commands))
	for i, c := range commands {
		argv, err := shellwords.Parse(c)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", c, err)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("empty command at position %d", i)
		}
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Env = s.Env
		cmds[i] = cmd
	}

	head, err := cmds[0].StdinPipe()
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(cmds); i++ {
		if cmds[i].Stdin, err = cmds[i-1].StdoutPipe(); err != nil {
			return nil, err
		}
	}
	cmds[len(cmds)-1].Stdout = out

	pgid := 0
	for i, cmd := range cmds {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
		if err := cmd.Start(); err != nil {
			head.Close()
			if pgid != 0 {
				_ = unix.Kill(-pgid, unix.SIGKILL)
				for _, started := range cmds[:i] {
					_ = started.Wait()
				}
			}
			return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
		}
		if i == 0 {
			pgid = cmd.Process.Pid
		}
	}
	slog.Debug("modifier chain started", "commands", commands, "pgid", pgid)

	c := &execChain{
		WriteCloser: head,
		ctx:         ctx,
		cmds:        cmds,
		done:        make(chan struct{}),
	}
	go func() {
		select {
		case <-ctx.Done():
			if err := unix.Kill(-pgid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
				slog.Warn("killing modifier chain", "pgid", pgid, "err", err)
			}
		case <-c.done:
		}
	}()
	return c, nil
}

// Wait waits for every process in the chain. Non-zero exit statuses are
// not errors: grep exits 1 when nothing matched.
func (c *execChain) Wait() error {
	c.once.Do(func() {
		defer close(c.done)
		for _, cmd := range c.cmds {
			err := cmd.Wait()
			var exitErr *exec.ExitError
			if err != nil && !errors.As(err, &exitErr) && c.err == nil {
				c.err = err
			}
		}
		if err := c.ctx.Err(); err != nil {
			c.err = err
		}
	})
	return c.err
}
