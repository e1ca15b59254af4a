package runtime

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/openclaw/acp-runtime/internal/procattr"
)

// child owns one spawned agent process: its pipes, the cmd handle, and the
// plumbing needed to tear it down without leaking a process group.
//
// cmd.Wait may only be called once, but both the explicit stop() path and
// the transport's background exit-watcher need to observe process exit, so
// a single goroutine performs the Wait and broadcasts the result over
// exited, a channel closed exactly once.
type child struct {
	cmd    *exec.Cmd
	stdin  *os.File
	stdout *os.File
	stderr *os.File

	exited   chan struct{}
	exitErr  error

	mu      sync.Mutex
	stopped bool
}

// launch spawns cfg.Command with extraArgs as its argument list (cfg.Args is
// not added; callers pass it explicitly), three pipes wired up, cwd set to
// cfg.Cwd, and environment equal to the inherited process environment
// overlaid by cfg.Env.
//
// On Windows, commands with a .cmd or .bat extension are spawned through a
// shell interpreter; every other platform and every other extension spawns
// directly. A spawn failure (missing binary, permission denied, ...) is
// returned to the caller rather than panicking the host.
func launch(ctx context.Context, cfg ResolvedConfig, extraArgs []string) (*child, error) {
	name, args := shellWrap(cfg.Command, extraArgs)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = cfg.Cwd

	if len(cfg.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	procattr.Set(cmd)

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, &ProcessError{Message: "failed to create stdin pipe", Cause: err}
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, &ProcessError{Message: "failed to create stdout pipe", Cause: err}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return nil, &ProcessError{Message: "failed to create stderr pipe", Cause: err}
	}

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, &ProcessError{Message: fmt.Sprintf("failed to spawn %q", cfg.Command), Cause: err}
	}

	// The parent only talks through the write end of stdin and the read
	// ends of stdout/stderr; the ends handed to the child are no longer
	// needed here.
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	c := &child{cmd: cmd, stdin: stdinW, stdout: stdoutR, stderr: stderrR, exited: make(chan struct{})}
	go func() {
		c.exitErr = cmd.Wait()
		close(c.exited)
	}()
	return c, nil
}

// shellWrap applies the cross-platform shell rule: on Windows, a .cmd or
// .bat command is spawned via cmd.exe /C; every other combination spawns
// the command directly.
func shellWrap(command string, args []string) (string, []string) {
	if runtime.GOOS != "windows" {
		return command, args
	}
	idx := strings.LastIndex(command, ".")
	if idx < 0 {
		return command, args
	}
	ext := strings.ToLower(command[idx+1:])
	if ext != "cmd" && ext != "bat" {
		return command, args
	}
	return "cmd.exe", append([]string{"/C", command}, args...)
}

// stop sends SIGTERM and waits briefly, escalating to a process-group kill
// if the child ignores it. It is safe to call more than once.
func (c *child) stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	c.stdin.Close()

	if c.cmd != nil && c.cmd.Process != nil {
		_ = procattr.SignalGroup(c.cmd.Process, syscall.SIGTERM)
	}

	select {
	case <-c.exited:
		return
	case <-time.After(2 * time.Second):
	}

	if c.cmd != nil && c.cmd.Process != nil {
		_ = procattr.KillGroup(c.cmd.Process)
	}

	select {
	case <-c.exited:
	case <-time.After(500 * time.Millisecond):
	}
}

// wait blocks until the child exits and reports its error, if any. Safe to
// call from multiple goroutines and after the process has already exited.
func (c *child) wait() error {
	<-c.exited
	return c.exitErr
}

// writeLine writes p followed by a newline to the child's stdin.
func (c *child) writeLine(p []byte) error {
	if _, err := c.stdin.Write(append(p, '\n')); err != nil {
		return &ProcessError{Message: "failed to write to agent stdin", Cause: err}
	}
	return nil
}
