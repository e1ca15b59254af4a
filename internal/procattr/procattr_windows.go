//go:build windows

// Package procattr provides platform-specific subprocess configuration
// for orphan prevention.
package procattr

import (
	"os"
	"os/exec"
	"syscall"
)

// Set configures the child to start in its own process group. Windows has
// no Pdeathsig equivalent; CREATE_NEW_PROCESS_GROUP lets SignalGroup target
// the child (and anything it spawns) with CTRL_BREAK instead of a raw kill.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// SignalGroup sends CTRL_BREAK to the child's process group. sig is ignored;
// Windows console signals do not map onto POSIX signal numbers.
func SignalGroup(p *os.Process, _ syscall.Signal) error {
	if p == nil {
		return nil
	}
	return syscall.GenerateConsoleCtrlEvent(syscall.CTRL_BREAK_EVENT, uint32(p.Pid))
}

// KillGroup forcibly terminates the process. Windows has no group-kill
// primitive reachable from os.Process; this kills the direct child only.
func KillGroup(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Kill()
}
