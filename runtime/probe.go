package runtime

import (
	"context"
	"os/exec"

	"github.com/openclaw/acp-runtime/internal/procattr"
)

// DoctorReport is the result of doctor().
type DoctorReport struct {
	OK      bool
	Code    string
	Message string
}

// ProbeAvailability spawns the configured command with --help, stdio
// discarded, and records whether it exited cleanly. It never blocks the
// caller on a hung agent beyond process exit; a command that never exits
// on --help will hang this call, matching the one-shot nature described
// for the probe.
func (r *Registry) ProbeAvailability(ctx context.Context) {
	cmd := exec.CommandContext(ctx, r.cfg.Command, "--help")
	cmd.Dir = r.cfg.Cwd
	procattr.Set(cmd)

	healthy := cmd.Run() == nil
	r.setHealthy(healthy)

	result := "failed"
	if healthy {
		result = "ok"
	}
	r.met.RecordProbe(r.cfg.Command, result)
}

func (r *Registry) setHealthy(v bool) {
	val := int32(0)
	if v {
		val = 1
	}
	r.healthy.Store(val)
}

// IsHealthy reports the outcome of the most recent ProbeAvailability call.
// A Registry that has never probed reports unhealthy.
func (r *Registry) IsHealthy() bool {
	return r.healthy.Load() == 1
}

// Doctor runs an availability probe and reports a host-facing summary.
func (r *Registry) Doctor(ctx context.Context) DoctorReport {
	r.ProbeAvailability(ctx)
	if r.IsHealthy() {
		return DoctorReport{OK: true, Message: r.cfg.Command + " available"}
	}
	return DoctorReport{OK: false, Code: ErrCodeBackendUnavailable, Message: r.cfg.Command + " is not executable"}
}
