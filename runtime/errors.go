package runtime

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrSessionNotFound is returned when a handle refers to a session the
	// registry no longer recognizes.
	ErrSessionNotFound = errors.New("agent session not found")

	// ErrProcessExited is the rejection reason used for every pending
	// completion when the agent subprocess closes unexpectedly.
	ErrProcessExited = errors.New("agent process exited")
)

// ErrCodeBackendUnavailable is the doctor() code reported when
// probeAvailability fails.
const ErrCodeBackendUnavailable = "ACP_BACKEND_UNAVAILABLE"

// ErrCodeTurnFailed is the synchronous precondition error raised by
// runTurn when the handle's session is unknown to the registry.
const ErrCodeTurnFailed = "ACP_TURN_FAILED"

// TurnError is a synchronous precondition failure from RunTurn, e.g. the
// handle does not resolve to a live AgentSession. It is never yielded as
// an Event — callers see it as the error return from RunTurn itself.
type TurnError struct {
	Code       string
	SessionKey string
	Message    string
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("%s (session=%s): %s", e.Code, e.SessionKey, e.Message)
}

// RPCError represents a JSON-RPC error object returned by the agent.
type RPCError struct {
	Message string
	Code    int
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ProcessError wraps a failure to spawn or communicate with the agent
// subprocess.
type ProcessError struct {
	Cause   error
	Message string
}

func (e *ProcessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProcessError) Unwrap() error { return e.Cause }

// TimeoutError is returned when a control-plane RPC method (initialize,
// session/new, session/cancel, session/set_mode) exceeds the 30-second
// control timeout.
type TimeoutError struct {
	Method string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for response to %q", e.Method)
}

// ProtocolError represents a malformed JSON-RPC message from the agent.
type ProtocolError struct {
	Cause   error
	Message string
	Line    string
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProtocolError) Unwrap() error { return e.Cause }
