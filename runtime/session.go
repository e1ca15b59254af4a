package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const controlTimeout = 30 * time.Second

// rpcResult is the payload delivered to a pending request's completion
// channel: either a raw result or an error, never both.
type rpcResult struct {
	result json.RawMessage
	err    error
}

// AgentSession binds one spawned agent process to its JSON-RPC transport
// state, its cached sessionId, and at most one active turn's notification
// sink. It is the unit the registry keys by session key.
type AgentSession struct {
	key string
	cfg ResolvedConfig

	child *child
	ids   idGenerator

	mu      sync.Mutex
	pending map[int64]chan rpcResult
	sink    func(Event)

	sessionID string

	onStderr func(line string)

	closed    chan struct{}
	closeOnce sync.Once
}

// newAgentSession wires a freshly-launched child into an AgentSession and
// starts its background readers. The caller still owns performing the
// initialize / session/new handshake.
func newAgentSession(key string, cfg ResolvedConfig, c *child, onStderr func(line string)) *AgentSession {
	s := &AgentSession{
		key:      key,
		cfg:      cfg,
		child:    c,
		pending:  make(map[int64]chan rpcResult),
		onStderr: onStderr,
		closed:   make(chan struct{}),
	}
	go newFrameReader(c.stdout, s.dispatch).run()
	if onStderr != nil {
		newStderrReader(c.stderr, onStderr)
	}
	go s.watchExit()
	return s
}

// watchExit blocks until the child exits, then rejects every pending
// completion with ErrProcessExited and marks the session closed exactly
// once. This is the "process-close" behavior described for both the
// transport (reject pending) and the turn engine (terminal error event),
// the latter implemented by callers selecting on Done().
func (s *AgentSession) watchExit() {
	_ = s.child.wait()
	s.teardownPending()
}

func (s *AgentSession) teardownPending() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		pending := s.pending
		s.pending = make(map[int64]chan rpcResult)
		s.mu.Unlock()

		for _, ch := range pending {
			ch <- rpcResult{err: ErrProcessExited}
		}
		close(s.closed)
	})
}

// Done reports process exit: callers select on this to learn the child has
// gone away even though nothing they sent has a reply pending.
func (s *AgentSession) Done() <-chan struct{} { return s.closed }

// SessionID returns the agent-assigned session identifier, or the session
// key if the handshake's session/new response omitted one.
func (s *AgentSession) SessionID() string { return s.sessionID }

// Cwd returns the effective cwd this process was spawned with.
func (s *AgentSession) Cwd() string { return s.cfg.Cwd }

// Kill terminates the underlying process. Safe to call multiple times.
func (s *AgentSession) Kill() { s.child.stop() }

// SetSink installs the single active turn's notification callback. A nil
// sink clears it. Only one turn may hold the sink at a time; SetSink does
// not check this, it replaces whatever sink is installed, and RunTurn does
// not refuse a second concurrent turn on the same session.
func (s *AgentSession) SetSink(fn func(Event)) {
	s.mu.Lock()
	s.sink = fn
	s.mu.Unlock()
}

// sendRequest allocates an id, writes a framed JSON-RPC request, and waits
// for its response. Control methods (initialize, session/new,
// session/cancel, session/set_mode) are bound by the 30-second control
// timeout; session/prompt is not.
func (s *AgentSession) sendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := s.ids.Next()
	req, err := newRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	ch := make(chan rpcResult, 1)
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()

	removePending := func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}

	data, err := json.Marshal(req)
	if err != nil {
		removePending()
		return nil, err
	}
	if err := s.child.writeLine(data); err != nil {
		removePending()
		return nil, err
	}

	var timeout <-chan time.Time
	if controlMethods[method] {
		timer := time.NewTimer(controlTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.result, nil
	case <-timeout:
		removePending()
		return nil, &TimeoutError{Method: method}
	case <-ctx.Done():
		removePending()
		return nil, ctx.Err()
	}
}

// sendNotification writes a fire-and-forget JSON-RPC notification; there is
// no response to correlate.
func (s *AgentSession) sendNotification(method string, params interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	notif := JSONRPCNotification{JSONRPC: "2.0", Method: method, Params: data}
	line, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	return s.child.writeLine(line)
}

// dispatch classifies one inbound line from the agent and routes it:
// agent-initiated requests are declined, responses resolve pending
// completions, session/update notifications feed the active sink.
func (s *AgentSession) dispatch(line []byte) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return
	}

	switch {
	case env.ID != nil && env.Method != "":
		s.declineAgentRequest(*env.ID)

	case env.ID != nil:
		s.resolveResponse(*env.ID, line)

	case env.Method == methodSessionUpdate:
		s.deliverUpdate(line)
	}
}

// declineAgentRequest replies to an agent-initiated request with
// "method not supported", matching a client with no fs/terminal/permission
// capabilities to offer back.
func (s *AgentSession) declineAgentRequest(id int64) {
	resp := newErrorResponse(id, rpcErrCodeMethodNotFound, "Method not supported by this client")
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = s.child.writeLine(data)
}

func (s *AgentSession) resolveResponse(id int64, line []byte) {
	var resp JSONRPCResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return
	}

	s.mu.Lock()
	ch, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	if resp.Error != nil {
		ch <- rpcResult{err: &RPCError{Code: resp.Error.Code, Message: resp.Error.Message}}
		return
	}
	ch <- rpcResult{result: resp.Result}
}

func (s *AgentSession) deliverUpdate(line []byte) {
	var notif JSONRPCNotification
	if err := json.Unmarshal(line, &notif); err != nil {
		return
	}
	var payload sessionUpdatePayload
	if err := json.Unmarshal(notif.Params, &payload); err != nil {
		return
	}
	event, ok := mapNotification(payload.Update)
	if !ok {
		return
	}

	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink(event)
	}
}

// handshake performs initialize + session/new against a freshly spawned
// child, recording the resulting sessionID and cwd on success. On any
// failure it returns the error and leaves the child running; the caller is
// responsible for terminating it and for not registering the session.
func (s *AgentSession) handshake(ctx context.Context, cwd string) error {
	initParams := initializeParams{
		ProtocolVersion: "0.1",
		ClientInfo:      initializeClientInfo{Name: "openclaw", Version: "1.0.0"},
	}
	if _, err := s.sendRequest(ctx, methodInitialize, initParams); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	result, err := s.sendRequest(ctx, methodSessionNew, newSessionParams{CWD: cwd, McpServers: []interface{}{}})
	if err != nil {
		return fmt.Errorf("session/new: %w", err)
	}

	var sessResp newSessionResult
	if err := json.Unmarshal(result, &sessResp); err != nil {
		return &ProtocolError{Message: "failed to parse session/new response", Cause: err}
	}

	s.sessionID = sessResp.SessionID
	if s.sessionID == "" {
		s.sessionID = s.key
	}
	s.cfg = s.cfg.withCwd(cwd)
	return nil
}
