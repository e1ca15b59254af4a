package runtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/openclaw/acp-runtime/logging"
	"github.com/openclaw/acp-runtime/metrics"
)

// Handle is the opaque, host-facing reference to one live session.
type Handle struct {
	SessionKey         string
	BackendID          string
	RuntimeSessionName string
	Cwd                string
}

// EnsureSessionInput parametrizes EnsureSession.
type EnsureSessionInput struct {
	SessionKey string
	Agent      string
	Mode       string
	Cwd        string
}

// initFuture is the in-flight-initialization slot used to deduplicate
// concurrent EnsureSession calls for the same session key: the first caller
// performs the handshake, every other caller observes the same result.
type initFuture struct {
	done   chan struct{}
	handle Handle
	err    error
}

// Registry maps session keys to live AgentSessions, deduplicating
// concurrent initialization and invalidating sessions whose cwd changed.
type Registry struct {
	cfg ResolvedConfig
	log *logging.Logger
	met *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*AgentSession
	inflight map[string]*initFuture

	healthy atomic.Int32
}

// Option configures Registry construction.
type Option func(*Registry)

// WithLogger attaches a structured logger used for stderr routing, spawn
// failures, and turn-ending errors.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithMetrics attaches a Prometheus instrumentation bundle.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.met = m }
}

// NewRegistry constructs a Registry bound to cfg. Per-session overrides
// (currently cwd) are layered on top of cfg by EnsureSession.
func NewRegistry(cfg ResolvedConfig, opts ...Option) *Registry {
	r := &Registry{
		cfg:      cfg.clone(),
		sessions: make(map[string]*AgentSession),
		inflight: make(map[string]*initFuture),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Registry) handleFor(key string, s *AgentSession) Handle {
	return Handle{
		SessionKey:         key,
		BackendID:          r.cfg.Command,
		RuntimeSessionName: s.SessionID(),
		Cwd:                s.Cwd(),
	}
}

// EnsureSession returns a handle to a live AgentSession for in.SessionKey,
// spawning and handshaking a fresh agent process if none exists yet, or if
// the requested cwd differs from the cached session's cwd.
func (r *Registry) EnsureSession(ctx context.Context, in EnsureSessionInput) (Handle, error) {
	effectiveCwd := in.Cwd
	if effectiveCwd == "" {
		effectiveCwd = r.cfg.Cwd
	}

	for {
		r.mu.Lock()
		if fut, ok := r.inflight[in.SessionKey]; ok {
			r.mu.Unlock()
			r.log.WithSessionKey(in.SessionKey).Info("ensureSession dedup hit, awaiting in-flight handshake")
			<-fut.done
			return fut.handle, fut.err
		}

		if sess, ok := r.sessions[in.SessionKey]; ok {
			if sess.Cwd() == effectiveCwd {
				h := r.handleFor(in.SessionKey, sess)
				r.mu.Unlock()
				return h, nil
			}
			delete(r.sessions, in.SessionKey)
			r.mu.Unlock()
			r.log.WithSessionKey(in.SessionKey).Info("cwd changed, invalidating cached session", "old_cwd", sess.Cwd(), "new_cwd", effectiveCwd)
			sess.Kill()
			r.met.RecordSessionClosed(r.cfg.Command, "cwd_changed")
			continue
		}

		fut := &initFuture{done: make(chan struct{})}
		r.inflight[in.SessionKey] = fut
		r.mu.Unlock()
		r.log.WithSessionKey(in.SessionKey).Info("ensureSession dedup miss, spawning fresh session")

		handle, err := r.initSession(ctx, in.SessionKey, effectiveCwd)

		r.mu.Lock()
		delete(r.inflight, in.SessionKey)
		r.mu.Unlock()

		fut.handle, fut.err = handle, err
		close(fut.done)
		return handle, err
	}
}

// initSession performs the fresh-spawn path of EnsureSession: launch the
// child, run the initialize/session/new handshake, and on success register
// the session. A failed handshake tears the child down and is never
// cached, so the next EnsureSession call starts from scratch.
func (r *Registry) initSession(ctx context.Context, key, cwd string) (Handle, error) {
	c, err := launch(ctx, r.cfg.withCwd(cwd), r.cfg.Args)
	if err != nil {
		r.log.WithSessionKey(key).Warn("failed to spawn agent process", "error", err)
		return Handle{}, err
	}

	onStderr := func(line string) {
		r.log.WithSessionKey(key).Warn("agent stderr", "line", line)
	}
	sess := newAgentSession(key, r.cfg.withCwd(cwd), c, onStderr)

	if err := sess.handshake(ctx, cwd); err != nil {
		sess.Kill()
		r.met.RecordError(r.cfg.Command, ErrCodeTurnFailed)
		return Handle{}, err
	}

	r.mu.Lock()
	r.sessions[key] = sess
	r.mu.Unlock()

	go r.reapOnExit(key, sess)

	r.met.RecordSessionCreated(r.cfg.Command)
	return r.handleFor(key, sess), nil
}

// reapOnExit removes a session from the registry once its child process
// exits on its own, so a subsequent EnsureSession respawns rather than
// handing back a handle to a dead process.
func (r *Registry) reapOnExit(key string, sess *AgentSession) {
	<-sess.Done()
	r.mu.Lock()
	owned := r.sessions[key] == sess
	if owned {
		delete(r.sessions, key)
	}
	r.mu.Unlock()
	if owned {
		r.met.RecordSessionClosed(r.cfg.Command, "process_exited")
	}
}

// lookup returns the live AgentSession for a handle's session key, if any.
func (r *Registry) lookup(key string) (*AgentSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// remove unregisters a session key unconditionally. The process-close path
// (reapOnExit) does not use it: it deletes an entry only while that entry
// is still the exiting session.
func (r *Registry) remove(key string) {
	r.mu.Lock()
	delete(r.sessions, key)
	r.mu.Unlock()
}

// Close terminates the session behind handle, if it still exists. A
// nonexistent session is a no-op.
func (r *Registry) Close(handle Handle, reason string) {
	r.mu.Lock()
	sess, ok := r.sessions[handle.SessionKey]
	if ok {
		delete(r.sessions, handle.SessionKey)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	sess.Kill()
	if reason == "" {
		reason = "closed"
	}
	r.met.RecordSessionClosed(r.cfg.Command, reason)
}

// CloseAll terminates every live session and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*AgentSession)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.Kill()
		r.met.RecordSessionClosed(r.cfg.Command, "close_all")
	}
}

// Cancel fires session/cancel against the session behind handle. A
// nonexistent session is a no-op, matching close's semantics. session/cancel
// is a control method with a reply and a 30s timeout, so it goes through
// sendRequest; it is launched detached rather than awaited synchronously so
// a slow-to-acknowledge agent never blocks the caller that asked to cancel.
func (r *Registry) Cancel(ctx context.Context, handle Handle, reason string) {
	sess, ok := r.lookup(handle.SessionKey)
	if !ok {
		return
	}
	go func() {
		if _, err := sess.sendRequest(ctx, methodSessionCancel, cancelParams{SessionID: sess.SessionID()}); err != nil {
			r.log.WithSessionKey(handle.SessionKey).Warn("session/cancel failed", "error", err, "reason", reason)
		}
	}()
}

// SetMode sends session/set_mode for handle's session.
func (r *Registry) SetMode(ctx context.Context, handle Handle, mode string) error {
	sess, ok := r.lookup(handle.SessionKey)
	if !ok {
		return ErrSessionNotFound
	}
	_, err := sess.sendRequest(ctx, methodSessionSetMode, setModeParams{SessionID: sess.SessionID(), ModeID: mode})
	return err
}

// Status summarizes a session's liveness for getStatus.
type Status struct {
	Summary string
}

// GetStatus reports whether handle's session is still live.
func (r *Registry) GetStatus(handle Handle) Status {
	sess, ok := r.lookup(handle.SessionKey)
	if !ok {
		return Status{Summary: "no process"}
	}
	select {
	case <-sess.Done():
		return Status{Summary: "no process"}
	default:
		return Status{Summary: "running, sessionId=" + sess.SessionID()}
	}
}

// Capabilities describes what the host can ask the adapter to do beyond
// running turns.
type Capabilities struct {
	Controls []string
}

// GetCapabilities returns the adapter's fixed capability set.
func (r *Registry) GetCapabilities() Capabilities {
	return Capabilities{Controls: []string{"session/set_mode"}}
}

// Metrics returns the registry's instrumentation bundle, or nil if none was
// configured via WithMetrics.
func (r *Registry) Metrics() *metrics.Metrics { return r.met }

// SetLogger replaces the registry's logger after construction, letting a
// host wire up logging once a Registry has already been built.
func (r *Registry) SetLogger(l *logging.Logger) { r.log = l }
