package runtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// RunTurnInput parametrizes RunTurn.
type RunTurnInput struct {
	Handle    Handle
	Text      string
	Mode      string
	RequestID string
	Signal    <-chan struct{} // closed when the caller cancels the turn
}

// RunTurn drives one prompt-to-completion cycle against the session behind
// in.Handle and returns a channel of Events terminated by exactly one
// done or error event. The channel is closed once the terminal event has
// been sent.
//
// A handle that no longer resolves to a live session is a synchronous
// precondition failure: RunTurn returns a non-nil error and no channel.
func (r *Registry) RunTurn(ctx context.Context, in RunTurnInput) (<-chan Event, error) {
	if isSignalClosed(in.Signal) {
		out := make(chan Event, 1)
		out <- DoneEvent{StopReason: "cancelled"}
		close(out)
		return out, nil
	}

	sess, ok := r.lookup(in.Handle.SessionKey)
	if !ok {
		return nil, &TurnError{Code: ErrCodeTurnFailed, SessionKey: in.Handle.SessionKey, Message: "no live session for handle"}
	}

	t := &turn{
		sess:     sess,
		r:        r,
		handle:   in.Handle,
		start:    time.Now(),
		out:      make(chan Event, 16),
		wake:     make(chan struct{}, 1),
		finished: make(chan struct{}),
	}
	go t.run(ctx, r, in)
	return t.out, nil
}

func isSignalClosed(sig <-chan struct{}) bool {
	if sig == nil {
		return false
	}
	select {
	case <-sig:
		return true
	default:
		return false
	}
}

// turn holds the per-invocation state described in the turn engine design:
// a FIFO buffer fed by the notification sink and the process-close and
// cancellation hooks, and a single consumer goroutine (pump) draining it.
type turn struct {
	sess   *AgentSession
	r      *Registry
	handle Handle
	start  time.Time
	out    chan Event

	mu   sync.Mutex
	buf  []Event
	done bool
	wake chan struct{}

	// finished is closed once pump has sent the terminal event, so the
	// exit-watcher and cancel-watcher hooks know to stop selecting on the
	// session and the caller's signal.
	finished chan struct{}
}

// append adds e to the FIFO buffer and wakes the pump. Events appended
// after the turn is already done (e.g. a late notification racing the
// terminal event) are silently dropped, matching "exactly one terminal
// event" ordering.
func (t *turn) append(e Event) {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.buf = append(t.buf, e)
	if isTerminal(e) {
		t.done = true
	}
	t.mu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// run installs the notification sink and the process-close and
// cancellation hooks, sends session/prompt from its own goroutine, and pumps
// buffered events to t.out until the terminal event has been yielded.
func (t *turn) run(ctx context.Context, r *Registry, in RunTurnInput) {
	defer close(t.out)
	defer t.sess.SetSink(nil)

	t.sess.SetSink(t.append)

	go func() {
		select {
		case <-t.sess.Done():
			t.append(ErrorEvent{Message: "agent process exited unexpectedly"})
		case <-t.finished:
		}
	}()

	if in.Signal != nil {
		go func() {
			select {
			case <-in.Signal:
				r.Cancel(ctx, in.Handle, "turn cancelled")
				t.append(DoneEvent{StopReason: "cancelled"})
			case <-t.finished:
			}
		}()
	}

	go func() {
		block := promptContentBlock{Type: "text", Text: in.Text}
		result, err := t.sess.sendRequest(ctx, methodSessionPrompt, promptParams{
			SessionID: t.sess.SessionID(),
			Prompt:    []promptContentBlock{block},
		})
		if err == ErrProcessExited {
			// The process-close hook above reports this as the terminal event.
			return
		}
		if err != nil {
			t.append(ErrorEvent{Message: err.Error()})
		} else {
			stopReason := "end_turn"
			var resp promptResult
			if jsonErr := json.Unmarshal(result, &resp); jsonErr == nil && resp.StopReason != "" {
				stopReason = resp.StopReason
			}
			t.append(DoneEvent{StopReason: stopReason})
		}
	}()

	t.pump()
}

// pump drains the buffer to t.out in arrival order, closing finished once
// the terminal event has been sent so the hook goroutines in run() can
// unwind.
func (t *turn) pump() {
	defer close(t.finished)
	for {
		t.mu.Lock()
		if len(t.buf) == 0 {
			finished := t.done
			t.mu.Unlock()
			if finished {
				return
			}
			<-t.wake
			continue
		}
		e := t.buf[0]
		t.buf = t.buf[1:]
		t.mu.Unlock()

		if isTerminal(e) {
			t.finalize(e)
			t.out <- e
			return
		}
		t.out <- e
	}
}

// finalize records the turn's outcome via the ambient logger and metrics
// bundle before the terminal event is handed to the caller. pump only ever
// reaches this for the one terminal event that survives turn.append's
// done-gate, so a turn is recorded exactly once regardless of which of the
// three producers (the prompt response, the process-exit watcher, the
// cancellation watcher) won the race to append it.
func (t *turn) finalize(e Event) {
	duration := time.Since(t.start).Seconds()
	log := t.r.log.WithSessionKey(t.handle.SessionKey)

	switch ev := e.(type) {
	case DoneEvent:
		t.r.met.RecordTurn(t.r.cfg.Command, ev.StopReason, duration)
		log.Info("turn finished", "stop_reason", ev.StopReason)
	case ErrorEvent:
		t.r.met.RecordTurn(t.r.cfg.Command, "error", duration)
		t.r.met.RecordError(t.r.cfg.Command, ErrCodeTurnFailed)
		log.Error("turn ended in error", "error", ev.Message)
	}
}
