package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSession wires an AgentSession to in-memory pipes standing in for a
// real agent subprocess: agentIn is what the session wrote (what a real
// agent would read from its stdin), agentOut is where the test writes
// fake agent responses (what a real agent would write to its stdout).
type testSession struct {
	sess     *AgentSession
	child    *child
	agentIn  *bufio.Reader
	agentOut *os.File

	killOnce sync.Once
}

func newTestSession(t *testing.T) *testSession {
	t.Helper()

	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	stdoutR, stdoutW, err := os.Pipe()
	require.NoError(t, err)
	stderrR, stderrW, err := os.Pipe()
	require.NoError(t, err)

	c := &child{stdin: stdinW, stdout: stdoutR, stderr: stderrR, exited: make(chan struct{})}
	sess := newAgentSession("session-1", DefaultConfig(), c, nil)
	ts := &testSession{sess: sess, child: c, agentIn: bufio.NewReader(stdinR), agentOut: stdoutW}

	t.Cleanup(func() {
		ts.killChild()
		stdinR.Close()
		stdoutW.Close()
		stderrW.Close()
	})

	return ts
}

// killChild simulates the agent process exiting, safe to call at most once
// in effect even if invoked both by a test (to exercise an unexpected-exit
// path) and by the test's own cleanup afterward.
func (ts *testSession) killChild() {
	ts.killOnce.Do(func() { close(ts.child.exited) })
}

func (ts *testSession) writeAgentLine(t *testing.T, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	_, err = ts.agentOut.Write(append(data, '\n'))
	require.NoError(t, err)
}

func (ts *testSession) readAgentLine(t *testing.T) []byte {
	t.Helper()
	line, err := ts.agentIn.ReadBytes('\n')
	require.NoError(t, err)
	return line
}

func (ts *testSession) readAgentRequest(t *testing.T) JSONRPCRequest {
	t.Helper()
	var req JSONRPCRequest
	require.NoError(t, json.Unmarshal(ts.readAgentLine(t), &req))
	return req
}

func TestAgentSession_SendRequestResolvesOnResponse(t *testing.T) {
	ts := newTestSession(t)

	resultCh := make(chan json.RawMessage, 1)
	errCh := make(chan error, 1)
	go func() {
		result, err := ts.sess.sendRequest(context.Background(), methodSessionNew, newSessionParams{CWD: "/work"})
		resultCh <- result
		errCh <- err
	}()

	req := ts.readAgentRequest(t)
	assert.Equal(t, methodSessionNew, req.Method)

	ts.writeAgentLine(t, JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"sessionId":"mock-session-1"}`)})

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sendRequest to resolve")
	}
	var resp newSessionResult
	require.NoError(t, json.Unmarshal(<-resultCh, &resp))
	assert.Equal(t, "mock-session-1", resp.SessionID)
}

func TestAgentSession_SendRequestResolvesOnError(t *testing.T) {
	ts := newTestSession(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := ts.sess.sendRequest(context.Background(), methodSessionNew, newSessionParams{})
		errCh <- err
	}()

	req := ts.readAgentRequest(t)
	ts.writeAgentLine(t, JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &JSONRPCError{Code: -32000, Message: "boom"}})

	select {
	case err := <-errCh:
		require.Error(t, err)
		var rpcErr *RPCError
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, -32000, rpcErr.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sendRequest to resolve")
	}
}

func TestAgentSession_DeclinesAgentInitiatedRequest(t *testing.T) {
	ts := newTestSession(t)

	ts.writeAgentLine(t, JSONRPCRequest{JSONRPC: "2.0", ID: 7, Method: "fs/read_text_file"})

	var resp JSONRPCResponse
	require.NoError(t, json.Unmarshal(ts.readAgentLine(t), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcErrCodeMethodNotFound, resp.Error.Code)
	assert.EqualValues(t, 7, resp.ID)
}

func TestAgentSession_DeliversMappedNotificationToSink(t *testing.T) {
	ts := newTestSession(t)

	received := make(chan Event, 1)
	ts.sess.SetSink(func(e Event) { received <- e })

	payload, err := json.Marshal(sessionUpdatePayload{
		SessionID: "session-1",
		Update: sessionUpdate{
			Type:    "agent_message_chunk",
			Content: &promptContentBlock{Type: "text", Text: "hi"},
		},
	})
	require.NoError(t, err)
	ts.writeAgentLine(t, JSONRPCNotification{JSONRPC: "2.0", Method: methodSessionUpdate, Params: payload})

	select {
	case e := <-received:
		assert.Equal(t, TextDeltaEvent{Text: "hi", Stream: "output"}, e)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification delivery")
	}
}

func TestAgentSession_MalformedLineIsIgnored(t *testing.T) {
	ts := newTestSession(t)

	_, err := ts.agentOut.Write([]byte("not json at all\n"))
	require.NoError(t, err)

	resultCh := make(chan error, 1)
	go func() {
		_, err := ts.sess.sendRequest(context.Background(), methodSessionNew, newSessionParams{})
		resultCh <- err
	}()

	req := ts.readAgentRequest(t)
	ts.writeAgentLine(t, JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"sessionId":"s1"}`)})

	select {
	case err := <-resultCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("malformed line should not have broken the pending request")
	}
}
