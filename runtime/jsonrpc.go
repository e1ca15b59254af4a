package runtime

import (
	"encoding/json"
	"sync/atomic"
)

// ACP JSON-RPC method names.
const (
	methodInitialize     = "initialize"
	methodSessionNew     = "session/new"
	methodSessionPrompt  = "session/prompt"
	methodSessionCancel  = "session/cancel"
	methodSessionSetMode = "session/set_mode"
	methodSessionUpdate  = "session/update"
)

// Standard JSON-RPC 2.0 error codes.
const (
	rpcErrCodeMethodNotFound = -32601
)

// controlMethods are subject to the 30-second control timeout. session/prompt
// is deliberately absent: it is the streaming operation and runs untimed.
var controlMethods = map[string]bool{
	methodInitialize:     true,
	methodSessionNew:     true,
	methodSessionCancel:  true,
	methodSessionSetMode: true,
}

// JSONRPCRequest is a JSON-RPC 2.0 request sent to the agent.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      int64           `json:"id"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response, either from the agent to one
// of our requests or from us to an agent-initiated request.
type JSONRPCResponse struct {
	Error   *JSONRPCError   `json:"error,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	ID      int64           `json:"id"`
}

// JSONRPCNotification is a JSON-RPC 2.0 message with no id.
type JSONRPCNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCError is the error object carried by a JSONRPCResponse.
type JSONRPCError struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// envelope is used to classify an inbound line before committing to a
// concrete message shape: id+method means an agent-initiated request, id
// alone means a response, method alone means a notification.
type envelope struct {
	ID     *int64 `json:"id,omitempty"`
	Method string `json:"method,omitempty"`
}

// idGenerator allocates the monotonically increasing request ids an
// AgentSession uses to correlate responses, starting at 1.
type idGenerator struct {
	next atomic.Int64
}

func (g *idGenerator) Next() int64 {
	return g.next.Add(1)
}

func newRequest(id int64, method string, params interface{}) (*JSONRPCRequest, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return &JSONRPCRequest{JSONRPC: "2.0", ID: id, Method: method, Params: data}, nil
}

func newErrorResponse(id int64, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}

// --- initialize ---

type initializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	ClientInfo      initializeClientInfo   `json:"clientInfo"`
}

type initializeClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	AgentCapabilities json.RawMessage `json:"agentCapabilities,omitempty"`
}

// --- session/new ---

type newSessionParams struct {
	CWD        string        `json:"cwd"`
	McpServers []interface{} `json:"mcpServers"`
}

type newSessionResult struct {
	SessionID string `json:"sessionId"`
}

// --- session/prompt ---

type promptContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type promptParams struct {
	SessionID string               `json:"sessionId"`
	Prompt    []promptContentBlock `json:"prompt"`
}

type promptResult struct {
	StopReason string `json:"stopReason"`
}

// --- session/cancel ---

type cancelParams struct {
	SessionID string `json:"sessionId"`
}

// --- session/set_mode ---

type setModeParams struct {
	SessionID string `json:"sessionId"`
	ModeID    string `json:"modeId"`
}

// --- session/update (notification) ---

// sessionUpdatePayload is the params of a session/update notification. Only
// the fields the notification mapper consumes are modeled; everything else
// an agent might send rides along unparsed.
type sessionUpdatePayload struct {
	SessionID string        `json:"sessionId"`
	Update    sessionUpdate `json:"update"`
}

type sessionUpdate struct {
	Type       string               `json:"sessionUpdate"`
	Content    *promptContentBlock  `json:"content,omitempty"`
	ToolCallID string               `json:"toolCallId,omitempty"`
	Title      string               `json:"title,omitempty"`
	Status     string               `json:"status,omitempty"`
}
