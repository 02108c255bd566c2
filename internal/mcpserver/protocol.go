package mcpserver

import "encoding/json"

const protocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes used on the wire.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// request is one JSON-RPC request. A nil ID marks a notification.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// response is one JSON-RPC reply. A nil ID serializes as null, used when
// the request id could not be read.
type response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      *int      `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func resultResponse(id int, result any) *response {
	return &response{JSONRPC: "2.0", ID: &id, Result: result}
}

func errorResponse(id, code int, message string) *response {
	return &response{JSONRPC: "2.0", ID: &id, Error: &rpcError{Code: code, Message: message}}
}

// parseErrorResponse reports a body whose request id could not be read.
func parseErrorResponse(message string) *response {
	return &response{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: message}}
}

type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    capabilities `json:"capabilities"`
	ServerInfo      serverInfo   `json:"serverInfo"`
}

// capabilities are advertised as plain feature flags.
type capabilities struct {
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
	Prompts   bool `json:"prompts"`
	Logging   bool `json:"logging"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolListResult struct {
	Tools []toolSchema `json:"tools"`
}

type toolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type toolResult struct {
	Content []toolContent `json:"content"`
	IsError bool          `json:"isError"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
