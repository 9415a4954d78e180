// Package mcp implements the JSON-RPC 2.0 engine behind the server: the
// envelope types, the protocol method router, the tool registry, and the
// stdio and websocket transports.
package mcp

import "encoding/json"

const (
	// jsonrpcVersion tags every envelope on the wire.
	jsonrpcVersion = "2.0"

	// protocolVersion is the MCP revision reported by initialize.
	protocolVersion = "2024-11-05"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
)

// Request is one incoming envelope. A request without an id is a
// notification and gets no response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response carries the request id and exactly one of Result or Error.
type Response struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      any          `json:"id"`
	Result  any          `json:"result,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func resultResponse(id, result any) *Response {
	return &Response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

func errorResponse(id any, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &ErrorDetail{Code: code, Message: message, Data: data},
	}
}
