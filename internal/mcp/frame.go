// Package mcp implements a client for one MCP session over HTTP:
// JSON-RPC 2.0 framing, an incremental SSE decoder, and the session
// state machine (initialize handshake, tools/list, tools/call).
package mcp

import (
	"encoding/json"
	"fmt"
)

// FrameKind classifies a decoded JSON-RPC frame.
type FrameKind string

const (
	KindRequest      FrameKind = "request"
	KindNotification FrameKind = "notification"
	KindResponse     FrameKind = "response"
	KindInvalid      FrameKind = "invalid"
)

// Frame is one JSON-RPC 2.0 envelope decoded from the wire. IDs are kept
// raw because the server mixes numeric and string correlation ids.
type Frame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Kind classifies the frame. A frame carrying a result or error field is a
// response; a method with an id is a request; a method alone is a
// notification.
func (f *Frame) Kind() FrameKind {
	switch {
	case f.HasResult() || f.Error != nil:
		return KindResponse
	case f.Method != "" && len(f.ID) > 0:
		return KindRequest
	case f.Method != "":
		return KindNotification
	default:
		return KindInvalid
	}
}

// HasResult reports whether the frame carries a result field, including an
// explicit null result.
func (f *Frame) HasResult() bool {
	return len(f.Result) > 0
}

// StreamText extracts a streamed text chunk from a progress frame
// (params.data of type "text"). Returns false for any other frame.
func (f *Frame) StreamText() (string, bool) {
	if len(f.Params) == 0 {
		return "", false
	}
	var params struct {
		Data struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(f.Params, &params); err != nil {
		return "", false
	}
	if params.Data.Type != "text" {
		return "", false
	}
	return params.Data.Text, true
}

// request is the outbound JSON-RPC envelope. A nil ID makes it a notification.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// ToolDescriptor is one entry of the MCP tool catalog, carried verbatim.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ToolResult is the outcome of one tools/call: streamed text chunks
// concatenated in arrival order, and the final result object. A nil Result
// means the server never produced one; callers must treat that as failure.
type ToolResult struct {
	StreamText string
	Result     json.RawMessage
}

// ProtocolError reports a violation of the MCP exchange contract, such as a
// missing session id on initialize or a stream that never carried a result.
// It is fatal during session setup and recoverable for an individual call.
type ProtocolError struct {
	Op      string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("mcp %s: %s", e.Op, e.Message)
}
