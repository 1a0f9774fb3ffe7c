package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mcpchat/gateway/internal/logging"
)

// clientName and clientVersion identify this gateway in the initialize
// handshake.
const (
	clientName    = "chat-gateway"
	clientVersion = "0.1.0"
)

// State is the session lifecycle state.
type State string

const (
	StateNew          State = "new"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateClosed       State = "closed"
	StateFailed       State = "failed"
)

// Session owns one authenticated MCP session: it performs the initialize
// handshake, tracks the session id issued by the server, and exposes
// tools/list and tools/call as blocking request/response operations.
//
// A Session belongs to exactly one connection and is never shared. All
// operations are sequential; there is no client-side multiplexing.
type Session struct {
	base   string
	proto  string
	http   *http.Client
	id     string
	state  State
	nextID atomic.Int64
	log    zerolog.Logger
}

// NewSession creates an unconnected session against the given MCP base URL.
// The timeout bounds every HTTP exchange including streamed responses.
func NewSession(base, proto string, timeout time.Duration) *Session {
	return &Session{
		base:  base,
		proto: proto,
		http:  &http.Client{Timeout: timeout},
		state: StateNew,
		log:   logging.Component("mcp"),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// ID returns the session identifier issued at initialize, or "" before that.
func (s *Session) ID() string { return s.id }

// Initialize performs the MCP handshake: an initialize request whose
// transport response must carry an Mcp-Session-Id header, immediately
// followed by a notifications/initialized notification. The session is
// usable only after both complete.
func (s *Session) Initialize(ctx context.Context) error {
	if s.state != StateNew {
		return fmt.Errorf("initialize: session is %s, want %s", s.state, StateNew)
	}
	s.state = StateInitializing

	init := request{
		JSONRPC: "2.0",
		ID:      s.nextID.Add(1),
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": s.proto,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"clientInfo":      map[string]any{"name": clientName, "version": clientVersion},
		},
	}

	resp, err := s.post(ctx, init, false)
	if err != nil {
		s.state = StateFailed
		return fmt.Errorf("initialize: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	sessionID := resp.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		s.state = StateFailed
		return &ProtocolError{Op: "initialize", Message: "server did not return Mcp-Session-Id header"}
	}
	s.id = sessionID

	notify := request{JSONRPC: "2.0", Method: "notifications/initialized", Params: map[string]any{}}
	resp, err = s.post(ctx, notify, true)
	if err != nil {
		s.state = StateFailed
		return fmt.Errorf("initialized notification: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	s.state = StateReady
	s.log.Debug().Str("session_id", s.id).Msg("mcp session ready")
	return nil
}

// ListTools fetches the tool catalog. The last frame of the decoded stream
// that carries a result is taken as the outcome; a stream with no result
// frame is a protocol error.
func (s *Session) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	if err := s.requireReady("tools/list"); err != nil {
		return nil, err
	}

	req := request{JSONRPC: "2.0", ID: s.nextID.Add(1), Method: "tools/list"}
	frames, err := s.stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}

	result := lastResult(frames)
	if result == nil {
		return nil, &ProtocolError{Op: "tools/list", Message: "no result frame in stream"}
	}

	var catalog struct {
		Tools []ToolDescriptor `json:"tools"`
		Items []ToolDescriptor `json:"items"`
	}
	if err := json.Unmarshal(result, &catalog); err != nil {
		return nil, &ProtocolError{Op: "tools/list", Message: fmt.Sprintf("malformed result: %v", err)}
	}
	if catalog.Tools != nil {
		return catalog.Tools, nil
	}
	return catalog.Items, nil
}

// CallTool invokes one tool with the given arguments, forwarded verbatim.
// Streamed text chunks are concatenated in arrival order; the final result
// object is the last result frame seen. A nil Result means the call failed
// server-side.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	if err := s.requireReady("tools/call"); err != nil {
		return nil, err
	}

	req := request{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "tools/call",
		Params:  map[string]any{"name": name, "arguments": args},
	}

	frames, err := s.stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tools/call %s: %w", name, err)
	}

	out := &ToolResult{}
	var text bytes.Buffer
	for i := range frames {
		if chunk, ok := frames[i].StreamText(); ok {
			text.WriteString(chunk)
		}
		if frames[i].HasResult() {
			out.Result = frames[i].Result
		}
	}
	out.StreamText = text.String()
	return out, nil
}

// Close moves the session to Closed and releases transport resources.
// In-flight calls are abandoned via their contexts; no retry is attempted.
func (s *Session) Close() {
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.http.CloseIdleConnections()
}

func (s *Session) requireReady(op string) error {
	if s.state != StateReady {
		return fmt.Errorf("%s: session is %s, want %s", op, s.state, StateReady)
	}
	return nil
}

// post sends one JSON-RPC envelope and returns the raw HTTP response.
// Callers own the body. Non-2xx statuses are returned as errors with a
// body snippet for diagnosis.
func (s *Session) post(ctx context.Context, body request, includeSession bool) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json,text/event-stream")
	req.Header.Set("MCP-Protocol-Version", s.proto)
	if includeSession && s.id != "" {
		req.Header.Set("Mcp-Session-Id", s.id)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return resp, nil
}

// stream posts a request and decodes the SSE response into ordered frames.
func (s *Session) stream(ctx context.Context, body request) ([]Frame, error) {
	resp, err := s.post(ctx, body, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return DecodeAll(resp.Body)
}

// lastResult returns the result payload of the last result-bearing frame.
// The server may emit more than one; last wins, matching observed behavior.
func lastResult(frames []Frame) json.RawMessage {
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].HasResult() {
			return frames[i].Result
		}
	}
	return nil
}
