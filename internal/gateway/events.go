// Package gateway terminates end-user WebSocket connections and coordinates
// authentication, MCP session setup, and chat turns.
package gateway

import "encoding/json"

// Event tags pushed to WebSocket clients. Events are one-way, server to
// client, emitted strictly in the order the phases occur.
const (
	EventStatus      = "status"
	EventTools       = "tools"
	EventUserMessage = "user_message"
	EventToolCall    = "tool_call"
	EventToolResult  = "tool_result"
	EventAIMessage   = "ai_message"
	EventError       = "error"
)

// StatusEvent reports a connection phase transition.
type StatusEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// ToolsEvent announces the bridged tool catalog.
type ToolsEvent struct {
	Event string   `json:"event"`
	Count int      `json:"count"`
	Tools []string `json:"tools"`
}

// UserMessageEvent echoes an accepted user message.
type UserMessageEvent struct {
	Event string `json:"event"`
	Text  string `json:"text"`
}

// ToolCallEvent reports one tool invocation as it starts.
type ToolCallEvent struct {
	Event string         `json:"event"`
	Name  string         `json:"name"`
	Args  map[string]any `json:"args"`
}

// ToolResultEvent reports one tool invocation's outcome.
type ToolResultEvent struct {
	Event  string          `json:"event"`
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result"`
}

// AIMessageEvent delivers the final answer for a turn.
type AIMessageEvent struct {
	Event     string `json:"event"`
	Text      string `json:"text"`
	LatencyMS int64  `json:"latency_ms"`
}

// ErrorEvent reports a contained failure. Where identifies the phase
// ("mcp_init", "input", "llm").
type ErrorEvent struct {
	Event  string `json:"event"`
	Where  string `json:"where"`
	Detail string `json:"detail"`
}

func statusEvent(message string) StatusEvent {
	return StatusEvent{Event: EventStatus, Message: message}
}

func toolsEvent(names []string) ToolsEvent {
	return ToolsEvent{Event: EventTools, Count: len(names), Tools: names}
}

func userMessageEvent(text string) UserMessageEvent {
	return UserMessageEvent{Event: EventUserMessage, Text: text}
}

func toolCallEvent(name string, args map[string]any) ToolCallEvent {
	return ToolCallEvent{Event: EventToolCall, Name: name, Args: args}
}

func toolResultEvent(name string, result json.RawMessage) ToolResultEvent {
	return ToolResultEvent{Event: EventToolResult, Name: name, Result: result}
}

func aiMessageEvent(text string, latencyMS int64) AIMessageEvent {
	return AIMessageEvent{Event: EventAIMessage, Text: text, LatencyMS: latencyMS}
}

func errorEvent(where, detail string) ErrorEvent {
	return ErrorEvent{Event: EventError, Where: where, Detail: detail}
}
