package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func TestEventShapes(t *testing.T) {
	tests := []struct {
		name  string
		event any
		want  string
	}{
		{
			"status",
			statusEvent("connecting_mcp"),
			`{"event":"status","message":"connecting_mcp"}`,
		},
		{
			"tools",
			toolsEvent([]string{"get_channels", "send_message"}),
			`{"event":"tools","count":2,"tools":["get_channels","send_message"]}`,
		},
		{
			"user message",
			userMessageEvent("hello"),
			`{"event":"user_message","text":"hello"}`,
		},
		{
			"tool call",
			toolCallEvent("get_channels", map[string]any{"limit": 5}),
			`{"event":"tool_call","name":"get_channels","args":{"limit":5}}`,
		},
		{
			"tool result",
			toolResultEvent("get_channels", json.RawMessage(`{"ok":true}`)),
			`{"event":"tool_result","name":"get_channels","result":{"ok":true}}`,
		},
		{
			"ai message",
			aiMessageEvent("done", 1234),
			`{"event":"ai_message","text":"done","latency_ms":1234}`,
		},
		{
			"error",
			errorEvent("llm", "turn limit exceeded"),
			`{"event":"error","where":"llm","detail":"turn limit exceeded"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, marshal(t, tt.event))
		})
	}
}

func TestToolsEvent_EmptyCatalog(t *testing.T) {
	assert.JSONEq(t, `{"event":"tools","count":0,"tools":[]}`, marshal(t, toolsEvent([]string{})))
}
