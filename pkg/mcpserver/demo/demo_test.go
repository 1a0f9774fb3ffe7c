package demo

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callTool(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	server := NewServer()
	tool := server.GetTool(name)
	require.NotNil(t, tool, "%s tool should exist", name)

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := tool.Handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content should be text")
	return textContent.Text
}

func TestDemoServer_Tools(t *testing.T) {
	server := NewServer()
	for _, name := range []string{"echo", "current_time", "word_count"} {
		assert.NotNil(t, server.GetTool(name), "%s tool should exist", name)
	}
}

func TestEcho(t *testing.T) {
	result := callTool(t, "echo", map[string]any{"message": "hello gateway"})
	assert.False(t, result.IsError)
	assert.Equal(t, "hello gateway", textOf(t, result))
}

func TestEcho_MissingArgument(t *testing.T) {
	result := callTool(t, "echo", map[string]any{})
	assert.True(t, result.IsError)
}

func TestCurrentTime(t *testing.T) {
	result := callTool(t, "current_time", map[string]any{"timezone": "UTC"})
	assert.False(t, result.IsError)
	assert.Contains(t, textOf(t, result), "UTC")
}

func TestCurrentTime_BadTimezone(t *testing.T) {
	result := callTool(t, "current_time", map[string]any{"timezone": "Nowhere/Nothing"})
	assert.True(t, result.IsError)
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"simple", "one two three", "3"},
		{"extra whitespace", "  spaced   out  ", "2"},
		{"empty", "", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, "word_count", map[string]any{"text": tt.text})
			assert.False(t, result.IsError)
			assert.Equal(t, tt.want, textOf(t, result))
		})
	}
}
