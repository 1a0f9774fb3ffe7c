// Package demo provides a small MCP server for exercising the gateway end
// to end without a real tool backend. It speaks the same streamable HTTP
// transport the gateway's session client expects, session ids included.
package demo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates an MCP server exposing a few conversation-friendly tools.
func NewServer() *server.MCPServer {
	s := server.NewMCPServer(
		"chat-demo",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	echoTool := mcp.NewTool("echo",
		mcp.WithDescription("Echoes a message back to the caller"),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Message to echo"),
		),
	)
	s.AddTool(echoTool, echoHandler)

	timeTool := mcp.NewTool("current_time",
		mcp.WithDescription("Returns the current time, optionally in a named timezone"),
		mcp.WithString("timezone",
			mcp.Description("IANA timezone name, e.g. Europe/Berlin"),
		),
	)
	s.AddTool(timeTool, timeHandler)

	wordCountTool := mcp.NewTool("word_count",
		mcp.WithDescription("Counts the words in a piece of text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to count words in"),
		),
	)
	s.AddTool(wordCountTool, wordCountHandler)

	return s
}

func echoHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, ok := request.GetArguments()["message"].(string)
	if !ok {
		return mcp.NewToolResultError("message argument is required"), nil
	}
	return mcp.NewToolResultText(message), nil
}

func timeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loc := time.Local
	if tz, ok := request.GetArguments()["timezone"].(string); ok && tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown timezone %q", tz)), nil
		}
		loc = parsed
	}
	return mcp.NewToolResultText(time.Now().In(loc).Format(time.RFC1123)), nil
}

func wordCountHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, ok := request.GetArguments()["text"].(string)
	if !ok {
		return mcp.NewToolResultError("text argument is required"), nil
	}
	return mcp.NewToolResultText(strconv.Itoa(len(strings.Fields(text)))), nil
}
