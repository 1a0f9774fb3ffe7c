// Package llm drives the completion service: the function-tool schema
// bridge, a typed Responses-API client, and the tool-call orchestration
// loop that turns one user message into a final answer.
package llm

import (
	"encoding/json"

	"github.com/mcpchat/gateway/internal/mcp"
)

// FunctionTool is a tool definition in the completion service's
// function-calling format.
type FunctionTool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// BridgeTools maps the MCP tool catalog 1:1, order-preserving, into
// function tools. Every cataloged tool is exposed; nothing is deduplicated
// or filtered. Missing descriptions get a generic one, and input schemas
// are normalized to minimally valid JSON Schema.
func BridgeTools(catalog []mcp.ToolDescriptor) []FunctionTool {
	tools := make([]FunctionTool, len(catalog))
	for i, t := range catalog {
		desc := t.Description
		if desc == "" {
			desc = "MCP tool " + t.Name
		}
		tools[i] = FunctionTool{
			Type:        "function",
			Name:        t.Name,
			Description: desc,
			Parameters:  normalizeSchema(t.InputSchema),
		}
	}
	return tools
}

// normalizeSchema defaults a missing type to "object" and missing
// properties to {} so the schema passes the completion service's
// validation. Anything unparseable becomes an empty object schema.
func normalizeSchema(raw json.RawMessage) json.RawMessage {
	schema := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &schema); err != nil {
			schema = map[string]any{}
		}
	}
	if _, ok := schema["type"]; !ok {
		schema["type"] = "object"
	}
	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}
	normalized, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return normalized
}
