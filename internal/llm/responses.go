package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcpchat/gateway/internal/logging"
)

// Responder is the completion-service boundary: one request, one structured
// response. The orchestration loop depends on this interface only.
type Responder interface {
	CreateResponse(ctx context.Context, req *Request) (*Response, error)
}

// Request is one completion request. Chaining to a prior response happens
// through PreviousResponseID, so the service retains conversation context
// without the gateway resending history.
type Request struct {
	Model              string         `json:"model"`
	PreviousResponseID string         `json:"previous_response_id,omitempty"`
	Input              []InputItem    `json:"input"`
	Tools              []FunctionTool `json:"tools,omitempty"`
	ToolChoice         string         `json:"tool_choice,omitempty"`
}

// InputItem is a union of the two input shapes the loop sends: a role
// message with text content, or a function_call_output keyed by call id.
type InputItem struct {
	Type    string        `json:"type,omitempty"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

// ContentPart is one text segment of a message input.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MessageItem builds a role message carrying one text segment.
func MessageItem(role, text string) InputItem {
	return InputItem{
		Role:    role,
		Content: []ContentPart{{Type: "input_text", Text: text}},
	}
}

// FunctionCallOutputItem builds a tool execution result keyed by call id.
func FunctionCallOutputItem(callID, output string) InputItem {
	return InputItem{Type: "function_call_output", CallID: callID, Output: output}
}

// Response is the completion service's structured output: an id for
// chaining plus ordered output items.
type Response struct {
	ID     string       `json:"id"`
	Output []OutputItem `json:"output"`
}

// OutputItem is a union of message items (text segments under Content) and
// function-call directives (Name, Arguments, CallID).
type OutputItem struct {
	Type      string          `json:"type"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Content   []OutputContent `json:"content,omitempty"`
}

// OutputContent is one content segment of a message output item.
type OutputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Client is a Responses-API client over plain HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a completion client for baseURL (no trailing slash).
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     logging.Component("llm"),
	}
}

// CreateResponse posts one completion request and decodes the response.
func (c *Client) CreateResponse(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("completion request: HTTP %d: %s", httpResp.StatusCode, bytes.TrimSpace(snippet))
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("completion response: %w", err)
	}

	c.log.Debug().
		Str("model", req.Model).
		Int("output_items", len(resp.Output)).
		Dur("elapsed", time.Since(start)).
		Msg("completion")
	return &resp, nil
}
