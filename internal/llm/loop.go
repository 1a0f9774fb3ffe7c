package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mcpchat/gateway/internal/logging"
	"github.com/mcpchat/gateway/internal/mcp"
)

// SystemInstructions is the fixed system prompt for every turn.
const SystemInstructions = "You are an orchestration assistant. " +
	"Use the provided tools when needed. " +
	"Always explain what you're doing briefly, then do it. " +
	"Prefer precise function arguments. Return user-friendly results."

// NoTextOutput is returned when the model finishes a turn without emitting
// any text, so callers always have something to display.
const NoTextOutput = "[No text output]"

// ErrTurnLimit means the model kept requesting tools past the configured
// iteration cap. The turn is abandoned but the connection survives.
var ErrTurnLimit = errors.New("tool-call turn limit exceeded")

// Completion retry tuning, applied only to transport-level failures of the
// completion service. Tool calls are never retried.
const (
	retryMaxAttempts     = 3
	retryInitialInterval = time.Second
	retryMaxInterval     = 10 * time.Second
)

// ToolCall is one tool invocation directive extracted from a response.
type ToolCall struct {
	Name      string
	Arguments map[string]any
	CallID    string
}

// CallToolFunc executes one tool. Errors are fed back to the model as the
// tool's result, never propagated as loop failures.
type CallToolFunc func(ctx context.Context, name string, args map[string]any) (*mcp.ToolResult, error)

// Observer receives tool activity in invocation order, letting the caller
// stream it to a client while the turn is still running. Either hook may
// be nil.
type Observer struct {
	OnToolCall   func(name string, args map[string]any)
	OnToolResult func(name string, result json.RawMessage, errMsg string)
}

// Loop runs the multi-turn tool-calling conversation for one user message.
type Loop struct {
	responder Responder
	model     string
	maxTurns  int
}

// NewLoop creates a Loop. maxTurns caps the number of tool-execution rounds
// per user message; zero or negative falls back to a single round.
func NewLoop(responder Responder, model string, maxTurns int) *Loop {
	if maxTurns <= 0 {
		maxTurns = 1
	}
	return &Loop{responder: responder, model: model, maxTurns: maxTurns}
}

// Run submits userText with the full tool list and iterates: execute every
// requested tool synchronously in order, feed the serialized outcomes back
// chained to the previous response, and repeat until the model answers in
// text. The final answer is never empty.
func (l *Loop) Run(ctx context.Context, userText string, tools []FunctionTool, call CallToolFunc, obs Observer) (string, error) {
	log := logging.Component("loop")

	req := &Request{
		Model: l.model,
		Input: []InputItem{
			MessageItem("system", SystemInstructions),
			MessageItem("user", userText),
		},
		Tools:      tools,
		ToolChoice: "auto",
	}

	resp, err := l.create(ctx, req)
	if err != nil {
		return "", err
	}

	for turn := 0; ; turn++ {
		calls := extractToolCalls(resp)
		if len(calls) == 0 {
			text := collectText(resp)
			if text == "" {
				text = NoTextOutput
			}
			return text, nil
		}

		if turn >= l.maxTurns {
			return "", fmt.Errorf("%w after %d rounds", ErrTurnLimit, l.maxTurns)
		}

		outputs := make([]InputItem, 0, len(calls))
		for _, tc := range calls {
			if obs.OnToolCall != nil {
				obs.OnToolCall(tc.Name, tc.Arguments)
			}

			summary, rawJSON, errMsg := l.executeTool(ctx, call, tc)
			if obs.OnToolResult != nil {
				obs.OnToolResult(tc.Name, rawJSON, errMsg)
			}

			output := strings.TrimSpace(fmt.Sprintf("%s completed. %s\nRAW_JSON:\n%s", tc.Name, summary, rawJSON))
			outputs = append(outputs, FunctionCallOutputItem(tc.CallID, output))
		}

		req = &Request{
			Model:              l.model,
			PreviousResponseID: resp.ID,
			Input:              outputs,
			Tools:              tools,
			ToolChoice:         "auto",
		}
		resp, err = l.create(ctx, req)
		if err != nil {
			return "", err
		}
		log.Debug().Int("turn", turn+1).Int("tool_calls", len(calls)).Msg("turn complete")
	}
}

// executeTool runs one directive. Failures, including a call that produced
// no result object, become an {"error": ...} payload for the model.
func (l *Loop) executeTool(ctx context.Context, call CallToolFunc, tc ToolCall) (summary string, rawJSON json.RawMessage, errMsg string) {
	res, err := call(ctx, tc.Name, tc.Arguments)
	switch {
	case err != nil:
		errMsg = err.Error()
	case res.Result == nil:
		summary = res.StreamText
		errMsg = "tool returned no result"
	default:
		return res.StreamText, res.Result, ""
	}
	rawJSON, _ = json.Marshal(map[string]string{"error": errMsg})
	return summary, rawJSON, errMsg
}

// create calls the completion service, retrying transport failures with
// jittered exponential backoff.
func (l *Loop) create(ctx context.Context, req *Request) (*Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval

	var resp *Response
	err := backoff.Retry(func() error {
		r, err := l.responder.CreateResponse(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, retryMaxAttempts-1), ctx))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// extractToolCalls pulls function-call directives from a response in order.
// Arguments arrive as a JSON string; anything unparseable is preserved
// under "_raw" rather than dropped.
func extractToolCalls(resp *Response) []ToolCall {
	var calls []ToolCall
	for _, item := range resp.Output {
		if item.Type != "function_call" && item.Type != "tool_call" {
			continue
		}
		args := map[string]any{}
		if item.Arguments != "" {
			if err := json.Unmarshal([]byte(item.Arguments), &args); err != nil {
				args = map[string]any{"_raw": item.Arguments}
			}
		}
		calls = append(calls, ToolCall{Name: item.Name, Arguments: args, CallID: item.CallID})
	}
	return calls
}

// collectText concatenates all text segments of all message items in order.
func collectText(resp *Response) string {
	var chunks []string
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				chunks = append(chunks, c.Text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(chunks, "\n"))
}
