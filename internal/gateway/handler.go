package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/mcpchat/gateway/internal/auth"
	"github.com/mcpchat/gateway/internal/llm"
	"github.com/mcpchat/gateway/internal/logging"
	"github.com/mcpchat/gateway/internal/mcp"
)

// TokenVerifier is the Access Gate boundary.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// SessionFactory builds one fresh MCP session per connection.
type SessionFactory func() *mcp.Session

// inboundMessage is the only application payload clients may send.
type inboundMessage struct {
	Message *string `json:"message"`
}

// Handler runs one WebSocket connection end to end: gate on the token,
// bring up an exclusive MCP session, bridge the tool catalog, then serve
// chat turns until the client goes away. Everything within one connection
// is strictly sequential.
type Handler struct {
	verifier   TokenVerifier
	newSession SessionFactory
	loop       *llm.Loop
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

// NewHandler wires a Handler from its collaborators.
func NewHandler(verifier TokenVerifier, newSession SessionFactory, loop *llm.Loop) *Handler {
	return &Handler{
		verifier:   verifier,
		newSession: newSession,
		loop:       loop,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logging.Component("gateway"),
	}
}

// ServeWS handles GET /ws?token=<bearer>. The token is verified before the
// protocol-level upgrade: a refused connection gets a plain HTTP error with
// a human-readable reason and never touches the MCP endpoint.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token query parameter", http.StatusUnauthorized)
		return
	}

	identity, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrServiceUnavailable) {
			status = http.StatusServiceUnavailable
		}
		h.log.Warn().Err(err).Msg("connection refused")
		http.Error(w, "authentication failed: "+err.Error(), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.With().
		Str("conn_id", ulid.Make().String()).
		Str("subject", identity.Subject).
		Logger()
	log.Info().Msg("connection accepted")

	// Tearing down the connection cancels any in-flight HTTP work and
	// releases the session; nothing runs past this handler.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := h.newSession()
	defer session.Close()

	tools, err := h.bootstrap(ctx, conn, session)
	if err != nil {
		log.Error().Err(err).Msg("mcp bootstrap failed")
		h.writeEvent(conn, errorEvent("mcp_init", err.Error()))
		return
	}
	log.Info().Int("tools", len(tools)).Msg("session ready")

	h.chatLoop(ctx, conn, session, tools, log)
	log.Info().Msg("connection closed")
}

// bootstrap initializes the MCP session and returns the bridged catalog,
// emitting the phase events in order. Any failure here is fatal for the
// connection.
func (h *Handler) bootstrap(ctx context.Context, conn *websocket.Conn, session *mcp.Session) ([]llm.FunctionTool, error) {
	if err := h.writeEvent(conn, statusEvent("connecting_mcp")); err != nil {
		return nil, err
	}
	if err := h.writeEvent(conn, statusEvent("initializing_mcp_session")); err != nil {
		return nil, err
	}
	if err := session.Initialize(ctx); err != nil {
		return nil, err
	}

	catalog, err := session.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	tools := llm.BridgeTools(catalog)

	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	if err := h.writeEvent(conn, toolsEvent(names)); err != nil {
		return nil, err
	}
	return tools, nil
}

// chatLoop serves chat turns until the client disconnects. Failures inside
// a turn are reported as error events and never tear the connection down.
func (h *Handler) chatLoop(ctx context.Context, conn *websocket.Conn, session *mcp.Session, tools []llm.FunctionTool, log zerolog.Logger) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			// Client-initiated close is normal termination.
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("read ended")
			}
			return
		}

		var in inboundMessage
		if err := json.Unmarshal(raw, &in); err != nil || in.Message == nil {
			if err := h.writeEvent(conn, errorEvent("input", `Invalid payload; expected {"message": "..."}`)); err != nil {
				return
			}
			continue
		}
		text := strings.TrimSpace(*in.Message)

		if err := h.writeEvent(conn, userMessageEvent(text)); err != nil {
			return
		}

		start := time.Now()
		answer, err := h.runTurn(ctx, conn, session, tools, text, log)
		if err != nil {
			log.Warn().Err(err).Msg("turn failed")
			if err := h.writeEvent(conn, errorEvent("llm", err.Error())); err != nil {
				return
			}
			continue
		}

		if err := h.writeEvent(conn, aiMessageEvent(answer, time.Since(start).Milliseconds())); err != nil {
			return
		}
	}
}

// runTurn executes one orchestration run, streaming tool activity to the
// client as it happens.
func (h *Handler) runTurn(ctx context.Context, conn *websocket.Conn, session *mcp.Session, tools []llm.FunctionTool, text string, log zerolog.Logger) (string, error) {
	callTool := func(ctx context.Context, name string, args map[string]any) (*mcp.ToolResult, error) {
		log.Info().Str("tool", name).Interface("args", args).Msg("calling tool")
		return session.CallTool(ctx, name, args)
	}

	obs := llm.Observer{
		OnToolCall: func(name string, args map[string]any) {
			h.writeEvent(conn, toolCallEvent(name, args))
		},
		OnToolResult: func(name string, result json.RawMessage, errMsg string) {
			if errMsg != "" {
				log.Warn().Str("tool", name).Str("error", errMsg).Msg("tool failed")
			}
			h.writeEvent(conn, toolResultEvent(name, result))
		},
	}

	return h.loop.Run(ctx, text, tools, callTool, obs)
}

// writeEvent pushes one typed event. A write failure means the client is
// gone; callers stop the connection on it.
func (h *Handler) writeEvent(conn *websocket.Conn, event any) error {
	return conn.WriteJSON(event)
}
