package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mcpchat/gateway/internal/auth"
	"github.com/mcpchat/gateway/internal/config"
	"github.com/mcpchat/gateway/internal/llm"
	"github.com/mcpchat/gateway/internal/mcp"
)

// Server is the HTTP front of the gateway: /ws for chat, /healthz for
// probes.
type Server struct {
	cfg     *config.Config
	router  *chi.Mux
	httpSrv *http.Server
	handler *Handler
}

// New wires the full gateway from configuration: verifier, completion
// client, orchestration loop, and the per-connection session factory.
func New(cfg *config.Config) *Server {
	verifier := auth.NewVerifier(cfg.VerifyURL, cfg.VerifyApp, cfg.HTTPTimeout)
	responder := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.HTTPTimeout)
	loop := llm.NewLoop(responder, cfg.Model, cfg.MaxToolTurns)
	newSession := func() *mcp.Session {
		return mcp.NewSession(cfg.MCPBase, cfg.MCPProto, cfg.HTTPTimeout)
	}

	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		handler: NewHandler(verifier, newSession, loop),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.healthz)
	s.router.Get("/ws", s.handler.ServeWS)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Start listens on the given port. Connection-level timeouts stay at zero
// because WebSocket connections are long-lived.
func (s *Server) Start(port int) error {
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router exposes the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
