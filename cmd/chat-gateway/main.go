// Package main provides the entry point for the chat gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mcpchat/gateway/internal/config"
	"github.com/mcpchat/gateway/internal/gateway"
	"github.com/mcpchat/gateway/internal/logging"
)

var (
	port    = flag.Int("port", 0, "Listen port (overrides PORT)")
	version = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("chat-gateway %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Optional .env; absence is not an error.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})

	listenPort := *port
	if listenPort == 0 {
		listenPort = 8080
		if raw := os.Getenv("PORT"); raw != "" {
			if p, err := strconv.Atoi(raw); err == nil {
				listenPort = p
			}
		}
	}

	srv := gateway.New(cfg)

	go func() {
		logging.Info().
			Int("port", listenPort).
			Str("mcp_base", cfg.MCPBase).
			Str("model", cfg.Model).
			Msg("gateway listening")
		if err := srv.Start(listenPort); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown error")
	}

	logging.Info().Msg("stopped")
}
