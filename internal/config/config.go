// Package config builds gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for optional settings.
const (
	DefaultMCPBase       = "http://localhost:8080/mcp"
	DefaultMCPProto      = "2025-06-18"
	DefaultModel         = "gpt-4o"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultHTTPTimeout   = 45 * time.Second
	DefaultVerifyApp     = "chat-gateway"
	DefaultMaxToolTurns  = 16
)

// Config holds every runtime setting of the gateway. It is built once at
// startup and passed into constructors; nothing reads the environment after
// Load returns.
type Config struct {
	// MCPBase is the MCP endpoint URL.
	MCPBase string
	// MCPProto is the negotiated MCP protocol version.
	MCPProto string

	// Model is the completion-service model name.
	Model string
	// OpenAIAPIKey authenticates against the completion service.
	OpenAIAPIKey string
	// OpenAIBaseURL is the completion-service base URL.
	OpenAIBaseURL string

	// HTTPTimeout bounds every outbound HTTP call (MCP, verification, completion).
	HTTPTimeout time.Duration

	// VerifyURL is the token verification endpoint. Mandatory.
	VerifyURL string
	// VerifyApp is the application label sent in the verification body.
	VerifyApp string

	// MaxToolTurns caps orchestration loop iterations per chat turn.
	MaxToolTurns int

	// LogLevel and LogPretty configure logging.
	LogLevel  string
	LogPretty bool
}

// Load reads configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		MCPBase:       getenv("MCP_BASE", DefaultMCPBase),
		MCPProto:      getenv("MCP_PROTO", DefaultMCPProto),
		Model:         getenv("OPENAI_MODEL", DefaultModel),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: strings.TrimRight(getenv("OPENAI_BASE_URL", DefaultOpenAIBaseURL), "/"),
		HTTPTimeout:   DefaultHTTPTimeout,
		VerifyURL:     os.Getenv("VERIFY_URL"),
		VerifyApp:     getenv("VERIFY_APP", DefaultVerifyApp),
		MaxToolTurns:  DefaultMaxToolTurns,
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogPretty:     boolenv("LOG_PRETTY"),
	}

	if raw := os.Getenv("HTTP_TIMEOUT"); raw != "" {
		d, err := parseTimeout(raw)
		if err != nil {
			return nil, fmt.Errorf("HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	if raw := os.Getenv("MAX_TOOL_TURNS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_TOOL_TURNS: expected positive integer, got %q", raw)
		}
		cfg.MaxToolTurns = n
	}

	cfg.MCPBase = strings.TrimRight(cfg.MCPBase, "/")
	return cfg, nil
}

// parseTimeout accepts either a Go duration ("45s", "2m") or a bare number
// of seconds ("45"), matching how the deployment scripts set HTTP_TIMEOUT.
func parseTimeout(raw string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("expected positive seconds, got %q", raw)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("expected duration or seconds, got %q", raw)
	}
	return d, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolenv(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
