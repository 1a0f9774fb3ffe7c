// Package main runs the demo MCP server over streamable HTTP so the
// gateway has a local endpoint to talk to during development.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mcpchat/gateway/internal/logging"
	"github.com/mcpchat/gateway/pkg/mcpserver/demo"
)

var port = flag.Int("port", 8080, "Listen port")

func main() {
	flag.Parse()

	httpServer := server.NewStreamableHTTPServer(demo.NewServer())

	addr := fmt.Sprintf(":%d", *port)
	logging.Info().Str("addr", addr).Str("endpoint", "/mcp").Msg("demo mcp server listening")
	if err := httpServer.Start(addr); err != nil {
		logging.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}
