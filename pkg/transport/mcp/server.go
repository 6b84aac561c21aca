// Package mcp exposes the orchestration engine and the conversation
// store as tools over the Model Context Protocol, on either the stdio
// or the streamable HTTP transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ensembled/ensemble/pkg/engine"
	"github.com/ensembled/ensemble/pkg/provider"
	"github.com/ensembled/ensemble/pkg/storage"
)

// Version is reported in the MCP handshake.
const Version = "v0.3.0"

// Server wires the engine, the context store, and the completion
// provider into MCP tools.
type Server struct {
	mcp      *mcp.Server
	engine   *engine.Engine
	store    storage.Store
	provider provider.Provider
}

// NewServer creates an MCP server with all tools registered. The store
// can be nil; the context tools then report that no store is configured.
func NewServer(eng *engine.Engine, store storage.Store, p provider.Provider) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("mcp: engine is required")
	}
	if p == nil {
		return nil, fmt.Errorf("mcp: provider is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "ensemble",
			Version: Version,
		},
		nil,
	)

	s := &Server{
		mcp:      mcpServer,
		engine:   eng,
		store:    store,
		provider: p,
	}
	s.registerTools()

	return s, nil
}

// Run serves MCP on the stdio transport until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// HTTPHandler returns the streamable HTTP handler for mounting under a
// mux, typically behind auth and metrics middleware.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}
