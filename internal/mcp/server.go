// Package mcp exposes wayfinding queries as Model Context Protocol tools.
package mcp

import (
	"context"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matijazezelj/wayfind/internal/graph"
	"github.com/matijazezelj/wayfind/internal/wayfinder"
)

// Server is an MCP tool server backed by the wayfinder service.
type Server struct {
	svc    *wayfinder.Service
	store  graph.Store
	logger *slog.Logger
	mcp    *sdk.Server
}

// NewServer creates a Server and registers its tools.
func NewServer(svc *wayfinder.Service, store graph.Store, logger *slog.Logger, version string) *Server {
	s := &Server{
		svc:    svc,
		store:  store,
		logger: logger,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "wayfind",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves the tools over transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
