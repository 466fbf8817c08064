package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/roleandroll/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName = "roleandroll-dice"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// Server hosts the dice tools.
type Server struct {
	mcpServer *mcp.Server
}

// NewServer registers the dice tools. A nil seed source draws from
// crypto/rand.
func NewServer(seed domain.SeedFunc) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(mcpServer, domain.AbilityCheckTool(), domain.AbilityCheckHandler(seed))
	mcp.AddTool(mcpServer, domain.RoleAndRollTool(), domain.RoleAndRollHandler(seed))
	return &Server{mcpServer: mcpServer}
}

// Run serves the dice tools on stdio until ctx ends.
func Run(ctx context.Context) error {
	return NewServer(nil).Serve(ctx)
}

// Serve starts the MCP server on stdio and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
