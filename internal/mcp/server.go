package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/context-store/internal/contextengine"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the context store as tools.
type Server struct {
	svc *contextengine.Service
	mcp *server.MCPServer
}

// NewServer creates a new MCP server backed by svc.
func NewServer(svc *contextengine.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"ctxstore",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(storeContextTool, s.handleStoreContext)
	s.mcp.AddTool(getContextTool, s.handleGetContext)
	s.mcp.AddTool(queryContextTool, s.handleQueryContext)
	s.mcp.AddTool(updateContextTool, s.handleUpdateContext)
	s.mcp.AddTool(deleteContextTool, s.handleDeleteContext)
	s.mcp.AddTool(findSimilarTool, s.handleFindSimilar)
	s.mcp.AddTool(countContextsTool, s.handleCountContexts)
	s.mcp.AddTool(contextStatsTool, s.handleContextStats)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
