package mcp

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kfreiman/docconv/internal/converter"
	"github.com/kfreiman/docconv/internal/storage"
)

const (
	serverName    = "DocConvServer"
	serverVersion = "1.0.0"
)

// Config holds the dependencies of the MCP server
type Config struct {
	Workspaces *storage.WorkspaceManager // Required
	Profiles   *storage.WorkspaceManager // Optional: swept and counted alongside workspaces
	Engines    []converter.Converter

	// MinSweepTTL is the youngest age sweep_workspaces may remove; set it
	// to the longest engine timeout
	MinSweepTTL time.Duration
	Logger      *slog.Logger
}

// Server exposes conversion routing and workspace housekeeping over MCP
type Server struct {
	mcpServer *mcp.Server
	managers  []*storage.WorkspaceManager
	engines   []converter.Converter
	minTTL    time.Duration
	logger    *slog.Logger
}

// NewServer creates a new MCP server with the given configuration
func NewServer(cfg Config) (*Server, error) {
	if cfg.Workspaces == nil {
		return nil, errors.New("workspace manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	managers := []*storage.WorkspaceManager{cfg.Workspaces}
	if cfg.Profiles != nil {
		managers = append(managers, cfg.Profiles)
	}

	s := &Server{
		managers: managers,
		engines:  cfg.Engines,
		minTTL:   cfg.MinSweepTTL,
		logger:   cfg.Logger,
	}

	impl := &mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}

	s.mcpServer = mcp.NewServer(impl, &mcp.ServerOptions{
		Instructions: ServerInstructions,
	})

	s.registerHandlers()

	return s, nil
}

// registerHandlers registers all resources and tools on the MCP server
func (s *Server) registerHandlers() {
	for _, resource := range ResourceDefinitions {
		s.mcpServer.AddResource(resource, ReadFormatsResource)
	}

	classifyTool := NewClassifyConversionTool().WithLogger(s.logger)
	s.mcpServer.AddTool(ToolDefinitions["classify_conversion"], classifyTool.Call)

	formatsTool := NewListFormatsTool().WithLogger(s.logger)
	s.mcpServer.AddTool(ToolDefinitions["list_formats"], formatsTool.Call)

	sweepTool := NewSweepWorkspacesTool(s.managers...).WithMinTTL(s.minTTL).WithLogger(s.logger)
	s.mcpServer.AddTool(ToolDefinitions["sweep_workspaces"], sweepTool.Call)

	statsTool := NewWorkspaceStatsTool(s.managers, s.engines).WithLogger(s.logger)
	s.mcpServer.AddTool(ToolDefinitions["workspace_stats"], statsTool.Call)
}

// MCPServer returns the underlying SDK server
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Handler returns the streamable HTTP transport for this server
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, &mcp.StreamableHTTPOptions{
		JSONResponse: true,
	})
}
