package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kfreiman/docconv/internal/converter"
	"github.com/kfreiman/docconv/internal/storage"
)

// WorkspaceStatsTool reports live scoped directories and engine availability
type WorkspaceStatsTool struct {
	managers []*storage.WorkspaceManager
	engines  []converter.Converter
	logger   *slog.Logger
}

// NewWorkspaceStatsTool creates a new workspace stats tool
func NewWorkspaceStatsTool(managers []*storage.WorkspaceManager, engines []converter.Converter) *WorkspaceStatsTool {
	return &WorkspaceStatsTool{
		managers: managers,
		engines:  engines,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger for the tool
func (t *WorkspaceStatsTool) WithLogger(logger *slog.Logger) *WorkspaceStatsTool {
	t.logger = logger
	return t
}

// Call implements the MCP tool interface
func (t *WorkspaceStatsTool) Call(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	b.WriteString("Workspace Statistics\n\n")

	for _, m := range t.managers {
		count, err := m.Stats()
		if err != nil {
			t.logger.ErrorContext(ctx, "failed to get workspace stats",
				"error", err,
				"kind", m.Kind(),
				"operation", "workspace_stats",
			)
			return errorResult(err), nil
		}
		fmt.Fprintf(&b, "- %s directories: %d (root: %s)\n", m.Kind(), count, m.Root())
	}

	b.WriteString("\nEngines:\n")
	for _, e := range t.engines {
		status := "available"
		if !e.IsAvailable() {
			status = "not found"
		}
		fmt.Fprintf(&b, "- %s: %s\n", e.Name(), status)
	}

	t.logger.DebugContext(ctx, "workspace stats retrieved via tool",
		"operation", "workspace_stats",
	)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: b.String()},
		},
	}, nil
}
