package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kfreiman/docconv/internal/classify"
	"github.com/kfreiman/docconv/internal/convert"
)

// ClassifyConversionTool reports the engine a format pair is routed to
type ClassifyConversionTool struct {
	logger *slog.Logger
}

// NewClassifyConversionTool creates a new classify conversion tool
func NewClassifyConversionTool() *ClassifyConversionTool {
	return &ClassifyConversionTool{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the tool
func (t *ClassifyConversionTool) WithLogger(logger *slog.Logger) *ClassifyConversionTool {
	t.logger = logger
	return t
}

// Call implements the MCP tool interface
func (t *ClassifyConversionTool) Call(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Source string `json:"source"`
		Target string `json:"target"`
	}
	if err := decodeArgs(request.Params.Arguments, &args); err != nil {
		return errorResult(err), nil
	}

	if strings.TrimSpace(args.Source) == "" {
		return errorResult(&ValidationError{Field: "source", Reason: "required"}), nil
	}
	if strings.TrimSpace(args.Target) == "" {
		return errorResult(&ValidationError{Field: "target", Reason: "required"}), nil
	}

	// accept either a bare extension or a filename
	source := classify.Normalize(args.Source)
	if ext := convert.SourceExtension(args.Source); ext != "" {
		source = ext
	}
	target := classify.Normalize(args.Target)
	engine := classify.Classify(source, target)

	t.logger.DebugContext(ctx, "classified conversion via tool",
		"source", source,
		"target", target,
		"engine", engine,
		"operation", "classify_conversion",
	)

	text := fmt.Sprintf("%s\n\n.%s to .%s is handled by the %s engine.", engine, source, target, engine)
	if engine == classify.EngineUnsupported {
		text = fmt.Sprintf("%s\n\nUnsupported conversion pair: .%s to .%s.", engine, source, target)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil
}
