package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kfreiman/docconv/internal/classify"
)

// Formats is the JSON shape of the recognized format lists
type Formats struct {
	Document []string `json:"document"`
	Media    []string `json:"media"`
}

// SupportedFormats returns both recognized format lists, sorted
func SupportedFormats() Formats {
	return Formats{
		Document: classify.DocumentFormats(),
		Media:    classify.MediaFormats(),
	}
}

// ListFormatsTool lists recognized formats per engine
type ListFormatsTool struct {
	logger *slog.Logger
}

// NewListFormatsTool creates a new list formats tool
func NewListFormatsTool() *ListFormatsTool {
	return &ListFormatsTool{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the tool
func (t *ListFormatsTool) WithLogger(logger *slog.Logger) *ListFormatsTool {
	t.logger = logger
	return t
}

// Call implements the MCP tool interface
func (t *ListFormatsTool) Call(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Engine string `json:"engine"`
	}
	if err := decodeArgs(request.Params.Arguments, &args); err != nil {
		return errorResult(err), nil
	}

	formats := SupportedFormats()
	var b strings.Builder

	switch args.Engine {
	case "document":
		writeFormatList(&b, "Document formats (LibreOffice)", formats.Document)
	case "media":
		writeFormatList(&b, "Media formats (FFmpeg)", formats.Media)
	case "":
		writeFormatList(&b, "Document formats (LibreOffice)", formats.Document)
		b.WriteString("\n")
		writeFormatList(&b, "Media formats (FFmpeg)", formats.Media)
	default:
		return errorResult(&ValidationError{
			Field:  "engine",
			Value:  args.Engine,
			Reason: "use 'document', 'media', or leave empty for both",
		}), nil
	}

	t.logger.DebugContext(ctx, "listed formats via tool",
		"engine", args.Engine,
		"operation", "list_formats",
	)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: b.String()},
		},
	}, nil
}

func writeFormatList(b *strings.Builder, title string, formats []string) {
	fmt.Fprintf(b, "%s (%d):\n", title, len(formats))
	b.WriteString(strings.Join(formats, ", "))
	b.WriteString("\n")
}

// ReadFormatsResource serves the recognized formats as JSON
func ReadFormatsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	if uri != FormatsResourceURI {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	data, err := json.Marshal(SupportedFormats())
	if err != nil {
		return nil, fmt.Errorf("encode formats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
