package mcp

import "github.com/modelcontextprotocol/go-sdk/mcp"

// ServerInstructions contains the MCP server instructions for clients
const ServerInstructions = `docconv - File Conversion Service

This server exposes the routing rules and housekeeping of a conversion
service that turns uploaded files into other formats with LibreOffice
(documents) and FFmpeg (audio, video, images).

File bytes are not exchanged over MCP. Upload files with:
- POST /convert  (multipart: file, target_format)

## Transport

Streamable HTTP only:
- POST /mcp

## Resources

- docconv://formats: JSON listing every recognized document and media format

## Tools

### classify_conversion
Report which engine a conversion would be routed to.
Parameters:
- source: Source file extension or filename (e.g. "docx", "report.docx")
- target: Target format (e.g. "pdf")

Example: {"source": "clip.mov", "target": "mp4"}

Returns "document", "media" or "unsupported".

### list_formats
List the recognized formats per engine.
Parameters:
- engine: Optional filter - "document" or "media"

### sweep_workspaces
Remove leftover workspaces and engine profiles older than a TTL.
Parameters:
- ttl: Time to live (e.g., "1h" or 2 for hours)

Example: {"ttl": "30m"}

### workspace_stats
Report live workspace and profile counts and whether each engine binary is available.
`

// ToolDefinitions contains the MCP tool definitions keyed by name
var ToolDefinitions = map[string]*mcp.Tool{
	"classify_conversion": {
		Name:        "classify_conversion",
		Description: "Report which conversion engine (document, media or unsupported) handles a source/target format pair.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Source extension or filename, e.g. 'docx' or 'report.docx'",
				},
				"target": map[string]interface{}{
					"type":        "string",
					"description": "Target format without a leading dot, e.g. 'pdf'",
				},
			},
			"required": []string{"source", "target"},
		},
	},
	"list_formats": {
		Name:        "list_formats",
		Description: "List the formats recognized by the document and media engines.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"engine": map[string]interface{}{
					"type":        "string",
					"description": "Optional filter: 'document' or 'media'",
					"enum":        []string{"document", "media"},
				},
			},
			"required": []string{},
		},
	},
	"sweep_workspaces": {
		Name:        "sweep_workspaces",
		Description: "Remove workspaces and engine profiles left behind longer than the TTL.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"ttl": map[string]interface{}{
					"type":        "string",
					"description": "Time to live (e.g., '1h', '30m', or hours as number). Uses the configured TTL if not specified.",
				},
			},
			"required": []string{},
		},
	},
	"workspace_stats": {
		Name:        "workspace_stats",
		Description: "Report live workspace and engine profile counts and engine availability.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
			"required":   []string{},
		},
	},
}

// FormatsResourceURI identifies the recognized formats resource
const FormatsResourceURI = "docconv://formats"

// ResourceDefinitions contains the MCP resource definitions
var ResourceDefinitions = []*mcp.Resource{
	{
		URI:         FormatsResourceURI,
		Name:        "Supported Formats",
		Description: "Recognized document and media formats",
		MIMEType:    "application/json",
	},
}
