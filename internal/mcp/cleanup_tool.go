package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kfreiman/docconv/internal/storage"
)

// SweepWorkspacesTool removes stale workspaces and engine profiles
type SweepWorkspacesTool struct {
	managers []*storage.WorkspaceManager
	// minTTL is the age a directory must exceed before it may be swept;
	// anything younger can still belong to a running conversion
	minTTL time.Duration
	logger *slog.Logger
}

// NewSweepWorkspacesTool creates a new sweep tool over the given managers
func NewSweepWorkspacesTool(managers ...*storage.WorkspaceManager) *SweepWorkspacesTool {
	return &SweepWorkspacesTool{
		managers: managers,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger for the tool
func (t *SweepWorkspacesTool) WithLogger(logger *slog.Logger) *SweepWorkspacesTool {
	t.logger = logger
	return t
}

// WithMinTTL refuses sweeps whose TTL is at or below ttl
func (t *SweepWorkspacesTool) WithMinTTL(ttl time.Duration) *SweepWorkspacesTool {
	t.minTTL = ttl
	return t
}

// checkTTL rejects a TTL that would reach directories still in use
func (t *SweepWorkspacesTool) checkTTL(ttl time.Duration) error {
	for _, m := range t.managers {
		effective := ttl
		if effective == 0 {
			effective = m.DefaultTTL()
		}
		if effective <= t.minTTL {
			return &ValidationError{
				Field:  "ttl",
				Value:  effective.String(),
				Reason: fmt.Sprintf("must exceed %s, the longest conversion timeout", t.minTTL),
			}
		}
	}
	return nil
}

// ParseTTL accepts a duration string ("90m") or a whole number of hours ("2").
// An empty string yields 0, meaning each manager's default.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if ttl, err := time.ParseDuration(s); err == nil {
		if ttl < 0 {
			return 0, &ValidationError{Field: "ttl", Value: s, Reason: "must not be negative"}
		}
		return ttl, nil
	}
	hours, err := strconv.Atoi(s)
	if err != nil || hours < 0 {
		return 0, &ValidationError{
			Field:  "ttl",
			Value:  s,
			Reason: "use a duration string (e.g. '1h') or hours as a number",
		}
	}
	return time.Duration(hours) * time.Hour, nil
}

// Call implements the MCP tool interface
func (t *SweepWorkspacesTool) Call(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		TTL string `json:"ttl"`
	}
	if err := decodeArgs(request.Params.Arguments, &args); err != nil {
		return errorResult(err), nil
	}

	ttl, err := ParseTTL(args.TTL)
	if err != nil {
		t.logger.ErrorContext(ctx, "invalid TTL format",
			"error", err,
			"ttl_input", args.TTL,
			"operation", "sweep_workspaces",
		)
		return errorResult(err), nil
	}

	if err := t.checkTTL(ttl); err != nil {
		t.logger.WarnContext(ctx, "refused sweep of directories that may be in use",
			"error", err,
			"ttl_input", args.TTL,
			"min_ttl", t.minTTL,
			"operation", "sweep_workspaces",
		)
		return errorResult(err), nil
	}

	ttlDisplay := "configured default"
	if ttl > 0 {
		ttlDisplay = ttl.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sweep completed!\n\nTTL used: %s\n\n", ttlDisplay)

	var total int64
	for _, m := range t.managers {
		before, _ := m.Stats()

		removed, err := m.Sweep(ctx, ttl)
		if err != nil {
			t.logger.ErrorContext(ctx, "sweep failed",
				"error", err,
				"kind", m.Kind(),
				"operation", "sweep_workspaces",
			)
			return errorResult(err), nil
		}

		after, _ := m.Stats()
		total += removed
		fmt.Fprintf(&b, "- %s directories: removed %d (before: %d, after: %d)\n", m.Kind(), removed, before, after)
	}

	t.logger.InfoContext(ctx, "sweep completed via tool",
		"ttl", ttlDisplay,
		"removed", total,
	)

	fmt.Fprintf(&b, "\nDirectories removed: %d total", total)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: b.String()},
		},
	}, nil
}
