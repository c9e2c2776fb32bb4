package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait keeps draining pipes after the process is killed
const waitDelay = 5 * time.Second

// invocation describes one supervised run of an external engine
type invocation struct {
	tool    string
	binary  string
	args    []string
	timeout time.Duration
	// unknown is the detail used when the engine fails without any output
	unknown string
}

// run executes inv, killing the whole process group if the timeout fires
func run(ctx context.Context, logger *slog.Logger, inv invocation) error {
	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, inv.binary, inv.args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	supervise(cmd)

	logger.InfoContext(ctx, "executing engine",
		"tool", inv.tool,
		"command", inv.binary+" "+strings.Join(inv.args, " "),
		"timeout", inv.timeout,
	)

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err == nil {
		logger.InfoContext(ctx, "engine succeeded",
			"tool", inv.tool,
			"elapsed", elapsed,
		)
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.ErrorContext(ctx, "engine timed out",
			"tool", inv.tool,
			"elapsed", elapsed,
			"timeout", inv.timeout,
		)
		return &ToolTimeoutError{Tool: inv.tool, Timeout: inv.timeout, Err: ctx.Err()}
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s cancelled: %w", inv.tool, ctx.Err())
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return &BinaryNotFoundError{Tool: inv.tool, Binary: inv.binary, Err: err}
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("start %s: %w", inv.tool, err)
	}

	combined := stderr.String() + stdout.String()
	detail := lastNonEmptyLine(combined)
	if detail == "" {
		detail = inv.unknown
	}

	logger.ErrorContext(ctx, "engine failed",
		"tool", inv.tool,
		"exit_code", exitErr.ExitCode(),
		"elapsed", elapsed,
		"output", combined,
	)

	return &ToolExecutionError{
		Tool:     inv.tool,
		ExitCode: exitErr.ExitCode(),
		Detail:   detail,
		Output:   combined,
		Err:      err,
	}
}

// lastNonEmptyLine returns the last line of s that is not blank
func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
