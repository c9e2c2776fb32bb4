package converter

import (
	"fmt"
	"time"
)

// ToolTimeoutError is returned when an external engine exceeds its wall-clock budget.
// The process group has been killed by the time the caller sees it.
type ToolTimeoutError struct {
	Tool    string
	Timeout time.Duration
	Err     error
}

func (e *ToolTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Tool, e.Timeout)
}

func (e *ToolTimeoutError) Unwrap() error {
	return e.Err
}

// ToolExecutionError is returned when an external engine exits non-zero
type ToolExecutionError struct {
	Tool     string
	ExitCode int
	// Detail is the last non-empty line of stderr followed by stdout
	Detail string
	// Output is the full combined output, for logs
	Output string
	Err    error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("%s conversion failed. Detail: %s", e.Tool, e.Detail)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// InvalidTargetError is returned before any engine runs when the target
// format is not a plain extension
type InvalidTargetError struct {
	Target string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target format %q", e.Target)
}

// BinaryNotFoundError represents a missing engine binary
type BinaryNotFoundError struct {
	Tool   string
	Binary string
	Err    error
}

func (e *BinaryNotFoundError) Error() string {
	return fmt.Sprintf("%s binary %q not found", e.Tool, e.Binary)
}

func (e *BinaryNotFoundError) Unwrap() error {
	return e.Err
}

// InspectionError represents a failure to read metadata from a converted file
type InspectionError struct {
	Path string
	Err  error
}

func (e *InspectionError) Error() string {
	return fmt.Sprintf("inspect %s: %v", e.Path, e.Err)
}

func (e *InspectionError) Unwrap() error {
	return e.Err
}
