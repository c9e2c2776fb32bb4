package converter

import (
	"context"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Default wall-clock budgets for the external engines
const (
	DefaultDocumentTimeout = 240 * time.Second
	DefaultMediaTimeout    = 300 * time.Second
)

// Converter defines the interface for an external conversion engine
type Converter interface {
	// Convert converts inputPath to target, writing into outputDir, and
	// returns the path the engine is expected to have produced
	Convert(ctx context.Context, inputPath, outputDir, target string) (string, error)
	// Name returns the engine's display name
	Name() string
	// IsAvailable checks if the engine binary can be found
	IsAvailable() bool
}

var targetPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// ValidTarget reports whether target is a bare lowercase extension that is
// safe to append to a file name
func ValidTarget(target string) bool {
	return targetPattern.MatchString(target)
}

// checkOutput rejects targets that could place the output outside outputDir
func checkOutput(outputPath, outputDir, target string) error {
	if !ValidTarget(target) || filepath.Dir(outputPath) != filepath.Clean(outputDir) {
		return &InvalidTargetError{Target: target}
	}
	return nil
}

// OutputPath returns outputDir/<input base name>.<target>, the naming both engines follow
func OutputPath(inputPath, outputDir, target string) string {
	name := filepath.Base(inputPath)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(outputDir, base+"."+target)
}

// binaryAvailable reports whether binary resolves to an executable
func binaryAvailable(binary string) bool {
	if binary == "" {
		return false
	}
	_, err := exec.LookPath(binary)
	return err == nil
}
