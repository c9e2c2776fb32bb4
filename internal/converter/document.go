package converter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/kfreiman/docconv/internal/storage"
)

// DocumentConfig holds configuration for the LibreOffice adapter
type DocumentConfig struct {
	Binary   string
	Timeout  time.Duration
	Profiles *storage.WorkspaceManager // Required: allocates per-invocation engine profiles
	Logger   *slog.Logger
}

// DocumentConverter converts office, text and PDF files with headless LibreOffice.
// Every invocation runs against its own user profile because concurrent
// soffice instances sharing a profile corrupt each other's state.
type DocumentConverter struct {
	binary   string
	timeout  time.Duration
	profiles *storage.WorkspaceManager
	logger   *slog.Logger
}

// NewDocumentConverter creates a new DocumentConverter
func NewDocumentConverter(config DocumentConfig) *DocumentConverter {
	if config.Binary == "" {
		config.Binary = "libreoffice"
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultDocumentTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &DocumentConverter{
		binary:   config.Binary,
		timeout:  config.Timeout,
		profiles: config.Profiles,
		logger:   config.Logger,
	}
}

// Name returns the engine name
func (c *DocumentConverter) Name() string {
	return "LibreOffice"
}

// IsAvailable checks if the LibreOffice binary can be found
func (c *DocumentConverter) IsAvailable() bool {
	return binaryAvailable(c.binary)
}

// Convert runs LibreOffice against a fresh profile and returns the expected
// output path. The profile is removed before Convert returns on every path.
func (c *DocumentConverter) Convert(ctx context.Context, inputPath, outputDir, target string) (string, error) {
	outputPath := OutputPath(inputPath, outputDir, target)
	if err := checkOutput(outputPath, outputDir, target); err != nil {
		return "", err
	}

	profile, err := c.profiles.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("create engine profile: %w", err)
	}
	defer c.profiles.Destroy(context.WithoutCancel(ctx), profile)

	profileURI, err := fileURI(profile.Dir())
	if err != nil {
		return "", fmt.Errorf("resolve engine profile: %w", err)
	}

	c.logger.InfoContext(ctx, "document conversion started",
		"input", inputPath,
		"target", target,
		"profile", profile.Dir(),
	)

	err = run(ctx, c.logger, invocation{
		tool:   c.Name(),
		binary: c.binary,
		args: []string{
			"--headless",
			"-env:UserInstallation=" + profileURI,
			"--convert-to", target,
			inputPath,
			"--outdir", outputDir,
		},
		timeout: c.timeout,
		unknown: "Unknown LibreOffice error",
	})
	if err != nil {
		return "", err
	}

	return outputPath, nil
}

// fileURI returns the file:// URL LibreOffice expects for UserInstallation
func fileURI(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}
