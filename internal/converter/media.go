package converter

import (
	"context"
	"log/slog"
	"time"
)

// MediaConfig holds configuration for the FFmpeg adapter
type MediaConfig struct {
	Binary  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// MediaConverter transcodes audio, video and images with FFmpeg
type MediaConverter struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewMediaConverter creates a new MediaConverter
func NewMediaConverter(config MediaConfig) *MediaConverter {
	if config.Binary == "" {
		config.Binary = "ffmpeg"
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultMediaTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &MediaConverter{
		binary:  config.Binary,
		timeout: config.Timeout,
		logger:  config.Logger,
	}
}

// Name returns the engine name
func (c *MediaConverter) Name() string {
	return "FFmpeg"
}

// IsAvailable checks if the FFmpeg binary can be found
func (c *MediaConverter) IsAvailable() bool {
	return binaryAvailable(c.binary)
}

// Convert transcodes inputPath into outputDir/<base>.<target>, overwriting any existing file
func (c *MediaConverter) Convert(ctx context.Context, inputPath, outputDir, target string) (string, error) {
	outputPath := OutputPath(inputPath, outputDir, target)
	if err := checkOutput(outputPath, outputDir, target); err != nil {
		return "", err
	}

	c.logger.InfoContext(ctx, "media conversion started",
		"input", inputPath,
		"target", target,
		"output", outputPath,
	)

	err := run(ctx, c.logger, invocation{
		tool:    c.Name(),
		binary:  c.binary,
		args:    []string{"-i", inputPath, "-y", outputPath},
		timeout: c.timeout,
		unknown: "Unknown FFmpeg error",
	})
	if err != nil {
		return "", err
	}

	return outputPath, nil
}
