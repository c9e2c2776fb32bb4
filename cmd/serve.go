package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog"
	"github.com/spf13/cobra"

	"github.com/kfreiman/docconv/internal/server"
)

// cmdConfig holds all configuration for the command line
type cmdConfig struct {
	Format string `env:"LOG_FORMAT" env-default:"text" env-description:"Log output format (text or json)"`
	Level  string `env:"LOG_LEVEL" env-default:"info" env-description:"Log level (debug, info, warn, error)"`
}

// createLogger creates a slog logger from the configuration
func createLogger(conf cmdConfig) *slog.Logger {
	var level slog.Level
	switch conf.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var zerologLogger zerolog.Logger
	if conf.Format == "json" {
		zerologLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		zerologLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Caller().Logger()
	}

	loggerConfig := slogzerolog.Option{
		Level:  level,
		Logger: &zerologLogger,
	}.NewZerologHandler()

	logger := slog.New(loggerConfig)

	log.SetFlags(0)
	slog.SetDefault(logger)

	return logger
}

// loadLogger reads the logging configuration and builds the logger
func loadLogger() (*slog.Logger, error) {
	var cmdConf cmdConfig
	if err := cleanenv.ReadEnv(&cmdConf); err != nil {
		return nil, fmt.Errorf("load command config: %w", err)
	}
	return createLogger(cmdConf), nil
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the conversion HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger, err := loadLogger()
		if err != nil {
			return err
		}

		cfg, err := server.LoadConfig()
		if err != nil {
			logger.ErrorContext(ctx, "failed to load server config",
				"error", err,
			)
			return err
		}

		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg = cfg.WithPort(port)
		}

		logger.InfoContext(ctx, "conversion server starting",
			"port", cfg.Port,
			"workspace_root", cfg.WorkspaceRoot,
			"profile_root", cfg.ProfileRoot,
			"libreoffice", cfg.LibreOfficeBin,
			"ffmpeg", cfg.FFmpegBin,
			"document_timeout", cfg.DocumentTimeout,
			"media_timeout", cfg.MediaTimeout,
			"max_concurrent_conversions", cfg.MaxConcurrentConversions,
		)

		srv, err := server.NewServer(cfg, logger)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create server",
				"error", err,
			)
			return err
		}

		if err := srv.ListenAndServe(ctx); err != nil {
			logger.ErrorContext(ctx, "server stopped with error",
				"error", err,
			)
			return err
		}

		logger.InfoContext(context.WithoutCancel(ctx), "conversion server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}
