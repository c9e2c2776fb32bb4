package server

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the configuration for the conversion server
type Config struct {
	Port                     int           `env:"PORT" env-default:"8080" env-description:"HTTP server port"`
	WorkspaceRoot            string        `env:"WORKSPACE_ROOT" env-default:"/tmp/uploads" env-description:"Directory per-request workspaces are created under"`
	ProfileRoot              string        `env:"PROFILE_ROOT" env-default:"/tmp/lo-user" env-description:"Directory per-invocation LibreOffice profiles are created under"`
	LibreOfficeBin           string        `env:"LIBREOFFICE_BIN" env-default:"libreoffice" env-description:"LibreOffice executable"`
	FFmpegBin                string        `env:"FFMPEG_BIN" env-default:"ffmpeg" env-description:"FFmpeg executable"`
	DocumentTimeout          time.Duration `env:"DOCUMENT_TIMEOUT" env-default:"240s" env-description:"Hard timeout for one LibreOffice conversion"`
	MediaTimeout             time.Duration `env:"MEDIA_TIMEOUT" env-default:"300s" env-description:"Hard timeout for one FFmpeg conversion"`
	MaxUploadMB              int64         `env:"MAX_UPLOAD_MB" env-default:"512" env-description:"Largest accepted request body in megabytes"`
	MaxConcurrentConversions int64         `env:"MAX_CONCURRENT_CONVERSIONS" env-default:"0" env-description:"Conversions allowed to run at once (0 = unlimited)"`
	WorkspaceTTL             time.Duration `env:"WORKSPACE_TTL" env-default:"1h" env-description:"Age after which leftover workspaces are swept"`
	SweepInterval            time.Duration `env:"SWEEP_INTERVAL" env-default:"10m" env-description:"How often leftover workspaces are swept (0 disables)"`
	CancelOnDisconnect       bool          `env:"CANCEL_ON_DISCONNECT" env-default:"false" env-description:"Kill the engine when the client disconnects"`
	AllowedOrigins           []string      `env:"ALLOWED_ORIGINS" env-default:"*" env-description:"Comma separated CORS origins"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values cleanenv cannot
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.WorkspaceRoot == "" || c.ProfileRoot == "" {
		return fmt.Errorf("workspace and profile roots are required")
	}
	if c.WorkspaceRoot == c.ProfileRoot {
		return fmt.Errorf("workspace and profile roots must differ")
	}
	if c.DocumentTimeout <= 0 || c.MediaTimeout <= 0 {
		return fmt.Errorf("conversion timeouts must be positive")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid upload limit %d MB", c.MaxUploadMB)
	}
	if c.MaxConcurrentConversions < 0 {
		return fmt.Errorf("invalid concurrency limit %d", c.MaxConcurrentConversions)
	}
	// the sweeper must never reach a workspace that is still converting
	if c.SweepInterval > 0 && c.WorkspaceTTL <= c.longestTimeout() {
		return fmt.Errorf("workspace TTL %s must exceed the longest conversion timeout %s", c.WorkspaceTTL, c.longestTimeout())
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func (c Config) longestTimeout() time.Duration {
	if c.DocumentTimeout > c.MediaTimeout {
		return c.DocumentTimeout
	}
	return c.MediaTimeout
}

// WithPort sets the server port
func (c Config) WithPort(port int) Config {
	c.Port = port
	return c
}

// WithWorkspaceRoot sets the workspace root
func (c Config) WithWorkspaceRoot(root string) Config {
	c.WorkspaceRoot = root
	return c
}

// WithProfileRoot sets the LibreOffice profile root
func (c Config) WithProfileRoot(root string) Config {
	c.ProfileRoot = root
	return c
}

// WithBinaries sets the engine executables
func (c Config) WithBinaries(libreoffice, ffmpeg string) Config {
	c.LibreOfficeBin = libreoffice
	c.FFmpegBin = ffmpeg
	return c
}

// WithTimeouts sets the per-engine conversion timeouts
func (c Config) WithTimeouts(document, media time.Duration) Config {
	c.DocumentTimeout = document
	c.MediaTimeout = media
	return c
}

// WithMaxUploadMB sets the upload limit
func (c Config) WithMaxUploadMB(mb int64) Config {
	c.MaxUploadMB = mb
	return c
}

// WithMaxConcurrentConversions sets the admission limit
func (c Config) WithMaxConcurrentConversions(n int64) Config {
	c.MaxConcurrentConversions = n
	return c
}

// WithSweep sets the sweep interval and workspace TTL
func (c Config) WithSweep(interval, ttl time.Duration) Config {
	c.SweepInterval = interval
	c.WorkspaceTTL = ttl
	return c
}

// WithCancelOnDisconnect enables or disables killing engines on client disconnect
func (c Config) WithCancelOnDisconnect(cancel bool) Config {
	c.CancelOnDisconnect = cancel
	return c
}
