// Package server exposes the conversion service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"github.com/kfreiman/docconv/internal/convert"
	"github.com/kfreiman/docconv/internal/converter"
	"github.com/kfreiman/docconv/internal/mcp"
	"github.com/kfreiman/docconv/internal/metrics"
	"github.com/kfreiman/docconv/internal/storage"
)

const (
	serviceName = "docconv"
	version     = "1.0.0"

	// multipartMemory is how much of an upload is buffered in memory before
	// spilling to a temporary file
	multipartMemory = 32 << 20
)

// Server encapsulates the HTTP server with all its dependencies
type Server struct {
	config       Config
	logger       *slog.Logger
	workspaces   *storage.WorkspaceManager
	profiles     *storage.WorkspaceManager
	document     converter.Converter
	media        converter.Converter
	orchestrator *convert.Orchestrator
	metrics      *metrics.Metrics
	registry     *prometheus.Registry
	admission    *semaphore.Weighted
	mcpServer    *mcp.Server
	router       chi.Router
}

// NewServer creates the workspace and profile roots and wires every component
func NewServer(cfg Config, logger *slog.Logger) (*Server, error) {
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	workspaces, err := storage.NewWorkspaceManager(storage.WorkspaceConfig{
		Root:       cfg.WorkspaceRoot,
		Kind:       storage.KindWorkspace,
		DefaultTTL: cfg.WorkspaceTTL,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to initialize workspace manager",
			"error", err,
		)
		return nil, fmt.Errorf("workspace init: %w", err)
	}

	profiles, err := storage.NewWorkspaceManager(storage.WorkspaceConfig{
		Root:       cfg.ProfileRoot,
		Kind:       storage.KindProfile,
		DefaultTTL: cfg.WorkspaceTTL,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to initialize profile manager",
			"error", err,
		)
		return nil, fmt.Errorf("profile init: %w", err)
	}

	document := converter.NewDocumentConverter(converter.DocumentConfig{
		Binary:   cfg.LibreOfficeBin,
		Timeout:  cfg.DocumentTimeout,
		Profiles: profiles,
		Logger:   logger,
	})
	media := converter.NewMediaConverter(converter.MediaConfig{
		Binary:  cfg.FFmpegBin,
		Timeout: cfg.MediaTimeout,
		Logger:  logger,
	})

	orchestrator, err := convert.NewOrchestrator(convert.Config{
		Workspaces: workspaces,
		Document:   document,
		Media:      media,
		Metrics:    m,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator init: %w", err)
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Workspaces:  workspaces,
		Profiles:    profiles,
		Engines:     []converter.Converter{document, media},
		MinSweepTTL: cfg.longestTimeout(),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("mcp init: %w", err)
	}

	s := &Server{
		config:       cfg,
		logger:       logger,
		workspaces:   workspaces,
		profiles:     profiles,
		document:     document,
		media:        media,
		orchestrator: orchestrator,
		metrics:      m,
		registry:     registry,
		mcpServer:    mcpServer,
	}
	if cfg.MaxConcurrentConversions > 0 {
		s.admission = semaphore.NewWeighted(cfg.MaxConcurrentConversions)
	}

	s.router = s.routes()

	return s, nil
}

// routes builds the HTTP router
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition", "X-Page-Count"},
		MaxAge:         300,
	}))

	r.Get("/", s.indexHandler)
	r.Post("/convert", s.ConvertHandler)
	r.Get("/formats", s.FormatsHandler)
	r.Get("/health/live", s.LivenessHandler)
	r.Get("/health/ready", s.ReadinessHandler)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Handle("/mcp", s.mcpServer.Handler())

	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// StartSweepers periodically removes leftovers of crashed requests until ctx is done
func (s *Server) StartSweepers(ctx context.Context) {
	if s.config.SweepInterval <= 0 {
		return
	}
	s.workspaces.StartSweeper(ctx, s.config.SweepInterval, s.config.WorkspaceTTL)
	s.profiles.StartSweeper(ctx, s.config.SweepInterval, s.config.WorkspaceTTL)
}

// ListenAndServe serves HTTP until ctx is cancelled, then drains in-flight
// conversions for at most the longest engine timeout
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.StartSweepers(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.InfoContext(ctx, "starting conversion server",
		"port", s.config.Port,
		"endpoints", []string{"/convert", "/formats", "/mcp", "/metrics", "/health/live", "/health/ready", "/"},
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	grace := s.config.longestTimeout() + 10*time.Second
	s.logger.InfoContext(ctx, "shutting down conversion server", "grace", grace)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// indexHandler returns the server information page
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "docconv File Conversion Server\n\n")
	fmt.Fprintf(w, "Endpoints:\n")
	fmt.Fprintf(w, "  POST /convert      - Convert an uploaded file (multipart: file, target_format)\n")
	fmt.Fprintf(w, "  GET  /formats      - Recognized document and media formats\n")
	fmt.Fprintf(w, "  POST /mcp          - MCP streamable HTTP transport\n")
	fmt.Fprintf(w, "  GET  /metrics      - Prometheus metrics\n")
	fmt.Fprintf(w, "  GET  /health/live  - Liveness probe\n")
	fmt.Fprintf(w, "  GET  /health/ready - Readiness probe\n")
	fmt.Fprintf(w, "  GET  /             - This help message\n\n")
	fmt.Fprintf(w, "Server: %s %s\n", serviceName, version)
}
