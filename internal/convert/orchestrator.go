// Package convert drives a single conversion request from upload to delivery.
//
// Every request gets its own workspace directory. The upload is written into
// it, the format pair is routed to an engine, the engine writes its output
// next to the input and the caller streams the result out through a deliver
// callback. The workspace is destroyed when Run returns, whatever the outcome.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kfreiman/docconv/internal/classify"
	"github.com/kfreiman/docconv/internal/converter"
	"github.com/kfreiman/docconv/internal/metrics"
	"github.com/kfreiman/docconv/internal/storage"
)

// State is a step of the request lifecycle, used in logs
type State string

const (
	StateReceived         State = "received"
	StateWorkspaceCreated State = "workspace_created"
	StateInputSaved       State = "input_saved"
	StateClassified       State = "classified"
	StateConverting       State = "converting"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

// Request is one uploaded file and the format it should be converted to
type Request struct {
	Filename     string
	TargetFormat string
	Content      io.Reader
}

// Result describes a converted file that still lives in its workspace.
// It is only valid inside the deliver callback.
type Result struct {
	Path         string
	Name         string
	Engine       classify.Engine
	SourceExt    string
	TargetFormat string
	Size         int64
	Pages        int
	WorkspaceID  string

	ws *storage.Workspace
}

// Open opens the converted file for reading
func (r *Result) Open() (io.ReadCloser, error) {
	return r.ws.Open(r.Path)
}

// Config holds configuration for the orchestrator
type Config struct {
	Workspaces *storage.WorkspaceManager // Required
	Document   converter.Converter       // Required
	Media      converter.Converter       // Required
	Metrics    *metrics.Metrics          // Optional
	Logger     *slog.Logger              // Optional: defaults to slog.Default()
}

// Orchestrator runs conversion requests. It holds no per-request state and
// is safe for concurrent use.
type Orchestrator struct {
	workspaces *storage.WorkspaceManager
	document   converter.Converter
	media      converter.Converter
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(config Config) (*Orchestrator, error) {
	if config.Workspaces == nil {
		return nil, errors.New("workspace manager is required")
	}
	if config.Document == nil || config.Media == nil {
		return nil, errors.New("document and media converters are required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Orchestrator{
		workspaces: config.Workspaces,
		document:   config.Document,
		media:      config.Media,
		metrics:    config.Metrics,
		logger:     config.Logger,
	}, nil
}

// Run converts req and hands the result to deliver. The workspace is
// destroyed after deliver returns, and also when any earlier step fails.
func (o *Orchestrator) Run(ctx context.Context, req Request, deliver func(*Result) error) error {
	state := StateReceived
	target := classify.Normalize(req.TargetFormat)

	if req.Content == nil || target == "" {
		return &ClientInputError{Field: "target_format", Reason: "Missing file or target format"}
	}
	if req.Filename == "" {
		return &ClientInputError{Field: "file", Reason: "No selected file"}
	}
	if !converter.ValidTarget(target) {
		return &ClientInputError{
			Field:  "target_format",
			Reason: "Invalid target format: use a plain extension such as pdf or mp4",
		}
	}

	ws, err := o.workspaces.Create(ctx)
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	defer o.workspaces.Destroy(context.WithoutCancel(ctx), ws)
	state = StateWorkspaceCreated

	logger := o.logger.With("workspace", ws.ID)
	defer func() {
		logger.DebugContext(ctx, "request finished", "state", state)
	}()

	fail := func(err error) error {
		logger.ErrorContext(ctx, "conversion request failed",
			"error", err,
			"state", state,
			"filename", req.Filename,
			"target", target,
		)
		state = StateFailed
		return err
	}

	inputPath, size, err := ws.Save(SanitizeFilename(req.Filename), req.Content)
	if err != nil {
		return fail(err)
	}
	state = StateInputSaved

	logger.InfoContext(ctx, "received file",
		"path", inputPath,
		"size", size,
		"target", target,
	)

	sourceExt := SourceExtension(req.Filename)
	if sourceExt == "" {
		sourceExt = o.sniffExtension(ctx, ws, inputPath)
	}

	engine := classify.Classify(sourceExt, target)
	if engine == classify.EngineUnsupported {
		o.metrics.ObserveConversion(engine.String(), metrics.OutcomeRejected, 0)
		return fail(&ClientInputError{
			Field:  "target_format",
			Reason: fmt.Sprintf("Unsupported conversion pair: .%s to .%s.", sourceExt, target),
		})
	}
	state = StateClassified

	conv := o.converterFor(engine)
	state = StateConverting

	start := time.Now()
	outputPath, err := conv.Convert(ctx, inputPath, ws.Dir(), target)
	elapsed := time.Since(start)
	if err != nil {
		var timeoutErr *converter.ToolTimeoutError
		outcome := metrics.OutcomeFailed
		if errors.As(err, &timeoutErr) {
			outcome = metrics.OutcomeTimeout
		}
		o.metrics.ObserveConversion(engine.String(), outcome, elapsed)
		return fail(err)
	}

	if filepath.Dir(outputPath) != filepath.Clean(ws.Dir()) {
		o.metrics.ObserveConversion(engine.String(), metrics.OutcomeOutputMissing, elapsed)
		return fail(&OutputMissingError{Path: outputPath})
	}

	info, err := ws.Stat(outputPath)
	if err != nil || info.IsDir() {
		o.metrics.ObserveConversion(engine.String(), metrics.OutcomeOutputMissing, elapsed)
		return fail(&OutputMissingError{Path: outputPath})
	}

	o.metrics.ObserveConversion(engine.String(), metrics.OutcomeSuccess, elapsed)

	result := &Result{
		Path:         outputPath,
		Name:         ResponseFilename(req.Filename, target),
		Engine:       engine,
		SourceExt:    sourceExt,
		TargetFormat: target,
		Size:         info.Size(),
		WorkspaceID:  ws.ID,
		ws:           ws,
	}

	if target == "pdf" {
		pages, err := converter.CountPDFPages(outputPath)
		if err != nil {
			logger.DebugContext(ctx, "page count unavailable", "error", err, "path", outputPath)
		} else {
			result.Pages = pages
		}
	}

	logger.InfoContext(ctx, "conversion successful",
		"engine", conv.Name(),
		"output", outputPath,
		"size", result.Size,
		"elapsed", elapsed,
	)

	state = StateCompleted
	return deliver(result)
}

func (o *Orchestrator) converterFor(engine classify.Engine) converter.Converter {
	if engine == classify.EngineDocument {
		return o.document
	}
	return o.media
}

// sniffExtension detects the type of an upload that arrived without an
// extension. It returns "" when the content is not recognized.
func (o *Orchestrator) sniffExtension(ctx context.Context, ws *storage.Workspace, path string) string {
	f, err := ws.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		o.logger.DebugContext(ctx, "content sniffing failed", "error", err, "path", path)
		return ""
	}

	ext := classify.Normalize(mtype.Extension())
	o.logger.DebugContext(ctx, "sniffed source type",
		"mime", mtype.String(),
		"extension", ext,
	)
	return ext
}
