package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kfreiman/docconv/internal/metrics"
)

// StorageError represents a storage-related failure
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	msg := fmt.Sprintf("storage error during %s", e.Operation)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path: %s)", e.Path)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Kind labels what a manager's directories are used for
type Kind string

const (
	KindWorkspace Kind = "workspace"
	KindProfile   Kind = "profile"
)

// WorkspaceConfig holds configuration for the workspace manager
type WorkspaceConfig struct {
	Root       string
	Kind       Kind
	DefaultTTL time.Duration
	Logger     *slog.Logger     // Optional: defaults to a discarding logger
	FileSystem FileSystem       // Optional: defaults to the OS filesystem
	Metrics    *metrics.Metrics // Optional
	Retry      *RetryConfig     // Optional: defaults to DefaultRemoveRetry
}

// WorkspaceManager allocates and reclaims uniquely named directories under one root.
// Each directory belongs to exactly one caller and is destroyed exactly once.
type WorkspaceManager struct {
	root       string
	kind       Kind
	defaultTTL time.Duration
	logger     *slog.Logger
	fs         FileSystem
	metrics    *metrics.Metrics
	retry      RetryConfig
}

// NewWorkspaceManager creates the root directory and returns a manager for it
func NewWorkspaceManager(config WorkspaceConfig) (*WorkspaceManager, error) {
	ctx := context.Background()

	if config.Root == "" {
		config.Root = filepath.Join(os.TempDir(), "docconv")
	}
	if config.Kind == "" {
		config.Kind = KindWorkspace
	}
	if config.DefaultTTL == 0 {
		config.DefaultTTL = time.Hour
	}
	if config.FileSystem == nil {
		config.FileSystem = NewOSFileSystem()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Retry == nil {
		retry := DefaultRemoveRetry
		config.Retry = &retry
	}

	if err := config.FileSystem.MkdirAll(config.Root, 0755); err != nil {
		config.Logger.ErrorContext(ctx, "failed to create root directory",
			"error", err,
			"path", config.Root,
			"kind", config.Kind,
			"operation", "init",
		)
		return nil, &StorageError{
			Operation: "init - create root",
			Path:      config.Root,
			Err:       err,
		}
	}

	config.Logger.InfoContext(ctx, "workspace manager initialized",
		"root", config.Root,
		"kind", config.Kind,
		"default_ttl", config.DefaultTTL,
	)

	return &WorkspaceManager{
		root:       config.Root,
		kind:       config.Kind,
		defaultTTL: config.DefaultTTL,
		logger:     config.Logger,
		fs:         config.FileSystem,
		metrics:    config.Metrics,
		retry:      *config.Retry,
	}, nil
}

// Root returns the directory all workspaces are created under
func (m *WorkspaceManager) Root() string {
	return m.root
}

// DefaultTTL returns the age Sweep uses when called with a zero ttl
func (m *WorkspaceManager) DefaultTTL() time.Duration {
	return m.defaultTTL
}

// Kind returns the label of this manager's directories
func (m *WorkspaceManager) Kind() Kind {
	return m.kind
}

// Create allocates a fresh, uniquely named directory
func (m *WorkspaceManager) Create(ctx context.Context) (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.root, id)

	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		m.logger.ErrorContext(ctx, "failed to create scoped directory",
			"error", err,
			"kind", m.kind,
			"path", dir,
			"operation", "create",
		)
		return nil, &StorageError{
			Operation: fmt.Sprintf("create %s", m.kind),
			Path:      dir,
			Err:       err,
		}
	}

	m.metrics.DirCreated(string(m.kind))
	m.logger.DebugContext(ctx, "scoped directory created",
		"kind", m.kind,
		"id", id,
		"path", dir,
	)

	return &Workspace{ID: id, dir: dir, fs: m.fs}, nil
}

// Destroy recursively removes ws. Repeated calls are no-ops and removal
// failures are logged, never returned.
func (m *WorkspaceManager) Destroy(ctx context.Context, ws *Workspace) {
	if ws == nil {
		return
	}

	ws.once.Do(func() {
		err := Retry(ctx, m.retry, func(int) error {
			return m.fs.RemoveAll(ws.dir)
		})
		if err != nil {
			m.metrics.CleanupFailed(string(m.kind))
			m.logger.WarnContext(ctx, "cleanup warning: failed to remove scoped directory",
				"error", &StorageError{Operation: fmt.Sprintf("destroy %s", m.kind), Path: ws.dir, Err: err},
				"kind", m.kind,
				"id", ws.ID,
			)
			return
		}
		m.metrics.DirRemoved(string(m.kind))

		m.logger.DebugContext(ctx, "scoped directory removed",
			"kind", m.kind,
			"id", ws.ID,
			"path", ws.dir,
		)
	})
}

// Sweep removes directories older than ttl, left behind by a crashed process
func (m *WorkspaceManager) Sweep(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl == 0 {
		ttl = m.defaultTTL
	}

	entries, err := m.fs.ReadDir(m.root)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to read root for sweep",
			"error", err,
			"root", m.root,
			"kind", m.kind,
		)
		return 0, &StorageError{
			Operation: "sweep - read root",
			Path:      m.root,
			Err:       err,
		}
	}

	cutoff := time.Now().Add(-ttl)
	var removed int64

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(m.root, entry.Name())
		if err := m.fs.RemoveAll(path); err != nil {
			m.metrics.CleanupFailed(string(m.kind))
			m.logger.WarnContext(ctx, "cleanup warning: failed to sweep stale directory",
				"error", err,
				"path", path,
				"kind", m.kind,
			)
			continue
		}
		removed++
	}

	m.metrics.Swept(string(m.kind), removed)
	m.logger.InfoContext(ctx, "sweep completed",
		"kind", m.kind,
		"removed", removed,
		"ttl", ttl,
	)

	return removed, nil
}

// StartSweeper runs Sweep every interval until ctx is done
func (m *WorkspaceManager) StartSweeper(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = m.Sweep(ctx, ttl)
			}
		}
	}()
}

// Stats returns the number of directories currently under the root
func (m *WorkspaceManager) Stats() (int64, error) {
	entries, err := m.fs.ReadDir(m.root)
	if err != nil {
		return 0, &StorageError{
			Operation: "stats - read root",
			Path:      m.root,
			Err:       err,
		}
	}

	var count int64
	for _, entry := range entries {
		if entry.IsDir() {
			count++
		}
	}
	return count, nil
}

// IsAccessible checks if the root directory exists
func (m *WorkspaceManager) IsAccessible() bool {
	info, err := m.fs.Stat(m.root)
	return err == nil && info.IsDir()
}

// Workspace is a directory scoped to a single request or engine invocation
type Workspace struct {
	ID   string
	dir  string
	fs   FileSystem
	once sync.Once
}

// Dir returns the workspace directory
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the path of name inside the workspace
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

// Save streams r into name inside the workspace and returns the written path and size
func (w *Workspace) Save(name string, r io.Reader) (string, int64, error) {
	path := w.Path(name)

	f, err := w.fs.Create(path)
	if err != nil {
		return "", 0, &StorageError{Operation: "save upload", Path: path, Err: err}
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", n, &StorageError{Operation: "save upload", Path: path, Err: err}
	}

	return path, n, nil
}

// Stat returns file info for path
func (w *Workspace) Stat(path string) (os.FileInfo, error) {
	return w.fs.Stat(path)
}

// Exists reports whether path exists and is a regular file
func (w *Workspace) Exists(path string) bool {
	info, err := w.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// Open opens path for reading
func (w *Workspace) Open(path string) (io.ReadCloser, error) {
	f, err := w.fs.Open(path)
	if err != nil {
		return nil, &StorageError{Operation: "open", Path: path, Err: err}
	}
	return f, nil
}
