package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfreiman/docconv/internal/metrics"
)

const testRoot = "/tmp/uploads"

func newTestManager(t *testing.T, fs FileSystem) *WorkspaceManager {
	t.Helper()
	m, err := NewWorkspaceManager(WorkspaceConfig{
		Root:       testRoot,
		FileSystem: fs,
	})
	require.NoError(t, err)
	return m
}

func TestWorkspaceManager_NewWorkspaceManager(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		m, err := NewWorkspaceManager(WorkspaceConfig{FileSystem: NewMemMapFileSystem()})
		require.NoError(t, err)

		assert.NotEmpty(t, m.Root())
		assert.Equal(t, KindWorkspace, m.Kind())
		assert.Equal(t, time.Hour, m.defaultTTL)
		assert.NotNil(t, m.logger)
		assert.True(t, m.IsAccessible())
	})

	t.Run("fails when root cannot be created", func(t *testing.T) {
		fs := NewAferoFileSystem(afero.NewReadOnlyFs(afero.NewMemMapFs()))

		_, err := NewWorkspaceManager(WorkspaceConfig{Root: testRoot, FileSystem: fs})
		require.Error(t, err)

		var storageErr *StorageError
		assert.ErrorAs(t, err, &storageErr)
		assert.Equal(t, testRoot, storageErr.Path)
	})
}

func TestWorkspaceManager_Create(t *testing.T) {
	m := newTestManager(t, NewMemMapFileSystem())
	ctx := context.Background()

	first, err := m.Create(ctx)
	require.NoError(t, err)
	second, err := m.Create(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Dir(), second.Dir())
	assert.Equal(t, testRoot, filepath.Dir(first.Dir()))

	count, err := m.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestWorkspaceManager_Destroy(t *testing.T) {
	t.Run("removes directory and contents", func(t *testing.T) {
		fs := NewMemMapFileSystem()
		m := newTestManager(t, fs)
		ctx := context.Background()

		ws, err := m.Create(ctx)
		require.NoError(t, err)
		path, _, err := ws.Save("report.docx", strings.NewReader("content"))
		require.NoError(t, err)

		m.Destroy(ctx, ws)

		_, err = fs.Stat(ws.Dir())
		assert.Error(t, err)
		assert.False(t, ws.Exists(path))
	})

	t.Run("is idempotent", func(t *testing.T) {
		m := newTestManager(t, NewMemMapFileSystem())
		ctx := context.Background()

		ws, err := m.Create(ctx)
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			m.Destroy(ctx, ws)
			m.Destroy(ctx, ws)
			m.Destroy(ctx, nil)
		})
	})

	t.Run("tolerates directory already gone", func(t *testing.T) {
		fs := NewMemMapFileSystem()
		m := newTestManager(t, fs)
		ctx := context.Background()

		ws, err := m.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, fs.RemoveAll(ws.Dir()))

		assert.NotPanics(t, func() { m.Destroy(ctx, ws) })
	})

	t.Run("logs but does not fail on removal error", func(t *testing.T) {
		base := afero.NewMemMapFs()
		reg := prometheus.NewRegistry()

		m, err := NewWorkspaceManager(WorkspaceConfig{
			Root:       testRoot,
			FileSystem: NewAferoFileSystem(base),
			Metrics:    metrics.New(reg),
		})
		require.NoError(t, err)
		ws, err := m.Create(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1.0, gaugeValue(t, reg, "docconv_scoped_dirs_active", "workspace"))

		m.fs = NewAferoFileSystem(afero.NewReadOnlyFs(base))

		assert.NotPanics(t, func() { m.Destroy(context.Background(), ws) })

		exists, err := afero.DirExists(base, ws.Dir())
		require.NoError(t, err)
		assert.True(t, exists)

		// the directory is still on disk, so it is still counted
		assert.Equal(t, 1.0, gaugeValue(t, reg, "docconv_scoped_dirs_active", "workspace"))
		assert.Equal(t, 1.0, gaugeValue(t, reg, "docconv_cleanup_failures_total", "workspace"))
	})

	t.Run("decrements active gauge on removal", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m, err := NewWorkspaceManager(WorkspaceConfig{
			Root:       testRoot,
			FileSystem: NewMemMapFileSystem(),
			Metrics:    metrics.New(reg),
		})
		require.NoError(t, err)

		ws, err := m.Create(context.Background())
		require.NoError(t, err)
		m.Destroy(context.Background(), ws)
		m.Destroy(context.Background(), ws)

		assert.Equal(t, 0.0, gaugeValue(t, reg, "docconv_scoped_dirs_active", "workspace"))
	})
}

// gaugeValue returns the value of the named gauge or counter for kind
func gaugeValue(t *testing.T, reg *prometheus.Registry, name, kind string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "kind" && label.GetValue() == kind {
					if g := metric.GetGauge(); g != nil {
						return g.GetValue()
					}
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{kind=%q} not found", name, kind)
	return 0
}

func TestWorkspace_Save(t *testing.T) {
	m := newTestManager(t, NewMemMapFileSystem())

	ws, err := m.Create(context.Background())
	require.NoError(t, err)

	path, n, err := ws.Save("../../escape.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, int64(5), n)
	assert.Equal(t, filepath.Join(ws.Dir(), "escape.txt"), path)
	assert.True(t, ws.Exists(path))

	f, err := ws.Open(path)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWorkspace_OpenMissing(t *testing.T) {
	m := newTestManager(t, NewMemMapFileSystem())

	ws, err := m.Create(context.Background())
	require.NoError(t, err)

	_, err = ws.Open(ws.Path("missing.pdf"))
	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)
	assert.False(t, ws.Exists(ws.Path("missing.pdf")))
	assert.False(t, ws.Exists(ws.Dir()), "directories are not outputs")
}

func TestWorkspaceManager_Sweep(t *testing.T) {
	fs := NewMemMapFileSystem()
	m := newTestManager(t, fs)
	ctx := context.Background()

	stale, err := m.Create(ctx)
	require.NoError(t, err)
	fresh, err := m.Create(ctx)
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, fs.Chtimes(stale.Dir(), old, old))

	removed, err := m.Sweep(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = fs.Stat(stale.Dir())
	assert.Error(t, err)
	_, err = fs.Stat(fresh.Dir())
	assert.NoError(t, err)
}

func TestWorkspaceManager_SweepUsesDefaultTTL(t *testing.T) {
	fs := NewMemMapFileSystem()
	m := newTestManager(t, fs)
	ctx := context.Background()

	ws, err := m.Create(ctx)
	require.NoError(t, err)

	removed, err := m.Sweep(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)

	old := time.Now().Add(-90 * time.Minute)
	require.NoError(t, fs.Chtimes(ws.Dir(), old, old))

	removed, err = m.Sweep(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestWorkspaceManager_IsAccessible(t *testing.T) {
	fs := NewMemMapFileSystem()
	m := newTestManager(t, fs)

	assert.True(t, m.IsAccessible())

	require.NoError(t, fs.RemoveAll(testRoot))
	assert.False(t, m.IsAccessible())

	_, err := m.Stats()
	assert.Error(t, err)
	_, err = m.Sweep(context.Background(), time.Minute)
	assert.Error(t, err)
}
