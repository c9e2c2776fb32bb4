package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLibreOffice copies a fixture into <outdir>/<base>.<fmt>
const fakeLibreOffice = `#!/bin/sh
fmt=""; outdir=""; input=""
while [ $# -gt 0 ]; do
  case "$1" in
    --headless|-env:*) ;;
    --convert-to) shift; fmt="$1" ;;
    --outdir) shift; outdir="$1" ;;
    *) input="$1" ;;
  esac
  shift
done
name=$(basename "$input")
cp "%s" "$outdir/${name%%.*}.$fmt"
`

const fakeFFmpeg = `#!/bin/sh
printf 'transcoded' > "$4"
`

type testEnv struct {
	server     *Server
	workspaces string
	profiles   string
}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("engine stand-ins are shell scripts")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
	return path
}

// writeTestPDF writes a PDF with the given number of blank pages
func writeTestPDF(t *testing.T, pages int) string {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	path := filepath.Join(t.TempDir(), "fixture.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func testConfig(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	return Config{
		Port:            8080,
		WorkspaceRoot:   filepath.Join(root, "uploads"),
		ProfileRoot:     filepath.Join(root, "lo-user"),
		LibreOfficeBin:  writeScript(t, "libreoffice", fmt.Sprintf(fakeLibreOffice, writeTestPDF(t, 2))),
		FFmpegBin:       writeScript(t, "ffmpeg", fakeFFmpeg),
		DocumentTimeout: 5 * time.Second,
		MediaTimeout:    5 * time.Second,
		MaxUploadMB:     1,
		WorkspaceTTL:    time.Hour,
		AllowedOrigins:  []string{"*"},
	}
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	s, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return &testEnv{server: s, workspaces: cfg.WorkspaceRoot, profiles: cfg.ProfileRoot}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) assertClean(t *testing.T) {
	t.Helper()
	for _, root := range []string{e.workspaces, e.profiles} {
		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries, "%s should be empty", root)
	}
}

type upload struct {
	filename string
	content  string
	target   string
	noFile   bool
	noTarget bool
}

func convertRequest(t *testing.T, u upload) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if !u.noFile {
		part, err := mw.CreateFormFile("file", u.filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(u.content))
		require.NoError(t, err)
	}
	if !u.noTarget {
		require.NoError(t, mw.WriteField("target_format", u.target))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestNewServer_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.ProfileRoot = cfg.WorkspaceRoot

	_, err := NewServer(cfg, nil)
	assert.Error(t, err)
}

func TestConvert_DocumentToPDF(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	w := env.do(convertRequest(t, upload{filename: "report.docx", content: "docx bytes", target: "pdf"}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=report.pdf", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "2", w.Header().Get("X-Page-Count"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-1.4"))
	env.assertClean(t)
}

func TestConvert_TargetIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	w := env.do(convertRequest(t, upload{filename: "Quarterly Report.DOCX", content: "docx bytes", target: "PDF"}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, `attachment; filename="Quarterly Report.pdf"`, w.Header().Get("Content-Disposition"))
	env.assertClean(t)
}

func TestConvert_MediaToMP4(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	w := env.do(convertRequest(t, upload{filename: "clip.mov", content: "mov bytes", target: "mp4"}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "attachment; filename=clip.mp4", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "transcoded", w.Body.String())
	assert.Empty(t, w.Header().Get("X-Page-Count"))
	env.assertClean(t)
}

func TestConvert_UnsupportedPair(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	w := env.do(convertRequest(t, upload{filename: "data.xyz", content: "?", target: "xyz2"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unsupported conversion pair: .xyz to .xyz2.", errorMessage(t, w))
	env.assertClean(t)
}

func TestConvert_ClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		upload  upload
		message string
	}{
		{"missing file", upload{target: "pdf", noFile: true}, "Missing file or target format"},
		{"missing target", upload{filename: "report.docx", content: "x", noTarget: true}, "Missing file or target format"},
		{"empty target", upload{filename: "report.docx", content: "x", target: ""}, "Missing file or target format"},
		{"empty filename", upload{filename: "", content: "x", target: "pdf"}, "No selected file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig(t))

			w := env.do(convertRequest(t, tt.upload))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, errorMessage(t, w))
			env.assertClean(t)
		})
	}
}

func TestConvert_NotMultipart(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing file or target format", errorMessage(t, w))
}

func TestConvert_OutputMissing(t *testing.T) {
	cfg := testConfig(t)
	cfg.LibreOfficeBin = writeScript(t, "libreoffice", "#!/bin/sh\necho 'convert done'\nexit 0\n")
	env := newTestEnv(t, cfg)

	w := env.do(convertRequest(t, upload{filename: "report.docx", content: "docx bytes", target: "pdf"}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, msgOutputMissing, errorMessage(t, w))
	env.assertClean(t)
}

func TestConvert_EngineFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.LibreOfficeBin = writeScript(t, "libreoffice",
		"#!/bin/sh\necho 'javaldx: no JRE' >&2\necho 'Error: source file could not be loaded'\nexit 1\n")
	env := newTestEnv(t, cfg)

	w := env.do(convertRequest(t, upload{filename: "broken.docx", content: "docx bytes", target: "pdf"}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Conversion failed: LibreOffice conversion failed. Detail: Error: source file could not be loaded", errorMessage(t, w))
	env.assertClean(t)
}

func TestConvert_Timeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.LibreOfficeBin = writeScript(t, "libreoffice", "#!/bin/sh\nsleep 10\n")
	cfg.DocumentTimeout = 300 * time.Millisecond
	env := newTestEnv(t, cfg)

	w := env.do(convertRequest(t, upload{filename: "slides.pptx", content: "pptx bytes", target: "pdf"}))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, msgTimeout, errorMessage(t, w))
	env.assertClean(t)
}

func TestConvert_TooLarge(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	big := strings.Repeat("a", 2<<20)
	w := env.do(convertRequest(t, upload{filename: "huge.txt", content: big, target: "pdf"}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, msgTooLarge, errorMessage(t, w))
	env.assertClean(t)
}

func TestConvert_AdmissionLimit(t *testing.T) {
	env := newTestEnv(t, testConfig(t).WithMaxConcurrentConversions(1))
	require.NoError(t, env.server.admission.Acquire(context.Background(), 1))
	defer env.server.admission.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := convertRequest(t, upload{filename: "report.docx", content: "docx bytes", target: "pdf"}).WithContext(ctx)

	w := env.do(req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, msgBusy, errorMessage(t, w))
	env.assertClean(t)
}

func TestFormatsHandler(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	w := env.do(httptest.NewRequest(http.MethodGet, "/formats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var formats struct {
		Document []string `json:"document"`
		Media    []string `json:"media"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &formats))
	assert.Len(t, formats.Document, 12)
	assert.Len(t, formats.Media, 24)
	assert.Contains(t, formats.Document, "docx")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	require.Equal(t, http.StatusOK,
		env.do(convertRequest(t, upload{filename: "clip.mov", content: "mov", target: "mp4"})).Code)

	w := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `docconv_conversions_total{engine="media",outcome="success"} 1`)
	assert.Contains(t, body, "docconv_conversion_duration_seconds")
	assert.Contains(t, body, "go_goroutines")
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/formats", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := env.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestIndexHandler(t *testing.T) {
	env := newTestEnv(t, testConfig(t))

	w := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "POST /convert")
}

func TestConvert_RejectsTargetOutsideWorkspace(t *testing.T) {
	secretDir := t.TempDir()
	secret := filepath.Join(secretDir, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("TOP-SECRET"), 0644))
	victim := filepath.Join(secretDir, "victim.mp4")
	require.NoError(t, os.WriteFile(victim, []byte("original"), 0644))

	// LibreOffice exits 0 when it has no export filter for the target
	cfg := testConfig(t)
	cfg.LibreOfficeBin = writeScript(t, "libreoffice", "#!/bin/sh\necho 'Error: no export filter'\nexit 0\n")
	env := newTestEnv(t, cfg)

	escape := strings.Repeat("/..", 40)
	tests := []struct {
		name     string
		filename string
		target   string
	}{
		{"read through document engine", "report.docx", escape + secret},
		{"write through media engine", "clip.mov", escape + victim},
		{"parent directory", "report.docx", "../../../etc/passwd"},
		{"absolute path", "report.docx", "/etc/passwd"},
		{"backslashes", "report.docx", `..\..\secret.txt`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(convertRequest(t, upload{filename: tt.filename, content: "x", target: tt.target}))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotContains(t, w.Body.String(), "TOP-SECRET")
			assert.Equal(t, "Invalid target format: use a plain extension such as pdf or mp4", errorMessage(t, w))
		})
	}

	data, err := os.ReadFile(victim)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	entries, err := os.ReadDir(env.workspaces)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
