package exporter

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeagent/internal/config"
	"resumeagent/internal/errors"
)

const sampleResume = `# Jane Doe

## Experience
- Built a stock analysis tool in **Python**
- Wrote SQL reports

<script>alert(1)</script>
`

// stubRenderer stands in for Chrome
type stubRenderer struct {
	err  error
	seen string
}

func (s *stubRenderer) Render(_ context.Context, html string) ([]byte, error) {
	s.seen = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.4 stub"), nil
}

func (s *stubRenderer) Extension() string { return ".pdf" }

func testLogger() *errors.Logger {
	return errors.NewLogger(slog.LevelError)
}

func TestRenderHTMLMapsStructure(t *testing.T) {
	html, err := RenderHTML("Resume", sampleResume)
	require.NoError(t, err)

	assert.Contains(t, html, "<title>Resume</title>")
	assert.Contains(t, html, "<h1>Jane Doe</h1>")
	assert.Contains(t, html, "<h2>Experience</h2>")
	assert.Contains(t, html, "<li>Built a stock analysis tool in <strong>Python</strong></li>")
	assert.Contains(t, html, "border-bottom: 1px solid")
	assert.Contains(t, html, "padding-left: 18pt")
	assert.NotContains(t, html, "<script>alert(1)</script>", "raw HTML in model output must not pass through")
}

func TestRenderHTMLEscapesTitle(t *testing.T) {
	html, err := RenderHTML("<b>Cover Letter</b>", "text")
	require.NoError(t, err)
	assert.Contains(t, html, "<title>&lt;b&gt;Cover Letter&lt;/b&gt;</title>")
}

func TestExportHTML(t *testing.T) {
	dir := t.TempDir()
	x, err := New(config.ExportConfig{Format: FormatHTML, OutputDir: dir}, testLogger())
	require.NoError(t, err)

	path, err := x.Export(context.Background(), "run-42", "resume", "Resume", sampleResume)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-42", "resume.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>"))
}

func TestExportKeysFilesByRun(t *testing.T) {
	dir := t.TempDir()
	r := &stubRenderer{}
	x := NewWithRenderer(dir, r, testLogger())

	a, err := x.Export(context.Background(), "run-a", "cover_letter", "Cover Letter", "Dear team")
	require.NoError(t, err)
	b, err := x.Export(context.Background(), "run-b", "cover_letter", "Cover Letter", "Hello")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, filepath.Join(dir, "run-a", "cover_letter.pdf"), a)
	assert.Contains(t, r.seen, "<title>Cover Letter</title>")
}

func TestExportRejectsUnsafeRunID(t *testing.T) {
	x := NewWithRenderer(t.TempDir(), &stubRenderer{}, testLogger())

	_, err := x.Export(context.Background(), "../escape", "resume", "Resume", "x")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeExportFailed))
}

func TestExportRendererFailure(t *testing.T) {
	dir := t.TempDir()
	cause := errors.NewExportError(errors.ErrCodeRenderFailed, "chrome missing", stderrors.New("exec: not found"))
	x := NewWithRenderer(dir, &stubRenderer{err: cause}, testLogger())

	_, err := x.Export(context.Background(), "run-1", "resume", "Resume", "x")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRenderFailed))

	_, statErr := os.Stat(filepath.Join(dir, "run-1", "resume.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestResolve(t *testing.T) {
	x := NewWithRenderer("/srv/out", HTMLRenderer{}, testLogger())

	path, err := x.Resolve("run-1", "resume.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/out", "run-1", "resume.pdf"), path)

	for _, name := range []string{"../secret", ".env", "a/b.pdf", ""} {
		_, err := x.Resolve("run-1", name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(config.ExportConfig{Format: "docx"}, testLogger())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func TestChromeRendererDefaults(t *testing.T) {
	t.Setenv("CHROME_PATH", "/opt/chrome/chrome")
	r := NewChromeRenderer("", 0)
	assert.Equal(t, "/opt/chrome/chrome", r.execPath)
	assert.Equal(t, ".pdf", r.Extension())
	assert.Positive(t, r.timeout)
}
