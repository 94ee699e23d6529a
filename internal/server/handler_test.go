package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeagent/internal/agent"
	"resumeagent/internal/ai"
	"resumeagent/internal/config"
	"resumeagent/internal/errors"
	"resumeagent/internal/loader"
	"resumeagent/internal/pipeline"
	"resumeagent/internal/types"
)

type promptRecorder struct {
	mu      sync.Mutex
	prompts []string
}

func (g *promptRecorder) GenerateText(_ context.Context, _, user string) (string, *ai.TokenUsage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, user)
	return "- SQL", nil, nil
}

func (g *promptRecorder) GenerateReview(context.Context, string, string) (types.ReviewOutput, *ai.TokenUsage, error) {
	return types.ReviewOutput{Score: 90, Feedback: "ok"}, nil, nil
}

// writeOnePagePDF writes a valid single-page PDF holding text
func writeOnePagePDF(t *testing.T, path, text string) {
	t.Helper()
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
}

func TestScanTreatsFilePathAsText(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "private.pdf")
	writeOnePagePDF(t, secret, "confidential salary data")

	logger := errors.NewLogger(slog.LevelError)
	gen := &promptRecorder{}
	service := ai.NewServiceWithGenerators(ai.Generators{Scan: gen, Improve: gen, Review: gen, CoverLetter: gen}, nil, logger)
	// Zero loader config matches what serve builds: no local files, no private networks
	a := agent.New(pipeline.Deps{
		Loader: loader.New(config.LoaderConfig{}, logger),
		Writer: service,
	}, pipeline.DefaultOptions(), logger)

	ts := newTestServer(t, ServerConfig{}, Backend{Agent: a})
	body, err := json.Marshal(types.ScanRequest{JobDescription: "Requires Python and SQL", OriginalResume: secret})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/scan", string(body), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], secret)
	assert.NotContains(t, gen.prompts[0], "confidential salary data")
	assert.NotContains(t, rec.Body.String(), "confidential salary data")
}
