package exporter

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"resumeagent/internal/errors"
)

// Renderer turns a styled HTML document into file bytes
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
	Extension() string
}

// HTMLRenderer writes the HTML document as is
type HTMLRenderer struct{}

func (HTMLRenderer) Render(_ context.Context, html string) ([]byte, error) {
	return []byte(html), nil
}

func (HTMLRenderer) Extension() string { return ".html" }

// ChromeRenderer prints HTML to an A4 PDF with headless Chrome
type ChromeRenderer struct {
	execPath string
	timeout  time.Duration
}

// NewChromeRenderer creates a renderer. An empty execPath falls back to
// CHROME_PATH, then to chromedp's own lookup.
func NewChromeRenderer(execPath string, timeout time.Duration) *ChromeRenderer {
	if execPath == "" {
		execPath = os.Getenv("CHROME_PATH")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChromeRenderer{execPath: execPath, timeout: timeout}
}

func (r *ChromeRenderer) Extension() string { return ".pdf" }

func (r *ChromeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	// Chrome loads the document from disk so relative resources resolve
	tmpDir, err := os.MkdirTemp("", "resumeagent-render-")
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeRenderFailed, "failed to create render directory", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	htmlPath := filepath.Join(tmpDir, "index.html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o600); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeRenderFailed, "failed to write render input", err)
	}

	var pdf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate("file://"+htmlPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4: 210mm x 297mm -> 8.27in x 11.69in
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, errors.NewExportError(errors.ErrCodeRenderFailed, "headless Chrome failed to print PDF", err)
	}
	return pdf, nil
}
