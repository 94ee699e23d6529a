// Package exporter renders markdown documents to styled HTML or PDF files
// under a per-run output directory.
package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resumeagent/internal/config"
	"resumeagent/internal/errors"
	"resumeagent/internal/utils"
)

// Supported export formats
const (
	FormatPDF  = "pdf"
	FormatHTML = "html"
)

// Exporter writes rendered documents to <outputDir>/<runID>/<name>.<ext>
type Exporter struct {
	outputDir string
	renderer  Renderer
	logger    *errors.Logger
}

// New creates an exporter for the configured format
func New(cfg config.ExportConfig, logger *errors.Logger) (*Exporter, error) {
	var renderer Renderer
	switch cfg.Format {
	case FormatPDF, "":
		renderer = NewChromeRenderer(cfg.ChromePath, cfg.Timeout)
	case FormatHTML:
		renderer = HTMLRenderer{}
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported export format: %s", cfg.Format), nil)
	}
	return NewWithRenderer(cfg.OutputDir, renderer, logger), nil
}

// NewWithRenderer creates an exporter around a specific renderer
func NewWithRenderer(outputDir string, renderer Renderer, logger *errors.Logger) *Exporter {
	return &Exporter{outputDir: outputDir, renderer: renderer, logger: logger}
}

// OutputDir returns the root directory for exported runs
func (e *Exporter) OutputDir() string {
	return e.outputDir
}

// Export renders markdown under title and returns the written file path
func (e *Exporter) Export(ctx context.Context, runID, name, title, markdown string) (string, error) {
	ctx, span := otel.Tracer("resumeagent.exporter").Start(ctx, "exporter.export")
	defer span.End()
	span.SetAttributes(
		attribute.String("export.run_id", runID),
		attribute.String("export.name", name),
		attribute.String("export.extension", e.renderer.Extension()),
	)

	path, err := utils.ArtifactPath(e.outputDir, runID, name+e.renderer.Extension())
	if err != nil {
		return "", errors.NewExportError(errors.ErrCodeExportFailed, "invalid artifact location", err)
	}

	start := time.Now()
	html, err := RenderHTML(title, markdown)
	if err != nil {
		return "", err
	}
	content, err := e.renderer.Render(ctx, html)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return "", errors.NewExportError(errors.ErrCodeExportFailed, "failed to create output directory", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", errors.NewExportError(errors.ErrCodeExportFailed,
			fmt.Sprintf("failed to write %s", path), err)
	}

	e.logger.Info("Document exported",
		"run_id", runID,
		"name", name,
		"path", path,
		"size", utils.FormatFileSize(int64(len(content))),
		"duration", time.Since(start))
	return path, nil
}

// Resolve returns the path of an exported file, rejecting names that would
// leave the run directory
func (e *Exporter) Resolve(runID, file string) (string, error) {
	path, err := utils.ArtifactPath(e.outputDir, runID, file)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid artifact reference", err)
	}
	return path, nil
}
