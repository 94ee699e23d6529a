// Package agent exposes the two entry points of the resume optimizer: a
// gap scan preview and the full optimization run.
package agent

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"

	"resumeagent/internal/ai"
	"resumeagent/internal/config"
	"resumeagent/internal/errors"
	"resumeagent/internal/exporter"
	"resumeagent/internal/loader"
	"resumeagent/internal/pipeline"
	"resumeagent/internal/types"
)

// Agent runs pipelines on behalf of the CLI and the HTTP server
type Agent struct {
	deps     pipeline.Deps
	opts     pipeline.Options
	engine   *pipeline.Engine
	logger   *errors.Logger
	service  *ai.Service
	exporter *exporter.Exporter
}

// New creates an agent around explicit collaborators
func New(deps pipeline.Deps, opts pipeline.Options, logger *errors.Logger) *Agent {
	if deps.Logger == nil {
		deps.Logger = logger
	}
	return &Agent{
		deps:   deps,
		opts:   opts,
		engine: pipeline.NewEngine(logger),
		logger: logger,
	}
}

// NewFromConfig builds the loader, AI service and optional exporter from cfg
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*Agent, error) {
	service, err := ai.NewService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI service: %w", err)
	}

	deps := pipeline.Deps{
		Loader: loader.New(cfg.Loader, logger),
		Writer: service,
		Logger: logger,
	}

	var x *exporter.Exporter
	if cfg.Export.Enabled {
		x, err = exporter.New(cfg.Export, logger)
		if err != nil {
			_ = service.Close()
			return nil, err
		}
		// Only a non-nil exporter may go into Deps; a typed nil would not skip the stage
		deps.Exporter = x
	}

	a := New(deps, pipeline.OptionsFromConfig(cfg.Pipeline), logger)
	a.service = service
	a.exporter = x
	return a, nil
}

// SetHooks registers engine callbacks, typically metrics
func (a *Agent) SetHooks(hooks pipeline.Hooks) {
	a.engine.SetHooks(hooks)
}

// SetAIObserver forwards generation events when the agent owns its AI service
func (a *Agent) SetAIObserver(observer ai.UsageObserver) {
	if a.service != nil {
		a.service.SetObserver(observer)
	}
}

// Service returns the AI service built by NewFromConfig, or nil
func (a *Agent) Service() *ai.Service {
	return a.service
}

// Exporter returns the document exporter, or nil when export is disabled
func (a *Agent) Exporter() *exporter.Exporter {
	return a.exporter
}

// ScanGaps runs the scan-only pipeline. Failures are reported in the
// result, never as a Go error.
func (a *Agent) ScanGaps(ctx context.Context, req types.ScanRequest) types.ScanResult {
	state := pipeline.State{
		RunID:          uuid.NewString(),
		JobDescription: req.JobDescription,
		OriginalResume: req.OriginalResume,
	}

	final, err := a.engine.Run(ctx, pipeline.ScanOnly(a.deps, a.opts), state)
	if err != nil {
		msg := errorMessage(err)
		return types.ScanResult{
			RunID:         state.RunID,
			MissingSkills: "Error during scan: " + msg,
			Error:         msg,
		}
	}
	return types.ScanResult{RunID: final.RunID, MissingSkills: final.MissingSkills}
}

// Optimize runs the full pipeline. HumanNotes is usually the edited output
// of a previous scan.
func (a *Agent) Optimize(ctx context.Context, req types.OptimizeRequest) types.OptimizeResult {
	state := pipeline.State{
		RunID:          uuid.NewString(),
		JobDescription: req.JobDescription,
		OriginalResume: req.OriginalResume,
		HumanNotes:     req.HumanNotes,
	}

	final, err := a.engine.Run(ctx, pipeline.Full(a.deps, a.opts), state)
	if err != nil {
		msg := errorMessage(err)
		return types.OptimizeResult{
			RunID:           state.RunID,
			OptimizedResume: "Error: " + msg,
			Error:           msg,
		}
	}

	return types.OptimizeResult{
		RunID:           final.RunID,
		OptimizedResume: final.OptimizedResume,
		Score:           final.Score,
		Feedback:        final.Feedback,
		Iterations:      final.Iteration,
		Outcome:         final.Outcome,
		CoverLetter:     final.CoverLetter,
		ResumePath:      final.ResumePath,
		CoverLetterPath: final.CoverLetterPath,
	}
}

// Close releases the AI providers
func (a *Agent) Close() error {
	if a.service != nil {
		return a.service.Close()
	}
	return nil
}

// errorMessage reports the underlying cause of a stage failure rather than
// the engine wrapper
func errorMessage(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Code == errors.ErrCodePipelineStageFailed && appErr.Cause != nil {
		return appErr.Cause.Error()
	}
	return err.Error()
}
