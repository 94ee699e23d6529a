package pipeline

import (
	"resumeagent/internal/config"
	"resumeagent/internal/errors"
)

// Pipeline names
const (
	NameFull     = "full"
	NameScanOnly = "scan_only"
)

// DefaultPromptCharLimit bounds job and resume text in scan and cover letter prompts
const DefaultPromptCharLimit = 3000

// Options shapes the stages of a pipeline variant
type Options struct {
	Policy                 Policy
	PromptCharLimit        int
	StripUnsupportedSkills bool
	CoverLetter            bool
}

// DefaultOptions returns the default loop policy with every stage enabled
func DefaultOptions() Options {
	return Options{
		Policy:                 DefaultPolicy(),
		PromptCharLimit:        DefaultPromptCharLimit,
		StripUnsupportedSkills: true,
		CoverLetter:            true,
	}
}

// OptionsFromConfig builds options from the pipeline section of the configuration
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	opts := Options{
		Policy:                 Policy{ScoreThreshold: cfg.ScoreThreshold, MaxIterations: cfg.MaxIterations},
		PromptCharLimit:        cfg.PromptCharLimit,
		StripUnsupportedSkills: cfg.StripUnsupportedSkills,
		CoverLetter:            cfg.CoverLetter.Enabled,
	}
	if opts.Policy.MaxIterations <= 0 {
		opts.Policy.MaxIterations = DefaultMaxIterations
	}
	if opts.PromptCharLimit <= 0 {
		opts.PromptCharLimit = DefaultPromptCharLimit
	}
	return opts
}

// Deps are the collaborators stages call out to. Exporter may be nil, in
// which case the full pipeline skips rendering.
type Deps struct {
	Loader   ContentLoader
	Writer   Writer
	Exporter Exporter
	Logger   *errors.Logger
}

// Full builds loader, scanner, the improver/reviewer loop, then the
// optional cover letter and export stages.
func Full(deps Deps, opts Options) Pipeline {
	stages := []Stage{
		LoaderStage(deps.Loader),
		ScannerStage(deps.Writer, opts.PromptCharLimit),
		ImproverStage(deps.Writer, opts.StripUnsupportedSkills, deps.Logger),
		ReviewerStage(deps.Writer),
	}
	if opts.CoverLetter {
		stages = append(stages, CoverLetterStage(deps.Writer, opts.PromptCharLimit))
	}
	if deps.Exporter != nil {
		stages = append(stages, ExportStage(deps.Exporter))
	}

	return Pipeline{
		Name:   NameFull,
		Stages: stages,
		Branch: &Branch{
			After:  StageReviewer,
			Decide: opts.Policy.Decide,
			Routes: map[Decision]string{
				Continue:  StageImprover,
				Accept:    Next,
				Exhausted: Next,
			},
			MaxLoopBacks: opts.Policy.maxLoopBacks(),
		},
	}
}

// ScanOnly builds the loader and scanner stages used to preview gaps
func ScanOnly(deps Deps, opts Options) Pipeline {
	return Pipeline{
		Name: NameScanOnly,
		Stages: []Stage{
			LoaderStage(deps.Loader),
			ScannerStage(deps.Writer, opts.PromptCharLimit),
		},
	}
}
