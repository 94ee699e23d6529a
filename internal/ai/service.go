package ai

import (
	"context"
	"fmt"
	"time"

	"resumeagent/internal/config"
	"resumeagent/internal/errors"
	"resumeagent/internal/types"
)

// Operations served by the service, in pipeline order
var operations = []string{
	config.OperationScan,
	config.OperationImprove,
	config.OperationReview,
	config.OperationCoverLetter,
}

// Generators assigns a backend to each generation step
type Generators struct {
	Scan        Generator
	Improve     Generator
	Review      Generator
	CoverLetter Generator
}

func (g Generators) forOperation(operation string) Generator {
	switch operation {
	case config.OperationScan:
		return g.Scan
	case config.OperationImprove:
		return g.Improve
	case config.OperationReview:
		return g.Review
	case config.OperationCoverLetter:
		return g.CoverLetter
	}
	return nil
}

// ImproveInput carries everything the improver prompt needs
type ImproveInput struct {
	JobText       string
	Resume        string
	MissingSkills string
	HumanNotes    string
	Feedback      string
}

// Service formats prompts for each generation step and calls its backend
type Service struct {
	generators    Generators
	providers     map[string]Provider
	promptConfigs map[string]config.PromptConfig
	observer      UsageObserver
	logger        *errors.Logger
}

// NewService creates one provider per operation from the configuration
func NewService(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*Service, error) {
	providers := make(map[string]Provider, len(operations))
	var generators Generators

	for _, op := range operations {
		opCfg := cfg.GetOperationConfig(op)

		logger.Debug("Initializing AI provider",
			"provider", opCfg.Provider,
			"operation", op,
			"model", opCfg.Model,
			"temperature", *opCfg.Temperature,
			"timeout", *opCfg.Timeout,
			"use_system_prompts", *opCfg.UseSystemPrompts)

		var provider Provider
		switch opCfg.Provider {
		case "gemini", "":
			p, err := NewGeminiProvider(ctx, &opCfg, op, logger)
			if err != nil {
				closeProviders(providers)
				return nil, err
			}
			provider = p
		default:
			closeProviders(providers)
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("Unsupported AI provider: %s", opCfg.Provider), nil)
		}

		providers[op] = provider
		switch op {
		case config.OperationScan:
			generators.Scan = provider
		case config.OperationImprove:
			generators.Improve = provider
		case config.OperationReview:
			generators.Review = provider
		case config.OperationCoverLetter:
			generators.CoverLetter = provider
		}
	}

	svc := NewServiceWithGenerators(generators, cfg, logger)
	svc.providers = providers
	return svc, nil
}

// NewServiceWithGenerators creates a service over caller-supplied backends.
// cfg may be nil, in which case only file-loaded and default prompts apply.
func NewServiceWithGenerators(generators Generators, cfg *config.Config, logger *errors.Logger) *Service {
	promptConfigs := make(map[string]config.PromptConfig, len(operations))
	if cfg != nil {
		for _, op := range operations {
			promptConfigs[op] = cfg.GetOperationConfig(op).CustomPrompts
		}
	}
	return &Service{
		generators:    generators,
		promptConfigs: promptConfigs,
		logger:        logger,
	}
}

// SetObserver registers a callback invoked after every generation call
func (s *Service) SetObserver(observer UsageObserver) {
	s.observer = observer
}

// ScanGaps asks for the biggest skills missing from the resume
func (s *Service) ScanGaps(ctx context.Context, jobText, resumeText string) (string, error) {
	system, user := s.prompts(config.OperationScan)
	return s.generateText(ctx, config.OperationScan, system, fmt.Sprintf(user, jobText, resumeText))
}

// ImproveResume rewrites the resume against the job and prior feedback
func (s *Service) ImproveResume(ctx context.Context, in ImproveInput) (string, error) {
	system, user := s.prompts(config.OperationImprove)
	prompt := fmt.Sprintf(user, in.MissingSkills, in.HumanNotes, in.Feedback, in.JobText, in.Resume)
	return s.generateText(ctx, config.OperationImprove, system, prompt)
}

// ReviewResume scores the resume against the job
func (s *Service) ReviewResume(ctx context.Context, jobText, resume string) (types.ReviewOutput, error) {
	gen, err := s.generator(config.OperationReview)
	if err != nil {
		return types.ReviewOutput{}, err
	}
	system, user := s.prompts(config.OperationReview)

	start := time.Now()
	review, usage, err := gen.GenerateReview(ctx, system, fmt.Sprintf(user, jobText, resume))
	s.observe(ctx, config.OperationReview, time.Since(start), usage, err)
	if err != nil {
		return types.ReviewOutput{}, err
	}

	s.logger.Debug("Resume reviewed", "score", review.Score, "feedback", review.Feedback)
	return review, nil
}

// WriteCoverLetter drafts a cover letter from the job and the final resume
func (s *Service) WriteCoverLetter(ctx context.Context, jobText, resume string) (string, error) {
	system, user := s.prompts(config.OperationCoverLetter)
	return s.generateText(ctx, config.OperationCoverLetter, system, fmt.Sprintf(user, jobText, resume))
}

func (s *Service) generateText(ctx context.Context, operation, system, user string) (string, error) {
	gen, err := s.generator(operation)
	if err != nil {
		return "", err
	}

	start := time.Now()
	text, usage, err := gen.GenerateText(ctx, system, user)
	s.observe(ctx, operation, time.Since(start), usage, err)
	if err != nil {
		return "", err
	}

	s.logger.Debug("Generation completed",
		"operation", operation,
		"output_length", len(text),
		"duration", time.Since(start))
	return text, nil
}

func (s *Service) generator(operation string) (Generator, error) {
	gen := s.generators.forOperation(operation)
	if gen == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("No generator configured for %s", operation), nil)
	}
	return gen, nil
}

func (s *Service) observe(ctx context.Context, operation string, duration time.Duration, usage *TokenUsage, err error) {
	if s.observer != nil {
		s.observer(ctx, operation, duration, usage, err)
	}
}

// prompts resolves the system prompt and user template for an operation
func (s *Service) prompts(operation string) (string, string) {
	loaded := config.GetPromptsForOperation(operation)
	configured := s.promptConfigs[operation]

	switch operation {
	case config.OperationScan:
		return resolvePrompt(loaded.SystemPrompts.ScanGaps, configured.SystemPrompts.ScanGaps, DefaultSystemPrompts.ScanGaps),
			resolvePrompt(loaded.UserPrompts.ScanGaps, configured.UserPrompts.ScanGaps, DefaultUserPrompts.ScanGaps)
	case config.OperationImprove:
		return resolvePrompt(loaded.SystemPrompts.ImproveResume, configured.SystemPrompts.ImproveResume, DefaultSystemPrompts.ImproveResume),
			resolvePrompt(loaded.UserPrompts.ImproveResume, configured.UserPrompts.ImproveResume, DefaultUserPrompts.ImproveResume)
	case config.OperationReview:
		return resolvePrompt(loaded.SystemPrompts.ReviewResume, configured.SystemPrompts.ReviewResume, DefaultSystemPrompts.ReviewResume),
			resolvePrompt(loaded.UserPrompts.ReviewResume, configured.UserPrompts.ReviewResume, DefaultUserPrompts.ReviewResume)
	case config.OperationCoverLetter:
		return resolvePrompt(loaded.SystemPrompts.WriteCoverLetter, configured.SystemPrompts.WriteCoverLetter, DefaultSystemPrompts.WriteCoverLetter),
			resolvePrompt(loaded.UserPrompts.WriteCoverLetter, configured.UserPrompts.WriteCoverLetter, DefaultUserPrompts.WriteCoverLetter)
	}
	return "", ""
}

// GetModelInfo reports model availability for every configured provider
func (s *Service) GetModelInfo(ctx context.Context) map[string]*ModelInfo {
	info := make(map[string]*ModelInfo, len(s.providers))
	for op, p := range s.providers {
		info[op] = p.GetModelInfo(ctx)
	}
	return info
}

// CircuitBreakerStats returns breaker statistics per operation
func (s *Service) CircuitBreakerStats() map[string]any {
	stats := make(map[string]any, len(s.providers))
	for op, p := range s.providers {
		stats[op] = p.GetCircuitBreakerStats()
	}
	return stats
}

// Close releases every provider
func (s *Service) Close() error {
	closeProviders(s.providers)
	return nil
}

func closeProviders(providers map[string]Provider) {
	for _, p := range providers {
		_ = p.Close()
	}
}
