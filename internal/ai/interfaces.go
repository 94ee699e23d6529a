package ai

import (
	"context"
	"time"

	"resumeagent/internal/types"
)

// Generator is the text-generation boundary used by every pipeline stage.
// Both methods return token usage when the backend reports it; callers can
// ignore it.
type Generator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error)
	GenerateReview(ctx context.Context, systemPrompt, userPrompt string) (types.ReviewOutput, *TokenUsage, error)
}

// Provider is a Generator backed by a remote model with health reporting
type Provider interface {
	Generator
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// UsageObserver is notified after every generation call, successful or not
type UsageObserver func(ctx context.Context, operation string, duration time.Duration, usage *TokenUsage, err error)
