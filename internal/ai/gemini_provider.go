package ai

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"resumeagent/internal/config"
	"resumeagent/internal/errors"
	"resumeagent/internal/types"
)

const defaultModelCheckTimeout = 10 * time.Second

// GeminiProvider implements Provider for Google Gemini, one instance per operation
type GeminiProvider struct {
	client            *genai.Client
	config            *config.OperationAIConfig
	operation         string
	circuitBreaker    *AICircuitBreaker
	modelBreaker      *ModelCircuitBreaker
	modelCheckTimeout time.Duration
	logger            *errors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(ctx context.Context, cfg *config.OperationAIConfig, operation string, logger *errors.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			fmt.Sprintf("Gemini API key is not configured for %s", operation), nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:            client,
		config:            cfg,
		operation:         operation,
		circuitBreaker:    NewAICircuitBreaker(operation, cfg, logger),
		modelBreaker:      NewModelCircuitBreaker(operation, cfg, logger),
		modelCheckTimeout: defaultModelCheckTimeout,
		logger:            logger,
	}, nil
}

// SetModelCheckTimeout overrides how long GetModelInfo waits for the API
func (g *GeminiProvider) SetModelCheckTimeout(timeout time.Duration) {
	if timeout > 0 {
		g.modelCheckTimeout = timeout
	}
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"operation", g.operation,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"operation", g.operation,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// GenerateText returns free-form model output for the given prompts
func (g *GeminiProvider) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error) {
	result, err := g.generate(ctx, "generate_text", systemPrompt, userPrompt, g.baseConfig())
	if err != nil {
		return "", nil, err
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", extractTokenUsage(result), errors.NewAIError(errors.ErrCodeAIResponseInvalid,
			fmt.Sprintf("Empty response from model for %s", g.operation), nil).
			WithContext("operation", g.operation)
	}
	return text, extractTokenUsage(result), nil
}

// GenerateReview returns a structured score and feedback. The response is
// constrained by a JSON schema and the score is range-checked.
func (g *GeminiProvider) GenerateReview(ctx context.Context, systemPrompt, userPrompt string) (types.ReviewOutput, *TokenUsage, error) {
	result, err := g.generate(ctx, "generate_review", systemPrompt, userPrompt, g.buildReviewSchema())
	if err != nil {
		return types.ReviewOutput{}, nil, err
	}

	usage := extractTokenUsage(result)
	review, err := ParseReview(result.Text())
	if err != nil {
		return types.ReviewOutput{}, usage, err
	}
	return review, usage, nil
}

// ParseReview decodes and validates a structured review payload
func ParseReview(payload string) (types.ReviewOutput, error) {
	var raw struct {
		Score    *int    `json:"score"`
		Feedback *string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return types.ReviewOutput{}, errors.NewAIError(errors.ErrCodeAIResponseInvalid,
			"Failed to parse review response", err)
	}
	if raw.Score == nil {
		return types.ReviewOutput{}, errors.NewAIError(errors.ErrCodeAIResponseInvalid,
			"Review response has no score", nil)
	}
	if raw.Feedback == nil || strings.TrimSpace(*raw.Feedback) == "" {
		return types.ReviewOutput{}, errors.NewAIError(errors.ErrCodeAIResponseInvalid,
			"Review response has no feedback", nil).
			WithContext("score", *raw.Score)
	}
	if *raw.Score < 0 || *raw.Score > 100 {
		return types.ReviewOutput{}, errors.NewAIError(errors.ErrCodeAIResponseInvalid,
			fmt.Sprintf("Review score %d is outside 0-100", *raw.Score), nil).
			WithContext("score", *raw.Score)
	}
	return types.ReviewOutput{Score: *raw.Score, Feedback: *raw.Feedback}, nil
}

// generate runs one GenerateContent call under a span, a per-operation
// timeout and the circuit breaker. Failures are not retried.
func (g *GeminiProvider) generate(ctx context.Context, spanName, systemPrompt, userPrompt string, genaiConfig *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	tracer := otel.Tracer("resumeagent.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+spanName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.String("ai.operation", g.operation),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
		attribute.Int("input.user_prompt_length", len(userPrompt)),
	)

	if systemPrompt != "" {
		if *g.config.UseSystemPrompts {
			genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
		} else {
			userPrompt = systemPrompt + "\n\n" + userPrompt
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, *g.config.Timeout)
	defer cancel()

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(callCtx, g.config.Model, genai.Text(userPrompt), genaiConfig)
	})
	if err != nil {
		appErr := classifyError(err, g.operation)
		span.RecordError(appErr)
		span.SetStatus(codes.Error, appErr.Code)
		span.SetAttributes(attribute.Bool("success", false))
		g.logger.LogError(appErr, "Generation call failed", "operation", g.operation, "model", g.config.Model)
		return nil, appErr
	}

	if usage := extractTokenUsage(result); usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return result, nil
}

// classifyError maps a transport or API failure onto the application error taxonomy
func classifyError(err error, operation string) *errors.AppError {
	var appErr *errors.AppError

	switch {
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		appErr = errors.NewAIError(errors.ErrCodeAICircuitOpen,
			fmt.Sprintf("Circuit breaker open for %s", operation), err)
	case stderrors.Is(err, context.DeadlineExceeded):
		appErr = errors.NewAIError(errors.ErrCodeAITimeout,
			fmt.Sprintf("Generation timed out for %s", operation), err)
	default:
		appErr = errors.NewAIError(errors.ErrCodeAIServiceFailed,
			fmt.Sprintf("Failed to generate content for %s", operation), err)

		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			appErr.Code = errors.ErrCodeAITimeout
		}
		if status := apiStatus(err); status != 0 {
			appErr.WithContext("http_status", status)
			appErr.WithContext("throttled", status == http.StatusTooManyRequests || status >= http.StatusInternalServerError)
		}
	}

	// Generation failures abort the run; nothing upstream re-issues the call
	return appErr.WithContext("operation", operation).WithContext("retryable", false)
}

// apiStatus extracts the HTTP status carried by Gemini or Google API errors
func apiStatus(err error) int {
	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return genaiErr.Code
	}
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy(),
	}
}

// Close implements Provider. The genai client holds no resources in unary mode.
func (g *GeminiProvider) Close() error {
	return nil
}

// baseConfig carries the operation temperature. It is always set, since a
// temperature of zero is a deliberate choice for the scanner and reviewer.
func (g *GeminiProvider) baseConfig() *genai.GenerateContentConfig {
	temperature := *g.config.Temperature
	return &genai.GenerateContentConfig{Temperature: &temperature}
}

// buildReviewSchema creates the schema for review requests
func (g *GeminiProvider) buildReviewSchema() *genai.GenerateContentConfig {
	minScore, maxScore := 0.0, 100.0
	cfg := g.baseConfig()
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score": {
				Type:        genai.TypeInteger,
				Description: "Score between 0 and 100",
				Minimum:     &minScore,
				Maximum:     &maxScore,
			},
			"feedback": {
				Type:        genai.TypeString,
				Description: "One sentence of specific advice to improve the score",
			},
		},
		Required: []string{"score", "feedback"},
	}
	return cfg
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
