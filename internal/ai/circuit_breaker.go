package ai

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"

	"resumeagent/internal/config"
	"resumeagent/internal/errors"
)

// AICircuitBreaker guards the generate calls of one operation
type AICircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*genai.GenerateContentResponse]
}

// ModelCircuitBreaker guards model info lookups used by health checks
type ModelCircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*genai.Model]
}

// callerCancelled reports errors caused by the caller giving up. They say
// nothing about the health of the backend and must not trip the breaker.
func callerCancelled(err error) bool {
	return err == nil || stderrors.Is(err, context.Canceled)
}

func breakerSettings(name, operation string, cfg *config.OperationAIConfig, logger *errors.Logger, readyToTrip func(gobreaker.Counts) bool) gobreaker.Settings {
	return gobreaker.Settings{
		Name:         name,
		MaxRequests:  cfg.CircuitBreaker.MaxRequests,
		Interval:     cfg.CircuitBreaker.Interval,
		Timeout:      cfg.CircuitBreaker.Timeout,
		ReadyToTrip:  readyToTrip,
		IsSuccessful: callerCancelled,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"operation", operation,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.CircuitBreaker.MaxRequests,
				"failure_threshold", cfg.CircuitBreaker.FailureThreshold)
		},
	}
}

// NewAICircuitBreaker creates a circuit breaker configured for one operation.
// It returns nil when the breaker is disabled; a nil breaker passes calls through.
func NewAICircuitBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *AICircuitBreaker {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}

	settings := breakerSettings(fmt.Sprintf("AI-%s", operation), operation, cfg, logger, func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 {
			return false
		}
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= cfg.CircuitBreaker.MinRequests &&
			failureRatio >= cfg.CircuitBreaker.FailureThreshold
	})

	return &AICircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[*genai.GenerateContentResponse](settings),
	}
}

// NewModelCircuitBreaker creates the breaker for model lookups of one operation
func NewModelCircuitBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *ModelCircuitBreaker {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}

	// Model info only feeds health checks, so it trips later than generation
	settings := breakerSettings(fmt.Sprintf("AI-Model-%s", operation), operation, cfg, logger, func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 {
			return false
		}
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 5 && failureRatio >= 0.8
	})

	return &ModelCircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[*genai.Model](settings),
	}
}

// Execute executes the provided function with circuit breaker protection
func (cb *AICircuitBreaker) Execute(fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// ExecuteModel executes the provided model function with circuit breaker protection
func (cb *ModelCircuitBreaker) ExecuteModel(fn func() (*genai.Model, error)) (*genai.Model, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (cb *AICircuitBreaker) GetStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{"enabled": false}
	}
	return breakerStats(cb.cb.Name(), cb.cb.State(), cb.cb.Counts())
}

// GetModelStats returns model circuit breaker statistics
func (cb *ModelCircuitBreaker) GetModelStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{"enabled": false}
	}
	return breakerStats(cb.cb.Name(), cb.cb.State(), cb.cb.Counts())
}

func breakerStats(name string, state gobreaker.State, counts gobreaker.Counts) map[string]any {
	return map[string]any{
		"name":    name,
		"state":   state.String(),
		"counts":  counts,
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (cb *AICircuitBreaker) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}

// IsModelHealthy returns true if the model circuit breaker is in closed state
func (cb *ModelCircuitBreaker) IsModelHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}
