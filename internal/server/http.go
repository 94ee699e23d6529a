package server

import (
	"context"
	"sync"
	"time"

	"resumeagent/internal/ai"
	"resumeagent/internal/config"
	"resumeagent/internal/errors"
	"resumeagent/internal/pipeline"
	"resumeagent/internal/types"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Optimizer runs the scan and optimize entry points
type Optimizer interface {
	ScanGaps(ctx context.Context, req types.ScanRequest) types.ScanResult
	Optimize(ctx context.Context, req types.OptimizeRequest) types.OptimizeResult
}

// Instrumentable is implemented by optimizers that accept engine hooks and
// generation observers
type Instrumentable interface {
	SetHooks(hooks pipeline.Hooks)
	SetAIObserver(observer ai.UsageObserver)
}

// ArtifactResolver maps a run and file name to an exported document on disk
type ArtifactResolver interface {
	Resolve(runID, file string) (string, error)
}

// HealthReporter reports model availability and breaker state
type HealthReporter interface {
	GetModelInfo(ctx context.Context) map[string]*ai.ModelInfo
	CircuitBreakerStats() map[string]any
}

// Backend groups what the handlers call into. Artifacts and Health may be nil.
type Backend struct {
	Agent     Optimizer
	Artifacts ArtifactResolver
	Health    HealthReporter
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	backend Backend

	// API keys can be replaced at runtime by the Vault watcher
	keysMu  sync.RWMutex
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	promptWatcher *config.PromptWatcher
	keyWatcher    *VaultWatcher

	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, backend Backend, logger *errors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		backend:        backend,
		APIKeys:        keySet(cfg.APIKeys),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}
}

// keySet converts API keys to a set for O(1) lookup
func keySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			set[key] = true
		}
	}
	return set
}

// SetAPIKeys replaces the accepted API keys
func (s *Server) SetAPIKeys(keys []string) {
	set := keySet(keys)
	s.keysMu.Lock()
	s.APIKeys = set
	s.keysMu.Unlock()
	s.Logger.Info("API keys updated", "count", len(set))
}

func (s *Server) apiKeyState(key string) (authEnabled, valid bool) {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.APIKeys) > 0, s.APIKeys[key]
}

func (s *Server) apiKeyCount() int {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.APIKeys)
}
