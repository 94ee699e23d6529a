package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resumeagent/internal/config"
	"resumeagent/internal/observability"
)

// Start serves HTTP until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)

	s.instrumentBackend(om)

	httpServer := s.setupHTTPServer(om)

	s.startPromptWatcher()
	if err := s.startKeyWatcher(); err != nil {
		return err
	}

	s.displayServerInfo()

	return s.startWithGracefulShutdown(ctx, httpServer)
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)
	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return om, nil
}

// instrumentBackend routes engine and model telemetry into om
func (s *Server) instrumentBackend(om *observability.ObservabilityManager) {
	inst, ok := s.backend.Agent.(Instrumentable)
	if !ok {
		return
	}
	inst.SetHooks(om.PipelineHooks())
	inst.SetAIObserver(om.AIObserver())
}

// shutdownObservability handles observability cleanup
func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) *http.Server {
	mux := s.setupRoutes(om)
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      om.HTTPMiddleware()(mux),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startPromptWatcher reloads prompt files on change. Failures are logged and
// the server keeps the prompts it started with.
func (s *Server) startPromptWatcher() {
	if s.AppConfig == nil || !s.AppConfig.Server.WatchPrompts {
		return
	}
	files := s.AppConfig.PromptFilePaths()
	if len(files) == 0 {
		s.Logger.Info("Prompt watching requested but no prompt files are configured")
		return
	}

	watcher, err := config.NewPromptWatcher(files, s.AppConfig.Server.DebounceDelay, s.AppConfig.ReloadPrompts, s.Logger)
	if err != nil {
		s.Logger.LogError(err, "Failed to create prompt watcher")
		return
	}
	if err := watcher.Start(); err != nil {
		s.Logger.LogError(err, "Failed to start prompt watcher")
		return
	}
	s.promptWatcher = watcher
}

// startKeyWatcher polls Vault for new API key versions
func (s *Server) startKeyWatcher() error {
	if s.AppConfig == nil {
		return nil
	}
	vaultCfg := s.AppConfig.Vault
	if !vaultCfg.Enabled || vaultCfg.Secrets.APIKeys == "" || vaultCfg.WatchInterval <= 0 {
		return nil
	}

	client, err := config.NewVaultClient(vaultCfg, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to create vault client for key watcher: %w", err)
	}

	watcher := NewVaultWatcher(client, vaultCfg.Secrets.APIKeys, vaultCfg.WatchInterval, s.onVaultKeys, s.Logger)
	if err := watcher.Start(); err != nil {
		return err
	}
	s.keyWatcher = watcher
	return nil
}

// onVaultKeys swaps in keys from a new Vault secret version. An empty list is
// ignored so a bad write cannot silently disable authentication.
func (s *Server) onVaultKeys(keys []string, err error) {
	if err != nil {
		s.Logger.LogError(err, "Keeping current API keys after Vault fetch failure")
		return
	}
	if len(keys) == 0 {
		s.Logger.Warn("Vault returned no API keys, keeping current set")
		return
	}
	s.SetAPIKeys(keys)
}

// startWithGracefulShutdown serves until ctx is done, then drains connections
func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.stopBackgroundTasks()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.stopBackgroundTasks()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// stopBackgroundTasks stops watchers and the rate limiter
func (s *Server) stopBackgroundTasks() {
	if s.promptWatcher != nil {
		if err := s.promptWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop prompt watcher")
		}
	}
	if s.keyWatcher != nil {
		if err := s.keyWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop Vault key watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
