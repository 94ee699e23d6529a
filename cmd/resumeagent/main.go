package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resumeagent/internal/cli"
	"resumeagent/internal/config"
	"resumeagent/internal/errors"
)

func main() {
	// Cancelled on interrupt so in-flight generation calls stop
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		logger.LogError(err, "Failed to load secrets from Vault")
		os.Exit(1)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		logger.LogError(err, "Missing AI credentials")
		os.Exit(1)
	}

	logger.Info("Starting resumeagent",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"ai_provider", cfg.AI.Provider,
		"ai_model", cfg.AI.Model)

	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Application execution failed")
		os.Exit(1)
	}
}

// loadConfig reads RESUMEAGENT_CONFIG_FILE when set, otherwise searches the
// default locations
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("RESUMEAGENT_CONFIG_FILE"); path != "" {
		return config.LoadConfigFromFile(path)
	}
	return config.LoadConfig()
}
