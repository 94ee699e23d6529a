package cli

import (
	"context"

	"github.com/spf13/cobra"

	"resumeagent/internal/agent"
	"resumeagent/internal/config"
	"resumeagent/internal/errors"
	"resumeagent/internal/types"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "resumeagent",
	Short: "Optimize a resume against a job description with an AI review loop",
	Long: `resumeagent rewrites a resume for a specific job description. It finds the
skills the posting asks for that the resume lacks, lets you confirm which of
them you actually have, then improves and reviews the resume until it scores
high enough, and finally writes a matching cover letter.`,
	SilenceUsage: true,
}

// runner is what the scan and optimize commands drive
type runner interface {
	ScanGaps(ctx context.Context, req types.ScanRequest) types.ScanResult
	Optimize(ctx context.Context, req types.OptimizeRequest) types.OptimizeResult
	Close() error
}

// newRunner builds the agent for a command. Tests replace it.
var newRunner = func(ctx context.Context, cfg *config.Config, logger *errors.Logger) (runner, error) {
	return agent.NewFromConfig(ctx, cfg, logger)
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
