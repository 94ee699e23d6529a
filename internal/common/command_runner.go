package common

import (
	"context"
	"io"
	"time"

	"resumeagent/internal/errors"
)

// AgentOperationFunc runs one agent entry point. Entry points report
// failures inside their result, so there is no error return.
type AgentOperationFunc[Output any] func(context.Context) Output

// FailureFunc extracts the error message from a result, empty on success
type FailureFunc[Output any] func(Output) string

// RunAgentCommand runs an agent operation and writes its result. The result
// is written even when it reports a failure, since it carries the
// user-facing error text; the failure is then returned so the process exits
// non-zero.
func RunAgentCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	stdout io.Writer,
	cmdConfig CommandConfig,
	operation string,
	run AgentOperationFunc[Output],
	failed FailureFunc[Output],
) error {
	outputHandler := NewOutputHandlerWithWriter(stdout, logger)

	logger.Info("Starting operation", "operation", operation, "format", cmdConfig.OutputFormat)
	start := time.Now()
	result := run(ctx)

	if err := outputHandler.HandleOutput(result, cmdConfig); err != nil {
		return err
	}

	if msg := failed(result); msg != "" {
		return errors.NewPipelineError(errors.ErrCodePipelineStageFailed, msg, nil).
			WithContext("operation", operation)
	}

	logger.Info("Operation completed", "operation", operation, "duration", time.Since(start))
	return nil
}
