package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resumeagent/internal/common"
	"resumeagent/internal/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the skills a job asks for that the resume does not show",
	Long: `Scan compares a job description with a resume and lists the skills,
technologies and qualifications the job requires that the resume lacks.
Review the list, keep the items you genuinely have, and pass it to
'optimize --notes-file' so the improved resume may mention them.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return prepareOutput(cmd, &scanConfig)
	},
	RunE: runScan,
}

var (
	scanConfig common.CommandConfig
	scanInputs documentFlags
)

func init() {
	scanInputs.register(scanCmd)
	registerOutputFlags(scanCmd, &scanConfig)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	job, resume, err := scanInputs.resolve(logger)
	if err != nil {
		return err
	}

	r, err := newRunner(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.LogError(err, "Failed to close agent")
		}
	}()

	req := types.ScanRequest{JobDescription: job, OriginalResume: resume}
	err = common.RunAgentCommand(
		cmd.Context(),
		logger,
		cmd.OutOrStdout(),
		scanConfig,
		"scan",
		func(ctx context.Context) types.ScanResult { return r.ScanGaps(ctx, req) },
		func(res types.ScanResult) string { return res.Error },
	)
	if err != nil {
		return fmt.Errorf("failed to scan resume: %w", err)
	}
	return nil
}
