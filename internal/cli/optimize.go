package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"resumeagent/internal/common"
	"resumeagent/internal/errors"
	"resumeagent/internal/types"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Improve a resume for a job and write a cover letter",
	Long: `Optimize rewrites the resume for the job description, has it reviewed and
retries with the reviewer's feedback until the score reaches the threshold or
the attempt limit is hit, then writes a cover letter.

Skills the job asks for that the resume does not show are removed from the
result unless they appear in --notes. Use --interactive to run a scan first
and edit the gap list before optimizing.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if optimizeInteractive && (optimizeNotes != "" || optimizeNotesFile != "") {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				"--interactive cannot be combined with --notes or --notes-file", nil)
		}
		return prepareOutput(cmd, &optimizeConfig)
	},
	RunE: runOptimize,
}

var (
	optimizeConfig      common.CommandConfig
	optimizeInputs      documentFlags
	optimizeNotes       string
	optimizeNotesFile   string
	optimizeInteractive bool
)

func init() {
	optimizeInputs.register(optimizeCmd)
	registerOutputFlags(optimizeCmd, &optimizeConfig)
	optimizeCmd.Flags().StringVar(&optimizeNotes, "notes", "", "Skills you have that the resume does not mention")
	optimizeCmd.Flags().StringVar(&optimizeNotesFile, "notes-file", "", "Read notes from a file, such as edited scan output")
	optimizeCmd.Flags().BoolVarP(&optimizeInteractive, "interactive", "i", false, "Scan first, then edit the gap list on stdin")
	optimizeCmd.MarkFlagsMutuallyExclusive("notes", "notes-file")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	job, resume, err := optimizeInputs.resolve(logger)
	if err != nil {
		return err
	}

	notes := optimizeNotes
	if optimizeNotesFile != "" {
		if notes, err = common.NewFileProcessor(logger).ReadFile(optimizeNotesFile); err != nil {
			return err
		}
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

	if optimizeInteractive {
		notes, err = collectNotes(cmd.Context(), r, job, resume, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	req := types.OptimizeRequest{JobDescription: job, OriginalResume: resume, HumanNotes: notes}
	logger.Info("Starting resume optimization",
		"notes_chars", len(notes),
		"interactive", optimizeInteractive,
		"output_format", optimizeConfig.OutputFormat)

	err = common.RunAgentCommand(
		cmd.Context(),
		logger,
		cmd.OutOrStdout(),
		optimizeConfig,
		"optimize",
		func(ctx context.Context) types.OptimizeResult { return r.Optimize(ctx, req) },
		func(res types.OptimizeResult) string { return res.Error },
	)
	if err != nil {
		return fmt.Errorf("failed to optimize resume: %w", err)
	}
	return nil
}

// collectNotes runs a scan, shows the gaps and reads the edited list from
// in until EOF. Empty input means no notes: every gap stays unsupported.
func collectNotes(ctx context.Context, r runner, job, resume string, in io.Reader, out io.Writer) (string, error) {
	scan := r.ScanGaps(ctx, types.ScanRequest{JobDescription: job, OriginalResume: resume})
	if scan.Error != "" {
		return "", errors.NewPipelineError(errors.ErrCodePipelineStageFailed, scan.Error, nil).
			WithContext("operation", "scan")
	}

	_, _ = fmt.Fprintf(out, "Missing skills found:\n\n%s\n\n", strings.TrimSpace(scan.MissingSkills))
	_, _ = fmt.Fprintln(out, "Enter the skills you actually have, one per line.")
	_, _ = fmt.Fprintln(out, "Finish with Ctrl-D. Leave empty if you have none of them.")

	edited, err := io.ReadAll(in)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read notes from stdin", err)
	}
	return strings.TrimSpace(string(edited)), nil
}
