package cli

import (
	"github.com/spf13/cobra"

	"resumeagent/internal/common"
	"resumeagent/internal/errors"
)

// documentFlags are the job and resume inputs shared by scan and optimize.
// A value may be inline text, a URL or a PDF path; the -file variants read
// a local file instead.
type documentFlags struct {
	job        string
	jobFile    string
	resume     string
	resumeFile string
}

func (f *documentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.job, "job", "", "Job description: inline text, URL or PDF path")
	cmd.Flags().StringVar(&f.jobFile, "job-file", "", "Read the job description from a text or PDF file")
	cmd.Flags().StringVar(&f.resume, "resume", "", "Resume: inline text, URL or PDF path")
	cmd.Flags().StringVar(&f.resumeFile, "resume-file", "", "Read the resume from a text or PDF file")
	cmd.MarkFlagsMutuallyExclusive("job", "job-file")
	cmd.MarkFlagsMutuallyExclusive("resume", "resume-file")
}

// resolve returns loader references for the job and the resume
func (f *documentFlags) resolve(logger *errors.Logger) (job, resume string, err error) {
	fp := common.NewFileProcessor(logger)

	if job, err = fp.ResolveReference(f.job, f.jobFile); err != nil {
		return "", "", err
	}
	if err = common.RequireReference("job", job); err != nil {
		return "", "", err
	}

	if resume, err = fp.ResolveReference(f.resume, f.resumeFile); err != nil {
		return "", "", err
	}
	if err = common.RequireReference("resume", resume); err != nil {
		return "", "", err
	}
	return job, resume, nil
}

// registerOutputFlags adds --format and -o and format completion
func registerOutputFlags(cmd *cobra.Command, out *common.CommandConfig) {
	cmd.Flags().StringVarP(&out.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&out.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// prepareOutput applies the default format and validates it
func prepareOutput(cmd *cobra.Command, out *common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	if out.OutputFormat == "" {
		out.OutputFormat = cfg.App.DefaultFormat
	}
	return common.ValidateOutputFormat(out.OutputFormat, cfg.App.SupportedFormats)
}
