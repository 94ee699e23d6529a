package pipeline

import (
	"context"
	"strings"

	"resumeagent/internal/ai"
	"resumeagent/internal/errors"
	"resumeagent/internal/types"
	"resumeagent/internal/utils"
)

// Stage names
const (
	StageLoader      = "loader"
	StageScanner     = "scanner"
	StageImprover    = "improver"
	StageReviewer    = "reviewer"
	StageCoverLetter = "cover_letter"
	StageExport      = "export"
)

// Artifact names passed to the exporter
const (
	ArtifactResume      = "resume"
	ArtifactCoverLetter = "cover_letter"
)

// noFeedback stands in for feedback before the first review
const noFeedback = "None"

// ContentLoader resolves a reference (URL, PDF path or text) into text
type ContentLoader interface {
	Load(ctx context.Context, ref string) string
}

// Writer performs the generation steps
type Writer interface {
	ScanGaps(ctx context.Context, jobText, resumeText string) (string, error)
	ImproveResume(ctx context.Context, in ai.ImproveInput) (string, error)
	ReviewResume(ctx context.Context, jobText, resume string) (types.ReviewOutput, error)
	WriteCoverLetter(ctx context.Context, jobText, resume string) (string, error)
}

// Exporter renders a markdown document and returns where it was written
type Exporter interface {
	Export(ctx context.Context, runID, name, title, markdown string) (string, error)
}

// LoaderStage resolves the job and resume references into text
func LoaderStage(loader ContentLoader) Stage {
	return Stage{Name: StageLoader, Run: func(ctx context.Context, s State) (Update, error) {
		jobText := loader.Load(ctx, s.JobDescription)
		resumeText := loader.Load(ctx, s.OriginalResume)
		return Update{JobText: &jobText, ResumeText: &resumeText}, nil
	}}
}

// ScannerStage lists the skills the resume is missing. Both inputs are cut
// to charLimit runes. It resets the iteration count.
func ScannerStage(w Writer, charLimit int) Stage {
	return Stage{Name: StageScanner, Run: func(ctx context.Context, s State) (Update, error) {
		gaps, err := w.ScanGaps(ctx, utils.Truncate(s.JobText, charLimit), utils.Truncate(s.ResumeText, charLimit))
		if err != nil {
			return Update{}, err
		}
		return Update{MissingSkills: &gaps, Iteration: Ptr(0)}, nil
	}}
}

// ImproverStage rewrites the best resume so far and counts the pass. With
// strip enabled, lines claiming missing skills that neither the resume nor
// the user's notes back up are removed from the draft.
func ImproverStage(w Writer, strip bool, logger *errors.Logger) Stage {
	return Stage{Name: StageImprover, Run: func(ctx context.Context, s State) (Update, error) {
		base := s.OptimizedResume
		if base == "" {
			base = s.ResumeText
		}
		feedback := s.Feedback
		if strings.TrimSpace(feedback) == "" {
			feedback = noFeedback
		}

		draft, err := w.ImproveResume(ctx, ai.ImproveInput{
			JobText:       s.JobText,
			Resume:        base,
			MissingSkills: s.MissingSkills,
			HumanNotes:    s.HumanNotes,
			Feedback:      feedback,
		})
		if err != nil {
			return Update{}, err
		}

		if strip {
			unsupported := UnsupportedSkills(ParseSkills(s.MissingSkills), s.ResumeText, s.HumanNotes)
			cleaned, removed := StripUnsupported(draft, unsupported)
			if len(removed) > 0 {
				logger.Info("Removed unsupported skill claims",
					"run_id", s.RunID,
					"iteration", s.Iteration+1,
					"skills", unsupported,
					"removed", removed)
				draft = cleaned
			}
		}

		return Update{OptimizedResume: &draft, Iteration: Ptr(s.Iteration + 1)}, nil
	}}
}

// ReviewerStage scores the current draft
func ReviewerStage(w Writer) Stage {
	return Stage{Name: StageReviewer, Run: func(ctx context.Context, s State) (Update, error) {
		review, err := w.ReviewResume(ctx, s.JobText, s.OptimizedResume)
		if err != nil {
			return Update{}, err
		}
		return Update{Score: &review.Score, Feedback: &review.Feedback}, nil
	}}
}

// CoverLetterStage drafts a cover letter from the job prefix and the final resume
func CoverLetterStage(w Writer, charLimit int) Stage {
	return Stage{Name: StageCoverLetter, Run: func(ctx context.Context, s State) (Update, error) {
		letter, err := w.WriteCoverLetter(ctx, utils.Truncate(s.JobText, charLimit), s.OptimizedResume)
		if err != nil {
			return Update{}, err
		}
		return Update{CoverLetter: &letter}, nil
	}}
}

// ExportStage renders the resume and, when present, the cover letter
func ExportStage(x Exporter) Stage {
	return Stage{Name: StageExport, Run: func(ctx context.Context, s State) (Update, error) {
		resumePath, err := x.Export(ctx, s.RunID, ArtifactResume, "Resume", s.OptimizedResume)
		if err != nil {
			return Update{}, err
		}
		update := Update{ResumePath: &resumePath}

		if strings.TrimSpace(s.CoverLetter) != "" {
			letterPath, err := x.Export(ctx, s.RunID, ArtifactCoverLetter, "Cover Letter", s.CoverLetter)
			if err != nil {
				return Update{}, err
			}
			update.CoverLetterPath = &letterPath
		}
		return update, nil
	}}
}
