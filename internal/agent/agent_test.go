package agent

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeagent/internal/ai"
	"resumeagent/internal/config"
	"resumeagent/internal/errors"
	"resumeagent/internal/exporter"
	"resumeagent/internal/loader"
	"resumeagent/internal/pipeline"
	"resumeagent/internal/types"
)

const (
	pythonSQLJob = "Requires Python and SQL"
	pythonResume = "I know Python"
)

// scriptedGenerator plays the model for one operation
type scriptedGenerator struct {
	mu      sync.Mutex
	texts   []string
	reviews []types.ReviewOutput
	err     error
	prompts []string
}

func (g *scriptedGenerator) GenerateText(_ context.Context, _, user string) (string, *ai.TokenUsage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, user)
	if g.err != nil {
		return "", nil, g.err
	}
	i := min(len(g.prompts), len(g.texts)) - 1
	return g.texts[i], &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, nil
}

func (g *scriptedGenerator) GenerateReview(_ context.Context, _, user string) (types.ReviewOutput, *ai.TokenUsage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, user)
	if g.err != nil {
		return types.ReviewOutput{}, nil, g.err
	}
	i := min(len(g.prompts), len(g.reviews)) - 1
	return g.reviews[i], nil, nil
}

func testLogger() *errors.Logger {
	return errors.NewLogger(slog.LevelError)
}

type fixture struct {
	scan, improve, review, letter *scriptedGenerator
	agent                         *Agent
	outputDir                     string
}

func newFixture(t *testing.T, withExport bool) *fixture {
	t.Helper()
	f := &fixture{
		scan: &scriptedGenerator{texts: []string{"- SQL\n- Data modeling\n- ETL pipelines"}},
		improve: &scriptedGenerator{texts: []string{
			"# Jane Doe\n\n## Skills\nSkills: Python, SQL\n\n## Experience\n- Built ETL pipelines in SQL Server\n- Conceptual Knowledge of Data modeling",
		}},
		review: &scriptedGenerator{reviews: []types.ReviewOutput{{Score: 90, Feedback: "Solid match"}}},
		letter: &scriptedGenerator{texts: []string{"Dear Hiring Team,\n\nI write Python every day."}},
	}

	logger := testLogger()
	service := ai.NewServiceWithGenerators(ai.Generators{
		Scan:        f.scan,
		Improve:     f.improve,
		Review:      f.review,
		CoverLetter: f.letter,
	}, nil, logger)

	deps := pipeline.Deps{
		Loader: loader.New(config.LoaderConfig{}, logger),
		Writer: service,
	}
	if withExport {
		f.outputDir = t.TempDir()
		deps.Exporter = exporter.NewWithRenderer(f.outputDir, exporter.HTMLRenderer{}, logger)
	}

	f.agent = New(deps, pipeline.DefaultOptions(), logger)
	return f
}

func TestScanGaps(t *testing.T) {
	f := newFixture(t, false)

	result := f.agent.ScanGaps(context.Background(), types.ScanRequest{
		JobDescription: pythonSQLJob,
		OriginalResume: pythonResume,
	})

	assert.Empty(t, result.Error)
	assert.NotEmpty(t, result.RunID)
	assert.Contains(t, result.MissingSkills, "SQL")
	require.Len(t, f.scan.prompts, 1)
	assert.Contains(t, f.scan.prompts[0], pythonSQLJob)
	assert.Contains(t, f.scan.prompts[0], pythonResume)
	assert.Empty(t, f.improve.prompts, "scan must not run the improver")
}

func TestOptimizeDoesNotClaimUnsupportedSkills(t *testing.T) {
	f := newFixture(t, true)

	result := f.agent.Optimize(context.Background(), types.OptimizeRequest{
		JobDescription: pythonSQLJob,
		OriginalResume: pythonResume,
	})

	require.Empty(t, result.Error)
	assert.Equal(t, 90, result.Score)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, types.OutcomeAccepted, result.Outcome)
	assert.Equal(t, "Solid match", result.Feedback)

	assert.Contains(t, result.OptimizedResume, "Skills: Python")
	assert.NotContains(t, result.OptimizedResume, "SQL", "SQL has no backing in the resume or notes")
	assert.Contains(t, result.OptimizedResume, "Conceptual Knowledge of Data modeling")

	assert.Contains(t, result.CoverLetter, "Dear Hiring Team")
	assert.Equal(t, filepath.Join(f.outputDir, result.RunID, "resume.html"), result.ResumePath)
	assert.Equal(t, filepath.Join(f.outputDir, result.RunID, "cover_letter.html"), result.CoverLetterPath)

	exported, err := os.ReadFile(result.ResumePath)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "<title>Resume</title>")
}

func TestOptimizeWithScanOutputAsNotes(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	scan := f.agent.ScanGaps(ctx, types.ScanRequest{JobDescription: pythonSQLJob, OriginalResume: pythonResume})
	require.Empty(t, scan.Error)

	// The user confirms SQL experience while editing the scan output
	notes := scan.MissingSkills + "\nI wrote SQL reports at my last job."
	result := f.agent.Optimize(ctx, types.OptimizeRequest{
		JobDescription: pythonSQLJob,
		OriginalResume: pythonResume,
		HumanNotes:     notes,
	})

	require.Empty(t, result.Error)
	assert.NotEqual(t, scan.RunID, result.RunID)
	assert.Contains(t, result.OptimizedResume, "Skills: Python, SQL", "notes back the SQL claim")

	require.Len(t, f.improve.prompts, 1)
	assert.Contains(t, f.improve.prompts[0], "I wrote SQL reports")
	assert.Contains(t, f.improve.prompts[0], "None", "first pass has no prior feedback")
}

func TestOptimizeRetriesUntilAccepted(t *testing.T) {
	f := newFixture(t, false)
	f.review.reviews = []types.ReviewOutput{
		{Score: 60, Feedback: "Quantify results"},
		{Score: 86, Feedback: "Good"},
	}

	result := f.agent.Optimize(context.Background(), types.OptimizeRequest{
		JobDescription: pythonSQLJob,
		OriginalResume: pythonResume,
	})

	require.Empty(t, result.Error)
	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, 86, result.Score)
	assert.Equal(t, types.OutcomeAccepted, result.Outcome)
	require.Len(t, f.improve.prompts, 2)
	assert.Contains(t, f.improve.prompts[1], "Quantify results")
}

func TestOptimizeExhaustedStillWritesCoverLetter(t *testing.T) {
	f := newFixture(t, false)
	f.review.reviews = []types.ReviewOutput{{Score: 40, Feedback: "Weak"}}

	result := f.agent.Optimize(context.Background(), types.OptimizeRequest{
		JobDescription: pythonSQLJob,
		OriginalResume: pythonResume,
	})

	require.Empty(t, result.Error)
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 40, result.Score)
	assert.Equal(t, types.OutcomeExhausted, result.Outcome)
	assert.NotEmpty(t, result.CoverLetter)
	assert.Empty(t, result.ResumePath, "export is disabled")
}

func TestErrorShapedResults(t *testing.T) {
	timeout := errors.NewAIError(errors.ErrCodeAITimeout, "AI request timed out", context.DeadlineExceeded)

	t.Run("scan", func(t *testing.T) {
		f := newFixture(t, false)
		f.scan.err = timeout

		result := f.agent.ScanGaps(context.Background(), types.ScanRequest{JobDescription: "job", OriginalResume: "resume"})
		assert.NotEmpty(t, result.Error)
		assert.True(t, strings.HasPrefix(result.MissingSkills, "Error during scan: "))
		assert.Contains(t, result.MissingSkills, "AI request timed out")
	})

	t.Run("optimize", func(t *testing.T) {
		f := newFixture(t, false)
		f.review.err = timeout

		result := f.agent.Optimize(context.Background(), types.OptimizeRequest{JobDescription: "job", OriginalResume: "resume"})
		assert.NotEmpty(t, result.Error)
		assert.True(t, strings.HasPrefix(result.OptimizedResume, "Error: "))
		assert.Zero(t, result.Score)
		assert.Empty(t, result.CoverLetter)
		assert.Empty(t, f.letter.prompts, "a failed run stops before the cover letter")
	})
}

func TestErrorMessage(t *testing.T) {
	cause := stderrors.New("quota exceeded")
	wrapped := errors.NewPipelineError(errors.ErrCodePipelineStageFailed, "stage improver failed", cause)
	assert.Equal(t, "quota exceeded", errorMessage(wrapped))

	plain := errors.NewPipelineError(errors.ErrCodePipelineInvalid, "no stages", nil)
	assert.Equal(t, plain.Error(), errorMessage(plain))
}

func TestHooksAndObserver(t *testing.T) {
	f := newFixture(t, false)

	var stages []string
	f.agent.SetHooks(pipeline.Hooks{
		StageCompleted: func(_ context.Context, stage string, _ time.Duration, _ error) {
			stages = append(stages, stage)
		},
	})
	// No owned service, so this is a no-op rather than a panic
	f.agent.SetAIObserver(func(context.Context, string, time.Duration, *ai.TokenUsage, error) {})

	f.agent.ScanGaps(context.Background(), types.ScanRequest{JobDescription: "job", OriginalResume: "resume"})
	assert.Equal(t, []string{pipeline.StageLoader, pipeline.StageScanner}, stages)
	assert.Nil(t, f.agent.Service())
	assert.Nil(t, f.agent.Exporter())
	assert.NoError(t, f.agent.Close())
}
