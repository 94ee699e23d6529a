package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"resumeagent/internal/ai"
	"resumeagent/internal/errors"
	"resumeagent/internal/types"
)

func quietLogger() *errors.Logger {
	return errors.NewLogger(slog.LevelError)
}

// echoLoader returns references unchanged
type echoLoader struct{}

func (echoLoader) Load(_ context.Context, ref string) string { return ref }

// scriptedWriter replays a fixed list of review scores and records calls
type scriptedWriter struct {
	mu sync.Mutex

	gaps    string
	drafts  []string
	scores  []int
	letter  string
	failOn  string
	failErr error

	calls    []string
	improves []ai.ImproveInput
	reviewed []string
}

func (w *scriptedWriter) record(call string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
	if call == w.failOn {
		return w.failErr
	}
	return nil
}

func (w *scriptedWriter) count(call string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (w *scriptedWriter) ScanGaps(_ context.Context, _, _ string) (string, error) {
	if err := w.record("scan"); err != nil {
		return "", err
	}
	return w.gaps, nil
}

func (w *scriptedWriter) ImproveResume(_ context.Context, in ai.ImproveInput) (string, error) {
	if err := w.record("improve"); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.improves = append(w.improves, in)
	n := len(w.improves)
	if n <= len(w.drafts) {
		return w.drafts[n-1], nil
	}
	return fmt.Sprintf("draft %d", n), nil
}

func (w *scriptedWriter) ReviewResume(_ context.Context, _, resume string) (types.ReviewOutput, error) {
	if err := w.record("review"); err != nil {
		return types.ReviewOutput{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reviewed = append(w.reviewed, resume)
	i := len(w.reviewed) - 1
	score := 0
	if i < len(w.scores) {
		score = w.scores[i]
	} else if len(w.scores) > 0 {
		score = w.scores[len(w.scores)-1]
	}
	return types.ReviewOutput{Score: score, Feedback: fmt.Sprintf("feedback %d", i+1)}, nil
}

func (w *scriptedWriter) WriteCoverLetter(_ context.Context, _, _ string) (string, error) {
	if err := w.record("cover_letter"); err != nil {
		return "", err
	}
	return w.letter, nil
}

// recordingExporter remembers what it was asked to render
type recordingExporter struct {
	exported map[string]string
	err      error
}

func (x *recordingExporter) Export(_ context.Context, runID, name, _, markdown string) (string, error) {
	if x.err != nil {
		return "", x.err
	}
	if x.exported == nil {
		x.exported = make(map[string]string)
	}
	x.exported[name] = markdown
	return fmt.Sprintf("out/%s/%s.pdf", runID, name), nil
}
