package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewAIError(ErrCodeAITimeout, "review timed out", nil),
			expected: "AI_TIMEOUT: review timed out",
		},
		{
			name:     "with cause",
			err:      NewPipelineError(ErrCodePipelineStageFailed, "stage improver failed", fmt.Errorf("boom")),
			expected: "PIPELINE_STAGE_FAILED: stage improver failed (caused by: boom)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	inner := NewAIError(ErrCodeAIResponseInvalid, "score out of range", nil)
	outer := NewPipelineError(ErrCodePipelineStageFailed, "stage reviewer failed", inner)
	wrapped := fmt.Errorf("run failed: %w", outer)

	if !HasCode(wrapped, ErrCodePipelineStageFailed) {
		t.Error("Expected outer code to be found")
	}
	if !HasCode(wrapped, ErrCodeAIResponseInvalid) {
		t.Error("Expected inner code to be found through the cause chain")
	}
	if HasCode(wrapped, ErrCodeAITimeout) {
		t.Error("Expected unrelated code to be absent")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeAITimeout) {
		t.Error("Expected plain errors to carry no code")
	}
}

func TestLogErrorIncludesContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	err := NewExportError(ErrCodeExportFailed, "write failed", fmt.Errorf("disk full")).
		WithContext("run_id", "abc")
	logger.LogError(err, "Export failed", "artifact", "resume")

	var record map[string]any
	if jsonErr := json.Unmarshal(buf.Bytes(), &record); jsonErr != nil {
		t.Fatalf("Failed to decode log record: %v", jsonErr)
	}

	expected := map[string]any{
		"msg":         "Export failed",
		"error_code":  ErrCodeExportFailed,
		"error_type":  string(ErrorTypeExport),
		"error_cause": "disk full",
		"run_id":      "abc",
		"artifact":    "resume",
	}
	for key, want := range expected {
		if record[key] != want {
			t.Errorf("Expected %s=%v, got %v", key, want, record[key])
		}
	}
}

func TestNewLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := New(level); err != nil {
			t.Errorf("Expected level %s to be valid, got %v", level, err)
		}
	}
	if _, err := New("verbose"); err == nil {
		t.Error("Expected error for invalid log level")
	}
}
