package common

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumeagent/internal/errors"
	"resumeagent/internal/types"
)

func testLogger() *errors.Logger {
	return errors.NewLogger(slog.LevelError)
}

func TestResolveReference(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "job.txt")
	if err := os.WriteFile(textFile, []byte("Requires Python and SQL"), 0600); err != nil {
		t.Fatal(err)
	}
	pdfFile := filepath.Join(dir, "resume.PDF")
	if err := os.WriteFile(pdfFile, []byte("%PDF-1.4"), 0600); err != nil {
		t.Fatal(err)
	}

	fp := NewFileProcessor(testLogger())

	tests := []struct {
		name     string
		value    string
		file     string
		expected string
		wantErr  bool
	}{
		{name: "inline value", value: "I know Python", expected: "I know Python"},
		{name: "url value", value: "https://example.com/job", expected: "https://example.com/job"},
		{name: "text file wins", value: "ignored", file: textFile, expected: "Requires Python and SQL"},
		{name: "pdf file passes path", file: pdfFile, expected: pdfFile},
		{name: "missing file", file: filepath.Join(dir, "nope.txt"), wantErr: true},
		{name: "directory", file: dir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fp.ResolveReference(tt.value, tt.file)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRequireReference(t *testing.T) {
	if err := RequireReference("job", "  "); !errors.HasCode(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("Expected INVALID_REQUEST, got %v", err)
	}
	if err := RequireReference("job", "text"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestHandleOutputToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "scan.md")
	handler := NewOutputHandlerWithWriter(&bytes.Buffer{}, testLogger())

	err := handler.HandleOutput(types.ScanResult{MissingSkills: "- SQL"}, CommandConfig{OutputFile: out, OutputFormat: "markdown"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Expected output file, got %v", err)
	}
	if !strings.Contains(string(data), "- SQL") {
		t.Errorf("Unexpected file content: %q", data)
	}
}

func TestHandleOutputUnknownFormat(t *testing.T) {
	handler := NewOutputHandlerWithWriter(&bytes.Buffer{}, testLogger())
	err := handler.HandleOutput(types.ScanResult{}, CommandConfig{OutputFormat: "yaml"})
	if !errors.HasCode(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Expected INVALID_FORMAT, got %v", err)
	}
}

func TestRunAgentCommand(t *testing.T) {
	failed := func(r types.ScanResult) string { return r.Error }

	t.Run("success", func(t *testing.T) {
		var stdout bytes.Buffer
		err := RunAgentCommand(context.Background(), testLogger(), &stdout,
			CommandConfig{OutputFormat: "text"}, "scan",
			func(context.Context) types.ScanResult { return types.ScanResult{MissingSkills: "- SQL"} },
			failed)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !strings.Contains(stdout.String(), "- SQL") {
			t.Errorf("Expected skills on stdout, got %q", stdout.String())
		}
	})

	t.Run("failure is printed and returned", func(t *testing.T) {
		var stdout bytes.Buffer
		err := RunAgentCommand(context.Background(), testLogger(), &stdout,
			CommandConfig{OutputFormat: "text"}, "scan",
			func(context.Context) types.ScanResult {
				return types.ScanResult{MissingSkills: "Error during scan: boom", Error: "boom"}
			},
			failed)
		if err == nil {
			t.Fatal("Expected error")
		}
		if !strings.Contains(stdout.String(), "Error during scan: boom") {
			t.Errorf("Expected error text on stdout, got %q", stdout.String())
		}
	})
}
