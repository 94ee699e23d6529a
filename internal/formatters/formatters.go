package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"resumeagent/internal/types"
)

// Data type keys used by the registry
const (
	typeAny      = "any"
	typeScan     = "ScanResult"
	typeOptimize = "OptimizeResult"
)

// Formatter renders a result in one output format
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry maps format -> data type -> formatter
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter
}

// NewFormatterRegistry creates a registry with the built-in formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", typeAny, &JSONFormatter{})
	registry.RegisterFormatter("text", typeScan, &ScanTextFormatter{})
	registry.RegisterFormatter("markdown", typeScan, &ScanMarkdownFormatter{})
	registry.RegisterFormatter("text", typeOptimize, &OptimizeTextFormatter{})
	registry.RegisterFormatter("markdown", typeOptimize, &OptimizeMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a formatter for a format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format renders data, preferring a type-specific formatter over the generic one
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[typeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all registered formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ScanResult:
		return typeScan
	case types.OptimizeResult:
		return typeOptimize
	default:
		return typeAny
	}
}

// JSONFormatter handles any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return typeAny
}

// ScanTextFormatter prints the missing skills for editing
type ScanTextFormatter struct{}

func (f *ScanTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ScanResult)
	if !ok {
		return "", fmt.Errorf("expected ScanResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== MISSING SKILLS ===\n\n")
	output.WriteString(strings.TrimSpace(result.MissingSkills))
	output.WriteString("\n")
	return output.String(), nil
}

func (f *ScanTextFormatter) SupportedType() string {
	return typeScan
}

// ScanMarkdownFormatter renders the gap scan as a markdown section
type ScanMarkdownFormatter struct{}

func (f *ScanMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ScanResult)
	if !ok {
		return "", fmt.Errorf("expected ScanResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Missing Skills\n\n")
	output.WriteString(strings.TrimSpace(result.MissingSkills))
	output.WriteString("\n")
	return output.String(), nil
}

func (f *ScanMarkdownFormatter) SupportedType() string {
	return typeScan
}

// OptimizeTextFormatter handles text formatting for optimization results
type OptimizeTextFormatter struct{}

func (f *OptimizeTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.OptimizeResult)
	if !ok {
		return "", fmt.Errorf("expected OptimizeResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== OPTIMIZED RESUME ===\n\n")
	output.WriteString(strings.TrimSpace(result.OptimizedResume))
	output.WriteString("\n\n")

	if result.Error != "" {
		return output.String(), nil
	}

	output.WriteString("=== REVIEW ===\n")
	fmt.Fprintf(&output, "Score: %d/100\n", result.Score)
	fmt.Fprintf(&output, "Iterations: %d (%s)\n\n", result.Iterations, result.Outcome)
	output.WriteString("Feedback:\n")
	output.WriteString(strings.TrimSpace(result.Feedback))
	output.WriteString("\n")

	if result.CoverLetter != "" {
		output.WriteString("\n=== COVER LETTER ===\n\n")
		output.WriteString(strings.TrimSpace(result.CoverLetter))
		output.WriteString("\n")
	}

	if result.ResumePath != "" || result.CoverLetterPath != "" {
		output.WriteString("\n=== FILES ===\n")
		if result.ResumePath != "" {
			fmt.Fprintf(&output, "Resume: %s\n", result.ResumePath)
		}
		if result.CoverLetterPath != "" {
			fmt.Fprintf(&output, "Cover letter: %s\n", result.CoverLetterPath)
		}
	}

	return output.String(), nil
}

func (f *OptimizeTextFormatter) SupportedType() string {
	return typeOptimize
}

// OptimizeMarkdownFormatter handles markdown formatting for optimization results
type OptimizeMarkdownFormatter struct{}

func (f *OptimizeMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.OptimizeResult)
	if !ok {
		return "", fmt.Errorf("expected OptimizeResult, got %T", data)
	}

	var output strings.Builder

	// The resume is markdown already and goes first, unchanged
	output.WriteString(strings.TrimSpace(result.OptimizedResume))
	output.WriteString("\n\n")

	if result.Error != "" {
		return output.String(), nil
	}

	output.WriteString("---\n\n## Review\n\n")
	fmt.Fprintf(&output, "**Score:** %d/100  \n", result.Score)
	fmt.Fprintf(&output, "**Iterations:** %d (%s)\n\n", result.Iterations, result.Outcome)
	output.WriteString(strings.TrimSpace(result.Feedback))
	output.WriteString("\n")

	if result.CoverLetter != "" {
		output.WriteString("\n---\n\n## Cover Letter\n\n")
		output.WriteString(strings.TrimSpace(result.CoverLetter))
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (f *OptimizeMarkdownFormatter) SupportedType() string {
	return typeOptimize
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
