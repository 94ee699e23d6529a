package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"resumeagent/internal/errors"
	"resumeagent/internal/utils"
)

// FileProcessor handles the files named on the command line
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil && fp.logger != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return string(content), nil
}

// WriteFile writes content to a file, creating its directory first
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := utils.EnsureDir(filepath.Dir(filename)); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory: %s", filepath.Dir(filename)), err)
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}

// ResolveReference turns a --x / --x-file flag pair into a loader reference.
// A text file is read into inline text. A PDF file is passed on as its path
// so the loader extracts it. Without a file the flag value is used as is:
// inline text, a URL or a PDF path.
func (fp *FileProcessor) ResolveReference(value, filename string) (string, error) {
	if filename == "" {
		return value, nil
	}

	if err := utils.ValidateInputFile(filename); err != nil {
		return "", errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	if utils.IsPDFFile(filename) {
		return filename, nil
	}
	if !utils.IsTextFile(filename) && fp.logger != nil {
		fp.logger.Warn("File may not be a text file", "filename", filename)
	}

	return fp.ReadFile(filename)
}

// RequireReference rejects an empty reference for a required input
func RequireReference(name, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("%s is required (use --%s or --%s-file)", name, name, name), nil)
	}
	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
