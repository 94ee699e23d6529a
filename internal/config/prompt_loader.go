package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptScope names a set of prompt settings: the global one or an operation
type promptScope struct {
	name    string
	prompts *PromptConfig
}

func (c *Config) promptScopes() []promptScope {
	return []promptScope{
		{"global", &c.AI.CustomPrompts},
		{OperationScan, &c.AI.Scan.CustomPrompts},
		{OperationImprove, &c.AI.Improve.CustomPrompts},
		{OperationReview, &c.AI.Review.CustomPrompts},
		{OperationCoverLetter, &c.AI.CoverLetter.CustomPrompts},
	}
}

// promptFile pairs a configured prompt file path with the loaded field it fills
type promptFile struct {
	name   string
	path   string
	target *string
}

func promptFiles(set *PromptSet, loaded *LoadedPromptSet) []promptFile {
	return []promptFile{
		{"scanGaps", set.ScanGapsFile, &loaded.ScanGaps},
		{"improveResume", set.ImproveResumeFile, &loaded.ImproveResume},
		{"reviewResume", set.ReviewResumeFile, &loaded.ReviewResume},
		{"writeCoverLetter", set.WriteCoverLetterFile, &loaded.WriteCoverLetter},
	}
}

// PromptFilePaths returns every configured prompt file path
func (c *Config) PromptFilePaths() []string {
	var paths []string
	var scratch LoadedPromptSet
	for _, scope := range c.promptScopes() {
		for _, set := range []*PromptSet{&scope.prompts.SystemPrompts, &scope.prompts.UserPrompts} {
			for _, f := range promptFiles(set, &scratch) {
				if f.path != "" {
					paths = append(paths, f.path)
				}
			}
		}
	}
	return paths
}

// loadPromptsFromFiles loads custom prompts from external files if file paths are specified
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	all := AllLoadedPrompts{Operations: make(map[string]LoadedPrompts)}
	for _, scope := range c.promptScopes() {
		var loaded LoadedPrompts
		if err := c.loadPromptSet(&scope.prompts.SystemPrompts, &loaded.SystemPrompts, "system"); err != nil {
			return fmt.Errorf("failed to load %s system prompts: %w", scope.name, err)
		}
		if err := c.loadPromptSet(&scope.prompts.UserPrompts, &loaded.UserPrompts, "user"); err != nil {
			return fmt.Errorf("failed to load %s user prompts: %w", scope.name, err)
		}
		if scope.name == "global" {
			all.Global = loaded
		} else {
			all.Operations[scope.name] = loaded
		}
	}

	loadedPrompts.replace(all)
	logPromptLoadingSummary(all)
	return nil
}

// ReloadPrompts re-reads every configured prompt file. On failure the
// previously loaded prompts stay in effect.
func (c *Config) ReloadPrompts() error {
	if err := c.validatePromptFiles(); err != nil {
		return err
	}
	return c.loadPromptsFromFiles()
}

func (c *Config) loadPromptSet(set *PromptSet, target *LoadedPromptSet, promptType string) error {
	for _, f := range promptFiles(set, target) {
		if f.path == "" {
			continue
		}
		content, err := loadPromptFromFile(f.path, promptType, f.name)
		if err != nil {
			return err
		}
		*f.target = content
	}
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, path := range c.PromptFilePaths() {
		absPath, err := filepath.Abs(path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid prompt path: %s", path))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("prompt file not found: %s", absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}

func logPromptLoadingSummary(all AllLoadedPrompts) {
	count := all.Global.SystemPrompts.count() + all.Global.UserPrompts.count()
	for name, op := range all.Operations {
		n := op.SystemPrompts.count() + op.UserPrompts.count()
		if n > 0 {
			log.Printf("[CONFIG] %s prompts loaded from file: %d", name, n)
		}
		count += n
	}

	if count == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
		return
	}
	log.Printf("[CONFIG] Total custom prompts loaded: %d", count)
}
