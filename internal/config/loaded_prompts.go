package config

import "sync"

// LoadedPromptSet holds prompt text read from files, one entry per generation step
type LoadedPromptSet struct {
	ScanGaps         string
	ImproveResume    string
	ReviewResume     string
	WriteCoverLetter string
}

// count returns how many prompts in the set were loaded
func (s LoadedPromptSet) count() int {
	n := 0
	for _, p := range []string{s.ScanGaps, s.ImproveResume, s.ReviewResume, s.WriteCoverLetter} {
		if p != "" {
			n++
		}
	}
	return n
}

// LoadedPrompts holds the system and user prompts loaded for one scope
type LoadedPrompts struct {
	SystemPrompts LoadedPromptSet
	UserPrompts   LoadedPromptSet
}

// AllLoadedPrompts holds the global prompts and the per-operation overrides
type AllLoadedPrompts struct {
	Global     LoadedPrompts
	Operations map[string]LoadedPrompts
}

// promptStore is swapped wholesale on reload so readers never see a half-loaded set
type promptStore struct {
	mu      sync.RWMutex
	prompts AllLoadedPrompts
}

var loadedPrompts = &promptStore{}

func (s *promptStore) replace(prompts AllLoadedPrompts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = prompts
}

func (s *promptStore) snapshot() AllLoadedPrompts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts
}

// GetPromptsForOperation returns the file-loaded prompts for an operation.
// Operation prompts take precedence over global ones field by field.
func GetPromptsForOperation(operation string) LoadedPrompts {
	all := loadedPrompts.snapshot()
	result := all.Operations[operation]
	mergePromptSet(&result.SystemPrompts, all.Global.SystemPrompts)
	mergePromptSet(&result.UserPrompts, all.Global.UserPrompts)
	return result
}

func mergePromptSet(target *LoadedPromptSet, fallback LoadedPromptSet) {
	fallbackPrompt(&target.ScanGaps, &fallback.ScanGaps)
	fallbackPrompt(&target.ImproveResume, &fallback.ImproveResume)
	fallbackPrompt(&target.ReviewResume, &fallback.ReviewResume)
	fallbackPrompt(&target.WriteCoverLetter, &fallback.WriteCoverLetter)
}
