package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func timePtr(d time.Duration) *time.Duration { return &d }
func float32Ptr(f float32) *float32          { return &f }
func boolPtr(b bool) *bool                   { return &b }

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")
	content := `
ai:
  apiKey: file-key
  model: gemini-2.5-flash
  improve:
    temperature: 0.5
pipeline:
  scoreThreshold: 90
  maxIterations: 2
export:
  format: html
  outputDir: ` + filepath.Join(tempDir, "out") + `
`
	if err := os.WriteFile(configFile, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfigFromFile(configFile)
	if err != nil {
		t.Fatalf("Expected config to load, got %v", err)
	}

	if cfg.Pipeline.ScoreThreshold != 90 || cfg.Pipeline.MaxIterations != 2 {
		t.Errorf("Expected loop settings 90/2, got %d/%d", cfg.Pipeline.ScoreThreshold, cfg.Pipeline.MaxIterations)
	}
	if cfg.Pipeline.PromptCharLimit != 3000 {
		t.Errorf("Expected default prompt char limit 3000, got %d", cfg.Pipeline.PromptCharLimit)
	}
	if !cfg.Pipeline.StripUnsupportedSkills {
		t.Error("Expected unsupported skill stripping on by default")
	}
	if cfg.Export.Format != "html" {
		t.Errorf("Expected export format html, got %s", cfg.Export.Format)
	}
	if cfg.Loader.MaxURLChars != 5000 {
		t.Errorf("Expected loader cap 5000, got %d", cfg.Loader.MaxURLChars)
	}
	if !cfg.Loader.AllowLocalFiles || cfg.Loader.AllowPrivateNetworks {
		t.Errorf("Expected local files on and private networks off, got %v/%v",
			cfg.Loader.AllowLocalFiles, cfg.Loader.AllowPrivateNetworks)
	}

	improve := cfg.GetImproveConfig()
	if *improve.Temperature != 0.5 {
		t.Errorf("Expected improve temperature 0.5, got %v", *improve.Temperature)
	}
	if improve.Model != "gemini-2.5-flash" {
		t.Errorf("Expected model fallback to global, got %s", improve.Model)
	}
	if improve.APIKey != "file-key" {
		t.Errorf("Expected API key fallback to global, got %s", improve.APIKey)
	}

	if got := *cfg.GetReviewConfig().Temperature; got != 0 {
		t.Errorf("Expected review temperature 0, got %v", got)
	}
	if got := *cfg.GetScanConfig().Timeout; got != 45*time.Second {
		t.Errorf("Expected scan timeout 45s, got %v", got)
	}
}

func TestOperationConfigFallbacks(t *testing.T) {
	cfg := &Config{
		AI: AIConfig{
			Provider:         "gemini",
			Model:            "global-model",
			Timeout:          60 * time.Second,
			APIKey:           "global-key",
			Temperature:      0.7,
			UseSystemPrompts: true,
			CustomPrompts: PromptConfig{
				SystemPrompts: PromptSet{
					ScanGaps:     "global scan system",
					ReviewResume: "global review system",
				},
			},
			Scan: OperationAIConfig{
				Timeout:          timePtr(10 * time.Second),
				Temperature:      float32Ptr(0),
				UseSystemPrompts: boolPtr(false),
			},
			Review: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemPrompts: PromptSet{ReviewResume: "review override"},
				},
			},
		},
	}

	scan := cfg.GetScanConfig()
	if *scan.Timeout != 10*time.Second {
		t.Errorf("Expected scan timeout 10s, got %v", *scan.Timeout)
	}
	if *scan.UseSystemPrompts {
		t.Error("Expected explicit useSystemPrompts=false to be kept")
	}
	if scan.CustomPrompts.SystemPrompts.ScanGaps != "global scan system" {
		t.Errorf("Expected global scan prompt fallback, got '%s'", scan.CustomPrompts.SystemPrompts.ScanGaps)
	}
	if scan.CustomPrompts.SystemPrompts.ReviewResume != "" {
		t.Error("Expected prompts of other operations not to leak into scan config")
	}

	review := cfg.GetOperationConfig(OperationReview)
	if review.CustomPrompts.SystemPrompts.ReviewResume != "review override" {
		t.Errorf("Expected operation prompt to win, got '%s'", review.CustomPrompts.SystemPrompts.ReviewResume)
	}
	if *review.Temperature != 0.7 {
		t.Errorf("Expected global temperature fallback 0.7, got %v", *review.Temperature)
	}

	// Fallback values are copies, editing one operation must not touch the global config
	*review.Timeout = time.Second
	if cfg.AI.Timeout != 60*time.Second {
		t.Error("Expected global timeout to be unaffected by operation edits")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AI:       AIConfig{APIKey: "key", Timeout: time.Minute},
			Pipeline: PipelineConfig{ScoreThreshold: 85, MaxIterations: 3, PromptCharLimit: 3000},
			Export:   ExportConfig{Enabled: true, Format: "pdf", OutputDir: "output"},
			Server:   ServerConfig{Port: "8080"},
			App:      AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing api key", func(c *Config) { c.AI.APIKey = "" }, true},
		{"missing api key with vault", func(c *Config) { c.AI.APIKey = ""; c.Vault.Enabled = true }, false},
		{"threshold above 100", func(c *Config) { c.Pipeline.ScoreThreshold = 101 }, true},
		{"zero iterations", func(c *Config) { c.Pipeline.MaxIterations = 0 }, true},
		{"unknown export format", func(c *Config) { c.Export.Format = "docx" }, true},
		{"export without dir", func(c *Config) { c.Export.OutputDir = "" }, true},
		{"unsupported default format", func(c *Config) { c.App.DefaultFormat = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestServerAPIKeyFallbacks(t *testing.T) {
	t.Setenv("RESUMEAGENT_SERVER_APIKEYS", " one, two ,,three ")
	cfg := &Config{}
	cfg.applyServerAPIKeyFallbacks()

	expected := []string{"one", "two", "three"}
	if len(cfg.Server.APIKeys) != len(expected) {
		t.Fatalf("Expected %d keys, got %v", len(expected), cfg.Server.APIKeys)
	}
	for i, key := range expected {
		if cfg.Server.APIKeys[i] != key {
			t.Errorf("Expected key %d to be %s, got %s", i, key, cfg.Server.APIKeys[i])
		}
	}
}

func TestGeminiKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	cfg := &Config{}
	cfg.applyGeminiKeyFallback()
	if cfg.AI.APIKey != "google-key" {
		t.Errorf("Expected GOOGLE_API_KEY fallback, got '%s'", cfg.AI.APIKey)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("Expected key to satisfy RequireAPIKey, got %v", err)
	}
}
