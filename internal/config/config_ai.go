package config

// Operation names used to select per-operation AI settings and prompts
const (
	OperationScan        = "scan"
	OperationImprove     = "improve"
	OperationReview      = "review"
	OperationCoverLetter = "coverLetter"
)

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.UseSystemPrompts == nil {
		useSystemPrompts := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &useSystemPrompts
	}
}

// fallbackPrompt copies the global prompt and prompt file into an operation when it has none
func fallbackPrompt(op, global *string) {
	if *op == "" {
		*op = *global
	}
}

// operationConfig resolves an operation's settings with global fallbacks.
// Only the prompt fields that belong to the operation fall back.
func (c *Config) operationConfig(config OperationAIConfig, fields func(*PromptSet) (*string, *string)) OperationAIConfig {
	c.applyOperationDefaults(&config)

	global := c.AI.CustomPrompts
	for _, pair := range []struct{ op, global *PromptSet }{
		{&config.CustomPrompts.SystemPrompts, &global.SystemPrompts},
		{&config.CustomPrompts.UserPrompts, &global.UserPrompts},
	} {
		opText, opFile := fields(pair.op)
		globalText, globalFile := fields(pair.global)
		fallbackPrompt(opText, globalText)
		fallbackPrompt(opFile, globalFile)
	}

	return config
}

// GetScanConfig returns the AI configuration for gap scanning with fallback to global config
func (c *Config) GetScanConfig() OperationAIConfig {
	return c.operationConfig(c.AI.Scan, func(p *PromptSet) (*string, *string) {
		return &p.ScanGaps, &p.ScanGapsFile
	})
}

// GetImproveConfig returns the AI configuration for resume improvement with fallback to global config
func (c *Config) GetImproveConfig() OperationAIConfig {
	return c.operationConfig(c.AI.Improve, func(p *PromptSet) (*string, *string) {
		return &p.ImproveResume, &p.ImproveResumeFile
	})
}

// GetReviewConfig returns the AI configuration for reviewing with fallback to global config
func (c *Config) GetReviewConfig() OperationAIConfig {
	return c.operationConfig(c.AI.Review, func(p *PromptSet) (*string, *string) {
		return &p.ReviewResume, &p.ReviewResumeFile
	})
}

// GetCoverLetterConfig returns the AI configuration for cover letters with fallback to global config
func (c *Config) GetCoverLetterConfig() OperationAIConfig {
	return c.operationConfig(c.AI.CoverLetter, func(p *PromptSet) (*string, *string) {
		return &p.WriteCoverLetter, &p.WriteCoverLetterFile
	})
}

// GetOperationConfig returns the resolved AI configuration by operation name
func (c *Config) GetOperationConfig(operation string) OperationAIConfig {
	switch operation {
	case OperationScan:
		return c.GetScanConfig()
	case OperationImprove:
		return c.GetImproveConfig()
	case OperationReview:
		return c.GetReviewConfig()
	case OperationCoverLetter:
		return c.GetCoverLetterConfig()
	default:
		config := OperationAIConfig{}
		c.applyOperationDefaults(&config)
		return config
	}
}
