package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyGeminiKeyFallback()
	c.applyServerAPIKeyFallbacks()
	c.applyObservabilityDefaults()
}

// applyGeminiKeyFallback accepts the key under the names Google's own tooling uses
func (c *Config) applyGeminiKeyFallback() {
	if c.AI.APIKey != "" {
		return
	}
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			c.AI.APIKey = key
			return
		}
	}
}

// applyServerAPIKeyFallbacks splits a comma-separated RESUMEAGENT_SERVER_APIKEYS value
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 1 && strings.Contains(c.Server.APIKeys[0], ",") {
		c.Server.APIKeys = splitKeys(c.Server.APIKeys[0])
	}
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("RESUMEAGENT_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitKeys(apiKeysEnv)
		}
	}
}

func splitKeys(value string) []string {
	var keys []string
	for key := range strings.SplitSeq(value, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}

	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// RequireAPIKey checks the Gemini key once every secret source has been applied
func (c *Config) RequireAPIKey() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("AI API key is required (set RESUMEAGENT_AI_APIKEY, GEMINI_API_KEY or configure vault.secrets.geminiKey)")
	}
	return nil
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"RESUMEAGENT_AI_APIKEY",
		"RESUMEAGENT_AI_MODEL",
		"RESUMEAGENT_SERVER_PORT",
		"RESUMEAGENT_SERVER_HOST",
		"RESUMEAGENT_APP_LOGLEVEL",
		"RESUMEAGENT_EXPORT_FORMAT",
		"RESUMEAGENT_VAULT_ENABLED",
		"GEMINI_API_KEY",
		"GOOGLE_API_KEY",
		"CHROME_PATH",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Review loop: threshold=%d maxIterations=%d", c.Pipeline.ScoreThreshold, c.Pipeline.MaxIterations)
	log.Printf("[CONFIG] Cover letter enabled: %t", c.Pipeline.CoverLetter.Enabled)
	log.Printf("[CONFIG] Export: enabled=%t format=%s dir=%s", c.Export.Enabled, c.Export.Format, c.Export.OutputDir)
	log.Printf("[CONFIG] Server: %s:%s", c.Server.Host, c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
