package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.temperature", 0.0)
	v.SetDefault("ai.useSystemPrompts", true)

	// Scanner and reviewer are deterministic, the writers run warmer
	setOperationDefaults(v, OperationScan, 45*time.Second, 0.0)
	setOperationDefaults(v, OperationImprove, 90*time.Second, 0.3)
	setOperationDefaults(v, OperationReview, 60*time.Second, 0.0)
	setOperationDefaults(v, OperationCoverLetter, 90*time.Second, 0.3)

	// Pipeline Configuration
	v.SetDefault("pipeline.scoreThreshold", 85)
	v.SetDefault("pipeline.maxIterations", 3)
	v.SetDefault("pipeline.promptCharLimit", 3000)
	v.SetDefault("pipeline.stripUnsupportedSkills", true)
	v.SetDefault("pipeline.coverLetter.enabled", true)

	// Loader Configuration
	v.SetDefault("loader.timeout", 20*time.Second)
	v.SetDefault("loader.userAgent", "resumeagent/1.0 (+https://github.com/resumeagent)")
	v.SetDefault("loader.maxURLChars", 5000)
	v.SetDefault("loader.allowLocalFiles", true)
	v.SetDefault("loader.allowPrivateNetworks", false)

	// Export Configuration
	v.SetDefault("export.enabled", true)
	v.SetDefault("export.format", "pdf")
	v.SetDefault("export.outputDir", "output")
	v.SetDefault("export.chromePath", "")
	v.SetDefault("export.timeout", 60*time.Second)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	// A full run makes up to eight generation calls
	v.SetDefault("server.writeTimeout", 10*time.Minute)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.watchPrompts", true)
	v.SetDefault("server.debounceDelay", time.Second)
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.watchInterval", 0)
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumeagent")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	// Custom Metrics Configuration
	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackModelInfo", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackContentSizes", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackReviewLoop", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)

	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
}

// setOperationDefaults sets the per-operation AI and circuit breaker defaults
func setOperationDefaults(v *viper.Viper, operation string, timeout time.Duration, temperature float64) {
	prefix := "ai." + operation + "."
	v.SetDefault(prefix+"provider", "gemini")
	v.SetDefault(prefix+"model", "")
	v.SetDefault(prefix+"timeout", timeout)
	v.SetDefault(prefix+"apiKey", "")
	v.SetDefault(prefix+"temperature", temperature)
	v.SetDefault(prefix+"useSystemPrompts", true)

	v.SetDefault(prefix+"circuitBreaker.enabled", true)
	v.SetDefault(prefix+"circuitBreaker.maxRequests", 3)
	v.SetDefault(prefix+"circuitBreaker.interval", 60*time.Second)
	v.SetDefault(prefix+"circuitBreaker.timeout", 60*time.Second)
	v.SetDefault(prefix+"circuitBreaker.minRequests", 3)
	v.SetDefault(prefix+"circuitBreaker.failureThreshold", 0.6)
}
