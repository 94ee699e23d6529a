package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"resumeagent/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	// WatchInterval is how often the server polls the API keys secret for a
	// new version. Zero disables the watch.
	WatchInterval time.Duration `mapstructure:"watchInterval"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds KVv2 paths. The API keys secret stores a
// comma-separated "keys" field, the Gemini secret an "api_key" field.
type VaultSecrets struct {
	APIKeys   string `mapstructure:"apiKeys"`
	GeminiKey string `mapstructure:"geminiKey"`
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// VaultClient reads KVv2 secrets
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to Vault and checks its health. It returns nil
// without error when Vault is disabled.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to create vault client", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	vc := &VaultClient{client: client, logger: logger}
	if err := vc.checkHealth(apiCfg.Address); err != nil {
		return nil, err
	}
	return vc, nil
}

// resolveVaultToken prefers the inline token over the token file
func resolveVaultToken(cfg VaultConfig, logger *errors.Logger) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to read vault token file", err).
				WithContext("file", cfg.TokenFile)
		}
		token = strings.TrimSpace(string(raw))
		if logger != nil {
			logger.Debug("Vault token read from file", "file", cfg.TokenFile)
		}
	}
	if token == "" {
		return "", errors.NewConfigError(errors.ErrCodeInvalidConfig, "vault token is required when vault is enabled", nil)
	}
	return token, nil
}

func (vc *VaultClient) checkHealth(address string) error {
	health, err := vc.client.Sys().Health()
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeSecretUnavailable, "failed to connect to vault", err).
			WithContext("address", address)
	}
	if health.Sealed {
		return errors.NewNetworkError(errors.ErrCodeSecretUnavailable, "vault is sealed", nil).
			WithContext("address", address)
	}
	if vc.logger != nil {
		vc.logger.Info("Connected to Vault",
			"address", address,
			"version", health.Version,
			"cluster_name", health.ClusterName)
	}
	return nil
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeSecretUnavailable,
			fmt.Sprintf("failed to read secret from %s", path), err)
	}
	if secret == nil || secret.Data == nil {
		return nil, errors.NewConfigError(errors.ErrCodeSecretUnavailable,
			fmt.Sprintf("secret not found at path: %s", path), nil)
	}

	data, err := vc.extractSecretData(secret, path)
	if err != nil {
		return nil, err
	}

	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}

	if vc.logger != nil {
		vc.logger.Debug("Secret read from Vault", "path", path, "version", version)
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// extractSecretData extracts the data field from a KVv2 secret
func (vc *VaultClient) extractSecretData(secret *api.Secret, path string) (map[string]any, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	return data, nil
}

// parseVersionValue accepts the numeric shapes the Vault client decodes to
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	return str, nil
}

// GetStringSliceSecret retrieves a comma-separated string as a slice from Vault
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := vc.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	return splitKeys(value), nil
}

// secretBinding maps one Vault field onto the config
type secretBinding struct {
	name  string
	path  string
	field string
	apply func(cfg *Config, value string) int
}

func (c *Config) secretBindings() []secretBinding {
	return []secretBinding{
		{
			name:  "server API keys",
			path:  c.Vault.Secrets.APIKeys,
			field: "keys",
			apply: func(cfg *Config, value string) int {
				keys := splitKeys(value)
				if len(keys) > 0 {
					cfg.Server.APIKeys = keys
				}
				return len(keys)
			},
		},
		{
			name:  "Gemini API key",
			path:  c.Vault.Secrets.GeminiKey,
			field: "api_key",
			apply: func(cfg *Config, value string) int {
				if value == "" {
					return 0
				}
				applyGeminiKeyToConfig(cfg, value)
				return 1
			},
		},
	}
}

// ApplyVaultSecrets loads the configured secrets and writes them into cfg.
// Secrets loaded here replace values from files and the environment.
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		return nil
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	for _, b := range cfg.secretBindings() {
		if b.path == "" {
			continue
		}
		value, err := client.GetStringSecret(b.path, b.field)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		if n := b.apply(cfg, value); n == 0 {
			if logger != nil {
				logger.Warn("Empty secret in Vault, keeping configured value", "secret", b.name, "path", b.path)
			}
		} else if logger != nil {
			logger.Info("Secret loaded from Vault", "secret", b.name, "count", n)
		}
	}
	return nil
}

// applyGeminiKeyToConfig applies the Gemini API key to every operation without its own key
func applyGeminiKeyToConfig(cfg *Config, geminiKey string) {
	cfg.AI.APIKey = geminiKey
	for _, op := range []*OperationAIConfig{&cfg.AI.Scan, &cfg.AI.Improve, &cfg.AI.Review, &cfg.AI.CoverLetter} {
		if op.APIKey == "" {
			op.APIKey = geminiKey
		}
	}
}
