package server

import (
	"fmt"
	"sync"
	"time"

	"resumeagent/internal/config"
	"resumeagent/internal/errors"
)

// apiKeysField is the field in the Vault secret holding comma-separated keys
const apiKeysField = "keys"

// VaultClientInterface defines the Vault reads the watcher needs
type VaultClientInterface interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

// KeysReloadCallback receives the key list from a new secret version
type KeysReloadCallback func(keys []string, err error)

// VaultWatcher polls the API keys secret and reports new versions.
// No lease renewal; the secret is re-read on every tick.
type VaultWatcher struct {
	mu sync.RWMutex

	client         VaultClientInterface
	secretPath     string
	pollInterval   time.Duration
	reloadCallback KeysReloadCallback
	logger         *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	reloads     int
	lastError   string
}

// NewVaultWatcher creates a new VaultWatcher
func NewVaultWatcher(client VaultClientInterface, secretPath string, pollInterval time.Duration, reloadCallback KeysReloadCallback, logger *errors.Logger) *VaultWatcher {
	return &VaultWatcher{
		client:         client,
		secretPath:     secretPath,
		pollInterval:   pollInterval,
		reloadCallback: reloadCallback,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start records the current secret version and begins polling
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}

	// Keys at startup were already applied from config
	if secret, err := vw.client.GetSecretV2(vw.secretPath); err == nil && secret != nil {
		vw.lastVersion = secret.Version
	} else if err != nil && vw.logger != nil {
		vw.logger.Warn("Could not read initial API keys version", "secret_path", vw.secretPath, "error", err)
	}

	vw.running = true
	go vw.pollLoop()
	if vw.logger != nil {
		vw.logger.Info("Vault key watcher started",
			"secret_path", vw.secretPath,
			"poll_interval", vw.pollInterval,
			"version", vw.lastVersion)
	}
	return nil
}

// Stop stops the Vault watcher
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if !vw.running {
		return nil
	}
	close(vw.stopChan)
	vw.running = false
	if vw.logger != nil {
		vw.logger.Info("Vault key watcher stopped")
	}
	return nil
}

func (vw *VaultWatcher) pollLoop() {
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			vw.poll()
		case <-vw.stopChan:
			return
		}
	}
}

// poll runs one version check and invokes the callback when it moved
func (vw *VaultWatcher) poll() {
	changed, err := vw.checkForUpdates()
	if err != nil {
		vw.recordError(err)
		if vw.logger != nil {
			vw.logger.LogError(err, "Failed to check Vault for updates")
		}
		return
	}
	if !changed {
		return
	}

	keys, err := vw.fetchKeys()
	if err != nil {
		vw.recordError(err)
		vw.reloadCallback(nil, err)
		return
	}

	vw.mu.Lock()
	vw.reloads++
	vw.lastError = ""
	vw.mu.Unlock()
	if vw.logger != nil {
		vw.logger.Info("New API keys version fetched from Vault", "count", len(keys))
	}
	vw.reloadCallback(keys, nil)
}

// checkForUpdates checks if the Vault secret version has changed
func (vw *VaultWatcher) checkForUpdates() (bool, error) {
	secret, err := vw.client.GetSecretV2(vw.secretPath)
	if err != nil {
		return false, fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		return false, fmt.Errorf("secret %s not found", vw.secretPath)
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	if secret.Version > vw.lastVersion {
		vw.lastVersion = secret.Version
		return true, nil
	}
	return false, nil
}

func (vw *VaultWatcher) fetchKeys() ([]string, error) {
	keys, err := vw.client.GetStringSliceSecret(vw.secretPath, apiKeysField)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch API keys from vault: %w", err)
	}
	return keys, nil
}

func (vw *VaultWatcher) recordError(err error) {
	vw.mu.Lock()
	vw.lastError = err.Error()
	vw.mu.Unlock()
}

// Status returns the current status of the VaultWatcher for health reporting
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	status := map[string]any{
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"secret_path":   vw.secretPath,
		"last_version":  vw.lastVersion,
		"reloads":       vw.reloads,
	}
	if vw.lastError != "" {
		status["last_error"] = vw.lastError
	}
	return status
}
