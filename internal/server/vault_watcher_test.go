package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"resumeagent/internal/config"
)

// MockVaultClient serves versioned secrets from memory
type MockVaultClient struct {
	mu      sync.Mutex
	secrets map[string]*config.VaultSecret
	err     error
}

func (m *MockVaultClient) GetSecretV2(path string) (*config.VaultSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if secret, exists := m.secrets[path]; exists {
		return secret, nil
	}
	return nil, nil
}

func (m *MockVaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if secret, exists := m.secrets[path]; exists {
		if value, ok := secret.Data[key].([]string); ok {
			return value, nil
		}
	}
	return nil, nil
}

func (m *MockVaultClient) set(path string, version int64, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[path] = &config.VaultSecret{Data: map[string]any{"keys": keys}, Version: version}
}

func TestVaultWatcherCheckForUpdates(t *testing.T) {
	mockClient := &MockVaultClient{secrets: map[string]*config.VaultSecret{}}
	mockClient.set("secret/data/keys", 2, "a")

	vw := NewVaultWatcher(mockClient, "secret/data/keys", time.Minute, func([]string, error) {}, nil)

	changed, err := vw.checkForUpdates()
	if err != nil {
		t.Fatalf("checkForUpdates failed: %v", err)
	}
	if !changed {
		t.Error("Expected change to be detected")
	}

	changed, err = vw.checkForUpdates()
	if err != nil {
		t.Fatalf("checkForUpdates failed: %v", err)
	}
	if changed {
		t.Error("Expected no change to be detected")
	}
}

func TestVaultWatcherPollDeliversNewKeys(t *testing.T) {
	mockClient := &MockVaultClient{secrets: map[string]*config.VaultSecret{}}
	mockClient.set("secret/data/keys", 1, "old")

	var got []string
	calls := 0
	vw := NewVaultWatcher(mockClient, "secret/data/keys", time.Minute, func(keys []string, err error) {
		calls++
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		got = keys
	}, nil)
	vw.lastVersion = 1

	vw.poll()
	if calls != 0 {
		t.Fatalf("Expected no callback for unchanged version, got %d", calls)
	}

	mockClient.set("secret/data/keys", 2, "new-1", "new-2")
	vw.poll()
	if calls != 1 {
		t.Fatalf("Expected 1 callback, got %d", calls)
	}
	if len(got) != 2 || got[0] != "new-1" || got[1] != "new-2" {
		t.Errorf("Expected [new-1 new-2], got %v", got)
	}

	status := vw.Status()
	if status["last_version"] != int64(2) {
		t.Errorf("Expected last_version 2, got %v", status["last_version"])
	}
	if status["reloads"] != 1 {
		t.Errorf("Expected 1 reload, got %v", status["reloads"])
	}
}

func TestVaultWatcherRecordsErrors(t *testing.T) {
	mockClient := &MockVaultClient{
		secrets: map[string]*config.VaultSecret{},
		err:     fmt.Errorf("vault sealed"),
	}
	calls := 0
	vw := NewVaultWatcher(mockClient, "secret/data/keys", time.Minute, func([]string, error) { calls++ }, nil)

	vw.poll()
	if calls != 0 {
		t.Errorf("Expected version check failures not to reach the callback, got %d calls", calls)
	}
	if _, ok := vw.Status()["last_error"]; !ok {
		t.Error("Expected last_error in status")
	}
}

func TestVaultWatcherStartPrimesVersion(t *testing.T) {
	mockClient := &MockVaultClient{secrets: map[string]*config.VaultSecret{}}
	mockClient.set("secret/data/keys", 5, "k")

	vw := NewVaultWatcher(mockClient, "secret/data/keys", time.Hour, func([]string, error) {}, nil)
	if err := vw.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = vw.Stop() }()

	if err := vw.Start(); err == nil {
		t.Error("Expected error when starting twice")
	}

	status := vw.Status()
	if status["running"] != true {
		t.Error("Expected watcher to be running")
	}
	if status["last_version"] != int64(5) {
		t.Errorf("Expected startup version 5 to be recorded, got %v", status["last_version"])
	}

	changed, err := vw.checkForUpdates()
	if err != nil {
		t.Fatalf("checkForUpdates failed: %v", err)
	}
	if changed {
		t.Error("Expected keys present at startup not to count as a change")
	}
}
