package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumeagent/internal/errors"
)

// PromptWatcher reloads prompt files when they change on disk
type PromptWatcher struct {
	mu sync.Mutex

	files         map[string]struct{}
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	done       chan struct{}

	reload func() error
	logger *errors.Logger

	running bool
}

// NewPromptWatcher creates a watcher for the given prompt files. reload is
// called once per burst of changes, after debounceDelay of quiet.
func NewPromptWatcher(files []string, debounceDelay time.Duration, reload func() error, logger *errors.Logger) (*PromptWatcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no prompt files to watch")
	}
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}

	watched := make(map[string]struct{}, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve prompt file %s: %w", f, err)
		}
		watched[abs] = struct{}{}
	}

	return &PromptWatcher{
		files:         watched,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		done:          make(chan struct{}),
		reload:        reload,
		logger:        logger,
	}, nil
}

// Start begins watching the prompt files
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	pw.fsWatcher = watcher

	// Directories are watched so editors that replace files by rename are seen
	dirs := make(map[string]struct{})
	for f := range pw.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	pw.running = true
	go pw.watchLoop()

	pw.logger.Info("Prompt file watcher started",
		"files", len(pw.files),
		"debounce_delay", pw.debounceDelay)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	if !pw.running {
		pw.mu.Unlock()
		return nil
	}
	pw.running = false
	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	err := pw.fsWatcher.Close()
	pw.mu.Unlock()

	<-pw.done
	if err != nil {
		pw.logger.LogError(err, "Failed to close prompt file watcher")
		return err
	}
	pw.logger.Info("Prompt file watcher stopped")
	return nil
}

// IsRunning returns whether the watcher is currently running
func (pw *PromptWatcher) IsRunning() bool {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.running
}

func (pw *PromptWatcher) watchLoop() {
	defer close(pw.done)
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if pw.shouldProcessEvent(event) {
				pw.scheduleReload()
			}

		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			pw.logger.LogError(err, "Prompt file watcher error")

		case <-pw.reloadChan:
			if err := pw.reload(); err != nil {
				pw.logger.LogError(err, "Prompt reload failed, keeping previous prompts")
				continue
			}
			pw.logger.Info("Prompt files reloaded")

		case <-pw.stopChan:
			return
		}
	}
}

func (pw *PromptWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if _, ok := pw.files[filepath.Clean(event.Name)]; !ok {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// scheduleReload schedules a debounced reload
func (pw *PromptWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
		}
	})
}
