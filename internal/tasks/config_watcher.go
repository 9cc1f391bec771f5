package tasks

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/wakedock/wakeproxy/internal/logging"
	"github.com/wakedock/wakeproxy/internal/metrics"
)

// ConfigWatcher observes the canonical config file for external edits.
// Detected writes are surfaced as log warnings and a drift counter only;
// the file is never auto-reloaded (drift is observational, see the route
// status policy).
type ConfigWatcher struct {
	configPath string
	collector  *metrics.Collector
	watcher    *fsnotify.Watcher
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewConfigWatcher creates a watcher for the given config file.
func NewConfigWatcher(configPath string, collector *metrics.Collector) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the parent directory so rename-based editors are caught too.
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &ConfigWatcher{
		configPath: configPath,
		collector:  collector,
		watcher:    watcher,
		done:       make(chan struct{}),
	}, nil
}

// Start begins watching in the background.
func (w *ConfigWatcher) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop closes the watcher and waits for the loop to exit.
func (w *ConfigWatcher) Stop() {
	close(w.done)
	w.watcher.Close()
	w.wg.Wait()
}

func (w *ConfigWatcher) run() {
	defer w.wg.Done()
	logger := logging.GetGlobalLogger()

	logger.Info("Watching %s for external edits", w.configPath)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.configPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				logger.Warn("Canonical config file %s was modified outside the control plane", w.configPath)
				if w.collector != nil {
					w.collector.RecordExternalConfigEdit()
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}
