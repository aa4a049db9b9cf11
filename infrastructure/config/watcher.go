package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const debounceDelay = 500 * time.Millisecond

// Watcher reloads the log level from the YAML config file when it changes
type Watcher struct {
	path    string
	level   zap.AtomicLevel
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu        sync.Mutex
	callbacks []func(zapcore.Level)

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher watches path and applies its log_level to level. The parent
// directory is watched so editors that replace the file are still seen.
func NewWatcher(path string, level zap.AtomicLevel, logger *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
	}

	w := &Watcher{
		path:    abs,
		level:   level,
		logger:  logger,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("Configuration hot reloading enabled", zap.String("file", abs))
	return w, nil
}

// OnLevelChange registers a callback run after the level changes
func (w *Watcher) OnLevelChange(cb func(zapcore.Level)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Stop stops watching and waits for the loop to exit
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
	})
}

func (w *Watcher) watchLoop() {
	defer close(w.doneCh)
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	raw, err := ReadLogLevel(w.path)
	if err != nil {
		w.logger.Warn("Failed to reload configuration", zap.Error(err))
		return
	}
	if raw == "" {
		return
	}

	var next zapcore.Level
	if err := next.UnmarshalText([]byte(raw)); err != nil {
		w.logger.Warn("Ignoring invalid log_level", zap.String("log_level", raw))
		return
	}

	prev := w.level.Level()
	if prev == next {
		return
	}
	w.level.SetLevel(next)
	w.logger.Info("Log level changed",
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)

	w.mu.Lock()
	callbacks := append([]func(zapcore.Level){}, w.callbacks...)
	w.mu.Unlock()
	for _, cb := range callbacks {
		cb(next)
	}
}
