package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"NewsShell/internal/domain"
)

// Store holds the current master config snapshot. Sessions copy it at start
// and never observe later updates.
type Store struct {
	current atomic.Pointer[domain.MasterConfig]

	mu        sync.Mutex
	listeners []func(domain.MasterConfig)
}

// NewStore seeds the store.
func NewStore(initial domain.MasterConfig) *Store {
	s := &Store{}
	snap := initial.Clone()
	s.current.Store(&snap)
	return s
}

// Current returns a private copy of the snapshot.
func (s *Store) Current() domain.MasterConfig {
	return s.current.Load().Clone()
}

// Update swaps in cfg and reports whether it differs from the previous snapshot.
func (s *Store) Update(cfg domain.MasterConfig) bool {
	snap := cfg.Clone()
	prev := s.current.Swap(&snap)
	if prev != nil && reflect.DeepEqual(*prev, snap) {
		return false
	}

	s.mu.Lock()
	listeners := append(([]func(domain.MasterConfig))(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(snap.Clone())
	}
	return true
}

// OnChange registers fn for every effective update.
func (s *Store) OnChange(fn func(domain.MasterConfig)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

const watchDebounce = 100 * time.Millisecond

// Watch reloads the file at path into store whenever it is written, until ctx ends.
func Watch(ctx context.Context, path string, store *Store, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Editors often replace the file, so watch the directory.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		reload := func() {
			cfg, err := LoadFile(path)
			if err != nil {
				if logger != nil {
					logger.Warn("config reload failed", "path", path, "error", err)
				}
				return
			}
			if store.Update(cfg.Master) && logger != nil {
				logger.Info("config reloaded", "path", path)
			}
		}

		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if logger != nil {
					logger.Warn("config watcher error", "error", err)
				}
			}
		}
	}()

	return nil
}
