package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store holds the current settings and whether they changed since the last Sync.
// All methods are safe for concurrent use.
type Store struct {
	mu *sync.Mutex

	cfg   Config
	dirty bool

	log *zap.Logger
}

// NewStore creates a store holding cfg. A new store is dirty so the first Sync reports every setting.
//
// Parameters:
//   - cfg: the initial settings, assumed valid
//   - options: functional options
//
// Returns:
//   - *Store: the store
func NewStore(cfg Config, options ...StoreOption) *Store {
	s := &Store{
		mu:    &sync.Mutex{},
		cfg:   cfg,
		dirty: true,
		log:   zap.NewNop(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.log = s.log.Named("config")
	return s
}

// Get returns the current settings without touching the dirty flag.
func (s *Store) Get() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Set replaces the settings. Invalid settings are rejected; identical settings do not mark the store dirty.
//
// Parameters:
//   - cfg: the new settings
//
// Returns:
//   - error: the validation failure
func (s *Store) Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg != s.cfg {
		s.cfg = cfg
		s.dirty = true
	}
	return nil
}

// IsDirty reports whether settings changed since the last Sync.
func (s *Store) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Sync returns the settings and whether they changed since the previous Sync, then clears the flag.
func (s *Store) Sync() (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dirty := s.dirty
	s.dirty = false
	return s.cfg, dirty
}

// Reload loads path and stores the result. A file that fails to load leaves the settings unchanged.
func (s *Store) Reload(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	return s.Set(cfg)
}

// Watch reloads path whenever it is written or replaced, until ctx is done. Reload failures are logged.
//
// Parameters:
//   - ctx: cancels the watch
//   - path: the YAML file
//
// Returns:
//   - error: watcher setup failure, or ctx.Err() when cancelled
func (s *Store) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "resolve config path")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create config watcher")
	}
	defer w.Close()

	// editors replace files by rename, so watch the directory rather than the file
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrap(err, "watch config directory")
	}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if err := s.Reload(abs); err != nil {
				s.log.Error("failed to reload config", zap.String("path", abs), zap.Error(err))
				continue
			}
			s.log.Info("config reloaded", zap.String("path", abs), zap.Bool("dirty", s.IsDirty()))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Error("config watcher error", zap.Error(err))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
