package image

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Watcher invalidates cache entries whose files change on disk.
type Watcher struct {
	mu *sync.Mutex

	watcher *fsnotify.Watcher
	dirs    map[string]struct{}
	paths   map[string]string // absolute path -> cache key
	log     *zap.Logger
}

// NewWatcher creates a file watcher. Register it with a cache through WithWatcher, then call Run.
//
// Parameters:
//   - log: the logger, nil for none
//
// Returns:
//   - *Watcher: the watcher
//   - error: if the OS watcher could not be created
func NewWatcher(log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create image watcher")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		mu:      &sync.Mutex{},
		watcher: fw,
		dirs:    make(map[string]struct{}),
		paths:   make(map[string]string),
		log:     log.Named("image-watcher"),
	}, nil
}

// add starts watching the directory of path.
func (w *Watcher) add(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths[abs] = path
	dir := filepath.Dir(abs)
	if _, ok := w.dirs[dir]; ok {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.log.Warn("failed to watch directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	w.dirs[dir] = struct{}{}
}

func (w *Watcher) watched(name string) (string, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		abs = name
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	key, ok := w.paths[abs]
	return key, ok
}

// Run forwards file events to c until ctx is done. Changed, created, renamed and removed files are invalidated
// and the cache is marked for collection.
//
// Parameters:
//   - ctx: cancels the loop
//   - c: the cache to invalidate
//
// Returns:
//   - error: ctx.Err() when cancelled
func (w *Watcher) Run(ctx context.Context, c *Cache) error {
	defer w.watcher.Close()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			key, ok := w.watched(event.Name)
			if !ok {
				continue
			}
			w.log.Debug("image changed", zap.String("path", key), zap.String("op", event.Op.String()))
			c.Invalidate(key)
			c.RequireGarbageCollection()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", zap.Error(err))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
