package image

import (
	"os"
	"runtime"
	"sync"
	"time"
	"weak"

	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Image is a strong reference to an uploaded texture. The renderer image stays alive while any Image
// returned by Cache.GetImage is reachable; afterwards it is deleted on the next garbage collection.
type Image struct {
	renderer.Image
	path string
}

// Path returns the file the image was loaded from.
func (i *Image) Path() string {
	return i.path
}

type entry struct {
	ref     weak.Pointer[Image]
	modTime time.Time
	size    int64
}

// Cache maps file paths to uploaded images. Entries are valid as long as the file's modification time and size
// are unchanged and some caller still holds the Image.
type Cache struct {
	mu *sync.Mutex

	ctx     renderer.Context
	load    Loader
	entries map[string]*entry

	// renderer images whose Image was reclaimed, deleted on the next collection
	released  []renderer.Image
	requireGC bool

	watcher  *Watcher
	requests *prometheus.CounterVec
	log      *zap.Logger
}

// NewCache creates an empty cache uploading through ctx.
//
// Parameters:
//   - ctx: the renderer context images are created in
//   - options: functional options
//
// Returns:
//   - *Cache: the cache
func NewCache(ctx renderer.Context, options ...CacheOption) *Cache {
	c := &Cache{
		mu:      &sync.Mutex{},
		ctx:     ctx,
		load:    Decode,
		entries: make(map[string]*entry),
		log:     zap.NewNop(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.log = c.log.Named("image")
	return c
}

func (c *Cache) count(result string) {
	if c.requests != nil {
		c.requests.WithLabelValues(result).Inc()
	}
}

func (c *Cache) lookupLocked(path string, info os.FileInfo) *Image {
	e, ok := c.entries[path]
	if !ok || !e.modTime.Equal(info.ModTime()) || e.size != info.Size() {
		return nil
	}
	return e.ref.Value()
}

// GetImage returns the texture for path, loading and uploading it when the cached copy is missing,
// reclaimed or stale. Failures are logged and return nil.
//
// Parameters:
//   - path: the image file
//
// Returns:
//   - *Image: a strong reference, or nil
func (c *Cache) GetImage(path string) *Image {
	info, err := os.Stat(path)
	if err != nil {
		c.log.Warn("image file not accessible", zap.String("path", path), zap.Error(err))
		c.count("error")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if img := c.lookupLocked(path, info); img != nil {
		c.count("hit")
		return img
	}

	pixels, err := c.load(path)
	if err != nil {
		c.log.Error("failed to load image", zap.String("path", path), zap.Error(err))
		c.count("error")
		return nil
	}
	rimg, status := c.ctx.CreateImage(pixels.Desc, pixels.Data)
	if renderer.ErrorCheck(c.log, status, "failed to create image", zap.String("path", path)) {
		c.count("error")
		return nil
	}

	img := &Image{Image: rimg, path: path}
	runtime.AddCleanup(img, c.release, rimg)
	c.entries[path] = &entry{
		ref:     weak.Make(img),
		modTime: info.ModTime(),
		size:    info.Size(),
	}
	if c.watcher != nil {
		c.watcher.add(path)
	}
	c.count("miss")
	return img
}

// IsCached reports whether GetImage would return a cached image without loading.
//
// Parameters:
//   - path: the image file
//
// Returns:
//   - bool: true if a valid, live entry exists
func (c *Cache) IsCached(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(path, info) != nil
}

// Invalidate drops the entry for path so the next GetImage reloads it.
// Images already handed out stay valid.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// release runs from the runtime once an Image is unreachable.
func (c *Cache) release(rimg renderer.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = append(c.released, rimg)
	c.requireGC = true
}

// RequireGarbageCollection marks the cache for collection. Call it whenever a strong reference may have been dropped.
func (c *Cache) RequireGarbageCollection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requireGC = true
}

// GarbageCollectIfNeeded removes reclaimed entries and deletes their renderer images.
// It must run while the render thread is stopped, proven by access.
//
// Parameters:
//   - access: a held render-thread access
//
// Returns:
//   - int: the number of deleted renderer images
func (c *Cache) GarbageCollectIfNeeded(access *renderer.Access) int {
	if access == nil {
		c.log.DPanic("image garbage collection without renderer access")
		return 0
	}

	c.mu.Lock()
	if !c.requireGC {
		c.mu.Unlock()
		return 0
	}
	for path, e := range c.entries {
		if e.ref.Value() == nil {
			delete(c.entries, path)
		}
	}
	released := c.released
	c.released = nil
	c.requireGC = false
	c.mu.Unlock()

	for _, rimg := range released {
		renderer.ErrorCheck(c.log, rimg.Delete(), "failed to delete image")
	}
	return len(released)
}

// Len returns the number of entries, live or not yet collected.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
