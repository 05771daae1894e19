package image

import (
	"context"
	stdimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestDecodePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "albedo.png")
	writePNG(t, path, 2, 3)

	px, err := Decode(path)
	require.NoError(t, err)
	assert.Equal(t, renderer.ImageDesc{Width: 2, Height: 3, Format: renderer.ImageFormatRGBA8}, px.Desc)
	assert.Len(t, px.Data, 2*3*4)
	assert.Equal(t, []byte{0, 0, 200, 255}, px.Data[:4])
}

func TestDecodeFailures(t *testing.T) {
	dir := t.TempDir()

	_, err := Decode(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	_, err = Decode(garbage)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestToPixelsRebasesSubImage(t *testing.T) {
	src := stdimage.NewRGBA(stdimage.Rect(0, 0, 4, 4))
	src.Set(2, 2, color.RGBA{R: 255, A: 255})
	sub := src.SubImage(stdimage.Rect(2, 2, 4, 4))

	px := ToPixels(sub)
	assert.Equal(t, 2, px.Desc.Width)
	assert.Len(t, px.Data, 16)
	assert.Equal(t, []byte{255, 0, 0, 255}, px.Data[:4])
}

func TestCacheReusesLiveImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, path, 4, 4)
	ctx := renderer.NewMemoryContext()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "requests"}, []string{"result"})
	c := NewCache(ctx, WithLogger(zaptest.NewLogger(t)), WithRequestCounter(requests))

	assert.False(t, c.IsCached(path))
	first := c.GetImage(path)
	require.NotNil(t, first)
	assert.True(t, c.IsCached(path))

	second := c.GetImage(path)
	assert.Same(t, first, second)
	assert.Equal(t, path, second.Path())
	assert.Equal(t, 1, ctx.Stats().ImagesCreated)
	assert.Equal(t, float64(1), testutil.ToFloat64(requests.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(requests.WithLabelValues("miss")))
}

func TestCacheReloadsWhenModTimeChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, path, 4, 4)
	ctx := renderer.NewMemoryContext()
	c := NewCache(ctx, WithLogger(zaptest.NewLogger(t)))

	first := c.GetImage(path)
	require.NotNil(t, first)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	assert.False(t, c.IsCached(path))

	second := c.GetImage(path)
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, ctx.Stats().ImagesCreated)
	assert.False(t, first.Image.(*renderer.MemoryImage).Deleted())
}

func TestCacheFailuresReturnNil(t *testing.T) {
	dir := t.TempDir()
	ctx := renderer.NewMemoryContext()
	c := NewCache(ctx, WithLogger(zaptest.NewLogger(t)))

	assert.Nil(t, c.GetImage(filepath.Join(dir, "missing.png")))

	path := filepath.Join(dir, "a.png")
	writePNG(t, path, 1, 1)
	ctx.FailNext("CreateImage", renderer.StatusOutOfMemory)
	assert.Nil(t, c.GetImage(path))
	assert.False(t, c.IsCached(path))

	c = NewCache(ctx, WithLogger(zaptest.NewLogger(t)), WithLoader(func(string) (Pixels, error) {
		return Pixels{}, ErrEmptyImage
	}))
	assert.Nil(t, c.GetImage(path))
}

func loadAndDrop(t *testing.T, c *Cache, path string) {
	require.NotNil(t, c.GetImage(path))
}

func TestCacheCollectsUnreferencedImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, path, 2, 2)
	ctx := renderer.NewMemoryContext()
	c := NewCache(ctx, WithLogger(zaptest.NewLogger(t)))
	thread := renderer.NewRenderThread(func() bool { return true })

	loadAndDrop(t, c, path)

	access := thread.Acquire()
	defer access.Release()

	deleted := 0
	require.Eventually(t, func() bool {
		runtime.GC()
		deleted += c.GarbageCollectIfNeeded(access)
		return deleted == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1, ctx.Stats().ImagesDeleted)
	assert.Zero(t, c.GarbageCollectIfNeeded(access))
}

func TestWatcherInvalidatesChangedFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, path, 2, 2)

	w, err := NewWatcher(zaptest.NewLogger(t))
	require.NoError(t, err)
	c := NewCache(renderer.NewMemoryContext(), WithLogger(zaptest.NewLogger(t)), WithWatcher(w))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, c) }()
	defer func() {
		cancel()
		<-done
	}()

	img := c.GetImage(path)
	require.NotNil(t, img)
	require.Equal(t, 1, c.Len())

	writePNG(t, path, 3, 3)
	assert.Eventually(t, func() bool { return c.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
	runtime.KeepAlive(img)
}
