package engine

import (
	"sync"

	"github.com/Carmen-Shannon/hdrpr/engine/camera"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/Carmen-Shannon/hdrpr/engine/renderpass"
)

// FrameSource supplies the state each tick renders.
type FrameSource interface {
	Frame() renderpass.State
}

// Resizer is implemented by frame sources that follow the window size.
type Resizer interface {
	Resize(width, height int)
}

// Viewport is a FrameSource rendering a set of AOVs through an orbit camera.
type Viewport struct {
	mu            *sync.Mutex
	camera        *camera.Camera
	width, height int
	bindings      []renderer.AovBinding
}

var (
	_ FrameSource = &Viewport{}
	_ Resizer     = &Viewport{}
)

// NewViewport creates a viewport of the given size with one buffer per AOV name.
//
// Parameters:
//   - cam: the camera to render through
//   - width, height: the framebuffer size in pixels
//   - aovs: the AOV names to bind
//
// Returns:
//   - *Viewport: the viewport
func NewViewport(cam *camera.Camera, width, height int, aovs ...string) *Viewport {
	v := &Viewport{
		mu:     &sync.Mutex{},
		camera: cam,
		width:  width,
		height: height,
	}
	for _, name := range aovs {
		v.bindings = append(v.bindings, renderer.AovBinding{
			Name:   name,
			Buffer: renderer.NewAovBuffer(name, width, height),
		})
	}
	if height > 0 {
		cam.SetAspect(float32(width) / float32(height))
	}
	return v
}

// Camera returns the viewport camera.
func (v *Viewport) Camera() *camera.Camera {
	return v.camera
}

// Buffer returns the buffer bound to the AOV name, or nil.
func (v *Viewport) Buffer(name string) *renderer.AovBuffer {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, b := range v.bindings {
		if b.Name == name {
			return b.Buffer
		}
	}
	return nil
}

// Resize changes the framebuffer size. Zero sizes, as reported for minimized windows, are ignored.
func (v *Viewport) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.mu.Lock()
	v.width, v.height = width, height
	v.mu.Unlock()
	v.camera.SetAspect(float32(width) / float32(height))
}

// Frame returns the current size, bindings and camera matrices.
func (v *Viewport) Frame() renderpass.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return renderpass.State{
		Width:       v.width,
		Height:      v.height,
		AovBindings: v.bindings,
		WorldToView: v.camera.View(),
		Projection:  v.camera.Projection(),
	}
}
