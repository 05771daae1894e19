// Package renderpass drives one frame: it pushes viewport, camera and AOV changes to the renderer and
// restarts the render thread when anything changed.
package renderpass

import (
	"slices"

	"github.com/Carmen-Shannon/hdrpr/engine/config"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// State is what the host asks the next frame to render.
type State struct {
	Width, Height int
	AovBindings   []renderer.AovBinding
	WorldToView   mgl32.Mat4
	Projection    mgl32.Mat4
}

// RenderPass synchronizes State with the renderer API once per frame.
type RenderPass struct {
	api    *renderer.API
	config *config.Store
	log    *zap.Logger
}

// NewRenderPass creates a render pass over api.
//
// Parameters:
//   - api: the renderer API
//   - options: functional options
//
// Returns:
//   - *RenderPass: the render pass
func NewRenderPass(api *renderer.API, options ...RenderPassBuilderOption) *RenderPass {
	p := &RenderPass{
		api: api,
		log: zap.NewNop(),
	}
	for _, opt := range options {
		opt(p)
	}
	p.log = p.log.Named("renderpass")
	return p
}

// Execute applies state. Changed settings stop the render thread first; every differing value is written
// under a single edit; and if the renderer state changed the bound buffers are reset and rendering starts
// again.
//
// Parameters:
//   - state: the frame to render
func (p *RenderPass) Execute(state State) {
	thread := p.api.Thread()
	if p.config != nil {
		if _, dirty := p.config.Sync(); dirty {
			p.log.Debug("settings changed, stopping render")
			thread.StopRender()
		}
	}

	var ed *renderer.Editor
	edit := func() *renderer.Editor {
		if ed == nil {
			ed = p.api.AcquireForEdit()
		}
		return ed
	}

	if w, h := p.api.ViewportSize(); w != state.Width || h != state.Height {
		edit().SetViewportSize(state.Width, state.Height)
	}
	if !slices.Equal(p.api.AovBindings(), state.AovBindings) {
		edit().SetAovBindings(state.AovBindings)
	}
	if p.api.CameraView() != state.WorldToView {
		edit().SetCameraView(state.WorldToView)
	}
	if p.api.CameraProjection() != state.Projection {
		edit().SetCameraProjection(state.Projection)
	}
	if ed != nil {
		ed.Release()
	}

	if p.api.IsChanged() {
		for _, b := range state.AovBindings {
			if b.Buffer != nil {
				b.Buffer.SetConverged(false)
			}
		}
		thread.StartRender()
	}
}

// IsConverged reports whether every bound buffer converged. A pass without bound buffers is converged.
func (p *RenderPass) IsConverged() bool {
	for _, b := range p.api.AovBindings() {
		if b.Buffer != nil && !b.Buffer.IsConverged() {
			return false
		}
	}
	return true
}
