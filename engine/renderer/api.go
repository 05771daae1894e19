package renderer

import (
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// AovBuffer is an output buffer filled by progressive iterations.
type AovBuffer struct {
	mu        sync.Mutex
	name      string
	width     int
	height    int
	samples   int
	converged bool
}

// NewAovBuffer creates an empty, unconverged buffer.
func NewAovBuffer(name string, width, height int) *AovBuffer {
	return &AovBuffer{name: name, width: width, height: height}
}

// Name returns the AOV name.
func (b *AovBuffer) Name() string {
	return b.name
}

// IsConverged reports whether enough samples were accumulated.
func (b *AovBuffer) IsConverged() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.converged
}

// SetConverged overrides the convergence flag.
func (b *AovBuffer) SetConverged(converged bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.converged = converged
	if !converged {
		b.samples = 0
	}
}

// Samples returns the accumulated sample count.
func (b *AovBuffer) Samples() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.samples
}

func (b *AovBuffer) accumulate(maxSamples int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples++
	b.converged = b.samples >= maxSamples
}

func (b *AovBuffer) resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = width, height
}

// AovBinding binds an AOV name to the buffer it renders into.
type AovBinding struct {
	Name   string
	Buffer *AovBuffer
}

// API owns the shared renderer state: the context, its scene, the render thread and the
// per-frame viewport, camera and AOV settings. Reads are safe at any time; every mutation
// goes through an Editor obtained from AcquireForEdit.
type API struct {
	mu         sync.RWMutex
	ctx        Context
	scene      Scene
	thread     *RenderThread
	log        *zap.Logger
	maxSamples int
	onIterate  func()

	width, height int
	aovs          []AovBinding
	view          mgl32.Mat4
	projection    mgl32.Mat4
	changed       bool
}

// APIOption is a functional option for configuring an API.
type APIOption func(*API)

// WithAPILogger sets the logger.
func WithAPILogger(log *zap.Logger) APIOption {
	return func(a *API) {
		a.log = log
	}
}

// WithMaxSamples sets the number of iterations after which AOVs are converged.
func WithMaxSamples(n int) APIOption {
	return func(a *API) {
		if n > 0 {
			a.maxSamples = n
		}
	}
}

// WithIterationHook sets a function called after every render iteration, on the render goroutine.
func WithIterationHook(fn func()) APIOption {
	return func(a *API) {
		a.onIterate = fn
	}
}

// WithThreadOptions forwards options to the render thread the API creates.
func WithThreadOptions(options ...RenderThreadOption) APIOption {
	return func(a *API) {
		a.thread = NewRenderThread(a.iterate, options...)
	}
}

// NewAPI creates the scene on ctx and a stopped render thread iterating it.
//
// Parameters:
//   - ctx: the renderer context
//   - options: functional options
//
// Returns:
//   - *API: the API
//   - error: scene creation failure
func NewAPI(ctx Context, options ...APIOption) (*API, error) {
	scene, status := ctx.CreateScene()
	if err := Check(status, "failed to create scene"); err != nil {
		return nil, err
	}
	a := &API{
		ctx:        ctx,
		scene:      scene,
		log:        zap.NewNop(),
		maxSamples: 64,
		view:       mgl32.Ident4(),
		projection: mgl32.Ident4(),
		changed:    true,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.thread == nil {
		a.thread = NewRenderThread(a.iterate, WithThreadLogger(a.log))
	}
	return a, nil
}

// Thread returns the render thread.
func (a *API) Thread() *RenderThread {
	return a.thread
}

// Metadata returns the context metadata.
func (a *API) Metadata() ContextMetadata {
	return a.ctx.Metadata()
}

// ViewportSize returns the framebuffer size.
func (a *API) ViewportSize() (int, int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.width, a.height
}

// AovBindings returns a copy of the current bindings.
func (a *API) AovBindings() []AovBinding {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.aovs)
}

// CameraView returns the view matrix.
func (a *API) CameraView() mgl32.Mat4 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.view
}

// CameraProjection returns the projection matrix.
func (a *API) CameraProjection() mgl32.Mat4 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.projection
}

// IsChanged reports whether renderer state changed since the last iteration started.
func (a *API) IsChanged() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.changed
}

// IsConverged reports whether every bound AOV buffer converged. No bindings means not converged.
func (a *API) IsConverged() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.aovs) == 0 {
		return false
	}
	for _, b := range a.aovs {
		if b.Buffer != nil && !b.Buffer.IsConverged() {
			return false
		}
	}
	return true
}

// AcquireForEdit stops rendering and returns an Editor. The caller must Release it.
func (a *API) AcquireForEdit() *Editor {
	return &Editor{api: a, access: a.thread.Acquire()}
}

// iterate is the render thread body.
func (a *API) iterate() bool {
	a.mu.Lock()
	if a.changed {
		for _, b := range a.aovs {
			if b.Buffer != nil {
				b.Buffer.SetConverged(false)
			}
		}
		a.changed = false
	}
	aovs := slices.Clone(a.aovs)
	a.mu.Unlock()

	ErrorCheck(a.log, a.ctx.Render(a.scene), "failed to render")
	if a.onIterate != nil {
		a.onIterate()
	}

	converged := len(aovs) > 0
	for _, b := range aovs {
		if b.Buffer == nil {
			continue
		}
		b.Buffer.accumulate(a.maxSamples)
		converged = converged && b.Buffer.IsConverged()
	}
	return converged
}

// Editor is mutable access to renderer state. Rendering stays paused until Release.
type Editor struct {
	api    *API
	access *Access
}

// Release resumes rendering if this is the outermost hold.
func (e *Editor) Release() {
	e.access.Release()
}

// Access returns the underlying exclusive hold.
func (e *Editor) Access() *Access {
	return e.access
}

// API returns the API being edited.
func (e *Editor) API() *API {
	return e.api
}

// Context returns the renderer context.
func (e *Editor) Context() Context {
	return e.api.ctx
}

// Scene returns the renderer scene.
func (e *Editor) Scene() Scene {
	return e.api.scene
}

// Metadata returns the context metadata.
func (e *Editor) Metadata() ContextMetadata {
	return e.api.ctx.Metadata()
}

// MarkChanged flags that scene content changed so the next iteration restarts accumulation.
func (e *Editor) MarkChanged() {
	e.api.mu.Lock()
	defer e.api.mu.Unlock()
	e.api.changed = true
}

// SetViewportSize sets the framebuffer size and resizes every bound buffer.
func (e *Editor) SetViewportSize(width, height int) {
	a := e.api
	a.mu.Lock()
	defer a.mu.Unlock()
	a.width, a.height = width, height
	for _, b := range a.aovs {
		if b.Buffer != nil {
			b.Buffer.resize(width, height)
		}
	}
	a.changed = true
}

// SetAovBindings replaces the AOV bindings.
func (e *Editor) SetAovBindings(bindings []AovBinding) {
	a := e.api
	a.mu.Lock()
	defer a.mu.Unlock()
	a.aovs = slices.Clone(bindings)
	a.changed = true
}

// SetCameraView sets the view matrix.
func (e *Editor) SetCameraView(m mgl32.Mat4) {
	a := e.api
	a.mu.Lock()
	defer a.mu.Unlock()
	a.view = m
	a.changed = true
}

// SetCameraProjection sets the projection matrix.
func (e *Editor) SetCameraProjection(m mgl32.Mat4) {
	a := e.api
	a.mu.Lock()
	defer a.mu.Unlock()
	a.projection = m
	a.changed = true
}
