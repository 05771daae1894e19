package resource

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/Carmen-Shannon/hdrpr/engine/geometry"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

type meshDirtyBits uint32

const (
	dirtyRefineLevel meshDirtyBits = 1 << iota
	dirtyInterpolationRule
	dirtyMaterial
	dirtyVisibility
	dirtyTransform
	dirtyID

	meshAllClean meshDirtyBits = 0
	meshAllDirty               = dirtyID<<1 - 1
)

// Material is anything that can bind itself to a shape.
type Material interface {
	AttachTo(shape renderer.Shape) bool
}

// Mesh is the state shared by prototypes and instances: the renderer shape and its staged attributes.
// Setters only stage a change when the value differs, and enqueue the owning resource.
type Mesh struct {
	mu *sync.Mutex

	ctx   *Context
	owner Resource

	shape    renderer.Shape
	scene    renderer.Scene
	attached bool

	leftHanded  bool
	refineLevel int
	boundary    renderer.SubdivBoundary
	material    Material
	visibility  renderer.VisibilityFlag
	transform   common.TimeSamples[mgl32.Mat4]
	id          uint32

	dirty meshDirtyBits
	log   *zap.Logger
}

func newMesh(ctx *Context, options []MeshOption) Mesh {
	m := Mesh{
		mu:         &sync.Mutex{},
		ctx:        ctx,
		visibility: renderer.VisibleAll,
		transform:  common.Single(mgl32.Ident4()),
		log:        zap.NewNop(),
	}
	for _, opt := range options {
		opt(&m)
	}
	return m
}

func (m *Mesh) markLocked(bits meshDirtyBits) {
	m.dirty |= bits
	if m.ctx != nil && m.owner != nil {
		m.ctx.Enqueue(m.owner)
	}
}

// Shape returns the committed renderer shape, or nil before the first commit.
func (m *Mesh) Shape() renderer.Shape {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shape
}

// Stalled reports whether the mesh has no shape and is not queued to create one. A creation that failed
// during a flush leaves the mesh stalled once the queue is reset.
func (m *Mesh) Stalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shape == nil && (m.ctx == nil || m.owner == nil || !m.ctx.IsPending(m.owner))
}

// Requeue stages every attribute again and enqueues the owning resource.
func (m *Mesh) Requeue() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markLocked(meshAllDirty)
}

// SetRefineLevel stages the subdivision factor.
func (m *Mesh) SetRefineLevel(level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refineLevel != level {
		m.refineLevel = level
		m.markLocked(dirtyRefineLevel)
	}
}

// SetBoundaryInterpolation stages the subdivision boundary rule.
func (m *Mesh) SetBoundaryInterpolation(rule renderer.SubdivBoundary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.boundary != rule {
		m.boundary = rule
		m.markLocked(dirtyInterpolationRule)
	}
}

// SetMaterial stages the bound material. nil detaches.
func (m *Mesh) SetMaterial(material Material) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.material != material {
		m.material = material
		m.markLocked(dirtyMaterial)
	}
}

// SetVisibility stages the visibility mask.
func (m *Mesh) SetVisibility(mask renderer.VisibilityFlag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.visibility != mask {
		m.visibility = mask
		m.markLocked(dirtyVisibility)
	}
}

// Visibility returns the staged visibility mask.
func (m *Mesh) Visibility() renderer.VisibilityFlag {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visibility
}

// SetTransform stages a single transform.
func (m *Mesh) SetTransform(transform mgl32.Mat4) {
	m.SetTransformSamples(common.Single(transform))
}

// SetTransformSamples stages time-sampled transforms.
func (m *Mesh) SetTransformSamples(samples common.TimeSamples[mgl32.Mat4]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.Equal(m.transform.Times, samples.Times) && slices.Equal(m.transform.Values, samples.Values) {
		return
	}
	m.transform = common.TimeSamples[mgl32.Mat4]{
		Times:  common.Clone(samples.Times),
		Values: common.Clone(samples.Values),
	}
	m.markLocked(dirtyTransform)
}

// SetID stages the object id.
func (m *Mesh) SetID(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id != id {
		m.id = id
		m.markLocked(dirtyID)
	}
}

// adoptLocked takes ownership of a freshly created shape and attaches it.
func (m *Mesh) adoptLocked(ed *renderer.Editor, shape renderer.Shape) {
	m.shape = shape
	m.scene = ed.Scene()
	m.attached = false
	m.dirty = meshAllDirty
	m.attachLocked(true)
}

func (m *Mesh) attachLocked(attach bool) bool {
	if m.attached == attach {
		return true
	}
	var status renderer.Status
	if attach {
		status = m.scene.AttachShape(m.shape)
	} else {
		status = m.scene.DetachShape(m.shape)
	}
	if renderer.ErrorCheck(m.log, status, "failed to change mesh attachment", zap.Bool("attach", attach)) {
		return false
	}
	m.attached = attach
	return true
}

// commitLocked applies every staged attribute. A bit is cleared only when its renderer calls succeed,
// so failed attributes are retried on the next commit.
func (m *Mesh) commitLocked(meta renderer.ContextMetadata) bool {
	if m.shape == nil {
		return false
	}
	entry := m.dirty

	if m.dirty&dirtyRefineLevel != 0 {
		if !renderer.ErrorCheck(m.log, m.shape.SetSubdivisionFactor(m.refineLevel), "failed to set mesh subdivision level") {
			m.dirty &^= dirtyRefineLevel
		}
	}

	if m.dirty&dirtyInterpolationRule != 0 {
		if !renderer.ErrorCheck(m.log, m.shape.SetSubdivisionBoundary(m.boundary), "failed to set mesh subdivision boundary") {
			m.dirty &^= dirtyInterpolationRule
		}
	}

	if m.dirty&dirtyMaterial != 0 {
		var ok bool
		if m.material != nil {
			ok = m.material.AttachTo(m.shape)
		} else {
			ok = !renderer.ErrorCheck(m.log, m.shape.SetMaterial(nil), "failed to detach mesh material")
		}
		if ok {
			m.dirty &^= dirtyMaterial
		}
	}

	if m.dirty&dirtyVisibility != 0 {
		var ok bool
		if meta.PluginType == renderer.PluginHybrid {
			// the hybrid plugin has no per-ray visibility, emulate it with scene membership
			ok = m.attachLocked(m.visibility != renderer.VisibleNone)
		} else {
			ok = renderer.SetVisibilityMask(m.log, m.shape, m.visibility)
		}
		if ok {
			m.dirty &^= dirtyVisibility
		}
	}

	if m.dirty&dirtyID != 0 {
		if !renderer.ErrorCheck(m.log, m.shape.SetObjectID(m.id), "failed to set mesh id") {
			m.dirty &^= dirtyID
		}
	}

	if m.dirty&dirtyTransform != 0 {
		if renderer.SetTransformSamples(m.log, m.shape, m.transform) {
			m.dirty &^= dirtyTransform
		}
	}

	return entry != meshAllClean
}

// Delete detaches and deletes the renderer shape. The staged attributes are kept so a later commit
// recreates an identical shape. Must be called while the render thread is stopped.
func (m *Mesh) Delete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shape == nil {
		return
	}
	if m.attached && m.scene != nil {
		renderer.ErrorCheck(m.log, m.scene.DetachShape(m.shape), "failed to detach mesh")
	}
	renderer.ErrorCheck(m.log, m.shape.Delete(), "failed to delete mesh")
	m.shape = nil
	m.attached = false
	m.dirty = meshAllDirty
}

// MeshPrototype owns a renderer mesh created from its geometry at commit time.
type MeshPrototype struct {
	Mesh
	data geometry.Buffers
}

var _ Resource = &MeshPrototype{}

// NewMeshPrototype stages a mesh and enqueues it on ctx.
//
// Parameters:
//   - ctx: the commit queue, nil to commit manually
//   - data: authored geometry, preprocessed when the shape is created
//   - options: functional options
//
// Returns:
//   - *MeshPrototype: the staged mesh
func NewMeshPrototype(ctx *Context, data geometry.Buffers, options ...MeshOption) *MeshPrototype {
	p := &MeshPrototype{Mesh: newMesh(ctx, options), data: data}
	p.owner = p
	p.mu.Lock()
	p.markLocked(meshAllDirty)
	p.mu.Unlock()
	return p
}

// Kind labels prototype commits.
func (p *MeshPrototype) Kind() string {
	return "meshPrototype"
}

// Data returns the authored geometry.
func (p *MeshPrototype) Data() geometry.Buffers {
	return p.data
}

// Commit creates the renderer mesh if needed, then applies every staged attribute.
func (p *MeshPrototype) Commit(ed *renderer.Editor) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	meta := ed.Metadata()
	if p.shape == nil {
		buffers := geometry.Preprocess(p.data, geometry.Options{
			LeftHanded:          p.leftHanded,
			SynthesizeFallbacks: meta.PluginType == renderer.PluginHybrid,
		})
		shape, status := ed.Context().CreateMesh(buffers.MeshData())
		if renderer.ErrorCheck(p.log, status, "failed to create mesh") {
			return false
		}
		p.adoptLocked(ed, shape)
	}
	return p.commitLocked(meta)
}

// MeshInstance is a renderer instance of a prototype's mesh.
type MeshInstance struct {
	Mesh
	prototype *MeshPrototype
}

var _ Resource = &MeshInstance{}

// NewMeshInstance stages an instance of prototype and enqueues it on ctx after the prototype.
//
// Parameters:
//   - ctx: the commit queue, nil to commit manually
//   - prototype: the instanced mesh
//   - options: functional options
//
// Returns:
//   - *MeshInstance: the staged instance
func NewMeshInstance(ctx *Context, prototype *MeshPrototype, options ...MeshOption) *MeshInstance {
	in := &MeshInstance{Mesh: newMesh(ctx, options), prototype: prototype}
	in.owner = in
	in.mu.Lock()
	in.markLocked(meshAllDirty)
	in.mu.Unlock()
	return in
}

// Kind labels instance commits.
func (in *MeshInstance) Kind() string {
	return "meshInstance"
}

// Commit creates the renderer instance if needed, then applies every staged attribute.
// The prototype must have been committed first.
func (in *MeshInstance) Commit(ed *renderer.Editor) bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.shape == nil {
		protoShape := in.prototype.Shape()
		if protoShape == nil {
			in.log.DPanic("mesh instance committed before its prototype")
			return false
		}
		shape, status := ed.Context().CreateInstance(protoShape)
		if renderer.ErrorCheck(in.log, status, "failed to create mesh instance") {
			return false
		}
		in.adoptLocked(ed, shape)
	}
	return in.commitLocked(ed.Metadata())
}
