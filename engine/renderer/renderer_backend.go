package renderer

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// MemoryStats counts objects created and deleted by a MemoryContext.
type MemoryStats struct {
	ScenesCreated     int
	MeshesCreated     int
	InstancesCreated  int
	LightsCreated     int
	ImagesCreated     int
	NodesCreated      int
	ShapesDeleted     int
	LightsDeleted     int
	ImagesDeleted     int
	NodesDeleted      int
	RenderIterations  int
	FailedOperations  int
	ShapeSetterCalls  int
	LightSetterCalls  int
	MaterialNodeCalls int
}

// MemoryContext is a renderer backend that keeps every object in memory and records its state.
// It is the reference backend for the viewer and for tests.
type MemoryContext struct {
	mu       *sync.Mutex
	metadata ContextMetadata
	stats    MemoryStats
	failures map[string][]Status
}

var _ Context = &MemoryContext{}

// NewMemoryContext creates an in-memory renderer context.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - *MemoryContext: the context
func NewMemoryContext(options ...MemoryContextOption) *MemoryContext {
	c := &MemoryContext{
		mu:       &sync.Mutex{},
		failures: make(map[string][]Status),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// FailNext makes the next call of op return status. Ops are the Context method names
// such as "CreateMesh" or "CreateImage".
func (c *MemoryContext) FailNext(op string, status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = append(c.failures[op], status)
}

// Stats returns a snapshot of the counters.
func (c *MemoryContext) Stats() MemoryStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// injected pops a pending failure for op. Caller must hold c.mu.
func (c *MemoryContext) injected(op string) Status {
	queue := c.failures[op]
	if len(queue) == 0 {
		return StatusSuccess
	}
	c.failures[op] = queue[1:]
	c.stats.FailedOperations++
	return queue[0]
}

func (c *MemoryContext) Metadata() ContextMetadata {
	return c.metadata
}

func (c *MemoryContext) CreateScene() (Scene, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.injected("CreateScene"); st != StatusSuccess {
		return nil, st
	}
	c.stats.ScenesCreated++
	return &MemoryScene{
		memoryObject: memoryObject{ctx: c, id: uuid.NewString()},
		shapes:       make(map[*MemoryShape]struct{}),
		lights:       make(map[*MemoryLight]struct{}),
	}, StatusSuccess
}

func (c *MemoryContext) CreateMesh(data MeshData) (Shape, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.injected("CreateMesh"); st != StatusSuccess {
		return nil, st
	}
	if len(data.Points) == 0 || len(data.PointIndices) == 0 || len(data.FaceVertexCounts) == 0 {
		c.stats.FailedOperations++
		return nil, StatusInvalidParameter
	}
	c.stats.MeshesCreated++
	return newMemoryShape(c, data, nil), StatusSuccess
}

func (c *MemoryContext) CreateInstance(prototype Shape) (Shape, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.injected("CreateInstance"); st != StatusSuccess {
		return nil, st
	}
	proto, ok := prototype.(*MemoryShape)
	if !ok || proto.deleted {
		c.stats.FailedOperations++
		return nil, StatusInvalidObject
	}
	c.stats.InstancesCreated++
	return newMemoryShape(c, proto.data, proto), StatusSuccess
}

func (c *MemoryContext) CreateDirectionalLight() (Light, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.injected("CreateDirectionalLight"); st != StatusSuccess {
		return nil, st
	}
	c.stats.LightsCreated++
	return &MemoryLight{memoryObject: memoryObject{ctx: c, id: uuid.NewString()}, transform: mgl32.Ident4()}, StatusSuccess
}

func (c *MemoryContext) CreateImage(desc ImageDesc, pixels []byte) (Image, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.injected("CreateImage"); st != StatusSuccess {
		return nil, st
	}
	if desc.Width < 1 || desc.Height < 1 || len(pixels) < desc.Width*desc.Height*4 {
		c.stats.FailedOperations++
		return nil, StatusInvalidParameter
	}
	c.stats.ImagesCreated++
	return &MemoryImage{memoryObject: memoryObject{ctx: c, id: uuid.NewString()}, desc: desc}, StatusSuccess
}

func (c *MemoryContext) CreateMaterialNode(t MaterialNodeType) (MaterialNode, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.injected("CreateMaterialNode"); st != StatusSuccess {
		return nil, st
	}
	c.stats.NodesCreated++
	return &MemoryMaterialNode{
		memoryObject: memoryObject{ctx: c, id: uuid.NewString()},
		nodeType:     t,
		colors:       make(map[string]mgl32.Vec4),
		nodes:        make(map[string]MaterialNode),
		images:       make(map[string]Image),
	}, StatusSuccess
}

func (c *MemoryContext) Render(scene Scene) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.injected("Render"); st != StatusSuccess {
		return st
	}
	s, ok := scene.(*MemoryScene)
	if !ok || s.deleted {
		return StatusInvalidObject
	}
	c.stats.RenderIterations++
	return StatusSuccess
}

// memoryObject is the shared identity and lifetime state of every memory object.
// All fields are guarded by ctx.mu.
type memoryObject struct {
	ctx     *MemoryContext
	id      string
	deleted bool
}

func (o *memoryObject) ID() string {
	return o.id
}

// Deleted reports whether Delete was called.
func (o *memoryObject) Deleted() bool {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	return o.deleted
}

// MemoryShape is a mesh or instance of the memory backend.
type MemoryShape struct {
	memoryObject
	data           MeshData
	prototype      *MemoryShape
	transform      mgl32.Mat4
	linearMotion   mgl32.Vec3
	scaleMotion    mgl32.Vec3
	rotationAxis   mgl32.Vec3
	rotationAngle  float32
	subdivision    int
	boundary       SubdivBoundary
	visibility     VisibilityFlag
	objectID       uint32
	material       MaterialNode
}

var _ Shape = &MemoryShape{}

func newMemoryShape(c *MemoryContext, data MeshData, prototype *MemoryShape) *MemoryShape {
	return &MemoryShape{
		memoryObject: memoryObject{ctx: c, id: uuid.NewString()},
		data:         data,
		prototype:    prototype,
		transform:    mgl32.Ident4(),
		visibility:   VisibleAll,
	}
}

// setter runs fn under the context lock unless the shape is deleted.
func (s *MemoryShape) setter(fn func()) Status {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if s.deleted {
		s.ctx.stats.FailedOperations++
		return StatusInvalidObject
	}
	s.ctx.stats.ShapeSetterCalls++
	fn()
	return StatusSuccess
}

func (s *MemoryShape) Delete() Status {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if s.deleted {
		return StatusInvalidObject
	}
	s.deleted = true
	s.ctx.stats.ShapesDeleted++
	return StatusSuccess
}

func (s *MemoryShape) SetTransform(m mgl32.Mat4) Status {
	return s.setter(func() { s.transform = m })
}

func (s *MemoryShape) SetLinearMotion(v mgl32.Vec3) Status {
	return s.setter(func() { s.linearMotion = v })
}

func (s *MemoryShape) SetScaleMotion(v mgl32.Vec3) Status {
	return s.setter(func() { s.scaleMotion = v })
}

func (s *MemoryShape) SetAngularMotion(axis mgl32.Vec3, angle float32) Status {
	return s.setter(func() { s.rotationAxis, s.rotationAngle = axis, angle })
}

func (s *MemoryShape) SetSubdivisionFactor(factor int) Status {
	if factor < 0 {
		return StatusInvalidParameter
	}
	return s.setter(func() { s.subdivision = factor })
}

func (s *MemoryShape) SetSubdivisionBoundary(rule SubdivBoundary) Status {
	return s.setter(func() { s.boundary = rule })
}

func (s *MemoryShape) SetVisibilityFlag(flag VisibilityFlag, visible bool) Status {
	return s.setter(func() {
		if visible {
			s.visibility |= flag
		} else {
			s.visibility &^= flag
		}
	})
}

func (s *MemoryShape) SetObjectID(id uint32) Status {
	return s.setter(func() { s.objectID = id })
}

func (s *MemoryShape) SetMaterial(node MaterialNode) Status {
	return s.setter(func() { s.material = node })
}

// Data returns the buffers the shape was created from.
func (s *MemoryShape) Data() MeshData {
	return s.data
}

// Prototype returns the shape this instance was created from, or nil for a mesh.
func (s *MemoryShape) Prototype() *MemoryShape {
	return s.prototype
}

// Transform returns the last transform set.
func (s *MemoryShape) Transform() mgl32.Mat4 {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.transform
}

// Motion returns the last linear, scale and angular motion set.
func (s *MemoryShape) Motion() (linear, scale, axis mgl32.Vec3, angle float32) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.linearMotion, s.scaleMotion, s.rotationAxis, s.rotationAngle
}

// SubdivisionFactor returns the last subdivision factor set.
func (s *MemoryShape) SubdivisionFactor() int {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.subdivision
}

// SubdivisionBoundary returns the last boundary rule set.
func (s *MemoryShape) SubdivisionBoundary() SubdivBoundary {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.boundary
}

// Visibility returns the current visibility mask.
func (s *MemoryShape) Visibility() VisibilityFlag {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.visibility
}

// ObjectID returns the last object id set.
func (s *MemoryShape) ObjectID() uint32 {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.objectID
}

// Material returns the attached material node.
func (s *MemoryShape) Material() MaterialNode {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.material
}

// MemoryLight is a directional light of the memory backend.
type MemoryLight struct {
	memoryObject
	transform mgl32.Mat4
	radiance  mgl32.Vec3
	softness  float32
}

var _ Light = &MemoryLight{}

func (l *MemoryLight) setter(fn func()) Status {
	l.ctx.mu.Lock()
	defer l.ctx.mu.Unlock()
	if l.deleted {
		l.ctx.stats.FailedOperations++
		return StatusInvalidObject
	}
	l.ctx.stats.LightSetterCalls++
	fn()
	return StatusSuccess
}

func (l *MemoryLight) Delete() Status {
	l.ctx.mu.Lock()
	defer l.ctx.mu.Unlock()
	if l.deleted {
		return StatusInvalidObject
	}
	l.deleted = true
	l.ctx.stats.LightsDeleted++
	return StatusSuccess
}

func (l *MemoryLight) SetTransform(m mgl32.Mat4) Status {
	return l.setter(func() { l.transform = m })
}

func (l *MemoryLight) SetDirectionalRadiance(radiance mgl32.Vec3) Status {
	return l.setter(func() { l.radiance = radiance })
}

func (l *MemoryLight) SetDirectionalShadowSoftness(softness float32) Status {
	if softness < 0 || softness > 1 {
		return StatusInvalidParameter
	}
	return l.setter(func() { l.softness = softness })
}

// Transform returns the last transform set.
func (l *MemoryLight) Transform() mgl32.Mat4 {
	l.ctx.mu.Lock()
	defer l.ctx.mu.Unlock()
	return l.transform
}

// Radiance returns the last radiance set.
func (l *MemoryLight) Radiance() mgl32.Vec3 {
	l.ctx.mu.Lock()
	defer l.ctx.mu.Unlock()
	return l.radiance
}

// ShadowSoftness returns the last softness set.
func (l *MemoryLight) ShadowSoftness() float32 {
	l.ctx.mu.Lock()
	defer l.ctx.mu.Unlock()
	return l.softness
}

// MemoryImage is an image of the memory backend.
type MemoryImage struct {
	memoryObject
	desc ImageDesc
}

var _ Image = &MemoryImage{}

func (i *MemoryImage) Delete() Status {
	i.ctx.mu.Lock()
	defer i.ctx.mu.Unlock()
	if i.deleted {
		return StatusInvalidObject
	}
	i.deleted = true
	i.ctx.stats.ImagesDeleted++
	return StatusSuccess
}

func (i *MemoryImage) Desc() ImageDesc {
	return i.desc
}

// MemoryMaterialNode is a material node of the memory backend.
type MemoryMaterialNode struct {
	memoryObject
	nodeType MaterialNodeType
	colors   map[string]mgl32.Vec4
	nodes    map[string]MaterialNode
	images   map[string]Image
}

var _ MaterialNode = &MemoryMaterialNode{}

func (n *MemoryMaterialNode) setter(fn func()) Status {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	if n.deleted {
		n.ctx.stats.FailedOperations++
		return StatusInvalidObject
	}
	n.ctx.stats.MaterialNodeCalls++
	fn()
	return StatusSuccess
}

func (n *MemoryMaterialNode) Delete() Status {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	if n.deleted {
		return StatusInvalidObject
	}
	n.deleted = true
	n.ctx.stats.NodesDeleted++
	return StatusSuccess
}

func (n *MemoryMaterialNode) Type() MaterialNodeType {
	return n.nodeType
}

func (n *MemoryMaterialNode) SetInputColor(key string, c mgl32.Vec4) Status {
	return n.setter(func() { n.colors[key] = c })
}

func (n *MemoryMaterialNode) SetInputNode(key string, node MaterialNode) Status {
	return n.setter(func() { n.nodes[key] = node })
}

func (n *MemoryMaterialNode) SetInputImage(key string, img Image) Status {
	return n.setter(func() { n.images[key] = img })
}

// InputColor returns a color input.
func (n *MemoryMaterialNode) InputColor(key string) (mgl32.Vec4, bool) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	c, ok := n.colors[key]
	return c, ok
}

// InputNode returns a node input.
func (n *MemoryMaterialNode) InputNode(key string) MaterialNode {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	return n.nodes[key]
}

// InputImage returns an image input.
func (n *MemoryMaterialNode) InputImage(key string) Image {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	return n.images[key]
}

// MemoryScene is a scene of the memory backend.
type MemoryScene struct {
	memoryObject
	shapes map[*MemoryShape]struct{}
	lights map[*MemoryLight]struct{}
}

var _ Scene = &MemoryScene{}

func (s *MemoryScene) Delete() Status {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if s.deleted {
		return StatusInvalidObject
	}
	s.deleted = true
	return StatusSuccess
}

func (s *MemoryScene) AttachShape(shape Shape) Status {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	ms, ok := shape.(*MemoryShape)
	if !ok || ms.deleted || s.deleted {
		s.ctx.stats.FailedOperations++
		return StatusInvalidObject
	}
	s.shapes[ms] = struct{}{}
	return StatusSuccess
}

func (s *MemoryScene) DetachShape(shape Shape) Status {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	ms, ok := shape.(*MemoryShape)
	if !ok {
		return StatusInvalidObject
	}
	if _, attached := s.shapes[ms]; !attached {
		return StatusInvalidParameter
	}
	delete(s.shapes, ms)
	return StatusSuccess
}

func (s *MemoryScene) AttachLight(light Light) Status {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	ml, ok := light.(*MemoryLight)
	if !ok || ml.deleted || s.deleted {
		s.ctx.stats.FailedOperations++
		return StatusInvalidObject
	}
	s.lights[ml] = struct{}{}
	return StatusSuccess
}

func (s *MemoryScene) DetachLight(light Light) Status {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	ml, ok := light.(*MemoryLight)
	if !ok {
		return StatusInvalidObject
	}
	if _, attached := s.lights[ml]; !attached {
		return StatusInvalidParameter
	}
	delete(s.lights, ml)
	return StatusSuccess
}

// IsAttached reports whether a shape or light is attached to the scene.
func (s *MemoryScene) IsAttached(obj Object) bool {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	switch o := obj.(type) {
	case *MemoryShape:
		_, ok := s.shapes[o]
		return ok
	case *MemoryLight:
		_, ok := s.lights[o]
		return ok
	}
	return false
}

// Shapes returns the attached shapes.
func (s *MemoryScene) Shapes() []*MemoryShape {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	out := make([]*MemoryShape, 0, len(s.shapes))
	for sh := range s.shapes {
		out = append(out, sh)
	}
	return out
}

// Lights returns the attached lights.
func (s *MemoryScene) Lights() []*MemoryLight {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	out := make([]*MemoryLight, 0, len(s.lights))
	for l := range s.lights {
		out = append(out, l)
	}
	return out
}
