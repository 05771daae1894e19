// Package mesh syncs mesh prims. Sync pulls dirty scene data and stages preprocessed buffers without
// touching the renderer; Commit rebuilds and updates the renderer shapes while the render thread is stopped.
package mesh

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/Carmen-Shannon/hdrpr/engine/geometry"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer/material"
	"github.com/Carmen-Shannon/hdrpr/engine/resource"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Dirty bits private to the mesh, set by Sync for Commit.
const (
	dirtyMesh = scene.CustomBitsBegin << iota
	dirtyVisibilityMask
	dirtyRefineLevel
	dirtyFallbackMaterial
)

// InitialDirtyBits lists every bit the first Sync of a mesh reads.
const InitialDirtyBits = scene.DirtyPoints |
	scene.DirtyTopology |
	scene.DirtyTransform |
	scene.DirtyPrimvar |
	scene.DirtyNormals |
	scene.DirtyMaterialID |
	scene.DirtySubdivTags |
	scene.DirtyDisplayStyle |
	scene.DirtyVisibility |
	scene.DirtyInstancer |
	scene.DirtyInstanceIndex |
	scene.DirtyPrimID

// MaterialLookup resolves material prims by scene path.
type MaterialLookup interface {
	// MaterialPrim returns the material prim at id, or nil if none exists.
	MaterialPrim(id scene.PathID) *material.Prim
}

// Mesh is the renderer-side state of one mesh prim.
type Mesh struct {
	mu *sync.Mutex

	id        scene.PathID
	commits   *resource.Context
	materials MaterialLookup

	points                   []mgl32.Vec3
	topology                 scene.Topology
	normals                  []mgl32.Vec3
	normalIndices            []int32
	authoredNormals          bool
	uvs                      []mgl32.Vec2
	uvIndices                []int32
	sharedFaceVaryingIndices []int32

	// adjacency is nil until smooth normals are first needed after a topology change.
	adjacency    *geometry.Adjacency
	normalsValid bool

	visible        bool
	displayStyle   scene.DisplayStyle
	refineLevel    int
	visibilityMask renderer.VisibilityFlag
	vertexRule     scene.Token
	transform      common.TimeSamples[mgl32.Mat4]
	primID         uint32

	instanceTimes      []float32
	instanceTransforms [][]mgl32.Mat4 // [instance][sample]

	materialIDs      []scene.PathID
	fallbackRequired bool
	fallbackColor    mgl32.Vec3

	staged     []geometry.Buffers
	commitBits scene.DirtyBits

	shapes    []renderer.Shape
	instances [][]renderer.Shape
	attached  map[renderer.Shape]bool
	fallback  material.Material

	log *zap.Logger
}

var _ resource.Resource = &Mesh{}

// NewMesh creates a mesh prim with no renderer shapes.
//
// Parameters:
//   - id: the prim path
//   - options: functional options
//
// Returns:
//   - *Mesh: the mesh
func NewMesh(id scene.PathID, options ...MeshBuilderOption) *Mesh {
	m := &Mesh{
		mu:             &sync.Mutex{},
		id:             id,
		visibilityMask: renderer.VisibleAll,
		fallbackColor:  material.DefaultDiffuseColor,
		attached:       make(map[renderer.Shape]bool),
		log:            zap.NewNop(),
	}
	for _, opt := range options {
		opt(m)
	}
	m.log = m.log.Named("mesh").With(zap.String("prim", string(id)))
	return m
}

// ID returns the prim path.
func (m *Mesh) ID() scene.PathID {
	return m.id
}

// Kind labels mesh commits.
func (m *Mesh) Kind() string {
	return "mesh"
}

// Sync pulls every dirty piece of scene data, in dependency order, and stages a commit if anything
// changed. It never calls the renderer, so meshes may sync concurrently.
//
// Parameters:
//   - sd: the scene delegate
//   - tracker: the change tracker holding the mesh's dirty bits
//   - meta: the renderer variant, which decides fallback normal and uv synthesis
//
// Returns:
//   - bool: whether a Commit is pending
func (m *Mesh) Sync(sd scene.Delegate, tracker scene.ChangeTracker, meta renderer.ContextMetadata) bool {
	bits := tracker.DirtyBits(m.id)

	m.mu.Lock()
	defer m.mu.Unlock()

	commitBits := bits
	newMesh := m.syncPoints(sd, bits)

	if bits.TopologyDirty() {
		m.topology = sd.GetMeshTopology(m.id)
		if err := m.topology.Validate(); err != nil {
			m.log.Error("invalid mesh topology", zap.Error(err))
			m.topology = scene.Topology{}
		}
		m.adjacency = nil
		m.normalsValid = false
		m.sharedFaceVaryingIndices = nil
		newMesh = true
	}

	descs := fetchDescriptors(sd, m.id)

	if bits.PrimvarDirty(scene.TokenNormals) {
		m.normals, m.normalIndices, m.authoredNormals = primvarData[mgl32.Vec3](m, sd, scene.TokenNormals, descs)
		m.normalsValid = false
		newMesh = true
	}

	if bits.Has(scene.DirtyMaterialID) || bits.TopologyDirty() {
		m.syncMaterialIDs(sd)
	}

	if bits.Has(scene.DirtyMaterialID | scene.DirtyPrimvar) {
		required := m.anyMaterialMissing()
		color := displayColor(sd, m.id, descs[scene.InterpolationConstant], material.DefaultDiffuseColor)
		if required != m.fallbackRequired || (required && color != m.fallbackColor) {
			m.fallbackRequired, m.fallbackColor = required, color
			commitBits |= dirtyFallbackMaterial
		}

		if bound := m.materialPrim(0); bound != nil && bound.Material() != nil {
			name := bound.UVPrimvarName()
			if bits.PrimvarDirty(name) || bits.Has(scene.DirtyMaterialID) {
				m.uvs, m.uvIndices, _ = primvarData[mgl32.Vec2](m, sd, name, descs)
				newMesh = true
			}
		} else if len(m.uvs) > 0 {
			m.uvs, m.uvIndices = nil, nil
			newMesh = true
		}
	}

	if bits.Has(scene.DirtyVisibility) {
		m.visible = sd.GetVisible(m.id)
	}

	refineLevel := m.refineLevel
	if bits.Has(scene.DirtyDisplayStyle) {
		m.displayStyle = sd.GetDisplayStyle(m.id)
		refineLevel = m.displayStyle.RefineLevel
	}
	if bits.Has(scene.DirtyPrimvar) {
		settings := parseGeometrySettings(sd, m.id, descs[scene.InterpolationConstant], geometrySettings{
			visibilityMask:   renderer.VisibleAll,
			subdivisionLevel: m.displayStyle.RefineLevel,
		})
		refineLevel = settings.subdivisionLevel
		if settings.visibilityMask != m.visibilityMask {
			m.visibilityMask = settings.visibilityMask
			commitBits |= dirtyVisibilityMask
		}
	}
	if refineLevel != m.refineLevel {
		m.refineLevel = refineLevel
		commitBits |= dirtyRefineLevel
	}

	if m.syncSmoothNormals() {
		newMesh = true
	}

	if bits.Has(scene.DirtyTransform) {
		m.transform = sd.SampleTransform(m.id)
	}

	if bits.Has(scene.DirtySubdivTags) {
		rule := sd.GetSubdivTags(m.id).VertexInterpolationRule
		if rule != m.vertexRule {
			m.vertexRule = rule
		} else {
			commitBits &^= scene.DirtySubdivTags
		}
	}

	if bits.Has(scene.DirtyPrimID) {
		m.primID = sd.GetPrimID(m.id)
	}

	// instance transforms are composed with the prototype transform, so either change recomposes them
	if bits.Has(scene.DirtyInstancer) || (bits.Has(scene.DirtyTransform) && len(m.instanceTransforms) > 0) {
		m.syncInstances(sd)
		commitBits |= scene.DirtyInstancer
	}

	if newMesh {
		commitBits |= dirtyMesh
		m.staged = m.stage(meta)
	}

	m.commitBits |= commitBits
	pending := m.commitBits != scene.Clean
	if pending && m.commits != nil {
		m.commits.Enqueue(m)
	}

	tracker.MarkClean(m.id, bits)
	return pending
}

// syncPoints reads computed points if the mesh has a points computation, else authored points.
func (m *Mesh) syncPoints(sd scene.Delegate, bits scene.DirtyBits) bool {
	if !bits.PrimvarDirty(scene.TokenPoints) {
		return false
	}

	for _, desc := range sd.GetComputationPrimvarDescriptors(m.id, scene.InterpolationVertex) {
		if desc.Name != scene.TokenPoints {
			continue
		}
		if v, ok := sd.GetComputedPrimvar(m.id, desc.Name); ok {
			if points, ok := v.([]mgl32.Vec3); ok {
				m.points = points
				m.normalsValid = false
				return true
			}
		}
		break
	}

	m.points, _ = sd.Get(m.id, scene.TokenPoints).([]mgl32.Vec3)
	m.normalsValid = false
	return true
}

// syncMaterialIDs records the material of every shape Commit will build: one per face set followed by the
// mesh's own material for the faces no subset covers, or just the mesh's material without subsets.
func (m *Mesh) syncMaterialIDs(sd scene.Delegate) {
	meshMaterial := sd.GetMaterialID(m.id)
	m.materialIDs = m.materialIDs[:0]
	if len(m.topology.GeomSubsets) == 0 {
		m.materialIDs = append(m.materialIDs, meshMaterial)
		return
	}
	for _, s := range m.topology.GeomSubsets {
		if s.Type == scene.GeomSubsetFaceSet {
			m.materialIDs = append(m.materialIDs, s.MaterialID)
		}
	}
	m.materialIDs = append(m.materialIDs, meshMaterial)
}

func (m *Mesh) materialPrim(i int) *material.Prim {
	if m.materials == nil || i >= len(m.materialIDs) || m.materialIDs[i] == "" {
		return nil
	}
	return m.materials.MaterialPrim(m.materialIDs[i])
}

func (m *Mesh) boundMaterial(i int) material.Material {
	if p := m.materialPrim(i); p != nil {
		return p.Material()
	}
	return nil
}

func (m *Mesh) anyMaterialMissing() bool {
	if len(m.materialIDs) == 0 {
		return true
	}
	for i := range m.materialIDs {
		if m.boundMaterial(i) == nil {
			return true
		}
	}
	return false
}

// syncSmoothNormals derives per-vertex normals from adjacency when none are authored, flat shading is
// requested and the mesh is not refined. It reports whether the normals changed.
func (m *Mesh) syncSmoothNormals() bool {
	if m.authoredNormals {
		return false
	}

	refined := m.topology.Scheme == scene.TokenCatmullClark && m.refineLevel > 0
	if !m.displayStyle.FlatShadingEnabled || refined {
		if len(m.normals) == 0 {
			return false
		}
		m.normals, m.normalIndices = nil, nil
		m.normalsValid = false
		return true
	}

	if m.adjacency == nil {
		leftHanded := m.topology.Orientation == scene.TokenLeftHanded
		m.adjacency = geometry.BuildAdjacency(m.topology.FaceVertexCounts, m.topology.FaceVertexIndices, leftHanded)
		m.normalsValid = false
	}
	if m.normalsValid {
		return false
	}
	m.normals = geometry.SmoothNormals(m.adjacency, m.points)
	m.normalIndices = nil
	m.normalsValid = true
	return true
}

// syncInstances samples the instancer and composes every instance transform with the mesh's own,
// resampled at each instancer sample time.
func (m *Mesh) syncInstances(sd scene.Delegate) {
	m.instanceTransforms, m.instanceTimes = nil, nil

	instancerID := sd.GetInstancerID(m.id)
	if instancerID == "" {
		return
	}
	samples, ok := sd.SampleInstancerTransforms(instancerID, m.id)
	if !ok || samples.Count() == 0 || len(samples.Values[0]) == 0 {
		return
	}

	numInstances := len(samples.Values[0])
	numSamples := samples.Count()
	identity := m.transform.Count() == 0 || (m.transform.Count() == 1 && common.IsIdentity(m.transform.Values[0]))

	times := make([]float32, numSamples)
	copy(times, samples.Times)

	m.instanceTransforms = make([][]mgl32.Mat4, numInstances)
	for i := range m.instanceTransforms {
		xf := make([]mgl32.Mat4, numSamples)
		for j := range xf {
			values := samples.Values[j]
			if i >= len(values) {
				values = samples.Values[0]
			}
			xf[j] = values[i]
			if !identity {
				xf[j] = values[i].Mul4(common.ResampleMat4(m.transform, times[j]))
			}
		}
		m.instanceTransforms[i] = xf
	}
	m.instanceTimes = times
}

// stage preprocesses the current buffers into one part per shape.
func (m *Mesh) stage(meta renderer.ContextMetadata) []geometry.Buffers {
	src, err := m.sanitizedBuffers()
	if err != nil {
		m.log.Error("mesh is not renderable", zap.Error(err))
		return nil
	}

	opts := geometry.Options{
		LeftHanded:          m.topology.Orientation == scene.TokenLeftHanded,
		SynthesizeFallbacks: meta.PluginType == renderer.PluginHybrid,
	}
	if len(m.topology.GeomSubsets) == 0 {
		return []geometry.Buffers{geometry.Preprocess(src, opts)}
	}
	parts, _ := splitSubsets(src, faceSets(m.topology.GeomSubsets, m.log), opts)
	return parts
}

// sanitizedBuffers returns the authored buffers, dropping primvars whose indices do not fit their data.
// Point indices out of range make the mesh unrenderable.
func (m *Mesh) sanitizedBuffers() (geometry.Buffers, error) {
	b := geometry.Buffers{
		Points:           m.points,
		FaceVertexCounts: m.topology.FaceVertexCounts,
		PointIndices:     m.topology.FaceVertexIndices,
		Normals:          m.normals,
		NormalIndices:    m.normalIndices,
		UVs:              m.uvs,
		UVIndices:        m.uvIndices,
	}
	if i := firstOutOfRange(b.PointIndices, len(b.Points)); i >= 0 {
		return b, fmt.Errorf("point index %d out of range of %d points", b.PointIndices[i], len(b.Points))
	}
	if !primvarFits(len(b.Normals), b.NormalIndices, len(b.PointIndices), len(b.Points)) {
		m.log.Error("ignoring normals that do not match the topology", zap.Int("normals", len(b.Normals)))
		b.Normals, b.NormalIndices = nil, nil
	}
	if !primvarFits(len(b.UVs), b.UVIndices, len(b.PointIndices), len(b.Points)) {
		m.log.Error("ignoring uvs that do not match the topology", zap.Int("uvs", len(b.UVs)))
		b.UVs, b.UVIndices = nil, nil
	}
	return b, nil
}

func firstOutOfRange(indices []int32, n int) int {
	for i, v := range indices {
		if v < 0 || int(v) >= n {
			return i
		}
	}
	return -1
}

func primvarFits(numValues int, indices []int32, numCorners, numPoints int) bool {
	if numValues == 0 {
		return true
	}
	if len(indices) == 0 {
		return numValues >= numPoints
	}
	return len(indices) == numCorners && firstOutOfRange(indices, numValues) < 0
}

// Commit applies the changes staged by Sync. Shapes are rebuilt when geometry changed, then every attribute
// whose bit is set, or all of them for rebuilt shapes, is pushed. Must be called while the render thread is
// stopped.
//
// Parameters:
//   - ed: the renderer editor
//
// Returns:
//   - bool: true, false only for a commit without staged changes
func (m *Mesh) Commit(ed *renderer.Editor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.commitBits == scene.Clean {
		m.log.DPanic("mesh committed without pending changes")
		return false
	}
	bits := m.commitBits
	m.commitBits = scene.Clean

	ctx, rs, meta := ed.Context(), ed.Scene(), ed.Metadata()

	if bits.Has(dirtyFallbackMaterial) {
		m.rebuildFallback(ctx)
	}

	rebuilt := bits.Has(dirtyMesh)
	if rebuilt {
		m.releaseShapes(rs)
		staged := m.staged
		m.staged = nil
		m.shapes = make([]renderer.Shape, len(staged))
		for i, b := range staged {
			m.shapes[i] = m.createShape(ctx, rs, b)
		}
	}
	if len(m.shapes) == 0 {
		return true
	}

	if rebuilt || bits.Has(scene.DirtySubdivTags) {
		boundary := renderer.BoundaryEdgeOnly
		if m.vertexRule == scene.TokenEdgeAndCorner {
			boundary = renderer.BoundaryEdgeAndCorner
		}
		m.eachShape(func(s renderer.Shape) {
			renderer.ErrorCheck(m.log, s.SetSubdivisionBoundary(boundary), "failed to set mesh subdivision boundary")
		})
	}

	if rebuilt || bits.Has(dirtyRefineLevel) {
		level := 0
		if m.topology.Scheme == scene.TokenCatmullClark {
			level = max(m.refineLevel, 0)
		}
		m.eachShape(func(s renderer.Shape) {
			renderer.ErrorCheck(m.log, s.SetSubdivisionFactor(level), "failed to set mesh subdivision level")
		})
	}

	if rebuilt || bits.Has(scene.DirtyVisibility|dirtyVisibilityMask) {
		m.applyVisibility(rs, meta)
	}

	if rebuilt || bits.Has(scene.DirtyMaterialID|scene.DirtyDisplayStyle|dirtyRefineLevel|dirtyFallbackMaterial) {
		m.attachMaterials()
	}

	if rebuilt || bits.Has(scene.DirtyPrimID) {
		m.eachShape(func(s renderer.Shape) {
			renderer.ErrorCheck(m.log, s.SetObjectID(m.primID), "failed to set mesh id")
		})
	}

	if rebuilt || bits.Has(scene.DirtyInstancer) {
		m.commitInstances(ctx, rs, meta)
	}

	if (rebuilt || bits.Has(scene.DirtyTransform|scene.DirtyInstancer)) && len(m.instanceTransforms) == 0 {
		m.eachShape(func(s renderer.Shape) {
			renderer.SetTransformSamples(m.log, s, m.transform)
		})
	}
	return true
}

func (m *Mesh) eachShape(fn func(s renderer.Shape)) {
	for _, s := range m.shapes {
		if s != nil {
			fn(s)
		}
	}
}

func (m *Mesh) effectiveMask() renderer.VisibilityFlag {
	if !m.visible {
		return renderer.VisibleNone
	}
	return m.visibilityMask
}

func (m *Mesh) hasInstances(i int) bool {
	return i < len(m.instances) && len(m.instances[i]) > 0
}

func (m *Mesh) applyVisibility(rs renderer.Scene, meta renderer.ContextMetadata) {
	mask := m.effectiveMask()
	for i, s := range m.shapes {
		if s == nil {
			continue
		}
		if !m.hasInstances(i) {
			m.setVisibility(rs, meta, s, mask)
			continue
		}
		for _, inst := range m.instances[i] {
			m.setVisibility(rs, meta, inst, mask)
		}
		m.setVisibility(rs, meta, s, renderer.VisibleNone)
	}
}

// setVisibility applies a mask to one shape. The hybrid plugin has no per-ray visibility, so it is
// emulated with scene membership.
func (m *Mesh) setVisibility(rs renderer.Scene, meta renderer.ContextMetadata, s renderer.Shape, mask renderer.VisibilityFlag) {
	if meta.PluginType == renderer.PluginHybrid {
		m.setAttached(rs, s, mask != renderer.VisibleNone)
		return
	}
	renderer.SetVisibilityMask(m.log, s, mask)
}

func (m *Mesh) setAttached(rs renderer.Scene, s renderer.Shape, attach bool) {
	if m.attached[s] == attach {
		return
	}
	if attach {
		if renderer.ErrorCheck(m.log, rs.AttachShape(s), "failed to attach mesh") {
			return
		}
	} else if renderer.ErrorCheck(m.log, rs.DetachShape(s), "failed to detach mesh") {
		return
	}
	m.attached[s] = attach
}

func (m *Mesh) attachMaterials() {
	for i, s := range m.shapes {
		if s == nil {
			continue
		}
		mat := m.boundMaterial(i)
		if mat == nil {
			mat = m.fallback
		}
		if mat != nil {
			mat.AttachTo(s)
		} else {
			renderer.ErrorCheck(m.log, s.SetMaterial(nil), "failed to detach mesh material")
		}
	}
}

func (m *Mesh) rebuildFallback(ctx renderer.Context) {
	if m.fallback != nil {
		m.fallback.Release()
		m.fallback = nil
	}
	if !m.fallbackRequired {
		return
	}
	fallback, err := material.NewDiffuse(ctx, m.fallbackColor,
		material.WithName(string(m.id)+"/fallback"),
		material.WithLogger(m.log),
	)
	if err != nil {
		m.log.Error("failed to create fallback material", zap.Error(err))
		return
	}
	m.fallback = fallback
}

// createShape creates and attaches one renderer mesh. Empty buffers and renderer failures return nil.
func (m *Mesh) createShape(ctx renderer.Context, rs renderer.Scene, b geometry.Buffers) renderer.Shape {
	if len(b.Points) == 0 || len(b.PointIndices) == 0 {
		return nil
	}
	shape, status := ctx.CreateMesh(b.MeshData())
	if renderer.ErrorCheck(m.log, status, "failed to create mesh") {
		return nil
	}
	if renderer.ErrorCheck(m.log, rs.AttachShape(shape), "failed to attach mesh") {
		renderer.ErrorCheck(m.log, shape.Delete(), "failed to delete mesh")
		return nil
	}
	m.attached[shape] = true
	return shape
}

func (m *Mesh) releaseShape(rs renderer.Scene, s renderer.Shape) {
	if s == nil {
		return
	}
	if m.attached[s] {
		renderer.ErrorCheck(m.log, rs.DetachShape(s), "failed to detach mesh")
	}
	delete(m.attached, s)
	renderer.ErrorCheck(m.log, s.Delete(), "failed to delete mesh")
}

func (m *Mesh) releaseInstances(rs renderer.Scene, from int) {
	for i := from; i < len(m.instances); i++ {
		for _, inst := range m.instances[i] {
			m.releaseShape(rs, inst)
		}
	}
}

func (m *Mesh) releaseShapes(rs renderer.Scene) {
	m.releaseInstances(rs, 0)
	m.instances = nil
	for _, s := range m.shapes {
		m.releaseShape(rs, s)
	}
	m.shapes = nil
}

// commitInstances reconciles the instances of every shape with the sampled instance transforms. Surplus
// instances are deleted, missing ones created, and every instance transform is reapplied. Prototypes with
// instances are hidden.
func (m *Mesh) commitInstances(ctx renderer.Context, rs renderer.Scene, meta renderer.ContextMetadata) {
	if len(m.instanceTransforms) == 0 {
		if len(m.instances) == 0 {
			return
		}
		m.releaseInstances(rs, 0)
		m.instances = nil
		mask := m.effectiveMask()
		m.eachShape(func(s renderer.Shape) {
			m.setVisibility(rs, meta, s, mask)
		})
		return
	}

	m.releaseInstances(rs, len(m.shapes))
	instances := make([][]renderer.Shape, len(m.shapes))
	copy(instances, m.instances)
	m.instances = instances

	numInstances := len(m.instanceTransforms)
	mask := m.effectiveMask()
	for i, prototype := range m.shapes {
		if prototype == nil {
			continue
		}

		list := m.instances[i]
		if len(list) > numInstances {
			for _, inst := range list[numInstances:] {
				m.releaseShape(rs, inst)
			}
			list = list[:numInstances]
		}
		for j := len(list); j < numInstances; j++ {
			inst, status := ctx.CreateInstance(prototype)
			if renderer.ErrorCheck(m.log, status, "failed to create mesh instance") {
				continue
			}
			if renderer.ErrorCheck(m.log, rs.AttachShape(inst), "failed to attach mesh instance") {
				renderer.ErrorCheck(m.log, inst.Delete(), "failed to delete mesh instance")
				continue
			}
			m.attached[inst] = true
			if mask != renderer.VisibleAll {
				m.setVisibility(rs, meta, inst, mask)
			}
			list = append(list, inst)
		}

		for j, inst := range list {
			renderer.SetTransformSamples(m.log, inst, common.TimeSamples[mgl32.Mat4]{
				Times:  m.instanceTimes,
				Values: m.instanceTransforms[j],
			})
		}
		m.instances[i] = list

		m.setVisibility(rs, meta, prototype, renderer.VisibleNone)
	}
}

// Finalize deletes every renderer object of the mesh. Must be called while the render thread is stopped.
func (m *Mesh) Finalize(ed *renderer.Editor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseShapes(ed.Scene())
	if m.fallback != nil {
		m.fallback.Release()
		m.fallback = nil
	}
	m.staged = nil
	m.commitBits = scene.Clean
}

// Shapes returns the committed prototype shapes, one per part. Parts that failed to build are nil.
func (m *Mesh) Shapes() []renderer.Shape {
	m.mu.Lock()
	defer m.mu.Unlock()
	return common.Clone(m.shapes)
}

// Instances returns the committed instances of the i-th shape.
func (m *Mesh) Instances(i int) []renderer.Shape {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= len(m.instances) {
		return nil
	}
	return common.Clone(m.instances[i])
}

// BoundMaterials returns the material paths the shapes are bound to.
func (m *Mesh) BoundMaterials() []scene.PathID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return common.Clone(m.materialIDs)
}

// FallbackMaterial returns the display-color material used for shapes without a bound material, or nil.
func (m *Mesh) FallbackMaterial() material.Material {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fallback
}

// Normals returns the normals staged for the next rebuild, authored or smoothed.
func (m *Mesh) Normals() []mgl32.Vec3 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.normals
}
