package mesh

import (
	"testing"

	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer/material"
	"github.com/Carmen-Shannon/hdrpr/engine/resource"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type materialMap map[scene.PathID]*material.Prim

func (m materialMap) MaterialPrim(id scene.PathID) *material.Prim {
	return m[id]
}

type fixture struct {
	ctx       *renderer.MemoryContext
	api       *renderer.API
	ed        *renderer.Editor
	commits   *resource.Context
	materials materialMap
}

func newFixture(t *testing.T, options ...renderer.MemoryContextOption) *fixture {
	ctx := renderer.NewMemoryContext(options...)
	api, err := renderer.NewAPI(ctx)
	require.NoError(t, err)
	ed := api.AcquireForEdit()
	t.Cleanup(ed.Release)

	return &fixture{
		ctx:       ctx,
		api:       api,
		ed:        ed,
		commits:   resource.NewContext(),
		materials: make(materialMap),
	}
}

func (f *fixture) newMesh(t *testing.T, id scene.PathID) *Mesh {
	return NewMesh(id,
		WithLogger(zaptest.NewLogger(t)),
		WithCommitQueue(f.commits),
		WithMaterials(f.materials),
	)
}

func (f *fixture) sync(t *testing.T, m *Mesh, sd *scene.MemoryDelegate) {
	t.Helper()
	require.True(t, m.Sync(sd, sd, f.api.Metadata()))
	require.True(t, f.commits.Flush(f.ed))
	f.commits.Reset()
}

func (f *fixture) addMaterial(t *testing.T, sd *scene.MemoryDelegate, id scene.PathID, color [3]float32) *material.Prim {
	sd.AddPrim(&scene.Prim{
		ID:       id,
		Type:     scene.PrimTypeMaterial,
		Material: scene.MaterialResource{DiffuseColor: color},
	})
	p := material.NewPrim(id, nil, zaptest.NewLogger(t))
	require.True(t, p.Sync(sd, sd))
	require.True(t, p.Commit(f.ed))
	f.materials[id] = p
	return p
}

func (f *fixture) memoryScene(t *testing.T) *renderer.MemoryScene {
	s, ok := f.ed.Scene().(*renderer.MemoryScene)
	require.True(t, ok)
	return s
}

func memoryShape(t *testing.T, s renderer.Shape) *renderer.MemoryShape {
	t.Helper()
	ms, ok := s.(*renderer.MemoryShape)
	require.True(t, ok)
	return ms
}

var quadPoints = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}

func quadPrim(id scene.PathID) *scene.Prim {
	return &scene.Prim{
		ID:      id,
		Type:    scene.PrimTypeMesh,
		Visible: true,
		Values:  map[scene.Token]scene.Value{scene.TokenPoints: quadPoints},
		Topology: scene.Topology{
			Scheme:            scene.TokenNone,
			Orientation:       scene.TokenRightHanded,
			FaceVertexCounts:  []int32{4},
			FaceVertexIndices: []int32{0, 1, 2, 3},
		},
	}
}

func TestQuadCommit(t *testing.T) {
	f := newFixture(t)
	prim := quadPrim("/quad")
	prim.PrimID = 7
	prim.Transform = common.Single(mgl32.Translate3D(1, 2, 3))
	sd := scene.NewMemoryDelegate(scene.WithPrim(prim))

	m := f.newMesh(t, "/quad")
	f.sync(t, m, sd)
	assert.Equal(t, scene.Clean, sd.DirtyBits("/quad"))

	shapes := m.Shapes()
	require.Len(t, shapes, 1)
	shape := memoryShape(t, shapes[0])
	assert.Equal(t, []int32{4}, shape.Data().FaceVertexCounts)
	assert.Equal(t, []int32{0, 1, 2, 3}, shape.Data().PointIndices)
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), shape.Transform())
	assert.Equal(t, uint32(7), shape.ObjectID())
	assert.Equal(t, renderer.VisibleAll, shape.Visibility())
	assert.True(t, f.memoryScene(t).IsAttached(shape))

	// no material bound, so the display color fallback is used
	fallback := m.FallbackMaterial()
	require.NotNil(t, fallback)
	assert.Equal(t, material.DefaultDiffuseColor, fallback.BaseColor())
	assert.Equal(t, fallback.Node(), shape.Material())

	assert.False(t, m.Sync(sd, sd, f.api.Metadata()))
	assert.Zero(t, f.commits.Pending())
}

func TestPolygonIsSplit(t *testing.T) {
	f := newFixture(t)
	prim := quadPrim("/pentagon")
	prim.Values[scene.TokenPoints] = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1.5, 1, 0}, {0.5, 2, 0}, {-0.5, 1, 0}}
	prim.Topology.FaceVertexCounts = []int32{5}
	prim.Topology.FaceVertexIndices = []int32{0, 1, 2, 3, 4}
	sd := scene.NewMemoryDelegate(scene.WithPrim(prim))

	m := f.newMesh(t, "/pentagon")
	f.sync(t, m, sd)

	shape := memoryShape(t, m.Shapes()[0])
	assert.Equal(t, []int32{3, 3, 3}, shape.Data().FaceVertexCounts)
	assert.Len(t, shape.Data().PointIndices, 9)
}

func TestLeftHandedWindingIsFlipped(t *testing.T) {
	f := newFixture(t)
	prim := quadPrim("/tri")
	prim.Topology.Orientation = scene.TokenLeftHanded
	prim.Topology.FaceVertexCounts = []int32{3}
	prim.Topology.FaceVertexIndices = []int32{0, 1, 2}
	sd := scene.NewMemoryDelegate(scene.WithPrim(prim))

	m := f.newMesh(t, "/tri")
	f.sync(t, m, sd)

	shape := memoryShape(t, m.Shapes()[0])
	assert.Equal(t, []int32{2, 1, 0}, shape.Data().PointIndices)
}

func TestComputedPointsTakePrecedence(t *testing.T) {
	f := newFixture(t)
	computed := []mgl32.Vec3{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}}
	prim := quadPrim("/deformed")
	prim.Primvars = map[scene.Token]scene.Primvar{
		scene.TokenPoints: {Interpolation: scene.InterpolationVertex, Value: computed, Computed: true},
	}
	sd := scene.NewMemoryDelegate(scene.WithPrim(prim))

	m := f.newMesh(t, "/deformed")
	f.sync(t, m, sd)

	assert.Equal(t, computed, memoryShape(t, m.Shapes()[0]).Data().Points)
}

func TestOutOfRangeIndicesBuildNothing(t *testing.T) {
	f := newFixture(t)
	prim := quadPrim("/broken")
	prim.Topology.FaceVertexIndices = []int32{0, 1, 2, 9}
	sd := scene.NewMemoryDelegate(scene.WithPrim(prim))

	m := f.newMesh(t, "/broken")
	f.sync(t, m, sd)

	assert.Empty(t, m.Shapes())
	assert.Zero(t, f.ctx.Stats().MeshesCreated)
}

func TestGeomSubsetsBindTheirMaterials(t *testing.T) {
	f := newFixture(t)
	sd := scene.NewMemoryDelegate()
	red := f.addMaterial(t, sd, "/red", [3]float32{1, 0, 0})
	blue := f.addMaterial(t, sd, "/blue", [3]float32{0, 0, 1})

	points := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {0, 1, 0}, {1, 1, 0}, {2, 1, 0}}
	sd.AddPrim(&scene.Prim{
		ID:         "/strip",
		Type:       scene.PrimTypeMesh,
		Visible:    true,
		MaterialID: "/blue",
		Values:     map[scene.Token]scene.Value{scene.TokenPoints: points},
		Topology: scene.Topology{
			Scheme:            scene.TokenNone,
			Orientation:       scene.TokenRightHanded,
			FaceVertexCounts:  []int32{4, 4},
			FaceVertexIndices: []int32{0, 1, 4, 3, 1, 2, 5, 4},
			GeomSubsets: []scene.GeomSubset{
				{Type: scene.GeomSubsetFaceSet, ID: "/strip/left", MaterialID: "/red", Indices: []int32{0}},
			},
		},
	})

	m := f.newMesh(t, "/strip")
	f.sync(t, m, sd)

	assert.Equal(t, []scene.PathID{"/red", "/blue"}, m.BoundMaterials())
	shapes := m.Shapes()
	require.Len(t, shapes, 2)

	left := memoryShape(t, shapes[0])
	assert.Equal(t, []mgl32.Vec3{points[0], points[1], points[4], points[3]}, left.Data().Points)
	assert.Equal(t, []int32{0, 1, 2, 3}, left.Data().PointIndices)
	assert.Equal(t, red.Material().Node(), left.Material())

	// the face no subset covers keeps the mesh material
	rest := memoryShape(t, shapes[1])
	assert.Equal(t, []mgl32.Vec3{points[1], points[2], points[5], points[4]}, rest.Data().Points)
	assert.Equal(t, blue.Material().Node(), rest.Material())

	assert.Nil(t, m.FallbackMaterial())
}

func TestMissingMaterialFallsBackToDisplayColor(t *testing.T) {
	f := newFixture(t)
	prim := quadPrim("/quad")
	prim.MaterialID = "/missing"
	prim.Primvars = map[scene.Token]scene.Primvar{
		scene.TokenDisplayColor: {Interpolation: scene.InterpolationConstant, Value: []mgl32.Vec3{{1, 0, 0}}},
	}
	sd := scene.NewMemoryDelegate(scene.WithPrim(prim))

	m := f.newMesh(t, "/quad")
	f.sync(t, m, sd)

	fallback := m.FallbackMaterial()
	require.NotNil(t, fallback)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, fallback.BaseColor())

	sd.UpdatePrim("/quad", scene.DirtyPrimvar, func(p *scene.Prim) {
		p.Primvars[scene.TokenDisplayColor] = scene.Primvar{
			Interpolation: scene.InterpolationConstant,
			Value:         []mgl32.Vec3{{0, 1, 0}},
		}
	})
	f.sync(t, m, sd)

	rebuilt := m.FallbackMaterial()
	require.NotNil(t, rebuilt)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, rebuilt.BaseColor())
	assert.Equal(t, rebuilt.Node(), memoryShape(t, m.Shapes()[0]).Material())
	assert.Equal(t, 1, f.ctx.Stats().MeshesCreated)
}

func TestHybridSynthesizesPrimvarsAndDetaches(t *testing.T) {
	f := newFixture(t, renderer.WithPluginType(renderer.PluginHybrid))
	sd := scene.NewMemoryDelegate(scene.WithPrim(quadPrim("/quad")))

	m := f.newMesh(t, "/quad")
	f.sync(t, m, sd)

	shape := memoryShape(t, m.Shapes()[0])
	require.Len(t, shape.Data().Normals, 1)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, shape.Data().Normals[0])
	assert.Len(t, shape.Data().UVs, 4)
	assert.True(t, f.memoryScene(t).IsAttached(shape))

	sd.UpdatePrim("/quad", scene.DirtyVisibility, func(p *scene.Prim) { p.Visible = false })
	f.sync(t, m, sd)
	assert.False(t, f.memoryScene(t).IsAttached(shape))

	sd.UpdatePrim("/quad", scene.DirtyVisibility, func(p *scene.Prim) { p.Visible = true })
	f.sync(t, m, sd)
	assert.True(t, f.memoryScene(t).IsAttached(shape))
}

func TestInstancesFollowInstancer(t *testing.T) {
	f := newFixture(t)
	meshXf := mgl32.Translate3D(0, 0, 5)
	prim := quadPrim("/proto")
	prim.InstancerID = "/instancer"
	prim.Transform = common.Single(meshXf)
	xfs := []mgl32.Mat4{mgl32.Translate3D(1, 0, 0), mgl32.Translate3D(2, 0, 0), mgl32.Translate3D(3, 0, 0)}
	sd := scene.NewMemoryDelegate(
		scene.WithPrim(prim),
		scene.WithInstancer(&scene.Instancer{ID: "/instancer", Transforms: common.Single(xfs)}),
	)

	m := f.newMesh(t, "/proto")
	f.sync(t, m, sd)

	prototype := memoryShape(t, m.Shapes()[0])
	assert.Equal(t, renderer.VisibleNone, prototype.Visibility())

	instances := m.Instances(0)
	require.Len(t, instances, 3)
	assert.Equal(t, 3, f.ctx.Stats().InstancesCreated)
	for i, inst := range instances {
		ms := memoryShape(t, inst)
		assert.Same(t, prototype, ms.Prototype())
		assert.Equal(t, xfs[i].Mul4(meshXf), ms.Transform())
		assert.True(t, f.memoryScene(t).IsAttached(ms))
	}

	sd.AddInstancer(&scene.Instancer{ID: "/instancer", Transforms: common.Single(xfs[:1])})
	f.sync(t, m, sd)
	assert.Len(t, m.Instances(0), 1)
	assert.Equal(t, 2, f.ctx.Stats().ShapesDeleted)
	assert.Equal(t, 3, f.ctx.Stats().InstancesCreated)

	sd.UpdatePrim("/proto", 0, func(p *scene.Prim) { p.InstancerID = "" })
	sd.MarkDirty("/proto", scene.DirtyInstancer)
	f.sync(t, m, sd)
	assert.Empty(t, m.Instances(0))
	assert.Equal(t, renderer.VisibleAll, prototype.Visibility())
	assert.Equal(t, meshXf, prototype.Transform())
}

func TestGeometrySettingsPrimvars(t *testing.T) {
	f := newFixture(t)
	prim := quadPrim("/quad")
	prim.Topology.Scheme = scene.TokenCatmullClark
	prim.SubdivTags = scene.SubdivTags{VertexInterpolationRule: scene.TokenEdgeAndCorner}
	prim.Primvars = map[scene.Token]scene.Primvar{
		"primvars:rpr:visibilityShadow": {Interpolation: scene.InterpolationConstant, Value: false},
		"primvars:rpr:subdivisionLevel": {Interpolation: scene.InterpolationConstant, Value: 2},
		"primvars:rpr:unknownSetting":   {Interpolation: scene.InterpolationConstant, Value: true},
	}
	sd := scene.NewMemoryDelegate(scene.WithPrim(prim))

	m := f.newMesh(t, "/quad")
	f.sync(t, m, sd)

	shape := memoryShape(t, m.Shapes()[0])
	assert.Equal(t, renderer.VisibleAll&^renderer.VisibleShadow, shape.Visibility())
	assert.Equal(t, 2, shape.SubdivisionFactor())
	assert.Equal(t, renderer.BoundaryEdgeAndCorner, shape.SubdivisionBoundary())

	sd.UpdatePrim("/quad", scene.DirtyPrimvar, func(p *scene.Prim) {
		delete(p.Primvars, "primvars:rpr:visibilityShadow")
		delete(p.Primvars, "primvars:rpr:subdivisionLevel")
	})
	f.sync(t, m, sd)
	assert.Equal(t, renderer.VisibleAll, shape.Visibility())
	assert.Zero(t, shape.SubdivisionFactor())
}

func TestSmoothNormalsFromAdjacency(t *testing.T) {
	f := newFixture(t)
	prim := quadPrim("/quad")
	prim.DisplayStyle = scene.DisplayStyle{FlatShadingEnabled: true}
	sd := scene.NewMemoryDelegate(scene.WithPrim(prim))

	m := f.newMesh(t, "/quad")
	f.sync(t, m, sd)

	normals := m.Normals()
	require.Len(t, normals, 4)
	for _, n := range normals {
		assert.InDelta(t, 1, n.Z(), 1e-5)
	}
	data := memoryShape(t, m.Shapes()[0]).Data()
	assert.Equal(t, normals, data.Normals)
	assert.Equal(t, data.PointIndices, data.NormalIndices)

	sd.UpdatePrim("/quad", scene.DirtyDisplayStyle, func(p *scene.Prim) { p.DisplayStyle = scene.DisplayStyle{} })
	f.sync(t, m, sd)
	assert.Empty(t, m.Normals())
	assert.Empty(t, memoryShape(t, m.Shapes()[0]).Data().Normals)
}

func TestCommitWithoutChangesReturnsFalse(t *testing.T) {
	f := newFixture(t)
	m := f.newMesh(t, "/quad")
	assert.False(t, m.Commit(f.ed))
}

func TestFinalizeDeletesShapes(t *testing.T) {
	f := newFixture(t)
	sd := scene.NewMemoryDelegate(scene.WithPrim(quadPrim("/quad")))

	m := f.newMesh(t, "/quad")
	f.sync(t, m, sd)
	require.Len(t, f.memoryScene(t).Shapes(), 1)

	m.Finalize(f.ed)
	assert.Empty(t, f.memoryScene(t).Shapes())
	assert.Empty(t, m.Shapes())
	assert.Nil(t, m.FallbackMaterial())
	assert.Equal(t, 1, f.ctx.Stats().ShapesDeleted)
	assert.Equal(t, f.ctx.Stats().NodesCreated, f.ctx.Stats().NodesDeleted)
}

func TestUnusedFaces(t *testing.T) {
	sets := []scene.GeomSubset{{Indices: []int32{0, 2, 7}}, {Indices: []int32{2}}}
	assert.Equal(t, []int32{1, 3}, unusedFaces(4, sets))
	assert.Nil(t, unusedFaces(2, []scene.GeomSubset{{Indices: []int32{0, 1}}}))
}
