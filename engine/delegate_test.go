package engine

import (
	"testing"

	"github.com/Carmen-Shannon/hdrpr/engine/profiler"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func quadPrim(id, materialID scene.PathID) *scene.Prim {
	return &scene.Prim{
		ID:      id,
		Type:    scene.PrimTypeMesh,
		Visible: true,
		Values: map[scene.Token]scene.Value{
			scene.TokenPoints: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		},
		Topology: scene.Topology{
			Scheme:            scene.TokenNone,
			Orientation:       scene.TokenRightHanded,
			FaceVertexCounts:  []int32{4},
			FaceVertexIndices: []int32{0, 1, 2, 3},
		},
		MaterialID: materialID,
	}
}

func testScene() *scene.MemoryDelegate {
	return scene.NewMemoryDelegate(
		scene.WithPrim(quadPrim("/quad", "/red")),
		scene.WithPrim(&scene.Prim{
			ID:       "/red",
			Type:     scene.PrimTypeMaterial,
			Material: scene.MaterialResource{DiffuseColor: [3]float32{1, 0, 0}},
		}),
		scene.WithPrim(&scene.Prim{ID: "/sun", Type: scene.PrimTypeDistantLight}),
		scene.WithPrim(&scene.Prim{ID: "/bulb", Type: scene.PrimTypeSphereLight}),
	)
}

type delegateFixture struct {
	ctx *renderer.MemoryContext
	api *renderer.API
	sd  *scene.MemoryDelegate
	d   *Delegate
}

func newDelegateFixture(t *testing.T, options ...DelegateBuilderOption) *delegateFixture {
	ctx := renderer.NewMemoryContext()
	api, err := renderer.NewAPI(ctx)
	require.NoError(t, err)
	t.Cleanup(api.Thread().Close)

	sd := testScene()
	options = append([]DelegateBuilderOption{WithDelegateLogger(zaptest.NewLogger(t))}, options...)
	d := NewDelegate(api, sd, sd, options...)
	for _, primType := range []scene.Token{scene.PrimTypeMesh, scene.PrimTypeMaterial, scene.PrimTypeDistantLight, scene.PrimTypeSphereLight} {
		for _, id := range sd.Prims(primType) {
			require.NoError(t, d.InsertPrim(id, primType))
		}
	}
	return &delegateFixture{ctx: ctx, api: api, sd: sd, d: d}
}

func (f *delegateFixture) memoryScene(t *testing.T) *renderer.MemoryScene {
	ed := f.api.AcquireForEdit()
	defer ed.Release()
	s, ok := ed.Scene().(*renderer.MemoryScene)
	require.True(t, ok)
	return s
}

func (f *delegateFixture) quadShape(t *testing.T) *renderer.MemoryShape {
	shapes := f.d.Mesh("/quad").Shapes()
	require.Len(t, shapes, 1)
	shape, ok := shapes[0].(*renderer.MemoryShape)
	require.True(t, ok)
	return shape
}

func TestSyncCommitsEveryPrim(t *testing.T) {
	f := newDelegateFixture(t)

	assert.True(t, f.d.Sync())
	assert.True(t, f.api.IsChanged())

	for _, id := range []scene.PathID{"/quad", "/red", "/sun", "/bulb"} {
		assert.Equal(t, scene.Clean, f.sd.DirtyBits(id), id)
	}

	red := f.d.MaterialPrim("/red").Material()
	require.NotNil(t, red)
	assert.Equal(t, red.Node(), f.quadShape(t).Material())
	assert.Equal(t, []scene.PathID{"/red"}, f.d.Mesh("/quad").BoundMaterials())

	assert.True(t, f.d.Light("/sun").IsBuilt())
	assert.True(t, f.d.Light("/bulb").IsBuilt())
	rscene := f.memoryScene(t)
	assert.Len(t, rscene.Shapes(), 2)
	assert.Len(t, rscene.Lights(), 1)
	assert.Equal(t, 2, f.ctx.Stats().MeshesCreated)

	assert.False(t, f.d.Sync())
}

func TestSyncRetriesLightMeshAfterFailedCreate(t *testing.T) {
	f := newDelegateFixture(t)
	f.d.RemovePrim("/quad")

	f.ctx.FailNext("CreateMesh", renderer.StatusOutOfMemory)
	f.d.Sync()
	assert.False(t, f.d.Light("/bulb").IsBuilt())
	assert.Zero(t, f.ctx.Stats().MeshesCreated)
	assert.Equal(t, scene.Clean, f.sd.DirtyBits("/bulb"))

	assert.True(t, f.d.Sync())
	assert.True(t, f.d.Light("/bulb").IsBuilt())
	assert.NotNil(t, f.d.Light("/bulb").Mesh().Shape())
	assert.Equal(t, 1, f.ctx.Stats().MeshesCreated)

	assert.False(t, f.d.Sync())
}

func TestMaterialEditRebindsMeshes(t *testing.T) {
	f := newDelegateFixture(t)
	require.True(t, f.d.Sync())
	before := f.d.MaterialPrim("/red").Material()

	f.sd.UpdatePrim("/red", scene.MaterialDirtyParams, func(p *scene.Prim) {
		p.Material.DiffuseColor = [3]float32{0, 0, 1}
	})
	assert.True(t, f.d.Sync())

	after := f.d.MaterialPrim("/red").Material()
	require.NotNil(t, after)
	assert.NotSame(t, before, after)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, after.BaseColor())
	assert.Equal(t, after.Node(), f.quadShape(t).Material())
	assert.Equal(t, scene.Clean, f.sd.DirtyBits("/quad"))
}

func TestRemovedMaterialFallsBack(t *testing.T) {
	f := newDelegateFixture(t)
	require.True(t, f.d.Sync())

	f.d.RemovePrim("/red")
	assert.Nil(t, f.d.MaterialPrim("/red"))
	assert.True(t, f.sd.DirtyBits("/quad").Has(scene.DirtyMaterialID))

	f.sd.UpdatePrim("/quad", scene.DirtyMaterialID, func(p *scene.Prim) { p.MaterialID = "" })
	assert.True(t, f.d.Sync())

	fallback := f.d.Mesh("/quad").FallbackMaterial()
	require.NotNil(t, fallback)
	assert.Equal(t, fallback.Node(), f.quadShape(t).Material())
}

func TestInsertUnknownPrimType(t *testing.T) {
	f := newDelegateFixture(t)
	err := f.d.InsertPrim("/camera", "camera")
	assert.ErrorIs(t, err, ErrUnknownPrimType)
}

func TestRemoveMeshDeletesShapes(t *testing.T) {
	f := newDelegateFixture(t)
	require.True(t, f.d.Sync())
	shape := f.quadShape(t)

	f.d.RemovePrim("/quad")
	assert.Nil(t, f.d.Mesh("/quad"))
	assert.False(t, f.memoryScene(t).IsAttached(shape))
	assert.GreaterOrEqual(t, f.ctx.Stats().ShapesDeleted, 1)
}

func TestFinalizeEmptiesTheDelegate(t *testing.T) {
	f := newDelegateFixture(t)
	require.True(t, f.d.Sync())

	f.d.Finalize()
	assert.Nil(t, f.d.Mesh("/quad"))
	assert.Nil(t, f.d.Light("/sun"))
	assert.Nil(t, f.d.MaterialPrim("/red"))
	assert.Empty(t, f.memoryScene(t).Lights())
	assert.Equal(t, 1, f.ctx.Stats().LightsDeleted)
}

func TestSyncExportsMetrics(t *testing.T) {
	m, err := profiler.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	f := newDelegateFixture(t, WithMetrics(m), WithSyncWorkers(2))

	require.True(t, f.d.Sync())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Commits.WithLabelValues("mesh")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SyncDuration))
}
