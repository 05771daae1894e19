package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func triangle() MeshData {
	return MeshData{
		Points:           []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		PointIndices:     []int32{0, 1, 2},
		FaceVertexCounts: []int32{3},
	}
}

func TestErrorCheckLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	log := zap.New(core)

	assert.False(t, ErrorCheck(log, StatusSuccess, "ok"))
	assert.True(t, ErrorCheck(log, StatusInvalidObject, "failed to set transform", zap.String("op", "transform")))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "failed to set transform", entry.Message)
	assert.Equal(t, "invalid object", entry.ContextMap()["status"])
}

func TestCheckEscalates(t *testing.T) {
	assert.NoError(t, Check(StatusSuccess, "create"))

	err := Check(StatusOutOfMemory, "failed to create image")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create image")
	assert.Equal(t, StatusOutOfMemory, StatusOf(err))
	assert.Equal(t, StatusSuccess, StatusOf(nil))
}

func TestMemoryContextLifetime(t *testing.T) {
	ctx := NewMemoryContext()
	scene, st := ctx.CreateScene()
	require.Equal(t, StatusSuccess, st)

	shape, st := ctx.CreateMesh(triangle())
	require.Equal(t, StatusSuccess, st)
	require.Equal(t, StatusSuccess, scene.AttachShape(shape))

	instance, st := ctx.CreateInstance(shape)
	require.Equal(t, StatusSuccess, st)
	assert.Same(t, shape, instance.(*MemoryShape).Prototype())
	assert.NotEqual(t, shape.ID(), instance.ID())

	assert.Equal(t, StatusSuccess, shape.SetVisibilityFlag(VisibleShadow, false))
	assert.Equal(t, VisibleAll&^VisibleShadow, shape.(*MemoryShape).Visibility())

	assert.Equal(t, StatusSuccess, shape.Delete())
	assert.Equal(t, StatusInvalidObject, shape.Delete())
	assert.Equal(t, StatusInvalidObject, shape.SetTransform(mgl32.Ident4()))

	stats := ctx.Stats()
	assert.Equal(t, 1, stats.MeshesCreated)
	assert.Equal(t, 1, stats.InstancesCreated)
	assert.Equal(t, 1, stats.ShapesDeleted)
}

func TestMemoryContextRejectsEmptyMeshAndInjectedFailures(t *testing.T) {
	ctx := NewMemoryContext(WithPluginType(PluginHybrid))
	assert.Equal(t, PluginHybrid, ctx.Metadata().PluginType)

	_, st := ctx.CreateMesh(MeshData{})
	assert.Equal(t, StatusInvalidParameter, st)

	ctx.FailNext("CreateMesh", StatusOutOfMemory)
	_, st = ctx.CreateMesh(triangle())
	assert.Equal(t, StatusOutOfMemory, st)

	_, st = ctx.CreateMesh(triangle())
	assert.Equal(t, StatusSuccess, st)
}

func TestVisibleAllCoversEveryFlag(t *testing.T) {
	var mask VisibilityFlag
	for _, f := range VisibilityFlags {
		mask |= f
	}
	assert.Equal(t, VisibleAll, mask)
}

func TestAPIConvergence(t *testing.T) {
	ctx := NewMemoryContext()
	api, err := NewAPI(ctx, WithMaxSamples(2))
	require.NoError(t, err)
	assert.False(t, api.IsConverged(), "no AOVs bound")

	ed := api.AcquireForEdit()
	buf := NewAovBuffer("color", 4, 4)
	ed.SetAovBindings([]AovBinding{{Name: "color", Buffer: buf}})
	ed.SetViewportSize(4, 4)
	ed.Release()

	assert.True(t, api.IsChanged())
	assert.False(t, api.iterate())
	assert.False(t, api.IsChanged())
	assert.True(t, api.iterate())
	assert.True(t, api.IsConverged())
	assert.Equal(t, 2, ctx.Stats().RenderIterations)
}

func TestNewAPIFailsWithoutScene(t *testing.T) {
	ctx := NewMemoryContext()
	ctx.FailNext("CreateScene", StatusInternalError)
	_, err := NewAPI(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusInternalError, StatusOf(err))
}
