package renderpass

import (
	"testing"

	"github.com/Carmen-Shannon/hdrpr/engine/config"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newAPI(t *testing.T, options ...renderer.APIOption) *renderer.API {
	api, err := renderer.NewAPI(renderer.NewMemoryContext(), options...)
	require.NoError(t, err)
	t.Cleanup(api.Thread().Close)
	return api
}

func frame(color *renderer.AovBuffer) State {
	return State{
		Width:       64,
		Height:      32,
		AovBindings: []renderer.AovBinding{{Name: "color", Buffer: color}},
		WorldToView: mgl32.Translate3D(0, 0, -5),
		Projection:  mgl32.Perspective(mgl32.DegToRad(45), 2, 0.1, 100),
	}
}

func TestExecuteSyncsStateInOneEdit(t *testing.T) {
	api := newAPI(t)
	p := NewRenderPass(api, WithLogger(zaptest.NewLogger(t)))
	state := frame(renderer.NewAovBuffer("color", 64, 32))

	p.Execute(state)

	w, h := api.ViewportSize()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)
	assert.Equal(t, state.AovBindings, api.AovBindings())
	assert.Equal(t, state.WorldToView, api.CameraView())
	assert.Equal(t, state.Projection, api.CameraProjection())
	assert.Equal(t, uint64(1), api.Thread().StopRequests())
	assert.True(t, api.Thread().IsRendering())
	assert.False(t, api.Thread().IsHeld())

	p.Execute(state)
	assert.Equal(t, uint64(1), api.Thread().StopRequests())
}

func TestExecuteRendersUntilConverged(t *testing.T) {
	api := newAPI(t, renderer.WithMaxSamples(4))
	api.Thread().Run()
	p := NewRenderPass(api)
	color := renderer.NewAovBuffer("color", 64, 32)
	state := frame(color)

	p.Execute(state)
	require.True(t, api.Thread().WaitConverged())
	assert.True(t, p.IsConverged())
	assert.Equal(t, 4, color.Samples())

	state.WorldToView = mgl32.Translate3D(0, 1, -5)
	p.Execute(state)
	require.True(t, api.Thread().WaitConverged())
	assert.True(t, p.IsConverged())
	assert.Equal(t, 4, color.Samples())
	assert.Equal(t, state.WorldToView, api.CameraView())
}

func TestChangedConfigStopsRendering(t *testing.T) {
	api := newAPI(t)
	store := config.NewStore(config.Default())
	p := NewRenderPass(api, WithConfig(store))
	state := frame(renderer.NewAovBuffer("color", 64, 32))

	p.Execute(state)
	assert.Equal(t, uint64(1), api.Thread().StopRequests())
	assert.False(t, store.IsDirty())

	p.Execute(state)
	assert.Equal(t, uint64(1), api.Thread().StopRequests())

	cfg := config.Default()
	cfg.MaxSamples = 8
	require.NoError(t, store.Set(cfg))
	p.Execute(state)
	assert.Equal(t, uint64(2), api.Thread().StopRequests())
	assert.True(t, api.Thread().IsRendering())
}

func TestIsConvergedWithoutBuffers(t *testing.T) {
	p := NewRenderPass(newAPI(t))
	assert.True(t, p.IsConverged())
}
