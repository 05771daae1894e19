package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSampleSceneLoads(t *testing.T) {
	sd, err := loadScene("scene.yaml", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Len(t, sd.Prims(scene.PrimTypeMesh), 3)
	assert.Len(t, sd.Prims(scene.PrimTypeMaterial), 3)
	assert.Equal(t, []scene.PathID{"/lights/sun"}, sd.Prims(scene.PrimTypeDistantLight))
	assert.Equal(t, scene.PathID("/markerInstancer"), sd.GetInstancerID("/markers"))
}

func TestGLTFSceneGetsDefaultLight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gltf")
	require.NoError(t, os.WriteFile(path, []byte(`{"asset": {"version": "2.0"}}`), 0o644))

	sd, err := loadScene(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Empty(t, sd.Prims(scene.PrimTypeMesh))
	assert.Equal(t, []scene.PathID{"/defaultLight"}, sd.Prims(scene.PrimTypeDistantLight))
	assert.Equal(t, float32(3), sd.GetLightParamValue("/defaultLight", scene.TokenIntensity))
}

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer
	o, err := parseFlags([]string{"-scene", "a.yaml", "-tick-rate", "120", "-window"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "a.yaml", o.scenePath)
	assert.Equal(t, 120.0, o.tickRate)
	assert.True(t, o.windowed)
	assert.False(t, o.gpu)

	_, err = parseFlags([]string{"-help"}, &out)
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestRunHeadless(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("max_samples: 4\nwidth: 64\nheight: 36\nlog_level: error\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	err := run(ctx, options{configPath: configPath, scenePath: "scene.yaml", tickRate: 200})
	require.NoError(t, err)
	require.NoError(t, ctx.Err())
}

func TestRunMissingScene(t *testing.T) {
	err := run(context.Background(), options{scenePath: filepath.Join(t.TempDir(), "missing.yaml"), tickRate: 60})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
