package scene

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFallsBackOnTypeMismatch(t *testing.T) {
	assert.Equal(t, float32(2), Get[float32](float32(2), 0))
	assert.Equal(t, float32(1), Get[float32](float64(2), 1))
	assert.Equal(t, float32(1), Get[float32](nil, 1))
	assert.Equal(t, true, Get(true, false))
	assert.Equal(t, "x", Get[string](3, "x"))
}

func TestDirtyBits(t *testing.T) {
	b := DirtyPoints | DirtyTransform
	assert.True(t, b.Has(DirtyTransform))
	assert.False(t, b.Has(DirtyNormals))
	assert.True(t, b.PrimvarDirty(TokenPoints))
	assert.True(t, DirtyTopology.TopologyDirty())
	assert.False(t, Clean.TopologyDirty())
}

func TestTopologyValidate(t *testing.T) {
	valid := Topology{FaceVertexCounts: []int32{3, 4}, FaceVertexIndices: make([]int32, 7)}
	assert.NoError(t, valid.Validate())

	short := Topology{FaceVertexCounts: []int32{3, 4}, FaceVertexIndices: make([]int32, 6)}
	assert.Error(t, short.Validate())

	negative := Topology{FaceVertexCounts: []int32{-1}, FaceVertexIndices: nil}
	assert.Error(t, negative.Validate())
}

func TestMemoryDelegateTracksDirtyBits(t *testing.T) {
	d := NewMemoryDelegate(
		WithPrim(&Prim{ID: "/mesh", Type: PrimTypeMesh, Visible: true}),
		WithPrim(&Prim{ID: "/mat", Type: PrimTypeMaterial}),
		WithPrim(&Prim{ID: "/light", Type: PrimTypeDiskLight}),
	)

	assert.Equal(t, AllSceneDirtyBits, d.DirtyBits("/mesh"))
	assert.Equal(t, MaterialAllDirty, d.DirtyBits("/mat"))
	assert.Equal(t, LightDirtyTransform|LightDirtyParams, d.DirtyBits("/light"))

	d.MarkClean("/mesh", AllSceneDirtyBits)
	assert.Equal(t, Clean, d.DirtyBits("/mesh"))

	d.UpdatePrim("/mesh", DirtyVisibility, func(p *Prim) { p.Visible = false })
	assert.Equal(t, DirtyVisibility, d.DirtyBits("/mesh"))
	assert.False(t, d.GetVisible("/mesh"))

	d.MarkDirty("/missing", DirtyPoints)
	assert.Equal(t, Clean, d.DirtyBits("/missing"))

	d.RemovePrim("/light")
	assert.Nil(t, d.Prim("/light"))
	assert.Equal(t, []PathID{"/mat", "/mesh"}, d.Prims(""))
	assert.Equal(t, []PathID{"/mesh"}, d.Prims(PrimTypeMesh))
}

func TestMemoryDelegatePrimvars(t *testing.T) {
	points := []mgl32.Vec3{{0, 0, 0}}
	computed := []mgl32.Vec3{{1, 1, 1}}
	d := NewMemoryDelegate(WithPrim(&Prim{
		ID:   "/mesh",
		Type: PrimTypeMesh,
		Primvars: map[Token]Primvar{
			TokenPoints:   {Interpolation: InterpolationVertex, Value: points},
			"skinned":     {Interpolation: InterpolationVertex, Value: computed, Computed: true},
			TokenST:       {Interpolation: InterpolationFaceVarying, Value: []mgl32.Vec2{{0, 0}}},
			"refineLevel": {Interpolation: InterpolationConstant, Value: 2},
		},
	}))

	assert.Equal(t, points, d.Get("/mesh", TokenPoints))
	assert.Nil(t, d.Get("/mesh", "skinned"))

	v, ok := d.GetComputedPrimvar("/mesh", "skinned")
	require.True(t, ok)
	assert.Equal(t, computed, v)
	_, ok = d.GetComputedPrimvar("/mesh", TokenPoints)
	assert.False(t, ok)

	assert.Equal(t, []PrimvarDescriptor{{Name: TokenPoints, Interpolation: InterpolationVertex}},
		d.GetPrimvarDescriptors("/mesh", InterpolationVertex))
	assert.Equal(t, []PrimvarDescriptor{{Name: "skinned", Interpolation: InterpolationVertex}},
		d.GetComputationPrimvarDescriptors("/mesh", InterpolationVertex))
	assert.Len(t, d.GetPrimvarDescriptors("/mesh", InterpolationConstant), 1)
}

func TestAddInstancerDirtiesPrototypes(t *testing.T) {
	d := NewMemoryDelegate(WithPrim(&Prim{ID: "/proto", Type: PrimTypeMesh, InstancerID: "/inst"}))
	d.MarkClean("/proto", AllSceneDirtyBits)

	xfs := common.TimeSamples[[]mgl32.Mat4]{Times: []float32{0}, Values: [][]mgl32.Mat4{{mgl32.Ident4()}}}
	d.AddInstancer(&Instancer{ID: "/inst", Transforms: xfs})
	assert.Equal(t, DirtyInstancer, d.DirtyBits("/proto"))

	got, ok := d.SampleInstancerTransforms("/inst", "/proto")
	require.True(t, ok)
	assert.Equal(t, xfs, got)
	_, ok = d.SampleInstancerTransforms("/other", "/proto")
	assert.False(t, ok)
}

func TestSampleTransformDefaultsToIdentity(t *testing.T) {
	d := NewMemoryDelegate(WithPrim(&Prim{ID: "/mesh", Type: PrimTypeMesh}))
	assert.Equal(t, common.Single(mgl32.Ident4()), d.SampleTransform("/mesh"))
	assert.Equal(t, mgl32.Ident4(), d.GetLightParamValue("/mesh", TokenTransform))
}

const sceneYAML = `
prims:
  - id: /red
    type: material
    params:
      diffuseColor: [1, 0, 0]
      uv: uv0
  - id: /quad
    type: mesh
    primId: 4
    material: /red
    orientation: leftHanded
    points: [[0, 0, 0], [1, 0, 0], [1, 1, 0], [0, 1, 0]]
    faceVertexCounts: [4]
    faceVertexIndices: [0, 1, 2, 3]
    displayColor: [0, 1, 0]
    refineLevel: 1
    transform: [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 6, 7, 1]
    settings:
      "rpr:object:visibility:shadow": false
  - id: /bulb
    type: sphereLight
    visible: false
    params:
      radius: "0.5"
      intensity: 10
      color: [1, 0.5, 0.25]
instancers:
  - id: /inst
    times: [0, 1]
    transforms:
      - [[1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1]]
      - [[1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 1, 0, 0, 1]]
`

func TestLoadYAML(t *testing.T) {
	d, err := LoadYAML(strings.NewReader(sceneYAML))
	require.NoError(t, err)

	assert.Equal(t, PathID("/red"), d.GetMaterialID("/quad"))
	assert.Equal(t, uint32(4), d.GetPrimID("/quad"))
	assert.Equal(t, TokenLeftHanded, d.GetMeshTopology("/quad").Orientation)
	assert.Equal(t, TokenNone, d.GetMeshTopology("/quad").Scheme)
	assert.Equal(t, 1, d.GetDisplayStyle("/quad").RefineLevel)
	assert.Equal(t, mgl32.Translate3D(5, 6, 7), d.SampleTransform("/quad").Values[0])
	assert.Equal(t, []mgl32.Vec3{{0, 1, 0}}, d.Get("/quad", TokenDisplayColor))
	assert.Equal(t, false, d.Get("/quad", "rpr:object:visibility:shadow"))
	assert.Len(t, d.Get("/quad", TokenPoints), 4)

	res := d.GetMaterialResource("/red")
	assert.Equal(t, [3]float32{1, 0, 0}, res.DiffuseColor)
	assert.Equal(t, Token("uv0"), res.UVPrimvar)
	assert.False(t, res.Emissive)

	assert.False(t, d.GetVisible("/bulb"))
	assert.Equal(t, float32(0.5), d.GetLightParamValue("/bulb", TokenRadius))
	assert.Equal(t, float32(10), d.GetLightParamValue("/bulb", TokenIntensity))
	assert.Equal(t, mgl32.Vec3{1, 0.5, 0.25}, d.GetLightParamValue("/bulb", TokenColor))
	assert.Nil(t, d.GetLightParamValue("/bulb", TokenExposure))

	xfs, ok := d.SampleInstancerTransforms("/inst", "/quad")
	require.True(t, ok)
	assert.Equal(t, 2, xfs.Count())
}

func TestLoadYAMLErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"missing id":   "prims:\n  - type: mesh\n",
		"unknown type": "prims:\n  - id: /x\n    type: camera\n",
		"bad topology": "prims:\n  - id: /x\n    type: mesh\n    faceVertexCounts: [3]\n    faceVertexIndices: [0]\n",
		"sample count": "instancers:\n  - id: /i\n    times: []\n    transforms: [[[1]]]\n",
		"not yaml":     "prims: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadYAML(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
