package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// triangleBuffer packs three positions, three uint16 indices padded to four bytes, and three uvs.
func triangleBuffer() []byte {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.LittleEndian, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	_ = binary.Write(&b, binary.LittleEndian, []uint16{0, 1, 2, 0})
	_ = binary.Write(&b, binary.LittleEndian, []float32{0, 0, 1, 0, 0, 1})
	return b.Bytes()
}

const triangleDoc = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "root", "translation": [1, 2, 3], "children": [1]},
    {"name": "tri angle", "mesh": 0, "scale": [2, 2, 2]}
  ],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0, "TEXCOORD_0": 2}, "indices": 1, "material": 0%s}]}],
  "materials": [{"name": "paint", "pbrMetallicRoughness": {"baseColorFactor": [0.5, 0.25, 1, 1], "baseColorTexture": {"index": 0}}}],
  "textures": [{"source": 0}],
  "images": [{"uri": "tex/albedo.png"}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"},
    {"bufferView": 2, "componentType": 5126, "count": 3, "type": "VEC2"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6},
    {"buffer": 0, "byteOffset": 44, "byteLength": 24}
  ],
  "buffers": [%s]
}`

func writeGLTF(t *testing.T, extra string) string {
	t.Helper()
	buf := fmt.Sprintf(`{"byteLength": 68, "uri": "data:application/octet-stream;base64,%s"}`,
		base64.StdEncoding.EncodeToString(triangleBuffer()))
	path := filepath.Join(t.TempDir(), "triangle.gltf")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(triangleDoc, extra, buf)), 0o644))
	return path
}

func writeGLB(t *testing.T) string {
	t.Helper()
	jsonChunk := []byte(fmt.Sprintf(triangleDoc, "", `{"byteLength": 68}`))
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	bin := triangleBuffer()

	var b bytes.Buffer
	total := 12 + 8 + len(jsonChunk) + 8 + len(bin)
	_ = binary.Write(&b, binary.LittleEndian, glbHeader{Magic: glbMagic, Version: glbVersion, Length: uint32(total)})
	_ = binary.Write(&b, binary.LittleEndian, glbChunkHeader{Length: uint32(len(jsonChunk)), Type: glbChunkJSON})
	b.Write(jsonChunk)
	_ = binary.Write(&b, binary.LittleEndian, glbChunkHeader{Length: uint32(len(bin)), Type: glbChunkBIN})
	b.Write(bin)

	path := filepath.Join(t.TempDir(), "triangle.glb")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

func assertTriangle(t *testing.T, d *scene.MemoryDelegate, dir string, root scene.PathID) {
	t.Helper()
	meshID := root + "/root/tri_angle"
	materialID := root + "/materials/paint"
	require.Equal(t, []scene.PathID{meshID}, d.Prims(scene.PrimTypeMesh))
	require.Equal(t, []scene.PathID{materialID}, d.Prims(scene.PrimTypeMaterial))

	assert.Equal(t, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, d.Get(meshID, scene.TokenPoints))
	assert.Equal(t, []mgl32.Vec2{{0, 1}, {1, 1}, {0, 0}}, d.Get(meshID, scene.TokenST))
	topo := d.GetMeshTopology(meshID)
	assert.Equal(t, []int32{3}, topo.FaceVertexCounts)
	assert.Equal(t, []int32{0, 1, 2}, topo.FaceVertexIndices)
	assert.Equal(t, scene.TokenRightHanded, topo.Orientation)
	assert.Equal(t, mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 2, 2)), d.SampleTransform(meshID).Values[0])
	assert.Equal(t, materialID, d.GetMaterialID(meshID))
	assert.True(t, d.GetVisible(meshID))
	assert.Equal(t, scene.AllSceneDirtyBits, d.DirtyBits(meshID))

	res := d.GetMaterialResource(materialID)
	assert.Equal(t, [3]float32{0.5, 0.25, 1}, res.DiffuseColor)
	assert.Equal(t, filepath.Join(dir, "tex", "albedo.png"), res.DiffuseTexture)
	assert.Equal(t, scene.TokenST, res.UVPrimvar)
	assert.False(t, res.Emissive)
}

func TestLoadGLTF(t *testing.T) {
	path := writeGLTF(t, "")
	d, err := NewImporter(WithLogger(zaptest.NewLogger(t))).Load(path)
	require.NoError(t, err)
	assertTriangle(t, d, filepath.Dir(path), "")
	assert.Equal(t, uint32(1), d.GetPrimID("/root/tri_angle"))
}

func TestLoadGLB(t *testing.T) {
	path := writeGLB(t)
	d, err := NewImporter(WithRoot("/asset/"), WithPrimIDBase(10)).Load(path)
	require.NoError(t, err)
	assertTriangle(t, d, filepath.Dir(path), "/asset")
	assert.Equal(t, uint32(10), d.GetPrimID("/asset/root/tri_angle"))
}

func TestLoadIntoSuffixesCollidingIDs(t *testing.T) {
	path := writeGLTF(t, "")
	im := NewImporter()
	d := scene.NewMemoryDelegate()
	require.NoError(t, im.LoadInto(d, path))
	require.NoError(t, im.LoadInto(d, path))

	assert.Equal(t, []scene.PathID{"/root/tri_angle", "/root/tri_angle_1"}, d.Prims(scene.PrimTypeMesh))
	assert.Equal(t, scene.PathID("/materials/paint_1"), d.GetMaterialID("/root/tri_angle_1"))
	assert.Equal(t, uint32(2), d.GetPrimID("/root/tri_angle_1"))
}

func TestNonTrianglePrimitivesAreSkipped(t *testing.T) {
	d, err := NewImporter(WithLogger(zaptest.NewLogger(t))).Load(writeGLTF(t, `, "mode": 1`))
	require.NoError(t, err)
	assert.Empty(t, d.Prims(scene.PrimTypeMesh))
	assert.Len(t, d.Prims(scene.PrimTypeMaterial), 1)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, doc string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
		return path
	}

	_, err := NewImporter().Load(write("v1.gltf", `{"asset": {"version": "1.0"}}`))
	assert.ErrorIs(t, err, ErrInvalidVersion)

	_, err = NewImporter().Load(write("buffer.gltf", `{"asset": {"version": "2.0"}, "buffers": [{"byteLength": 4}]}`))
	assert.ErrorIs(t, err, ErrInvalidBuffer)

	_, err = NewImporter().Load(write("cycle.gltf", `{"asset": {"version": "2.0"}, "scenes": [{"nodes": [0]}], "nodes": [{"children": [0]}]}`))
	assert.ErrorContains(t, err, "reachable twice")

	_, err = NewImporter().Load(write("noposition.gltf",
		`{"asset": {"version": "2.0"}, "nodes": [{"mesh": 0}], "meshes": [{"primitives": [{"attributes": {}}]}]}`))
	assert.ErrorContains(t, err, "POSITION")

	bad := []byte{0x67, 0x6C, 0x54, 0x46, 1, 0, 0, 0, 12, 0, 0, 0}
	_, err = NewImporter().Load(write("bad.glb", string(bad)))
	assert.ErrorIs(t, err, ErrInvalidGLB)

	_, err = NewImporter().Load(filepath.Join(dir, "missing.gltf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPrimName(t *testing.T) {
	assert.Equal(t, "Body_Mesh", primName("Body.Mesh", "node", 0))
	assert.Equal(t, "node_3", primName("", "node", 3))
	assert.Equal(t, "material_1", primName("...", "material", 1))
	assert.Equal(t, "_2cube", primName("2cube", "node", 0))
}
