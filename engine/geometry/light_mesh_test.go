package geometry

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func centroid(b Buffers, offset int, count int32) mgl32.Vec3 {
	var c mgl32.Vec3
	for i := 0; i < int(count); i++ {
		c = c.Add(b.Points[b.PointIndices[offset+i]])
	}
	return c.Mul(1 / float32(count))
}

func TestPlanarLightMeshesFaceNegativeZ(t *testing.T) {
	for name, b := range map[string]Buffers{"disk": UnitDisk(16), "rect": UnitRect()} {
		normals, _ := FlatNormals(b.Points, b.PointIndices, b.FaceVertexCounts)
		for _, n := range normals {
			assert.InDeltaSlice(t, []float32{0, 0, -1}, n[:], 1e-5, name)
		}
	}
}

func TestUnitDiskRadius(t *testing.T) {
	b := UnitDisk(3)
	assert.Len(t, b.Points, 4)
	assert.Equal(t, []int32{3, 3, 3}, b.FaceVertexCounts)
	for _, p := range b.Points[1:] {
		assert.InDelta(t, 1, p.Len(), 1e-6)
	}
}

func TestUnitSphereWindsOutward(t *testing.T) {
	b := UnitSphere(6, 8)
	normals, _ := FlatNormals(b.Points, b.PointIndices, b.FaceVertexCounts)

	offset := 0
	for face, count := range b.FaceVertexCounts {
		c := centroid(b, offset, count)
		assert.Greater(t, normals[face].Dot(c), float32(0), "face %d", face)
		offset += int(count)
	}
	assert.Len(t, b.Normals, len(b.Points))
}

func TestUnitCylinderWindsOutward(t *testing.T) {
	b := UnitCylinder(12)
	normals, _ := FlatNormals(b.Points, b.PointIndices, b.FaceVertexCounts)

	offset := 0
	for face, count := range b.FaceVertexCounts {
		c := centroid(b, offset, count)
		radial := mgl32.Vec3{0, c.Y(), c.Z()}
		assert.Greater(t, normals[face].Dot(radial), float32(0), "face %d", face)
		assert.InDelta(t, 0, normals[face].X(), 1e-5)
		offset += int(count)
	}
	assert.Len(t, b.NormalIndices, len(b.PointIndices))
}
