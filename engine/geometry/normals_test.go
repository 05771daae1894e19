package geometry

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid() ([]mgl32.Vec3, []int32, []int32) {
	points := []mgl32.Vec3{
		{0, 0, 0}, {1, 0, 0}, {2, 0, 0},
		{0, 1, 0}, {1, 1, 0}, {2, 1, 0},
	}
	counts := []int32{4, 4}
	indices := []int32{0, 1, 4, 3, 1, 2, 5, 4}
	return points, counts, indices
}

func TestSmoothNormalsFlatGrid(t *testing.T) {
	points, counts, indices := grid()
	adj := BuildAdjacency(counts, indices, false)
	require.Equal(t, 6, adj.NumVertices())

	for _, n := range SmoothNormals(adj, points) {
		assert.InDeltaSlice(t, []float32{0, 0, 1}, n[:], 1e-6)
	}
}

func TestSmoothNormalsLeftHandedFlips(t *testing.T) {
	points, counts, indices := grid()
	adj := BuildAdjacency(counts, indices, true)

	for _, n := range SmoothNormals(adj, points) {
		assert.InDeltaSlice(t, []float32{0, 0, -1}, n[:], 1e-6)
	}
}

func TestSmoothNormalsUnreferencedPoint(t *testing.T) {
	points, counts, indices := grid()
	points = append(points, mgl32.Vec3{5, 5, 5})
	adj := BuildAdjacency(counts, indices, false)

	normals := SmoothNormals(adj, points)
	require.Len(t, normals, 7)
	assert.Equal(t, mgl32.Vec3{}, normals[6])
}

func TestSmoothNormalsSphereAreOutward(t *testing.T) {
	sphere := UnitSphere(8, 12)
	adj := BuildAdjacency(sphere.FaceVertexCounts, sphere.PointIndices, false)

	for i, n := range SmoothNormals(adj, sphere.Points) {
		assert.Greater(t, n.Dot(sphere.Points[i]), float32(0.9), "vertex %d", i)
	}
}
