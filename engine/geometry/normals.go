package geometry

import (
	"github.com/go-gl/mathgl/mgl32"
)

// incidence is one occurrence of a vertex in a face.
type incidence struct {
	offset int32 // face's first index
	count  int32 // face vertex count
	local  int32 // position of the vertex within the face
}

// Adjacency maps every vertex to the faces it belongs to.
type Adjacency struct {
	indices    []int32
	leftHanded bool
	vertices   [][]incidence
}

// BuildAdjacency builds the vertex-to-face table of a topology.
//
// Parameters:
//   - faceVertexCounts: vertices per face
//   - faceVertexIndices: face vertex indices
//   - leftHanded: whether faces wind clockwise
//
// Returns:
//   - *Adjacency: the table
func BuildAdjacency(faceVertexCounts, faceVertexIndices []int32, leftHanded bool) *Adjacency {
	numPoints := int32(0)
	for _, v := range faceVertexIndices {
		if v+1 > numPoints {
			numPoints = v + 1
		}
	}

	adj := &Adjacency{
		indices:    faceVertexIndices,
		leftHanded: leftHanded,
		vertices:   make([][]incidence, numPoints),
	}

	offset := int32(0)
	for _, count := range faceVertexCounts {
		for local := int32(0); local < count; local++ {
			v := faceVertexIndices[offset+local]
			if v < 0 {
				continue
			}
			adj.vertices[v] = append(adj.vertices[v], incidence{offset: offset, count: count, local: local})
		}
		offset += count
	}
	return adj
}

// NumVertices returns how many vertices the table covers.
func (a *Adjacency) NumVertices() int {
	return len(a.vertices)
}

// SmoothNormals averages the corner normals of every face around each vertex.
// The result has one normal per point; points no face references get a zero normal.
//
// Parameters:
//   - adj: the adjacency table
//   - points: vertex positions
//
// Returns:
//   - []mgl32.Vec3: per-vertex normals
func SmoothNormals(adj *Adjacency, points []mgl32.Vec3) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(points))
	for v := range normals {
		if v >= len(adj.vertices) {
			break
		}
		var sum mgl32.Vec3
		for _, inc := range adj.vertices[v] {
			if inc.count < 3 {
				continue
			}
			next := adj.indices[inc.offset+(inc.local+1)%inc.count]
			prev := adj.indices[inc.offset+(inc.local+inc.count-1)%inc.count]
			if adj.leftHanded {
				next, prev = prev, next
			}
			if !inRange(points, next, prev) {
				continue
			}
			p := points[v]
			sum = sum.Add(points[next].Sub(p).Cross(points[prev].Sub(p)))
		}
		normals[v] = normalize(sum)
	}
	return normals
}
