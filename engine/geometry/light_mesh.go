package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Unit proxy meshes for area lights. The light transform scales them to the authored size:
// disk and sphere by radius, rect by width and height, cylinder by length along X and radius on Y/Z.

// UnitDisk returns a disk of radius 1 in the XY plane, facing -Z.
//
// Parameters:
//   - segments: number of rim vertices, at least 3
//
// Returns:
//   - Buffers: the triangle fan
func UnitDisk(segments int) Buffers {
	segments = max(segments, 3)
	b := Buffers{
		Points:  make([]mgl32.Vec3, 0, segments+1),
		Normals: []mgl32.Vec3{{0, 0, -1}},
	}
	b.Points = append(b.Points, mgl32.Vec3{})
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		b.Points = append(b.Points, mgl32.Vec3{float32(math.Cos(a)), float32(math.Sin(a)), 0})
	}
	for i := 0; i < segments; i++ {
		next := (i+1)%segments + 1
		b.PointIndices = append(b.PointIndices, 0, int32(next), int32(i+1))
		b.NormalIndices = append(b.NormalIndices, 0, 0, 0)
		b.FaceVertexCounts = append(b.FaceVertexCounts, 3)
	}
	return b
}

// UnitRect returns a 1x1 quad centered at the origin in the XY plane, facing -Z.
func UnitRect() Buffers {
	return Buffers{
		Points: []mgl32.Vec3{
			{-0.5, -0.5, 0},
			{-0.5, 0.5, 0},
			{0.5, 0.5, 0},
			{0.5, -0.5, 0},
		},
		FaceVertexCounts: []int32{4},
		PointIndices:     []int32{0, 1, 2, 3},
		Normals:          []mgl32.Vec3{{0, 0, -1}},
		NormalIndices:    []int32{0, 0, 0, 0},
	}
}

// UnitSphere returns a UV sphere of radius 1 with outward vertex normals.
//
// Parameters:
//   - rings: latitude subdivisions, at least 2
//   - sectors: longitude subdivisions, at least 3
//
// Returns:
//   - Buffers: quads between rings and triangles at the poles
func UnitSphere(rings, sectors int) Buffers {
	rings = max(rings, 2)
	sectors = max(sectors, 3)

	var b Buffers
	// north pole, then rings-1 latitude rows of sectors vertices, then south pole
	b.Points = append(b.Points, mgl32.Vec3{0, 0, 1})
	for r := 1; r < rings; r++ {
		theta := math.Pi * float64(r) / float64(rings)
		for s := 0; s < sectors; s++ {
			phi := 2 * math.Pi * float64(s) / float64(sectors)
			b.Points = append(b.Points, mgl32.Vec3{
				float32(math.Sin(theta) * math.Cos(phi)),
				float32(math.Sin(theta) * math.Sin(phi)),
				float32(math.Cos(theta)),
			})
		}
	}
	south := int32(len(b.Points))
	b.Points = append(b.Points, mgl32.Vec3{0, 0, -1})

	row := func(r, s int) int32 {
		return int32(1 + (r-1)*sectors + s%sectors)
	}
	for s := 0; s < sectors; s++ {
		b.PointIndices = append(b.PointIndices, 0, row(1, s), row(1, s+1))
		b.FaceVertexCounts = append(b.FaceVertexCounts, 3)
	}
	for r := 1; r < rings-1; r++ {
		for s := 0; s < sectors; s++ {
			b.PointIndices = append(b.PointIndices, row(r, s), row(r+1, s), row(r+1, s+1), row(r, s+1))
			b.FaceVertexCounts = append(b.FaceVertexCounts, 4)
		}
	}
	for s := 0; s < sectors; s++ {
		b.PointIndices = append(b.PointIndices, south, row(rings-1, s+1), row(rings-1, s))
		b.FaceVertexCounts = append(b.FaceVertexCounts, 3)
	}

	// positions of a unit sphere double as its normals
	b.Normals = b.Points
	return b
}

// UnitCylinder returns an open cylinder of radius 1 and length 1 centered on the X axis.
//
// Parameters:
//   - segments: number of vertices around each cap, at least 3
//
// Returns:
//   - Buffers: the lateral quads
func UnitCylinder(segments int) Buffers {
	segments = max(segments, 3)

	var b Buffers
	for _, x := range []float32{-0.5, 0.5} {
		for i := 0; i < segments; i++ {
			a := 2 * math.Pi * float64(i) / float64(segments)
			b.Points = append(b.Points, mgl32.Vec3{x, float32(math.Cos(a)), float32(math.Sin(a))})
		}
	}
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		b.Normals = append(b.Normals, mgl32.Vec3{0, float32(math.Cos(a)), float32(math.Sin(a))})
	}

	for i := 0; i < segments; i++ {
		j := (i + 1) % segments
		b.PointIndices = append(b.PointIndices,
			int32(i), int32(j), int32(segments+j), int32(segments+i))
		b.NormalIndices = append(b.NormalIndices, int32(i), int32(j), int32(j), int32(i))
		b.FaceVertexCounts = append(b.FaceVertexCounts, 4)
	}
	return b
}
