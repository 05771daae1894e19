// Package geometry converts authored mesh topology into buffers the renderer accepts: faces with more than four
// vertices are fan-split, left-handed winding is flipped, smooth normals are derived from adjacency, and
// flat normals and zero uvs are synthesized for backends that cannot render without them.
package geometry

import (
	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// normalizeEpsilon is the length below which a vector is left unnormalized.
const normalizeEpsilon = 1e-10

// Buffers is the set of arrays describing one renderer shape.
// NormalIndices and UVIndices are parallel to PointIndices when present.
type Buffers struct {
	Points           []mgl32.Vec3
	FaceVertexCounts []int32
	PointIndices     []int32
	Normals          []mgl32.Vec3
	NormalIndices    []int32
	UVs              []mgl32.Vec2
	UVIndices        []int32
}

// MeshData converts the buffers to renderer input. Index streams of empty primvars are dropped.
func (b Buffers) MeshData() renderer.MeshData {
	md := renderer.MeshData{
		Points:           b.Points,
		PointIndices:     b.PointIndices,
		FaceVertexCounts: b.FaceVertexCounts,
	}
	if len(b.Normals) > 0 {
		md.Normals = b.Normals
		md.NormalIndices = b.NormalIndices
	}
	if len(b.UVs) > 0 {
		md.UVs = b.UVs
		md.UVIndices = b.UVIndices
	}
	return md
}

// Options controls Preprocess.
type Options struct {
	// LeftHanded flips the winding of every face.
	LeftHanded bool
	// SynthesizeFallbacks generates flat normals and zero uvs when they are missing.
	SynthesizeFallbacks bool
}

// NeedsSplit reports whether any face has more than four vertices.
func NeedsSplit(faceVertexCounts []int32) bool {
	for _, c := range faceVertexCounts {
		if c > 4 {
			return true
		}
	}
	return false
}

// SplitPolygons fan-splits every face with more than four vertices around its first vertex.
// Triangles and quads pass through unchanged.
//
// Parameters:
//   - indices: face vertex indices
//   - faceVertexCounts: vertices per face
//
// Returns:
//   - []int32: the split indices
//   - []int32: the split vertex counts
func SplitPolygons(indices, faceVertexCounts []int32) ([]int32, []int32) {
	outIndices := make([]int32, 0, len(indices))
	outCounts := make([]int32, 0, len(faceVertexCounts))

	offset := 0
	for _, count := range faceVertexCounts {
		n := int(count)
		if n < 3 {
			// points and lines have no triangles to fan
			offset += n
			continue
		}
		if n == 3 || n == 4 {
			outIndices = append(outIndices, indices[offset:offset+n]...)
			outCounts = append(outCounts, count)
		} else {
			anchor := indices[offset]
			for i := 1; i < n-1; i++ {
				outIndices = append(outIndices, anchor, indices[offset+i], indices[offset+i+1])
				outCounts = append(outCounts, 3)
			}
		}
		offset += n
	}
	return outIndices, outCounts
}

// SplitIndices applies the same fan split as SplitPolygons to a primvar index stream.
//
// Parameters:
//   - indices: primvar indices sharing the face structure of faceVertexCounts
//   - faceVertexCounts: the unsplit vertex counts
//
// Returns:
//   - []int32: the split indices
func SplitIndices(indices, faceVertexCounts []int32) []int32 {
	out, _ := SplitPolygons(indices, faceVertexCounts)
	return out
}

// FlipWinding swaps the first and third index of every face in place.
//
// Parameters:
//   - indices: face vertex indices to modify
//   - faceVertexCounts: vertices per face
func FlipWinding(indices, faceVertexCounts []int32) {
	offset := 0
	for _, count := range faceVertexCounts {
		if count >= 3 {
			indices[offset], indices[offset+2] = indices[offset+2], indices[offset]
		}
		offset += int(count)
	}
}

// Preprocess converts authored buffers into renderer buffers. Input slices are never modified.
//
// Position indices are split and flipped. Each primvar index stream is processed independently with
// the same face structure; a primvar without indices is indexed like the points. Without normals or
// uvs, and with SynthesizeFallbacks set, flat per-face normals and zero uvs are generated.
//
// Parameters:
//   - in: the authored buffers
//   - opts: winding and fallback options
//
// Returns:
//   - Buffers: renderer-ready buffers
func Preprocess(in Buffers, opts Options) Buffers {
	split := NeedsSplit(in.FaceVertexCounts)

	out := Buffers{
		Points:           in.Points,
		FaceVertexCounts: in.FaceVertexCounts,
		PointIndices:     in.PointIndices,
		Normals:          in.Normals,
		UVs:              in.UVs,
	}

	if split {
		out.PointIndices, out.FaceVertexCounts = SplitPolygons(in.PointIndices, in.FaceVertexCounts)
	} else if opts.LeftHanded {
		out.PointIndices = common.Clone(in.PointIndices)
	}
	if opts.LeftHanded {
		FlipWinding(out.PointIndices, out.FaceVertexCounts)
	}

	primvarIndices := func(indices []int32) []int32 {
		if len(indices) == 0 {
			return out.PointIndices
		}
		var converted []int32
		if split {
			converted = SplitIndices(indices, in.FaceVertexCounts)
		} else {
			converted = common.Clone(indices)
		}
		if opts.LeftHanded {
			FlipWinding(converted, out.FaceVertexCounts)
		}
		return converted
	}

	if len(in.Normals) == 0 {
		if opts.SynthesizeFallbacks {
			out.Normals, out.NormalIndices = FlatNormals(in.Points, out.PointIndices, out.FaceVertexCounts)
		}
	} else {
		out.NormalIndices = primvarIndices(in.NormalIndices)
	}

	if len(in.UVs) == 0 {
		if opts.SynthesizeFallbacks {
			out.UVs = make([]mgl32.Vec2, len(in.Points))
			out.UVIndices = out.PointIndices
		}
	} else {
		out.UVIndices = primvarIndices(in.UVIndices)
	}

	return out
}

// FlatNormals computes one normal per face from its first three vertices.
// The normal of face (p0, p1, p2) is normalize(cross(p2-p1, p0-p1)); faces with fewer than three
// vertices or out-of-range indices get a zero normal.
//
// Parameters:
//   - points: vertex positions
//   - indices: face vertex indices
//   - faceVertexCounts: vertices per face
//
// Returns:
//   - []mgl32.Vec3: one normal per face
//   - []int32: normal indices parallel to indices
func FlatNormals(points []mgl32.Vec3, indices, faceVertexCounts []int32) ([]mgl32.Vec3, []int32) {
	normals := make([]mgl32.Vec3, 0, len(faceVertexCounts))
	normalIndices := make([]int32, 0, len(indices))

	offset := 0
	for face, count := range faceVertexCounts {
		for i := int32(0); i < count; i++ {
			normalIndices = append(normalIndices, int32(face))
		}

		var n mgl32.Vec3
		if count >= 3 {
			i0, i1, i2 := indices[offset], indices[offset+1], indices[offset+2]
			if inRange(points, i0, i1, i2) {
				p0, p1, p2 := points[i0], points[i1], points[i2]
				e0 := p0.Sub(p1)
				e1 := p2.Sub(p1)
				n = normalize(e1.Cross(e0))
			}
		}
		normals = append(normals, n)
		offset += int(count)
	}
	return normals, normalIndices
}

func inRange(points []mgl32.Vec3, indices ...int32) bool {
	for _, i := range indices {
		if i < 0 || int(i) >= len(points) {
			return false
		}
	}
	return true
}

func normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < normalizeEpsilon {
		return v
	}
	return v.Mul(1 / l)
}
