package mesh

import (
	"github.com/Carmen-Shannon/hdrpr/engine/geometry"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// faceSets returns the face-set subsets in authored order. Other subset types are reported and skipped.
func faceSets(subsets []scene.GeomSubset, log *zap.Logger) []scene.GeomSubset {
	sets := make([]scene.GeomSubset, 0, len(subsets))
	for _, s := range subsets {
		if s.Type != scene.GeomSubsetFaceSet {
			log.Error("unknown geom subset type", zap.String("subset", string(s.ID)), zap.Int("type", int(s.Type)))
			continue
		}
		sets = append(sets, s)
	}
	return sets
}

// unusedFaces returns the faces not covered by any subset, in ascending order. Out-of-range
// subset indices are ignored.
func unusedFaces(numFaces int, sets []scene.GeomSubset) []int32 {
	used := make([]bool, numFaces)
	remaining := numFaces
	for _, s := range sets {
		for _, f := range s.Indices {
			if f >= 0 && int(f) < numFaces && !used[f] {
				used[f] = true
				remaining--
			}
		}
	}
	if remaining == 0 {
		return nil
	}
	faces := make([]int32, 0, remaining)
	for f, u := range used {
		if !u {
			faces = append(faces, int32(f))
		}
	}
	return faces
}

// remap assigns compact indices to the source indices a subset references.
type remap struct {
	index []int32
}

func newRemap(n int) *remap {
	r := &remap{index: make([]int32, n)}
	r.reset()
	return r
}

func (r *remap) reset() {
	for i := range r.index {
		r.index[i] = -1
	}
}

// lookup returns the compact index of src and whether src was seen for the first time.
func (r *remap) lookup(src int32, next int) (int32, bool) {
	if r.index[src] >= 0 {
		return r.index[src], false
	}
	r.index[src] = int32(next)
	return int32(next), true
}

// subsetExtractor copies the faces of one subset out of a whole mesh, compacting every buffer.
type subsetExtractor struct {
	src     geometry.Buffers
	offsets []int

	points  *remap
	normals *remap
	uvs     *remap
}

func newSubsetExtractor(src geometry.Buffers) *subsetExtractor {
	offsets := make([]int, len(src.FaceVertexCounts))
	offset := 0
	for f, c := range src.FaceVertexCounts {
		offsets[f] = offset
		offset += int(c)
	}

	e := &subsetExtractor{src: src, offsets: offsets, points: newRemap(len(src.Points))}
	if len(src.Normals) > 0 && len(src.NormalIndices) > 0 {
		e.normals = newRemap(len(src.Normals))
	}
	if len(src.UVs) > 0 && len(src.UVIndices) > 0 {
		e.uvs = newRemap(len(src.UVs))
	}
	return e
}

// extract builds the buffers of the given faces. Primvars without indices follow the point remapping.
func (e *subsetExtractor) extract(faces []int32) geometry.Buffers {
	e.points.reset()
	if e.normals != nil {
		e.normals.reset()
	}
	if e.uvs != nil {
		e.uvs.reset()
	}

	src := e.src
	var out geometry.Buffers
	out.FaceVertexCounts = make([]int32, 0, len(faces))

	for _, f := range faces {
		if f < 0 || int(f) >= len(src.FaceVertexCounts) {
			continue
		}
		count := src.FaceVertexCounts[f]
		out.FaceVertexCounts = append(out.FaceVertexCounts, count)
		base := e.offsets[f]

		for i := 0; i < int(count); i++ {
			corner := base + i
			p := src.PointIndices[corner]
			idx, added := e.points.lookup(p, len(out.Points))
			if added {
				out.Points = append(out.Points, src.Points[p])
				if len(src.Normals) > 0 && e.normals == nil {
					out.Normals = append(out.Normals, elementAt(src.Normals, p))
				}
				if len(src.UVs) > 0 && e.uvs == nil {
					out.UVs = append(out.UVs, elementAt(src.UVs, p))
				}
			}
			out.PointIndices = append(out.PointIndices, idx)

			if e.normals != nil {
				n := src.NormalIndices[corner]
				ni, added := e.normals.lookup(n, len(out.Normals))
				if added {
					out.Normals = append(out.Normals, src.Normals[n])
				}
				out.NormalIndices = append(out.NormalIndices, ni)
			}
			if e.uvs != nil {
				u := src.UVIndices[corner]
				ui, added := e.uvs.lookup(u, len(out.UVs))
				if added {
					out.UVs = append(out.UVs, src.UVs[u])
				}
				out.UVIndices = append(out.UVIndices, ui)
			}
		}
	}
	return out
}

// elementAt returns values[i], or the zero value when a per-point primvar is shorter than the points.
func elementAt[T mgl32.Vec2 | mgl32.Vec3](values []T, i int32) T {
	var zero T
	if int(i) >= len(values) {
		return zero
	}
	return values[i]
}

// splitSubsets partitions a mesh into one buffer set per face set, followed by one for the faces no
// subset covers. Each part is preprocessed on its own.
//
// Parameters:
//   - src: the authored buffers of the whole mesh
//   - sets: the face sets
//   - opts: preprocessing options
//
// Returns:
//   - []geometry.Buffers: one part per face set, then the residual part if any
//   - bool: whether the last part is the residual
func splitSubsets(src geometry.Buffers, sets []scene.GeomSubset, opts geometry.Options) ([]geometry.Buffers, bool) {
	e := newSubsetExtractor(src)
	parts := make([]geometry.Buffers, 0, len(sets)+1)
	for _, s := range sets {
		parts = append(parts, geometry.Preprocess(e.extract(s.Indices), opts))
	}

	residual := unusedFaces(len(src.FaceVertexCounts), sets)
	if residual != nil {
		parts = append(parts, geometry.Preprocess(e.extract(residual), opts))
	}
	return parts, residual != nil
}
