package scene

import (
	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Delegate is the read side of the scene graph. Every prim Sync pulls authored data through it.
// Implementations must be safe for concurrent readers since prims sync in parallel.
type Delegate interface {
	// Get fetches a named value of a prim, typically a primvar or a prim attribute.
	//
	// Parameters:
	//   - id: the prim to read
	//   - key: the value name
	//
	// Returns:
	//   - Value: the authored value, or nil if not authored
	Get(id PathID, key Token) Value

	// GetLightParamValue fetches a named light parameter.
	GetLightParamValue(id PathID, key Token) Value

	// GetMeshTopology returns the topology snapshot of a mesh prim.
	GetMeshTopology(id PathID) Topology

	// GetPrimvarDescriptors enumerates the primvars of one interpolation class.
	GetPrimvarDescriptors(id PathID, interpolation Interpolation) []PrimvarDescriptor

	// GetComputationPrimvarDescriptors enumerates primvars produced by a computation.
	GetComputationPrimvarDescriptors(id PathID, interpolation Interpolation) []PrimvarDescriptor

	// GetComputedPrimvar evaluates a computed primvar.
	//
	// Returns:
	//   - Value: the computed value
	//   - bool: false if the computation produced nothing for name
	GetComputedPrimvar(id PathID, name Token) (Value, bool)

	// SampleTransform returns the prim's transform sampled over the shutter interval.
	SampleTransform(id PathID) common.TimeSamples[mgl32.Mat4]

	// SampleInstancerTransforms returns, per time sample, one transform per instance of prototype.
	// An instancer that does not exist yields an empty sample set and false.
	SampleInstancerTransforms(instancerID, prototypeID PathID) (common.TimeSamples[[]mgl32.Mat4], bool)

	// GetVisible returns the authored visibility.
	GetVisible(id PathID) bool

	// GetDisplayStyle returns the draw style.
	GetDisplayStyle(id PathID) DisplayStyle

	// GetSubdivTags returns the subdivision tags.
	GetSubdivTags(id PathID) SubdivTags

	// GetMaterialID returns the bound material.
	GetMaterialID(id PathID) PathID

	// GetInstancerID returns the instancer that instances this prim, or "" when not instanced.
	GetInstancerID(id PathID) PathID

	// GetMaterialResource returns the description of a material prim.
	GetMaterialResource(id PathID) MaterialResource

	// GetPrimID returns the numeric id used for object id AOVs.
	GetPrimID(id PathID) uint32
}

// ChangeTracker is the write side of dirty tracking.
type ChangeTracker interface {
	// DirtyBits returns the accumulated dirty bits of a prim.
	DirtyBits(id PathID) DirtyBits

	// MarkClean clears bits of a prim after a successful Sync.
	MarkClean(id PathID, bits DirtyBits)

	// MarkDirty sets bits of a prim.
	MarkDirty(id PathID, bits DirtyBits)
}
