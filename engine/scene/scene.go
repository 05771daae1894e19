// Package scene defines the boundary to the scene graph: prim identities, tokens, dirty bits, topology snapshots
// and the Delegate interface prims pull their authored data from.
package scene

import (
	"fmt"
)

// PathID identifies a prim in the scene graph.
type PathID string

// Token is an interned scene-graph name such as a primvar or light parameter.
type Token string

// Value is a variant returned by typed parameter fetches. Callers type-assert with Get.
type Value = any

// Get type-asserts v to T, returning fallback when v is nil or holds a different type.
//
// Parameters:
//   - v: the variant value
//   - fallback: the value returned on a type mismatch
//
// Returns:
//   - T: the held value or fallback
func Get[T any](v Value, fallback T) T {
	if t, ok := v.(T); ok {
		return t
	}
	return fallback
}

// Primvar, light and topology tokens.
const (
	TokenPoints       Token = "points"
	TokenNormals      Token = "normals"
	TokenWidths       Token = "widths"
	TokenDisplayColor Token = "displayColor"
	TokenST           Token = "st"

	TokenTransform              Token = "transform"
	TokenColor                  Token = "color"
	TokenIntensity              Token = "intensity"
	TokenExposure               Token = "exposure"
	TokenNormalize              Token = "normalize"
	TokenEnableColorTemperature Token = "enableColorTemperature"
	TokenColorTemperature       Token = "colorTemperature"
	TokenRadius                 Token = "radius"
	TokenWidth                  Token = "width"
	TokenHeight                 Token = "height"
	TokenLength                 Token = "length"
	TokenAngle                  Token = "angle"

	TokenRightHanded Token = "rightHanded"
	TokenLeftHanded  Token = "leftHanded"

	TokenCatmullClark Token = "catmullClark"
	TokenLoop         Token = "loop"
	TokenBilinear     Token = "bilinear"
	TokenNone         Token = "none"

	TokenEdgeAndCorner Token = "edgeAndCorner"
	TokenEdgeOnly      Token = "edgeOnly"
)

// Prim type tokens.
const (
	PrimTypeMesh          Token = "mesh"
	PrimTypeMaterial      Token = "material"
	PrimTypeDiskLight     Token = "diskLight"
	PrimTypeRectLight     Token = "rectLight"
	PrimTypeSphereLight   Token = "sphereLight"
	PrimTypeCylinderLight Token = "cylinderLight"
	PrimTypeDistantLight  Token = "distantLight"
)

// Interpolation is the primvar interpolation class.
type Interpolation int

const (
	InterpolationConstant Interpolation = iota
	InterpolationUniform
	InterpolationVarying
	InterpolationVertex
	InterpolationFaceVarying
	InterpolationInstance
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationConstant:
		return "constant"
	case InterpolationUniform:
		return "uniform"
	case InterpolationVarying:
		return "varying"
	case InterpolationVertex:
		return "vertex"
	case InterpolationFaceVarying:
		return "faceVarying"
	case InterpolationInstance:
		return "instance"
	}
	return fmt.Sprintf("Interpolation(%d)", int(i))
}

// PrimvarDescriptor describes one authored primvar of a prim.
type PrimvarDescriptor struct {
	Name          Token
	Interpolation Interpolation
	Role          Token
}

// GeomSubsetType is the kind of elements a geom subset partitions.
type GeomSubsetType int

const (
	GeomSubsetFaceSet GeomSubsetType = iota
)

// GeomSubset is a named partition of a mesh's faces bound to its own material.
type GeomSubset struct {
	Type       GeomSubsetType
	ID         PathID
	MaterialID PathID
	// Indices are face indices into the parent topology.
	Indices []int32
}

// Topology is the per-sync snapshot of a mesh's face structure.
type Topology struct {
	Scheme            Token
	Orientation       Token
	FaceVertexCounts  []int32
	FaceVertexIndices []int32
	GeomSubsets       []GeomSubset
}

// Validate checks that the index count equals the sum of the face vertex counts.
//
// Returns:
//   - error: non-nil if the counts disagree or a count is negative
func (t Topology) Validate() error {
	var sum int
	for i, c := range t.FaceVertexCounts {
		if c < 0 {
			return fmt.Errorf("face %d has negative vertex count %d", i, c)
		}
		sum += int(c)
	}
	if sum != len(t.FaceVertexIndices) {
		return fmt.Errorf("face vertex indices: got %d, counts sum to %d", len(t.FaceVertexIndices), sum)
	}
	return nil
}

// DisplayStyle carries the per-prim draw style.
type DisplayStyle struct {
	RefineLevel         int
	FlatShadingEnabled  bool
	DisplacementEnabled bool
}

// SubdivTags carries subdivision surface tags.
type SubdivTags struct {
	VertexInterpolationRule Token
}

// MaterialResource is the authored description of a material prim.
// Only the subset needed to assemble a node graph is modeled.
type MaterialResource struct {
	DiffuseColor   [3]float32
	EmissiveColor  [3]float32
	Emissive       bool
	DiffuseTexture string
	UVPrimvar      Token
}
