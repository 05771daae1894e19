// Package renderer is the boundary to the ray-tracing renderer SDK. It defines the object model prims commit into
// (contexts, scenes, shapes, lights, images, material nodes), the status-code error policy, the render thread with
// its exclusive-access gate, and two backends: an in-memory reference backend and a GPU texture mirror for images.
package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Status is the result code of every renderer call.
type Status int

const (
	StatusSuccess Status = iota
	StatusInvalidParameter
	StatusInvalidObject
	StatusOutOfMemory
	StatusUnsupported
	StatusInternalError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalidParameter:
		return "invalid parameter"
	case StatusInvalidObject:
		return "invalid object"
	case StatusOutOfMemory:
		return "out of memory"
	case StatusUnsupported:
		return "unsupported"
	case StatusInternalError:
		return "internal error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// PluginType selects the renderer backend variant.
type PluginType int

const (
	PluginTahoe PluginType = iota
	PluginNorthstar
	// PluginHybrid cannot render meshes without normals and uvs and has no per-shape visibility flags.
	PluginHybrid
)

func (p PluginType) String() string {
	switch p {
	case PluginTahoe:
		return "tahoe"
	case PluginNorthstar:
		return "northstar"
	case PluginHybrid:
		return "hybrid"
	}
	return fmt.Sprintf("PluginType(%d)", int(p))
}

// ParsePluginType maps a plugin name to its PluginType.
//
// Parameters:
//   - name: one of "tahoe", "northstar", "hybrid"
//
// Returns:
//   - PluginType: the parsed type
//   - bool: false if the name is unknown
func ParsePluginType(name string) (PluginType, bool) {
	switch name {
	case "tahoe":
		return PluginTahoe, true
	case "northstar":
		return PluginNorthstar, true
	case "hybrid":
		return PluginHybrid, true
	}
	return PluginTahoe, false
}

// ContextMetadata describes how a Context was created.
type ContextMetadata struct {
	PluginType       PluginType
	RenderDeviceType string
}

// VisibilityFlag is one ray category a shape can be hidden from.
type VisibilityFlag uint32

const (
	VisiblePrimary VisibilityFlag = 1 << iota
	VisibleShadow
	VisibleReflection
	VisibleRefraction
	VisibleTransparent
	VisibleDiffuse
	VisibleGlossyReflection
	VisibleGlossyRefraction
	VisibleLight

	VisibleNone VisibilityFlag = 0
	VisibleAll  VisibilityFlag = VisibleLight<<1 - 1
)

// VisibilityFlags lists every flag in application order.
var VisibilityFlags = []VisibilityFlag{
	VisiblePrimary,
	VisibleShadow,
	VisibleReflection,
	VisibleRefraction,
	VisibleTransparent,
	VisibleDiffuse,
	VisibleGlossyReflection,
	VisibleGlossyRefraction,
	VisibleLight,
}

// SubdivBoundary is the subdivision boundary interpolation rule.
type SubdivBoundary int

const (
	BoundaryEdgeOnly SubdivBoundary = iota
	BoundaryEdgeAndCorner
)

// MaterialNodeType is the kind of a material node.
type MaterialNodeType int

const (
	NodeDiffuse MaterialNodeType = iota
	NodeEmissive
	NodeImageTexture
)

func (t MaterialNodeType) String() string {
	switch t {
	case NodeDiffuse:
		return "diffuse"
	case NodeEmissive:
		return "emissive"
	case NodeImageTexture:
		return "imageTexture"
	}
	return fmt.Sprintf("MaterialNodeType(%d)", int(t))
}

// Material node input keys.
const (
	InputColor = "color"
	InputData  = "data"
	InputUV    = "uv"
)

// MeshData is the buffer set a shape is created from. Index slices are parallel to PointIndices;
// a nil NormalIndices or UVIndices with non-empty normals or uvs means "indexed like the points".
type MeshData struct {
	Points           []mgl32.Vec3
	Normals          []mgl32.Vec3
	UVs              []mgl32.Vec2
	PointIndices     []int32
	NormalIndices    []int32
	UVIndices        []int32
	FaceVertexCounts []int32
}

// ImageFormat is the pixel layout of an image.
type ImageFormat int

const (
	ImageFormatRGBA8 ImageFormat = iota
)

// ImageDesc describes the pixels passed to CreateImage.
type ImageDesc struct {
	Width  int
	Height int
	Format ImageFormat
}

// Object is anything created by a Context.
type Object interface {
	// ID returns a unique identity assigned at creation.
	ID() string

	// Delete destroys the object. Calls on a deleted object return StatusInvalidObject.
	Delete() Status
}

// SceneObject is an Object that can be placed in a scene.
type SceneObject interface {
	Object

	// SetTransform sets the object-to-world transform.
	SetTransform(m mgl32.Mat4) Status
}

// Shape is a mesh or a mesh instance.
type Shape interface {
	SceneObject

	SetLinearMotion(v mgl32.Vec3) Status
	SetScaleMotion(v mgl32.Vec3) Status
	SetAngularMotion(axis mgl32.Vec3, angle float32) Status
	SetSubdivisionFactor(factor int) Status
	SetSubdivisionBoundary(rule SubdivBoundary) Status
	SetVisibilityFlag(flag VisibilityFlag, visible bool) Status
	SetObjectID(id uint32) Status

	// SetMaterial attaches a material node. A nil node detaches the current material.
	SetMaterial(node MaterialNode) Status
}

// Light is a directional light.
type Light interface {
	SceneObject

	SetDirectionalRadiance(radiance mgl32.Vec3) Status
	SetDirectionalShadowSoftness(softness float32) Status
}

// Image is an uploaded texture.
type Image interface {
	Object

	Desc() ImageDesc
}

// MaterialNode is one node of a material graph.
type MaterialNode interface {
	Object

	Type() MaterialNodeType
	SetInputColor(key string, c mgl32.Vec4) Status
	SetInputNode(key string, node MaterialNode) Status
	SetInputImage(key string, img Image) Status
}

// Scene is the set of objects rendered together.
type Scene interface {
	Object

	AttachShape(s Shape) Status
	DetachShape(s Shape) Status
	AttachLight(l Light) Status
	DetachLight(l Light) Status
}

// Context creates renderer objects and runs render iterations.
// Implementations must be safe for concurrent use.
type Context interface {
	Metadata() ContextMetadata

	CreateScene() (Scene, Status)
	CreateMesh(data MeshData) (Shape, Status)
	CreateInstance(prototype Shape) (Shape, Status)
	CreateDirectionalLight() (Light, Status)
	CreateImage(desc ImageDesc, pixels []byte) (Image, Status)
	CreateMaterialNode(t MaterialNodeType) (MaterialNode, Status)

	// Render runs one progressive iteration of scene.
	Render(scene Scene) Status
}
