package light

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/hdrpr/engine/geometry"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// Kind identifies the shape of a light source.
type Kind int

const (
	// KindDisk is a one-sided disk in the XY plane emitting toward -Z.
	KindDisk Kind = iota

	// KindRect is a one-sided rectangle in the XY plane emitting toward -Z.
	KindRect

	// KindSphere is a sphere emitting outward.
	KindSphere

	// KindCylinder is a cylinder along the X axis emitting from its lateral surface.
	KindCylinder

	// KindDistant is a directional light with an angular diameter.
	KindDistant

	kindCount
)

// geometryKinds is the number of kinds backed by an emissive light mesh.
const geometryKinds = int(KindDistant)

func (k Kind) String() string {
	switch k {
	case KindDisk:
		return "disk"
	case KindRect:
		return "rect"
	case KindSphere:
		return "sphere"
	case KindCylinder:
		return "cylinder"
	case KindDistant:
		return "distant"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsGeometry reports whether lights of this kind are rendered as an emissive mesh.
func (k Kind) IsGeometry() bool {
	return k >= 0 && int(k) < geometryKinds
}

// KindFromPrimType maps a scene prim type to a light kind.
//
// Parameters:
//   - primType: the prim type token
//
// Returns:
//   - Kind: the light kind
//   - bool: false if primType is not a supported light
func KindFromPrimType(primType scene.Token) (Kind, bool) {
	switch primType {
	case scene.PrimTypeDiskLight:
		return KindDisk, true
	case scene.PrimTypeRectLight:
		return KindRect, true
	case scene.PrimTypeSphereLight:
		return KindSphere, true
	case scene.PrimTypeCylinderLight:
		return KindCylinder, true
	case scene.PrimTypeDistantLight:
		return KindDistant, true
	}
	return 0, false
}

// Params are the shape parameters of a light. Each kind reads only its own fields.
type Params struct {
	Radius float32
	Width  float32
	Height float32
	Length float32
	// Angle is the angular diameter of a distant light in degrees.
	Angle float32
}

// DefaultParams are used for any parameter the scene does not author.
var DefaultParams = Params{
	Radius: 0.5,
	Width:  1,
	Height: 1,
	Length: 1,
	Angle:  0.53,
}

// kindInfo is the per-kind behavior of a light.
type kindInfo struct {
	// syncParams reads the kind's parameters into p and reports whether any changed.
	syncParams func(sd scene.Delegate, id scene.PathID, p *Params) bool
	// normalize divides color by the emitting surface area under transform.
	normalize func(p Params, transform mgl32.Mat4, color mgl32.Vec3) mgl32.Vec3
	// meshScale maps the unit light mesh to the authored size.
	meshScale func(p Params) mgl32.Mat4
	// mesh builds the unit light mesh with the given tessellation.
	mesh func(segments int) geometry.Buffers
}

var kinds = [kindCount]kindInfo{
	KindDisk: {
		syncParams: func(sd scene.Delegate, id scene.PathID, p *Params) bool {
			return syncParam(sd, id, scene.TokenRadius, DefaultParams.Radius, &p.Radius)
		},
		normalize: func(p Params, m mgl32.Mat4, color mgl32.Vec3) mgl32.Vec3 {
			sx := m.Row(0).Vec3().Len() * p.Radius
			sy := m.Row(1).Vec3().Len() * p.Radius
			if sx == 0 && sy == 0 {
				return color
			}
			area := math.Pi * sx * sy
			return color.Mul(float32(math.Pi / area))
		},
		meshScale: func(p Params) mgl32.Mat4 {
			return mgl32.Scale3D(p.Radius, p.Radius, 1)
		},
		mesh: geometry.UnitDisk,
	},
	KindRect: {
		syncParams: func(sd scene.Delegate, id scene.PathID, p *Params) bool {
			changed := syncParam(sd, id, scene.TokenWidth, DefaultParams.Width, &p.Width)
			return syncParam(sd, id, scene.TokenHeight, DefaultParams.Height, &p.Height) || changed
		},
		normalize: func(p Params, m mgl32.Mat4, color mgl32.Vec3) mgl32.Vec3 {
			w := m.Col(0).Vec3().Mul(p.Width).Len()
			h := m.Col(1).Vec3().Mul(p.Height).Len()
			if w*h == 0 {
				return color
			}
			return color.Mul(1 / (w * h))
		},
		meshScale: func(p Params) mgl32.Mat4 {
			return mgl32.Scale3D(p.Width, p.Height, 1)
		},
		mesh: func(int) geometry.Buffers { return geometry.UnitRect() },
	},
	KindSphere: {
		syncParams: func(sd scene.Delegate, id scene.PathID, p *Params) bool {
			return syncParam(sd, id, scene.TokenRadius, DefaultParams.Radius, &p.Radius)
		},
		normalize: func(p Params, m mgl32.Mat4, color mgl32.Vec3) mgl32.Vec3 {
			// (sx*sy + sy*sz + sz*sx) / 3 approximates the ellipsoid area over the unit sphere's 4*pi
			sx, sy, sz := basisScale(m, p.Radius, p.Radius, p.Radius)
			ratio := (sx*sy + sy*sz + sz*sx) / 3
			if ratio == 0 {
				return color
			}
			return color.Mul(1 / ratio)
		},
		meshScale: func(p Params) mgl32.Mat4 {
			return mgl32.Scale3D(p.Radius, p.Radius, p.Radius)
		},
		mesh: func(segments int) geometry.Buffers { return geometry.UnitSphere(segments/2, segments) },
	},
	KindCylinder: {
		syncParams: func(sd scene.Delegate, id scene.PathID, p *Params) bool {
			changed := syncParam(sd, id, scene.TokenRadius, DefaultParams.Radius, &p.Radius)
			return syncParam(sd, id, scene.TokenLength, DefaultParams.Length, &p.Length) || changed
		},
		normalize: func(p Params, m mgl32.Mat4, color mgl32.Vec3) mgl32.Vec3 {
			sx, sy, sz := basisScale(m, p.Length, p.Radius, p.Radius)
			ratio := (sy + sz) / 2 * sx
			if ratio == 0 {
				return color
			}
			return color.Mul(1 / ratio)
		},
		meshScale: func(p Params) mgl32.Mat4 {
			return mgl32.Scale3D(p.Length, p.Radius, p.Radius)
		},
		mesh: geometry.UnitCylinder,
	},
	KindDistant: {
		syncParams: func(sd scene.Delegate, id scene.PathID, p *Params) bool {
			return syncParam(sd, id, scene.TokenAngle, DefaultParams.Angle, &p.Angle)
		},
		normalize: func(_ Params, _ mgl32.Mat4, color mgl32.Vec3) mgl32.Vec3 {
			return color
		},
	},
}

// NormalizeColor divides color by the light's emitting area so that perceived power does not depend
// on its size. Distant lights are returned unchanged.
//
// Parameters:
//   - kind: the light kind
//   - p: the shape parameters
//   - transform: the light's world transform
//   - color: the unnormalized emission color
//
// Returns:
//   - mgl32.Vec3: the normalized color
func NormalizeColor(kind Kind, p Params, transform mgl32.Mat4, color mgl32.Vec3) mgl32.Vec3 {
	if kind < 0 || kind >= kindCount {
		return color
	}
	return kinds[kind].normalize(p, transform, color)
}

// MeshTransform returns the world transform of a light mesh: the unit mesh scaled to the
// authored size, then placed by the light transform.
func MeshTransform(kind Kind, p Params, transform mgl32.Mat4) mgl32.Mat4 {
	if !kind.IsGeometry() {
		return transform
	}
	return transform.Mul4(kinds[kind].meshScale(p))
}

// ShadowSoftness converts a distant light's angular diameter in degrees to the renderer's
// shadow softness, clamped to [0, 1].
func ShadowSoftness(angle float32) float32 {
	softness := angle * math.Pi / 180 * math.Pi
	return mgl32.Clamp(softness, 0, 1)
}

// basisScale returns the lengths of the transform's x, y and z basis vectors multiplied by the given sizes.
func basisScale(m mgl32.Mat4, x, y, z float32) (float32, float32, float32) {
	return m.Col(0).Vec3().Len() * x, m.Col(1).Vec3().Len() * y, m.Col(2).Vec3().Len() * z
}

// syncParam reads a non-negative float parameter and reports whether it differs from *dst.
func syncParam(sd scene.Delegate, id scene.PathID, key scene.Token, fallback float32, dst *float32) bool {
	v := float32(math.Abs(float64(floatValue(sd.GetLightParamValue(id, key), fallback))))
	if v == *dst {
		return false
	}
	*dst = v
	return true
}

// floatValue accepts the numeric types a scene description may author.
func floatValue(v scene.Value, fallback float32) float32 {
	switch t := v.(type) {
	case float32:
		return t
	case float64:
		return float32(t)
	case int:
		return float32(t)
	}
	return fallback
}
