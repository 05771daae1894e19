package mesh

import (
	"strings"

	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// primvarElement is an element type a primvar array can hold.
type primvarElement interface {
	mgl32.Vec2 | mgl32.Vec3
}

// primvarInterpolations is the lookup order for named primvars.
var primvarInterpolations = []scene.Interpolation{
	scene.InterpolationConstant,
	scene.InterpolationVertex,
	scene.InterpolationFaceVarying,
}

type primvarDescriptors map[scene.Interpolation][]scene.PrimvarDescriptor

func fetchDescriptors(sd scene.Delegate, id scene.PathID) primvarDescriptors {
	descs := make(primvarDescriptors, len(primvarInterpolations))
	for _, interp := range primvarInterpolations {
		descs[interp] = sd.GetPrimvarDescriptors(id, interp)
	}
	return descs
}

// primvarData reads the primvar called name as an array of T. Face-varying primvars are indexed by the
// shared sequence over the face vertices; other interpolations come back without indices.
//
// Parameters:
//   - m: the mesh, whose topology sizes the face-varying indices
//   - sd: the scene delegate
//   - name: the primvar name
//   - descs: the mesh's primvar descriptors
//
// Returns:
//   - []T: the values, nil if missing
//   - []int32: the indices, nil unless face-varying
//   - bool: whether a primvar of that name and element type exists
func primvarData[T primvarElement](m *Mesh, sd scene.Delegate, name scene.Token, descs primvarDescriptors) ([]T, []int32, bool) {
	for _, interp := range primvarInterpolations {
		for _, pv := range descs[interp] {
			if pv.Name != name {
				continue
			}
			values, ok := sd.Get(m.id, name).([]T)
			if !ok {
				return nil, nil, false
			}
			var indices []int32
			if interp == scene.InterpolationFaceVarying {
				if m.sharedFaceVaryingIndices == nil {
					m.sharedFaceVaryingIndices = common.Sequence(len(m.topology.FaceVertexIndices))
				}
				indices = m.sharedFaceVaryingIndices
			}
			return values, indices, true
		}
	}
	return nil, nil, false
}

const geometrySettingPrefix = "primvars:rpr:"

var visibilitySettings = map[string]renderer.VisibilityFlag{
	"visibilityPrimary":          renderer.VisiblePrimary,
	"visibilityShadow":           renderer.VisibleShadow,
	"visibilityReflection":       renderer.VisibleReflection,
	"visibilityRefraction":       renderer.VisibleRefraction,
	"visibilityTransparent":      renderer.VisibleTransparent,
	"visibilityDiffuse":          renderer.VisibleDiffuse,
	"visibilityGlossyReflection": renderer.VisibleGlossyReflection,
	"visibilityGlossyRefraction": renderer.VisibleGlossyRefraction,
	"visibilityLight":            renderer.VisibleLight,
}

// geometrySettings are the renderer-specific constant primvars of a mesh.
type geometrySettings struct {
	visibilityMask   renderer.VisibilityFlag
	subdivisionLevel int
}

// parseGeometrySettings reads the primvars:rpr:* constant primvars. Unknown settings and values of the
// wrong type are ignored.
func parseGeometrySettings(sd scene.Delegate, id scene.PathID, constants []scene.PrimvarDescriptor, defaults geometrySettings) geometrySettings {
	settings := defaults
	for _, pv := range constants {
		name, ok := strings.CutPrefix(string(pv.Name), geometrySettingPrefix)
		if !ok {
			continue
		}
		value := sd.Get(id, pv.Name)
		if flag, ok := visibilitySettings[name]; ok {
			visible, ok := value.(bool)
			if !ok {
				continue
			}
			if visible {
				settings.visibilityMask |= flag
			} else {
				settings.visibilityMask &^= flag
			}
			continue
		}
		if name == "subdivisionLevel" {
			switch level := value.(type) {
			case int:
				settings.subdivisionLevel = level
			case int32:
				settings.subdivisionLevel = int(level)
			case float64:
				settings.subdivisionLevel = int(level)
			}
		}
	}
	return settings
}

// displayColor returns the first constant display color, or fallback.
func displayColor(sd scene.Delegate, id scene.PathID, constants []scene.PrimvarDescriptor, fallback mgl32.Vec3) mgl32.Vec3 {
	for _, pv := range constants {
		if pv.Name != scene.TokenDisplayColor {
			continue
		}
		if colors, ok := sd.Get(id, pv.Name).([]mgl32.Vec3); ok {
			if len(colors) > 0 {
				return colors[0]
			}
			break
		}
	}
	return fallback
}
