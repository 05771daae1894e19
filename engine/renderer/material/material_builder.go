package material

import (
	"github.com/Carmen-Shannon/hdrpr/engine/image"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the diffuse color of the material.
//
// Parameters:
//   - color: the diffuse color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color mgl32.Vec3) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithEmissiveColor is an option builder that makes the material emissive.
//
// Parameters:
//   - color: the emission
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emission option to a material
func WithEmissiveColor(color mgl32.Vec3) MaterialBuilderOption {
	return func(m *material) {
		m.emissive = true
		m.emissiveColor = color
	}
}

// WithDiffuseTexture is an option builder that drives the diffuse color from a texture.
// The material keeps tex alive until Release.
//
// Parameters:
//   - tex: the uploaded texture, nil for none
//
// Returns:
//   - MaterialBuilderOption: a function that applies the diffuse texture option to a material
func WithDiffuseTexture(tex *image.Image) MaterialBuilderOption {
	return func(m *material) {
		m.diffuseTexture = tex
	}
}

// WithUVPrimvar is an option builder that names the primvar texture coordinates are read from.
// An empty name keeps the default "st".
func WithUVPrimvar(name scene.Token) MaterialBuilderOption {
	return func(m *material) {
		if name != "" {
			m.uvPrimvar = name
		}
	}
}

// WithLogger is an option builder that sets the logger renderer failures are reported to.
func WithLogger(log *zap.Logger) MaterialBuilderOption {
	return func(m *material) {
		if log != nil {
			m.log = log
		}
	}
}
