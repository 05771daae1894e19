// Package light syncs scene lights into renderer objects. Disk, rect, sphere and cylinder lights are
// emissive meshes taken from a Pool; distant lights are renderer directional lights.
package light

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/hdrpr/engine/pool"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer/material"
	"github.com/Carmen-Shannon/hdrpr/engine/resource"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// DefaultColorTemperature is used when a light enables color temperature without authoring one.
const DefaultColorTemperature float32 = 6500

type updateFlags uint32

const (
	updateTransform updateFlags = 1 << iota
	updateParams
	updateEmission
)

// Light is the renderer-side state of one scene light.
type Light struct {
	mu *sync.Mutex

	id   scene.PathID
	kind Kind
	pool *Pool

	transform mgl32.Mat4
	emission  mgl32.Vec3
	params    Params
	// built is false until every renderer object of the light exists.
	built bool

	meshHandle pool.Handle
	mesh       *resource.MeshPrototype
	material   material.Material

	distantHandle pool.Handle
	distant       renderer.Light

	log *zap.Logger
}

// NewLight creates an unbuilt light. Its renderer objects are created on the first Sync.
//
// Parameters:
//   - id: the scene path of the light
//   - kind: the light kind
//   - lights: the pool light meshes and directional lights are taken from
//   - options: functional options
//
// Returns:
//   - *Light: the light
func NewLight(id scene.PathID, kind Kind, lights *Pool, options ...LightBuilderOption) *Light {
	l := &Light{
		mu:            &sync.Mutex{},
		id:            id,
		kind:          kind,
		pool:          lights,
		transform:     mgl32.Ident4(),
		meshHandle:    pool.NullHandle,
		distantHandle: pool.NullHandle,
		log:           zap.NewNop(),
	}
	for _, opt := range options {
		opt(l)
	}
	l.log = l.log.Named("light").With(zap.String("id", string(id)), zap.Stringer("kind", kind))
	return l
}

// ID returns the scene path of the light.
func (l *Light) ID() scene.PathID {
	return l.id
}

// Kind returns the light kind.
func (l *Light) Kind() Kind {
	return l.kind
}

// Transform returns the last synced world transform.
func (l *Light) Transform() mgl32.Mat4 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transform
}

// EmissionColor returns the last computed emission color.
func (l *Light) EmissionColor() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.emission
}

// Params returns the last synced shape parameters.
func (l *Light) Params() Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}

// Mesh returns the pooled light mesh, or nil for distant or unbuilt lights.
func (l *Light) Mesh() *resource.MeshPrototype {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mesh
}

// Material returns the emissive material of a geometry light, or nil.
func (l *Light) Material() material.Material {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.material
}

// IsBuilt reports whether every renderer object of the light exists or is queued for creation.
func (l *Light) IsBuilt() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.built && !l.meshStalledLocked()
}

// meshStalledLocked reports whether the light mesh lost its pending creation, e.g. CreateMesh failed in a flush.
func (l *Light) meshStalledLocked() bool {
	return l.mesh != nil && l.mesh.Stalled()
}

// Sync pulls the light's dirty state from the scene and updates its renderer objects.
// The light is always marked clean; a light that could not be built retries on its next sync.
//
// Parameters:
//   - sd: the scene delegate
//   - tracker: the change tracker holding the light's dirty bits
//   - ed: the renderer editor, held for the duration of the call
func (l *Light) Sync(sd scene.Delegate, tracker scene.ChangeTracker, ed *renderer.Editor) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bits := tracker.DirtyBits(l.id)
	var flags updateFlags

	if bits.Has(scene.LightDirtyTransform) {
		transform := scene.Get(sd.GetLightParamValue(l.id, scene.TokenTransform), mgl32.Ident4())
		if transform != l.transform {
			l.transform = transform
			flags |= updateTransform
		}
	}

	if bits.Has(scene.LightDirtyParams) {
		if kinds[l.kind].syncParams(sd, l.id, &l.params) {
			flags |= updateParams
		}
		if emission := l.computeEmission(sd); emission != l.emission {
			l.emission = emission
			flags |= updateEmission
		}
	}

	if flags != 0 || !l.built || l.meshStalledLocked() {
		if l.kind == KindDistant {
			l.updateDistant(flags)
		} else {
			l.updateGeometry(ed, flags)
		}
	}

	tracker.MarkClean(l.id, scene.LightAllDirty)
}

// computeEmission combines color, temperature, intensity and exposure, then normalizes by area if requested.
func (l *Light) computeEmission(sd scene.Delegate) mgl32.Vec3 {
	color := scene.Get(sd.GetLightParamValue(l.id, scene.TokenColor), mgl32.Vec3{1, 1, 1})
	if scene.Get(sd.GetLightParamValue(l.id, scene.TokenEnableColorTemperature), false) {
		kelvin := floatValue(sd.GetLightParamValue(l.id, scene.TokenColorTemperature), DefaultColorTemperature)
		tint := BlackbodyColor(kelvin)
		color = mgl32.Vec3{color[0] * tint[0], color[1] * tint[1], color[2] * tint[2]}
	}

	intensity := floatValue(sd.GetLightParamValue(l.id, scene.TokenIntensity), 1)
	exposure := floatValue(sd.GetLightParamValue(l.id, scene.TokenExposure), 0)
	color = color.Mul(intensity * float32(math.Exp2(float64(exposure))))

	if scene.Get(sd.GetLightParamValue(l.id, scene.TokenNormalize), false) {
		color = NormalizeColor(l.kind, l.params, l.transform, color)
	}
	return color
}

func (l *Light) updateGeometry(ed *renderer.Editor, flags updateFlags) {
	if l.material == nil {
		m, err := material.NewEmissive(ed.Context(), l.emission, material.WithName(string(l.id)), material.WithLogger(l.log))
		if err != nil {
			l.log.Error("failed to create light material", zap.Error(err))
			return
		}
		l.material = m
	} else if flags&updateEmission != 0 {
		l.material.SetEmissiveColor(l.emission)
	}

	refresh := !l.built
	if l.mesh == nil {
		h, mesh := l.pool.CreateLightMesh(l.kind)
		if mesh == nil {
			l.log.Error("failed to acquire light mesh")
			return
		}
		l.meshHandle, l.mesh = h, mesh
		refresh = true
	}
	if l.mesh.Stalled() {
		l.log.Debug("retrying light mesh creation")
		l.mesh.Requeue()
		refresh = true
	}

	if refresh || flags&(updateParams|updateTransform) != 0 {
		l.mesh.SetTransform(MeshTransform(l.kind, l.params, l.transform))
	}
	if refresh || flags&updateEmission != 0 {
		l.mesh.SetMaterial(l.material)
	}
	l.built = true
}

func (l *Light) updateDistant(flags updateFlags) {
	refresh := !l.built
	if l.distant == nil {
		h, dl := l.pool.CreateDistantLight()
		if dl == nil {
			l.log.Error("failed to acquire directional light")
			return
		}
		l.distantHandle, l.distant = h, dl
		refresh = true
	}

	ok := true
	if refresh || flags&updateTransform != 0 {
		ok = !renderer.ErrorCheck(l.log, l.distant.SetTransform(l.transform), "failed to set light transform") && ok
	}
	if refresh || flags&(updateEmission|updateParams) != 0 {
		ok = !renderer.ErrorCheck(l.log, l.distant.SetDirectionalRadiance(l.emission), "failed to set light radiance") && ok
		ok = !renderer.ErrorCheck(l.log, l.distant.SetDirectionalShadowSoftness(ShadowSoftness(l.params.Angle)), "failed to set light shadow softness") && ok
	}
	l.built = ok
}

// Finalize returns the light's renderer objects to the pool and deletes its material.
// Must be called while the render thread is stopped.
func (l *Light) Finalize() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mesh != nil {
		l.pool.ReleaseLightMesh(l.meshHandle)
		l.meshHandle, l.mesh = pool.NullHandle, nil
	}
	if l.material != nil {
		l.material.Release()
		l.material = nil
	}
	if l.distant != nil {
		l.pool.ReleaseDistantLight(l.distantHandle)
		l.distantHandle, l.distant = pool.NullHandle, nil
	}
	l.built = false
}
