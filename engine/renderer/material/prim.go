package material

import (
	"sync"

	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/Carmen-Shannon/hdrpr/engine/image"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Prim is the material scene prim. Sync pulls the material description, Commit rebuilds the node graph.
type Prim struct {
	mu *sync.Mutex

	id       scene.PathID
	desc     scene.MaterialResource
	material Material
	dirty    bool

	images *image.Cache
	log    *zap.Logger
}

// NewPrim creates a material prim.
//
// Parameters:
//   - id: the prim path
//   - images: the texture cache, nil to ignore textures
//   - log: the logger, nil for none
//
// Returns:
//   - *Prim: the prim
func NewPrim(id scene.PathID, images *image.Cache, log *zap.Logger) *Prim {
	if log == nil {
		log = zap.NewNop()
	}
	return &Prim{
		mu:     &sync.Mutex{},
		id:     id,
		images: images,
		log:    log.Named("material").With(zap.String("prim", string(id))),
	}
}

// ID returns the prim path.
func (p *Prim) ID() scene.PathID {
	return p.id
}

// Sync reads the material description when it is dirty.
//
// Parameters:
//   - sd: the scene delegate
//   - tracker: the change tracker holding the prim's dirty bits
//
// Returns:
//   - bool: whether the node graph needs a Commit
func (p *Prim) Sync(sd scene.Delegate, tracker scene.ChangeTracker) bool {
	bits := tracker.DirtyBits(p.id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if bits&scene.MaterialAllDirty != 0 {
		p.desc = sd.GetMaterialResource(p.id)
		p.dirty = true
	}
	tracker.MarkClean(p.id, bits)
	return p.dirty
}

// Commit rebuilds the node graph after a Sync changed the description. The previous graph is released.
// A failed build leaves the prim without a material so meshes fall back to their default.
//
// Parameters:
//   - ed: the renderer editor
//
// Returns:
//   - bool: whether the graph changed
func (p *Prim) Commit(ed *renderer.Editor) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.dirty {
		return false
	}
	p.dirty = false

	p.releaseLocked()

	options := []MaterialBuilderOption{
		WithName(string(p.id)),
		WithUVPrimvar(p.desc.UVPrimvar),
		WithLogger(p.log),
	}
	if p.desc.Emissive {
		options = append(options, WithEmissiveColor(mgl32.Vec3(p.desc.EmissiveColor)))
	} else {
		options = append(options, WithBaseColor(mgl32.Vec3(common.Coalesce(p.desc.DiffuseColor, [3]float32(DefaultDiffuseColor)))))
	}
	if p.desc.DiffuseTexture != "" && p.images != nil {
		// a missing texture degrades to the constant color
		if tex := p.images.GetImage(p.desc.DiffuseTexture); tex != nil {
			options = append(options, WithDiffuseTexture(tex))
		}
	}

	m, err := NewMaterial(ed.Context(), options...)
	if err != nil {
		p.log.Error("failed to build material", zap.Error(err))
		return true
	}
	p.material = m
	return true
}

// Material returns the committed material, or nil.
func (p *Prim) Material() Material {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.material
}

// UVPrimvarName returns the primvar name meshes read texture coordinates from.
func (p *Prim) UVPrimvarName() scene.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	return common.Coalesce(p.desc.UVPrimvar, scene.TokenST)
}

// Finalize releases the node graph.
func (p *Prim) Finalize(ed *renderer.Editor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked()
}

func (p *Prim) releaseLocked() {
	if p.material == nil {
		return
	}
	p.material.Release()
	p.material = nil
	if p.images != nil {
		p.images.RequireGarbageCollection()
	}
}
