package scene

import (
	"sort"
	"sync"

	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Primvar is an authored primvar value with its interpolation.
type Primvar struct {
	Interpolation Interpolation
	Value         Value
	// Computed marks the primvar as produced by a computation rather than authored.
	Computed bool
}

// Prim is the in-memory record of one scene prim.
type Prim struct {
	ID           PathID
	Type         Token
	PrimID       uint32
	Values       map[Token]Value
	Primvars     map[Token]Primvar
	Topology     Topology
	Transform    common.TimeSamples[mgl32.Mat4]
	Visible      bool
	DisplayStyle DisplayStyle
	SubdivTags   SubdivTags
	MaterialID   PathID
	InstancerID  PathID
	Material     MaterialResource
}

// Instancer holds per-instance transforms shared by every prototype it instances.
type Instancer struct {
	ID         PathID
	Transforms common.TimeSamples[[]mgl32.Mat4]
}

// MemoryDelegate is an in-memory Delegate and ChangeTracker. It backs the viewer and the tests.
// All methods are safe for concurrent use.
type MemoryDelegate struct {
	mu         sync.RWMutex
	prims      map[PathID]*Prim
	instancers map[PathID]*Instancer
	dirty      map[PathID]DirtyBits
}

var (
	_ Delegate      = &MemoryDelegate{}
	_ ChangeTracker = &MemoryDelegate{}
)

// NewMemoryDelegate creates an empty MemoryDelegate and applies options in order.
//
// Parameters:
//   - options: functional options adding prims and instancers
//
// Returns:
//   - *MemoryDelegate: the populated delegate with every added prim fully dirty
func NewMemoryDelegate(options ...MemoryDelegateOption) *MemoryDelegate {
	d := &MemoryDelegate{
		prims:      make(map[PathID]*Prim),
		instancers: make(map[PathID]*Instancer),
		dirty:      make(map[PathID]DirtyBits),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// InitialDirtyBits returns the bits a freshly inserted prim of the given type starts with.
func InitialDirtyBits(primType Token) DirtyBits {
	switch primType {
	case PrimTypeMesh:
		return AllSceneDirtyBits
	case PrimTypeMaterial:
		return MaterialAllDirty
	}
	return LightDirtyTransform | LightDirtyParams
}

// AddPrim inserts or replaces a prim and marks it with its initial dirty bits.
func (d *MemoryDelegate) AddPrim(p *Prim) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.Values == nil {
		p.Values = make(map[Token]Value)
	}
	if p.Primvars == nil {
		p.Primvars = make(map[Token]Primvar)
	}
	d.prims[p.ID] = p
	d.dirty[p.ID] |= InitialDirtyBits(p.Type)
}

// AddInstancer inserts or replaces an instancer and dirties every prim it instances.
func (d *MemoryDelegate) AddInstancer(in *Instancer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.instancers[in.ID] = in
	for id, p := range d.prims {
		if p.InstancerID == in.ID {
			d.dirty[id] |= DirtyInstancer
		}
	}
}

// UpdatePrim mutates a prim under the delegate lock and marks bits dirty.
// Does nothing if the prim does not exist.
//
// Parameters:
//   - id: the prim to change
//   - bits: the dirty bits describing the change
//   - fn: mutation applied to the prim
func (d *MemoryDelegate) UpdatePrim(id PathID, bits DirtyBits, fn func(p *Prim)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.prims[id]
	if !ok {
		return
	}
	fn(p)
	d.dirty[id] |= bits
}

// RemovePrim deletes a prim and its dirty state.
func (d *MemoryDelegate) RemovePrim(id PathID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.prims, id)
	delete(d.dirty, id)
}

// Prim returns the prim record or nil.
func (d *MemoryDelegate) Prim(id PathID) *Prim {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.prims[id]
}

// Prims returns every prim id of the given type in lexical order. An empty type returns all prims.
func (d *MemoryDelegate) Prims(primType Token) []PathID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]PathID, 0, len(d.prims))
	for id, p := range d.prims {
		if primType == "" || p.Type == primType {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (d *MemoryDelegate) DirtyBits(id PathID) DirtyBits {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dirty[id]
}

func (d *MemoryDelegate) MarkClean(id PathID, bits DirtyBits) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirty[id] &^= bits
}

func (d *MemoryDelegate) MarkDirty(id PathID, bits DirtyBits) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.prims[id]; ok {
		d.dirty[id] |= bits
	}
}

func (d *MemoryDelegate) prim(id PathID) *Prim {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.prims[id]
}

func (d *MemoryDelegate) Get(id PathID, key Token) Value {
	p := d.prim(id)
	if p == nil {
		return nil
	}
	if pv, ok := p.Primvars[key]; ok && !pv.Computed {
		return pv.Value
	}
	return p.Values[key]
}

func (d *MemoryDelegate) GetLightParamValue(id PathID, key Token) Value {
	p := d.prim(id)
	if p == nil {
		return nil
	}
	if key == TokenTransform {
		if p.Transform.Count() == 0 {
			return mgl32.Ident4()
		}
		return p.Transform.Values[0]
	}
	return p.Values[key]
}

func (d *MemoryDelegate) GetMeshTopology(id PathID) Topology {
	if p := d.prim(id); p != nil {
		return p.Topology
	}
	return Topology{}
}

func (d *MemoryDelegate) GetPrimvarDescriptors(id PathID, interpolation Interpolation) []PrimvarDescriptor {
	return d.descriptors(id, interpolation, false)
}

func (d *MemoryDelegate) GetComputationPrimvarDescriptors(id PathID, interpolation Interpolation) []PrimvarDescriptor {
	return d.descriptors(id, interpolation, true)
}

func (d *MemoryDelegate) descriptors(id PathID, interpolation Interpolation, computed bool) []PrimvarDescriptor {
	p := d.prim(id)
	if p == nil {
		return nil
	}
	var out []PrimvarDescriptor
	for name, pv := range p.Primvars {
		if pv.Interpolation == interpolation && pv.Computed == computed {
			out = append(out, PrimvarDescriptor{Name: name, Interpolation: pv.Interpolation})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *MemoryDelegate) GetComputedPrimvar(id PathID, name Token) (Value, bool) {
	p := d.prim(id)
	if p == nil {
		return nil, false
	}
	pv, ok := p.Primvars[name]
	if !ok || !pv.Computed {
		return nil, false
	}
	return pv.Value, true
}

func (d *MemoryDelegate) SampleTransform(id PathID) common.TimeSamples[mgl32.Mat4] {
	p := d.prim(id)
	if p == nil || p.Transform.Count() == 0 {
		return common.Single(mgl32.Ident4())
	}
	return common.TimeSamples[mgl32.Mat4]{
		Times:  common.Clone(p.Transform.Times),
		Values: common.Clone(p.Transform.Values),
	}
}

func (d *MemoryDelegate) SampleInstancerTransforms(instancerID, prototypeID PathID) (common.TimeSamples[[]mgl32.Mat4], bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	in, ok := d.instancers[instancerID]
	if !ok {
		return common.TimeSamples[[]mgl32.Mat4]{}, false
	}
	return in.Transforms, true
}

func (d *MemoryDelegate) GetVisible(id PathID) bool {
	if p := d.prim(id); p != nil {
		return p.Visible
	}
	return false
}

func (d *MemoryDelegate) GetDisplayStyle(id PathID) DisplayStyle {
	if p := d.prim(id); p != nil {
		return p.DisplayStyle
	}
	return DisplayStyle{}
}

func (d *MemoryDelegate) GetSubdivTags(id PathID) SubdivTags {
	if p := d.prim(id); p != nil {
		return p.SubdivTags
	}
	return SubdivTags{}
}

func (d *MemoryDelegate) GetMaterialID(id PathID) PathID {
	if p := d.prim(id); p != nil {
		return p.MaterialID
	}
	return ""
}

func (d *MemoryDelegate) GetInstancerID(id PathID) PathID {
	if p := d.prim(id); p != nil {
		return p.InstancerID
	}
	return ""
}

func (d *MemoryDelegate) GetMaterialResource(id PathID) MaterialResource {
	if p := d.prim(id); p != nil {
		return p.Material
	}
	return MaterialResource{}
}

func (d *MemoryDelegate) GetPrimID(id PathID) uint32 {
	if p := d.prim(id); p != nil {
		return p.PrimID
	}
	return 0
}
