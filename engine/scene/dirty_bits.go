package scene

// DirtyBits flags which cached fields of a prim no longer match the authored scene.
type DirtyBits uint32

// Rprim dirty bits.
const (
	Clean                       DirtyBits = 0
	InitRepr                    DirtyBits = 1 << 0
	Varying                     DirtyBits = 1 << 1
	DirtyPrimID                 DirtyBits = 1 << 2
	DirtyExtent                 DirtyBits = 1 << 3
	DirtyDisplayStyle           DirtyBits = 1 << 4
	DirtyPoints                 DirtyBits = 1 << 5
	DirtyPrimvar                DirtyBits = 1 << 6
	DirtyMaterialID             DirtyBits = 1 << 7
	DirtyTopology               DirtyBits = 1 << 8
	DirtyTransform              DirtyBits = 1 << 9
	DirtyVisibility             DirtyBits = 1 << 10
	DirtyNormals                DirtyBits = 1 << 11
	DirtyDoubleSided            DirtyBits = 1 << 12
	DirtyCullStyle              DirtyBits = 1 << 13
	DirtySubdivTags             DirtyBits = 1 << 14
	DirtyWidths                 DirtyBits = 1 << 15
	DirtyInstancer              DirtyBits = 1 << 16
	DirtyInstanceIndex          DirtyBits = 1 << 17
	DirtyRepr                   DirtyBits = 1 << 18
	DirtyRenderTag              DirtyBits = 1 << 19
	DirtyComputationPrimvarDesc DirtyBits = 1 << 20
	DirtyCategories             DirtyBits = 1 << 21

	AllSceneDirtyBits DirtyBits = 1<<22 - 1

	// CustomBitsBegin is the first bit prims may use for private bookkeeping.
	CustomBitsBegin DirtyBits = 1 << 24
)

// Sprim dirty bits for lights and materials.
const (
	LightDirtyTransform    DirtyBits = 1 << 0
	LightDirtyParams       DirtyBits = 1 << 1
	LightDirtyShadowParams DirtyBits = 1 << 2
	LightDirtyCollection   DirtyBits = 1 << 3
	LightAllDirty          DirtyBits = LightDirtyTransform | LightDirtyParams | LightDirtyShadowParams | LightDirtyCollection

	MaterialDirtyResource DirtyBits = 1 << 0
	MaterialDirtyParams   DirtyBits = 1 << 1
	MaterialAllDirty      DirtyBits = MaterialDirtyResource | MaterialDirtyParams
)

// Has reports whether any of the bits in mask are set.
func (b DirtyBits) Has(mask DirtyBits) bool {
	return b&mask != 0
}

// PrimvarDirty reports whether the named primvar is dirty. Points, normals and widths
// have dedicated bits, every other primvar is tracked by DirtyPrimvar.
//
// Parameters:
//   - name: the primvar name
//
// Returns:
//   - bool: true if the primvar needs to be pulled again
func (b DirtyBits) PrimvarDirty(name Token) bool {
	switch name {
	case TokenPoints:
		return b.Has(DirtyPoints)
	case TokenNormals:
		return b.Has(DirtyNormals)
	case TokenWidths:
		return b.Has(DirtyWidths)
	}
	return b.Has(DirtyPrimvar)
}

// TopologyDirty reports whether the topology needs to be pulled again.
func (b DirtyBits) TopologyDirty() bool {
	return b.Has(DirtyTopology)
}
