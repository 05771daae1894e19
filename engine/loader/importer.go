// Package loader imports glTF 2.0 assets (.gltf and .glb) as scene prims.
// Triangle primitives become mesh prims and glTF materials become material prims.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Importer converts glTF documents into prims of a scene.MemoryDelegate.
// An Importer is not safe for concurrent use.
type Importer struct {
	root       scene.PathID
	nextPrimID uint32
	log        *zap.Logger
}

// importState holds the per-document bookkeeping of one import.
type importState struct {
	parser    *gltfParser
	dst       *scene.MemoryDelegate
	materials []scene.PathID
	used      map[scene.PathID]int
	visited   []bool
	meshes    int
}

// NewImporter creates an Importer with the given options applied.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - *Importer: the importer, placing prims under the scene root by default
func NewImporter(options ...ImporterBuilderOption) *Importer {
	im := &Importer{
		nextPrimID: 1,
		log:        zap.NewNop(),
	}
	for _, opt := range options {
		opt(im)
	}
	im.log = im.log.Named("gltf")
	return im
}

// Load parses the glTF or GLB file at path into a new MemoryDelegate.
//
// Parameters:
//   - path: the asset file
//
// Returns:
//   - *scene.MemoryDelegate: the delegate holding every imported prim
//   - error: error if the file cannot be read or decoded
func (im *Importer) Load(path string) (*scene.MemoryDelegate, error) {
	d := scene.NewMemoryDelegate()
	if err := im.LoadInto(d, path); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadInto parses the file at path and adds its prims to d. Prims already in d keep their ids;
// imported ids that would collide are suffixed.
//
// Parameters:
//   - d: the destination delegate
//   - path: the asset file
//
// Returns:
//   - error: error if the file cannot be read or decoded. Prims added before the failure stay in d.
func (im *Importer) LoadInto(d *scene.MemoryDelegate, path string) error {
	p := &gltfParser{}
	if err := p.parseFile(path); err != nil {
		return errors.Wrapf(err, "import %s", path)
	}
	st := &importState{
		parser:  p,
		dst:     d,
		used:    make(map[scene.PathID]int),
		visited: make([]bool, len(p.document.Nodes)),
	}
	for _, id := range d.Prims("") {
		st.used[id] = 1
	}

	im.importMaterials(st)
	for _, n := range rootNodes(p.document) {
		if err := im.importNode(st, n, im.root, mgl32.Ident4()); err != nil {
			return errors.Wrapf(err, "import %s", path)
		}
	}
	im.log.Debug("imported glTF asset",
		zap.String("path", path),
		zap.Int("meshes", st.meshes),
		zap.Int("materials", len(st.materials)),
	)
	return nil
}

func (im *Importer) importMaterials(st *importState) {
	doc := st.parser.document
	st.materials = make([]scene.PathID, len(doc.Materials))
	for i, m := range doc.Materials {
		id := st.claim(im.root + "/materials/" + scene.PathID(primName(m.Name, "material", i)))
		res := scene.MaterialResource{DiffuseColor: [3]float32{1, 1, 1}, UVPrimvar: scene.TokenST}
		if pbr := m.PbrMetallicRoughness; pbr != nil {
			if f := pbr.BaseColorFactor; f != nil {
				res.DiffuseColor = [3]float32{f[0], f[1], f[2]}
			}
			if pbr.BaseColorTexture != nil {
				res.DiffuseTexture = st.texturePath(pbr.BaseColorTexture.Index)
				if res.DiffuseTexture == "" {
					im.log.Debug("skipping embedded base color texture", zap.String("material", string(id)))
				}
			}
		}
		if f := m.EmissiveFactor; f != nil && *f != [3]float32{} {
			res.EmissiveColor = *f
			res.Emissive = true
		}
		st.materials[i] = id
		st.dst.AddPrim(&scene.Prim{ID: id, Type: scene.PrimTypeMaterial, Material: res})
	}
}

// texturePath resolves a texture index to an image file on disk. Embedded images resolve to "".
func (st *importState) texturePath(texture int) string {
	doc := st.parser.document
	if texture < 0 || texture >= len(doc.Textures) || doc.Textures[texture].Source == nil {
		return ""
	}
	src := *doc.Textures[texture].Source
	if src < 0 || src >= len(doc.Images) {
		return ""
	}
	uri := doc.Images[src].URI
	if uri == "" || strings.HasPrefix(uri, "data:") {
		return ""
	}
	return filepath.Join(st.parser.baseDir, filepath.FromSlash(uri))
}

func (im *Importer) importNode(st *importState, index int, parent scene.PathID, parentXform mgl32.Mat4) error {
	doc := st.parser.document
	if index < 0 || index >= len(doc.Nodes) {
		return errors.Errorf("node %d out of range", index)
	}
	if st.visited[index] {
		return errors.Errorf("node %d is reachable twice", index)
	}
	st.visited[index] = true

	node := doc.Nodes[index]
	path := st.claim(parent + "/" + scene.PathID(primName(node.Name, "node", index)))
	world := parentXform.Mul4(nodeTransform(node))

	if node.Mesh != nil {
		if *node.Mesh < 0 || *node.Mesh >= len(doc.Meshes) {
			return errors.Errorf("node %d: mesh %d out of range", index, *node.Mesh)
		}
		mesh := doc.Meshes[*node.Mesh]
		for i, prim := range mesh.Primitives {
			if prim.Mode != nil && *prim.Mode != gltfModeTriangles {
				im.log.Warn("skipping non-triangle primitive",
					zap.String("node", string(path)),
					zap.Int("primitive", i),
					zap.Int("mode", *prim.Mode),
				)
				continue
			}
			id := path
			if len(mesh.Primitives) > 1 {
				id = st.claim(path + scene.PathID(fmt.Sprintf("/primitive_%d", i)))
			}
			p, err := im.meshPrim(st, id, prim, world)
			if err != nil {
				return errors.Wrapf(err, "%s primitive %d", path, i)
			}
			st.dst.AddPrim(p)
			st.meshes++
		}
	}

	for _, child := range node.Children {
		if err := im.importNode(st, child, path, world); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) meshPrim(st *importState, id scene.PathID, prim gltfPrimitive, world mgl32.Mat4) (*scene.Prim, error) {
	position, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, errors.New("missing POSITION attribute")
	}
	flat, err := st.parser.readFloats(position, "VEC3", 3)
	if err != nil {
		return nil, err
	}
	points := toVec3s(flat)

	var indices []int32
	if prim.Indices != nil {
		if indices, err = st.parser.readIndices(*prim.Indices); err != nil {
			return nil, err
		}
	} else {
		indices = common.Sequence(len(points))
	}
	if len(indices)%3 != 0 {
		return nil, errors.Errorf("%d indices do not form triangles", len(indices))
	}
	counts := make([]int32, len(indices)/3)
	for i := range counts {
		counts[i] = 3
	}

	p := &scene.Prim{
		ID:       id,
		Type:     scene.PrimTypeMesh,
		PrimID:   im.nextPrimID,
		Values:   make(map[scene.Token]scene.Value),
		Primvars: map[scene.Token]scene.Primvar{scene.TokenPoints: {Interpolation: scene.InterpolationVertex, Value: points}},
		Topology: scene.Topology{
			Scheme:            scene.TokenNone,
			Orientation:       scene.TokenRightHanded,
			FaceVertexCounts:  counts,
			FaceVertexIndices: indices,
		},
		Transform: common.Single(world),
		Visible:   true,
	}
	im.nextPrimID++

	if normal, ok := prim.Attributes["NORMAL"]; ok {
		flat, err := st.parser.readFloats(normal, "VEC3", 3)
		if err != nil {
			return nil, err
		}
		p.Primvars[scene.TokenNormals] = scene.Primvar{Interpolation: scene.InterpolationVertex, Value: toVec3s(flat)}
	}
	if uv, ok := prim.Attributes["TEXCOORD_0"]; ok {
		flat, err := st.parser.readFloats(uv, "VEC2", 2)
		if err != nil {
			return nil, err
		}
		// glTF puts the texture origin at the top left.
		uvs := make([]mgl32.Vec2, len(flat)/2)
		for i := range uvs {
			uvs[i] = mgl32.Vec2{flat[2*i], 1 - flat[2*i+1]}
		}
		p.Primvars[scene.TokenST] = scene.Primvar{Interpolation: scene.InterpolationVertex, Value: uvs}
	}
	if prim.Material != nil && *prim.Material >= 0 && *prim.Material < len(st.materials) {
		p.MaterialID = st.materials[*prim.Material]
	}
	return p, nil
}

// claim returns id, suffixed when it is already taken, and reserves it.
func (st *importState) claim(id scene.PathID) scene.PathID {
	n := st.used[id]
	st.used[id] = n + 1
	if n == 0 {
		return id
	}
	for {
		candidate := scene.PathID(fmt.Sprintf("%s_%d", id, n))
		if st.used[candidate] == 0 {
			st.used[candidate] = 1
			return candidate
		}
		n++
	}
}

// rootNodes returns the nodes of the default scene, or every parentless node when the asset has no scenes.
func rootNodes(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			s = *doc.Scene
		}
		return doc.Scenes[s].Nodes
	}
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i, isChild := range child {
		if !isChild {
			roots = append(roots, i)
		}
	}
	return roots
}

func nodeTransform(n gltfNode) mgl32.Mat4 {
	if n.Matrix != nil {
		return mgl32.Mat4(*n.Matrix)
	}
	m := mgl32.Ident4()
	if t := n.Translation; t != nil {
		m = mgl32.Translate3D(t[0], t[1], t[2])
	}
	if r := n.Rotation; r != nil {
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
		m = m.Mul4(q.Normalize().Mat4())
	}
	if s := n.Scale; s != nil {
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}

// primName turns a glTF name into a valid path element, falling back to kind_index.
func primName(name, kind string, index int) string {
	name = strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, name)
	if strings.Trim(name, "_") == "" {
		return fmt.Sprintf("%s_%d", kind, index)
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "_" + name
	}
	return name
}

func toVec3s(flat []float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(flat)/3)
	for i := range out {
		out[i] = mgl32.Vec3{flat[3*i], flat[3*i+1], flat[3*i+2]}
	}
	return out
}
