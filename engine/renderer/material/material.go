package material

import (
	"sync"

	"github.com/Carmen-Shannon/hdrpr/engine/image"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// DefaultDiffuseColor is the grey used when nothing else is authored.
var DefaultDiffuseColor = mgl32.Vec3{0.18, 0.18, 0.18}

// material is the implementation of the Material interface.
type material struct {
	mu *sync.Mutex

	name           string
	baseColor      mgl32.Vec3
	emissiveColor  mgl32.Vec3
	emissive       bool
	diffuseTexture *image.Image
	uvPrimvar      scene.Token

	nodes  []renderer.MaterialNode
	output renderer.MaterialNode
	log    *zap.Logger
}

// Material is a renderer node graph that can be bound to shapes.
//
// A material is either emissive, with a single emissive node, or diffuse, with a diffuse node whose color
// comes from a constant or from an image texture node.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the diffuse color.
	//
	// Returns:
	//   - mgl32.Vec3: the diffuse color
	BaseColor() mgl32.Vec3

	// Emissive reports whether the material emits light.
	//
	// Returns:
	//   - bool: true for emissive materials
	Emissive() bool

	// Node retrieves the output node shapes bind to.
	//
	// Returns:
	//   - renderer.MaterialNode: the output node, nil after Release
	Node() renderer.MaterialNode

	// UVPrimvarName retrieves the primvar the texture lookup reads uvs from.
	//
	// Returns:
	//   - scene.Token: the uv primvar name
	UVPrimvarName() scene.Token

	// SetEmissiveColor updates the emission of an emissive material in place.
	//
	// Parameters:
	//   - color: the new emission
	//
	// Returns:
	//   - bool: false if the material is not emissive or the renderer call failed
	SetEmissiveColor(color mgl32.Vec3) bool

	// AttachTo binds the material to shape.
	//
	// Parameters:
	//   - shape: the shape to bind
	//
	// Returns:
	//   - bool: true on success
	AttachTo(shape renderer.Shape) bool

	// DetachFrom unbinds any material from shape.
	//
	// Parameters:
	//   - shape: the shape to unbind
	DetachFrom(shape renderer.Shape)

	// Release deletes the node graph and drops the texture reference.
	// Must be called while the render thread is stopped.
	Release()
}

var _ Material = &material{}

// NewMaterial creates the renderer node graph described by options.
//
// Parameters:
//   - ctx: the renderer context nodes are created in
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: the new material
//   - error: the renderer failure when a node could not be created
func NewMaterial(ctx renderer.Context, options ...MaterialBuilderOption) (Material, error) {
	m := &material{
		mu:        &sync.Mutex{},
		baseColor: DefaultDiffuseColor,
		uvPrimvar: scene.TokenST,
		log:       zap.NewNop(),
	}
	for _, opt := range options {
		opt(m)
	}

	if err := m.build(ctx); err != nil {
		m.Release()
		return nil, err
	}
	return m, nil
}

// NewEmissive creates an emissive material.
//
// Parameters:
//   - ctx: the renderer context
//   - color: the emission
//   - options: additional options
//
// Returns:
//   - Material: the new material
//   - error: the renderer failure
func NewEmissive(ctx renderer.Context, color mgl32.Vec3, options ...MaterialBuilderOption) (Material, error) {
	return NewMaterial(ctx, append([]MaterialBuilderOption{WithEmissiveColor(color)}, options...)...)
}

// NewDiffuse creates an untextured diffuse material.
//
// Parameters:
//   - ctx: the renderer context
//   - color: the diffuse color
//   - options: additional options
//
// Returns:
//   - Material: the new material
//   - error: the renderer failure
func NewDiffuse(ctx renderer.Context, color mgl32.Vec3, options ...MaterialBuilderOption) (Material, error) {
	return NewMaterial(ctx, append([]MaterialBuilderOption{WithBaseColor(color)}, options...)...)
}

func (m *material) createNode(ctx renderer.Context, t renderer.MaterialNodeType) (renderer.MaterialNode, error) {
	node, status := ctx.CreateMaterialNode(t)
	if err := renderer.Check(status, "create "+t.String()+" node"); err != nil {
		return nil, err
	}
	m.nodes = append(m.nodes, node)
	return node, nil
}

func (m *material) build(ctx renderer.Context) error {
	if m.emissive {
		node, err := m.createNode(ctx, renderer.NodeEmissive)
		if err != nil {
			return err
		}
		m.output = node
		return renderer.Check(node.SetInputColor(renderer.InputColor, m.emissiveColor.Vec4(1)), "set emission")
	}

	diffuse, err := m.createNode(ctx, renderer.NodeDiffuse)
	if err != nil {
		return err
	}
	m.output = diffuse

	if m.diffuseTexture == nil {
		return renderer.Check(diffuse.SetInputColor(renderer.InputColor, m.baseColor.Vec4(1)), "set diffuse color")
	}

	tex, err := m.createNode(ctx, renderer.NodeImageTexture)
	if err != nil {
		return err
	}
	if err := renderer.Check(tex.SetInputImage(renderer.InputData, m.diffuseTexture.Image), "set texture image"); err != nil {
		return err
	}
	return renderer.Check(diffuse.SetInputNode(renderer.InputColor, tex), "connect texture")
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() mgl32.Vec3 {
	return m.baseColor
}

func (m *material) Emissive() bool {
	return m.emissive
}

func (m *material) Node() renderer.MaterialNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.output
}

func (m *material) UVPrimvarName() scene.Token {
	return m.uvPrimvar
}

func (m *material) SetEmissiveColor(color mgl32.Vec3) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.emissive || m.output == nil {
		return false
	}
	if renderer.ErrorCheck(m.log, m.output.SetInputColor(renderer.InputColor, color.Vec4(1)), "failed to set emission") {
		return false
	}
	m.emissiveColor = color
	return true
}

func (m *material) AttachTo(shape renderer.Shape) bool {
	node := m.Node()
	if node == nil || shape == nil {
		return false
	}
	return !renderer.ErrorCheck(m.log, shape.SetMaterial(node), "failed to attach material", zap.String("material", m.name))
}

func (m *material) DetachFrom(shape renderer.Shape) {
	if shape == nil {
		return
	}
	renderer.ErrorCheck(m.log, shape.SetMaterial(nil), "failed to detach material", zap.String("material", m.name))
}

func (m *material) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, node := range m.nodes {
		renderer.ErrorCheck(m.log, node.Delete(), "failed to delete material node", zap.String("material", m.name))
	}
	m.nodes = nil
	m.output = nil
	m.diffuseTexture = nil
}
