package scene

import (
	"io"

	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type sceneDoc struct {
	Prims      []primDoc      `yaml:"prims"`
	Instancers []instancerDoc `yaml:"instancers"`
}

type primvarDoc struct {
	Interpolation string      `yaml:"interpolation"`
	Values        [][]float32 `yaml:"values"`
}

type subsetDoc struct {
	ID       string  `yaml:"id"`
	Material string  `yaml:"material"`
	Faces    []int32 `yaml:"faces"`
}

type transformDoc struct {
	Times  []float32   `yaml:"times"`
	Values [][]float32 `yaml:"values"`
}

type primDoc struct {
	ID                string         `yaml:"id"`
	Type              string         `yaml:"type"`
	PrimID            uint32         `yaml:"primId"`
	Points            [][]float32    `yaml:"points"`
	FaceVertexCounts  []int32        `yaml:"faceVertexCounts"`
	FaceVertexIndices []int32        `yaml:"faceVertexIndices"`
	Orientation       string         `yaml:"orientation"`
	Scheme            string         `yaml:"scheme"`
	Normals           *primvarDoc    `yaml:"normals"`
	ST                *primvarDoc    `yaml:"st"`
	DisplayColor      []float32      `yaml:"displayColor"`
	Subsets           []subsetDoc    `yaml:"subsets"`
	Material          string         `yaml:"material"`
	Instancer         string         `yaml:"instancer"`
	Visible           *bool          `yaml:"visible"`
	RefineLevel       int            `yaml:"refineLevel"`
	FlatShading       bool           `yaml:"flatShading"`
	InterpolationRule string         `yaml:"interpolationRule"`
	Transform         []float32      `yaml:"transform"`
	Transforms        *transformDoc  `yaml:"transforms"`
	Params            map[string]any `yaml:"params"`
	Settings          map[string]any `yaml:"settings"`
}

type instancerDoc struct {
	ID         string        `yaml:"id"`
	Times      []float32     `yaml:"times"`
	Transforms [][][]float32 `yaml:"transforms"`
}

// lightParams are the light parameters a scene file may author. Pointers distinguish unauthored values.
type lightParams struct {
	Color                  []float32 `mapstructure:"color"`
	Intensity              *float32  `mapstructure:"intensity"`
	Exposure               *float32  `mapstructure:"exposure"`
	Normalize              *bool     `mapstructure:"normalize"`
	EnableColorTemperature *bool     `mapstructure:"enableColorTemperature"`
	ColorTemperature       *float32  `mapstructure:"colorTemperature"`
	Radius                 *float32  `mapstructure:"radius"`
	Width                  *float32  `mapstructure:"width"`
	Height                 *float32  `mapstructure:"height"`
	Length                 *float32  `mapstructure:"length"`
	Angle                  *float32  `mapstructure:"angle"`
}

// materialParams are the material parameters a scene file may author.
type materialParams struct {
	DiffuseColor  []float32 `mapstructure:"diffuseColor"`
	EmissiveColor []float32 `mapstructure:"emissiveColor"`
	Texture       string    `mapstructure:"texture"`
	UV            string    `mapstructure:"uv"`
}

// LoadYAML reads a scene description and returns a populated MemoryDelegate.
//
// Parameters:
//   - r: the YAML source
//
// Returns:
//   - *MemoryDelegate: the scene with every prim fully dirty
//   - error: decode or validation errors
func LoadYAML(r io.Reader) (*MemoryDelegate, error) {
	var doc sceneDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode scene")
	}

	d := NewMemoryDelegate()
	for i, pd := range doc.Prims {
		p, err := pd.toPrim()
		if err != nil {
			return nil, errors.Wrapf(err, "prim %d (%s)", i, pd.ID)
		}
		d.AddPrim(p)
	}
	for _, id := range doc.Instancers {
		in := &Instancer{ID: PathID(id.ID)}
		in.Transforms.Times = id.Times
		for _, sample := range id.Transforms {
			xfs := make([]mgl32.Mat4, 0, len(sample))
			for _, m := range sample {
				xfs = append(xfs, toMat4(m))
			}
			in.Transforms.Values = append(in.Transforms.Values, xfs)
		}
		if len(in.Transforms.Times) < in.Transforms.Count() {
			return nil, errors.Errorf("instancer %s: %d times for %d samples", id.ID, len(id.Times), in.Transforms.Count())
		}
		d.AddInstancer(in)
	}
	return d, nil
}

func (pd primDoc) toPrim() (*Prim, error) {
	if pd.ID == "" {
		return nil, errors.New("missing id")
	}
	p := &Prim{
		ID:          PathID(pd.ID),
		Type:        Token(pd.Type),
		PrimID:      pd.PrimID,
		Values:      make(map[Token]Value),
		Primvars:    make(map[Token]Primvar),
		Visible:     pd.Visible == nil || *pd.Visible,
		MaterialID:  PathID(pd.Material),
		InstancerID: PathID(pd.Instancer),
		DisplayStyle: DisplayStyle{
			RefineLevel:        pd.RefineLevel,
			FlatShadingEnabled: pd.FlatShading,
		},
		SubdivTags: SubdivTags{VertexInterpolationRule: Token(pd.InterpolationRule)},
	}

	switch {
	case pd.Transforms != nil:
		p.Transform.Times = pd.Transforms.Times
		for _, m := range pd.Transforms.Values {
			p.Transform.Values = append(p.Transform.Values, toMat4(m))
		}
	case len(pd.Transform) > 0:
		p.Transform = common.Single(toMat4(pd.Transform))
	default:
		p.Transform = common.Single(mgl32.Ident4())
	}

	switch p.Type {
	case PrimTypeMesh:
		return p, pd.fillMesh(p)
	case PrimTypeMaterial:
		var mp materialParams
		if err := mapstructure.WeakDecode(pd.Params, &mp); err != nil {
			return nil, errors.Wrap(err, "material params")
		}
		p.Material = MaterialResource{
			DiffuseColor:   toVec3(mp.DiffuseColor, [3]float32{0.18, 0.18, 0.18}),
			EmissiveColor:  toVec3(mp.EmissiveColor, [3]float32{}),
			Emissive:       len(mp.EmissiveColor) > 0,
			DiffuseTexture: mp.Texture,
			UVPrimvar:      Token(mp.UV),
		}
		return p, nil
	case PrimTypeDiskLight, PrimTypeRectLight, PrimTypeSphereLight, PrimTypeCylinderLight, PrimTypeDistantLight:
		var lp lightParams
		if err := mapstructure.WeakDecode(pd.Params, &lp); err != nil {
			return nil, errors.Wrap(err, "light params")
		}
		lp.apply(p.Values)
		return p, nil
	}
	return nil, errors.Errorf("unsupported prim type %q", pd.Type)
}

func (pd primDoc) fillMesh(p *Prim) error {
	points := make([]mgl32.Vec3, 0, len(pd.Points))
	for _, v := range pd.Points {
		points = append(points, mgl32.Vec3(toVec3(v, [3]float32{})))
	}
	p.Primvars[TokenPoints] = Primvar{Interpolation: InterpolationVertex, Value: points}

	p.Topology = Topology{
		Scheme:            Token(common.Coalesce(pd.Scheme, string(TokenNone))),
		Orientation:       Token(common.Coalesce(pd.Orientation, string(TokenRightHanded))),
		FaceVertexCounts:  pd.FaceVertexCounts,
		FaceVertexIndices: pd.FaceVertexIndices,
	}
	for _, s := range pd.Subsets {
		p.Topology.GeomSubsets = append(p.Topology.GeomSubsets, GeomSubset{
			Type:       GeomSubsetFaceSet,
			ID:         PathID(s.ID),
			MaterialID: PathID(s.Material),
			Indices:    s.Faces,
		})
	}
	if err := p.Topology.Validate(); err != nil {
		return err
	}

	if pd.Normals != nil {
		normals := make([]mgl32.Vec3, 0, len(pd.Normals.Values))
		for _, v := range pd.Normals.Values {
			normals = append(normals, mgl32.Vec3(toVec3(v, [3]float32{})))
		}
		p.Primvars[TokenNormals] = Primvar{Interpolation: parseInterpolation(pd.Normals.Interpolation), Value: normals}
	}
	if pd.ST != nil {
		uvs := make([]mgl32.Vec2, 0, len(pd.ST.Values))
		for _, v := range pd.ST.Values {
			var uv mgl32.Vec2
			copy(uv[:], v)
			uvs = append(uvs, uv)
		}
		p.Primvars[TokenST] = Primvar{Interpolation: parseInterpolation(pd.ST.Interpolation), Value: uvs}
	}
	if len(pd.DisplayColor) > 0 {
		p.Primvars[TokenDisplayColor] = Primvar{
			Interpolation: InterpolationConstant,
			Value:         []mgl32.Vec3{mgl32.Vec3(toVec3(pd.DisplayColor, [3]float32{}))},
		}
	}
	for name, v := range pd.Settings {
		p.Primvars[Token(name)] = Primvar{Interpolation: InterpolationConstant, Value: v}
	}
	return nil
}

func (lp lightParams) apply(values map[Token]Value) {
	if len(lp.Color) > 0 {
		values[TokenColor] = mgl32.Vec3(toVec3(lp.Color, [3]float32{1, 1, 1}))
	}
	setIf(values, TokenIntensity, lp.Intensity)
	setIf(values, TokenExposure, lp.Exposure)
	setIf(values, TokenNormalize, lp.Normalize)
	setIf(values, TokenEnableColorTemperature, lp.EnableColorTemperature)
	setIf(values, TokenColorTemperature, lp.ColorTemperature)
	setIf(values, TokenRadius, lp.Radius)
	setIf(values, TokenWidth, lp.Width)
	setIf(values, TokenHeight, lp.Height)
	setIf(values, TokenLength, lp.Length)
	setIf(values, TokenAngle, lp.Angle)
}

func setIf[T any](values map[Token]Value, key Token, v *T) {
	if v != nil {
		values[key] = *v
	}
}

func parseInterpolation(s string) Interpolation {
	switch s {
	case "constant":
		return InterpolationConstant
	case "uniform":
		return InterpolationUniform
	case "varying":
		return InterpolationVarying
	case "faceVarying":
		return InterpolationFaceVarying
	}
	return InterpolationVertex
}

func toVec3(v []float32, fallback [3]float32) [3]float32 {
	if len(v) < 3 {
		return fallback
	}
	return [3]float32{v[0], v[1], v[2]}
}

// toMat4 reads 16 floats in column-major order; anything shorter yields the identity.
func toMat4(v []float32) mgl32.Mat4 {
	if len(v) < 16 {
		return mgl32.Ident4()
	}
	var m mgl32.Mat4
	copy(m[:], v)
	return m
}
