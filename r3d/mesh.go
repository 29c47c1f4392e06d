package r3d

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/model_viewer/utils"
)

// Mesh is an indexed triangle list. Normals and UVs are either empty or
// have the same length as Positions.
type Mesh struct {
	Name      string
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
	Material  *Material
}

func (m *Mesh) TrianglesCount() int {
	return len(m.Indices) / 3
}

// LocalBounds returns bbox of vertices referenced in mesh space
func (m *Mesh) LocalBounds() BBox {
	box := EmptyBBox()
	for _, p := range m.Positions {
		box.ExpandToPoint(p)
	}
	return box
}

type Texture struct {
	// path relative to the asset base
	Path  string
	Image image.Image
}

func (t *Texture) Loaded() bool {
	return t != nil && t.Image != nil
}

type TextureOptions struct {
	Scale  mgl32.Vec2
	Offset mgl32.Vec2
}

type Material struct {
	Name      string
	Ambient   utils.ColorFloat
	Diffuse   utils.ColorFloat
	Specular  utils.ColorFloat
	Emissive  utils.ColorFloat
	Shininess float32
	Opacity   float32
	Illum     int

	DiffuseMap  *Texture
	AmbientMap  *Texture
	SpecularMap *Texture
	AlphaMap    *Texture
	BumpMap     *Texture

	DiffuseMapOptions TextureOptions
}

// Light gray material used when an object references an unknown material
func DefaultMaterial() *Material {
	return &Material{
		Name:      "default",
		Ambient:   utils.ColorFloat{0.63, 0.63, 0.63, 1},
		Diffuse:   utils.ColorFloat{0.63, 0.63, 0.63, 1},
		Specular:  utils.ColorFloat{0.5, 0.5, 0.5, 1},
		Shininess: 30,
		Opacity:   1,
		DiffuseMapOptions: TextureOptions{
			Scale: mgl32.Vec2{1, 1},
		},
	}
}

// Textures returns every non nil texture slot of material
func (m *Material) Textures() []*Texture {
	result := make([]*Texture, 0, 5)
	for _, t := range []*Texture{m.DiffuseMap, m.AmbientMap, m.SpecularMap, m.AlphaMap, m.BumpMap} {
		if t != nil {
			result = append(result, t)
		}
	}
	return result
}
