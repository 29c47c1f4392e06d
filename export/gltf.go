// Package export writes loaded models as binary glTF
package export

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/model_viewer/r3d"
)

type exporter struct {
	doc       *gltf.Document
	materials map[*r3d.Material]uint32
	textures  map[*r3d.Texture]uint32
	sampler   *uint32
}

// Document converts the hierarchy under root, local transforms are kept per node
func Document(root *r3d.Node) (*gltf.Document, error) {
	e := &exporter{
		doc:       gltf.NewDocument(),
		materials: make(map[*r3d.Material]uint32),
		textures:  make(map[*r3d.Texture]uint32),
	}
	idx, err := e.node(root)
	if err != nil {
		return nil, err
	}
	e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, idx)
	return e.doc, nil
}

func WriteGLB(w io.Writer, root *r3d.Node) error {
	doc, err := Document(root)
	if err != nil {
		return errors.Wrapf(err, "Failed to convert %q", root.Name)
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return errors.Wrapf(encoder.Encode(doc), "Failed to encode glb")
}

func (e *exporter) node(n *r3d.Node) (uint32, error) {
	gn := &gltf.Node{
		Name:        n.Name,
		Translation: [3]float32(n.Position),
		Rotation:    [4]float32{n.Rotation.V[0], n.Rotation.V[1], n.Rotation.V[2], n.Rotation.W},
		Scale:       [3]float32(n.Scale),
	}
	// nodes built without NewNode
	if gn.Rotation == ([4]float32{}) {
		gn.Rotation = [4]float32{0, 0, 0, 1}
	}
	if gn.Scale == ([3]float32{}) {
		gn.Scale = [3]float32{1, 1, 1}
	}
	if n.Mesh != nil {
		mi, err := e.mesh(n.Mesh)
		if err != nil {
			return 0, errors.Wrapf(err, "mesh %q", n.Mesh.Name)
		}
		gn.Mesh = gltf.Index(mi)
	}
	idx := uint32(len(e.doc.Nodes))
	e.doc.Nodes = append(e.doc.Nodes, gn)

	for _, c := range n.Childs {
		ci, err := e.node(c)
		if err != nil {
			return 0, err
		}
		gn.Children = append(gn.Children, ci)
	}
	return idx, nil
}

func (e *exporter) mesh(m *r3d.Mesh) (uint32, error) {
	if len(m.Positions) == 0 || len(m.Indices) == 0 {
		return 0, errors.Errorf("empty mesh")
	}
	positions := make([][3]float32, len(m.Positions))
	for i, p := range m.Positions {
		positions[i] = p
	}
	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(e.doc, positions),
	}
	if len(m.Normals) == len(m.Positions) {
		normals := make([][3]float32, len(m.Normals))
		for i, n := range m.Normals {
			if n.Len() > 0.5 {
				n = n.Normalize()
			}
			normals[i] = n
		}
		attributes["NORMAL"] = modeler.WriteNormal(e.doc, normals)
	}
	if len(m.UVs) == len(m.Positions) {
		uvs := make([][2]float32, len(m.UVs))
		for i, uv := range m.UVs {
			// obj v axis points up, gltf down
			uvs[i] = [2]float32{uv[0], 1 - uv[1]}
		}
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(e.doc, uvs)
	}
	indices := modeler.WriteIndices(e.doc, append([]uint32(nil), m.Indices...))

	prim := &gltf.Primitive{
		Indices:    gltf.Index(indices),
		Attributes: attributes,
	}
	if m.Material != nil {
		mi, err := e.material(m.Material)
		if err != nil {
			return 0, err
		}
		prim.Material = gltf.Index(mi)
	}

	e.doc.Meshes = append(e.doc.Meshes, &gltf.Mesh{
		Name:       m.Name,
		Primitives: []*gltf.Primitive{prim},
	})
	return uint32(len(e.doc.Meshes) - 1), nil
}

func (e *exporter) material(m *r3d.Material) (uint32, error) {
	if idx, ok := e.materials[m]; ok {
		return idx, nil
	}
	baseColor := [4]float32{m.Diffuse[0], m.Diffuse[1], m.Diffuse[2], m.Opacity}
	metallic := float32(0)
	roughness := float32(1)
	if m.Shininess > 0 {
		// phong exponent 0..1000 mapped to roughness
		roughness = 1 - m.Shininess/1000
		if roughness < 0.05 {
			roughness = 0.05
		}
	}
	gm := &gltf.Material{
		Name:        m.Name,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &baseColor,
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
	}
	if m.Opacity < 1 {
		gm.AlphaMode = gltf.AlphaBlend
	}
	if m.Emissive != ([4]float32{}) {
		gm.EmissiveFactor = [3]float32{m.Emissive[0], m.Emissive[1], m.Emissive[2]}
	}
	if m.DiffuseMap.Loaded() {
		ti, err := e.texture(m.DiffuseMap)
		if err != nil {
			return 0, errors.Wrapf(err, "material %q", m.Name)
		}
		gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: ti}
	}

	idx := uint32(len(e.doc.Materials))
	e.doc.Materials = append(e.doc.Materials, gm)
	e.materials[m] = idx
	return idx, nil
}

func (e *exporter) texture(t *r3d.Texture) (uint32, error) {
	if idx, ok := e.textures[t]; ok {
		return idx, nil
	}
	if e.sampler == nil {
		e.sampler = gltf.Index(uint32(len(e.doc.Samplers)))
		e.doc.Samplers = append(e.doc.Samplers, &gltf.Sampler{
			MagFilter: gltf.MagLinear,
			MinFilter: gltf.MinLinearMipMapLinear,
			WrapS:     gltf.WrapRepeat,
			WrapT:     gltf.WrapRepeat,
		})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, t.Image); err != nil {
		return 0, errors.Wrapf(err, "Failed to encode texture %q", t.Path)
	}
	imageIndex, err := modeler.WriteImage(e.doc, fmt.Sprintf("%s_image", t.Path), "image/png", &buf)
	if err != nil {
		return 0, errors.Wrapf(err, "Failed to write gltf image")
	}

	idx := uint32(len(e.doc.Textures))
	e.doc.Textures = append(e.doc.Textures, &gltf.Texture{
		Name:    t.Path,
		Sampler: e.sampler,
		Source:  gltf.Index(imageIndex),
	})
	e.textures[t] = idx
	return idx, nil
}
