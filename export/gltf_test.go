package export

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/model_viewer/r3d"
)

func texturedRoot() *r3d.Node {
	tex := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	tex.Set(0, 0, color.NRGBA{R: 255, A: 255})

	mat := r3d.DefaultMaterial()
	mat.Name = "skin"
	mat.DiffuseMap = &r3d.Texture{Path: "skin.png", Image: tex}

	quad := func(name string) *r3d.Mesh {
		return &r3d.Mesh{
			Name:      name,
			Positions: []mgl32.Vec3{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}},
			Normals:   []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
			UVs:       []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
			Indices:   []uint32{0, 1, 2, 0, 2, 3},
			Material:  mat,
		}
	}

	root := r3d.NewNode("model")
	root.Position = mgl32.Vec3{-5, 0, 0}
	root.Add(r3d.NewMeshNode("front", quad("front")))
	back := r3d.NewMeshNode("back", quad("back"))
	back.Position = mgl32.Vec3{0, 0, -2}
	root.Add(back)
	return root
}

func TestWriteGLB(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGLB(&buf, texturedRoot()))
	require.Greater(t, buf.Len(), 12)
	assert.Equal(t, "glTF", string(buf.Bytes()[:4]))

	var doc gltf.Document
	require.NoError(t, gltf.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(&doc))

	assert.Len(t, doc.Nodes, 3)
	assert.Len(t, doc.Meshes, 2)
	// shared material and texture are written once
	assert.Len(t, doc.Materials, 1)
	assert.Len(t, doc.Textures, 1)
	assert.Len(t, doc.Images, 1)
	require.Len(t, doc.Scenes, 1)
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)

	assert.Equal(t, "model", doc.Nodes[0].Name)
	assert.Equal(t, []uint32{1, 2}, doc.Nodes[0].Children)
	assert.Equal(t, [3]float32{-5, 0, 0}, doc.Nodes[0].Translation)

	prim := doc.Meshes[0].Primitives[0]
	require.NotNil(t, prim.Indices)
	assert.Equal(t, uint32(6), doc.Accessors[*prim.Indices].Count)
	assert.Equal(t, uint32(4), doc.Accessors[prim.Attributes["POSITION"]].Count)
	assert.Contains(t, prim.Attributes, "NORMAL")
	assert.Contains(t, prim.Attributes, "TEXCOORD_0")

	mat := doc.Materials[0]
	assert.Equal(t, "skin", mat.Name)
	assert.True(t, mat.DoubleSided)
	require.NotNil(t, mat.PBRMetallicRoughness.BaseColorTexture)
}

func TestDocumentEmptyMesh(t *testing.T) {
	root := r3d.NewNode("model")
	root.Add(r3d.NewMeshNode("empty", &r3d.Mesh{Name: "empty"}))
	_, err := Document(root)
	assert.Error(t, err)
}

func TestDocumentNodeDefaults(t *testing.T) {
	doc, err := Document(&r3d.Node{Name: "bare"})
	require.NoError(t, err)
	assert.Equal(t, [3]float32{1, 1, 1}, doc.Nodes[0].Scale)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, doc.Nodes[0].Rotation)
}
