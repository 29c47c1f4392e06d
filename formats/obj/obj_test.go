package obj

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/model_viewer/r3d"
)

type materialMap map[string]*r3d.Material

func (m materialMap) Get(name string) *r3d.Material { return m[name] }

const cube = `# cube_0
mtllib cube_0.mtl
o cube
v -1 -1 -1
v 1 -1 -1
v 1 1 -1
v -1 1 -1
v -1 -1 1
v 1 -1 1
v 1 1 1
v -1 1 1
vt 0 0
vt 1 0
vt 1 1
vn 0 0 -1
usemtl red
f 1/1/1 2/2/1 3/3/1 4/3/1
usemtl blue
f 5 6 7
f -4 -2 -1
`

func TestDecodeCube(t *testing.T) {
	red := &r3d.Material{Name: "red"}
	blue := &r3d.Material{Name: "blue"}

	res, err := Decode(strings.NewReader(cube), "cube_0", materialMap{"red": red, "blue": blue})
	require.NoError(t, err)

	assert.Equal(t, []string{"cube_0.mtl"}, res.MaterialLibs)
	assert.Empty(t, res.Warnings)

	root := res.Root
	assert.Equal(t, "cube_0", root.Name)
	require.Len(t, root.Childs, 1)
	group := root.Childs[0]
	assert.Equal(t, "cube", group.Name)
	require.Len(t, group.Childs, 2)

	quad := group.Childs[0].Mesh
	assert.Equal(t, "cube_0", quad.Name)
	assert.Same(t, red, quad.Material)
	assert.Len(t, quad.Positions, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, quad.Indices)
	assert.Len(t, quad.UVs, 4)
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, quad.Normals[3])

	tris := group.Childs[1].Mesh
	assert.Same(t, blue, tris.Material)
	assert.Equal(t, 2, tris.TrianglesCount())
	assert.Nil(t, tris.UVs)
	// computed face normal of 5 6 7 (z = 1 plane, counter clockwise)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, tris.Normals[0])
	// -4 -2 -1 resolves to 5 7 8
	assert.Equal(t, mgl32.Vec3{-1, 1, 1}, tris.Positions[5])

	root.UpdateMatrixWorld()
	box := r3d.ComputeBounds(root)
	assert.Equal(t, mgl32.Vec3{-1, -1, -1}, box.Min)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, box.Max)
}

func TestDecodeAnonymousObjectsGetNames(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\ng\nf 1 2 3\n"

	res, err := Decode(strings.NewReader(src), "anon", nil)
	require.NoError(t, err)

	require.Len(t, res.Root.Childs, 2)
	first, second := res.Root.Childs[0].Name, res.Root.Childs[1].Name
	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "default", res.Root.Childs[0].Childs[0].Mesh.Material.Name)
}

func TestDecodeMissingMaterialUsesDefault(t *testing.T) {
	src := "o a\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl nope\nf 1 2 3\nf 3 2 1\n"

	res, err := Decode(strings.NewReader(src), "m", materialMap{})
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "nope")
	meshes := res.Root.Childs[0].Childs
	require.Len(t, meshes, 1)
	assert.Equal(t, 2, meshes[0].Mesh.TrianglesCount())
}

func TestDecodeUnsupportedWarnsOnce(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nl 1 2\nl 2 1\n"

	res, err := Decode(strings.NewReader(src), "lines", nil)
	require.NoError(t, err)

	assert.Len(t, res.Warnings, 1)
	assert.Empty(t, res.Root.Childs)
}

func TestDecodeErrors(t *testing.T) {
	for _, src := range []string{
		"v 1 2\n",
		"v 1 2 x\n",
		"v 0 0 0\nf 1 1\n",
		"v 0 0 0\nf 1 1 0\n",
		"v 0 0 0\nf 1 1 2\n",
		"v 0 0 0\nf 1/1 1/1 1/1\n",
		"vt\n",
		"usemtl\n",
	} {
		_, err := Decode(strings.NewReader(src), "bad", nil)
		assert.Error(t, err, "%q", src)
	}
}
