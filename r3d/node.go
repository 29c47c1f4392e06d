package r3d

import (
	"github.com/go-gl/mathgl/mgl32"
)

/*
transform local = translate(Position) * rotate(Rotation) * scale(Scale)
transform world = parent world * local
*/

type Node struct {
	Name string

	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3

	// optional, groups have no mesh
	Mesh *Mesh

	Parent *Node
	Childs []*Node

	matrixWorld mgl32.Mat4
}

func NewNode(name string) *Node {
	return &Node{
		Name:        name,
		Rotation:    mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
		matrixWorld: mgl32.Ident4(),
	}
}

func NewMeshNode(name string, mesh *Mesh) *Node {
	n := NewNode(name)
	n.Mesh = mesh
	return n
}

// Add reparents child under n
func (n *Node) Add(child *Node) {
	if child.Parent != nil {
		child.Parent.Remove(child)
	}
	child.Parent = n
	n.Childs = append(n.Childs, child)
}

func (n *Node) Remove(child *Node) bool {
	for i, c := range n.Childs {
		if c == child {
			n.Childs = append(n.Childs[:i], n.Childs[i+1:]...)
			child.Parent = nil
			return true
		}
	}
	return false
}

func (n *Node) LocalMatrix() mgl32.Mat4 {
	return mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2]).
		Mul4(n.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2]))
}

// UpdateMatrixWorld refreshes cached world matrices of n and all descendants.
// Must be called after any transform change before ComputeBounds.
func (n *Node) UpdateMatrixWorld() {
	if n.Parent != nil {
		n.matrixWorld = n.Parent.matrixWorld.Mul4(n.LocalMatrix())
	} else {
		n.matrixWorld = n.LocalMatrix()
	}
	for _, c := range n.Childs {
		c.UpdateMatrixWorld()
	}
}

func (n *Node) MatrixWorld() mgl32.Mat4 {
	return n.matrixWorld
}

// Traverse visits n and descendants depth first, parent before children
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Childs {
		c.Traverse(fn)
	}
}

func (n *Node) Find(name string) *Node {
	var found *Node
	n.Traverse(func(c *Node) {
		if found == nil && c.Name == name {
			found = c
		}
	})
	return found
}

// Stats returns count of mesh nodes, vertices and triangles under n
func (n *Node) Stats() (meshes, vertices, triangles int) {
	n.Traverse(func(c *Node) {
		if c.Mesh != nil {
			meshes++
			vertices += len(c.Mesh.Positions)
			triangles += c.Mesh.TrianglesCount()
		}
	})
	return
}
