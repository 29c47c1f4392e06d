package r3d

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// BBox is an axis aligned bounding box. Min > Max on any axis means empty.
type BBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func EmptyBBox() BBox {
	inf := float32(math.Inf(1))
	return BBox{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

func (b BBox) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

func (b *BBox) ExpandToPoint(pos mgl32.Vec3) {
	for i, coord := range pos {
		if coord < b.Min[i] {
			b.Min[i] = coord
		}
		if coord > b.Max[i] {
			b.Max[i] = coord
		}
	}
}

func (b BBox) Union(o BBox) BBox {
	if o.IsEmpty() {
		return b
	}
	b.ExpandToPoint(o.Min)
	b.ExpandToPoint(o.Max)
	return b
}

// Size is zero for an empty box
func (b BBox) Size() mgl32.Vec3 {
	if b.IsEmpty() {
		return mgl32.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Center is the origin for an empty box
func (b BBox) Center() mgl32.Vec3 {
	if b.IsEmpty() {
		return mgl32.Vec3{}
	}
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b BBox) Diagonal() float32 {
	return b.Size().Len()
}

func (b BBox) Translate(t mgl32.Vec3) BBox {
	if b.IsEmpty() {
		return b
	}
	return BBox{Min: b.Min.Add(t), Max: b.Max.Add(t)}
}

func (b BBox) Corners() [8]mgl32.Vec3 {
	return [8]mgl32.Vec3{
		{b.Min[0], b.Min[1], b.Min[2]},
		{b.Max[0], b.Min[1], b.Min[2]},
		{b.Min[0], b.Max[1], b.Min[2]},
		{b.Max[0], b.Max[1], b.Min[2]},
		{b.Min[0], b.Min[1], b.Max[2]},
		{b.Max[0], b.Min[1], b.Max[2]},
		{b.Min[0], b.Max[1], b.Max[2]},
		{b.Max[0], b.Max[1], b.Max[2]},
	}
}

// ComputeBounds returns the world space box enclosing every vertex of every
// mesh under n. World matrices are read as cached, so n.UpdateMatrixWorld()
// must run first after any transform change.
func ComputeBounds(n *Node) BBox {
	box := EmptyBBox()
	n.Traverse(func(c *Node) {
		if c.Mesh == nil {
			return
		}
		world := c.MatrixWorld()
		for _, p := range c.Mesh.Positions {
			box.ExpandToPoint(world.Mul4x1(p.Vec4(1)).Vec3())
		}
	})
	return box
}
