package r3d

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Recenter moves obj by (position - center) on every axis. This is not a move
// to the origin: the two differ whenever obj has a non zero local position.
func Recenter(obj *Node, box BBox) {
	obj.Position = obj.Position.Add(obj.Position.Sub(box.Center()))
}

// Frame places cam at the box center pushed out along z and points it at the
// world origin, not at the box center. A box wider than tall is framed at
// half its width, any other box at three times its height.
// A zero volume box leaves the camera at the center with z == 0.
func Frame(cam *PerspectiveCamera, box BBox) {
	size := box.Size()
	cam.Position = box.Center()
	if size.X() > size.Y() {
		cam.Position[2] = -size.X() * -0.5
	} else {
		cam.Position[2] = size.Y() * 3
	}
	cam.LookAt(mgl32.Vec3{0, 0, 0})
}

// FrameObject refreshes obj transforms, measures it, recenters it and frames cam.
// Returned box is the one measured before recentering.
func FrameObject(cam *PerspectiveCamera, obj *Node) BBox {
	obj.UpdateMatrixWorld()
	box := ComputeBounds(obj)
	Recenter(obj, box)
	obj.UpdateMatrixWorld()
	Frame(cam, box)
	return box
}
