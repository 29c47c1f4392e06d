package r3d

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Camera interface {
	GetViewMatrix() mgl32.Mat4
	GetProjectionMatrix() mgl32.Mat4
}

// PerspectiveCamera orientation is kept as a look target
type PerspectiveCamera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	Fov    float32 // vertical, degrees
	Aspect float32
	Near   float32
	Far    float32
}

func NewPerspectiveCamera(fov, aspect, near, far float32) *PerspectiveCamera {
	return &PerspectiveCamera{
		Up:     mgl32.Vec3{0, 1, 0},
		Fov:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
	}
}

func (c *PerspectiveCamera) LookAt(target mgl32.Vec3) {
	c.Target = target
}

func (c *PerspectiveCamera) SetAspect(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

// Direction is the normalized view direction, zero when the camera sits on its target
func (c *PerspectiveCamera) Direction() mgl32.Vec3 {
	d := c.Target.Sub(c.Position)
	if d.Len() == 0 {
		return mgl32.Vec3{}
	}
	return d.Normalize()
}

func (c *PerspectiveCamera) GetViewMatrix() mgl32.Mat4 {
	up := c.Up
	dir := c.Direction()
	if dir.Len() == 0 {
		// degenerate, looking at itself
		return mgl32.Translate3D(-c.Position[0], -c.Position[1], -c.Position[2])
	}
	if d := dir.Dot(up.Normalize()); d > 0.9999 || d < -0.9999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	return mgl32.LookAtV(c.Position, c.Target, up)
}

func (c *PerspectiveCamera) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.Fov), c.Aspect, c.Near, c.Far)
}

func (c *PerspectiveCamera) GetViewProjectionMatrix() mgl32.Mat4 {
	return c.GetProjectionMatrix().Mul4(c.GetViewMatrix())
}

// Pose is the mutable part of camera state, used to snapshot and restore
type Pose struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
}

func (c *PerspectiveCamera) Pose() Pose {
	return Pose{Position: c.Position, Target: c.Target}
}
