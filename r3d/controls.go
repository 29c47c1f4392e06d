package r3d

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

const controlsEpsilon = 1e-6

// OrbitControls orbits the camera around Target. Input methods only queue
// motion, Update applies it, so the camera is touched from one place only.
type OrbitControls struct {
	Camera *PerspectiveCamera
	Target mgl32.Vec3

	MinDistance float32
	MaxDistance float32

	EnableDamping bool
	DampingFactor float32
	EnablePan     bool

	RotateSpeed float32
	PanSpeed    float32

	AutoRotate      bool
	AutoRotateSpeed float32 // turns per minute

	deltaTheta float32 // around y
	deltaPhi   float32 // from y down
	scale      float32
	panOffset  mgl32.Vec3
}

func NewOrbitControls(cam *PerspectiveCamera) *OrbitControls {
	return &OrbitControls{
		Camera:          cam,
		MinDistance:     0,
		MaxDistance:     float32(math.Inf(1)),
		DampingFactor:   0.05,
		EnablePan:       true,
		RotateSpeed:     1,
		PanSpeed:        1,
		AutoRotateSpeed: 2,
		scale:           1,
	}
}

// Rotate queues an orbit by angles in radians, non finite angles are ignored
func (c *OrbitControls) Rotate(dTheta, dPhi float32) {
	if !finite(dTheta) || !finite(dPhi) {
		return
	}
	c.deltaTheta += dTheta * c.RotateSpeed
	c.deltaPhi += dPhi * c.RotateSpeed
}

// Zoom queues a distance multiplier, >1 moves away from the target
func (c *OrbitControls) Zoom(factor float32) {
	if factor <= 0 || !finite(factor) {
		return
	}
	c.scale *= factor
}

// Pan queues a target shift in screen space units relative to the current distance
func (c *OrbitControls) Pan(dx, dy float32) {
	if !c.EnablePan || !finite(dx) || !finite(dy) {
		return
	}
	offset := c.Camera.Position.Sub(c.Target)
	dist := offset.Len()
	if dist == 0 {
		return
	}
	forward := offset.Mul(-1 / dist)
	right := forward.Cross(c.Camera.Up)
	if right.Len() < controlsEpsilon {
		right = mgl32.Vec3{1, 0, 0}
	}
	right = right.Normalize()
	up := right.Cross(forward).Normalize()

	c.panOffset = c.panOffset.
		Add(right.Mul(-dx * dist * c.PanSpeed)).
		Add(up.Mul(dy * dist * c.PanSpeed))
}

func (c *OrbitControls) Pending() bool {
	return abs32(c.deltaTheta) > controlsEpsilon ||
		abs32(c.deltaPhi) > controlsEpsilon ||
		c.scale != 1 ||
		c.panOffset.Len() > controlsEpsilon
}

// Update applies queued motion and auto rotation. Returns false and leaves
// the camera alone when nothing is pending.
func (c *OrbitControls) Update(dt time.Duration) bool {
	if c.AutoRotate && dt > 0 {
		c.deltaTheta -= 2 * math.Pi * c.AutoRotateSpeed / 60 * float32(dt.Seconds())
	}
	if !c.Pending() {
		c.Stop()
		return false
	}

	factor := float32(1)
	if c.EnableDamping {
		factor = c.DampingFactor
	}

	offset := c.Camera.Position.Sub(c.Target)
	radius := offset.Len()
	theta := float32(math.Atan2(float64(offset.X()), float64(offset.Z())))
	phi := float32(math.Pi / 2)
	if radius > 0 {
		phi = float32(math.Acos(float64(mgl32.Clamp(offset.Y()/radius, -1, 1))))
	}

	theta += c.deltaTheta * factor
	phi = mgl32.Clamp(phi+c.deltaPhi*factor, controlsEpsilon, math.Pi-controlsEpsilon)
	radius = mgl32.Clamp(radius*c.scale, c.MinDistance, c.MaxDistance)

	c.Target = c.Target.Add(c.panOffset.Mul(factor))

	sinPhi := float32(math.Sin(float64(phi)))
	offset = mgl32.Vec3{
		radius * sinPhi * float32(math.Sin(float64(theta))),
		radius * float32(math.Cos(float64(phi))),
		radius * sinPhi * float32(math.Cos(float64(theta))),
	}
	c.Camera.Position = c.Target.Add(offset)
	c.Camera.LookAt(c.Target)

	if c.EnableDamping {
		c.deltaTheta *= 1 - factor
		c.deltaPhi *= 1 - factor
		c.panOffset = c.panOffset.Mul(1 - factor)
	} else {
		c.deltaTheta, c.deltaPhi = 0, 0
		c.panOffset = mgl32.Vec3{}
	}
	c.scale = 1
	return true
}

// Stop drops all queued motion
func (c *OrbitControls) Stop() {
	c.deltaTheta, c.deltaPhi = 0, 0
	c.panOffset = mgl32.Vec3{}
	c.scale = 1
}

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
