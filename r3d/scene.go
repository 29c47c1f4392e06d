package r3d

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/model_viewer/utils"
)

type AmbientLight struct {
	Color     utils.ColorFloat
	Intensity float32
}

// PointLight without a position follows the camera
type PointLight struct {
	Color     utils.ColorFloat
	Intensity float32
	Position  *mgl32.Vec3
}

type Scene struct {
	Root       *Node
	Background utils.ColorFloat
	Ambient    AmbientLight
	Point      PointLight
}

func NewScene() *Scene {
	return &Scene{
		Root:       NewNode("scene"),
		Background: utils.NewColorFloatHex(0xB8B8B8),
		Ambient:    AmbientLight{Color: utils.NewColorFloatHex(0xffffff), Intensity: 0.8},
		Point:      PointLight{Color: utils.NewColorFloatHex(0x636363), Intensity: 0.1},
	}
}

func (s *Scene) Add(n *Node) {
	s.Root.Add(n)
	s.Root.UpdateMatrixWorld()
}

func (s *Scene) Remove(n *Node) bool {
	return s.Root.Remove(n)
}

// PointLightPosition resolves a camera attached light to the camera position
func (s *Scene) PointLightPosition(cam *PerspectiveCamera) mgl32.Vec3 {
	if s.Point.Position != nil {
		return *s.Point.Position
	}
	return cam.Position
}
