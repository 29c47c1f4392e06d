// Package viewer owns the scene: it attaches loaded models, frames them and
// drives the per frame update and render loop.
package viewer

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/model_viewer/config"
	"github.com/mogaika/model_viewer/loader"
	"github.com/mogaika/model_viewer/r3d"
)

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseLoaded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is owned by the loop goroutine, everything else goes through Loop.Do
type State struct {
	Scene    *r3d.Scene
	Camera   *r3d.PerspectiveCamera
	Controls *r3d.OrbitControls
	Tweens   r3d.Tweens

	Model *loader.Model
	// Bounds measured when Model was framed
	Bounds r3d.BBox
	// FramedPose is where reset view returns to
	FramedPose r3d.Pose

	Phase  Phase
	Err    error
	Frames uint64
}

func NewState(cfg config.Config) *State {
	scene := r3d.NewScene()
	scene.Background = cfg.Background.Float()
	scene.Ambient.Color = cfg.Lights.AmbientColor.Float()
	scene.Ambient.Intensity = cfg.Lights.Ambient
	scene.Point.Color = cfg.Lights.PointColor.Float()
	scene.Point.Intensity = cfg.Lights.Point

	cam := r3d.NewPerspectiveCamera(cfg.Camera.Fov, 1, cfg.Camera.Near, cfg.Camera.Far)
	cam.SetAspect(cfg.Viewport.Width, cfg.Viewport.Height)
	cam.Position = mgl32.Vec3(cfg.Camera.Position)

	controls := r3d.NewOrbitControls(cam)
	controls.MinDistance = cfg.Controls.MinDistance
	controls.MaxDistance = cfg.Controls.MaxDistance
	controls.EnableDamping = cfg.Controls.EnableDamping
	controls.DampingFactor = cfg.Controls.DampingFactor
	controls.EnablePan = cfg.Controls.EnablePan
	controls.AutoRotate = cfg.Controls.AutoRotate
	controls.AutoRotateSpeed = cfg.Controls.AutoRotateSpeed

	return &State{
		Scene:      scene,
		Camera:     cam,
		Controls:   controls,
		Bounds:     r3d.EmptyBBox(),
		FramedPose: cam.Pose(),
	}
}

// BeginLoad is called when a new load starts, the current model stays visible
func (s *State) BeginLoad() {
	s.Phase = PhaseLoading
	s.Err = nil
}

// AttachModel makes m the only model in the scene
func (s *State) AttachModel(m *loader.Model) {
	if s.Model != nil && s.Model.Root != nil {
		s.Scene.Remove(s.Model.Root)
		log.Printf("[viewer] Model %q replaced by %q", s.Model.Name, m.Name)
	}
	s.Model = m
	s.Scene.Add(m.Root)
}

func (s *State) MarkLoaded() {
	s.Phase = PhaseLoaded
	s.Err = nil
}

func (s *State) MarkFailed(err error) {
	s.Phase = PhaseFailed
	s.Err = err
}

type Info struct {
	Phase      Phase      `json:"phase"`
	Error      string     `json:"error,omitempty"`
	Model      string     `json:"model,omitempty"`
	LoadID     string     `json:"load_id,omitempty"`
	Meshes     int        `json:"meshes"`
	Vertices   int        `json:"vertices"`
	Triangles  int        `json:"triangles"`
	Warnings   []string   `json:"warnings,omitempty"`
	BoundsMin  mgl32.Vec3 `json:"bounds_min"`
	BoundsMax  mgl32.Vec3 `json:"bounds_max"`
	Camera     mgl32.Vec3 `json:"camera"`
	CameraLook mgl32.Vec3 `json:"camera_target"`
	Frames     uint64     `json:"frames"`
}

// Info copies what the web layer shows, safe to use outside the loop
func (s *State) Info() Info {
	info := Info{
		Phase:      s.Phase,
		Camera:     s.Camera.Position,
		CameraLook: s.Camera.Target,
		Frames:     s.Frames,
	}
	if s.Err != nil {
		info.Error = s.Err.Error()
	}
	if s.Model != nil {
		info.Model = s.Model.Name
		info.LoadID = s.Model.ID.String()
		info.Warnings = append([]string(nil), s.Model.Warnings...)
		info.Meshes, info.Vertices, info.Triangles = s.Model.Root.Stats()
		if !s.Bounds.IsEmpty() {
			info.BoundsMin, info.BoundsMax = s.Bounds.Min, s.Bounds.Max
		}
	}
	return info
}
