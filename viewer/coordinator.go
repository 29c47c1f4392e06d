package viewer

import (
	"log"

	"github.com/mogaika/model_viewer/loader"
	"github.com/mogaika/model_viewer/r3d"
)

// Indicator is the user visible loading indicator, *status.Hub implements it
type Indicator interface {
	HideLoading() bool
	FailLoading(err error) bool
}

// Inspector is notified once per successfully loaded model
type Inspector interface {
	Inspect(m *loader.Model)
}

type InspectorFunc func(m *loader.Model)

func (f InspectorFunc) Inspect(m *loader.Model) { f(m) }

// Coordinator resolves one load into the scene. Resolve must run on the loop
// goroutine so a render never observes a half attached model.
type Coordinator struct {
	Gate       Gate
	State      *State
	Indicator  Indicator
	Inspectors []Inspector
}

func NewCoordinator(state *State, indicator Indicator, inspectors ...Inspector) *Coordinator {
	return &Coordinator{State: state, Indicator: indicator, Inspectors: inspectors}
}

// Resolve frames and attaches model or reports err. Only the first call has effect.
func (c *Coordinator) Resolve(model *loader.Model, err error) bool {
	if err == nil && (model == nil || model.Root == nil) {
		err = errNoGeometry
	}
	if err != nil {
		if !c.Gate.Fail() {
			return false
		}
		log.Printf("[viewer] Load failed: %v", err)
		c.State.MarkFailed(err)
		if c.Indicator != nil {
			c.Indicator.FailLoading(err)
		}
		return true
	}

	if !c.Gate.Complete() {
		return false
	}

	s := c.State
	s.Bounds = r3d.FrameObject(s.Camera, model.Root)
	s.FramedPose = s.Camera.Pose()
	s.Tweens.Clear()
	s.Controls.Stop()
	s.Controls.Target = s.Camera.Target

	s.AttachModel(model)

	for _, in := range c.Inspectors {
		in.Inspect(model)
	}

	s.MarkLoaded()
	if c.Indicator != nil {
		c.Indicator.HideLoading()
	}
	log.Printf("[viewer] Model %q framed, box %v..%v camera %v", model.Name, s.Bounds.Min, s.Bounds.Max, s.Camera.Position)
	return true
}
