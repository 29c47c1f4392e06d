package viewer

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mogaika/model_viewer/config"
	"github.com/mogaika/model_viewer/export"
	"github.com/mogaika/model_viewer/loader"
	"github.com/mogaika/model_viewer/r3d"
	"github.com/mogaika/model_viewer/status"
	"github.com/mogaika/model_viewer/vfs"
)

const resetViewDuration = 600 * time.Millisecond

// Viewer wires the load pipeline, the completion coordinator and the render loop
type Viewer struct {
	cfg        config.Config
	hub        *status.Hub
	pipeline   *loader.Pipeline
	state      *State
	loop       *Loop
	inspectors []Inspector

	// set from Load until the result is resolved on the loop
	loading int32

	ctxLock sync.Mutex
	ctx     context.Context

	progressLock sync.Mutex
	lastProgress map[string]int
}

func New(cfg config.Config, source vfs.Source, renderer Renderer, hub *status.Hub, frames FrameSource, inspectors ...Inspector) (*Viewer, error) {
	enc, err := config.LookupEncoding(cfg.Encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create viewer")
	}
	if frames == nil {
		frames = TickerFrames(cfg.Viewport.FPS)
	}
	renderer.SetSize(cfg.Viewport.Width, cfg.Viewport.Height)

	v := &Viewer{
		cfg:          cfg,
		hub:          hub,
		state:        NewState(cfg),
		inspectors:   inspectors,
		ctx:          context.Background(),
		lastProgress: make(map[string]int),
	}
	v.loop = NewLoop(v.state, renderer, frames)
	v.pipeline = loader.NewPipeline(source, loader.Options{
		Encoding:   enc,
		OnProgress: v.progress,
		OnStage: func(id uuid.UUID, stage string) {
			hub.Info("loading %s", stage)
		},
	})
	return v, nil
}

func (v *Viewer) Loop() *Loop {
	return v.loop
}

func (v *Viewer) Config() config.Config {
	return v.cfg
}

// Run starts loading the configured model and runs the render loop until ctx is done
func (v *Viewer) Run(ctx context.Context) error {
	v.ctxLock.Lock()
	v.ctx = ctx
	v.ctxLock.Unlock()

	if err := v.Load(v.cfg.Model); err != nil {
		return err
	}
	return v.loop.Run(ctx)
}

// Load starts loading name in the background. The result is attached on the
// loop goroutine. Returns loader.ErrLoadInFlight until the previous load is
// resolved there, not just fetched.
func (v *Viewer) Load(name string) error {
	if !atomic.CompareAndSwapInt32(&v.loading, 0, 1) {
		return loader.ErrLoadInFlight
	}

	v.ctxLock.Lock()
	ctx := v.ctx
	v.ctxLock.Unlock()

	task, err := v.pipeline.Load(ctx, name)
	if err != nil {
		atomic.StoreInt32(&v.loading, 0)
		return err
	}
	v.hub.ShowLoading("loading model %s", name)
	coord := NewCoordinator(v.state, v.hub, v.inspectors...)
	v.loop.Post(func(s *State) { s.BeginLoad() })

	go func() {
		model, err := task.Await(context.Background())
		if !v.loop.Post(func(*State) {
			defer atomic.StoreInt32(&v.loading, 0)
			coord.Resolve(model, err)
		}) {
			atomic.StoreInt32(&v.loading, 0)
			log.Printf("[viewer] Load of %q finished after loop stop", name)
		}
	}()
	return nil
}

func (v *Viewer) progress(p loader.Progress) {
	percent := int(p.Fraction() * 100)
	v.progressLock.Lock()
	prev, seen := v.lastProgress[p.ResourceID]
	if seen && percent < prev+5 && percent != 100 {
		v.progressLock.Unlock()
		return
	}
	v.lastProgress[p.ResourceID] = percent
	if percent == 100 {
		delete(v.lastProgress, p.ResourceID)
	}
	v.progressLock.Unlock()
	v.hub.Progress(p.Fraction(), "%s", p.ResourceID)
}

func (v *Viewer) Info(ctx context.Context) (Info, error) {
	var info Info
	err := v.loop.Do(ctx, func(s *State) { info = s.Info() })
	return info, err
}

// Orbit queues user camera motion: angles in radians, zoom as distance multiplier, pan in view units
func (v *Viewer) Orbit(ctx context.Context, theta, phi, zoom, panX, panY float32) error {
	return v.loop.Do(ctx, func(s *State) {
		s.Tweens.Clear()
		if theta != 0 || phi != 0 {
			s.Controls.Rotate(theta, phi)
		}
		if zoom != 0 && zoom != 1 {
			s.Controls.Zoom(zoom)
		}
		if panX != 0 || panY != 0 {
			s.Controls.Pan(panX, panY)
		}
	})
}

// ResetView animates the camera back to the pose set by the last framing
func (v *Viewer) ResetView(ctx context.Context) error {
	return v.loop.Do(ctx, func(s *State) {
		s.Controls.Stop()
		s.Tweens.Clear()
		cam := s.Camera
		pose := s.FramedPose
		s.Controls.Target = pose.Target
		s.Tweens.Add(r3d.NewVec3Tween(cam.Position, pose.Position, resetViewDuration, func(p mgl32.Vec3) {
			cam.Position = p
		}))
		s.Tweens.Add(r3d.NewVec3Tween(cam.Target, pose.Target, resetViewDuration, func(p mgl32.Vec3) {
			cam.Target = p
		}))
	})
}

var ErrNoModel = errors.New("no model loaded")

// ExportGLB writes the attached model as binary glTF. Conversion runs on the
// loop goroutine so the scene does not change under it.
func (v *Viewer) ExportGLB(ctx context.Context, w io.Writer) error {
	var err error
	if doErr := v.loop.Do(ctx, func(s *State) {
		if s.Model == nil || s.Model.Root == nil {
			err = ErrNoModel
			return
		}
		err = export.WriteGLB(w, s.Model.Root)
	}); doErr != nil {
		return doErr
	}
	return err
}

func (v *Viewer) Resize(width, height int) {
	v.loop.Resize(width, height)
}

func (v *Viewer) Stop() {
	v.loop.Stop()
}
