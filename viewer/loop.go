package viewer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mogaika/model_viewer/r3d"
)

var (
	ErrLoopStopped = errors.New("render loop stopped")
	errNoGeometry  = errors.New("model has no geometry")
)

type Renderer interface {
	Render(scene *r3d.Scene, cam *r3d.PerspectiveCamera) error
	SetSize(width, height int)
}

// FrameSource is the host presentation signal, one value per frame
type FrameSource interface {
	Frames() <-chan time.Time
	Stop()
}

type tickerFrames struct {
	t *time.Ticker
}

// TickerFrames signals fps times per second
func TickerFrames(fps int) FrameSource {
	if fps <= 0 {
		fps = 60
	}
	return &tickerFrames{t: time.NewTicker(time.Second / time.Duration(fps))}
}

func (tf *tickerFrames) Frames() <-chan time.Time { return tf.t.C }
func (tf *tickerFrames) Stop()                    { tf.t.Stop() }

type size struct {
	w, h int
}

// Loop runs every frame: tweens, orbit controls, one render call.
// It is the only goroutine touching its State.
type Loop struct {
	state    *State
	renderer Renderer
	frames   FrameSource

	tasks  chan func(*State)
	resize chan size

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	last time.Time
}

func NewLoop(state *State, renderer Renderer, frames FrameSource) *Loop {
	return &Loop{
		state:    state,
		renderer: renderer,
		frames:   frames,
		tasks:    make(chan func(*State), 16),
		resize:   make(chan size, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run blocks until ctx is done or Stop is called
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.frames.Stop()
	log.Printf("[viewer] Render loop started")
	for {
		select {
		case now := <-l.frames.Frames():
			l.Tick(now)
		case task := <-l.tasks:
			task(l.state)
		case sz := <-l.resize:
			l.applyResize(sz)
		case <-l.stop:
			log.Printf("[viewer] Render loop stopped after %d frames", l.state.Frames)
			return nil
		case <-ctx.Done():
			log.Printf("[viewer] Render loop stopped after %d frames: %v", l.state.Frames, ctx.Err())
			return ctx.Err()
		}
	}
}

// Tick advances one frame. Only the loop goroutine (or a test owning the loop) may call it.
func (l *Loop) Tick(now time.Time) {
	var dt time.Duration
	if !l.last.IsZero() && now.After(l.last) {
		dt = now.Sub(l.last)
	}
	l.last = now

	s := l.state
	s.Tweens.Advance(dt)
	s.Controls.Update(dt)
	s.Frames++
	if err := l.renderer.Render(s.Scene, s.Camera); err != nil {
		log.Printf("[viewer] Render error: %v", err)
	}
}

func (l *Loop) applyResize(sz size) {
	l.state.Camera.SetAspect(sz.w, sz.h)
	l.renderer.SetSize(sz.w, sz.h)
	if err := l.renderer.Render(l.state.Scene, l.state.Camera); err != nil {
		log.Printf("[viewer] Render error: %v", err)
	}
}

// Post queues f to run on the loop goroutine, false when the loop is stopped
func (l *Loop) Post(f func(*State)) bool {
	select {
	case <-l.stop:
		return false
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- f:
		return true
	case <-l.stop:
		return false
	case <-l.done:
		return false
	}
}

// Do runs f on the loop goroutine and waits for it
func (l *Loop) Do(ctx context.Context, f func(*State)) error {
	finished := make(chan struct{})
	if !l.Post(func(s *State) {
		defer close(finished)
		f(s)
	}) {
		return ErrLoopStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// task may have been queued after the last turn
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	}
}

// Resize replaces a not yet applied resize, the latest size wins
func (l *Loop) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	for {
		select {
		case l.resize <- size{width, height}:
			return
		case <-l.resize:
		case <-l.done:
			return
		}
	}
}

// Stop is the dispose handle, safe to call more than once
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Loop) Done() <-chan struct{} {
	return l.done
}
