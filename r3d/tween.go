package r3d

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

type Easing func(k float32) float32

func EaseLinear(k float32) float32 { return k }

func EaseInOutQuad(k float32) float32 {
	if k < 0.5 {
		return 2 * k * k
	}
	k = -2*k + 2
	return 1 - k*k/2
}

// Tween interpolates a Vec3 from From to To over Duration and hands every
// intermediate value to Apply.
type Tween struct {
	From     mgl32.Vec3
	To       mgl32.Vec3
	Duration time.Duration
	Easing   Easing
	Apply    func(v mgl32.Vec3)
	OnDone   func()

	elapsed time.Duration
}

func NewVec3Tween(from, to mgl32.Vec3, duration time.Duration, apply func(mgl32.Vec3)) *Tween {
	return &Tween{
		From:     from,
		To:       to,
		Duration: duration,
		Easing:   EaseInOutQuad,
		Apply:    apply,
	}
}

// advance returns true when the tween finished
func (t *Tween) advance(dt time.Duration) bool {
	t.elapsed += dt
	k := float32(1)
	if t.Duration > 0 && t.elapsed < t.Duration {
		k = float32(t.elapsed) / float32(t.Duration)
	}
	ease := t.Easing
	if ease == nil {
		ease = EaseLinear
	}
	e := ease(k)
	t.Apply(t.From.Add(t.To.Sub(t.From).Mul(e)))
	return k >= 1
}

type Tweens struct {
	active []*Tween
}

func (ts *Tweens) Add(t *Tween) {
	ts.active = append(ts.active, t)
}

func (ts *Tweens) Len() int {
	return len(ts.active)
}

// Advance moves every running tween forward by dt and drops the finished ones
func (ts *Tweens) Advance(dt time.Duration) {
	if len(ts.active) == 0 {
		return
	}
	running := ts.active[:0]
	var finished []*Tween
	for _, t := range ts.active {
		if t.advance(dt) {
			finished = append(finished, t)
		} else {
			running = append(running, t)
		}
	}
	for i := len(running); i < len(ts.active); i++ {
		ts.active[i] = nil
	}
	ts.active = running
	for _, t := range finished {
		if t.OnDone != nil {
			t.OnDone()
		}
	}
}

func (ts *Tweens) Clear() {
	ts.active = nil
}
