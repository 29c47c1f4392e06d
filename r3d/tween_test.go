package r3d

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestTweensAdvance(t *testing.T) {
	var got mgl32.Vec3
	done := 0

	var ts Tweens
	tw := NewVec3Tween(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 20, 30}, time.Second, func(v mgl32.Vec3) { got = v })
	tw.Easing = EaseLinear
	tw.OnDone = func() { done++ }
	ts.Add(tw)

	ts.Advance(500 * time.Millisecond)
	assert.InDelta(t, 5, got.X(), 1e-4)
	assert.InDelta(t, 15, got.Z(), 1e-4)
	assert.Equal(t, 1, ts.Len())
	assert.Equal(t, 0, done)

	ts.Advance(time.Second)
	assert.Equal(t, mgl32.Vec3{10, 20, 30}, got)
	assert.Equal(t, 0, ts.Len())
	assert.Equal(t, 1, done)

	ts.Advance(time.Second)
	assert.Equal(t, 1, done)
}

func TestEaseInOutQuad(t *testing.T) {
	assert.Equal(t, float32(0), EaseInOutQuad(0))
	assert.Equal(t, float32(0.5), EaseInOutQuad(0.5))
	assert.Equal(t, float32(1), EaseInOutQuad(1))
	assert.Less(t, EaseInOutQuad(0.25), float32(0.25))
}

func TestZeroDurationTweenFinishesImmediately(t *testing.T) {
	var got mgl32.Vec3
	var ts Tweens
	ts.Add(NewVec3Tween(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, 0, func(v mgl32.Vec3) { got = v }))

	ts.Advance(0)

	assert.Equal(t, mgl32.Vec3{1, 1, 1}, got)
	assert.Equal(t, 0, ts.Len())
}
