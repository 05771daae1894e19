package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestPositionFromAngles(t *testing.T) {
	c := NewCamera(WithRadius(5), WithAngles(0, 0))

	assert.True(t, c.Position().ApproxEqualThreshold(mgl32.Vec3{0, 0, 5}, 1e-5))
	// the target lands on the view axis
	target := c.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -5, target.Z(), 1e-5)
	assert.InDelta(t, 0, target.X(), 1e-5)
}

func TestZoomIsClamped(t *testing.T) {
	c := NewCamera(WithRadius(5), WithRadiusLimits(1, 6))

	c.Zoom(100)
	assert.Equal(t, float32(1), c.Radius())
	c.Zoom(-100)
	assert.Equal(t, float32(6), c.Radius())
}

func TestOrbitClampsElevation(t *testing.T) {
	c := NewCamera(WithRadius(2), WithAngles(0, 0))

	c.Orbit(0, 1e6)
	p := c.Position()
	assert.Less(t, p.Y(), float32(2))
	assert.Greater(t, p.Y(), float32(1.99))

	c.Orbit(float32(-math.Pi/2)/0.005, 0)
	assert.Greater(t, c.Position().X(), float32(0))
}

func TestSetTargetMovesView(t *testing.T) {
	c := NewCamera(WithRadius(5), WithAngles(0, 0))
	before := c.Position()

	c.SetTarget(mgl32.Vec3{1, 2, 3})
	assert.True(t, c.Position().Sub(before).ApproxEqualThreshold(mgl32.Vec3{1, 2, 3}, 1e-5))
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, c.Target())
}

func TestSetAspectUpdatesProjection(t *testing.T) {
	c := NewCamera()
	c.SetAspect(2)
	assert.Equal(t, mgl32.Perspective(mgl32.DegToRad(45), 2, 0.1, 1000), c.Projection())

	c.SetAspect(0)
	assert.Equal(t, mgl32.Perspective(mgl32.DegToRad(45), 2, 0.1, 1000), c.Projection())
}
