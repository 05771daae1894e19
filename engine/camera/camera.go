// Package camera provides the orbit camera the viewer renders through.
package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera orbits a target point. Its position is kept in spherical coordinates around the target and the
// view and projection matrices are recomputed on every change.
type Camera struct {
	mu *sync.Mutex

	up     mgl32.Vec3
	target mgl32.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	mouseSensitivity float32
	zoomSpeed        float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	view       mgl32.Mat4
	projection mgl32.Mat4
}

// NewCamera creates an orbit camera looking at the origin from 10 units away.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - *Camera: the camera
func NewCamera(options ...CameraBuilderOption) *Camera {
	c := &Camera{
		mu:     &sync.Mutex{},
		up:     mgl32.Vec3{0, 1, 0},
		radius: 10,

		elevation: float32(math.Pi / 6),

		minRadius:    0.1,
		maxRadius:    1000,
		minElevation: float32(-math.Pi/2 + 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),

		mouseSensitivity: 0.005,
		zoomSpeed:        0.5,

		fov:    mgl32.DegToRad(45),
		aspect: 16.0 / 9.0,
		near:   0.1,
		far:    1000,
	}
	for _, option := range options {
		option(c)
	}
	c.radius = mgl32.Clamp(c.radius, c.minRadius, c.maxRadius)
	c.elevation = mgl32.Clamp(c.elevation, c.minElevation, c.maxElevation)
	c.updateMatrices()
	return c
}

// Position returns the camera's world position.
func (c *Camera) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

// Target returns the point the camera orbits.
func (c *Camera) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Radius returns the distance from the target.
func (c *Camera) Radius() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius
}

// View returns the world to view matrix.
func (c *Camera) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Projection returns the perspective projection matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

// SetTarget moves the orbit center, keeping the current angles and radius.
//
// Parameters:
//   - target: the new orbit center
func (c *Camera) SetTarget(target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.updateMatrices()
}

// SetAspect sets the projection aspect ratio. Non-positive values are ignored.
//
// Parameters:
//   - aspect: width over height
func (c *Camera) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

// Orbit rotates the camera around the target by a mouse drag in pixels.
//
// Parameters:
//   - dx: horizontal drag, positive to the right
//   - dy: vertical drag, positive downwards
func (c *Camera) Orbit(dx, dy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.azimuth -= dx * c.mouseSensitivity
	c.elevation = mgl32.Clamp(c.elevation+dy*c.mouseSensitivity, c.minElevation, c.maxElevation)
	c.updateMatrices()
}

// Zoom moves the camera along its view direction. Positive deltas move closer.
//
// Parameters:
//   - delta: scroll wheel delta
func (c *Camera) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius = mgl32.Clamp(c.radius-delta*c.zoomSpeed, c.minRadius, c.maxRadius)
	c.updateMatrices()
}

// positionLocked converts the spherical coordinates to a world position.
func (c *Camera) positionLocked() mgl32.Vec3 {
	cosElev := float32(math.Cos(float64(c.elevation)))
	sinElev := float32(math.Sin(float64(c.elevation)))
	cosAzim := float32(math.Cos(float64(c.azimuth)))
	sinAzim := float32(math.Sin(float64(c.azimuth)))

	return c.target.Add(mgl32.Vec3{
		c.radius * cosElev * sinAzim,
		c.radius * sinElev,
		c.radius * cosElev * cosAzim,
	})
}

// updateMatrices recomputes view and projection. Caller must hold the mutex.
func (c *Camera) updateMatrices() {
	c.view = mgl32.LookAtV(c.positionLocked(), c.target, c.up)
	c.projection = mgl32.Perspective(c.fov, c.aspect, c.near, c.far)
}
