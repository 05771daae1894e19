package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*Camera)

// WithTarget sets the orbit center.
//
// Parameters:
//   - target: the point the camera looks at
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's target
func WithTarget(target mgl32.Vec3) CameraBuilderOption {
	return func(c *Camera) {
		c.target = target
	}
}

// WithRadius sets the initial distance from the target.
//
// Parameters:
//   - radius: distance in world units
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's orbit radius
func WithRadius(radius float32) CameraBuilderOption {
	return func(c *Camera) {
		c.radius = radius
	}
}

// WithRadiusLimits bounds how close and how far the camera can zoom.
//
// Parameters:
//   - minRadius: the closest distance
//   - maxRadius: the farthest distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's zoom limits
func WithRadiusLimits(minRadius, maxRadius float32) CameraBuilderOption {
	return func(c *Camera) {
		if minRadius > 0 && maxRadius >= minRadius {
			c.minRadius = minRadius
			c.maxRadius = maxRadius
		}
	}
}

// WithAngles sets the initial azimuth and elevation in radians.
//
// Parameters:
//   - azimuth: angle around the up axis
//   - elevation: angle above the horizontal plane
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's orbit angles
func WithAngles(azimuth, elevation float32) CameraBuilderOption {
	return func(c *Camera) {
		c.azimuth = azimuth
		c.elevation = elevation
	}
}

// WithFov sets the vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *Camera) {
		c.fov = fov
	}
}

// WithAspect sets the initial aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *Camera) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithClipPlanes sets the near and far clipping distances.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's clip planes
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *Camera) {
		c.near = near
		c.far = far
	}
}
