package light

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	minTemperature = 1000
	maxTemperature = 40000
)

// rec709Luminance weights linear Rec.709 primaries to luminance.
var rec709Luminance = mgl32.Vec3{0.2126, 0.7152, 0.0722}

// BlackbodyColor returns the tint of a blackbody radiator at the given temperature in Kelvin,
// scaled to unit luminance so that it only changes hue. Temperatures are clamped to [1000, 40000].
//
// Parameters:
//   - kelvin: the color temperature
//
// Returns:
//   - mgl32.Vec3: the linear RGB tint
func BlackbodyColor(kelvin float32) mgl32.Vec3 {
	t := float64(mgl32.Clamp(kelvin, minTemperature, maxTemperature)) / 100

	var r, g, b float64
	if t <= 66 {
		r = 255
		g = 99.4708025861*math.Log(t) - 161.1195681661
	} else {
		r = 329.698727446 * math.Pow(t-60, -0.1332047592)
		g = 288.1221695283 * math.Pow(t-60, -0.0755148492)
	}
	switch {
	case t >= 66:
		b = 255
	case t <= 19:
		b = 0
	default:
		b = 138.5177312231*math.Log(t-10) - 305.0447927307
	}

	c := mgl32.Vec3{
		srgbToLinear(r / 255),
		srgbToLinear(g / 255),
		srgbToLinear(b / 255),
	}
	if lum := c.Dot(rec709Luminance); lum > 0 {
		c = c.Mul(1 / lum)
	}
	return c
}

func srgbToLinear(v float64) float32 {
	v = math.Max(0, math.Min(1, v))
	if v <= 0.04045 {
		return float32(v / 12.92)
	}
	return float32(math.Pow((v+0.055)/1.055, 2.4))
}
