package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// epsilon matches the single precision machine epsilon used to detect a degenerate rotation delta.
const epsilon = 1.1920929e-07

// Motion describes the velocity of a transform between the first and last time sample.
// The renderer only accepts a start transform plus linear, scale and angular motion, so intermediate samples are dropped.
type Motion struct {
	// Linear is the translation delta between the end and start transforms.
	Linear mgl32.Vec3
	// Scale is the scale delta between the end and start transforms.
	Scale mgl32.Vec3
	// RotationAxis is the normalized axis of the rotation delta. Defaults to +X when there is no rotation.
	RotationAxis mgl32.Vec3
	// RotationAngle is the rotation delta angle in radians.
	RotationAngle float32
}

// DecomposeTransform splits an affine transform into scale, orientation and translation.
// Shear is removed by orthogonalizing the basis vectors in X, Y, Z order. A coordinate system flip
// (negative determinant) is folded into the scale.
//
// Parameters:
//   - m: the transform to decompose (column-major, column vectors)
//
// Returns:
//   - mgl32.Vec3: per-axis scale
//   - mgl32.Quat: orientation
//   - mgl32.Vec3: translation
func DecomposeTransform(m mgl32.Mat4) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	translate := m.Col(3).Vec3()

	var col [3]mgl32.Vec3
	for i := range col {
		col[i] = m.Col(i).Vec3()
	}

	var scale mgl32.Vec3
	scale[0] = col[0].Len()
	col[0] = safeDiv(col[0], scale[0])

	skewXY := col[0].Dot(col[1])
	col[1] = col[1].Sub(col[0].Mul(skewXY))
	scale[1] = col[1].Len()
	col[1] = safeDiv(col[1], scale[1])

	skewXZ := col[0].Dot(col[2])
	col[2] = col[2].Sub(col[0].Mul(skewXZ))
	skewYZ := col[1].Dot(col[2])
	col[2] = col[2].Sub(col[1].Mul(skewYZ))
	scale[2] = col[2].Len()
	col[2] = safeDiv(col[2], scale[2])

	if col[0].Dot(col[1].Cross(col[2])) < 0 {
		for i := range col {
			scale[i] = -scale[i]
			col[i] = col[i].Mul(-1)
		}
	}

	rotation := mgl32.Mat3FromCols(col[0], col[1], col[2])
	return scale, mgl32.Mat4ToQuat(rotation.Mat4()).Normalize(), translate
}

// GetMotion computes the motion between two transform samples.
//
// Parameters:
//   - start: the transform at shutter open
//   - end: the transform at shutter close
//
// Returns:
//   - Motion: the linear, scale and angular deltas
func GetMotion(start, end mgl32.Mat4) Motion {
	startScale, startRotation, startTranslate := DecomposeTransform(start)
	endScale, endRotation, endTranslate := DecomposeTransform(end)

	motion := Motion{
		Linear:       endTranslate.Sub(startTranslate),
		Scale:        endScale.Sub(startScale),
		RotationAxis: mgl32.Vec3{1, 0, 0},
	}

	delta := endRotation.Mul(startRotation.Inverse())
	if imLen := delta.V.Len(); imLen > epsilon {
		motion.RotationAxis = delta.V.Mul(1 / imLen)
		motion.RotationAngle = 2 * float32(math.Atan2(float64(imLen), float64(delta.W)))
	}
	return motion
}

// LerpMat4 linearly interpolates every component of two matrices.
//
// Parameters:
//   - a: the matrix at alpha 0
//   - b: the matrix at alpha 1
//   - alpha: interpolation factor
//
// Returns:
//   - mgl32.Mat4: the interpolated matrix
func LerpMat4(a, b mgl32.Mat4, alpha float32) mgl32.Mat4 {
	var out mgl32.Mat4
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*alpha
	}
	return out
}

// IsIdentity reports whether m is exactly the identity matrix.
func IsIdentity(m mgl32.Mat4) bool {
	return m == mgl32.Ident4()
}

func safeDiv(v mgl32.Vec3, s float32) mgl32.Vec3 {
	if s == 0 {
		return v
	}
	return v.Mul(1 / s)
}
