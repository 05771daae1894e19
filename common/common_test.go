package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestDecomposeTransform(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(float32(math.Pi / 2))).Mul4(mgl32.Scale3D(2, 3, 4))

	scale, rotation, translate := DecomposeTransform(m)
	assert.True(t, scale.ApproxEqualThreshold(mgl32.Vec3{2, 3, 4}, 1e-5), scale)
	assert.True(t, translate.ApproxEqual(mgl32.Vec3{1, 2, 3}))
	assert.True(t, rotation.ApproxEqualThreshold(mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 1, 0}), 1e-5))
}

func TestDecomposeFoldsFlipIntoScale(t *testing.T) {
	scale, _, _ := DecomposeTransform(mgl32.Scale3D(-1, 1, 1))
	assert.True(t, scale.ApproxEqual(mgl32.Vec3{-1, -1, -1}), scale)
}

func TestGetMotion(t *testing.T) {
	start := mgl32.Ident4()
	end := mgl32.Translate3D(0, 1, 0).Mul4(mgl32.HomogRotate3DZ(0.5))

	motion := GetMotion(start, end)
	assert.True(t, motion.Linear.ApproxEqual(mgl32.Vec3{0, 1, 0}))
	assert.True(t, motion.Scale.ApproxEqualThreshold(mgl32.Vec3{}, 1e-5))
	assert.True(t, motion.RotationAxis.ApproxEqualThreshold(mgl32.Vec3{0, 0, 1}, 1e-5))
	assert.InDelta(t, 0.5, motion.RotationAngle, 1e-5)

	still := GetMotion(start, start)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, still.RotationAxis)
	assert.Zero(t, still.RotationAngle)
}

func TestResample(t *testing.T) {
	s := TimeSamples[mgl32.Mat4]{
		Times:  []float32{0, 1},
		Values: []mgl32.Mat4{mgl32.Translate3D(0, 0, 0), mgl32.Translate3D(2, 0, 0)},
	}
	assert.Equal(t, mgl32.Translate3D(1, 0, 0), ResampleMat4(s, 0.5))
	assert.Equal(t, s.Values[0], ResampleMat4(s, -1))
	assert.Equal(t, s.Values[1], ResampleMat4(s, 3))
	assert.Equal(t, mgl32.Mat4{}, ResampleMat4(TimeSamples[mgl32.Mat4]{}, 0))
	assert.Equal(t, 1, Single(3).Count())
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
	assert.Equal(t, []int32{0, 1, 2}, Sequence(3))
	assert.Nil(t, Sequence(0))
	assert.True(t, IsIdentity(mgl32.Ident4()))
	assert.False(t, IsIdentity(mgl32.Scale3D(2, 2, 2)))

	src := []int{1, 2}
	dst := Clone(src)
	dst[0] = 9
	assert.Equal(t, 1, src[0])
	assert.Nil(t, Clone[int](nil))
}
