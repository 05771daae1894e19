package renderer

import (
	"github.com/Carmen-Shannon/hdrpr/common"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// SetTransformSamples applies time-sampled transforms to a shape. The renderer takes a single start transform,
// so with more than one sample the first sample is set together with the motion towards the last one.
//
// Parameters:
//   - log: receives renderer failures
//   - shape: the shape to transform
//   - samples: the transform samples, ignored when empty
//
// Returns:
//   - bool: true if every renderer call succeeded
func SetTransformSamples(log *zap.Logger, shape Shape, samples common.TimeSamples[mgl32.Mat4]) bool {
	n := samples.Count()
	if n == 0 || shape == nil {
		return true
	}

	start := samples.Values[0]
	if ErrorCheck(log, shape.SetTransform(start), "failed to set shape transform") {
		return false
	}
	if n == 1 {
		return true
	}

	motion := common.GetMotion(start, samples.Values[n-1])
	ok := !ErrorCheck(log, shape.SetLinearMotion(motion.Linear), "failed to set shape linear motion")
	ok = !ErrorCheck(log, shape.SetScaleMotion(motion.Scale), "failed to set shape scale motion") && ok
	ok = !ErrorCheck(log, shape.SetAngularMotion(motion.RotationAxis, motion.RotationAngle), "failed to set shape angular motion") && ok
	return ok
}

// SetVisibilityMask applies every flag of mask to shape.
//
// Parameters:
//   - log: receives renderer failures
//   - shape: the shape
//   - mask: the visible ray categories
//
// Returns:
//   - bool: true if every renderer call succeeded
func SetVisibilityMask(log *zap.Logger, shape Shape, mask VisibilityFlag) bool {
	ok := true
	for _, flag := range VisibilityFlags {
		if ErrorCheck(log, shape.SetVisibilityFlag(flag, mask&flag != 0), "failed to set shape visibility",
			zap.Uint32("flag", uint32(flag))) {
			ok = false
		}
	}
	return ok
}
