// package common contains plain helper types shared across the engine packages. They are not interface-wrapped structs,
// just values that express commonly used data.
package common

import "github.com/go-gl/mathgl/mgl32"

// TimeSamples holds values sampled over the shutter interval, ordered by ascending time.
type TimeSamples[T any] struct {
	// Times are the sample times relative to the current frame.
	Times []float32
	// Values holds one value per entry of Times.
	Values []T
}

// Count returns the number of samples.
func (s TimeSamples[T]) Count() int {
	return len(s.Values)
}

// Single returns a TimeSamples holding just v at time 0.
func Single[T any](v T) TimeSamples[T] {
	return TimeSamples[T]{Times: []float32{0}, Values: []T{v}}
}

// Resample returns the value at time t, interpolating between the two neighboring samples.
// Times outside the sampled range clamp to the first or last value. An empty set returns the zero value.
//
// Parameters:
//   - s: the samples to read
//   - t: the time to evaluate
//   - lerp: interpolation function for T
//
// Returns:
//   - T: the resampled value
func Resample[T any](s TimeSamples[T], t float32, lerp func(a, b T, alpha float32) T) T {
	var zero T
	n := s.Count()
	if n == 0 {
		return zero
	}
	if n == 1 || len(s.Times) < n || t <= s.Times[0] {
		return s.Values[0]
	}
	if t >= s.Times[n-1] {
		return s.Values[n-1]
	}
	for i := 0; i < n-1; i++ {
		t0, t1 := s.Times[i], s.Times[i+1]
		if t >= t0 && t < t1 {
			if t1 == t0 {
				return s.Values[i]
			}
			return lerp(s.Values[i], s.Values[i+1], (t-t0)/(t1-t0))
		}
	}
	return s.Values[n-1]
}

// ResampleMat4 resamples a set of matrix samples at time t.
func ResampleMat4(s TimeSamples[mgl32.Mat4], t float32) mgl32.Mat4 {
	return Resample(s, t, LerpMat4)
}
