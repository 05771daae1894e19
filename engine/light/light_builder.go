package light

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// LightBuilderOption is a function that configures a Light during construction.
type LightBuilderOption func(*Light)

// WithLogger is an option builder that sets the logger renderer failures are reported to.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - LightBuilderOption: a function that applies the logger option to a Light
func WithLogger(log *zap.Logger) LightBuilderOption {
	return func(l *Light) {
		if log != nil {
			l.log = log
		}
	}
}

type poolSettings struct {
	log      *zap.Logger
	gauges   *prometheus.GaugeVec
	segments int
}

func defaultPoolSettings() poolSettings {
	return poolSettings{log: zap.NewNop(), segments: DefaultSegments}
}

// PoolOption configures a Pool during construction.
type PoolOption func(*poolSettings)

// WithPoolLogger is an option builder that sets the pool logger.
func WithPoolLogger(log *zap.Logger) PoolOption {
	return func(s *poolSettings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPoolGauges is an option builder that reports live and garbage light objects.
// The gauge vector must have the labels (category, state).
func WithPoolGauges(gauges *prometheus.GaugeVec) PoolOption {
	return func(s *poolSettings) {
		s.gauges = gauges
	}
}

// WithSegments is an option builder that sets the tessellation of round light meshes.
// Values below 3 are ignored.
//
// Parameters:
//   - segments: the number of segments around the rim
//
// Returns:
//   - PoolOption: a function that applies the tessellation option
func WithSegments(segments int) PoolOption {
	return func(s *poolSettings) {
		if segments >= 3 {
			s.segments = segments
		}
	}
}
