package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type settings struct {
	log    *zap.Logger
	gauges *prometheus.GaugeVec
}

func defaultSettings() settings {
	return settings{log: zap.NewNop()}
}

// Option configures an ObjectPool during construction.
type Option func(*settings)

// WithLogger is an option builder that sets the pool logger.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - Option: a function that applies the logger option
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithGauges is an option builder that reports live and garbage counts per category.
// The gauge vector must have the labels (category, state).
//
// Parameters:
//   - gauges: the gauge vector
//
// Returns:
//   - Option: a function that applies the gauges option
func WithGauges(gauges *prometheus.GaugeVec) Option {
	return func(s *settings) {
		s.gauges = gauges
	}
}
