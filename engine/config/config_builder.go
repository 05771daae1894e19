package config

import "go.uber.org/zap"

// StoreOption is a function that configures a Store during construction.
type StoreOption func(*Store)

// WithLogger is an option builder that sets the store logger.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - StoreOption: a function that applies the logger option to a Store
func WithLogger(log *zap.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}
