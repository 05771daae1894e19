package renderpass

import (
	"github.com/Carmen-Shannon/hdrpr/engine/config"
	"go.uber.org/zap"
)

// RenderPassBuilderOption is a function that configures a RenderPass during construction.
type RenderPassBuilderOption func(*RenderPass)

// WithLogger is an option builder that sets the render pass logger.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - RenderPassBuilderOption: a function that applies the logger option to a RenderPass
func WithLogger(log *zap.Logger) RenderPassBuilderOption {
	return func(p *RenderPass) {
		if log != nil {
			p.log = log
		}
	}
}

// WithConfig is an option builder that stops rendering whenever the settings in store change.
//
// Parameters:
//   - store: the settings store
//
// Returns:
//   - RenderPassBuilderOption: a function that applies the config option to a RenderPass
func WithConfig(store *config.Store) RenderPassBuilderOption {
	return func(p *RenderPass) {
		p.config = store
	}
}
