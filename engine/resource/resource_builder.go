package resource

import (
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ContextOption configures a Context during construction.
type ContextOption func(*Context)

// WithLogger is an option builder that sets the queue logger.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - ContextOption: a function that applies the logger option to a Context
func WithLogger(log *zap.Logger) ContextOption {
	return func(c *Context) {
		if log != nil {
			c.log = log
		}
	}
}

// WithCommitCounter is an option builder that counts changed commits by label "kind".
//
// Parameters:
//   - counter: the counter vector
//
// Returns:
//   - ContextOption: a function that applies the counter option to a Context
func WithCommitCounter(counter *prometheus.CounterVec) ContextOption {
	return func(c *Context) {
		c.commits = counter
	}
}

// MeshOption configures a Mesh during construction.
type MeshOption func(*Mesh)

// WithMeshLogger is an option builder that sets the logger renderer failures are reported to.
func WithMeshLogger(log *zap.Logger) MeshOption {
	return func(m *Mesh) {
		if log != nil {
			m.log = log
		}
	}
}

// WithLeftHanded is an option builder that flips the winding of a prototype's faces.
func WithLeftHanded(leftHanded bool) MeshOption {
	return func(m *Mesh) {
		m.leftHanded = leftHanded
	}
}

// WithVisibility is an option builder that sets the initial visibility mask.
func WithVisibility(mask renderer.VisibilityFlag) MeshOption {
	return func(m *Mesh) {
		m.visibility = mask
	}
}
