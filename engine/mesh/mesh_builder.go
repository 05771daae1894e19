package mesh

import (
	"github.com/Carmen-Shannon/hdrpr/engine/resource"
	"go.uber.org/zap"
)

// MeshBuilderOption is a function that configures a Mesh during construction.
type MeshBuilderOption func(*Mesh)

// WithLogger is an option builder that sets the mesh logger.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - MeshBuilderOption: a function that applies the logger option to a Mesh
func WithLogger(log *zap.Logger) MeshBuilderOption {
	return func(m *Mesh) {
		if log != nil {
			m.log = log
		}
	}
}

// WithCommitQueue is an option builder that sets the queue the mesh enqueues itself on after a Sync
// that staged changes. Without a queue the caller must invoke Commit itself.
func WithCommitQueue(commits *resource.Context) MeshBuilderOption {
	return func(m *Mesh) {
		m.commits = commits
	}
}

// WithMaterials is an option builder that sets where bound materials are looked up.
func WithMaterials(materials MaterialLookup) MeshBuilderOption {
	return func(m *Mesh) {
		m.materials = materials
	}
}
