package loader

import (
	"strings"

	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"go.uber.org/zap"
)

// ImporterBuilderOption is a functional option for configuring an Importer via NewImporter.
type ImporterBuilderOption func(*Importer)

// WithRoot is an option builder that sets the path every imported prim is placed under.
//
// Parameters:
//   - root: the parent path, for example "/asset"
//
// Returns:
//   - ImporterBuilderOption: a function that applies the root option to an Importer
func WithRoot(root scene.PathID) ImporterBuilderOption {
	return func(im *Importer) {
		im.root = scene.PathID(strings.TrimRight(string(root), "/"))
	}
}

// WithPrimIDBase is an option builder that sets the first prim id handed to imported meshes.
//
// Parameters:
//   - base: the first prim id
//
// Returns:
//   - ImporterBuilderOption: a function that applies the prim id option to an Importer
func WithPrimIDBase(base uint32) ImporterBuilderOption {
	return func(im *Importer) {
		im.nextPrimID = base
	}
}

// WithLogger is an option builder that sets the importer logger.
func WithLogger(log *zap.Logger) ImporterBuilderOption {
	return func(im *Importer) {
		if log != nil {
			im.log = log
		}
	}
}
