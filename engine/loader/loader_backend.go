package loader

import (
	"io"

	"github.com/qmuntal/gltf"
)

// loaderBackend defines the generic interface for parsing scene documents from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load parses the document at the given file path and loads every buffer it references.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *gltf.Document: the parsed document with buffer data resolved
	//   - error: error if loading fails
	Load(path string) (*gltf.Document, error)

	// LoadReader parses a document from a reader stream. Buffers must be embedded
	// (GLB binary chunk or data URIs) since there is no directory to resolve files against.
	//
	// Parameters:
	//   - r: the reader providing document data
	//
	// Returns:
	//   - *gltf.Document: the parsed document
	//   - error: error if loading fails
	LoadReader(r io.Reader) (*gltf.Document, error)
}
