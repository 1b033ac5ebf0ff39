package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/qmuntal/gltf"
)

// Asset is a parsed glTF document together with its decoded images.
// The document is treated as immutable once loaded.
type Asset struct {
	// Name is the cache key the asset was loaded under (usually its file path).
	Name string

	// BaseDir is the directory external URIs are resolved against.
	BaseDir string

	// Document is the parsed glTF document. Buffer blobs are loaded into Document.Buffers[i].Data.
	Document *gltf.Document

	// Images holds the decoded pixel data of Document.Images, indexed identically.
	Images []common.TextureStagingData
}

// NewAsset wraps an in-memory document. Images are decoded with DecodeImages.
//
// Parameters:
//   - name: the name of the asset, used for labels and caching
//   - baseDir: the directory external image URIs are resolved against
//   - doc: the parsed document
//
// Returns:
//   - *Asset: the asset with no decoded images yet
func NewAsset(name, baseDir string, doc *gltf.Document) *Asset {
	return &Asset{Name: name, BaseDir: baseDir, Document: doc}
}

// BufferData returns the loaded bytes of a buffer.
//
// Parameters:
//   - index: the buffer index
//
// Returns:
//   - []byte: the buffer contents
//   - error: an error if the index is out of range
func (a *Asset) BufferData(index int) ([]byte, error) {
	if index < 0 || index >= len(a.Document.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", index)
	}
	return a.Document.Buffers[index].Data, nil
}

// PrimitivePositions returns the POSITION accessor index of a primitive.
//
// Parameters:
//   - prim: the primitive
//
// Returns:
//   - int: the accessor index
//   - bool: false if the primitive has no POSITION attribute
func PrimitivePositions(prim *gltf.Primitive) (int, bool) {
	idx, ok := prim.Attributes[gltf.POSITION]
	return idx, ok
}
