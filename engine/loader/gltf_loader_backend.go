package loader

import (
	"fmt"
	"io"

	"github.com/qmuntal/gltf"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct{}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// Both the JSON and binary containers are handled by the same decoder.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() gltfLoaderBackend {
	return &gltfLoaderBackendImpl{}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*gltf.Document, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	if err := gltfCheckBuffers(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *gltfLoaderBackendImpl) LoadReader(r io.Reader) (*gltf.Document, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, err
	}
	if err := gltfCheckBuffers(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// gltfCheckBuffers verifies that every declared buffer had its bytes loaded.
func gltfCheckBuffers(doc *gltf.Document) error {
	for i, buf := range doc.Buffers {
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: loaded %d of %d bytes", i, len(buf.Data), buf.ByteLength)
		}
	}
	return nil
}
