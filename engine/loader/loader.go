package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/qmuntal/gltf"
)

// LoaderBackendType identifies the scene file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// ErrUnsupportedFormat is returned for files whose extension has no backend.
var ErrUnsupportedFormat = errors.New("unsupported scene format")

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	assetCache map[string]*Asset

	backend loaderBackend

	// decodePool decodes the images of an asset in parallel.
	decodePool    worker.DynamicWorkerPool
	decodeWorkers int
	skipImages    bool
}

// Loader defines the public-facing interface for loading and caching glTF assets.
// It abstracts the file format behind a backend and keeps a cache of previously loaded assets.
type Loader interface {
	// Load parses a scene file, loads its buffers, decodes its images and caches the result.
	// If the asset is already cached (by file path), the cached version is returned.
	// The backend is selected based on the file extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - ctx: cancels image decoding
	//   - path: the file path to the scene file
	//
	// Returns:
	//   - *Asset: the loaded and cached asset
	//   - error: error if loading fails
	Load(ctx context.Context, path string) (*Asset, error)

	// LoadReader parses an asset from a reader stream and caches it by the given name.
	// External image URIs are resolved relative to baseDir.
	//
	// Parameters:
	//   - ctx: cancels image decoding
	//   - name: the cache key for the loaded asset
	//   - baseDir: the directory external image URIs are resolved against
	//   - r: the reader providing glTF or GLB data
	//
	// Returns:
	//   - *Asset: the loaded asset
	//   - error: error if loading fails
	LoadReader(ctx context.Context, name, baseDir string, r io.Reader) (*Asset, error)

	// DecodeImages decodes every image of an asset into staged mip chains, in parallel.
	// Assets built with NewAsset must be passed through this before import if they carry images.
	//
	// Parameters:
	//   - ctx: cancels pending decodes
	//   - a: the asset whose Images field is populated
	//
	// Returns:
	//   - error: the first decode failure, if any
	DecodeImages(ctx context.Context, a *Asset) error

	// Get retrieves a cached asset by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Asset: the cached asset or nil
	Get(name string) *Asset

	// Assets returns a copy of the asset cache.
	//
	// Returns:
	//   - map[string]*Asset: all cached assets keyed by name
	Assets() map[string]*Asset

	// Evict removes an asset from the cache.
	//
	// Parameters:
	//   - name: the cache key to remove
	Evict(name string)

	// Close stops the decode workers. The loader must not be used afterwards.
	Close()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:            sync.RWMutex{},
		assetCache:    make(map[string]*Asset),
		decodeWorkers: runtime.NumCPU(),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}

	l.decodePool = worker.NewDynamicWorkerPool(max(l.decodeWorkers, 1), 256, 1*time.Second)
	return l
}

func (l *loader) Load(ctx context.Context, path string) (*Asset, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	doc, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	a, err := l.finish(ctx, NewAsset(path, filepath.Dir(path), doc))
	if err != nil {
		return nil, err
	}
	common.Logger().Info("loaded asset", "path", path,
		"nodes", len(doc.Nodes), "meshes", len(doc.Meshes), "images", len(doc.Images),
		"elapsed", time.Since(start))
	return a, nil
}

func (l *loader) LoadReader(ctx context.Context, name, baseDir string, r io.Reader) (*Asset, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	doc, err := l.backend.LoadReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	return l.finish(ctx, NewAsset(name, baseDir, doc))
}

// finish decodes the images of a freshly parsed asset and stores it in the cache.
// A concurrent load of the same name that finished first wins.
func (l *loader) finish(ctx context.Context, a *Asset) (*Asset, error) {
	if !l.skipImages {
		if err := l.DecodeImages(ctx, a); err != nil {
			return nil, fmt.Errorf("failed to decode images of %s: %w", a.Name, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.assetCache[a.Name]; ok {
		return existing, nil
	}
	l.assetCache[a.Name] = a
	return a, nil
}

func (l *loader) DecodeImages(ctx context.Context, a *Asset) error {
	images := a.Document.Images
	a.Images = make([]common.TextureStagingData, len(images))
	if len(images) == 0 {
		return nil
	}

	errs := make([]error, len(images))
	var wg sync.WaitGroup
	for i := range images {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			break
		}
		wg.Add(1)
		idx := i
		l.decodePool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				if err := ctx.Err(); err != nil {
					errs[idx] = err
					return nil, err
				}

				blob, err := gltfImageBlob(a, idx)
				if err != nil {
					errs[idx] = err
					return nil, err
				}
				staged, err := DecodeImage(blob)
				if err != nil {
					errs[idx] = fmt.Errorf("image %d: %w", idx, err)
					return nil, errs[idx]
				}
				a.Images[idx] = staged
				return nil, nil
			},
		})
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (l *loader) Get(name string) *Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.assetCache[name]
}

func (l *loader) Assets() map[string]*Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Asset, len(l.assetCache))
	for k, v := range l.assetCache {
		result[k] = v
	}
	return result
}

func (l *loader) Evict(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.assetCache, name)
}

func (l *loader) Close() {
	l.decodePool.Stop()
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// LoadDocument wraps an already parsed document without touching the cache.
// It is the entry point for documents assembled in memory.
//
// Parameters:
//   - ctx: cancels image decoding
//   - l: the loader whose decode workers are used
//   - name: the asset name
//   - doc: the parsed document
//
// Returns:
//   - *Asset: the asset with decoded images
//   - error: error if an image cannot be decoded
func LoadDocument(ctx context.Context, l Loader, name string, doc *gltf.Document) (*Asset, error) {
	a := NewAsset(name, "", doc)
	if err := l.DecodeImages(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
