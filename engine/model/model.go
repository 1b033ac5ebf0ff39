package model

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// model is the implementation of the Model interface.
type model struct {
	name  string
	asset *loader.Asset

	device   gpu.Device
	pipeline gpu.Pipeline

	// import configuration
	loader        loader.Loader
	samplerDesc   gpu.SamplerDescriptor
	fallbackColor [4]byte

	buffers         []gpu.Buffer
	textures        []gpu.Texture
	fallbackTexture gpu.Texture
	sampler         gpu.Sampler
	nodeBuffers     []gpu.Buffer
	nodeSets        []gpu.DescriptorSet
	materialBuffers []gpu.Buffer
	materialSets    []gpu.DescriptorSet

	world []mgl32.Mat4
	queue taskQueueState

	// staging holds the transient upload buffers recorded by Initialize.
	staging []gpu.Buffer
}

// Model is an imported scene: the parsed asset together with every GPU resource allocated for it.
// A Model is created by Import, filled with data exactly once by Initialize, and is read-only for
// the draw operations afterwards. It is not safe for concurrent use.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Asset retrieves the asset the model was imported from.
	//
	// Returns:
	//   - *loader.Asset: the source asset
	Asset() *loader.Asset

	// Document retrieves the parsed glTF document of the asset.
	//
	// Returns:
	//   - *gltf.Document: the document
	Document() *gltf.Document

	// Initialize drains the initialization task queue into rec: every pending upload is staged and its
	// copy commands appended in enqueue order. The caller submits the recorded commands and waits
	// for them before the first draw. The queue is consumed by the first call even if a task fails.
	//
	// Parameters:
	//   - rec: a recorder with no open render pass
	//
	// Returns:
	//   - gpu.CommandRecorder: rec, extended with the upload commands
	//   - error: ErrAlreadyInitialized on every call after the first, or the first task failure
	Initialize(rec gpu.CommandRecorder) (gpu.CommandRecorder, error)

	// Initialized reports whether the initialization task queue has been drained.
	//
	// Returns:
	//   - bool: true once Initialize has been called
	Initialized() bool

	// PendingTasks returns the number of uploads waiting for Initialize.
	//
	// Returns:
	//   - int: the queue length, 0 once drained
	PendingTasks() int

	// DrawScene records one render pass drawing every node reachable from the scene's roots.
	//
	// Parameters:
	//   - dc: the recorder, pipeline, target and frame-global descriptor set of the frame
	//   - sceneIndex: the index of the scene to draw
	//
	// Returns:
	//   - gpu.CommandBuffer: the finished command sequence
	//   - error: *InvalidSceneIndexError, ErrNotInitialized, ErrUnsupportedIndexType or a recording failure
	DrawScene(dc DrawContext, sceneIndex int) (gpu.CommandBuffer, error)

	// DrawMainScene records the document's default scene like DrawScene.
	//
	// Parameters:
	//   - dc: the recorder, pipeline, target and frame-global descriptor set of the frame
	//
	// Returns:
	//   - gpu.CommandBuffer: the finished command sequence
	//   - error: ErrNoDefaultScene if the document names no default scene, otherwise as DrawScene
	DrawMainScene(dc DrawContext) (gpu.CommandBuffer, error)

	// WorldTransform retrieves the resolved world transform of a node.
	//
	// Parameters:
	//   - node: the node index
	//
	// Returns:
	//   - mgl32.Mat4: the world transform
	//   - bool: false if the index is out of range
	WorldTransform(node int) (mgl32.Mat4, bool)

	// SceneCount returns the number of scenes in the document.
	//
	// Returns:
	//   - int: the scene count
	SceneCount() int

	// DefaultScene returns the document's default scene index.
	//
	// Returns:
	//   - int: the default scene
	//   - bool: false if the document names none
	DefaultScene() (int, bool)

	// Bounds computes the world space axis-aligned bounding box of every mesh reachable from a scene.
	//
	// Parameters:
	//   - sceneIndex: the scene to measure
	//
	// Returns:
	//   - mgl32.Vec3: the minimum corner
	//   - mgl32.Vec3: the maximum corner
	//   - error: *InvalidSceneIndexError, or an error if a POSITION accessor cannot be read
	Bounds(sceneIndex int) (mgl32.Vec3, mgl32.Vec3, error)

	// ReleaseStagingBuffers releases the transient upload buffers created by Initialize.
	// Call it once the initialization commands have completed on the GPU.
	ReleaseStagingBuffers()

	// Release releases every GPU resource owned by the model.
	Release()
}

var _ Model = &model{}

// newModel creates an empty model with the import defaults and the provided options applied.
func newModel(options ...ModelBuilderOption) *model {
	m := &model{
		samplerDesc: gpu.SamplerDescriptor{
			AddressModeU: gpu.AddressModeRepeat,
			AddressModeV: gpu.AddressModeRepeat,
			AddressModeW: gpu.AddressModeRepeat,
			MagFilter:    gpu.FilterModeLinear,
			MinFilter:    gpu.FilterModeLinear,
			MipmapFilter: gpu.FilterModeLinear,
			LodMaxClamp:  32,
		},
		fallbackColor: [4]byte{255, 255, 255, 255},
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Asset() *loader.Asset {
	return m.asset
}

func (m *model) Document() *gltf.Document {
	return m.asset.Document
}

func (m *model) Initialized() bool {
	return m.queue.drained
}

func (m *model) PendingTasks() int {
	return len(m.queue.tasks)
}

func (m *model) WorldTransform(node int) (mgl32.Mat4, bool) {
	if node < 0 || node >= len(m.world) {
		return mgl32.Mat4{}, false
	}
	return m.world[node], true
}

func (m *model) SceneCount() int {
	return len(m.asset.Document.Scenes)
}

func (m *model) DefaultScene() (int, bool) {
	if m.asset.Document.Scene == nil {
		return 0, false
	}
	return *m.asset.Document.Scene, true
}

func (m *model) Bounds(sceneIndex int) (mgl32.Vec3, mgl32.Vec3, error) {
	doc := m.asset.Document
	if sceneIndex < 0 || sceneIndex >= len(doc.Scenes) {
		return mgl32.Vec3{}, mgl32.Vec3{}, &InvalidSceneIndexError{Index: sceneIndex, SceneCount: len(doc.Scenes)}
	}

	inf := float32(1e30)
	lo := mgl32.Vec3{inf, inf, inf}
	hi := mgl32.Vec3{-inf, -inf, -inf}
	found := false

	visited := make([]bool, len(doc.Nodes))
	stack := append([]int(nil), doc.Scenes[sceneIndex].Nodes...)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[node] {
			continue
		}
		visited[node] = true

		n := doc.Nodes[node]
		stack = append(stack, n.Children...)
		if n.Mesh == nil {
			continue
		}
		for _, prim := range doc.Meshes[*n.Mesh].Primitives {
			posIndex, ok := loader.PrimitivePositions(prim)
			if !ok {
				continue
			}
			positions, err := loader.ReadVec3Accessor(doc, posIndex)
			if err != nil {
				return mgl32.Vec3{}, mgl32.Vec3{}, err
			}
			for _, p := range positions {
				w := mgl32.TransformCoordinate(mgl32.Vec3{p[0], p[1], p[2]}, m.world[node])
				for c := 0; c < 3; c++ {
					lo[c] = min(lo[c], w[c])
					hi[c] = max(hi[c], w[c])
				}
				found = true
			}
		}
	}

	if !found {
		return mgl32.Vec3{}, mgl32.Vec3{}, nil
	}
	return lo, hi, nil
}

func (m *model) ReleaseStagingBuffers() {
	for _, b := range m.staging {
		b.Release()
	}
	m.staging = nil
}

func (m *model) Release() {
	m.ReleaseStagingBuffers()
	for _, s := range m.nodeSets {
		s.Release()
	}
	for _, s := range m.materialSets {
		s.Release()
	}
	for _, b := range m.nodeBuffers {
		b.Release()
	}
	for _, b := range m.materialBuffers {
		b.Release()
	}
	for _, t := range m.textures {
		t.Release()
	}
	if m.fallbackTexture != nil {
		m.fallbackTexture.Release()
	}
	if m.sampler != nil {
		m.sampler.Release()
	}
	for _, b := range m.buffers {
		b.Release()
	}
	m.nodeSets, m.materialSets = nil, nil
	m.nodeBuffers, m.materialBuffers = nil, nil
	m.textures, m.fallbackTexture, m.sampler = nil, nil, nil
	m.buffers = nil
}
