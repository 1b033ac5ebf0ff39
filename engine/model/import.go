package model

import (
	"context"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/qmuntal/gltf"
)

// Import loads the scene file at path and allocates its GPU resources with ImportAsset.
//
// Parameters:
//   - ctx: cancels loading and image decoding
//   - device: the device resources are allocated on
//   - pipeline: the scene pipeline whose layout the descriptor sets are built against
//   - path: the .gltf or .glb file
//   - options: a variadic list of ModelBuilderOption functions
//
// Returns:
//   - Model: the imported model with a pending initialization queue
//   - error: an error if loading, validation or allocation fails
func Import(ctx context.Context, device gpu.Device, pipeline gpu.Pipeline, path string, options ...ModelBuilderOption) (Model, error) {
	m := newModel(options...)
	l := m.loader
	if l == nil {
		l = loader.NewLoader(loader.BackendTypeGLTF)
		defer l.Close()
	}

	asset, err := l.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}
	if err := m.importAsset(device, pipeline, asset); err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}
	return m, nil
}

// ImportAsset allocates the GPU resources of an already loaded asset: one device buffer per glTF
// buffer, one texture per image, and a uniform buffer plus descriptor set per node and per material.
// Every resource is left uninitialized; the uploads are queued for Initialize. The asset is fully
// validated before anything is allocated. On failure every resource allocated so far is released.
//
// Parameters:
//   - device: the device resources are allocated on
//   - pipeline: the scene pipeline whose layout the descriptor sets are built against
//   - asset: the loaded asset with decoded images
//   - options: a variadic list of ModelBuilderOption functions
//
// Returns:
//   - Model: the imported model with a pending initialization queue
//   - error: an error if validation or allocation fails
func ImportAsset(device gpu.Device, pipeline gpu.Pipeline, asset *loader.Asset, options ...ModelBuilderOption) (Model, error) {
	m := newModel(options...)
	if err := m.importAsset(device, pipeline, asset); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *model) importAsset(device gpu.Device, pipeline gpu.Pipeline, asset *loader.Asset) error {
	start := time.Now()
	m.asset = asset
	m.device = device
	m.pipeline = pipeline
	if m.name == "" {
		m.name = asset.Name
	}

	plan, err := validateAsset(asset)
	if err != nil {
		return err
	}
	m.world = ResolveWorldTransforms(asset.Document)

	steps := []struct {
		name string
		run  func(*importPlan) error
	}{
		{"buffers", m.allocateBuffers},
		{"images", m.allocateImages},
		{"nodes", m.allocateNodes},
		{"materials", m.allocateMaterials},
	}
	for _, step := range steps {
		if err := step.run(plan); err != nil {
			m.Release()
			return fmt.Errorf("failed to allocate %s: %w", step.name, err)
		}
	}

	doc := asset.Document
	common.Logger().Info("imported model", "name", m.name,
		"buffers", len(m.buffers), "textures", len(m.textures),
		"nodes", len(doc.Nodes), "materials", len(doc.Materials),
		"tasks", len(m.queue.tasks), "elapsed", time.Since(start))
	return nil
}

// importPlan carries the results of validation into allocation.
type importPlan struct {
	// materialImages is the image bound as base color for each material, -1 for the fallback texture.
	materialImages []int
	needsFallback  bool
}

// validateAsset checks everything import relies on before any GPU resource exists.
func validateAsset(asset *loader.Asset) (*importPlan, error) {
	doc := asset.Document
	if len(asset.Images) != len(doc.Images) {
		return nil, fmt.Errorf("asset %s has %d decoded images for %d declared", asset.Name, len(asset.Images), len(doc.Images))
	}
	if err := validateNodeGraph(doc); err != nil {
		return nil, err
	}

	for mi, mesh := range doc.Meshes {
		for pi, prim := range mesh.Primitives {
			if prim.Material == nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, ErrImplicitMaterial)
			}
			if *prim.Material < 0 || *prim.Material >= len(doc.Materials) {
				return nil, fmt.Errorf("mesh %d primitive %d: material index %d out of range", mi, pi, *prim.Material)
			}

			posIndex, ok := loader.PrimitivePositions(prim)
			if !ok {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, ErrMissingPosition)
			}
			if err := validateBoundAccessor(doc, posIndex); err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d POSITION: %w", mi, pi, err)
			}
			if prim.Indices != nil {
				if err := validateBoundAccessor(doc, *prim.Indices); err != nil {
					return nil, fmt.Errorf("mesh %d primitive %d indices: %w", mi, pi, err)
				}
			}
		}
	}

	plan := &importPlan{materialImages: make([]int, len(doc.Materials))}
	for i, mat := range doc.Materials {
		img, err := resolveBaseColorImage(doc, mat)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		plan.materialImages[i] = img
		if img < 0 {
			plan.needsFallback = true
		}
	}
	return plan, nil
}

// validateBoundAccessor checks an accessor that is bound directly as a vertex or index buffer.
// Its range must fit the buffer and its elements must be tightly packed.
func validateBoundAccessor(doc *gltf.Document, index int) error {
	r, err := loader.ResolveAccessor(doc, index)
	if err != nil {
		return err
	}
	if r.Stride != r.ElementSize {
		return fmt.Errorf("accessor %d: stride %d, element size %d: %w", index, r.Stride, r.ElementSize, ErrInterleavedAccessor)
	}
	return nil
}

// resolveBaseColorImage returns the image index sampled as a material's base color.
// A material without a base color texture uses texture 0 when it resolves, otherwise -1
// selects the fallback texture. An explicit texture reference must resolve.
func resolveBaseColorImage(doc *gltf.Document, mat *gltf.Material) (int, error) {
	textureIndex, explicit := 0, false
	if pbr := mat.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
		textureIndex, explicit = pbr.BaseColorTexture.Index, true
	}

	image, ok := textureImage(doc, textureIndex)
	if ok {
		return image, nil
	}
	if explicit {
		return 0, fmt.Errorf("texture %d: %w", textureIndex, ErrMissingTexture)
	}
	return -1, nil
}

func textureImage(doc *gltf.Document, textureIndex int) (int, bool) {
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return 0, false
	}
	src := doc.Textures[textureIndex].Source
	if src == nil || *src < 0 || *src >= len(doc.Images) {
		return 0, false
	}
	return *src, true
}

// textureFormat maps a source channel layout to the texel format it is uploaded as.
func textureFormat(layout common.PixelLayout) gpu.TextureFormat {
	switch layout {
	case common.PixelLayoutR8:
		return gpu.TextureFormatR8Unorm
	case common.PixelLayoutRG8:
		return gpu.TextureFormatRG8Unorm
	default:
		return gpu.TextureFormatRGBA8UnormSrgb
	}
}

func (m *model) allocateBuffers(_ *importPlan) error {
	doc := m.asset.Document
	m.buffers = make([]gpu.Buffer, 0, len(doc.Buffers))
	for i, buf := range doc.Buffers {
		b, err := m.device.CreateBuffer(gpu.BufferDescriptor{
			Label: fmt.Sprintf("%s_buffer_%d", m.name, i),
			Size:  uint64(len(buf.Data)),
			Usage: gpu.BufferUsageAll,
		})
		if err != nil {
			return err
		}
		m.buffers = append(m.buffers, b)
		m.queue.enqueue(&BufferTask{Target: b, Data: buf.Data})
		common.Logger().Debug("allocated buffer", "label", b.Label(), "size", len(buf.Data))
	}
	return nil
}

func (m *model) allocateImages(plan *importPlan) error {
	m.textures = make([]gpu.Texture, 0, len(m.asset.Images))
	for i, img := range m.asset.Images {
		t, err := m.createTexture(fmt.Sprintf("%s_image_%d", m.name, i), img)
		if err != nil {
			return err
		}
		m.textures = append(m.textures, t)
	}

	if plan.needsFallback {
		common.Logger().Warn("material without a resolvable base color texture, binding fallback", "model", m.name)
		t, err := m.createTexture(m.name+"_fallback_image", loader.SolidTexture(1, 1, m.fallbackColor))
		if err != nil {
			return err
		}
		m.fallbackTexture = t
	}
	return nil
}

func (m *model) createTexture(label string, img common.TextureStagingData) (gpu.Texture, error) {
	desc := gpu.TextureDescriptor{
		Label:         label,
		Width:         img.Width,
		Height:        img.Height,
		MipLevelCount: common.MipLevelCount(img.Width, img.Height),
		Format:        textureFormat(img.SourceLayout),
	}
	t, err := m.device.CreateTexture(desc)
	if err != nil {
		return nil, err
	}
	m.queue.enqueue(&ImageTask{Target: t, Data: img})
	common.Logger().Debug("allocated texture", "label", label, "width", desc.Width, "height", desc.Height,
		"mips", desc.MipLevelCount, "format", desc.Format)
	return t, nil
}

func (m *model) allocateNodes(_ *importPlan) error {
	n := len(m.asset.Document.Nodes)
	m.nodeBuffers = make([]gpu.Buffer, 0, n)
	m.nodeSets = make([]gpu.DescriptorSet, 0, n)
	for i := 0; i < n; i++ {
		label := fmt.Sprintf("%s_node_%d", m.name, i)
		b, err := m.device.CreateBuffer(gpu.BufferDescriptor{
			Label: label + "_uniform",
			Size:  nodeUniformSize,
			Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		m.nodeBuffers = append(m.nodeBuffers, b)

		set, err := m.device.CreateDescriptorSet(m.pipeline, gpu.DescriptorSetDescriptor{
			Label:   label,
			Slot:    gpu.SlotNode,
			Entries: []gpu.DescriptorSetEntry{{Binding: 0, Buffer: b}},
		})
		if err != nil {
			return err
		}
		m.nodeSets = append(m.nodeSets, set)
		m.queue.enqueue(&NodeDescriptorSetTask{Node: i, Target: b, Uniform: GPUNodeUniform{World: m.world[i]}})
	}
	return nil
}

func (m *model) allocateMaterials(plan *importPlan) error {
	doc := m.asset.Document
	if len(doc.Materials) == 0 {
		return nil
	}

	sampler, err := m.device.CreateSampler(withLabel(m.samplerDesc, m.name+"_sampler"))
	if err != nil {
		return err
	}
	m.sampler = sampler

	m.materialBuffers = make([]gpu.Buffer, 0, len(doc.Materials))
	m.materialSets = make([]gpu.DescriptorSet, 0, len(doc.Materials))
	for i, mat := range doc.Materials {
		label := fmt.Sprintf("%s_material_%d", m.name, i)
		b, err := m.device.CreateBuffer(gpu.BufferDescriptor{
			Label: label + "_uniform",
			Size:  materialUniformSize,
			Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		m.materialBuffers = append(m.materialBuffers, b)

		texture := m.fallbackTexture
		if img := plan.materialImages[i]; img >= 0 {
			texture = m.textures[img]
		}
		set, err := m.device.CreateDescriptorSet(m.pipeline, gpu.DescriptorSetDescriptor{
			Label: label,
			Slot:  gpu.SlotMaterial,
			Entries: []gpu.DescriptorSetEntry{
				{Binding: 0, Buffer: b},
				{Binding: 1, Texture: texture},
				{Binding: 2, Sampler: m.sampler},
			},
		})
		if err != nil {
			return err
		}
		m.materialSets = append(m.materialSets, set)
		m.queue.enqueue(&MaterialDescriptorSetTask{Material: i, Target: b, Uniform: materialUniform(mat)})
	}
	return nil
}

// materialUniform extracts the metallic-roughness factors of a material, applying the glTF defaults
// for absent values.
func materialUniform(mat *gltf.Material) GPUMaterialUniform {
	u := GPUMaterialUniform{BaseColor: [4]float32{1, 1, 1, 1}, Metallic: 1, Roughness: 1}
	pbr := mat.PBRMetallicRoughness
	if pbr == nil {
		return u
	}
	if f := pbr.BaseColorFactor; f != nil {
		u.BaseColor = [4]float32{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
	}
	if pbr.MetallicFactor != nil {
		u.Metallic = float32(*pbr.MetallicFactor)
	}
	if pbr.RoughnessFactor != nil {
		u.Roughness = float32(*pbr.RoughnessFactor)
	}
	return u
}

func withLabel(desc gpu.SamplerDescriptor, label string) gpu.SamplerDescriptor {
	desc.Label = label
	return desc
}
