package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/qmuntal/gltf"
)

// DrawContext carries the per-frame collaborators of a draw call.
type DrawContext struct {
	// Recorder receives the render pass. It must not have a pass open.
	Recorder gpu.CommandRecorder

	// Pipeline is the scene pipeline the model was imported against.
	Pipeline gpu.Pipeline

	// Framebuffer is the render target.
	Framebuffer gpu.Framebuffer

	// ClearValues are applied when the pass begins.
	ClearValues gpu.ClearValues

	// FrameSet is the frame-global descriptor set bound at slot 0 with every draw.
	FrameSet gpu.DescriptorSet
}

func (m *model) DrawMainScene(dc DrawContext) (gpu.CommandBuffer, error) {
	scene, ok := m.DefaultScene()
	if !ok {
		return nil, ErrNoDefaultScene
	}
	return m.DrawScene(dc, scene)
}

func (m *model) DrawScene(dc DrawContext, sceneIndex int) (gpu.CommandBuffer, error) {
	doc := m.asset.Document
	if sceneIndex < 0 || sceneIndex >= len(doc.Scenes) {
		return nil, &InvalidSceneIndexError{Index: sceneIndex, SceneCount: len(doc.Scenes)}
	}
	if !m.queue.drained {
		return nil, ErrNotInitialized
	}

	rec, err := beginScenePass(dc)
	if err != nil {
		return nil, err
	}
	for _, root := range doc.Scenes[sceneIndex].Nodes {
		if rec, err = m.drawNode(rec, dc.FrameSet, root); err != nil {
			return nil, err
		}
	}
	if err := rec.EndRenderPass(); err != nil {
		return nil, err
	}
	return rec.Finish()
}

// beginScenePass opens the render pass and binds the pipeline.
func beginScenePass(dc DrawContext) (gpu.CommandRecorder, error) {
	rec := dc.Recorder
	if err := rec.BeginRenderPass(dc.Framebuffer, dc.ClearValues); err != nil {
		return rec, fmt.Errorf("failed to begin render pass: %w", err)
	}
	if err := rec.SetPipeline(dc.Pipeline); err != nil {
		return rec, fmt.Errorf("failed to set pipeline %q: %w", dc.Pipeline.Label(), err)
	}
	return rec, nil
}

// drawNode draws the mesh of a node, then its children in document order.
func (m *model) drawNode(rec gpu.CommandRecorder, frameSet gpu.DescriptorSet, node int) (gpu.CommandRecorder, error) {
	doc := m.asset.Document
	n := doc.Nodes[node]

	if n.Mesh != nil {
		for pi, prim := range doc.Meshes[*n.Mesh].Primitives {
			var err error
			rec, err = m.drawPrimitive(rec, gpu.DescriptorSets{
				Frame:    frameSet,
				Node:     m.nodeSets[node],
				Material: m.materialSets[*prim.Material],
			}, prim)
			if err != nil {
				return rec, fmt.Errorf("node %d mesh %d primitive %d: %w", node, *n.Mesh, pi, err)
			}
		}
	}

	for _, child := range n.Children {
		var err error
		if rec, err = m.drawNode(rec, frameSet, child); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// drawPrimitive binds the descriptor sets and vertex/index slices of a primitive and records its draw.
func (m *model) drawPrimitive(rec gpu.CommandRecorder, sets gpu.DescriptorSets, prim *gltf.Primitive) (gpu.CommandRecorder, error) {
	doc := m.asset.Document
	posIndex, _ := loader.PrimitivePositions(prim)
	positions, err := loader.ResolveAccessor(doc, posIndex)
	if err != nil {
		return rec, err
	}

	var (
		indices     loader.AccessorRange
		indexFormat gpu.IndexFormat
	)
	if prim.Indices != nil {
		if indices, err = loader.ResolveAccessor(doc, *prim.Indices); err != nil {
			return rec, err
		}
		if indexFormat, err = indexFormatOf(indices.ComponentType); err != nil {
			return rec, err
		}
	}

	if err := rec.SetDescriptorSets(sets); err != nil {
		return rec, err
	}
	if err := rec.SetVertexBuffer(0, m.slice(positions)); err != nil {
		return rec, err
	}

	if prim.Indices == nil {
		return rec, rec.Draw(positions.Count, 1)
	}
	if err := rec.SetIndexBuffer(m.slice(indices), indexFormat); err != nil {
		return rec, err
	}
	return rec, rec.DrawIndexed(indices.Count, 1)
}

// slice returns the device buffer range backing an accessor.
func (m *model) slice(r loader.AccessorRange) gpu.BufferSlice {
	return gpu.BufferSlice{Buffer: m.buffers[r.Buffer], Offset: r.Offset, Size: r.Size}
}

// indexFormatOf maps an index accessor component type to an index buffer format.
func indexFormatOf(ct gltf.ComponentType) (gpu.IndexFormat, error) {
	switch ct {
	case gltf.ComponentUshort:
		return gpu.IndexFormatUint16, nil
	case gltf.ComponentUint:
		return gpu.IndexFormatUint32, nil
	default:
		return 0, fmt.Errorf("%w: component type %v", ErrUnsupportedIndexType, ct)
	}
}
