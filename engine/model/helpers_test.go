package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/require"
)

// docBuilder assembles a single-buffer glTF document in memory.
type docBuilder struct {
	doc  *gltf.Document
	data []byte
}

func newDocBuilder() *docBuilder {
	return &docBuilder{doc: &gltf.Document{}}
}

// accessor appends raw element bytes in their own buffer view and returns the accessor index.
func (b *docBuilder) accessor(raw []byte, ct gltf.ComponentType, typ gltf.AccessorType, count int) int {
	for len(b.data)%4 != 0 {
		b.data = append(b.data, 0)
	}
	b.doc.BufferViews = append(b.doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: len(b.data),
		ByteLength: len(raw),
	})
	b.data = append(b.data, raw...)
	b.doc.Accessors = append(b.doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(len(b.doc.BufferViews) - 1),
		ComponentType: ct,
		Type:          typ,
		Count:         count,
	})
	return len(b.doc.Accessors) - 1
}

func (b *docBuilder) positions(points ...[3]float32) int {
	raw := make([]byte, 0, len(points)*12)
	for _, p := range points {
		for _, c := range p {
			raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(c))
		}
	}
	return b.accessor(raw, gltf.ComponentFloat, gltf.AccessorVec3, len(points))
}

func (b *docBuilder) indices16(indices ...uint16) int {
	raw := make([]byte, 0, len(indices)*2)
	for _, i := range indices {
		raw = binary.LittleEndian.AppendUint16(raw, i)
	}
	return b.accessor(raw, gltf.ComponentUshort, gltf.AccessorScalar, len(indices))
}

func (b *docBuilder) material(baseColor [4]float64) int {
	b.doc.Materials = append(b.doc.Materials, &gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &baseColor,
			MetallicFactor:  gltf.Float(0.25),
			RoughnessFactor: gltf.Float(0.75),
		},
	})
	return len(b.doc.Materials) - 1
}

func (b *docBuilder) mesh(prims ...*gltf.Primitive) int {
	b.doc.Meshes = append(b.doc.Meshes, &gltf.Mesh{Primitives: prims})
	return len(b.doc.Meshes) - 1
}

func (b *docBuilder) node(n *gltf.Node) int {
	b.doc.Nodes = append(b.doc.Nodes, n)
	return len(b.doc.Nodes) - 1
}

func (b *docBuilder) scene(roots ...int) int {
	b.doc.Scenes = append(b.doc.Scenes, &gltf.Scene{Nodes: roots})
	return len(b.doc.Scenes) - 1
}

func (b *docBuilder) build() *gltf.Document {
	b.doc.Buffers = []*gltf.Buffer{{ByteLength: len(b.data), Data: b.data}}
	return b.doc
}

func prim(position int, indices *int, material *int) *gltf.Primitive {
	return &gltf.Primitive{
		Attributes: gltf.PrimitiveAttributes{gltf.POSITION: position},
		Indices:    indices,
		Material:   material,
	}
}

// quadDoc is a document with one scene and two root nodes: an indexed quad (6 u16 indices over 4
// vertices) and a non-indexed 4-vertex strip, both using material 0.
func quadDoc() *gltf.Document {
	b := newDocBuilder()
	quad := [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	pos := b.positions(quad...)
	idx := b.indices16(0, 1, 2, 0, 2, 3)
	pos2 := b.positions(quad...)
	mat := b.material([4]float64{1, 0.5, 0.25, 1})

	indexed := b.mesh(prim(pos, gltf.Index(idx), gltf.Index(mat)))
	plain := b.mesh(prim(pos2, nil, gltf.Index(mat)))
	n0 := b.node(&gltf.Node{Mesh: gltf.Index(indexed), Translation: [3]float64{1, 2, 3}})
	n1 := b.node(&gltf.Node{Mesh: gltf.Index(plain)})
	b.doc.Scene = gltf.Index(b.scene(n0, n1))
	return b.build()
}

type fixture struct {
	device   *gputest.Device
	pipeline *gputest.Pipeline
	model    *model
	frameSet gpu.DescriptorSet
}

func importFixture(t *testing.T, doc *gltf.Document, images ...common.TextureStagingData) *fixture {
	t.Helper()
	f := &fixture{device: gputest.NewDevice(), pipeline: gputest.NewPipeline("scene")}

	asset := loader.NewAsset("scene", "", doc)
	asset.Images = images

	m, err := ImportAsset(f.device, f.pipeline, asset)
	require.NoError(t, err)
	f.model = m.(*model)

	frameBuf, err := f.device.CreateBuffer(gpu.BufferDescriptor{Label: "frame_uniform", Size: 144, Usage: gpu.BufferUsageUniform})
	require.NoError(t, err)
	f.frameSet, err = f.device.CreateDescriptorSet(f.pipeline, gpu.DescriptorSetDescriptor{
		Label:   "frame",
		Slot:    gpu.SlotFrame,
		Entries: []gpu.DescriptorSetEntry{{Binding: 0, Buffer: frameBuf}},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) initialize(t *testing.T) {
	t.Helper()
	rec := gputest.NewRecorder("init")
	_, err := f.model.Initialize(rec)
	require.NoError(t, err)
	cb, err := rec.Finish()
	require.NoError(t, err)
	require.NoError(t, f.device.Submit(cb))
}

func (f *fixture) drawContext(rec gpu.CommandRecorder) DrawContext {
	return DrawContext{
		Recorder:    rec,
		Pipeline:    f.pipeline,
		Framebuffer: &gputest.Framebuffer{W: 64, H: 64},
		ClearValues: gpu.DefaultClearValues,
		FrameSet:    f.frameSet,
	}
}
