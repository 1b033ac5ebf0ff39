package model

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrixNode(m mgl32.Mat4, children ...int) *gltf.Node {
	n := &gltf.Node{Children: children}
	for i, v := range m {
		n.Matrix[i] = float64(v)
	}
	return n
}

func TestResolveWorldTransformsComposesParentFirst(t *testing.T) {
	t1 := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DZ(0.5))
	t2 := mgl32.Scale3D(2, 3, 4).Mul4(mgl32.Translate3D(-1, 0, 0))

	doc := &gltf.Document{
		Nodes: []*gltf.Node{
			matrixNode(t1, 1),
			matrixNode(t2),
			matrixNode(mgl32.Translate3D(9, 9, 9)), // unreachable
		},
		Scenes: []*gltf.Scene{{Nodes: []int{0}}},
	}

	world := ResolveWorldTransforms(doc)
	require.Len(t, world, 3)
	assert.True(t, world[0].ApproxEqual(t1))
	assert.True(t, world[1].ApproxEqualThreshold(t1.Mul4(t2), 1e-5))
	assert.False(t, world[1].ApproxEqualThreshold(t2.Mul4(t1), 1e-5))
	assert.Equal(t, mgl32.Ident4(), world[2])

	assert.Equal(t, world, ResolveWorldTransforms(doc))
}

func TestResolveWorldTransformsSharedAcrossScenes(t *testing.T) {
	doc := &gltf.Document{
		Nodes: []*gltf.Node{
			matrixNode(mgl32.Translate3D(1, 0, 0), 1),
			matrixNode(mgl32.Translate3D(0, 1, 0)),
		},
		Scenes: []*gltf.Scene{{Nodes: []int{0}}, {Nodes: []int{0}}},
	}

	world := ResolveWorldTransforms(doc)
	assert.True(t, world[1].ApproxEqual(mgl32.Translate3D(1, 1, 0)))
}

func TestResolveWorldTransformsNoScenes(t *testing.T) {
	doc := &gltf.Document{Nodes: []*gltf.Node{matrixNode(mgl32.Translate3D(1, 0, 0))}}
	assert.Equal(t, []mgl32.Mat4{mgl32.Ident4()}, ResolveWorldTransforms(doc))
}

func TestValidateNodeGraph(t *testing.T) {
	tests := []struct {
		name  string
		nodes []*gltf.Node
		roots []int
	}{
		{name: "child out of range", nodes: []*gltf.Node{{Children: []int{4}}}, roots: []int{0}},
		{name: "root out of range", nodes: []*gltf.Node{{}}, roots: []int{1}},
		{name: "two parents", nodes: []*gltf.Node{{Children: []int{2}}, {Children: []int{2}}, {}}, roots: []int{0, 1}},
		{name: "cycle through root", nodes: []*gltf.Node{{Children: []int{1}}, {Children: []int{0}}}, roots: []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &gltf.Document{Nodes: tt.nodes, Scenes: []*gltf.Scene{{Nodes: tt.roots}}}
			assert.Error(t, validateNodeGraph(doc))
		})
	}
}

func TestImportAllocationOrder(t *testing.T) {
	img := loader.BuildMipChain(image.NewGray(image.Rect(0, 0, 8, 4)), common.PixelLayoutR8)
	doc := quadDoc()
	doc.Images = []*gltf.Image{{URI: "albedo.png"}}
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}}

	f := importFixture(t, doc, img)

	var order []string
	for _, task := range f.model.queue.tasks {
		order = append(order, task.Label())
	}
	assert.Equal(t, []string{
		"scene_buffer_0",
		"scene_image_0",
		"scene_node_0_uniform",
		"scene_node_1_uniform",
		"scene_material_0_uniform",
	}, order)
	assert.Equal(t, 5, f.model.PendingTasks())
	assert.False(t, f.model.Initialized())

	buf := f.device.BufferByLabel("scene_buffer_0")
	require.NotNil(t, buf)
	assert.Equal(t, gpu.BufferUsageAll, buf.Usage)
	assert.True(t, buf.Usage.Has(gpu.BufferUsageVertex|gpu.BufferUsageIndex|gpu.BufferUsageIndirect))
	assert.Equal(t, uint64(len(doc.Buffers[0].Data)), buf.Size())

	require.Len(t, f.device.Textures, 1)
	tex := f.device.Textures[0]
	assert.Equal(t, gpu.TextureFormatR8Unorm, tex.Format())
	assert.Equal(t, uint32(4), tex.MipLevelCount())
	assert.Nil(t, f.model.fallbackTexture)

	matSet := f.model.materialSets[0].(*gputest.DescriptorSet)
	assert.Equal(t, gpu.SlotMaterial, matSet.Slot())
	require.Len(t, matSet.Desc.Entries, 3)
	assert.Same(t, tex, matSet.Desc.Entries[1].Texture)
	assert.NotNil(t, matSet.Desc.Entries[2].Sampler)

	nodeSet := f.model.nodeSets[1].(*gputest.DescriptorSet)
	assert.Equal(t, gpu.SlotNode, nodeSet.Slot())
}

func TestImportTextureFormats(t *testing.T) {
	tests := []struct {
		layout common.PixelLayout
		want   gpu.TextureFormat
	}{
		{common.PixelLayoutR8, gpu.TextureFormatR8Unorm},
		{common.PixelLayoutRG8, gpu.TextureFormatRG8Unorm},
		{common.PixelLayoutRGB8, gpu.TextureFormatRGBA8UnormSrgb},
		{common.PixelLayoutRGBA8, gpu.TextureFormatRGBA8UnormSrgb},
	}
	for _, tt := range tests {
		t.Run(tt.layout.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, textureFormat(tt.layout))
		})
	}
}

func TestImportFallbackTexture(t *testing.T) {
	f := importFixture(t, quadDoc())

	require.NotNil(t, f.model.fallbackTexture)
	assert.Empty(t, f.model.textures)
	assert.Equal(t, uint32(1), f.model.fallbackTexture.Width())
	assert.Equal(t, gpu.TextureFormatRGBA8UnormSrgb, f.model.fallbackTexture.Format())

	matSet := f.model.materialSets[0].(*gputest.DescriptorSet)
	assert.Same(t, f.model.fallbackTexture, matSet.Desc.Entries[1].Texture)

	f.initialize(t)
	fallback := f.model.fallbackTexture.(*gputest.Texture)
	assert.Equal(t, []byte{255, 255, 255, 255}, fallback.Levels[0])
}

func TestImportImplicitMaterial(t *testing.T) {
	doc := quadDoc()
	doc.Meshes[1].Primitives[0].Material = nil

	device := gputest.NewDevice()
	_, err := ImportAsset(device, gputest.NewPipeline("scene"), loader.NewAsset("scene", "", doc))
	require.ErrorIs(t, err, ErrImplicitMaterial)
	assert.Empty(t, device.Buffers)
	assert.Empty(t, device.Textures)
	assert.Empty(t, device.Samplers)
	assert.Empty(t, device.DescriptorSets)
}

func TestImportAccessorOutOfBounds(t *testing.T) {
	doc := quadDoc()
	doc.Accessors[0].Count = 100

	device := gputest.NewDevice()
	_, err := ImportAsset(device, gputest.NewPipeline("scene"), loader.NewAsset("scene", "", doc))
	require.ErrorIs(t, err, ErrAccessorOutOfBounds)
	var rangeErr *loader.AccessorRangeError
	assert.True(t, errors.As(err, &rangeErr))
	assert.Empty(t, device.Buffers)
}

func TestImportRejectsOverflowingAccessorCount(t *testing.T) {
	doc := quadDoc()
	doc.Accessors[2].Count = 1 << 62

	device := gputest.NewDevice()
	_, err := ImportAsset(device, gputest.NewPipeline("scene"), loader.NewAsset("scene", "", doc))
	require.ErrorIs(t, err, ErrAccessorOutOfBounds)
	assert.Empty(t, device.Buffers)
}

func TestImportRejectsInterleavedPositions(t *testing.T) {
	doc := quadDoc()
	view := doc.BufferViews[*doc.Accessors[0].BufferView]
	view.ByteStride = 24
	doc.Accessors[0].Count = 2

	device := gputest.NewDevice()
	_, err := ImportAsset(device, gputest.NewPipeline("scene"), loader.NewAsset("scene", "", doc))
	require.ErrorIs(t, err, ErrInterleavedAccessor)
	assert.Empty(t, device.Buffers)
}

func TestImportMissingExplicitTexture(t *testing.T) {
	doc := quadDoc()
	doc.Materials[0].PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: 3}

	_, err := ImportAsset(gputest.NewDevice(), gputest.NewPipeline("scene"), loader.NewAsset("scene", "", doc))
	assert.ErrorIs(t, err, ErrMissingTexture)
}

func TestImportUndecodedImages(t *testing.T) {
	doc := quadDoc()
	doc.Images = []*gltf.Image{{URI: "albedo.png"}}

	_, err := ImportAsset(gputest.NewDevice(), gputest.NewPipeline("scene"), loader.NewAsset("scene", "", doc))
	assert.Error(t, err)
}

func TestImportAllocationFailureReleases(t *testing.T) {
	device := gputest.NewDevice()
	device.FailLabelPrefix = "scene_material_0"

	_, err := ImportAsset(device, gputest.NewPipeline("scene"), loader.NewAsset("scene", "", quadDoc()))
	require.ErrorIs(t, err, gputest.ErrInjected)
	require.NotEmpty(t, device.Buffers)
	for _, b := range device.Buffers {
		assert.True(t, b.Released, b.Label())
	}
}

func TestInitializeTwice(t *testing.T) {
	f := importFixture(t, quadDoc())
	tasks := f.model.PendingTasks()

	rec := gputest.NewRecorder("init")
	out, err := f.model.Initialize(rec)
	require.NoError(t, err)
	assert.Same(t, rec, out)
	assert.True(t, f.model.Initialized())
	assert.Zero(t, f.model.PendingTasks())

	copies := rec.Count(gputest.CmdCopyBufferToBuffer) + rec.Count(gputest.CmdCopyBufferToTexture)
	assert.Equal(t, tasks, copies)
	staged := len(f.device.StagingBuffers())

	_, err = f.model.Initialize(rec)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, copies, len(rec.Commands))
	assert.Len(t, f.device.StagingBuffers(), staged)
}

func TestInitializeUploadsContents(t *testing.T) {
	img := loader.SolidTexture(3, 2, [4]byte{1, 2, 3, 4})
	doc := quadDoc()
	doc.Images = []*gltf.Image{{URI: "albedo.png"}}
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}}

	f := importFixture(t, doc, img)
	f.initialize(t)

	assert.Equal(t, doc.Buffers[0].Data, f.device.BufferByLabel("scene_buffer_0").Data)

	wantNode := make([]byte, 64)
	common.PutMat4(wantNode, mgl32.Translate3D(1, 2, 3))
	assert.Equal(t, wantNode, f.device.BufferByLabel("scene_node_0_uniform").Data)

	wantMat := make([]byte, 32)
	common.PutFloat32s(wantMat, 1, 0.5, 0.25, 1, 0.25, 0.75)
	assert.Equal(t, wantMat, f.device.BufferByLabel("scene_material_0_uniform").Data)

	tex := f.model.textures[0].(*gputest.Texture)
	assert.Equal(t, img.Levels[0].Pixels, tex.Levels[0])

	f.model.ReleaseStagingBuffers()
	for _, b := range f.device.StagingBuffers() {
		assert.True(t, b.Released)
	}
}

func TestInitializeImageRecordsEveryMipLevel(t *testing.T) {
	img := loader.BuildMipChain(image.NewRGBA(image.Rect(0, 0, 16, 4)), common.PixelLayoutRGBA8)
	doc := quadDoc()
	doc.Images = []*gltf.Image{{URI: "albedo.png"}}
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}}

	f := importFixture(t, doc, img)
	rec := gputest.NewRecorder("init")
	_, err := f.model.Initialize(rec)
	require.NoError(t, err)

	copies := rec.Filter(gputest.CmdCopyBufferToTexture)
	require.Len(t, copies, 5)
	for i, c := range copies {
		assert.Equal(t, uint32(i), c.MipLevel)
		assert.Equal(t, common.MipExtent(16, uint32(i)), c.Extent.Width)
		assert.Zero(t, c.Layout.BytesPerRow%gpu.CopyBytesPerRowAlignment)
	}
}

func TestInitializeFailureDrainsQueue(t *testing.T) {
	f := importFixture(t, quadDoc())
	f.device.FailLabelPrefix = "scene_node_1_uniform_staging"

	_, err := f.model.Initialize(gputest.NewRecorder("init"))
	require.ErrorIs(t, err, gputest.ErrInjected)
	assert.True(t, f.model.Initialized())

	_, err = f.model.Initialize(gputest.NewRecorder("retry"))
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestDrawSceneInvalidIndex(t *testing.T) {
	f := importFixture(t, quadDoc())
	f.initialize(t)

	for _, idx := range []int{1, -1} {
		rec := gputest.NewRecorder("frame")
		cb, err := f.model.DrawScene(f.drawContext(rec), idx)
		assert.Nil(t, cb)
		require.ErrorIs(t, err, ErrInvalidSceneIndex)
		var sceneErr *InvalidSceneIndexError
		require.True(t, errors.As(err, &sceneErr))
		assert.Equal(t, idx, sceneErr.Index)
		assert.Equal(t, 1, sceneErr.SceneCount)
		assert.Empty(t, rec.Commands)
		assert.Zero(t, rec.FinishCount)
	}
}

func TestDrawMainSceneNoDefault(t *testing.T) {
	doc := quadDoc()
	doc.Scene = nil
	f := importFixture(t, doc)
	f.initialize(t)

	rec := gputest.NewRecorder("frame")
	_, err := f.model.DrawMainScene(f.drawContext(rec))
	assert.ErrorIs(t, err, ErrNoDefaultScene)
	assert.Empty(t, rec.Commands)
}

func TestDrawBeforeInitialize(t *testing.T) {
	f := importFixture(t, quadDoc())

	rec := gputest.NewRecorder("frame")
	_, err := f.model.DrawMainScene(f.drawContext(rec))
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Empty(t, rec.Commands)
}

func TestDrawMainScene(t *testing.T) {
	f := importFixture(t, quadDoc())
	f.initialize(t)

	rec := gputest.NewRecorder("frame")
	cb, err := f.model.DrawMainScene(f.drawContext(rec))
	require.NoError(t, err)
	require.NotNil(t, cb)
	assert.Equal(t, 1, rec.FinishCount)

	kinds := rec.Kinds()
	assert.Equal(t, []gputest.CommandKind{
		gputest.CmdBeginRenderPass,
		gputest.CmdSetPipeline,
		gputest.CmdSetDescriptorSets,
		gputest.CmdSetVertexBuffer,
		gputest.CmdSetIndexBuffer,
		gputest.CmdDrawIndexed,
		gputest.CmdSetDescriptorSets,
		gputest.CmdSetVertexBuffer,
		gputest.CmdDraw,
		gputest.CmdEndRenderPass,
	}, kinds)

	indexed := rec.Filter(gputest.CmdDrawIndexed)
	require.Len(t, indexed, 1)
	assert.Equal(t, uint32(6), indexed[0].Count)
	assert.Equal(t, uint32(1), indexed[0].InstanceCount)

	plain := rec.Filter(gputest.CmdDraw)
	require.Len(t, plain, 1)
	assert.Equal(t, uint32(4), plain[0].Count)

	index := rec.Filter(gputest.CmdSetIndexBuffer)[0]
	assert.Equal(t, gpu.IndexFormatUint16, index.IndexFormat)
	assert.Equal(t, uint64(48), index.Slice.Offset)
	assert.Equal(t, uint64(12), index.Slice.Size)

	vertex := rec.Filter(gputest.CmdSetVertexBuffer)
	assert.Equal(t, uint64(0), vertex[0].Slice.Offset)
	assert.Equal(t, uint64(48), vertex[0].Slice.Size)
	assert.Equal(t, uint64(60), vertex[1].Slice.Offset)

	sets := rec.Filter(gputest.CmdSetDescriptorSets)
	for i, s := range sets {
		assert.Same(t, f.frameSet, s.Sets.Frame)
		assert.Same(t, f.model.nodeSets[i], s.Sets.Node)
		assert.Same(t, f.model.materialSets[0], s.Sets.Material)
	}

	begin := rec.Filter(gputest.CmdBeginRenderPass)[0]
	assert.Equal(t, gpu.DefaultClearValues, begin.Clear)
}

func TestDrawTraversalOrder(t *testing.T) {
	b := newDocBuilder()
	pos := b.positions([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0})
	mat := b.material([4]float64{1, 1, 1, 1})
	mesh := b.mesh(prim(pos, nil, gltf.Index(mat)))

	// 0 -> (1 -> 3), 2; node 4 is not in the scene.
	b.node(&gltf.Node{Mesh: gltf.Index(mesh), Children: []int{1, 2}})
	b.node(&gltf.Node{Mesh: gltf.Index(mesh), Children: []int{3}})
	b.node(&gltf.Node{Mesh: gltf.Index(mesh)})
	b.node(&gltf.Node{Mesh: gltf.Index(mesh)})
	b.node(&gltf.Node{Mesh: gltf.Index(mesh)})
	b.scene(0)
	f := importFixture(t, b.build())
	f.initialize(t)

	rec := gputest.NewRecorder("frame")
	_, err := f.model.DrawScene(f.drawContext(rec), 0)
	require.NoError(t, err)

	var visited []string
	for _, s := range rec.Filter(gputest.CmdSetDescriptorSets) {
		visited = append(visited, s.Sets.Node.Label())
	}
	assert.Equal(t, []string{"scene_node_0", "scene_node_1", "scene_node_3", "scene_node_2"}, visited)
	assert.Equal(t, 4, rec.Count(gputest.CmdDraw))
}

func TestDrawUnsupportedIndexType(t *testing.T) {
	b := newDocBuilder()
	pos := b.positions([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0})
	idx := b.accessor([]byte{0, 1, 2}, gltf.ComponentUbyte, gltf.AccessorScalar, 3)
	mat := b.material([4]float64{1, 1, 1, 1})
	mesh := b.mesh(prim(pos, gltf.Index(idx), gltf.Index(mat)))
	b.scene(b.node(&gltf.Node{Mesh: gltf.Index(mesh)}))

	f := importFixture(t, b.build())
	f.initialize(t)

	_, err := f.model.DrawScene(f.drawContext(gputest.NewRecorder("frame")), 0)
	assert.ErrorIs(t, err, ErrUnsupportedIndexType)
}

func TestDrawUint32Indices(t *testing.T) {
	b := newDocBuilder()
	pos := b.positions([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0})
	idx := b.accessor([]byte{0, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0}, gltf.ComponentUint, gltf.AccessorScalar, 3)
	mat := b.material([4]float64{1, 1, 1, 1})
	mesh := b.mesh(prim(pos, gltf.Index(idx), gltf.Index(mat)))
	b.scene(b.node(&gltf.Node{Mesh: gltf.Index(mesh)}))

	f := importFixture(t, b.build())
	f.initialize(t)

	rec := gputest.NewRecorder("frame")
	_, err := f.model.DrawScene(f.drawContext(rec), 0)
	require.NoError(t, err)
	assert.Equal(t, gpu.IndexFormatUint32, rec.Filter(gputest.CmdSetIndexBuffer)[0].IndexFormat)
	assert.Equal(t, uint32(3), rec.Filter(gputest.CmdDrawIndexed)[0].Count)
}

func TestBounds(t *testing.T) {
	f := importFixture(t, quadDoc())

	lo, hi, err := f.model.Bounds(0)
	require.NoError(t, err)
	assert.True(t, lo.ApproxEqual(mgl32.Vec3{0, 0, 0}))
	assert.True(t, hi.ApproxEqual(mgl32.Vec3{2, 3, 3}))

	_, _, err = f.model.Bounds(4)
	assert.ErrorIs(t, err, ErrInvalidSceneIndex)
}

func TestReleaseReleasesEverything(t *testing.T) {
	f := importFixture(t, quadDoc())
	f.initialize(t)
	f.model.Release()

	for _, b := range f.device.Buffers {
		if b.Label() == "frame_uniform" {
			continue
		}
		assert.True(t, b.Released, b.Label())
	}
	for _, tex := range f.device.Textures {
		assert.True(t, tex.Released)
	}
	for _, s := range f.device.Samplers {
		assert.True(t, s.Released)
	}
}

func TestImportFromFile(t *testing.T) {
	positions := make([]byte, 36)
	common.PutFloat32s(positions, 0, 0, 0, 1, 0, 0, 0, 1, 0)
	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"mesh": 0}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "material": 0}]}],
  "materials": [{}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteLength": 36}],
  "buffers": [{"byteLength": 36, "uri": "data:application/octet-stream;base64,%s"}]
}`, base64.StdEncoding.EncodeToString(positions))
	path := filepath.Join(t.TempDir(), "tri.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	device := gputest.NewDevice()
	m, err := Import(context.Background(), device, gputest.NewPipeline("scene"), path, WithName("tri"))
	require.NoError(t, err)
	assert.Equal(t, "tri", m.Name())
	assert.Equal(t, 1, m.SceneCount())
	scene, ok := m.DefaultScene()
	assert.True(t, ok)
	assert.Zero(t, scene)
	assert.NotNil(t, device.BufferByLabel("tri_buffer_0"))

	mu := materialUniform(m.Document().Materials[0])
	assert.Equal(t, [4]float32{1, 1, 1, 1}, mu.BaseColor)
	assert.Equal(t, float32(1), mu.Metallic)

	_, err = Import(context.Background(), device, gputest.NewPipeline("scene"), filepath.Join(t.TempDir(), "missing.gltf"))
	assert.Error(t, err)
}
