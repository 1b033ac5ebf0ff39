package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float32Bytes(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLocalTransform(t *testing.T) {
	t.Run("explicit matrix", func(t *testing.T) {
		m := mgl32.Translate3D(1, 2, 3)
		node := &gltf.Node{}
		for i, v := range m {
			node.Matrix[i] = float64(v)
		}
		assert.True(t, LocalTransform(node).ApproxEqual(m))
	})

	t.Run("zero valued node is identity", func(t *testing.T) {
		assert.True(t, LocalTransform(&gltf.Node{}).ApproxEqual(mgl32.Ident4()))
	})

	t.Run("translation rotation scale", func(t *testing.T) {
		// 90 degrees about +Y.
		s := float64(math.Sqrt2 / 2)
		node := &gltf.Node{
			Matrix:      gltf.DefaultMatrix,
			Translation: [3]float64{1, 0, 0},
			Rotation:    [4]float64{0, s, 0, s},
			Scale:       [3]float64{2, 2, 2},
		}
		got := LocalTransform(node)
		p := got.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
		// Scale to (2,0,0), rotate to (0,0,-2), translate to (1,0,-2).
		assert.InDelta(t, 1.0, p.X(), 1e-5)
		assert.InDelta(t, 0.0, p.Y(), 1e-5)
		assert.InDelta(t, -2.0, p.Z(), 1e-5)
	})
}

func TestResolveAccessor(t *testing.T) {
	doc := &gltf.Document{
		Buffers:     []*gltf.Buffer{{ByteLength: 48, Data: make([]byte, 48)}},
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteOffset: 12, ByteLength: 36}},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 3},
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 4},
			{BufferView: gltf.Index(0), ByteOffset: 6, ComponentType: gltf.ComponentUshort, Type: gltf.AccessorScalar, Count: 3},
		},
	}

	r, err := ResolveAccessor(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), r.Offset)
	assert.Equal(t, uint64(36), r.Size)
	assert.Equal(t, uint64(12), r.ElementSize)
	assert.Equal(t, uint32(3), r.Count)

	_, err = ResolveAccessor(doc, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccessorOutOfBounds))
	var rangeErr *AccessorRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, uint64(60), rangeErr.End)
	assert.Equal(t, uint64(48), rangeErr.BufferSize)

	r, err = ResolveAccessor(doc, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(18), r.Offset)
	assert.Equal(t, uint64(6), r.Size)

	_, err = ResolveAccessor(doc, 7)
	assert.Error(t, err)
}

func TestResolveAccessorStrided(t *testing.T) {
	// Three vec3 elements interleaved with 12 bytes of other data: stride 24.
	doc := &gltf.Document{
		Buffers:     []*gltf.Buffer{{ByteLength: 64, Data: make([]byte, 64)}},
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteLength: 64, ByteStride: 24}},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 3},
			{BufferView: gltf.Index(0), ByteOffset: 12, ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 3},
		},
	}

	r, err := ResolveAccessor(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(24), r.Stride)

	// Last element would end at 12 + 2*24 + 12 = 72.
	_, err = ResolveAccessor(doc, 1)
	assert.ErrorIs(t, err, ErrAccessorOutOfBounds)
}

func TestResolveAccessorRejectsOverflowingCount(t *testing.T) {
	doc := &gltf.Document{
		Buffers: []*gltf.Buffer{{ByteLength: 48, Data: make([]byte, 48)}},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteLength: 48},
			{Buffer: 0, ByteLength: 48, ByteStride: 24},
		},
		Accessors: []*gltf.Accessor{
			// 12 * 2^62 wraps to zero in 64 bits.
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 1 << 62},
			{BufferView: gltf.Index(1), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 1 << 61},
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentUbyte, Type: gltf.AccessorScalar, Count: 1 << 32},
		},
	}

	for i := range doc.Accessors {
		_, err := ResolveAccessor(doc, i)
		assert.ErrorIs(t, err, ErrAccessorOutOfBounds, "accessor %d", i)
	}

	_, err := ReadVec3Accessor(doc, 0)
	assert.ErrorIs(t, err, ErrAccessorOutOfBounds)
}

func TestAccessorEnd(t *testing.T) {
	end, ok := accessorEnd(8, 12, 12, 0)
	assert.True(t, ok)
	assert.Equal(t, uint64(8), end)

	end, ok = accessorEnd(12, 12, 24, 3)
	assert.True(t, ok)
	assert.Equal(t, uint64(72), end)

	// A stride below the element size still spans whole elements.
	end, ok = accessorEnd(0, 12, 4, 2)
	assert.True(t, ok)
	assert.Equal(t, uint64(24), end)

	_, ok = accessorEnd(0, 12, 12, 1<<62)
	assert.False(t, ok)
	_, ok = accessorEnd(math.MaxUint64-4, 4, 4, 2)
	assert.False(t, ok)
}

func TestReadBufferViewRejectsNegativeLength(t *testing.T) {
	doc := &gltf.Document{
		Buffers:     []*gltf.Buffer{{ByteLength: 16, Data: make([]byte, 16)}},
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteOffset: 8, ByteLength: -4}},
	}
	a := NewAsset("view", "", doc)

	assert.NotPanics(t, func() {
		_, err := gltfReadBufferView(a, 0)
		assert.Error(t, err)
	})
}

func TestReadVec3Accessor(t *testing.T) {
	data := float32Bytes(1, 2, 3, 99, 4, 5, 6, 99)
	doc := &gltf.Document{
		Buffers:     []*gltf.Buffer{{ByteLength: len(data), Data: data}},
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteLength: len(data), ByteStride: 16}},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorVec3, Count: 2},
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentFloat, Type: gltf.AccessorScalar, Count: 2},
		},
	}

	got, err := ReadVec3Accessor(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, [][3]float32{{1, 2, 3}, {4, 5, 6}}, got)

	_, err = ReadVec3Accessor(doc, 1)
	assert.ErrorIs(t, err, errUnexpectedAccessor)
}

func TestDecodeDataURI(t *testing.T) {
	payload := []byte{0, 1, 2, 3, 250}
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(payload)

	data, mime, err := gltfDecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "application/octet-stream", mime)

	_, _, err = gltfDecodeDataURI("image.png")
	assert.ErrorIs(t, err, errNotDataURI)

	_, _, err = gltfDecodeDataURI("data:image/png;base64")
	assert.Error(t, err)
}

func TestDecodeImageLayouts(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 2))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i * 10)
	}

	opaque := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	translucent := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			opaque.SetNRGBA(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
			translucent.SetNRGBA(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
		}
	}

	tests := []struct {
		name       string
		img        image.Image
		wantLayout common.PixelLayout
		wantFirst  []byte
		wantLevels int
	}{
		{name: "gray", img: gray, wantLayout: common.PixelLayoutR8, wantFirst: []byte{0}, wantLevels: 3},
		{name: "opaque rgb expands alpha", img: opaque, wantLayout: common.PixelLayoutRGB8, wantFirst: []byte{10, 20, 30, 255}, wantLevels: 2},
		{name: "rgba", img: translucent, wantLayout: common.PixelLayoutRGBA8, wantFirst: []byte{10, 20, 30, 128}, wantLevels: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			staged, err := DecodeImage(encodePNG(t, tt.img))
			require.NoError(t, err)
			assert.Equal(t, tt.wantLayout, staged.SourceLayout)
			require.Len(t, staged.Levels, tt.wantLevels)

			base := staged.Levels[0]
			assert.Equal(t, uint32(tt.img.Bounds().Dx()), base.Width)
			assert.Equal(t, uint32(tt.img.Bounds().Dy()), base.Height)
			assert.Equal(t, tt.wantFirst, base.Pixels[:len(tt.wantFirst)])

			bpt := int(staged.BytesPerTexel())
			for _, lvl := range staged.Levels {
				assert.Len(t, lvl.Pixels, int(lvl.Width*lvl.Height)*bpt)
			}
			last := staged.Levels[len(staged.Levels)-1]
			assert.Equal(t, uint32(1), last.Width)
			assert.Equal(t, uint32(1), last.Height)
		})
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := DecodeImage([]byte("not an image"))
	assert.Error(t, err)
}

func TestSolidTexture(t *testing.T) {
	tex := SolidTexture(1, 1, [4]byte{255, 255, 255, 255})
	require.Len(t, tex.Levels, 1)
	assert.Equal(t, []byte{255, 255, 255, 255}, tex.Levels[0].Pixels)
	assert.Equal(t, uint32(4), tex.BytesPerTexel())
}

// writeTriangleGLTF writes a single-triangle glTF file with an embedded buffer and a data URI image.
func writeTriangleGLTF(t *testing.T, dir string) string {
	t.Helper()
	positions := float32Bytes(0, 0, 0, 1, 0, 0, 0, 1, 0)
	pngData := encodePNG(t, image.NewGray(image.Rect(0, 0, 2, 2)))

	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"mesh": 0, "translation": [0, 1, 0]}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "material": 0}]}],
  "materials": [{"pbrMetallicRoughness": {"baseColorTexture": {"index": 0}}}],
  "textures": [{"source": 0}],
  "images": [{"uri": "data:image/png;base64,%s"}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteLength": %d}],
  "buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}]
}`, base64.StdEncoding.EncodeToString(pngData), len(positions), len(positions), base64.StdEncoding.EncodeToString(positions))

	path := filepath.Join(dir, "triangle.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoaderLoad(t *testing.T) {
	path := writeTriangleGLTF(t, t.TempDir())

	l := NewLoader(BackendTypeGLTF, WithDecodeWorkers(2))
	defer l.Close()

	a, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, a.Document)
	assert.Len(t, a.Document.Nodes, 1)
	assert.Len(t, a.Document.Buffers[0].Data, 36)
	require.Len(t, a.Images, 1)
	assert.Equal(t, common.PixelLayoutR8, a.Images[0].SourceLayout)
	assert.Len(t, a.Images[0].Levels, 2)

	again, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.Same(t, a, l.Get(path))
	assert.Len(t, l.Assets(), 1)

	l.Evict(path)
	assert.Nil(t, l.Get(path))
}

func TestLoaderLoadReader(t *testing.T) {
	path := writeTriangleGLTF(t, t.TempDir())
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	l := NewLoader(BackendTypeGLTF, WithSkipImages())
	defer l.Close()

	a, err := l.LoadReader(context.Background(), "triangle", filepath.Dir(path), f)
	require.NoError(t, err)
	assert.Empty(t, a.Images)

	require.NoError(t, l.DecodeImages(context.Background(), a))
	assert.Len(t, a.Images, 1)
}

func TestLoaderRejectsUnknownExtension(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	defer l.Close()

	_, err := l.Load(context.Background(), "scene.fbx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeImagesCancelled(t *testing.T) {
	path := writeTriangleGLTF(t, t.TempDir())
	l := NewLoader(BackendTypeGLTF, WithSkipImages())
	defer l.Close()

	a, err := l.Load(context.Background(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.DecodeImages(ctx, a), context.Canceled)
}

func TestImageBlobMissingFile(t *testing.T) {
	a := NewAsset("missing", t.TempDir(), &gltf.Document{
		Images: []*gltf.Image{{URI: "nope.png"}},
	})
	_, err := gltfImageBlob(a, 0)
	assert.Error(t, err)

	a.Document.Images[0].URI = ""
	_, err = gltfImageBlob(a, 0)
	assert.ErrorIs(t, err, errImageNoBytes)
}
