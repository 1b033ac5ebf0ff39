package common

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMipLevelCount(t *testing.T) {
	cases := []struct {
		w, h uint32
		want uint32
	}{
		{0, 0, 1},
		{1, 1, 1},
		{2, 1, 2},
		{256, 256, 9},
		{300, 17, 9},
		{1, 1024, 11},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, MipLevelCount(c.w, c.h), "%dx%d", c.w, c.h)
	}
	assert.Equal(t, uint32(1), MipExtent(4, 5))
	assert.Equal(t, uint32(75), MipExtent(300, 2))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(0), AlignUp(0, 4))
	assert.Equal(t, uint64(4), AlignUp(1, 4))
	assert.Equal(t, uint64(256), AlignUp(256, 256))
	assert.Equal(t, uint64(512), AlignUp(257, 256))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
}

func TestSceneKeyIndex(t *testing.T) {
	idx, ok := SceneKeyIndex(Key1)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = SceneKeyIndex(Key9)
	assert.True(t, ok)
	assert.Equal(t, 8, idx)

	_, ok = SceneKeyIndex(Key0)
	assert.False(t, ok)
	_, ok = SceneKeyIndex(KeyA)
	assert.False(t, ok)
}

func TestPixelLayoutUploadChannels(t *testing.T) {
	assert.Equal(t, 1, PixelLayoutR8.UploadChannels())
	assert.Equal(t, 2, PixelLayoutRG8.UploadChannels())
	assert.Equal(t, 4, PixelLayoutRGB8.UploadChannels())
	assert.Equal(t, 3, PixelLayoutRGB8.Channels())
	assert.Equal(t, "RGB8", PixelLayoutRGB8.String())

	staged := TextureStagingData{SourceLayout: PixelLayoutRGB8}
	assert.Equal(t, uint32(4), staged.BytesPerTexel())
}

func TestPutMat4(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	buf := make([]byte, 64)
	PutMat4(buf, m)

	// Column-major: translation lives in elements 12..14.
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[48:])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(buf[56:])))
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes[float32](nil))
	b := SliceToBytes([]uint32{1, 2})
	require.Len(t, b, 8)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[4:]))
}

func TestPerspectiveMapsDepthToZeroOne(t *testing.T) {
	p := Perspective(mgl32.DegToRad(60), 1, 0.1, 100)

	project := func(z float32) float32 {
		v := p.Mul4x1(mgl32.Vec4{0, 0, z, 1})
		return v.Z() / v.W()
	}
	assert.InDelta(t, 0, project(-0.1), 1e-5)
	assert.InDelta(t, 1, project(-100), 1e-4)
}
