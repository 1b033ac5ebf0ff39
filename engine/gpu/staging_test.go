package gpu

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaddedBytesPerRow(t *testing.T) {
	assert.Equal(t, uint32(256), PaddedBytesPerRow(1, 4))
	assert.Equal(t, uint32(256), PaddedBytesPerRow(64, 4))
	assert.Equal(t, uint32(512), PaddedBytesPerRow(65, 4))
	assert.Equal(t, uint32(256), PaddedBytesPerRow(3, 1))
}

func TestPackTextureLevels(t *testing.T) {
	level0 := common.MipLevelData{Width: 2, Height: 2, Pixels: []byte{
		1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4,
	}}
	level1 := common.MipLevelData{Width: 1, Height: 1, Pixels: []byte{9, 9, 9, 9}}

	data, regions := PackTextureLevels([]common.MipLevelData{level0, level1}, 4)
	require.Len(t, regions, 2)
	require.Len(t, data, 3*256)

	assert.Equal(t, TextureDataLayout{Offset: 0, BytesPerRow: 256, RowsPerImage: 2}, regions[0].Layout)
	assert.Equal(t, Extent{Width: 2, Height: 2}, regions[0].Extent)
	assert.Equal(t, uint32(1), regions[1].MipLevel)
	assert.Equal(t, uint64(512), regions[1].Layout.Offset)

	assert.Equal(t, []byte{1, 1, 1, 1, 2, 2, 2, 2}, data[0:8])
	assert.Equal(t, byte(0), data[8])
	assert.Equal(t, []byte{3, 3, 3, 3, 4, 4, 4, 4}, data[256:264])
	assert.Equal(t, []byte{9, 9, 9, 9}, data[512:516])
}
