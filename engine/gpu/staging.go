package gpu

import "github.com/Carmen-Shannon/oxy-scene/common"

// PaddedBytesPerRow returns the row pitch of a buffer to texture copy, rounded up to
// CopyBytesPerRowAlignment.
//
// Parameters:
//   - width: the row width in texels
//   - bytesPerTexel: the texel size in bytes
//
// Returns:
//   - uint32: the aligned row pitch in bytes
func PaddedBytesPerRow(width, bytesPerTexel uint32) uint32 {
	return uint32(common.AlignUp(uint64(width)*uint64(bytesPerTexel), CopyBytesPerRowAlignment))
}

// TextureLevelRegion locates one mip level inside a packed staging buffer.
type TextureLevelRegion struct {
	MipLevel uint32
	Layout   TextureDataLayout
	Extent   Extent
}

// PackTextureLevels packs tightly packed mip levels into a single staging payload with every row
// padded to CopyBytesPerRowAlignment and every level starting on an aligned offset.
//
// Parameters:
//   - levels: the mip chain, level 0 first
//   - bytesPerTexel: the texel size of every level
//
// Returns:
//   - []byte: the padded payload
//   - []TextureLevelRegion: the copy region of each level within the payload
func PackTextureLevels(levels []common.MipLevelData, bytesPerTexel uint32) ([]byte, []TextureLevelRegion) {
	regions := make([]TextureLevelRegion, len(levels))
	var total uint64
	for i, lvl := range levels {
		pitch := PaddedBytesPerRow(lvl.Width, bytesPerTexel)
		regions[i] = TextureLevelRegion{
			MipLevel: uint32(i),
			Layout: TextureDataLayout{
				Offset:       total,
				BytesPerRow:  pitch,
				RowsPerImage: lvl.Height,
			},
			Extent: Extent{Width: lvl.Width, Height: lvl.Height},
		}
		total += uint64(pitch) * uint64(lvl.Height)
	}

	out := make([]byte, total)
	for i, lvl := range levels {
		row := int(lvl.Width * bytesPerTexel)
		pitch := int(regions[i].Layout.BytesPerRow)
		base := int(regions[i].Layout.Offset)
		for y := 0; y < int(lvl.Height); y++ {
			copy(out[base+y*pitch:base+y*pitch+row], lvl.Pixels[y*row:(y+1)*row])
		}
	}
	return out, regions
}
