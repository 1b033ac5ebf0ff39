// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "fmt"

// PixelLayout describes the channel layout of decoded source pixel data.
type PixelLayout int

const (
	// PixelLayoutR8 is single channel 8-bit data (grayscale).
	PixelLayoutR8 PixelLayout = iota
	// PixelLayoutRG8 is two channel 8-bit data (grayscale + alpha).
	PixelLayoutRG8
	// PixelLayoutRGB8 is three channel 8-bit data. It is expanded to RGBA8 before upload.
	PixelLayoutRGB8
	// PixelLayoutRGBA8 is four channel 8-bit data, non-premultiplied.
	PixelLayoutRGBA8
)

// Channels returns the number of 8-bit channels in the source layout.
func (l PixelLayout) Channels() int {
	switch l {
	case PixelLayoutR8:
		return 1
	case PixelLayoutRG8:
		return 2
	case PixelLayoutRGB8:
		return 3
	default:
		return 4
	}
}

// UploadChannels returns the number of 8-bit channels per texel once the data is staged for upload.
// Three channel data has no GPU equivalent and is staged as four channels.
func (l PixelLayout) UploadChannels() int {
	if l == PixelLayoutRGB8 {
		return 4
	}
	return l.Channels()
}

func (l PixelLayout) String() string {
	switch l {
	case PixelLayoutR8:
		return "R8"
	case PixelLayoutRG8:
		return "RG8"
	case PixelLayoutRGB8:
		return "RGB8"
	case PixelLayoutRGBA8:
		return "RGBA8"
	default:
		return fmt.Sprintf("PixelLayout(%d)", int(l))
	}
}

// MipLevelData holds tightly packed pixel rows for one mip level.
type MipLevelData struct {
	// Width is the width of the level in pixels.
	Width uint32
	// Height is the height of the level in pixels.
	Height uint32
	// Pixels is row-major texel data with UploadChannels bytes per texel and no row padding.
	Pixels []byte
}

// TextureStagingData holds decoded pixel data for an image pending GPU upload.
// Levels[0] is the full resolution image; each following level halves both dimensions (minimum 1).
type TextureStagingData struct {
	// SourceLayout is the channel layout the image was encoded with.
	SourceLayout PixelLayout
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// Levels holds the full mip chain, already converted to the upload channel count.
	Levels []MipLevelData
}

// BytesPerTexel returns the staged texel size in bytes.
func (t TextureStagingData) BytesPerTexel() uint32 {
	return uint32(t.SourceLayout.UploadChannels())
}
