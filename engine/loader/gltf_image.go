package loader

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-scene/common"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	errNotDataURI   = errors.New("not a data URI")
	errImageNoBytes = errors.New("image has neither a bufferView nor a URI")
)

// pngSignature is the 8-byte PNG file signature.
var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// PNG IHDR color types.
const (
	pngColorGray      = 0
	pngColorRGB       = 2
	pngColorPalette   = 3
	pngColorGrayAlpha = 4
	pngColorRGBA      = 6
)

// gltfImageBlob returns the encoded bytes of an image, read from its bufferView, a data URI,
// or a file relative to the asset's base directory.
func gltfImageBlob(a *Asset, imageIndex int) ([]byte, error) {
	doc := a.Document
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imageIndex)
	}
	img := doc.Images[imageIndex]

	if img.BufferView != nil {
		data, err := gltfReadBufferView(a, *img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %d buffer view: %w", imageIndex, err)
		}
		return data, nil
	}

	if strings.HasPrefix(img.URI, "data:") {
		data, _, err := gltfDecodeDataURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image %d data URI: %w", imageIndex, err)
		}
		return data, nil
	}

	if img.URI != "" {
		data, err := os.ReadFile(filepath.Join(a.BaseDir, filepath.FromSlash(img.URI)))
		if err != nil {
			return nil, fmt.Errorf("failed to read image %d: %w", imageIndex, err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("image %d: %w", imageIndex, errImageNoBytes)
}

// gltfReadBufferView returns the raw bytes of a buffer view without accessor interpretation.
func gltfReadBufferView(a *Asset, bufferViewIndex int) ([]byte, error) {
	doc := a.Document
	if bufferViewIndex < 0 || bufferViewIndex >= len(doc.BufferViews) {
		return nil, fmt.Errorf("bufferView index %d out of range", bufferViewIndex)
	}
	bv := doc.BufferViews[bufferViewIndex]
	data, err := a.BufferData(bv.Buffer)
	if err != nil {
		return nil, err
	}

	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || end > len(data) {
		return nil, fmt.Errorf("bufferView exceeds buffer bounds: offset=%d length=%d bufSize=%d", bv.ByteOffset, bv.ByteLength, len(data))
	}
	return data[bv.ByteOffset:end], nil
}

// gltfDecodeDataURI decodes a data URI of the form data:[<mediatype>][;base64],<data>.
func gltfDecodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", errNotDataURI
	}
	header, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI: no comma found")
	}

	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return []byte(encoded), mimeType, nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, mimeType, nil
}

// DecodeImage decodes an encoded image (PNG, JPEG, BMP or WebP) and builds its full mip chain.
// The source channel layout is preserved where the GPU has a matching format; three channel
// images are expanded to four channels with opaque alpha.
//
// Parameters:
//   - data: the encoded image bytes
//
// Returns:
//   - common.TextureStagingData: the decoded mip chain
//   - error: an error if the image cannot be decoded
func DecodeImage(data []byte) (common.TextureStagingData, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("failed to decode image: %w", err)
	}
	layout := detectPixelLayout(data, img)
	common.Logger().Debug("decoded image", "format", format, "layout", layout, "bounds", img.Bounds())
	return BuildMipChain(img, layout), nil
}

// detectPixelLayout determines how many channels the encoded image carries.
// PNG headers are inspected directly because the standard decoder widens gray+alpha to NRGBA.
func detectPixelLayout(data []byte, img image.Image) common.PixelLayout {
	if len(data) > 25 && bytes.HasPrefix(data, pngSignature) {
		switch data[25] {
		case pngColorGray:
			return common.PixelLayoutR8
		case pngColorGrayAlpha:
			return common.PixelLayoutRG8
		case pngColorRGB:
			return common.PixelLayoutRGB8
		case pngColorRGBA:
			return common.PixelLayoutRGBA8
		case pngColorPalette:
			if p, ok := img.(*image.Paletted); ok && p.Opaque() {
				return common.PixelLayoutRGB8
			}
			return common.PixelLayoutRGBA8
		}
	}

	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return common.PixelLayoutR8
	case *image.YCbCr, *image.CMYK:
		return common.PixelLayoutRGB8
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return common.PixelLayoutRGB8
	}
	return common.PixelLayoutRGBA8
}

// BuildMipChain converts an image to the staged channel count of layout and downsamples it
// into a full mip chain with bilinear filtering.
//
// Parameters:
//   - img: the decoded image
//   - layout: the source channel layout
//
// Returns:
//   - common.TextureStagingData: the staged mip chain
func BuildMipChain(img image.Image, layout common.PixelLayout) common.TextureStagingData {
	b := img.Bounds()
	base := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(base, base.Bounds(), img, b.Min, draw.Src)

	width, height := uint32(b.Dx()), uint32(b.Dy())
	count := common.MipLevelCount(width, height)
	out := common.TextureStagingData{
		SourceLayout: layout,
		Width:        width,
		Height:       height,
		Levels:       make([]common.MipLevelData, 0, count),
	}

	prev := base
	for level := uint32(0); level < count; level++ {
		cur := prev
		if level > 0 {
			w, h := common.MipExtent(width, level), common.MipExtent(height, level)
			cur = image.NewNRGBA(image.Rect(0, 0, int(w), int(h)))
			xdraw.BiLinear.Scale(cur, cur.Bounds(), prev, prev.Bounds(), xdraw.Src, nil)
		}
		out.Levels = append(out.Levels, common.MipLevelData{
			Width:  uint32(cur.Rect.Dx()),
			Height: uint32(cur.Rect.Dy()),
			Pixels: packNRGBA(cur, layout),
		})
		prev = cur
	}
	return out
}

// packNRGBA extracts tightly packed texels for layout from an NRGBA image.
// R8 keeps the red (luma) channel, RG8 keeps luma and alpha, RGB8 is staged with alpha forced to 255.
func packNRGBA(img *image.NRGBA, layout common.PixelLayout) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	channels := layout.UploadChannels()
	out := make([]byte, w*h*channels)

	i := 0
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+4]
			switch layout {
			case common.PixelLayoutR8:
				out[i] = px[0]
			case common.PixelLayoutRG8:
				out[i], out[i+1] = px[0], px[3]
			case common.PixelLayoutRGB8:
				out[i], out[i+1], out[i+2], out[i+3] = px[0], px[1], px[2], 0xff
			default:
				copy(out[i:i+4], px)
			}
			i += channels
		}
	}
	return out
}

// SolidTexture returns a one level RGBA staging image of the given color.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//   - rgba: the fill color
//
// Returns:
//   - common.TextureStagingData: the staged image
func SolidTexture(width, height uint32, rgba [4]byte) common.TextureStagingData {
	pixels := make([]byte, width*height*4)
	for i := 0; i < len(pixels); i += 4 {
		copy(pixels[i:i+4], rgba[:])
	}
	return common.TextureStagingData{
		SourceLayout: common.PixelLayoutRGBA8,
		Width:        width,
		Height:       height,
		Levels:       []common.MipLevelData{{Width: width, Height: height, Pixels: pixels}},
	}
}
