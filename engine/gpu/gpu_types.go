package gpu

import "fmt"

// BufferUsage is a bit set of the ways a device buffer may be used.
type BufferUsage uint32

const (
	BufferUsageCopySrc BufferUsage = 1 << iota
	BufferUsageCopyDst
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndirect
)

// BufferUsageAll is every usage an imported asset buffer may be bound with.
// Imported buffers are granted all of them instead of deriving usage from accessors.
const BufferUsageAll = BufferUsageVertex | BufferUsageIndex | BufferUsageUniform |
	BufferUsageStorage | BufferUsageIndirect | BufferUsageCopyDst

// Has reports whether every bit in flag is set.
func (u BufferUsage) Has(flag BufferUsage) bool {
	return u&flag == flag
}

// TextureFormat is the texel format of a device texture.
type TextureFormat int

const (
	TextureFormatUndefined TextureFormat = iota
	// TextureFormatR8Unorm is one 8-bit normalized channel.
	TextureFormatR8Unorm
	// TextureFormatRG8Unorm is two 8-bit normalized channels.
	TextureFormatRG8Unorm
	// TextureFormatRGBA8UnormSrgb is four 8-bit channels with sRGB color channels.
	TextureFormatRGBA8UnormSrgb
)

// BytesPerTexel returns the size of one texel in bytes.
func (f TextureFormat) BytesPerTexel() uint32 {
	switch f {
	case TextureFormatR8Unorm:
		return 1
	case TextureFormatRG8Unorm:
		return 2
	case TextureFormatRGBA8UnormSrgb:
		return 4
	default:
		return 0
	}
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatR8Unorm:
		return "R8Unorm"
	case TextureFormatRG8Unorm:
		return "RG8Unorm"
	case TextureFormatRGBA8UnormSrgb:
		return "RGBA8UnormSrgb"
	default:
		return fmt.Sprintf("TextureFormat(%d)", int(f))
	}
}

// IndexFormat is the element type of an index buffer.
type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota + 1
	IndexFormatUint32
)

// Size returns the byte size of one index.
func (f IndexFormat) Size() uint64 {
	if f == IndexFormatUint16 {
		return 2
	}
	return 4
}

func (f IndexFormat) String() string {
	switch f {
	case IndexFormatUint16:
		return "Uint16"
	case IndexFormatUint32:
		return "Uint32"
	default:
		return fmt.Sprintf("IndexFormat(%d)", int(f))
	}
}

// AddressMode controls how texture coordinates outside [0, 1] are resolved.
type AddressMode int

const (
	AddressModeRepeat AddressMode = iota
	AddressModeMirrorRepeat
	AddressModeClampToEdge
)

// FilterMode controls texel filtering for magnification, minification and mip selection.
type FilterMode int

const (
	FilterModeLinear FilterMode = iota
	FilterModeNearest
)

// BufferDescriptor describes a device buffer allocation.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// TextureDescriptor describes a 2D device texture allocation.
type TextureDescriptor struct {
	Label         string
	Width         uint32
	Height        uint32
	MipLevelCount uint32
	Format        TextureFormat
}

// SamplerDescriptor describes a texture sampler. The zero value is a linear, repeating sampler.
type SamplerDescriptor struct {
	Label                                    string
	AddressModeU, AddressModeV, AddressModeW AddressMode
	MagFilter, MinFilter, MipmapFilter       FilterMode
	LodMinClamp, LodMaxClamp                 float32
}

// DescriptorSetEntry binds exactly one resource at a binding index. Exactly one of
// Buffer, Texture or Sampler is set.
type DescriptorSetEntry struct {
	Binding uint32
	Buffer  Buffer
	Texture Texture
	Sampler Sampler
}

// DescriptorSetDescriptor describes a descriptor set built against one slot of a pipeline layout.
type DescriptorSetDescriptor struct {
	Label   string
	Slot    uint32
	Entries []DescriptorSetEntry
}

// Descriptor set slots of the scene pipeline layout.
const (
	SlotFrame    uint32 = 0
	SlotNode     uint32 = 1
	SlotMaterial uint32 = 2
)

// DescriptorSets is the fixed triple bound for every draw: frame-global, per-node, per-material.
type DescriptorSets struct {
	Frame    DescriptorSet
	Node     DescriptorSet
	Material DescriptorSet
}

// BufferSlice is a byte range of a device buffer.
type BufferSlice struct {
	Buffer Buffer
	Offset uint64
	Size   uint64
}

// End returns the exclusive end offset of the slice.
func (s BufferSlice) End() uint64 {
	return s.Offset + s.Size
}

// TextureDataLayout describes how texel rows are laid out in a staging buffer.
type TextureDataLayout struct {
	Offset       uint64
	BytesPerRow  uint32
	RowsPerImage uint32
}

// Extent is the size of a texture copy region.
type Extent struct {
	Width  uint32
	Height uint32
}

// Color is a linear RGBA clear color.
type Color struct {
	R, G, B, A float64
}

// ClearValues are the attachment clear values used when a render pass begins.
type ClearValues struct {
	Color Color
	Depth float32
}

// DefaultClearValues clears to a dark gray with a far depth of 1.
var DefaultClearValues = ClearValues{
	Color: Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	Depth: 1.0,
}

// CopyBytesPerRowAlignment is the required alignment of BytesPerRow for buffer to texture copies.
const CopyBytesPerRowAlignment = 256

// CopyBufferAlignment is the required alignment of buffer to buffer copy sizes and offsets.
const CopyBufferAlignment = 4
