package shader

// BindingType classifies the resource a @group/@binding declaration expects.
type BindingType int

const (
	// BindingTypeUniformBuffer is a var<uniform> buffer binding.
	BindingTypeUniformBuffer BindingType = iota

	// BindingTypeStorageBuffer is a var<storage, read_write> buffer binding.
	BindingTypeStorageBuffer

	// BindingTypeReadOnlyStorageBuffer is a var<storage> or var<storage, read> buffer binding.
	BindingTypeReadOnlyStorageBuffer

	// BindingTypeSampledTexture is a texture_* binding sampled with a filtering sampler.
	BindingTypeSampledTexture

	// BindingTypeDepthTexture is a texture_depth_* binding.
	BindingTypeDepthTexture

	// BindingTypeFilteringSampler is a sampler binding.
	BindingTypeFilteringSampler

	// BindingTypeComparisonSampler is a sampler_comparison binding.
	BindingTypeComparisonSampler
)

// IsBuffer reports whether the binding type is one of the buffer binding types.
func (t BindingType) IsBuffer() bool {
	return t <= BindingTypeReadOnlyStorageBuffer
}

// String returns the WGSL-flavored name of the binding type.
func (t BindingType) String() string {
	switch t {
	case BindingTypeUniformBuffer:
		return "uniform"
	case BindingTypeStorageBuffer:
		return "storage"
	case BindingTypeReadOnlyStorageBuffer:
		return "read-only-storage"
	case BindingTypeSampledTexture:
		return "texture"
	case BindingTypeDepthTexture:
		return "depth-texture"
	case BindingTypeFilteringSampler:
		return "sampler"
	case BindingTypeComparisonSampler:
		return "comparison-sampler"
	default:
		return "unknown"
	}
}

// TextureDimension is the view dimension of a texture binding.
type TextureDimension int

const (
	TextureDimension2D TextureDimension = iota
	TextureDimension1D
	TextureDimension2DArray
	TextureDimension3D
	TextureDimensionCube
	TextureDimensionCubeArray
)

// SampleType is the scalar type a texture binding is sampled as.
type SampleType int

const (
	SampleTypeFloat SampleType = iota
	SampleTypeSint
	SampleTypeUint
	SampleTypeDepth
)

// VertexFormat is the format of a single vertex attribute.
type VertexFormat int

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
	VertexFormatSint32
	VertexFormatSint32x2
	VertexFormatSint32x3
	VertexFormatSint32x4
	VertexFormatUint32
	VertexFormatUint32x2
	VertexFormatUint32x3
	VertexFormatUint32x4
)

// Binding is a single resource declaration found in WGSL source.
type Binding struct {
	// Group is the @group index.
	Group uint32

	// Binding is the @binding index within the group.
	Binding uint32

	// Name is the WGSL variable name.
	Name string

	// TypeName is the declared WGSL type, e.g. "FrameUniform" or "texture_2d<f32>".
	TypeName string

	// Type is the resource class derived from the address space and type name.
	Type BindingType

	// MinBindingSize is the byte size of the bound struct for buffer bindings, 0 when unknown.
	MinBindingSize uint64

	// Dimension and SampleType describe texture bindings.
	Dimension  TextureDimension
	SampleType SampleType

	// Multisampled is set for texture_multisampled_2d and texture_depth_multisampled_2d.
	Multisampled bool
}

// VertexAttribute is one @location field of a vertex input struct.
type VertexAttribute struct {
	Location uint32
	Offset   uint64
	Format   VertexFormat
}

// VertexLayout is the tightly packed buffer layout of a vertex input struct.
type VertexLayout struct {
	// Struct is the WGSL struct the layout was built from.
	Struct string

	// Stride is the byte distance between consecutive vertices.
	Stride uint64

	Attributes []VertexAttribute
}

// vertexFormatInfo holds the vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format VertexFormat
	size   uint64
}

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	dimension    TextureDimension
	multisampled bool
}

// wgslTypeLayout holds the byte size and alignment of a WGSL type in the uniform/storage address spaces.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}
