package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-scene/common"
)

// wgslPrimitiveLayoutMap maps WGSL scalar, vector, matrix and atomic type names
// to their byte size and alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	// matCxR<f32>: C columns of vecR<f32>
	"mat2x2<f32>": {16, 8},
	"mat2x3<f32>": {32, 16},
	"mat2x4<f32>": {32, 16},
	"mat3x2<f32>": {24, 8},
	"mat3x3<f32>": {48, 16},
	"mat3x4<f32>": {48, 16},
	"mat4x2<f32>": {32, 8},
	"mat4x3<f32>": {64, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},

	"atomic<u32>": {4, 4},
	"atomic<i32>": {4, 4},
}

// resolveTypeLayout resolves a WGSL type name to its size and alignment using primitives
// and previously computed struct layouts. Runtime-sized arrays resolve to a single element stride.
//
// Parameters:
//   - typeName: the WGSL type name to resolve, e.g. "f32", "FrameUniform", "array<vec4<f32>, 4>"
//   - knownTypes: already resolved struct layouts
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: false for unknown types
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return wgslTypeLayout{}, false
	}
	inner = strings.TrimSuffix(inner, ">")

	// the element type may itself be parameterized, so only a top-level comma separates the count
	parts := splitAtTopLevelCommas(inner)
	elemLayout, ok := resolveTypeLayout(strings.TrimSpace(parts[0]), knownTypes)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := common.AlignUp(elemLayout.size, elemLayout.align)
	if len(parts) == 1 {
		return wgslTypeLayout{stride, elemLayout.align}, true
	}

	count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	return wgslTypeLayout{count * stride, elemLayout.align}, true
}

// computeStructLayout places each field at its next aligned offset and rounds the total size
// up to the largest field alignment. @builtin fields are not part of a buffer layout and are skipped.
func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)

	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}
		fieldLayout, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = common.AlignUp(offset, fieldLayout.align) + fieldLayout.size
		maxAlign = max(maxAlign, fieldLayout.align)
	}
	return wgslTypeLayout{common.AlignUp(offset, maxAlign), maxAlign}, true
}

// computeStructSizes sizes every parsed struct. Structs that embed other structs are retried
// until no further struct resolves, so declaration order does not matter.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)

	for len(remaining) > 0 {
		next := remaining[:0]
		for _, ps := range remaining {
			if layout, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}

// classifyResource derives the binding type from the address space qualifier and type name.
//
// Parameters:
//   - addressSpace: e.g. "uniform", "storage, read_write"; empty for handle types
//   - typeName: e.g. "FrameUniform", "texture_2d<f32>", "sampler"
//
// Returns:
//   - Binding: a binding with Type and the texture fields populated
//   - error: ErrUnknownResource if the declaration is not a supported resource
func classifyResource(addressSpace, typeName string) (Binding, error) {
	var b Binding

	if addressSpace != "" {
		switch {
		case addressSpace == "uniform":
			b.Type = BindingTypeUniformBuffer
		case strings.HasPrefix(addressSpace, "storage") && strings.Contains(addressSpace, "read_write"):
			b.Type = BindingTypeStorageBuffer
		case strings.HasPrefix(addressSpace, "storage"):
			b.Type = BindingTypeReadOnlyStorageBuffer
		default:
			return b, fmt.Errorf("address space %q: %w", addressSpace, ErrUnknownResource)
		}
		return b, nil
	}

	switch {
	case typeName == "sampler":
		b.Type = BindingTypeFilteringSampler
	case typeName == "sampler_comparison":
		b.Type = BindingTypeComparisonSampler
	case strings.HasPrefix(typeName, "texture_depth_"):
		info, ok := wgslSampledTextureMap[typeName]
		if !ok {
			return b, fmt.Errorf("type %q: %w", typeName, ErrUnknownResource)
		}
		b.Type = BindingTypeDepthTexture
		b.SampleType = SampleTypeDepth
		b.Dimension, b.Multisampled = info.dimension, info.multisampled
	case strings.HasPrefix(typeName, "texture_"):
		base, param := splitTypeParams(typeName)
		info, ok := wgslSampledTextureMap[base]
		if !ok {
			return b, fmt.Errorf("type %q: %w", typeName, ErrUnknownResource)
		}
		st, ok := wgslSampleTypeMap[param]
		if !ok {
			return b, fmt.Errorf("sample type %q of %q: %w", param, typeName, ErrUnknownResource)
		}
		b.Type = BindingTypeSampledTexture
		b.SampleType = st
		b.Dimension, b.Multisampled = info.dimension, info.multisampled
	default:
		return b, fmt.Errorf("type %q: %w", typeName, ErrUnknownResource)
	}
	return b, nil
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32").
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// stripComments removes line comments and nested block comments from WGSL source.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

func stripLineComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// isVertexInputStruct reports whether a struct has @location fields and no @builtin fields,
// which separates vertex inputs from stage outputs carrying @builtin(position).
func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// buildVertexLayout packs the fields of a vertex input struct back to back in declaration order.
func buildVertexLayout(ps parsedStruct) (VertexLayout, error) {
	layout := VertexLayout{
		Struct:     ps.name,
		Attributes: make([]VertexAttribute, 0, len(ps.fields)),
	}

	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return VertexLayout{}, fmt.Errorf("%s.%s: %q: %w", ps.name, f.name, f.typeName, ErrUnsupportedVertexFormat)
		}
		layout.Attributes = append(layout.Attributes, VertexAttribute{
			Location: uint32(f.location),
			Offset:   layout.Stride,
			Format:   info.format,
		})
		layout.Stride += info.size
	}
	return layout, nil
}

// splitAtTopLevelCommas splits a string at commas that are not nested inside angle brackets,
// keeping types like array<vec4<f32>, 4> intact.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
