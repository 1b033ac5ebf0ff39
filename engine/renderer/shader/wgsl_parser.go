package shader

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrDuplicateBinding        = errors.New("binding declared twice")
	ErrUnknownResource         = errors.New("unknown resource type")
	ErrUnresolvedType          = errors.New("buffer binding type cannot be sized")
	ErrUnsupportedVertexFormat = errors.New("unsupported vertex attribute type")
)

// wgslVertexFormatMap maps WGSL type names to their vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {VertexFormatFloat32, 4},
	"vec2f":     {VertexFormatFloat32x2, 8},
	"vec2<f32>": {VertexFormatFloat32x2, 8},
	"vec3f":     {VertexFormatFloat32x3, 12},
	"vec3<f32>": {VertexFormatFloat32x3, 12},
	"vec4f":     {VertexFormatFloat32x4, 16},
	"vec4<f32>": {VertexFormatFloat32x4, 16},
	"i32":       {VertexFormatSint32, 4},
	"vec2i":     {VertexFormatSint32x2, 8},
	"vec2<i32>": {VertexFormatSint32x2, 8},
	"vec3i":     {VertexFormatSint32x3, 12},
	"vec3<i32>": {VertexFormatSint32x3, 12},
	"vec4i":     {VertexFormatSint32x4, 16},
	"vec4<i32>": {VertexFormatSint32x4, 16},
	"u32":       {VertexFormatUint32, 4},
	"vec2u":     {VertexFormatUint32x2, 8},
	"vec2<u32>": {VertexFormatUint32x2, 8},
	"vec3u":     {VertexFormatUint32x3, 12},
	"vec3<u32>": {VertexFormatUint32x3, 12},
	"vec4u":     {VertexFormatUint32x4, 16},
	"vec4<u32>": {VertexFormatUint32x4, 16},
}

// wgslSampledTextureMap maps WGSL texture base names to their view dimension and multisampled flag
var wgslSampledTextureMap = map[string]sampledTextureInfo{
	"texture_1d":                    {TextureDimension1D, false},
	"texture_2d":                    {TextureDimension2D, false},
	"texture_2d_array":              {TextureDimension2DArray, false},
	"texture_3d":                    {TextureDimension3D, false},
	"texture_cube":                  {TextureDimensionCube, false},
	"texture_cube_array":            {TextureDimensionCubeArray, false},
	"texture_multisampled_2d":       {TextureDimension2D, true},
	"texture_depth_2d":              {TextureDimension2D, false},
	"texture_depth_2d_array":        {TextureDimension2DArray, false},
	"texture_depth_cube":            {TextureDimensionCube, false},
	"texture_depth_cube_array":      {TextureDimensionCubeArray, false},
	"texture_depth_multisampled_2d": {TextureDimension2D, true},
}

// wgslSampleTypeMap maps WGSL scalar type parameters to their texture sample type
var wgslSampleTypeMap = map[string]SampleType{
	"f32": SampleTypeFloat,
	"i32": SampleTypeSint,
	"u32": SampleTypeUint,
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture is greedy to keep parameterized types like array<T, N> whole.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name and type
	// from declarations like: @group(0) @binding(0) var<uniform> frame: FrameUniform;
	// or handle types: @group(2) @binding(1) var base_color: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// Reflection is the resource interface of a WGSL module: its entry points, its bind group
// declarations and the buffer layouts of its vertex input structs.
type Reflection struct {
	// VertexEntry is the name of the first @vertex function, empty if there is none.
	VertexEntry string

	// FragmentEntry is the name of the first @fragment function, empty if there is none.
	FragmentEntry string

	// Bindings holds every declared resource, sorted by group then binding.
	Bindings []Binding

	// VertexLayouts holds one layout per vertex input struct, in source order.
	VertexLayouts []VertexLayout

	structs map[string]wgslTypeLayout
}

// Reflect parses WGSL source and extracts everything a render pipeline needs to build its layouts.
//
// Parameters:
//   - source: WGSL source, already pre-processed
//
// Returns:
//   - *Reflection: the extracted interface
//   - error: an error if a binding is declared twice, uses an unknown resource type, binds a
//     buffer whose size cannot be computed, or a vertex input field has no vertex format
func Reflect(source string) (*Reflection, error) {
	cleaned := stripComments(source)
	structs := parseStructBlocks(cleaned)

	r := &Reflection{
		VertexEntry:   parseEntryPoint(cleaned, vertexEntryRegex),
		FragmentEntry: parseEntryPoint(cleaned, fragmentEntryRegex),
		structs:       computeStructSizes(structs),
	}

	bindings, err := parseBindings(cleaned, r.structs)
	if err != nil {
		return nil, err
	}
	r.Bindings = bindings

	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		layout, err := buildVertexLayout(ps)
		if err != nil {
			return nil, err
		}
		r.VertexLayouts = append(r.VertexLayouts, layout)
	}
	return r, nil
}

// Group returns the bindings declared for a group, sorted by binding index.
//
// Parameters:
//   - group: the @group index
//
// Returns:
//   - []Binding: the group's bindings, nil if the group is not declared
func (r *Reflection) Group(group uint32) []Binding {
	var out []Binding
	for _, b := range r.Bindings {
		if b.Group == group {
			out = append(out, b)
		}
	}
	return out
}

// GroupCount returns one past the highest declared group index.
//
// Returns:
//   - uint32: the number of bind group slots the module spans
func (r *Reflection) GroupCount() uint32 {
	if len(r.Bindings) == 0 {
		return 0
	}
	return r.Bindings[len(r.Bindings)-1].Group + 1
}

// StructSize returns the host-shareable byte size of a struct declared in the module.
//
// Parameters:
//   - name: the WGSL struct name
//
// Returns:
//   - uint64: the struct size rounded up to its alignment
//   - bool: false if the struct is unknown or could not be sized
func (r *Reflection) StructSize(name string) (uint64, bool) {
	l, ok := r.structs[name]
	return l.size, ok
}

// parseBindings extracts all @group(N) @binding(M) declarations from comment-free source.
func parseBindings(cleaned string, structSizes map[string]wgslTypeLayout) ([]Binding, error) {
	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)
	out := make([]Binding, 0, len(matches))
	seen := make(map[[2]uint32]string, len(matches))

	for _, match := range matches {
		group, _ := strconv.ParseUint(match[1], 10, 32)
		binding, _ := strconv.ParseUint(match[2], 10, 32)
		addressSpace := strings.TrimSpace(match[3])
		name := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		key := [2]uint32{uint32(group), uint32(binding)}
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("@group(%d) @binding(%d) %s and %s: %w", group, binding, prev, name, ErrDuplicateBinding)
		}
		seen[key] = name

		b, err := classifyResource(addressSpace, typeName)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
		b.Group, b.Binding, b.Name, b.TypeName = key[0], key[1], name, typeName

		if b.Type.IsBuffer() {
			layout, ok := resolveTypeLayout(typeName, structSizes)
			if !ok || layout.size == 0 {
				return nil, fmt.Errorf("binding %s of type %s: %w", name, typeName, ErrUnresolvedType)
			}
			b.MinBindingSize = layout.size
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Binding < out[j].Binding
	})
	return out, nil
}

func parseEntryPoint(cleaned string, re *regexp.Regexp) string {
	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses the body of a struct block into individual fields
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{
			location:  -1,
			isBuiltin: builtinRegex.MatchString(line),
		}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}
