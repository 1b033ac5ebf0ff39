// pre_processor.go implements the WGSL pre-processor. It replaces @oxy: annotations with
// the struct sources embedded by the engine packages and with generated binding declarations,
// so the WGSL structs and their Go marshalers come from a single asset file.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
)

// registryEntry pairs an embedded WGSL struct source with the struct's WGSL type name.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	declarations         []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process replaces include annotations with struct sources and group annotations with
	// @group/@binding declarations. Every struct is included at most once per call.
	// The declarations list is reset at the start of each call.
	//
	// Parameters:
	//   - source: WGSL source containing annotations
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: an error if an annotation is malformed or names an unknown struct or address space
	Process(source string) (string, error)

	// Declarations returns the group annotations of the most recent Process call in source order.
	//
	// Returns:
	//   - []Annotation: the collected declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// PreProcessorOption is a functional option for configuring a PreProcessor.
type PreProcessorOption func(*preProcessor)

// WithStruct registers an additional struct for include and group annotations.
//
// Parameters:
//   - key: the annotation argument naming the struct
//   - typeName: the WGSL struct name declared by source
//   - source: the WGSL struct definition
//
// Returns:
//   - PreProcessorOption: a function that registers the struct
func WithStruct(key AnnotationArg, typeName, source string) PreProcessorOption {
	return func(p *preProcessor) {
		p.structRegistry[key] = registryEntry{Source: source, Type: typeName}
	}
}

// NewPreProcessor creates a PreProcessor with the frame, node and material uniform structs registered.
//
// Parameters:
//   - options: functional options registering extra structs
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(options ...PreProcessorOption) PreProcessor {
	p := &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgFrame:    {Source: camera.GPUFrameUniformSource, Type: "FrameUniform"},
			AnnotationArgNode:     {Source: model.GPUNodeUniformSource, Type: "NodeUniform"},
			AnnotationArgMaterial: {Source: model.GPUMaterialUniformSource, Type: "MaterialUniform"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			"uniform":            "var<uniform>",
			"storage_read":       "var<storage, read>",
			"storage_read_write": "var<storage, read_write>",
		},
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	included := make(map[AnnotationArg]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown struct %q", a.Line, a.Args[0])
			}
			if included[a.Args[0]] {
				continue
			}
			included[a.Args[0]] = true
			out = append(out, strings.TrimRight(entry.Source, "\n"))
		case AnnotationTypeBindingGroup:
			addrSpace, ok := p.addressSpaceRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown address space %q", a.Line, a.Args[0])
			}
			entry, ok := p.structRegistry[a.Args[2]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown struct %q", a.Line, a.Args[2])
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, a.Args[1], entry.Type))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
