package shader

import (
	"errors"
	"fmt"
)

var ErrMissingEntryPoint = errors.New("shader has no vertex or fragment entry point")

type shader struct {
	key          string
	source       string
	reflection   *Reflection
	declarations []Annotation
}

// Shader is a pre-processed and reflected WGSL module holding a vertex and a fragment stage.
type Shader interface {
	// Key returns the unique identifier of the shader, also used as its module label.
	//
	// Returns:
	//   - string: the shader key
	Key() string

	// Source returns the expanded WGSL source.
	//
	// Returns:
	//   - string: WGSL with every annotation replaced
	Source() string

	// Reflection returns the entry points, bindings and vertex layouts of the module.
	//
	// Returns:
	//   - *Reflection: the module interface
	Reflection() *Reflection

	// Declarations returns the group annotations found while pre-processing.
	//
	// Returns:
	//   - []Annotation: the generated binding declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects WGSL source holding both render stages.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - source: annotated WGSL source
//   - options: options for the pre-processor
//
// Returns:
//   - Shader: the reflected shader
//   - error: an error if pre-processing or reflection fails, or an entry point is missing
func NewShader(key, source string, options ...PreProcessorOption) (Shader, error) {
	pp := NewPreProcessor(options...)
	expanded, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	r, err := Reflect(expanded)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	if r.VertexEntry == "" || r.FragmentEntry == "" {
		return nil, fmt.Errorf("shader %s: %w", key, ErrMissingEntryPoint)
	}
	return &shader{
		key:          key,
		source:       expanded,
		reflection:   r,
		declarations: append([]Annotation(nil), pp.Declarations()...),
	}, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Reflection() *Reflection {
	return s.reflection
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
