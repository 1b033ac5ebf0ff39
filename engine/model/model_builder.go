package model

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
)

// ModelBuilderOption is a functional option for configuring a Model during Import or ImportAsset.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
// The name prefixes the label of every GPU resource the model allocates.
// Defaults to the asset name.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithLoader is an option builder that sets the Loader used by Import.
// Without it Import creates a short lived loader for the call.
//
// Parameters:
//   - l: the loader to resolve the asset path with
//
// Returns:
//   - ModelBuilderOption: a function that applies the loader option to a model
func WithLoader(l loader.Loader) ModelBuilderOption {
	return func(m *model) {
		m.loader = l
	}
}

// WithSampler is an option builder that sets the sampler used by every material.
// Defaults to linear filtering with repeat addressing.
//
// Parameters:
//   - desc: the sampler configuration
//
// Returns:
//   - ModelBuilderOption: a function that applies the sampler option to a model
func WithSampler(desc gpu.SamplerDescriptor) ModelBuilderOption {
	return func(m *model) {
		m.samplerDesc = desc
	}
}

// WithFallbackColor is an option builder that sets the color of the 1x1 texture bound to
// materials whose base color texture is unspecified and unresolvable. Defaults to opaque white.
//
// Parameters:
//   - rgba: the fallback texel
//
// Returns:
//   - ModelBuilderOption: a function that applies the fallback color option to a model
func WithFallbackColor(rgba [4]byte) ModelBuilderOption {
	return func(m *model) {
		m.fallbackColor = rgba
	}
}
