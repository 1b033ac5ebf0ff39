package model

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUNodeUniformSource is the canonical WGSL definition of the NodeUniform struct bound at group 1.
// Matches GPUNodeUniform layout exactly (64 bytes).
//
//go:embed assets/node_uniform.wgsl
var GPUNodeUniformSource string

// GPUNodeUniform is the GPU-aligned per-node uniform record.
// Size: 64 bytes (mat4x4<f32>, no padding required).
type GPUNodeUniform struct {
	World mgl32.Mat4 // offset 0: column-major world transform (64 bytes)
}

// Size returns the size of the GPUNodeUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUNodeUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUNodeUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUNodeUniform) Marshal() []byte {
	buf := make([]byte, 64)
	common.PutMat4(buf, g.World)
	return buf
}

// GPUMaterialUniformSource is the canonical WGSL definition of the MaterialUniform struct bound at group 2.
// Matches GPUMaterialUniform layout exactly (32 bytes).
//
//go:embed assets/material_uniform.wgsl
var GPUMaterialUniformSource string

// GPUMaterialUniform is the GPU-aligned metallic-roughness factor record of a material.
// Size: 32 bytes (vec4 + 2 floats, padded to the 16-byte uniform alignment).
type GPUMaterialUniform struct {
	BaseColor [4]float32 // offset  0: base color factor, linear RGBA (16 bytes)
	Metallic  float32    // offset 16: metallic factor (4 bytes)
	Roughness float32    // offset 20: roughness factor (4 bytes)
	_         [2]float32 // offset 24: padding (8 bytes)
}

// Size returns the size of the GPUMaterialUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialUniform) Marshal() []byte {
	buf := make([]byte, 32)
	common.PutFloat32s(buf, g.BaseColor[0], g.BaseColor[1], g.BaseColor[2], g.BaseColor[3], g.Metallic, g.Roughness)
	return buf
}

const (
	nodeUniformSize     = 64
	materialUniformSize = 32
)
