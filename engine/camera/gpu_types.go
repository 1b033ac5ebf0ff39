package camera

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUFrameUniformSource is the canonical WGSL definition of the FrameUniform struct.
// Matches GPUFrameUniform layout exactly (208 bytes, uniform address space aligned).
//
//go:embed assets/frame_uniform.wgsl
var GPUFrameUniformSource string

// frameUniformSize is the byte size of the serialized FrameUniform.
const frameUniformSize = 208

// GPUFrameUniform is the frame-global uniform bound at descriptor set slot 0 for every draw.
// Matches the WGSL FrameUniform struct layout exactly (see GPUFrameUniformSource).
type GPUFrameUniform struct {
	Dimensions [2]float32 // offset   0: framebuffer size in pixels (vec2<f32>)
	_          [2]float32 // offset   8: padding to the mat4 alignment
	Model      mgl32.Mat4 // offset  16: scene-wide model matrix (mat4x4<f32>)
	View       mgl32.Mat4 // offset  80: view matrix (mat4x4<f32>)
	Projection mgl32.Mat4 // offset 144: projection matrix (mat4x4<f32>)
}

// Size returns the size of the serialized GPUFrameUniform in bytes.
//
// Returns:
//   - int: the struct size in bytes (208)
func (g *GPUFrameUniform) Size() int {
	return frameUniformSize
}

// Marshal serializes the GPUFrameUniform into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUFrameUniform) Marshal() []byte {
	buf := make([]byte, frameUniformSize)
	common.PutFloat32s(buf, g.Dimensions[0], g.Dimensions[1])
	common.PutMat4(buf[16:], g.Model)
	common.PutMat4(buf[80:], g.View)
	common.PutMat4(buf[144:], g.Projection)
	return buf
}
