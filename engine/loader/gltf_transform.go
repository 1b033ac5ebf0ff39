package loader

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// LocalTransform returns a node's transform relative to its parent as a column-major matrix.
// An explicit, non-identity matrix wins; otherwise the matrix is composed as T * R * S from the
// node's translation, rotation quaternion and scale. Zero-valued rotation and scale fields
// (documents built in memory rather than decoded) fall back to the glTF defaults.
//
// Parameters:
//   - node: the glTF node
//
// Returns:
//   - mgl32.Mat4: the local transform
func LocalTransform(node *gltf.Node) mgl32.Mat4 {
	if node.Matrix != gltfEmptyMatrix && node.Matrix != gltf.DefaultMatrix {
		var m mgl32.Mat4
		for i, v := range node.Matrix {
			m[i] = float32(v)
		}
		return m
	}

	t := node.Translation
	translation := mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2]))

	rotation := mgl32.Ident4()
	if r := node.Rotation; r != [4]float64{} {
		// glTF stores quaternions as x, y, z, w.
		q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
		rotation = q.Normalize().Mat4()
	}

	scale := mgl32.Ident4()
	if s := node.Scale; s != [3]float64{} {
		scale = mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2]))
	}

	return translation.Mul4(rotation).Mul4(scale)
}

var gltfEmptyMatrix [16]float64
