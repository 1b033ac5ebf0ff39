package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/qmuntal/gltf"
)

var (
	// ErrAccessorOutOfBounds is returned when an accessor's byte range does not fit its buffer.
	ErrAccessorOutOfBounds = errors.New("accessor byte range exceeds buffer")

	errSparseAccessor     = errors.New("sparse accessors are not supported")
	errAccessorNoView     = errors.New("accessor has no bufferView")
	errUnknownComponent   = errors.New("unknown accessor component type")
	errUnexpectedAccessor = errors.New("unexpected accessor layout")
)

// AccessorRange is the resolved location of an accessor's elements inside a buffer.
type AccessorRange struct {
	// Buffer is the index of the buffer holding the data.
	Buffer int
	// Offset is bufferView.byteOffset + accessor.byteOffset.
	Offset uint64
	// Size is ElementSize * Count.
	Size uint64
	// ElementSize is the byte size of one element.
	ElementSize uint64
	// Stride is the byte distance between elements (ElementSize for tightly packed views).
	Stride uint64
	// Count is the number of elements.
	Count uint32
	// ComponentType is the accessor's component type.
	ComponentType gltf.ComponentType
}

// AccessorRangeError reports an accessor whose byte range does not fit its buffer.
type AccessorRangeError struct {
	Accessor   int
	Buffer     int
	End        uint64
	BufferSize uint64
}

func (e *AccessorRangeError) Error() string {
	return fmt.Sprintf("accessor %d: byte range ends at %d but buffer %d holds %d bytes", e.Accessor, e.End, e.Buffer, e.BufferSize)
}

func (e *AccessorRangeError) Unwrap() error {
	return ErrAccessorOutOfBounds
}

// ResolveAccessor resolves and validates the byte range of an accessor.
// The range starts at bufferView.byteOffset + accessor.byteOffset and ends after the last element,
// (count-1) * stride + elementSize bytes later. Counts whose range overflows are rejected.
//
// Parameters:
//   - doc: the document owning the accessor
//   - index: the accessor index
//
// Returns:
//   - AccessorRange: the validated range
//   - error: an error if the accessor is malformed or its range exceeds its buffer
func ResolveAccessor(doc *gltf.Document, index int) (AccessorRange, error) {
	if index < 0 || index >= len(doc.Accessors) {
		return AccessorRange{}, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := doc.Accessors[index]
	if acc.Sparse != nil {
		return AccessorRange{}, fmt.Errorf("accessor %d: %w", index, errSparseAccessor)
	}
	if acc.BufferView == nil {
		return AccessorRange{}, fmt.Errorf("accessor %d: %w", index, errAccessorNoView)
	}
	viewIndex := *acc.BufferView
	if viewIndex < 0 || viewIndex >= len(doc.BufferViews) {
		return AccessorRange{}, fmt.Errorf("accessor %d: bufferView index %d out of range", index, viewIndex)
	}
	view := doc.BufferViews[viewIndex]
	if view.Buffer < 0 || view.Buffer >= len(doc.Buffers) {
		return AccessorRange{}, fmt.Errorf("accessor %d: buffer index %d out of range", index, view.Buffer)
	}
	if acc.ByteOffset < 0 || view.ByteOffset < 0 || acc.Count < 0 {
		return AccessorRange{}, fmt.Errorf("accessor %d: negative offset or count", index)
	}

	componentSize := gltfComponentTypeSize(acc.ComponentType)
	if componentSize == 0 {
		return AccessorRange{}, fmt.Errorf("accessor %d: %w %d", index, errUnknownComponent, acc.ComponentType)
	}
	elementSize := uint64(componentSize * gltfAccessorTypeComponentCount(acc.Type))

	stride := elementSize
	if view.ByteStride > 0 {
		stride = uint64(view.ByteStride)
	}

	offset := uint64(view.ByteOffset) + uint64(acc.ByteOffset)
	bufSize := uint64(len(doc.Buffers[view.Buffer].Data))
	end, ok := accessorEnd(offset, elementSize, stride, uint64(acc.Count))
	if !ok || uint64(acc.Count) > math.MaxUint32 || end > bufSize {
		if !ok {
			end = math.MaxUint64
		}
		return AccessorRange{}, &AccessorRangeError{Accessor: index, Buffer: view.Buffer, End: end, BufferSize: bufSize}
	}

	r := AccessorRange{
		Buffer:        view.Buffer,
		Offset:        offset,
		Size:          elementSize * uint64(acc.Count),
		ElementSize:   elementSize,
		Stride:        stride,
		Count:         uint32(acc.Count),
		ComponentType: acc.ComponentType,
	}
	return r, nil
}

// ReadAccessorData copies the elements of an accessor into a tightly packed byte slice,
// removing any bufferView stride.
//
// Parameters:
//   - doc: the document owning the accessor
//   - index: the accessor index
//
// Returns:
//   - []byte: Count * ElementSize bytes
//   - error: an error if the accessor cannot be resolved
func ReadAccessorData(doc *gltf.Document, index int) ([]byte, error) {
	r, err := ResolveAccessor(doc, index)
	if err != nil {
		return nil, err
	}
	data := doc.Buffers[r.Buffer].Data

	result := make([]byte, r.Size)
	for i := uint64(0); i < uint64(r.Count); i++ {
		src := r.Offset + i*r.Stride
		dst := i * r.ElementSize
		copy(result[dst:dst+r.ElementSize], data[src:src+r.ElementSize])
	}
	return result, nil
}

// ReadVec3Accessor reads a float VEC3 accessor such as POSITION.
//
// Parameters:
//   - doc: the document owning the accessor
//   - index: the accessor index
//
// Returns:
//   - [][3]float32: one entry per element
//   - error: an error if the accessor is not a float VEC3 or cannot be resolved
func ReadVec3Accessor(doc *gltf.Document, index int) ([][3]float32, error) {
	if index < 0 || index >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := doc.Accessors[index]
	if acc.Type != gltf.AccessorVec3 || acc.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("accessor %d: %w: want float VEC3", index, errUnexpectedAccessor)
	}

	raw, err := ReadAccessorData(doc, index)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, len(raw)/12)
	for i := range out {
		for c := 0; c < 3; c++ {
			out[i][c] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*12+c*4:]))
		}
	}
	return out, nil
}

// accessorEnd returns the exclusive end byte of count elements laid out stride bytes apart.
// ok is false when the end does not fit in a uint64.
func accessorEnd(offset, elementSize, stride, count uint64) (end uint64, ok bool) {
	if count == 0 {
		return offset, true
	}
	hi, last := bits.Mul64(count-1, max(stride, elementSize))
	if hi != 0 {
		return 0, false
	}
	end, carry := bits.Add64(offset, last, 0)
	if carry != 0 {
		return 0, false
	}
	end, carry = bits.Add64(end, elementSize, 0)
	return end, carry == 0
}

// gltfComponentTypeSize returns the byte size of a component type.
func gltfComponentTypeSize(componentType gltf.ComponentType) int {
	switch componentType {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	case gltf.ComponentUint, gltf.ComponentFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType gltf.AccessorType) int {
	switch accessorType {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4:
		return 4
	case gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	default:
		return 0
	}
}
