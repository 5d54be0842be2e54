package tensor

import (
	"fmt"
)

// RawTensor is the low-level tensor representation.
//
// Caffe blobs are single precision, so the buffer is a plain []float32 in
// row-major (NCHW) order. Reshape returns views that share the buffer;
// every kernel allocates a fresh output.
type RawTensor struct {
	data   []float32 // Row-major element buffer
	shape  Shape     // Tensor dimensions
	stride []int     // Memory strides (row-major)
}

// NewRaw creates a new zero-filled RawTensor with the given shape.
func NewRaw(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		data:   make([]float32, shape.NumElements()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
	}, nil
}

// FromFloat32 wraps data as a tensor of the given shape. The slice is
// used directly, not copied.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data has %d elements, shape %v needs %d", len(data), shape, shape.NumElements())
	}
	return &RawTensor{
		data:   data,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
	}, nil
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, value float32) (*RawTensor, error) {
	t, err := NewRaw(shape)
	if err != nil {
		return nil, err
	}
	for i := range t.data {
		t.data[i] = value
	}
	return t, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// Dim returns the size of dimension i, or 1 when the tensor has fewer
// dimensions. Caffe treats missing trailing axes as singleton.
func (r *RawTensor) Dim(i int) int {
	if i < len(r.shape) {
		return r.shape[i]
	}
	return 1
}

// Data returns the underlying element buffer.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []float32 {
	return r.data
}

// Clone returns a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]float32, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
	}
}

// CopyFrom copies src into the tensor's buffer. Element counts must match;
// shapes may differ (Caffe blobs are copied by element order).
func (r *RawTensor) CopyFrom(src []float32) error {
	if len(src) != len(r.data) {
		return fmt.Errorf("copy: source has %d elements, tensor %v has %d", len(src), r.shape, len(r.data))
	}
	copy(r.data, src)
	return nil
}

// View returns a tensor sharing the buffer with a new shape of equal size.
func (r *RawTensor) View(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("view: %w", err)
	}
	if shape.NumElements() != len(r.data) {
		return nil, fmt.Errorf("view: cannot view %d elements as %v", len(r.data), shape)
	}
	return &RawTensor{
		data:   r.data,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
	}, nil
}

// String returns a short description such as "tensor[1 3 224 224]".
func (r *RawTensor) String() string {
	return "tensor" + r.shape.String()
}
