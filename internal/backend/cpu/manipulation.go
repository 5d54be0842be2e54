package cpu

import (
	"fmt"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Eltwise folds inputs left to right with op. All inputs must share the
// first input's shape. coeffs, when non-empty, weights each input of a SUM
// and must have one entry per input.
func (cpu *CPUBackend) Eltwise(op tensor.EltwiseOp, coeffs []float32, inputs []*tensor.RawTensor) (*tensor.RawTensor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("eltwise: no inputs")
	}
	if len(coeffs) > 0 && len(coeffs) != len(inputs) {
		return nil, fmt.Errorf("eltwise: %d coefficients for %d inputs", len(coeffs), len(inputs))
	}
	if len(coeffs) > 0 && op != tensor.EltwiseSum {
		return nil, fmt.Errorf("eltwise: coefficients only apply to SUM, got %v", op)
	}
	first := inputs[0]
	for i, t := range inputs[1:] {
		if !t.Shape().Equal(first.Shape()) {
			return nil, fmt.Errorf("eltwise: input %d has shape %v, expected %v", i+1, t.Shape(), first.Shape())
		}
	}

	result := first.Clone()
	dst := result.Data()
	if len(coeffs) > 0 {
		for i := range dst {
			dst[i] *= coeffs[0]
		}
	}

	for k, t := range inputs[1:] {
		src := t.Data()
		switch op {
		case tensor.EltwiseSum:
			c := float32(1)
			if len(coeffs) > 0 {
				c = coeffs[k+1]
			}
			for i := range dst {
				dst[i] += c * src[i]
			}
		case tensor.EltwiseMul:
			for i := range dst {
				dst[i] *= src[i]
			}
		case tensor.EltwiseDiv:
			for i := range dst {
				dst[i] /= src[i]
			}
		case tensor.EltwiseMax:
			for i := range dst {
				dst[i] = max(dst[i], src[i])
			}
		default:
			return nil, fmt.Errorf("eltwise: unsupported operator %v", op)
		}
	}
	return result, nil
}

// Concat concatenates tensors along the specified axis.
func (cpu *CPUBackend) Concat(inputs []*tensor.RawTensor, axis int) (*tensor.RawTensor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("concat: no tensors provided")
	}

	first := inputs[0]
	ndim := len(first.Shape())
	axis, err := tensor.NormalizeAxis(axis, ndim)
	if err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}

	// Verify all tensors have compatible shapes
	newShape := first.Shape().Clone()
	for i, t := range inputs[1:] {
		shape := t.Shape()
		if len(shape) != ndim {
			return nil, fmt.Errorf("concat: tensor %d has %d dimensions, expected %d", i+1, len(shape), ndim)
		}
		for j := 0; j < ndim; j++ {
			if j != axis && shape[j] != newShape[j] {
				return nil, fmt.Errorf("concat: tensor %d has shape %v, incompatible with %v on axis %d", i+1, shape, first.Shape(), axis)
			}
		}
		newShape[axis] += shape[axis]
	}

	result, err := tensor.NewRaw(newShape)
	if err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}

	outData := result.Data()
	outerSize, _, innerSize := newShape.Split(axis)
	offset := 0
	for outer := 0; outer < outerSize; outer++ {
		for _, t := range inputs {
			copyLen := t.Shape()[axis] * innerSize
			inStart := outer * copyLen
			copy(outData[offset:offset+copyLen], t.Data()[inStart:inStart+copyLen])
			offset += copyLen
		}
	}
	return result, nil
}

// Split cuts a tensor into contiguous pieces along an axis; sizes must sum
// to the axis extent.
func (cpu *CPUBackend) Split(input *tensor.RawTensor, axis int, sizes []int) ([]*tensor.RawTensor, error) {
	shape := input.Shape()
	axis, err := tensor.NormalizeAxis(axis, len(shape))
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	total := 0
	for _, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("split: piece sizes must be positive, got %v", sizes)
		}
		total += s
	}
	if total != shape[axis] {
		return nil, fmt.Errorf("split: split sizes sum to %d, but axis has size %d", total, shape[axis])
	}

	outerSize, axisSize, innerSize := shape.Split(axis)
	srcData := input.Data()
	results := make([]*tensor.RawTensor, len(sizes))
	offset := 0
	for i, size := range sizes {
		newShape := shape.Clone()
		newShape[axis] = size
		result, err := tensor.NewRaw(newShape)
		if err != nil {
			return nil, fmt.Errorf("split: %w", err)
		}

		dstData := result.Data()
		chunk := size * innerSize
		for outer := 0; outer < outerSize; outer++ {
			srcStart := (outer*axisSize + offset) * innerSize
			copy(dstData[outer*chunk:(outer+1)*chunk], srcData[srcStart:srcStart+chunk])
		}

		results[i] = result
		offset += size
	}
	return results, nil
}

// Permute reorders axes: output axis i is input axis order[i].
func (cpu *CPUBackend) Permute(input *tensor.RawTensor, order []int) (*tensor.RawTensor, error) {
	oldShape := input.Shape()
	ndim := len(oldShape)
	if len(order) != ndim {
		return nil, fmt.Errorf("permute: order %v must have %d axes", order, ndim)
	}

	seen := make([]bool, ndim)
	newShape := make(tensor.Shape, ndim)
	for i, ax := range order {
		if ax < 0 || ax >= ndim || seen[ax] {
			return nil, fmt.Errorf("permute: order %v is not a permutation of %d axes", order, ndim)
		}
		seen[ax] = true
		newShape[i] = oldShape[ax]
	}

	result, err := tensor.NewRaw(newShape)
	if err != nil {
		return nil, fmt.Errorf("permute: %w", err)
	}

	in, out := input.Data(), result.Data()
	oldStrides := oldShape.ComputeStrides()
	idx := make([]int, ndim)
	for i := range out {
		// Decompose the output flat index, then gather from the input
		tmp := i
		for j := ndim - 1; j >= 0; j-- {
			idx[j] = tmp % newShape[j]
			tmp /= newShape[j]
		}
		oldFlat := 0
		for j := 0; j < ndim; j++ {
			oldFlat += idx[j] * oldStrides[order[j]]
		}
		out[i] = in[oldFlat]
	}
	return result, nil
}

// Reshape returns a view with a new shape. One dimension may be -1 and is
// inferred from the element count.
func (cpu *CPUBackend) Reshape(input *tensor.RawTensor, newShape tensor.Shape) (*tensor.RawTensor, error) {
	totalElements := input.NumElements()
	inferIdx := -1
	product := 1
	for i, dim := range newShape {
		switch {
		case dim == -1:
			if inferIdx >= 0 {
				return nil, fmt.Errorf("reshape: can only have one -1 dimension")
			}
			inferIdx = i
		case dim <= 0:
			return nil, fmt.Errorf("reshape: dimensions must be positive, got %d", dim)
		default:
			product *= dim
		}
	}

	actualShape := newShape.Clone()
	if inferIdx >= 0 {
		if totalElements%product != 0 {
			return nil, fmt.Errorf("reshape: cannot infer dimension for shape %v from %d elements", newShape, totalElements)
		}
		actualShape[inferIdx] = totalElements / product
	}

	result, err := input.View(actualShape)
	if err != nil {
		return nil, fmt.Errorf("reshape: %w", err)
	}
	return result, nil
}
