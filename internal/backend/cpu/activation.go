package cpu

import (
	"fmt"
	"math"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// ReLU computes max(x, 0) + negativeSlope * min(x, 0).
// A zero slope is the plain rectifier; a positive slope is leaky ReLU.
func (cpu *CPUBackend) ReLU(input *tensor.RawTensor, negativeSlope float32) (*tensor.RawTensor, error) {
	result, err := tensor.NewRaw(input.Shape())
	if err != nil {
		return nil, fmt.Errorf("relu: %w", err)
	}
	src, dst := input.Data(), result.Data()
	for i, v := range src {
		if v > 0 {
			dst[i] = v
		} else {
			dst[i] = v * negativeSlope
		}
	}
	return result, nil
}

// Softmax computes softmax along the specified axis.
// Softmax(x_i) = exp(x_i - max) / sum(exp(x_j - max)) for all j in the axis.
func (cpu *CPUBackend) Softmax(input *tensor.RawTensor, axis int) (*tensor.RawTensor, error) {
	shape := input.Shape()
	axis, err := tensor.NormalizeAxis(axis, len(shape))
	if err != nil {
		return nil, fmt.Errorf("softmax: %w", err)
	}

	result, err := tensor.NewRaw(shape)
	if err != nil {
		return nil, fmt.Errorf("softmax: %w", err)
	}

	in, out := input.Data(), result.Data()
	outerSize, axisSize, innerSize := shape.Split(axis)
	for outer := 0; outer < outerSize; outer++ {
		for inner := 0; inner < innerSize; inner++ {
			base := outer*axisSize*innerSize + inner

			// Find max for numerical stability
			maxVal := float32(-math.MaxFloat32)
			for a := 0; a < axisSize; a++ {
				if v := in[base+a*innerSize]; v > maxVal {
					maxVal = v
				}
			}
			sum := float32(0)
			for a := 0; a < axisSize; a++ {
				idx := base + a*innerSize
				out[idx] = float32(math.Exp(float64(in[idx] - maxVal)))
				sum += out[idx]
			}
			for a := 0; a < axisSize; a++ {
				out[base+a*innerSize] /= sum
			}
		}
	}
	return result, nil
}
