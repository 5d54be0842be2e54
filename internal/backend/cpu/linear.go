package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Linear computes a fully connected layer: output = input @ weight^T + bias.
//
// Input shape:  [batch, ...] (every axis after the first is one feature axis)
// Weight shape: [out_features, in_features] (Caffe InnerProduct layout)
// Bias shape:   [out_features] (optional, may be nil)
// Output shape: [batch, out_features]
func (cpu *CPUBackend) Linear(input, weight, bias *tensor.RawTensor) (*tensor.RawTensor, error) {
	inShape := input.Shape()
	if len(inShape) < 1 {
		return nil, fmt.Errorf("linear: input must have a batch axis, got %v", inShape)
	}
	wShape := weight.Shape()
	if len(wShape) != 2 {
		return nil, fmt.Errorf("linear: weight must be 2D [out,in], got %v", wShape)
	}

	m := inShape[0]
	k := input.NumElements() / m
	out, kAlt := wShape[0], wShape[1]
	if k != kAlt {
		return nil, fmt.Errorf("linear: input has %d features per sample, weight expects %d", k, kAlt)
	}
	if bias != nil && bias.NumElements() != out {
		return nil, fmt.Errorf("linear: bias has %d elements, want %d", bias.NumElements(), out)
	}

	result, err := tensor.NewRaw(tensor.Shape{m, out})
	if err != nil {
		return nil, fmt.Errorf("linear: failed to create result tensor: %w", err)
	}

	blas32.Gemm(blas.NoTrans, blas.Trans, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: input.Data()},
		blas32.General{Rows: out, Cols: k, Stride: k, Data: weight.Data()},
		0,
		blas32.General{Rows: m, Cols: out, Stride: out, Data: result.Data()},
	)

	if bias != nil {
		addChannelBias(result.Data(), bias.Data(), m, out, 1)
	}
	return result, nil
}
