// Copyright 2025 The pytorch-caffe Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor types used by the caffe package.
//
// Caffe blobs are dense single precision arrays in NCHW order, so a single
// concrete type covers every blob:
//   - RawTensor: a []float32 buffer with its Shape
//   - Backend: the layer primitives an engine runs on
//
// Example:
//
//	x, err := tensor.FromFloat32(pixels, tensor.Shape{1, 3, 224, 224})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := net.Forward(x)
package tensor

import (
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{1, 3, 224, 224} is one three-channel 224×224 image.
type Shape = tensor.Shape

// RawTensor is a dense float32 tensor in row-major order.
//
// RawTensor provides:
//   - Shape information via Shape(), Dim() and NumElements()
//   - Direct buffer access via Data()
//   - Deep copies via Clone() and shared-buffer views via View()
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-filled tensor.
func NewRaw(shape Shape) (*RawTensor, error) {
	return tensor.NewRaw(shape)
}

// FromFloat32 wraps data as a tensor of the given shape without copying.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	return tensor.FromFloat32(data, shape)
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, value float32) (*RawTensor, error) {
	return tensor.Full(shape, value)
}
