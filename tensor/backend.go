// Copyright 2025 The pytorch-caffe Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/abrosua/pytorch-caffe/internal/tensor"

// Backend defines the layer primitives a compute backend implements:
// convolution, pooling, normalization, activations, combinators and
// layout changes. Every primitive allocates its result and reports shape
// problems as errors.
//
// Implementations:
//   - backend/cpu: Pure Go, GEMM through gonum
//
// Example:
//
//	import (
//	    "github.com/abrosua/pytorch-caffe/backend/cpu"
//	    "github.com/abrosua/pytorch-caffe/caffe"
//	)
//
//	opts := caffe.DefaultOptions()
//	opts.Backend = cpu.New()
type Backend = tensor.Backend

// Parameter records passed to Backend primitives.
type (
	ConvParams = tensor.ConvParams
	PoolParams = tensor.PoolParams
	LRNParams  = tensor.LRNParams
	PoolMethod = tensor.PoolMethod
	EltwiseOp  = tensor.EltwiseOp
)

// Pooling methods.
const (
	PoolMax     = tensor.PoolMax
	PoolAverage = tensor.PoolAverage
)

// Element-wise combinators.
const (
	EltwiseSum = tensor.EltwiseSum
	EltwiseMul = tensor.EltwiseMul
	EltwiseDiv = tensor.EltwiseDiv
	EltwiseMax = tensor.EltwiseMax
)
