// Copyright 2025 The pytorch-caffe Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/abrosua/pytorch-caffe/internal/backend/cpu"
	"github.com/abrosua/pytorch-caffe/internal/parallel"
	"github.com/abrosua/pytorch-caffe/tensor"
)

// Backend represents the CPU backend implementation.
//
// The CPU backend runs every Caffe layer kernel in pure Go; convolution
// and inner product go through gonum's float32 GEMM.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// Parallelism controls how convolution and pooling spread work over
// goroutines.
type Parallelism = parallel.Config

// Sequential keeps every kernel on the calling goroutine.
func Sequential() Parallelism {
	return parallel.Sequential()
}

// New creates a new CPU backend that uses every available CPU.
//
// Example:
//
//	import (
//	    "github.com/abrosua/pytorch-caffe/backend/cpu"
//	    "github.com/abrosua/pytorch-caffe/caffe"
//	)
//
//	func main() {
//	    opts := caffe.DefaultOptions()
//	    opts.Backend = cpu.New()
//	    net, err := caffe.Load("deploy.prototxt", opts)
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithParallelism creates a CPU backend with explicit parallelism.
func NewWithParallelism(p Parallelism) *Backend {
	return internalcpu.NewWithConfig(p)
}
