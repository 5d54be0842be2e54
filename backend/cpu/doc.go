// Copyright 2025 The pytorch-caffe Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for Caffe layers.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Im2col + GEMM convolution with groups, stride and padding
//   - Caffe ceil-mode max and average pooling
//   - Batch processing over the leading axis
//
// # Basic Usage
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
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	}
package cpu
