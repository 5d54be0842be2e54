// Copyright 2025 The pytorch-caffe Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package caffe

import (
	internalcaffe "github.com/abrosua/pytorch-caffe/internal/caffe"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Net is a loaded Caffe network.
//
// This interface hides the internal implementation and allows for:
//   - Easy mocking in tests
//   - Decoupling from internal package structure
//
// Load weights and set the mean file before running inference. Once
// configured, Forward and Execute are safe for concurrent use.
type Net interface {
	// Forward runs inference and returns the selected outputs, in the
	// order given to SetOutputs. Without a selection it returns the tops
	// of the last executable layer.
	Forward(input *tensor.RawTensor) ([]*tensor.RawTensor, error)

	// Execute runs inference and returns every blob.
	//
	// Example:
	//
	//	blobs, err := net.Execute(input)
	//	if err != nil {
	//	    log.Fatal(err)
	//	}
	//	features := blobs["pool5"]
	Execute(input *tensor.RawTensor) (Blobs, error)

	// Outputs picks the selected outputs out of an Execute result.
	Outputs(blobs Blobs) ([]*tensor.RawTensor, error)

	// SetOutputs selects the blobs Forward returns.
	SetOutputs(names ...string) error

	// OutputNames returns the blobs Forward returns.
	OutputNames() []string

	// LoadWeightsFile copies parameters from a .caffemodel file. A failed
	// load leaves the parameters untouched.
	LoadWeightsFile(path string) error

	// LoadWeightsFromBytes copies parameters from checkpoint bytes.
	LoadWeightsFromBytes(data []byte) error

	// SetMeanFile loads a .binaryproto mean image; "" disables it.
	SetMeanFile(path string) error

	// Name returns the network name.
	Name() string

	// InputShape returns the expected input shape for a batch of one.
	InputShape() tensor.Shape

	// BlobShape returns the inferred shape of a blob.
	BlobShape(name string) (BlobShape, error)

	// Graph returns the executable entries in execution order.
	Graph() []Entry

	// Skipped returns the names of layers dropped as unsupported.
	Skipped() []string

	// String prints one line per executable layer.
	String() string
}

// Compile-time check that the internal network implements Net.
var _ Net = (*internalcaffe.Net)(nil)
