// Copyright 2025 The pytorch-caffe Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package caffe loads Caffe networks and runs inference on them.
//
// A network is described by a text .prototxt topology and trained
// parameters stored in a binary .caffemodel checkpoint. Loading builds an
// executable graph from the topology, inferring the shape of every blob;
// the checkpoint is then matched against the graph by layer name.
//
// # Supported Features
//
//   - Current ("layer") and V1 ("layers") topologies and checkpoints
//   - Mean image subtraction from a .binaryproto file
//   - Selection of any intermediate blob as an output
//   - Input size override
//
// # Example Usage
//
//	import (
//	    "github.com/abrosua/pytorch-caffe/caffe"
//	)
//
//	net, err := caffe.Load("deploy.prototxt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := net.LoadWeightsFile("model.caffemodel"); err != nil {
//	    log.Fatal(err)
//	}
//
//	input, _ := caffe.NewTensor(pixels, 1, 3, 224, 224)
//	outputs, err := net.Forward(input)
//
// # Supported Layers
//
// Convolution, BatchNorm, Scale, ReLU, Pooling, Eltwise, InnerProduct,
// Dropout, Normalize, LRN, Permute, Flatten, Slice, Concat, PriorBox,
// Reshape and Softmax execute. SoftmaxWithLoss is kept in the graph but
// never runs. Data and Input layers only declare the input. Layers of any
// other type are skipped with a warning.
//
// Use [ListSupportedKinds] to get the complete list.
package caffe

import (
	internalcaffe "github.com/abrosua/pytorch-caffe/internal/caffe"
	"github.com/abrosua/pytorch-caffe/internal/caffe/layers"
	"github.com/abrosua/pytorch-caffe/internal/tensor"
)

// Options configures network loading.
type Options = internalcaffe.Options

// DefaultOptions returns the default options: the CPU backend and
// slog.Default() for diagnostics.
func DefaultOptions() Options {
	return internalcaffe.DefaultOptions()
}

// Blobs maps blob names to the tensors one execution produced.
type Blobs = internalcaffe.Blobs

// BlobShape is the inferred (channels, width, height) of a blob.
type BlobShape = layers.BlobShape

// Entry is one executable step of a loaded network.
type Entry = internalcaffe.Entry

// Errors reported while loading or running a network. Test with errors.Is.
var (
	ErrUndefinedBlob       = layers.ErrUndefinedBlob
	ErrOutputCount         = layers.ErrOutputCount
	ErrInputCount          = layers.ErrInputCount
	ErrInvalidParam        = layers.ErrInvalidParam
	ErrUnsupportedOperator = layers.ErrUnsupportedOperator
	ErrWeightMismatch      = layers.ErrWeightMismatch
	ErrMissingWeights      = layers.ErrMissingWeights
	ErrEmptyCheckpoint     = layers.ErrEmptyCheckpoint
)

// StructuralError reports a malformed topology. Use errors.As to read the
// offending layer.
type StructuralError = layers.StructuralError

// WeightMismatchError reports a checkpoint block of the wrong size.
type WeightMismatchError = layers.WeightMismatchError

// Load parses a .prototxt topology and builds the network.
//
// Example:
//
//	opts := caffe.DefaultOptions()
//	opts.InputWidth, opts.InputHeight = 300, 300
//	net, err := caffe.Load("deploy.prototxt", opts)
func Load(path string, opts ...Options) (Net, error) {
	net, err := internalcaffe.Load(path, opts...)
	if err != nil {
		return nil, err
	}
	return net, nil
}

// LoadFromBytes builds the network from prototxt text.
//
// This is useful when the topology is embedded in the binary.
func LoadFromBytes(data []byte, opts ...Options) (Net, error) {
	net, err := internalcaffe.LoadFromBytes(data, opts...)
	if err != nil {
		return nil, err
	}
	return net, nil
}

// NewTensor wraps data as an input tensor of the given shape, normally
// [batch, channels, height, width]. The slice is not copied.
func NewTensor(data []float32, shape ...int) (*tensor.RawTensor, error) {
	return tensor.FromFloat32(data, tensor.Shape(shape))
}

// ListSupportedKinds returns the layer type names the loader understands.
//
// Example:
//
//	for _, kind := range caffe.ListSupportedKinds() {
//	    fmt.Println(kind)
//	}
func ListSupportedKinds() []string {
	return layers.SupportedKinds()
}
