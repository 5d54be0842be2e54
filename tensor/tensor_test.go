// Copyright 2025 The pytorch-caffe Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrosua/pytorch-caffe/backend/cpu"
	"github.com/abrosua/pytorch-caffe/tensor"
)

func TestConstructors(t *testing.T) {
	x, err := tensor.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 6, x.NumElements())
	assert.Equal(t, 3, x.Dim(2))

	z, err := tensor.NewRaw(tensor.Shape{2, 2})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0}, z.Data())

	f, err := tensor.Full(tensor.Shape{3}, 1.5)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, 1.5, 1.5}, f.Data())

	_, err = tensor.FromFloat32([]float32{1, 2}, tensor.Shape{3})
	assert.Error(t, err)
	_, err = tensor.NewRaw(tensor.Shape{2, 0})
	assert.Error(t, err)
}

func TestBackendThroughFacade(t *testing.T) {
	var b tensor.Backend = cpu.New()
	assert.Equal(t, "CPU", b.Name())

	x, err := tensor.FromFloat32([]float32{1, 2, 3, 4}, tensor.Shape{1, 1, 2, 2})
	require.NoError(t, err)
	out, err := b.Pool2D(x, tensor.PoolParams{Method: tensor.PoolMax, Kernel: 2, Stride: 2})
	require.NoError(t, err)
	assert.Equal(t, []float32{4}, out.Data())

	sum, err := b.Eltwise(tensor.EltwiseSum, nil, []*tensor.RawTensor{x, x})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 8}, sum.Data())
}
